package calc

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Field identifies which of the three linked order-form fields was edited.
type Field string

const (
	FieldQuantity Field = "quantity"
	FieldPrice    Field = "price"
	FieldTotal    Field = "total"
)

// ParseField maps the wire value onto a known field.
func ParseField(value string) (Field, error) {
	switch Field(strings.ToLower(strings.TrimSpace(value))) {
	case FieldQuantity:
		return FieldQuantity, nil
	case FieldPrice:
		return FieldPrice, nil
	case FieldTotal:
		return FieldTotal, nil
	default:
		return "", fmt.Errorf("unknown field %q", value)
	}
}

const (
	totalScale    = 2
	quantityScale = 8
)

// State holds the raw text of the three order-form fields plus the flag that
// remembers whether the operator typed the total by hand. Values are kept as
// strings so partial input like "12." survives a round trip unchanged.
type State struct {
	Quantity       string `json:"quantity"`
	Price          string `json:"price"`
	Total          string `json:"total"`
	TotalWasManual bool   `json:"total_was_manual"`
}

// Reset returns the cleared form state.
func Reset() State {
	return State{}
}

// Apply stores the edited value verbatim and recomputes at most one
// counterpart field:
//
//   - quantity edit: total = quantity * price; a manual total is forgotten.
//   - price edit: while the total is manual, quantity follows (total / price);
//     otherwise the total follows (quantity * price).
//   - total edit: marks the total manual and derives quantity = total / price.
//
// Non-positive or unparseable values never cascade.
func Apply(state State, field Field, value string) State {
	next := state

	switch field {
	case FieldQuantity:
		next.Quantity = value
		next.TotalWasManual = false
		quantity := parseAmount(value)
		price := parseAmount(next.Price)
		if quantity.IsPositive() && price.IsPositive() {
			next.Total = formatTotal(quantity.Mul(price))
		} else if !quantity.IsPositive() {
			next.Total = ""
		}

	case FieldPrice:
		next.Price = value
		price := parseAmount(value)
		if !price.IsPositive() {
			return next
		}
		total := parseAmount(next.Total)
		if next.TotalWasManual && total.IsPositive() {
			next.Quantity = formatQuantity(total.DivRound(price, quantityScale))
			return next
		}
		quantity := parseAmount(next.Quantity)
		if quantity.IsPositive() {
			next.Total = formatTotal(quantity.Mul(price))
			next.TotalWasManual = false
		}

	case FieldTotal:
		next.Total = value
		total := parseAmount(value)
		if !total.IsPositive() {
			next.TotalWasManual = false
			return next
		}
		next.TotalWasManual = true
		price := parseAmount(next.Price)
		if price.IsPositive() {
			next.Quantity = formatQuantity(total.DivRound(price, quantityScale))
		}
	}

	return next
}

// parseAmount treats blanks and partial input as zero so unfinished typing
// never breaks the cascade.
func parseAmount(value string) decimal.Decimal {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero
	}
	parsed, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero
	}
	return parsed
}

func formatTotal(value decimal.Decimal) string {
	return value.StringFixed(totalScale)
}

func formatQuantity(value decimal.Decimal) string {
	return value.StringFixed(quantityScale)
}
