package enums

import "fmt"

// TradeType is the side of a P2P order from the desk's perspective,
// mirroring the exchange's BUY/SELL values.
type TradeType string

const (
	TradeTypeBuy  TradeType = "BUY"
	TradeTypeSell TradeType = "SELL"
)

var validTradeTypes = []TradeType{
	TradeTypeBuy,
	TradeTypeSell,
}

// String implements fmt.Stringer.
func (t TradeType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TradeType.
func (t TradeType) IsValid() bool {
	for _, candidate := range validTradeTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTradeType converts raw input into a TradeType.
func ParseTradeType(value string) (TradeType, error) {
	for _, candidate := range validTradeTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid trade type %q", value)
}
