package enums

import "fmt"

// Specialization is the kind of order flow an operator works.
type Specialization string

const (
	SpecializationSales    Specialization = "sales"
	SpecializationPurchase Specialization = "purchase"
	SpecializationBoth     Specialization = "both"
)

var validSpecializations = []Specialization{
	SpecializationSales,
	SpecializationPurchase,
	SpecializationBoth,
}

// String implements fmt.Stringer.
func (s Specialization) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Specialization.
func (s Specialization) IsValid() bool {
	for _, candidate := range validSpecializations {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSpecialization converts raw input into a Specialization.
func ParseSpecialization(value string) (Specialization, error) {
	for _, candidate := range validSpecializations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid specialization %q", value)
}

// Covers reports whether the specialization allows working the given side.
func (s Specialization) Covers(side TradeType) bool {
	if s == SpecializationBoth {
		return true
	}
	if side == TradeTypeBuy {
		return s == SpecializationPurchase
	}
	return s == SpecializationSales
}
