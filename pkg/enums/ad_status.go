package enums

import "fmt"

// AdStatus is the publication state of a C2C advertisement.
type AdStatus string

const (
	AdStatusOnline  AdStatus = "online"
	AdStatusOffline AdStatus = "offline"
)

var validAdStatuses = []AdStatus{
	AdStatusOnline,
	AdStatusOffline,
}

// String implements fmt.Stringer.
func (a AdStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AdStatus.
func (a AdStatus) IsValid() bool {
	for _, candidate := range validAdStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAdStatus converts raw input into an AdStatus.
func ParseAdStatus(value string) (AdStatus, error) {
	for _, candidate := range validAdStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ad status %q", value)
}
