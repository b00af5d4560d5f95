package enums

import "fmt"

// AssignmentStrategy selects how the auto-assignment engine breaks ties
// between eligible operators.
type AssignmentStrategy string

const (
	AssignmentStrategyLeastWorkload AssignmentStrategy = "least_workload"
	AssignmentStrategyRoundRobin    AssignmentStrategy = "round_robin"
)

var validAssignmentStrategies = []AssignmentStrategy{
	AssignmentStrategyLeastWorkload,
	AssignmentStrategyRoundRobin,
}

// String implements fmt.Stringer.
func (a AssignmentStrategy) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AssignmentStrategy.
func (a AssignmentStrategy) IsValid() bool {
	for _, candidate := range validAssignmentStrategies {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAssignmentStrategy converts raw input into an AssignmentStrategy.
func ParseAssignmentStrategy(value string) (AssignmentStrategy, error) {
	for _, candidate := range validAssignmentStrategies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid assignment strategy %q", value)
}
