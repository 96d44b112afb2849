package domain

import "fmt"

// FocusState is the provenance of the current focus signal. OnBreak and
// Idle both mean "not enforcing"; Scheduled and Immediate both mean
// "enforcing" and are distinguished for display only.
type FocusState uint8

const (
	FocusIdle FocusState = iota
	FocusScheduled
	FocusImmediate
	FocusOnBreak
)

// Active reports whether blocking is enforced in this state.
func (s FocusState) Active() bool {
	return s == FocusScheduled || s == FocusImmediate
}

// String returns a stable string representation of the state.
func (s FocusState) String() string {
	switch s {
	case FocusIdle:
		return "idle"
	case FocusScheduled:
		return "scheduled"
	case FocusImmediate:
		return "immediate"
	case FocusOnBreak:
		return "break"
	default:
		return fmt.Sprintf("FocusState(%d)", s)
	}
}
