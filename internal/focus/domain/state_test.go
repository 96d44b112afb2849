package domain

import "testing"

func TestFocusState(t *testing.T) {
	cases := []struct {
		state  FocusState
		active bool
		str    string
	}{
		{FocusIdle, false, "idle"},
		{FocusScheduled, true, "scheduled"},
		{FocusImmediate, true, "immediate"},
		{FocusOnBreak, false, "break"},
	}
	for _, tc := range cases {
		if got := tc.state.Active(); got != tc.active {
			t.Errorf("%v.Active() = %v, want %v", tc.state, got, tc.active)
		}
		if got := tc.state.String(); got != tc.str {
			t.Errorf("String() = %q, want %q", got, tc.str)
		}
	}
}
