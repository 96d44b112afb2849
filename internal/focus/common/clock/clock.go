package clock

import "time"

// Clock abstracts wall-clock access so every time-based rule
// (schedule windows, break expiry, quota day rollover) is testable.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

// MockClock is a manually advanced clock for tests.
type MockClock struct {
	CurrentTime time.Time
}

func (c *MockClock) Now() time.Time {
	return c.CurrentTime
}

func (c *MockClock) Advance(d time.Duration) {
	c.CurrentTime = c.CurrentTime.Add(d)
}

// Set jumps the clock to an absolute instant.
func (c *MockClock) Set(t time.Time) {
	c.CurrentTime = t
}
