package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxBreaksPerDay caps how many user-requested breaks a single session
// may grant per calendar day, regardless of configuration.
const MaxBreaksPerDay = 3

// Session is a recurring focus window during which blocking is enforced.
//
// Days uses 0=Sunday..6=Saturday. Start and End are 24-hour "HH:MM"
// strings; an invalid or missing value makes the session never match.
// Break is the automatic break length (minutes) granted when the session
// ends; BreaksAllowed is the per-day cap on user-requested breaks while
// this session is active.
type Session struct {
	ID            string `json:"id"`
	Days          []int  `json:"days"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Break         int    `json:"break"`
	BreaksAllowed int    `json:"breaksAllowed"`
}

// parseClock parses a 24-hour "HH:MM" string into minutes since
// midnight. Returns false for anything malformed or out of range.
func parseClock(s string) (int, bool) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// Within reports whether now falls inside the session window.
// Granularity is whole minutes: the start is inclusive, the end
// exclusive. Windows where start > end span midnight.
func (s Session) Within(now time.Time) bool {
	if !s.onDay(now.Weekday()) {
		return false
	}
	startM, ok := parseClock(s.Start)
	if !ok {
		return false
	}
	endM, ok := parseClock(s.End)
	if !ok {
		return false
	}
	nowM := now.Hour()*60 + now.Minute()
	if startM <= endM {
		return nowM >= startM && nowM < endM
	}
	// overnight window
	return nowM >= startM || nowM < endM
}

func (s Session) onDay(d time.Weekday) bool {
	for _, day := range s.Days {
		if day == int(d) {
			return true
		}
	}
	return false
}

// EndInstant returns the session's end time on now's calendar day.
// Returns false when End does not parse.
func (s Session) EndInstant(now time.Time) (time.Time, bool) {
	endM, ok := parseClock(s.End)
	if !ok {
		return time.Time{}, false
	}
	end := time.Date(now.Year(), now.Month(), now.Day(), endM/60, endM%60, 0, 0, now.Location())
	return end, true
}

// Normalize repairs a session loaded from storage: a missing id gets a
// generated one and BreaksAllowed is clamped into [0, MaxBreaksPerDay].
// Returns true when anything changed.
func (s *Session) Normalize() bool {
	changed := false
	if s.ID == "" {
		s.ID = "ses-" + uuid.NewString()
		changed = true
	}
	if s.BreaksAllowed < 0 {
		s.BreaksAllowed = 0
		changed = true
	} else if s.BreaksAllowed > MaxBreaksPerDay {
		s.BreaksAllowed = MaxBreaksPerDay
		changed = true
	}
	return changed
}

// ActiveSession returns the first session (by list order) whose window
// contains now, or nil when none matches. First match wins; overlapping
// sessions are not resolved beyond list order.
func ActiveSession(sessions []Session, now time.Time) *Session {
	for i := range sessions {
		if sessions[i].Within(now) {
			return &sessions[i]
		}
	}
	return nil
}
