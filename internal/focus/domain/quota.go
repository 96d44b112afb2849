package domain

import "time"

// BreakUsage is the per-session, per-day break consumption record.
// Key holds the calendar date the counter belongs to; a stored record
// from an earlier day resets to zero before any check.
type BreakUsage struct {
	Key  string `json:"key"`
	Used int    `json:"used"`
}

// DateKey formats an instant as a local calendar date, "YYYY-MM-DD".
func DateKey(now time.Time) string {
	return now.Format("2006-01-02")
}

// BreakAllowance returns the session's effective per-day break cap,
// clamped into [0, MaxBreaksPerDay].
func (s Session) BreakAllowance() int {
	if s.BreaksAllowed < 0 {
		return 0
	}
	if s.BreaksAllowed > MaxBreaksPerDay {
		return MaxBreaksPerDay
	}
	return s.BreaksAllowed
}

// usageToday resolves the session's usage record for now's calendar day,
// treating a record from another day as zero.
func usageToday(s Session, usage map[string]BreakUsage, now time.Time) BreakUsage {
	key := DateKey(now)
	u, ok := usage[s.ID]
	if !ok || u.Key != key {
		return BreakUsage{Key: key}
	}
	return u
}

// CanTakeBreak reports whether a user-requested break is still permitted
// for the session today. An allowance of zero always rejects.
func CanTakeBreak(s Session, usage map[string]BreakUsage, now time.Time) bool {
	allowed := s.BreakAllowance()
	if allowed == 0 {
		return false
	}
	return usageToday(s, usage, now).Used < allowed
}

// ConsumeBreak records one break against the session's daily quota.
// Returns false, without mutating usage, when the quota is exhausted.
func ConsumeBreak(s Session, usage map[string]BreakUsage, now time.Time) bool {
	if !CanTakeBreak(s, usage, now) {
		return false
	}
	u := usageToday(s, usage, now)
	u.Used++
	usage[s.ID] = u
	return true
}

// PruneUsage drops usage records whose session id no longer exists,
// bounding storage growth when sessions are deleted. Returns true when
// anything was removed.
func PruneUsage(usage map[string]BreakUsage, sessions []Session) bool {
	valid := make(map[string]struct{}, len(sessions))
	for _, s := range sessions {
		valid[s.ID] = struct{}{}
	}
	changed := false
	for id := range usage {
		if _, ok := valid[id]; !ok {
			delete(usage, id)
			changed = true
		}
	}
	return changed
}
