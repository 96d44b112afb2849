package domain

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how the pattern lists are interpreted.
type Mode string

const (
	// ModeBlock blocks URLs matching BlockPatterns (minus exceptions).
	ModeBlock Mode = "block"
	// ModeAllow blocks everything NOT matching AllowPatterns.
	ModeAllow Mode = "allow"
)

// ParseMode converts a string into a Mode. Accepts "block" and "allow",
// case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "block":
		return ModeBlock, nil
	case "allow":
		return ModeAllow, nil
	default:
		return "", fmt.Errorf("unsupported mode: %q", s)
	}
}

// DefaultBreakDuration is the break length (minutes) used when a break
// is requested without an explicit duration and none is configured.
const DefaultBreakDuration = 15

// Settings is the single persisted configuration snapshot the whole
// decision engine reads from. It is replaced wholesale on external
// change notifications, never mutated field by field.
//
// BreakUntil is milliseconds since epoch; zero means no active break.
// Pattern lists preserve insertion order for display only; matching is
// unordered any-match.
type Settings struct {
	Mode              Mode                  `json:"mode"`
	BlockPatterns     []string              `json:"blockPatterns"`
	AllowPatterns     []string              `json:"allowPatterns"`
	ExceptionPatterns []string              `json:"exceptionPatterns"`
	Sessions          []Session             `json:"sessions"`
	Immediate         bool                  `json:"immediate"`
	BreakUntil        int64                 `json:"breakUntil"`
	BreakDuration     int                   `json:"breakDuration"`
	ResumeURL         string                `json:"resumeUrl"`
	SessionBreakUsage map[string]BreakUsage `json:"sessionBreakUsage"`
}

// DefaultSettings returns the out-of-the-box configuration: block mode
// with empty lists and no sessions.
func DefaultSettings() Settings {
	return Settings{
		Mode:              ModeBlock,
		BlockPatterns:     []string{},
		AllowPatterns:     []string{},
		ExceptionPatterns: []string{},
		Sessions:          []Session{},
		BreakDuration:     DefaultBreakDuration,
		SessionBreakUsage: map[string]BreakUsage{},
	}
}

// Normalize repairs an inconsistent snapshot in place: unknown mode
// falls back to block, sessions get ids and clamped allowances, stale
// usage records are pruned, and a non-positive break duration reverts to
// the default. Repair, not rejection. Returns true when anything changed.
func (s *Settings) Normalize() bool {
	changed := false
	if _, err := ParseMode(string(s.Mode)); err != nil {
		s.Mode = ModeBlock
		changed = true
	}
	if s.SessionBreakUsage == nil {
		s.SessionBreakUsage = map[string]BreakUsage{}
		changed = true
	}
	for i := range s.Sessions {
		if s.Sessions[i].Normalize() {
			changed = true
		}
	}
	if PruneUsage(s.SessionBreakUsage, s.Sessions) {
		changed = true
	}
	if s.BreakDuration <= 0 {
		s.BreakDuration = DefaultBreakDuration
		changed = true
	}
	return changed
}

// Clone returns a deep copy so a snapshot can be handed out without
// aliasing the guard's working state.
func (s Settings) Clone() Settings {
	out := s
	out.BlockPatterns = append([]string(nil), s.BlockPatterns...)
	out.AllowPatterns = append([]string(nil), s.AllowPatterns...)
	out.ExceptionPatterns = append([]string(nil), s.ExceptionPatterns...)
	out.Sessions = make([]Session, len(s.Sessions))
	for i, ses := range s.Sessions {
		out.Sessions[i] = ses
		out.Sessions[i].Days = append([]int(nil), ses.Days...)
	}
	out.SessionBreakUsage = make(map[string]BreakUsage, len(s.SessionBreakUsage))
	for k, v := range s.SessionBreakUsage {
		out.SessionBreakUsage[k] = v
	}
	return out
}

// BreakActive reports whether a temporary break suppresses focus at now.
func (s Settings) BreakActive(now time.Time) bool {
	return s.BreakUntil != 0 && now.UnixMilli() < s.BreakUntil
}
