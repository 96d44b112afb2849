package domain

import (
	"net/url"
	"strings"
)

// Decision is the pattern-phase outcome for a URL: whether it would be
// blocked while focus is active, and which patterns drove the result.
// It is independent of the clock, so it can be cached per snapshot.
type Decision struct {
	Block     bool
	Pattern   string // block/allow pattern that matched, when any
	Exception string // exception pattern that overrode a block match
}

// Policy holds the compiled pattern lists for one settings snapshot.
type Policy struct {
	Mode       Mode
	Block      []Pattern
	Allow      []Pattern
	Exceptions []Pattern
}

// CompilePolicy compiles a snapshot's pattern lists once.
func CompilePolicy(s Settings) Policy {
	return Policy{
		Mode:       s.Mode,
		Block:      CompilePatterns(s.BlockPatterns),
		Allow:      CompilePatterns(s.AllowPatterns),
		Exceptions: CompilePatterns(s.ExceptionPatterns),
	}
}

// Evaluate computes the blocking decision for a URL, assuming focus is
// active. Unparseable URLs and non-web schemes never block (fail-open).
//
// In block mode a URL blocks when any block pattern matches and no
// exception pattern does. In allow mode anything not explicitly allowed
// blocks.
func (p Policy) Evaluate(rawURL string) Decision {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return Decision{}
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return Decision{}
	}

	if p.Mode == ModeAllow {
		if m, ok := AnyMatch(p.Allow, rawURL); ok {
			return Decision{Block: false, Pattern: m.String()}
		}
		return Decision{Block: true}
	}

	m, ok := AnyMatch(p.Block, rawURL)
	if !ok {
		return Decision{}
	}
	if e, ok := AnyMatch(p.Exceptions, rawURL); ok {
		return Decision{Block: false, Pattern: m.String(), Exception: e.String()}
	}
	return Decision{Block: true, Pattern: m.String()}
}
