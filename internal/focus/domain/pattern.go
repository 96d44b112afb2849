package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// Pattern is a compiled URL pattern. Three shapes are supported:
//
//   - full-URL: the pattern contains "://" and is matched as a
//     case-sensitive prefix against the entire URL string
//   - domain: "example.com" matches the host exactly or any subdomain
//   - domain+path: "example.com/r/golang" additionally requires the URL
//     path to start with the pattern path
//
// '*' is the only wildcard and expands to "any sequence of characters";
// every other regex metacharacter is matched literally.
type Pattern struct {
	raw string

	// fullRe is set for "://" patterns; anchored at the start only.
	fullRe *regexp.Regexp

	// domain is the literal domain portion when it contains no wildcard.
	domain string
	// domainRe is set when the domain portion contains '*'; anchored at
	// both ends and case-insensitive.
	domainRe *regexp.Regexp
	// pathRe is set when a path portion is present; anchored at the
	// start only.
	pathRe *regexp.Regexp
}

// wildcardExpr converts a wildcard pattern into a regular expression
// source string. All metacharacters except '*' are escaped.
func wildcardExpr(pattern string, anchorEnd bool) string {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	expr := "^" + strings.Join(parts, ".*")
	if anchorEnd {
		expr += "$"
	}
	return expr
}

// CompilePattern parses a pattern string into its matchable form.
// Compilation never fails: escaping guarantees a valid expression.
func CompilePattern(raw string) Pattern {
	p := Pattern{raw: raw}

	if strings.Contains(raw, "://") {
		p.fullRe = regexp.MustCompile(wildcardExpr(raw, false))
		return p
	}

	domain := raw
	path := ""
	if idx := strings.Index(raw, "/"); idx != -1 {
		domain = raw[:idx]
		path = raw[idx:]
	}

	if strings.Contains(domain, "*") {
		p.domainRe = regexp.MustCompile("(?i)" + wildcardExpr(domain, true))
	} else {
		p.domain = domain
	}
	if path != "" {
		p.pathRe = regexp.MustCompile(wildcardExpr(path, false))
	}
	return p
}

// CompilePatterns compiles a pattern list, preserving order.
func CompilePatterns(raw []string) []Pattern {
	out := make([]Pattern, 0, len(raw))
	for _, r := range raw {
		out = append(out, CompilePattern(r))
	}
	return out
}

// String returns the original pattern text.
func (p Pattern) String() string { return p.raw }

// Matches reports whether the pattern matches the given URL. URLs that
// do not parse as absolute URLs never match.
func (p Pattern) Matches(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return false
	}
	return p.matches(u, rawURL)
}

func (p Pattern) matches(u *url.URL, rawURL string) bool {
	if p.fullRe != nil {
		return p.fullRe.MatchString(rawURL)
	}

	host := strings.ToLower(u.Hostname())
	if p.domainRe != nil {
		if !p.domainRe.MatchString(host) {
			return false
		}
	} else {
		if host != p.domain && !strings.HasSuffix(host, "."+p.domain) {
			return false
		}
	}

	if p.pathRe == nil {
		return true
	}
	return p.pathRe.MatchString(u.EscapedPath())
}

// AnyMatch reports whether any pattern in the list matches the URL.
// The URL is parsed once; list order carries no precedence.
func AnyMatch(patterns []Pattern, rawURL string) (Pattern, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return Pattern{}, false
	}
	for _, p := range patterns {
		if p.matches(u, rawURL) {
			return p, true
		}
	}
	return Pattern{}, false
}
