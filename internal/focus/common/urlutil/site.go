package urlutil

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// CanonicalHost lowercases a hostname and strips any trailing dots.
func CanonicalHost(host string) string {
	host = strings.TrimSpace(host)
	host = strings.ToLower(host)
	for strings.HasSuffix(host, ".") {
		host = strings.TrimSuffix(host, ".")
	}
	return host
}

// Site reduces an absolute URL to its registrable domain (eTLD+1), the
// aggregation key for per-site usage. Hosts with no registrable domain
// (localhost, raw IPs) fall back to the canonical hostname. Returns ""
// when the URL does not parse as an absolute URL with a host.
func Site(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Hostname() == "" {
		return ""
	}
	host := CanonicalHost(u.Hostname())
	// IP literals have no registrable domain; the suffix list would
	// mangle them into something like "1.1".
	if net.ParseIP(host) != nil {
		return host
	}
	apex, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return apex
}
