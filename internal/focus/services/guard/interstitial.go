package guard

import (
	"net/url"
	"strings"
)

// BlockPageURL builds the interstitial URL for a blocked navigation:
// the base page plus the original URL percent-encoded in the "url"
// query parameter, so restoration can round-trip it.
func BlockPageURL(base, original string) string {
	return base + "?url=" + url.QueryEscape(original)
}

// OriginalURL extracts the original URL back out of an interstitial URL.
// Returns false when the URL is not an interstitial page or carries no
// original.
func OriginalURL(base, blocked string) (string, bool) {
	if base == "" || !strings.HasPrefix(blocked, base) {
		return "", false
	}
	_, query, ok := strings.Cut(blocked, "?")
	if !ok {
		return "", false
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return "", false
	}
	orig := values.Get("url")
	if orig == "" {
		return "", false
	}
	return orig, true
}
