package guard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"focusgate/internal/focus/services/guard"
)

func TestInterstitialRoundTrip(t *testing.T) {
	urls := []string{
		"https://reddit.com/r/all",
		"https://example.com/search?q=a+b&lang=en",
		"https://example.com/path#fragment",
		"https://example.com/percent%20encoded",
	}
	for _, orig := range urls {
		blocked := guard.BlockPageURL(blockPage, orig)
		got, ok := guard.OriginalURL(blockPage, blocked)
		assert.True(t, ok, "round trip failed for %q", orig)
		assert.Equal(t, orig, got)
	}
}

func TestOriginalURL_NonInterstitial(t *testing.T) {
	cases := []struct {
		name string
		url  string
	}{
		{"ordinary page", "https://reddit.com/r/all"},
		{"interstitial without query", blockPage},
		{"interstitial without url param", blockPage + "?foo=bar"},
		{"different base", "focusgate://other?url=https%3A%2F%2Fx.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := guard.OriginalURL(blockPage, tc.url)
			assert.False(t, ok)
		})
	}
}

func TestOriginalURL_EmptyBase(t *testing.T) {
	_, ok := guard.OriginalURL("", "anything?url=x")
	assert.False(t, ok)
}
