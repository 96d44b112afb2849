package domain

import "testing"

func TestPattern_DomainMatching(t *testing.T) {
	cases := []struct {
		name    string
		pattern string
		url     string
		want    bool
	}{
		{"exact host", "reddit.com", "https://reddit.com/", true},
		{"subdomain", "reddit.com", "https://old.reddit.com/front", true},
		{"deep subdomain", "reddit.com", "https://a.b.reddit.com/", true},
		{"suffix but not subdomain", "reddit.com", "https://notreddit.com/", false},
		{"different host", "reddit.com", "https://example.com/", false},
		{"host uppercase in url", "reddit.com", "https://REDDIT.com/", true},
		{"www prefix", "example.com", "http://www.example.com/page", true},
		{"unparseable url", "reddit.com", "://nope", false},
		{"relative url", "reddit.com", "/just/a/path", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := CompilePattern(tc.pattern)
			if got := p.Matches(tc.url); got != tc.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tc.pattern, tc.url, got, tc.want)
			}
		})
	}
}

func TestPattern_DomainWithPath(t *testing.T) {
	cases := []struct {
		pattern string
		url     string
		want    bool
	}{
		{"reddit.com/r/golang", "https://reddit.com/r/golang", true},
		{"reddit.com/r/golang", "https://reddit.com/r/golang/comments/1", true},
		{"reddit.com/r/golang", "https://reddit.com/r/rust", false},
		{"reddit.com/r/golang", "https://example.com/r/golang", false},
		// path applies to subdomains too
		{"reddit.com/r/golang", "https://old.reddit.com/r/golang/top", true},
	}

	for _, tc := range cases {
		p := CompilePattern(tc.pattern)
		if got := p.Matches(tc.url); got != tc.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tc.pattern, tc.url, got, tc.want)
		}
	}
}

func TestPattern_Wildcards(t *testing.T) {
	cases := []struct {
		pattern string
		url     string
		want    bool
	}{
		// wildcard domain, anchored at both ends, case-insensitive
		{"*.reddit.com", "https://old.reddit.com/", true},
		{"*.reddit.com", "https://reddit.com/", false},
		{"red*.com", "https://reddit.com/", true},
		{"red*.com", "https://reddit.org/", false},
		// wildcard path, prefix-anchored
		{"reddit.com/r/*/comments/", "https://reddit.com/r/test/comments/1", true},
		{"reddit.com/r/*/comments/", "https://reddit.com/r/test/top", false},
		// full-URL patterns: prefix match, case-sensitive
		{"https://reddit.com/*", "https://reddit.com/anything", true},
		{"https://reddit.com/r/*/new", "https://reddit.com/r/golang/new", true},
		{"https://reddit.com/", "http://reddit.com/", false},
		{"HTTPS://reddit.com/", "https://reddit.com/", false},
	}

	for _, tc := range cases {
		p := CompilePattern(tc.pattern)
		if got := p.Matches(tc.url); got != tc.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tc.pattern, tc.url, got, tc.want)
		}
	}
}

func TestPattern_MetacharactersAreLiteral(t *testing.T) {
	// a dot in the pattern must not act as a regex wildcard
	p := CompilePattern("*.reddit.com")
	if p.Matches("https://xxredditxcom/") {
		t.Error("dot matched as regex metacharacter")
	}

	// regex metachars in paths are literal text
	p = CompilePattern("example.com/a+b(c)")
	if !p.Matches("https://example.com/a+b(c)/d") {
		t.Error("literal metacharacters in path should match themselves")
	}
	if p.Matches("https://example.com/aab") {
		t.Error("'+' must not act as a regex quantifier")
	}
}

func TestAnyMatch(t *testing.T) {
	patterns := CompilePatterns([]string{"news.ycombinator.com", "reddit.com"})

	m, ok := AnyMatch(patterns, "https://reddit.com/r/golang")
	if !ok {
		t.Fatal("expected a match")
	}
	if m.String() != "reddit.com" {
		t.Errorf("matched pattern = %q, want reddit.com", m.String())
	}

	if _, ok := AnyMatch(patterns, "https://example.com/"); ok {
		t.Error("expected no match")
	}
	if _, ok := AnyMatch(patterns, "not a url"); ok {
		t.Error("unparseable URL must never match")
	}
}
