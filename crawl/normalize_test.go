package crawl

import "testing"

func TestNormalizeURL_LowercaseSchemeAndHost(t *testing.T) {
	// WHAT: Scheme and host are lowercased during normalization.
	// WHY: DNS is case-insensitive; HTTPS://Example.COM = https://example.com.
	got, err := NormalizeURL("HTTPS://Example.COM/page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/page" {
		t.Errorf("got %q, want %q", got, "https://example.com/page")
	}
}

func TestNormalizeURL_RemoveTrailingSlash(t *testing.T) {
	// WHAT: Trailing slash is removed from non-root paths.
	// WHY: /page/ and /page are the same resource and must dedup together.
	got, err := NormalizeURL("https://example.com/page/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/page" {
		t.Errorf("got %q, want %q", got, "https://example.com/page")
	}
}

func TestNormalizeURL_KeepRootSlash(t *testing.T) {
	// WHAT: Bare host and root path normalize to the same value.
	// WHY: https://example.com/ and https://example.com are the same resource.
	cases := []struct {
		input string
		want  string
	}{
		{"https://example.com/", "https://example.com"},
		{"https://example.com", "https://example.com"},
	}
	for _, tc := range cases {
		got, err := NormalizeURL(tc.input)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tc.input, err)
		}
		if got != tc.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestNormalizeURL_RemoveFragment(t *testing.T) {
	// WHAT: Fragment (#section) is removed.
	// WHY: Fragments are client-side only; /doc#a and /doc#b are one page.
	got, err := NormalizeURL("http://example.com/doc#section-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "http://example.com/doc" {
		t.Errorf("got %q, want %q", got, "http://example.com/doc")
	}
}

func TestNormalizeURL_SortQueryParams(t *testing.T) {
	// WHAT: Query parameters are sorted by key.
	// WHY: ?a=1&b=2 and ?b=2&a=1 fetch the same resource.
	got, err := NormalizeURL("https://example.com/search?z=3&a=1&m=2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "https://example.com/search?a=1&m=2&z=3" {
		t.Errorf("got %q, want %q", got, "https://example.com/search?a=1&m=2&z=3")
	}
}

func TestNormalizeURL_RejectNonHTTP(t *testing.T) {
	// WHAT: Non-http(s) schemes and malformed URLs are rejected.
	// WHY: The crawler can only fetch http/https; everything else is
	// invalid input, not a silently-skipped record.
	cases := []string{
		"",
		"   ",
		"ftp://example.com/file",
		"mailto:someone@example.com",
		"javascript:alert(1)",
		"example.com/no-scheme",
		"://missing-scheme",
	}
	for _, input := range cases {
		if _, err := NormalizeURL(input); err == nil {
			t.Errorf("NormalizeURL(%q) should return error", input)
		}
	}
}

func TestNormalizeURL_PreserveScheme(t *testing.T) {
	// WHAT: http and https normalize to different URLs.
	// WHY: Some servers don't support HTTPS; we must not silently upgrade.
	httpURL, err := NormalizeURL("http://example.com/page")
	if err != nil {
		t.Fatal(err)
	}
	httpsURL, err := NormalizeURL("https://example.com/page")
	if err != nil {
		t.Fatal(err)
	}
	if httpURL == httpsURL {
		t.Errorf("http and https should stay distinct: %q vs %q", httpURL, httpsURL)
	}
}
