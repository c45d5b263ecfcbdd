package feed

import "testing"

func TestNeedsExtraction(t *testing.T) {
	cases := []struct {
		name    string
		content string
		url     string
		want    bool
	}{
		{"empty content with url", "", "https://example.com/a", true},
		{"short content with url", "a bit of text", "https://example.com/a", true},
		{"long content skips extraction", string(make([]byte, 300)), "https://example.com/a", false},
		{"no url never extracts", "", "", false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := needsExtraction(c.content, c.url)
			if got != c.want {
				t.Errorf("needsExtraction(%q, %q) = %v, want %v", c.content, c.url, got, c.want)
			}
		})
	}
}
