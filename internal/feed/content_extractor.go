package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	readability "codeberg.org/readeck/go-readability"
)

// ContentExtractor backfills an item's content by fetching its article
// page and running readability extraction, for feeds whose RSS/Atom
// content field is empty or too short to be useful.
type ContentExtractor struct {
	httpClient *http.Client
	userAgent  string
}

func NewContentExtractor(userAgent string, timeout time.Duration) *ContentExtractor {
	return &ContentExtractor{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  userAgent,
	}
}

// Run fetches articleURL and extracts its main content as HTML.
func (e *ContentExtractor) Run(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %q: %w", articleURL, err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %q: %w", articleURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("non-2xx status %d fetching %q", resp.StatusCode, articleURL)
	}

	article, err := readability.FromReader(resp.Body, resp.Request.URL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content from %q: %w", articleURL, err)
	}
	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from %q", articleURL)
	}

	return article.Content, nil
}

// needsExtraction reports whether an item's parsed content is thin enough
// to be worth backfilling from the article page.
func needsExtraction(content, url string) bool {
	return url != "" && len(content) < 280
}
