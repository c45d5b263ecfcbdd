package parser

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

// Parser fetches and normalizes RSS/Atom feeds.
type Parser struct {
	httpClient   *http.Client
	gofeedParser *gofeed.Parser
	userAgent    string
}

func New(userAgent string, timeout time.Duration) *Parser {
	return &Parser{
		httpClient:   &http.Client{Timeout: timeout},
		gofeedParser: gofeed.NewParser(),
		userAgent:    userAgent,
	}
}

// Parse fetches feedURL, following redirects, and returns the
// redirect-resolved final URL alongside normalized feed metadata and items.
// On a request, network, non-2xx status or parse failure it returns a nil
// info and a non-nil error describing what went wrong.
func (p *Parser) Parse(ctx context.Context, feedURL string) (string, *FeedInfo, []Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to build request for %q: %w", feedURL, err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to fetch %q: %w", feedURL, err)
	}
	defer resp.Body.Close()

	finalURL := feedURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, nil, fmt.Errorf("non-2xx status %d fetching %q", resp.StatusCode, feedURL)
	}

	feed, err := p.gofeedParser.Parse(resp.Body)
	if err != nil {
		return "", nil, nil, fmt.Errorf("failed to parse feed %q: %w", feedURL, err)
	}

	info := &FeedInfo{
		Name:    normalize(feed.Title),
		HomeURL: feed.Link,
		Link:    feed.Link,
	}
	if feed.Image != nil {
		info.Image = feed.Image.URL
	}

	items := make([]Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		items = append(items, p.normalizeItem(it))
	}

	slog.Debug("parsed feed", "url", finalURL, "title", info.Name, "items", len(items))
	return finalURL, info, items, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Item {
	out := Item{
		URL:         item.Link,
		Title:       normalize(item.Title),
		Description: normalize(item.Description),
		Content:     item.Content,
		Image:       bestImage(item),
	}

	if item.Author != nil {
		out.Author = item.Author.Name
	} else if dc, ok := item.Extensions["dc"]; ok {
		if creators, ok := dc["creator"]; ok && len(creators) > 0 {
			out.Author = creators[0].Value
		}
	}

	if item.PublishedParsed != nil {
		out.Published = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		out.Published = item.UpdatedParsed
	}

	return out
}
