package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulsefeed/pulsefeed/internal/database"
	"github.com/pulsefeed/pulsefeed/internal/estimator"
	"github.com/pulsefeed/pulsefeed/internal/imagefetch"
	"github.com/pulsefeed/pulsefeed/internal/parser"
)

// Processor fetches a feed, estimates its next poll time, and persists its
// feed row and items.
type Processor struct {
	parser       *parser.Parser
	images       *imagefetch.Fetcher
	extractor    *ContentExtractor
	feeds        database.FeedStore
	items        database.ItemStore
	estimatorCfg estimator.Config
}

func NewProcessor(p *parser.Parser, images *imagefetch.Fetcher, extractor *ContentExtractor, feeds database.FeedStore, items database.ItemStore, cfg estimator.Config) *Processor {
	return &Processor{parser: p, images: images, extractor: extractor, feeds: feeds, items: items, estimatorCfg: cfg}
}

// Result summarizes the outcome of a single ProcessFeed call.
type Result struct {
	FinalURL string
	Inserted int
}

// ProcessFeed fetches feedURL, upserts the feed row and inserts any new
// items. If the fetch or parse failed it returns a nil result and the error.
func (p *Processor) ProcessFeed(ctx context.Context, feedURL string, now time.Time) (*Result, error) {
	finalURL, info, items, err := p.parser.Parse(ctx, feedURL)
	if err != nil {
		p.recordFailure(feedURL, now, err)
		return nil, fmt.Errorf("failed to parse feed %q: %w", feedURL, err)
	}

	prior, err := p.feeds.GetFeed(finalURL)
	if err != nil {
		return nil, fmt.Errorf("failed to read prior feed state for %q: %w", finalURL, err)
	}

	var priorRate *float64
	if prior != nil {
		priorRate = prior.PublishRatePerHour
	}

	timestamps := make([]time.Time, 0, len(items))
	for _, it := range items {
		if it.Published != nil {
			timestamps = append(timestamps, *it.Published)
		}
	}

	nextFetchAt, newRate := estimator.Estimate(p.estimatorCfg, now, timestamps, priorRate)

	var lastPublished *time.Time
	for _, it := range items {
		if it.Published == nil {
			continue
		}
		if lastPublished == nil || it.Published.After(*lastPublished) {
			lastPublished = it.Published
		}
	}

	upsert := database.FeedUpsert{
		FeedURL:            finalURL,
		HomeURL:            parser.OrNull(info.HomeURL),
		Name:               parser.OrNull(info.Name),
		Link:               parser.OrNull(info.Link),
		Image:              parser.OrNull(info.Image),
		LastPublished:      lastPublished,
		LastFetched:        now,
		NextFetchAt:        nextFetchAt,
		PublishRatePerHour: newRate,
	}
	if err := p.feeds.UpsertFeed(upsert); err != nil {
		return nil, fmt.Errorf("failed to upsert feed %q: %w", finalURL, err)
	}

	inserted := 0
	for _, it := range items {
		if it.URL == "" {
			continue
		}

		image := it.Image
		if image != "" {
			if dataURI, ok := p.images.Fetch(ctx, image); ok {
				image = dataURI
			} else {
				image = ""
			}
		}

		ok, err := p.items.InsertItemIfAbsent(database.ItemInsert{
			URL:         it.URL,
			FeedURL:     finalURL,
			Title:       parser.OrNull(it.Title),
			Description: parser.OrNull(it.Description),
			Content:     it.Content,
			Image:       parser.OrNull(image),
			Published:   it.Published,
			Author:      parser.OrNull(it.Author),
		})
		if err != nil {
			slog.Warn("failed to insert item", "url", it.URL, "feed", finalURL, "error", err)
			continue
		}
		if ok {
			inserted++
			if needsExtraction(it.Content, it.URL) {
				p.enrichContentAsync(it.URL)
			}
		}
	}

	return &Result{FinalURL: finalURL, Inserted: inserted}, nil
}

// enrichContentAsync backfills a thin item's content from its article page
// without blocking the feed's processing loop on the extra HTTP round trip.
func (p *Processor) enrichContentAsync(itemURL string) {
	if p.extractor == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		content, err := p.extractor.Run(ctx, itemURL)
		if err != nil {
			slog.Debug("content extraction skipped", "url", itemURL, "error", err)
			return
		}
		if err := p.items.UpdateItemContent(itemURL, content); err != nil {
			slog.Warn("failed to persist extracted content", "url", itemURL, "error", err)
		}
	}()
}

// recordFailure advances a previously-known feed's nextFetchAt by
// exponential backoff after a fetch/parse failure. Feeds that have never
// successfully polled have no row to update, so the error is simply
// propagated without side effects.
func (p *Processor) recordFailure(feedURL string, now time.Time, cause error) {
	existing, err := p.feeds.GetFeed(feedURL)
	if err != nil {
		slog.Warn("failed to read feed before recording failure", "url", feedURL, "error", err)
		return
	}
	if existing == nil {
		return
	}

	nextFetchAt := estimator.NextBackoff(p.estimatorCfg, now, existing.ConsecutiveFailures+1)
	if err := p.feeds.RecordFeedFailure(feedURL, now, nextFetchAt, cause.Error()); err != nil {
		slog.Warn("failed to record feed failure", "url", feedURL, "error", err)
	}
}
