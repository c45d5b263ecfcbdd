package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pulsefeed/pulsefeed/internal/database"
	"github.com/pulsefeed/pulsefeed/internal/estimator"
	"github.com/pulsefeed/pulsefeed/internal/imagefetch"
	"github.com/pulsefeed/pulsefeed/internal/parser"
)

type fakeFeedStore struct {
	feeds    map[string]database.Feed
	upserts  []database.FeedUpsert
	failures []string
}

func newFakeFeedStore() *fakeFeedStore {
	return &fakeFeedStore{feeds: map[string]database.Feed{}}
}

func (s *fakeFeedStore) SelectDueFeeds(now time.Time) ([]database.Feed, error) { return nil, nil }
func (s *fakeFeedStore) SelectEarliestFutureFetch(now time.Time) (*time.Time, error) {
	return nil, nil
}
func (s *fakeFeedStore) GetFeed(feedURL string) (*database.Feed, error) {
	f, ok := s.feeds[feedURL]
	if !ok {
		return nil, nil
	}
	return &f, nil
}
func (s *fakeFeedStore) ListFeeds() ([]database.Feed, error) { return nil, nil }
func (s *fakeFeedStore) UpsertFeed(row database.FeedUpsert) error {
	s.upserts = append(s.upserts, row)
	s.feeds[row.FeedURL] = database.Feed{
		FeedURL:            row.FeedURL,
		Name:               row.Name,
		PublishRatePerHour: row.PublishRatePerHour,
		NextFetchAt:        &row.NextFetchAt,
	}
	return nil
}
func (s *fakeFeedStore) RecordFeedFailure(feedURL string, now time.Time, nextFetchAt time.Time, errMsg string) error {
	s.failures = append(s.failures, feedURL)
	return nil
}
func (s *fakeFeedStore) DeleteFeed(feedURL string) error { return nil }

type fakeItemStore struct {
	inserted []database.ItemInsert
}

func (s *fakeItemStore) InsertItemIfAbsent(row database.ItemInsert) (bool, error) {
	for _, existing := range s.inserted {
		if existing.URL == row.URL {
			return false, nil
		}
	}
	s.inserted = append(s.inserted, row)
	return true, nil
}

func (s *fakeItemStore) SearchItems(query string, limit, offset int) ([]database.SearchResult, error) {
	return nil, nil
}

func (s *fakeItemStore) UpdateItemContent(url, content string) error { return nil }

const sampleRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Example Feed</title>
<link>https://example.com</link>
<item>
  <title>First post</title>
  <link>https://example.com/1</link>
  <description>hello world</description>
  <pubDate>Mon, 02 Jan 2006 15:04:05 MST</pubDate>
</item>
</channel></rss>`

func TestProcessFeedInsertsNewItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	p := parser.New("test-agent", 5*time.Second)
	images := imagefetch.New(5*time.Second, 1000)
	feeds := newFakeFeedStore()
	items := &fakeItemStore{}

	proc := NewProcessor(p, images, nil, feeds, items, estimator.DefaultConfig())

	result, err := proc.ProcessFeed(context.Background(), srv.URL, time.Now())
	if err != nil {
		t.Fatalf("ProcessFeed() error = %v", err)
	}
	if result.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", result.Inserted)
	}
	if len(feeds.upserts) != 1 {
		t.Fatalf("expected 1 feed upsert, got %d", len(feeds.upserts))
	}
}

const sparseRSS = `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Example Feed</title>
<link>https://example.com</link>
<item>
  <link>https://example.com/1</link>
  <pubDate>Mon, 02 Jan 2006 15:04:05 MST</pubDate>
</item>
</channel></rss>`

func TestProcessFeedNullsEmptyStrings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sparseRSS))
	}))
	defer srv.Close()

	p := parser.New("test-agent", 5*time.Second)
	images := imagefetch.New(5*time.Second, 1000)
	feeds := newFakeFeedStore()
	items := &fakeItemStore{}
	proc := NewProcessor(p, images, nil, feeds, items, estimator.DefaultConfig())

	if _, err := proc.ProcessFeed(context.Background(), srv.URL, time.Now()); err != nil {
		t.Fatalf("ProcessFeed() error = %v", err)
	}

	if len(feeds.upserts) != 1 {
		t.Fatalf("expected 1 feed upsert, got %d", len(feeds.upserts))
	}
	if feeds.upserts[0].Image != nil {
		t.Errorf("expected nil Image for a feed with no image, got %v", *feeds.upserts[0].Image)
	}

	if len(items.inserted) != 1 {
		t.Fatalf("expected 1 item insert, got %d", len(items.inserted))
	}
	got := items.inserted[0]
	if got.Title != nil {
		t.Errorf("expected nil Title for an item with no title, got %v", *got.Title)
	}
	if got.Description != nil {
		t.Errorf("expected nil Description for an item with no description, got %v", *got.Description)
	}
	if got.Author != nil {
		t.Errorf("expected nil Author for an item with no author, got %v", *got.Author)
	}
	if got.Image != nil {
		t.Errorf("expected nil Image for an item with no image, got %v", *got.Image)
	}
}

func TestProcessFeedIsIdempotentOnItemSet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	p := parser.New("test-agent", 5*time.Second)
	images := imagefetch.New(5*time.Second, 1000)
	feeds := newFakeFeedStore()
	items := &fakeItemStore{}
	proc := NewProcessor(p, images, nil, feeds, items, estimator.DefaultConfig())

	ctx := context.Background()
	first, err := proc.ProcessFeed(ctx, srv.URL, time.Now())
	if err != nil {
		t.Fatalf("first ProcessFeed() error = %v", err)
	}
	second, err := proc.ProcessFeed(ctx, srv.URL, time.Now())
	if err != nil {
		t.Fatalf("second ProcessFeed() error = %v", err)
	}

	if first.Inserted != 1 {
		t.Errorf("first Inserted = %d, want 1", first.Inserted)
	}
	if second.Inserted != 0 {
		t.Errorf("second Inserted = %d, want 0 (already present)", second.Inserted)
	}
}

func TestProcessFeedRecordsFailureForKnownFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := parser.New("test-agent", 5*time.Second)
	images := imagefetch.New(5*time.Second, 1000)
	feeds := newFakeFeedStore()
	feeds.feeds[srv.URL] = database.Feed{FeedURL: srv.URL, ConsecutiveFailures: 2}
	items := &fakeItemStore{}
	proc := NewProcessor(p, images, nil, feeds, items, estimator.DefaultConfig())

	_, err := proc.ProcessFeed(context.Background(), srv.URL, time.Now())
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
	if len(feeds.failures) != 1 {
		t.Errorf("expected RecordFeedFailure to be called once, got %d calls", len(feeds.failures))
	}
}

func TestProcessFeedUnknownFeedFailureIsNotRecorded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := parser.New("test-agent", 5*time.Second)
	images := imagefetch.New(5*time.Second, 1000)
	feeds := newFakeFeedStore()
	items := &fakeItemStore{}
	proc := NewProcessor(p, images, nil, feeds, items, estimator.DefaultConfig())

	_, err := proc.ProcessFeed(context.Background(), srv.URL, time.Now())
	if err == nil {
		t.Fatal("expected an error for a 500 response")
	}
	if len(feeds.failures) != 0 {
		t.Errorf("expected no RecordFeedFailure calls for a never-seen feed, got %d", len(feeds.failures))
	}
}
