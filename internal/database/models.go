package database

import "time"

// Feed is a persisted feed row, keyed by the final (redirect-resolved) URL.
// HomeURL, Name, Link and Image are nullable: the parser nulls out any
// extracted string that came back empty or whitespace-only.
type Feed struct {
	FeedURL             string
	HomeURL             *string
	Name                *string
	Link                *string
	Image               *string
	LastPublished       *time.Time
	LastFetched         *time.Time
	NextFetchAt         *time.Time
	PublishRatePerHour  *float64
	ConsecutiveFailures int
	LastError           string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Item is a persisted feed item, keyed by its article URL. Title,
// Description, Image and Author are nullable for the same reason as Feed's
// string attributes; Content is preserved raw per the parser's extraction
// rules but is never itself required to be present.
type Item struct {
	URL         string
	FeedURL     string
	Title       *string
	Description *string
	Content     string
	Image       *string
	Published   *time.Time
	Author      *string
	CreatedAt   time.Time
}

// FeedUpsert is the write-side payload for upserting a feed row on a
// successful poll. HomeURL, Name, Link and Image are nil when the parser
// extracted nothing for them; a nil value never overwrites an existing
// non-null column on conflict.
type FeedUpsert struct {
	FeedURL            string
	HomeURL            *string
	Name               *string
	Link               *string
	Image              *string
	LastPublished      *time.Time
	LastFetched        time.Time
	NextFetchAt        time.Time
	PublishRatePerHour *float64
}

// ItemInsert is the write-side payload for an insert-or-nothing item write.
type ItemInsert struct {
	URL         string
	FeedURL     string
	Title       *string
	Description *string
	Content     string
	Image       *string
	Published   *time.Time
	Author      *string
}

// SearchResult is a full-text search hit joined with its parent feed's
// metadata.
type SearchResult struct {
	Item
	FeedName *string
	HomeURL  *string
}
