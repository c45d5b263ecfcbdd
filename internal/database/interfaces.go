package database

import "time"

// FeedStore is the persistence contract the Processor and Scheduler depend
// on for feed rows.
type FeedStore interface {
	SelectDueFeeds(now time.Time) ([]Feed, error)
	SelectEarliestFutureFetch(now time.Time) (*time.Time, error)
	GetFeed(feedURL string) (*Feed, error)
	ListFeeds() ([]Feed, error)
	UpsertFeed(row FeedUpsert) error
	RecordFeedFailure(feedURL string, now time.Time, nextFetchAt time.Time, errMsg string) error
	DeleteFeed(feedURL string) error
}

// ItemStore is the persistence contract for feed items and full-text search.
type ItemStore interface {
	InsertItemIfAbsent(row ItemInsert) (bool, error)
	UpdateItemContent(url, content string) error
	SearchItems(query string, limit, offset int) ([]SearchResult, error)
}
