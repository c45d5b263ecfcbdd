package database

import (
	"database/sql"
	"fmt"
	"time"
)

// FeedRepository implements FeedStore against a Postgres connection pool.
type FeedRepository struct {
	db *DB
}

func NewFeedRepository(db *DB) *FeedRepository {
	return &FeedRepository{db: db}
}

// SelectDueFeeds returns every feed whose next_fetch_at is null or has
// already passed, earliest-first with nulls sorted first.
func (r *FeedRepository) SelectDueFeeds(now time.Time) ([]Feed, error) {
	rows, err := r.db.Query(`
		SELECT feed_url, home_url, name, link, image, last_published, last_fetched,
		       next_fetch_at, publish_rate_per_hour, consecutive_failures, last_error,
		       created_at, updated_at
		FROM feed
		WHERE next_fetch_at IS NULL OR next_fetch_at <= $1
		ORDER BY next_fetch_at ASC NULLS FIRST`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to select due feeds: %w", err)
	}
	defer rows.Close()

	return scanFeeds(rows)
}

// SelectEarliestFutureFetch returns the next_fetch_at of the soonest feed
// that is not yet due, or nil if every feed is currently due.
func (r *FeedRepository) SelectEarliestFutureFetch(now time.Time) (*time.Time, error) {
	var t time.Time
	err := r.db.QueryRow(`
		SELECT next_fetch_at FROM feed
		WHERE next_fetch_at > $1
		ORDER BY next_fetch_at ASC LIMIT 1`, now).Scan(&t)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select earliest future fetch: %w", err)
	}
	return &t, nil
}

func (r *FeedRepository) GetFeed(feedURL string) (*Feed, error) {
	row := r.db.QueryRow(`
		SELECT feed_url, home_url, name, link, image, last_published, last_fetched,
		       next_fetch_at, publish_rate_per_hour, consecutive_failures, last_error,
		       created_at, updated_at
		FROM feed WHERE feed_url = $1`, feedURL)

	f, err := scanFeed(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feed %q: %w", feedURL, err)
	}
	return f, nil
}

func (r *FeedRepository) ListFeeds() ([]Feed, error) {
	rows, err := r.db.Query(`
		SELECT feed_url, home_url, name, link, image, last_published, last_fetched,
		       next_fetch_at, publish_rate_per_hour, consecutive_failures, last_error,
		       created_at, updated_at
		FROM feed ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	return scanFeeds(rows)
}

// UpsertFeed writes a feed row on a successful poll, clearing any prior
// failure bookkeeping. A null/empty home_url, name, link or image never
// clobbers a previously-stored value: a transient parse hiccup that yields
// nothing for one of these columns leaves the prior good metadata in place.
func (r *FeedRepository) UpsertFeed(row FeedUpsert) error {
	_, err := r.db.Exec(`
		INSERT INTO feed (feed_url, home_url, name, link, image, last_published,
		                   last_fetched, next_fetch_at, publish_rate_per_hour,
		                   consecutive_failures, last_error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, '', now())
		ON CONFLICT (feed_url) DO UPDATE SET
			home_url              = COALESCE(NULLIF(EXCLUDED.home_url, ''), feed.home_url),
			name                  = COALESCE(NULLIF(EXCLUDED.name, ''), feed.name),
			link                  = COALESCE(NULLIF(EXCLUDED.link, ''), feed.link),
			image                 = COALESCE(NULLIF(EXCLUDED.image, ''), feed.image),
			last_published        = EXCLUDED.last_published,
			last_fetched          = EXCLUDED.last_fetched,
			next_fetch_at         = EXCLUDED.next_fetch_at,
			publish_rate_per_hour = EXCLUDED.publish_rate_per_hour,
			consecutive_failures  = 0,
			last_error            = '',
			updated_at            = now()`,
		row.FeedURL, row.HomeURL, row.Name, row.Link, row.Image, row.LastPublished,
		row.LastFetched, row.NextFetchAt, row.PublishRatePerHour)
	if err != nil {
		return fmt.Errorf("failed to upsert feed %q: %w", row.FeedURL, err)
	}
	return nil
}

// RecordFeedFailure bumps consecutive_failures and reschedules the feed
// without touching its publish rate estimate.
func (r *FeedRepository) RecordFeedFailure(feedURL string, now time.Time, nextFetchAt time.Time, errMsg string) error {
	_, err := r.db.Exec(`
		UPDATE feed SET
			last_fetched         = $2,
			next_fetch_at        = $3,
			consecutive_failures = consecutive_failures + 1,
			last_error           = $4,
			updated_at           = now()
		WHERE feed_url = $1`, feedURL, now, nextFetchAt, errMsg)
	if err != nil {
		return fmt.Errorf("failed to record failure for feed %q: %w", feedURL, err)
	}
	return nil
}

func (r *FeedRepository) DeleteFeed(feedURL string) error {
	_, err := r.db.Exec(`DELETE FROM feed WHERE feed_url = $1`, feedURL)
	if err != nil {
		return fmt.Errorf("failed to delete feed %q: %w", feedURL, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFeed(row rowScanner) (*Feed, error) {
	var f Feed
	err := row.Scan(
		&f.FeedURL, &f.HomeURL, &f.Name, &f.Link, &f.Image,
		&f.LastPublished, &f.LastFetched, &f.NextFetchAt, &f.PublishRatePerHour,
		&f.ConsecutiveFailures, &f.LastError, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func scanFeeds(rows *sql.Rows) ([]Feed, error) {
	var feeds []Feed
	for rows.Next() {
		f, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed row: %w", err)
		}
		feeds = append(feeds, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return feeds, nil
}
