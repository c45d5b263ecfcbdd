package database

import (
	"fmt"
	"strings"
)

// ItemRepository implements ItemStore against a Postgres connection pool.
type ItemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// InsertItemIfAbsent writes an item row unless its URL already exists.
// Returns true when the row was actually inserted.
func (r *ItemRepository) InsertItemIfAbsent(row ItemInsert) (bool, error) {
	res, err := r.db.Exec(`
		INSERT INTO item (url, feed_url, title, description, content, image, published, author)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (url) DO NOTHING`,
		row.URL, row.FeedURL, row.Title, row.Description, row.Content, row.Image,
		row.Published, row.Author)
	if err != nil {
		return false, fmt.Errorf("failed to insert item %q: %w", row.URL, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for item %q: %w", row.URL, err)
	}
	return affected > 0, nil
}

// UpdateItemContent backfills an item's content column, used by the
// readability-based content extractor to enrich thin RSS/Atom payloads.
func (r *ItemRepository) UpdateItemContent(url, content string) error {
	_, err := r.db.Exec(`UPDATE item SET content = $2 WHERE url = $1`, url, content)
	if err != nil {
		return fmt.Errorf("failed to update content for item %q: %w", url, err)
	}
	return nil
}

// SearchItems runs a prefix-match AND full-text search across title,
// description and content, newest-published-first.
func (r *ItemRepository) SearchItems(query string, limit, offset int) ([]SearchResult, error) {
	tsQuery := toPrefixTSQuery(query)
	if tsQuery == "" {
		return nil, nil
	}

	rows, err := r.db.Query(`
		SELECT i.url, i.feed_url, i.title, i.description, i.content, i.image,
		       i.published, i.author, i.created_at, f.name, f.home_url
		FROM item i
		JOIN feed f ON f.feed_url = i.feed_url
		WHERE to_tsvector('english', coalesce(i.title,'') || ' ' || coalesce(i.description,'') || ' ' || coalesce(i.content,''))
		      @@ to_tsquery('english', $1)
		ORDER BY i.published DESC NULLS LAST
		LIMIT $2 OFFSET $3`, tsQuery, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var sr SearchResult
		if err := rows.Scan(&sr.URL, &sr.FeedURL, &sr.Title, &sr.Description, &sr.Content,
			&sr.Image, &sr.Published, &sr.Author, &sr.CreatedAt, &sr.FeedName, &sr.HomeURL); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		results = append(results, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// toPrefixTSQuery turns free text into a whitespace-split, '&'-joined,
// prefix-matching to_tsquery expression. Returns "" for blank input.
func toPrefixTSQuery(query string) string {
	fields := strings.Fields(strings.TrimSpace(query))
	if len(fields) == 0 {
		return ""
	}

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		cleaned := strings.Map(func(r rune) rune {
			if r == '\'' || r == '\\' || r == ':' || r == '&' || r == '|' {
				return -1
			}
			return r
		}, f)
		if cleaned == "" {
			continue
		}
		terms = append(terms, cleaned+":*")
	}
	if len(terms) == 0 {
		return ""
	}
	return strings.Join(terms, " & ")
}
