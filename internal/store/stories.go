package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/globaltravelreport/contentbot/internal/story"
)

const storyColumns = `identity_key, slug, title, body, excerpt, category, country, tags,
	image_url, image_alt, image_attribution_name, image_attribution_url,
	source_url, guid, feed_url, content_hash, word_count, rewritten, quality,
	original_published_at, first_seen_at, published_at, status`

// InsertPending stores a new story in the pending state. Inserting a story
// whose identity key already exists is a no-op and returns false.
func (db *DB) InsertPending(s story.Story) (bool, error) {
	tags, err := json.Marshal(s.Tags)
	if err != nil {
		return false, fmt.Errorf("encoding tags: %w", err)
	}
	quality, err := json.Marshal(s.Quality)
	if err != nil {
		return false, fmt.Errorf("encoding quality: %w", err)
	}

	result, err := db.conn.Exec(
		`INSERT INTO stories (`+storyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')
		ON CONFLICT(identity_key) DO NOTHING`,
		s.IdentityKey, s.Slug, s.Title, s.Body, s.Excerpt, s.Category, s.Country,
		string(tags), s.Image.URL, s.Image.Alt, s.Image.AttributionName,
		s.Image.AttributionURL, s.SourceURL, s.GUID, s.FeedURL, s.ContentHash,
		s.WordCount, boolToInt(s.Rewritten), string(quality),
		s.OriginalPublishedAt.UTC().Format(time.RFC3339),
		s.FirstSeenAt.UTC().Format(time.RFC3339),
		nullableTime(s.PublishedAt),
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByIdentityKey returns a story by its identity key, or nil if absent.
func (db *DB) GetByIdentityKey(key string) (*story.Story, error) {
	return db.queryOne("SELECT "+storyColumns+" FROM stories WHERE identity_key = ?", key)
}

// FindBySourceURL returns a story matching the source URL, or nil if absent.
func (db *DB) FindBySourceURL(url string) (*story.Story, error) {
	return db.queryOne("SELECT "+storyColumns+" FROM stories WHERE source_url = ?", url)
}

// FindByContentHash returns a story matching the content hash, or nil if absent.
func (db *DB) FindByContentHash(hash string) (*story.Story, error) {
	return db.queryOne("SELECT "+storyColumns+" FROM stories WHERE content_hash = ?", hash)
}

// Exists reports whether any identity strategy already knows this candidate:
// identity key first, then source URL, then content hash.
func (db *DB) Exists(c story.CandidateItem) (bool, error) {
	for _, probe := range []func() (*story.Story, error){
		func() (*story.Story, error) { return db.GetByIdentityKey(c.IdentityKey) },
		func() (*story.Story, error) { return db.FindBySourceURL(c.Raw.SourceURL) },
		func() (*story.Story, error) { return db.FindByContentHash(c.ContentHash) },
	} {
		s, err := probe()
		if err != nil {
			return false, err
		}
		if s != nil {
			return true, nil
		}
	}
	return false, nil
}

// Approve moves a pending story to approved.
func (db *DB) Approve(key string) error {
	return db.transition(key, story.StatusApproved, story.StatusPending)
}

// Reject moves a pending story to rejected.
func (db *DB) Reject(key string) error {
	return db.transition(key, story.StatusRejected, story.StatusPending)
}

// Publish moves an approved story to published and stamps published_at.
// Publishing an already published story is a no-op. The original publish
// date from the source feed is never touched.
func (db *DB) Publish(key string, now time.Time) error {
	s, err := db.GetByIdentityKey(key)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrNotFound
	}
	if s.Status == story.StatusPublished {
		return nil
	}
	if s.Status != story.StatusApproved {
		return fmt.Errorf("%w: cannot publish %s story %s", ErrInvalidTransition, s.Status, key)
	}

	_, err = db.conn.Exec(
		`UPDATE stories SET status = 'published', published_at = ? WHERE identity_key = ?`,
		now.UTC().Format(time.RFC3339), key,
	)
	return err
}

// ListByStatus returns all stories in the given state, newest first.
func (db *DB) ListByStatus(status story.Status) ([]story.Story, error) {
	rows, err := db.conn.Query(
		"SELECT "+storyColumns+" FROM stories WHERE status = ? ORDER BY first_seen_at DESC",
		string(status),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStories(rows)
}

// ListUndistributed returns published stories that have no distribution
// records yet, oldest publication first.
func (db *DB) ListUndistributed() ([]story.Story, error) {
	rows, err := db.conn.Query(
		"SELECT "+storyColumns+` FROM stories s
		WHERE s.status = 'published'
		AND NOT EXISTS (SELECT 1 FROM distribution_records r WHERE r.story_key = s.identity_key)
		ORDER BY s.published_at`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStories(rows)
}

// CountByStatus returns story counts per status.
func (db *DB) CountByStatus() (map[story.Status]int, error) {
	rows, err := db.conn.Query("SELECT status, COUNT(*) FROM stories GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[story.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[story.Status(status)] = n
	}
	return counts, rows.Err()
}

func (db *DB) transition(key string, to, from story.Status) error {
	result, err := db.conn.Exec(
		"UPDATE stories SET status = ? WHERE identity_key = ? AND status = ?",
		string(to), key, string(from),
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	s, err := db.GetByIdentityKey(key)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrNotFound
	}
	return fmt.Errorf("%w: cannot move %s story %s to %s", ErrInvalidTransition, s.Status, key, to)
}

func (db *DB) queryOne(query string, args ...any) (*story.Story, error) {
	row := db.conn.QueryRow(query, args...)
	s, err := scanStory(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanStories(rows *sql.Rows) ([]story.Story, error) {
	var stories []story.Story
	for rows.Next() {
		s, err := scanStory(rows.Scan)
		if err != nil {
			return nil, err
		}
		stories = append(stories, *s)
	}
	return stories, rows.Err()
}

func scanStory(scan func(...any) error) (*story.Story, error) {
	var s story.Story
	var tags, quality, status string
	var guid, feedURL, excerpt, category, country sql.NullString
	var imageURL, imageAlt, attrName, attrURL sql.NullString
	var rewritten int
	var originalPublished, firstSeen string
	var published sql.NullString

	err := scan(&s.IdentityKey, &s.Slug, &s.Title, &s.Body, &excerpt, &category,
		&country, &tags, &imageURL, &imageAlt, &attrName, &attrURL,
		&s.SourceURL, &guid, &feedURL, &s.ContentHash, &s.WordCount,
		&rewritten, &quality, &originalPublished, &firstSeen, &published, &status)
	if err != nil {
		return nil, err
	}

	s.Excerpt = excerpt.String
	s.Category = category.String
	s.Country = country.String
	s.GUID = guid.String
	s.FeedURL = feedURL.String
	s.Image = story.Image{
		URL:             imageURL.String,
		Alt:             imageAlt.String,
		AttributionName: attrName.String,
		AttributionURL:  attrURL.String,
	}
	s.Rewritten = rewritten != 0
	s.Status = story.Status(status)

	if tags != "" {
		if err := json.Unmarshal([]byte(tags), &s.Tags); err != nil {
			s.Tags = nil
		}
	}
	if quality != "" {
		if err := json.Unmarshal([]byte(quality), &s.Quality); err != nil {
			s.Quality = story.QualityMetrics{}
		}
	}

	s.OriginalPublishedAt, err = time.Parse(time.RFC3339, originalPublished)
	if err != nil {
		return nil, fmt.Errorf("parsing original_published_at: %w", err)
	}
	s.FirstSeenAt, err = time.Parse(time.RFC3339, firstSeen)
	if err != nil {
		return nil, fmt.Errorf("parsing first_seen_at: %w", err)
	}
	if published.Valid && published.String != "" {
		s.PublishedAt, err = time.Parse(time.RFC3339, published.String)
		if err != nil {
			return nil, fmt.Errorf("parsing published_at: %w", err)
		}
	}

	return &s, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
