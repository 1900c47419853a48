package store

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS stories (
    identity_key TEXT PRIMARY KEY,
    slug TEXT NOT NULL,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    excerpt TEXT,
    category TEXT,
    country TEXT,
    tags TEXT,
    image_url TEXT,
    image_alt TEXT,
    image_attribution_name TEXT,
    image_attribution_url TEXT,
    source_url TEXT NOT NULL,
    guid TEXT,
    feed_url TEXT,
    content_hash TEXT NOT NULL,
    word_count INTEGER DEFAULT 0,
    rewritten INTEGER DEFAULT 0,
    quality TEXT,
    original_published_at TEXT NOT NULL,
    first_seen_at TEXT NOT NULL,
    published_at TEXT,
    status TEXT NOT NULL DEFAULT 'pending'
        CHECK(status IN ('pending', 'approved', 'rejected', 'published'))
);

CREATE TABLE IF NOT EXISTS distribution_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    story_key TEXT NOT NULL REFERENCES stories(identity_key),
    channel TEXT NOT NULL,
    success INTEGER NOT NULL,
    error TEXT,
    immediate INTEGER DEFAULT 1,
    posted_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_stories_source_url ON stories(source_url);
CREATE INDEX IF NOT EXISTS idx_stories_content_hash ON stories(content_hash);
CREATE INDEX IF NOT EXISTS idx_stories_status ON stories(status);
CREATE INDEX IF NOT EXISTS idx_distribution_story ON distribution_records(story_key);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
