package store

import (
	"database/sql"
	"time"

	"github.com/globaltravelreport/contentbot/internal/story"
)

// InsertDistributionRecord appends one dispatch outcome. Records are never
// updated or deleted.
func (db *DB) InsertDistributionRecord(r story.DistributionRecord) error {
	_, err := db.conn.Exec(
		`INSERT INTO distribution_records (story_key, channel, success, error, immediate, posted_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.StoryKey, r.Channel, boolToInt(r.Success), r.Error,
		boolToInt(r.Immediate), r.PostedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// ListDistributionRecords returns all dispatch outcomes for a story,
// oldest first.
func (db *DB) ListDistributionRecords(storyKey string) ([]story.DistributionRecord, error) {
	rows, err := db.conn.Query(
		`SELECT story_key, channel, success, error, immediate, posted_at
		FROM distribution_records WHERE story_key = ? ORDER BY id`,
		storyKey,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// ChannelStats aggregates success and failure counts per channel.
func (db *DB) ChannelStats() (map[string][2]int, error) {
	rows, err := db.conn.Query(
		`SELECT channel,
			SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END),
			SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END)
		FROM distribution_records GROUP BY channel`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string][2]int)
	for rows.Next() {
		var channel string
		var ok, failed int
		if err := rows.Scan(&channel, &ok, &failed); err != nil {
			return nil, err
		}
		stats[channel] = [2]int{ok, failed}
	}
	return stats, rows.Err()
}

func scanRecords(rows *sql.Rows) ([]story.DistributionRecord, error) {
	var records []story.DistributionRecord
	for rows.Next() {
		var r story.DistributionRecord
		var success, immediate int
		var errMsg sql.NullString
		var posted string
		if err := rows.Scan(&r.StoryKey, &r.Channel, &success, &errMsg, &immediate, &posted); err != nil {
			return nil, err
		}
		r.Success = success != 0
		r.Immediate = immediate != 0
		r.Error = errMsg.String
		if t, err := time.Parse(time.RFC3339, posted); err == nil {
			r.PostedAt = t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
