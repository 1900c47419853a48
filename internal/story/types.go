// Package story defines the canonical content types flowing through the
// pipeline and the derivation rules that turn raw feed items into them.
package story

import "time"

// Status is the moderation lifecycle state of a story.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusPublished Status = "published"
)

// RawItem is a feed entry as fetched, before any processing. Ephemeral.
type RawItem struct {
	Title       string
	Body        string
	SourceURL   string
	GUID        string
	PublishedAt time.Time // zero when the feed omitted it
	ImageURL    string    // feed-provided image, if any
	FeedURL     string
	Source      string // display name of the originating feed
}

// CandidateItem is a RawItem that parsed cleanly, carrying its derived
// identity and content metadata.
type CandidateItem struct {
	Raw         RawItem
	IdentityKey string
	ContentHash string
	WordCount   int
	Category    string
	Country     string
	Tags        []string
	Excerpt     string
}

// QualityMetrics is the per-item quality breakdown, each component in [0,1].
type QualityMetrics struct {
	Relevance    float64 `json:"relevance"`
	Readability  float64 `json:"readability"`
	Completeness float64 `json:"completeness"`
	Uniqueness   float64 `json:"uniqueness"`
	Overall      float64 `json:"overall"`
}

// Image is the selected illustration with attribution.
type Image struct {
	URL             string
	Alt             string
	AttributionName string
	AttributionURL  string
}

// Story is the canonical publishable unit persisted by the store.
type Story struct {
	IdentityKey string
	Slug        string
	Title       string
	Body        string // markdown
	Excerpt     string
	Category    string
	Country     string
	Tags        []string
	Image       Image

	SourceURL   string
	GUID        string
	FeedURL     string
	ContentHash string
	WordCount   int
	Rewritten   bool
	Quality     QualityMetrics

	// OriginalPublishedAt is the source feed's publish time, immutable once
	// set. FirstSeenAt is when ingestion first saw the item.
	OriginalPublishedAt time.Time
	FirstSeenAt         time.Time
	PublishedAt         time.Time // zero until the story is published

	Status Status
}

// DistributionRecord is one append-only record per (story, channel) dispatch.
type DistributionRecord struct {
	StoryKey  string
	Channel   string
	Success   bool
	Error     string
	Immediate bool // posted synchronously vs queued for scheduled delivery
	PostedAt  time.Time
}
