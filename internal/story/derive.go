package story

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	maxSlugLen    = 60
	excerptLen    = 200
	maxTags       = 5
	defaultOrigin = "Global"
)

// categoryKeywords maps each category to the phrases that indicate it.
// Checked in order; first category with a match wins.
var categoryKeywords = []struct {
	Category string
	Keywords []string
}{
	{"Cruises", []string{"cruise", "ship", "voyage", "ocean liner", "cruising"}},
	{"Hotels", []string{"hotel", "resort", "accommodation", "lodging", "hospitality"}},
	{"Flights", []string{"flight", "airline", "airport", "aviation", "airplane"}},
	{"Destinations", []string{"destination", "city", "country", "travel guide", "explore"}},
	{"Food", []string{"restaurant", "cuisine", "dining", "food", "culinary"}},
}

var knownCountries = []string{
	"France", "Japan", "Italy", "Spain", "Greece", "Thailand",
	"Australia", "USA", "UK", "Canada", "New Zealand", "Indonesia",
	"Vietnam", "Portugal", "Mexico", "Singapore",
}

var commonTags = []string{
	"travel", "adventure", "culture", "food", "luxury", "budget",
	"family", "solo", "romantic", "business", "nature", "urban",
}

// NewCandidate derives the identity and content metadata for a raw item.
func NewCandidate(raw RawItem) CandidateItem {
	excerpt := Excerpt(raw.Body, excerptLen)
	return CandidateItem{
		Raw:         raw,
		IdentityKey: IdentityKey(raw),
		ContentHash: ContentHash(raw.Title, raw.Body, excerpt),
		WordCount:   CountWords(raw.Body),
		Category:    InferCategory(raw.Title, raw.Body),
		Country:     InferCountry(raw.Title, raw.Body),
		Tags:        ExtractTags(raw.Title, raw.Body),
		Excerpt:     excerpt,
	}
}

// NewStory builds the pending publishable story for a scored candidate.
// The original publish time is preserved verbatim from the feed; now becomes
// the ingestion timestamp.
func NewStory(c CandidateItem, quality QualityMetrics, now time.Time) Story {
	originalPublished := c.Raw.PublishedAt
	if originalPublished.IsZero() {
		originalPublished = now
	}
	return Story{
		IdentityKey:         c.IdentityKey,
		Slug:                Slugify(c.Raw.Title),
		Title:               strings.TrimSpace(c.Raw.Title),
		Body:                strings.TrimSpace(c.Raw.Body),
		Excerpt:             c.Excerpt,
		Category:            c.Category,
		Country:             c.Country,
		Tags:                c.Tags,
		SourceURL:           c.Raw.SourceURL,
		GUID:                c.Raw.GUID,
		FeedURL:             c.Raw.FeedURL,
		ContentHash:         c.ContentHash,
		WordCount:           c.WordCount,
		Quality:             quality,
		OriginalPublishedAt: originalPublished,
		FirstSeenAt:         now,
		Status:              StatusPending,
	}
}

// Slugify turns a title into a URL-safe slug of at most 60 characters.
func Slugify(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}

	slug := b.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")
	if len(slug) > maxSlugLen {
		slug = strings.Trim(truncate(slug, maxSlugLen), "-")
	}
	return slug
}

// Excerpt cuts content down to maxLen characters on a word boundary.
func Excerpt(content string, maxLen int) string {
	content = strings.Join(strings.Fields(content), " ")
	if len(content) <= maxLen {
		return content
	}
	cut := truncate(content, maxLen)
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}

// truncate cuts s to at most max bytes without splitting a multibyte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// InferCategory guesses the travel category from title and body keywords.
func InferCategory(title, body string) string {
	content := strings.ToLower(title + " " + body)
	for _, ck := range categoryKeywords {
		for _, kw := range ck.Keywords {
			if strings.Contains(content, kw) {
				return ck.Category
			}
		}
	}
	return "Destinations"
}

// InferCountry scans for known country names, defaulting to Global.
func InferCountry(title, body string) string {
	content := strings.ToLower(title + " " + body)
	for _, country := range knownCountries {
		if strings.Contains(content, strings.ToLower(country)) {
			return country
		}
	}
	return defaultOrigin
}

// ExtractTags picks up to five matching tags from a fixed vocabulary.
func ExtractTags(title, body string) []string {
	content := strings.ToLower(title + " " + body)
	var tags []string
	for _, tag := range commonTags {
		if strings.Contains(content, tag) {
			tags = append(tags, tag)
			if len(tags) == maxTags {
				break
			}
		}
	}
	return tags
}

// CountWords counts whitespace-separated words.
func CountWords(content string) int {
	return len(strings.Fields(content))
}
