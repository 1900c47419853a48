// Package image selects a contextually relevant image for each story using
// staged search strategies of decreasing specificity.
package image

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/globaltravelreport/contentbot/internal/ratelimit"
	"github.com/globaltravelreport/contentbot/internal/story"
)

// Candidate is one image returned by a search collaborator.
type Candidate struct {
	URL             string
	Alt             string
	AttributionName string
	AttributionURL  string
}

// Searcher is the image-search collaborator boundary.
type Searcher interface {
	Search(ctx context.Context, query, orientation string, limit int) ([]Candidate, error)
}

// FallbackURL is the hard-coded generic travel image used when every search
// strategy comes up empty. The pipeline never produces a story without an
// image.
const FallbackURL = "https://images.unsplash.com/photo-1488646953014-85cb44e25828?auto=format&q=80&w=2400"

const (
	searchOrientation = "landscape"
	searchLimit       = 5
	baseScore         = 0.5
	locationBonus     = 0.3
	categoryBonus     = 0.2
)

var categoryQueries = map[string]string{
	"Cruises":      "cruise ship ocean sea luxury travel",
	"Hotels":       "luxury hotel resort accommodation interior",
	"Flights":      "airplane airport aviation sky travel",
	"Destinations": "travel destination landmark tourism",
	"Food":         "restaurant cuisine food dining culinary",
}

var titleKeywords = []string{
	"cruise", "hotel", "flight", "destination", "travel", "beach",
	"mountain", "city", "culture", "food", "adventure", "luxury",
}

// Matcher runs the strategy ladder against a search collaborator.
type Matcher struct {
	searcher    Searcher
	limiter     *ratelimit.Limiter
	fallbackURL string
	log         *zap.SugaredLogger
}

// NewMatcher creates a matcher. A nil searcher always yields the fallback.
func NewMatcher(searcher Searcher, limiter *ratelimit.Limiter, fallbackURL string, log *zap.SugaredLogger) *Matcher {
	if fallbackURL == "" {
		fallbackURL = FallbackURL
	}
	return &Matcher{searcher: searcher, limiter: limiter, fallbackURL: fallbackURL, log: log}
}

type strategy struct {
	name  string
	query string
}

// strategies builds the ordered search queries from most to least specific.
func strategies(s story.Story) []strategy {
	var out []strategy
	hasLocation := s.Country != "" && s.Country != "Global"
	categoryQuery := categoryQueries[s.Category]
	if categoryQuery == "" {
		categoryQuery = categoryQueries["Destinations"]
	}

	if hasLocation {
		out = append(out, strategy{"location+category", s.Country + " " + categoryQuery})
		out = append(out, strategy{"location", s.Country})
	}

	query := categoryQuery
	if len(s.Tags) > 0 {
		query += " " + strings.Join(s.Tags[:min(2, len(s.Tags))], " ")
	}
	out = append(out, strategy{"category+tags", query})

	if kw := keywordsFromTitle(s.Title); len(kw) > 0 {
		out = append(out, strategy{"title-keywords", strings.Join(kw, " ")})
	}

	return out
}

func keywordsFromTitle(title string) []string {
	words := strings.Fields(strings.ToLower(title))
	var out []string
	for _, kw := range titleKeywords {
		for _, w := range words {
			if strings.Contains(w, kw) {
				out = append(out, kw)
				break
			}
		}
	}
	return out
}

// Find returns the best image for the story. It tries each strategy in turn
// and uses the first one that returns candidates; when all fail or the search
// budget is exhausted, the generic fallback image is substituted.
func (m *Matcher) Find(ctx context.Context, s story.Story) story.Image {
	if m.searcher == nil {
		return m.fallback()
	}

	for _, strat := range strategies(s) {
		if m.limiter != nil && !m.limiter.Allow() {
			m.log.Warnw("image search budget exhausted, using fallback image",
				"identity_key", s.IdentityKey)
			return m.fallback()
		}

		candidates, err := m.searcher.Search(ctx, strat.query, searchOrientation, searchLimit)
		if err != nil {
			m.log.Warnw("image search strategy failed",
				"strategy", strat.name, "query", strat.query, "error", err)
			continue
		}
		if len(candidates) == 0 {
			continue
		}

		best := pickBest(candidates, s)
		m.log.Debugw("image selected",
			"strategy", strat.name, "alt", best.Alt, "attribution", best.AttributionName)
		return story.Image{
			URL:             best.URL,
			Alt:             best.Alt,
			AttributionName: best.AttributionName,
			AttributionURL:  best.AttributionURL,
		}
	}

	m.log.Infow("all image strategies empty, using fallback image",
		"identity_key", s.IdentityKey)
	return m.fallback()
}

func (m *Matcher) fallback() story.Image {
	return story.Image{
		URL:             m.fallbackURL,
		Alt:             "Travel destination",
		AttributionName: "Unsplash",
	}
}

// pickBest scores candidates on location-name and category-keyword overlap in
// the descriptive text, highest score wins.
func pickBest(candidates []Candidate, s story.Story) Candidate {
	best := candidates[0]
	bestScore := -1.0
	for _, c := range candidates {
		if score := relevance(c, s); score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best
}

func relevance(c Candidate, s story.Story) float64 {
	score := baseScore
	alt := strings.ToLower(c.Alt)

	if s.Country != "" && s.Country != "Global" &&
		strings.Contains(alt, strings.ToLower(s.Country)) {
		score += locationBonus
	}

	if q := categoryQueries[s.Category]; q != "" {
		keywords := strings.Fields(q)
		matches := 0
		for _, kw := range keywords {
			if strings.Contains(alt, kw) {
				matches++
			}
		}
		score += float64(matches) / float64(len(keywords)) * categoryBonus
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
