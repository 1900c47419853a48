// Package quality scores candidate items and applies the admission gate.
package quality

import (
	"strings"

	"github.com/globaltravelreport/contentbot/internal/story"
)

// DefaultThreshold is the admission threshold for the overall score.
const DefaultThreshold = 0.7

// Weights of the overall score. Fixed by design; see QualityMetrics.
const (
	relevanceWeight    = 0.30
	readabilityWeight  = 0.25
	completenessWeight = 0.25
	uniquenessWeight   = 0.20
)

// uniquenessPlaceholder stands in for a real similarity comparison against
// existing content, which does not exist yet. Known gap: do not treat this
// constant as a meaningful signal.
const uniquenessPlaceholder = 0.8

// relevanceSaturation is the number of distinct keyword matches at which the
// relevance score reaches 1.0.
const relevanceSaturation = 5

var travelKeywords = []string{
	"travel", "trip", "journey", "vacation", "holiday", "destination",
	"hotel", "resort", "cruise", "flight", "airport", "tour", "guide",
	"adventure", "explore", "discover", "visit", "experience",
}

// Scorer computes quality metrics and applies the admission threshold.
type Scorer struct {
	threshold float64
}

// NewScorer creates a scorer. A non-positive threshold selects the default.
func NewScorer(threshold float64) *Scorer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Scorer{threshold: threshold}
}

// Threshold returns the configured admission threshold.
func (s *Scorer) Threshold() float64 { return s.threshold }

// Score computes the full quality breakdown for a candidate.
func (s *Scorer) Score(c story.CandidateItem) story.QualityMetrics {
	m := story.QualityMetrics{
		Relevance:    relevance(c),
		Readability:  readability(c.Raw.Body),
		Completeness: completeness(c),
		Uniqueness:   uniquenessPlaceholder,
	}
	m.Overall = clamp(m.Relevance)*relevanceWeight +
		clamp(m.Readability)*readabilityWeight +
		clamp(m.Completeness)*completenessWeight +
		clamp(m.Uniqueness)*uniquenessWeight
	return m
}

// Admit reports whether the candidate meets the threshold, with the breakdown
// retained for the run report either way.
func (s *Scorer) Admit(c story.CandidateItem) (story.QualityMetrics, bool) {
	m := s.Score(c)
	return m, m.Overall >= s.threshold
}

func relevance(c story.CandidateItem) float64 {
	content := strings.ToLower(c.Raw.Title + " " + c.Raw.Body)
	matches := 0
	for _, kw := range travelKeywords {
		if strings.Contains(content, kw) {
			matches++
		}
	}
	score := float64(matches) / relevanceSaturation
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func readability(content string) float64 {
	lengthScore := float64(len(content)) / 1000
	if lengthScore > 1.0 {
		lengthScore = 1.0
	}

	sentenceScore := 0.5
	if avg := averageSentenceLength(content); avg > 20 && avg < 100 {
		sentenceScore = 1.0
	}

	paragraphScore := 0.5
	if countParagraphs(content) >= 3 {
		paragraphScore = 1.0
	}

	return (lengthScore + sentenceScore + paragraphScore) / 3
}

func averageSentenceLength(content string) float64 {
	parts := strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	total, count := 0, 0
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		total += len(p)
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

func countParagraphs(content string) int {
	count := 0
	for _, p := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(p) != "" {
			count++
		}
	}
	return count
}

func completeness(c story.CandidateItem) float64 {
	score := 0.0
	if len(c.Raw.Title) > 10 {
		score += 0.2
	}
	if len(c.Excerpt) > 50 {
		score += 0.2
	}
	if len(c.Raw.Body) > 300 {
		score += 0.3
	}
	if c.Raw.ImageURL != "" {
		score += 0.1
	}
	if len(c.Tags) > 0 {
		score += 0.1
	}
	if c.Category != "" {
		score += 0.1
	}
	return score
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
