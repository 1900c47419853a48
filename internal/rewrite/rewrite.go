// Package rewrite turns ingested stories into editorial copy via the
// text-generation collaborator. A failed rewrite never loses the story: it
// passes through with its original text and Rewritten=false.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/globaltravelreport/contentbot/internal/llm"
	"github.com/globaltravelreport/contentbot/internal/ratelimit"
	"github.com/globaltravelreport/contentbot/internal/retry"
	"github.com/globaltravelreport/contentbot/internal/story"
)

const rewritePrompt = `You are a senior editor at an Australian travel publication.

Rewrite the story below in professional Australian English editorial style:
- Australian spelling (travelled, organised, colour, centre)
- A clear lead paragraph that tells the reader why this matters
- Informative, balanced tone; no marketing fluff, no first person
- Keep every factual detail (places, prices, dates, operators) intact
- Three or more paragraphs

Story category: %s
Original title: %s
Original story:
%s

Respond with ONLY this JSON:
{
    "title": "A sharp headline under 80 characters",
    "content": "The full rewritten story in markdown paragraphs",
    "excerpt": "A 1-2 sentence summary under 200 characters"
}`

// ErrUnusableResponse reports a provider reply that could not be parsed.
var ErrUnusableResponse = errors.New("unusable rewrite response")

// Rewriter orchestrates rewriting with retry, rate limiting, and
// pass-through fallback.
type Rewriter struct {
	provider    llm.Provider
	limiter     *ratelimit.Limiter
	maxAttempts int
	maxTokens   int
	log         *zap.SugaredLogger
}

// New creates a rewriter. A nil provider means every story passes through
// unrewritten.
func New(provider llm.Provider, limiter *ratelimit.Limiter, maxAttempts, maxTokens int, log *zap.SugaredLogger) *Rewriter {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &Rewriter{
		provider:    provider,
		limiter:     limiter,
		maxAttempts: maxAttempts,
		maxTokens:   maxTokens,
		log:         log,
	}
}

// Available reports whether rewriting can still happen this run. False means
// the stage is degraded (no provider, or the daily budget is spent) and the
// pipeline should skip it rather than fail.
func (r *Rewriter) Available() bool {
	if r.provider == nil {
		return false
	}
	return r.limiter == nil || r.limiter.Remaining() != 0
}

// Rewrite returns the story with rewritten title, body, and excerpt. On
// collaborator failure after all attempts, or when the stage is degraded, the
// original story is returned with Rewritten=false.
func (r *Rewriter) Rewrite(ctx context.Context, s story.Story) story.Story {
	if r.provider == nil {
		s.Rewritten = false
		return s
	}
	if r.limiter != nil && !r.limiter.Allow() {
		r.log.Warnw("rewrite budget exhausted, passing story through",
			"identity_key", s.IdentityKey)
		s.Rewritten = false
		return s
	}

	prompt := fmt.Sprintf(rewritePrompt, s.Category, s.Title, s.Body)

	var title, content, excerpt string
	err := retry.Do(ctx, retry.Config{
		MaxAttempts:  r.maxAttempts,
		InitialDelay: time.Second,
		IsRetryable:  func(error) bool { return true },
	}, func() error {
		resp, genErr := r.provider.Generate(ctx, prompt, r.maxTokens)
		if genErr != nil {
			return genErr
		}
		parsed := llm.ParseJSONResponse(resp)
		title = llm.StringField(parsed, "title")
		content = llm.StringField(parsed, "content")
		excerpt = llm.StringField(parsed, "excerpt")
		if title == "" || content == "" {
			return ErrUnusableResponse
		}
		return nil
	})
	if err != nil {
		r.log.Warnw("rewrite failed, passing story through with original text",
			"identity_key", s.IdentityKey, "error", err)
		s.Rewritten = false
		return s
	}

	s.Title = title
	s.Slug = story.Slugify(title)
	s.Body = content
	if excerpt != "" {
		s.Excerpt = excerpt
	} else {
		s.Excerpt = story.Excerpt(content, 200)
	}
	s.WordCount = story.CountWords(content)
	s.Rewritten = true
	return s
}
