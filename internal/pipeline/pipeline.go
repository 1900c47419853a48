// Package pipeline orchestrates the full content run: fetch, ingest,
// transform, publish, distribute.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/globaltravelreport/contentbot/internal/config"
	"github.com/globaltravelreport/contentbot/internal/distribute"
	"github.com/globaltravelreport/contentbot/internal/feed"
	"github.com/globaltravelreport/contentbot/internal/image"
	"github.com/globaltravelreport/contentbot/internal/llm"
	"github.com/globaltravelreport/contentbot/internal/quality"
	"github.com/globaltravelreport/contentbot/internal/ratelimit"
	"github.com/globaltravelreport/contentbot/internal/rewrite"
	"github.com/globaltravelreport/contentbot/internal/store"
	"github.com/globaltravelreport/contentbot/internal/story"
)

// ChannelStats counts successes and failures per channel.
type ChannelStats struct {
	Succeeded int
	Failed    int
}

// Report summarizes one pipeline run.
type Report struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	ItemsFetched            int
	ItemsDeduped            int
	ItemsRejectedForQuality int
	ItemsIngested           int
	ItemsPublished          int
	// ItemsDistributed counts stories that reached at least one channel.
	ItemsDistributed int

	FetchReports    []feed.FetchReport
	PerChannelStats map[string]ChannelStats
	Errors          []string
}

// collaborator interfaces, satisfied by the concrete implementations and by
// test doubles
type fetcher interface {
	FetchAll(ctx context.Context) ([]story.RawItem, []feed.FetchReport)
}

type rewriter interface {
	Available() bool
	Rewrite(ctx context.Context, s story.Story) story.Story
}

type imageMatcher interface {
	Find(ctx context.Context, s story.Story) story.Image
}

type distributor interface {
	Distribute(ctx context.Context, p distribute.Post) []story.DistributionRecord
}

// Pipeline runs the end-to-end content flow against one store.
type Pipeline struct {
	cfg      *config.Config
	db       *store.DB
	fetcher  fetcher
	scorer   *quality.Scorer
	rewriter rewriter
	images   imageMatcher
	fanout   distributor
	log      *zap.SugaredLogger
	now      func() time.Time
}

// New wires a pipeline from configuration. Collaborators that lack
// credentials degrade rather than fail: rewrite passes stories through and
// image matching serves the fallback.
func New(cfg *config.Config, db *store.DB, log *zap.SugaredLogger) *Pipeline {
	provider := llm.CreateProvider(cfg.Rewrite.Provider, cfg.Rewrite.Model,
		cfg.Rewrite.OllamaURL, cfg.Rewrite.APIKeyEnv, log)
	rw := rewrite.New(provider,
		ratelimit.New(ratelimit.Daily, cfg.Rewrite.DailyLimit),
		cfg.Rewrite.MaxAttempts, cfg.Rewrite.MaxTokens, log)

	var searcher image.Searcher
	if u := image.NewUnsplashClient(cfg.Images.AccessKeyEnv); u.IsConfigured() {
		searcher = u
	}
	matcher := image.NewMatcher(searcher,
		ratelimit.New(ratelimit.Hourly, cfg.Images.HourlyLimit),
		cfg.Images.FallbackURL, log)

	sources := make([]feed.Source, len(cfg.Sources.Feeds))
	for i, f := range cfg.Sources.Feeds {
		sources[i] = feed.Source{URL: f.URL, Name: f.Name}
	}
	f := feed.New(feed.Options{
		Sources:      sources,
		Fallbacks:    cfg.Sources.Fallbacks,
		MaxRetries:   cfg.Sources.MaxRetries,
		Timeout:      cfg.FeedTimeout(),
		Concurrency:  cfg.Sources.Concurrency,
		MinBodyChars: cfg.Sources.MinBodyChars,
	}, log)

	d := cfg.Distribution
	channels := []distribute.Channel{
		distribute.NewFacebook(d.Facebook.Enabled, d.Facebook.AccessTokenEnv, d.Facebook.PageIDEnv),
		distribute.NewTwitter(d.Twitter.Enabled, d.Twitter.BearerTokenEnv),
		distribute.NewLinkedIn(d.LinkedIn.Enabled, d.LinkedIn.AccessTokenEnv, d.LinkedIn.OrgIDEnv),
		distribute.NewNewsletter(d.Newsletter.Enabled, d.Newsletter.APIKeyEnv, d.Newsletter.ListID),
	}

	return &Pipeline{
		cfg:      cfg,
		db:       db,
		fetcher:  f,
		scorer:   quality.NewScorer(cfg.Pipeline.QualityThreshold),
		rewriter: rw,
		images:   matcher,
		fanout:   distribute.NewFanout(channels, cfg.DistributionTimeout(), log),
		log:      log,
		now:      time.Now,
	}
}

// Run executes a full pipeline pass. Item-level failures are recorded in the
// report and never abort the run.
func (p *Pipeline) Run(ctx context.Context) *Report {
	r := &Report{
		RunID:           uuid.NewString(),
		StartedAt:       p.now(),
		PerChannelStats: make(map[string]ChannelStats),
	}
	p.log.Infow("pipeline run starting", "run_id", r.RunID)

	items, fetchReports := p.fetcher.FetchAll(ctx)
	r.ItemsFetched = len(items)
	r.FetchReports = fetchReports
	for _, fr := range fetchReports {
		if fr.Err != nil {
			r.Errors = append(r.Errors, fmt.Sprintf("fetch %s: %v", fr.Source, fr.Err))
		}
	}

	p.ingest(ctx, items, r)
	p.publishApproved(ctx, r)

	r.FinishedAt = p.now()
	p.log.Infow("pipeline run finished",
		"run_id", r.RunID,
		"fetched", r.ItemsFetched,
		"deduped", r.ItemsDeduped,
		"rejected", r.ItemsRejectedForQuality,
		"ingested", r.ItemsIngested,
		"published", r.ItemsPublished,
		"distributed", r.ItemsDistributed,
		"errors", len(r.Errors),
	)
	return r
}

// ingest runs dedup, scoring, rewrite, and image matching for each fetched
// item and inserts survivors as pending stories, up to the per-run cap.
func (p *Pipeline) ingest(ctx context.Context, items []story.RawItem, r *Report) {
	max := p.cfg.Pipeline.MaxStoriesPerRun
	for _, raw := range items {
		if ctx.Err() != nil {
			r.Errors = append(r.Errors, fmt.Sprintf("ingest stopped: %v", ctx.Err()))
			return
		}
		if max > 0 && r.ItemsIngested >= max {
			p.log.Infow("per-run story cap reached", "cap", max)
			return
		}

		candidate := story.NewCandidate(raw)

		seen, err := p.db.Exists(candidate)
		if err != nil {
			r.Errors = append(r.Errors, fmt.Sprintf("dedup %s: %v", candidate.IdentityKey, err))
			continue
		}
		if seen {
			r.ItemsDeduped++
			p.log.Debugw("duplicate item skipped",
				"identity_key", candidate.IdentityKey, "url", raw.SourceURL)
			continue
		}

		metrics, ok := p.scorer.Admit(candidate)
		if !ok {
			r.ItemsRejectedForQuality++
			p.log.Infow("item rejected for quality",
				"identity_key", candidate.IdentityKey,
				"overall", metrics.Overall,
				"threshold", p.scorer.Threshold())
			continue
		}

		s := story.NewStory(candidate, metrics, p.now())
		if p.rewriter.Available() {
			s = p.rewriter.Rewrite(ctx, s)
		}
		s.Image = p.images.Find(ctx, s)

		inserted, err := p.db.InsertPending(s)
		if err != nil {
			r.Errors = append(r.Errors, fmt.Sprintf("insert %s: %v", s.IdentityKey, err))
			continue
		}
		if !inserted {
			r.ItemsDeduped++
			continue
		}
		r.ItemsIngested++
		p.log.Infow("story ingested",
			"identity_key", s.IdentityKey, "title", s.Title, "rewritten", s.Rewritten)
	}
}

// publishApproved publishes every approved story and fans each one out to
// the distribution channels.
func (p *Pipeline) publishApproved(ctx context.Context, r *Report) {
	approved, err := p.db.ListByStatus(story.StatusApproved)
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("listing approved stories: %v", err))
		return
	}

	for _, s := range approved {
		if ctx.Err() != nil {
			r.Errors = append(r.Errors, fmt.Sprintf("publish stopped: %v", ctx.Err()))
			return
		}

		if err := p.db.Publish(s.IdentityKey, p.now()); err != nil {
			r.Errors = append(r.Errors, fmt.Sprintf("publish %s: %v", s.IdentityKey, err))
			continue
		}
		r.ItemsPublished++

		post := distribute.BuildPost(s, p.cfg.Distribution.SiteBaseURL, p.cfg.Distribution.MaxHashtags)
		records := p.fanout.Distribute(ctx, post)
		delivered := false
		for _, rec := range records {
			if err := p.db.InsertDistributionRecord(rec); err != nil {
				r.Errors = append(r.Errors, fmt.Sprintf("recording %s dispatch for %s: %v",
					rec.Channel, rec.StoryKey, err))
			}
			stats := r.PerChannelStats[rec.Channel]
			if rec.Success {
				stats.Succeeded++
				delivered = true
			} else {
				stats.Failed++
				r.Errors = append(r.Errors, fmt.Sprintf("distribute %s via %s: %s",
					rec.StoryKey, rec.Channel, rec.Error))
			}
			r.PerChannelStats[rec.Channel] = stats
		}
		if delivered {
			r.ItemsDistributed++
		}
	}
}

// DistributeStory fans a single published story out to all channels,
// recording the outcome. Used by the distribute command for re-runs.
func (p *Pipeline) DistributeStory(ctx context.Context, key string) ([]story.DistributionRecord, error) {
	s, err := p.db.GetByIdentityKey(key)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, store.ErrNotFound
	}
	if s.Status != story.StatusPublished {
		return nil, fmt.Errorf("%w: story %s is %s, only published stories are distributed",
			store.ErrInvalidTransition, key, s.Status)
	}

	post := distribute.BuildPost(*s, p.cfg.Distribution.SiteBaseURL, p.cfg.Distribution.MaxHashtags)
	records := p.fanout.Distribute(ctx, post)
	for _, rec := range records {
		if err := p.db.InsertDistributionRecord(rec); err != nil {
			return records, err
		}
	}
	return records, nil
}
