// Package feed fetches and normalizes RSS/Atom sources into raw items.
package feed

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/globaltravelreport/contentbot/internal/retry"
	"github.com/globaltravelreport/contentbot/internal/story"
)

const maxPerFeed = 20

// Source is a single configured feed.
type Source struct {
	URL  string
	Name string
}

// Options controls fetching behavior.
type Options struct {
	Sources      []Source
	Fallbacks    []string
	MaxRetries   int
	Timeout      time.Duration
	Concurrency  int
	MinBodyChars int
}

// FetchReport is the per-source outcome of a fetch run.
type FetchReport struct {
	Source       string
	Attempts     int
	Items        int
	UsedFallback bool
	Err          error
}

// Fetcher pulls all configured sources and converts entries to raw items.
type Fetcher struct {
	opts     Options
	client   *http.Client
	stripper *bluemonday.Policy
	log      *zap.SugaredLogger
}

// New creates a fetcher. Zero option fields fall back to sane defaults.
func New(opts Options, log *zap.SugaredLogger) *Fetcher {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Fetcher{
		opts: opts,
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		stripper: bluemonday.StrictPolicy(),
		log:      log,
	}
}

// FetchAll fetches every configured source with bounded concurrency. A source
// that exhausts its retries falls back to the shared fallback URLs. Failures
// are reported per source, never aborting the run.
func (f *Fetcher) FetchAll(ctx context.Context) ([]story.RawItem, []FetchReport) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		items   []story.RawItem
		reports = make([]FetchReport, len(f.opts.Sources))
	)

	sem := make(chan struct{}, f.opts.Concurrency)
	for i, src := range f.opts.Sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			got, report := f.fetchSource(ctx, src)
			reports[i] = report

			mu.Lock()
			items = append(items, got...)
			mu.Unlock()
		}(i, src)
	}
	wg.Wait()

	return items, reports
}

func (f *Fetcher) fetchSource(ctx context.Context, src Source) ([]story.RawItem, FetchReport) {
	name := src.Name
	if name == "" {
		name = sourceNameFromURL(src.URL)
	}
	report := FetchReport{Source: name}

	items, err := f.fetchURL(ctx, src.URL, name, &report.Attempts)
	if err == nil {
		report.Items = len(items)
		f.log.Infow("feed fetched", "source", name, "items", len(items), "attempts", report.Attempts)
		return items, report
	}

	f.log.Warnw("feed fetch failed, trying fallbacks",
		"source", name, "url", src.URL, "attempts", report.Attempts, "error", err)

	for _, fb := range f.opts.Fallbacks {
		items, fbErr := f.fetchURL(ctx, fb, name, &report.Attempts)
		if fbErr != nil {
			f.log.Warnw("fallback fetch failed", "source", name, "fallback", fb, "error", fbErr)
			continue
		}
		report.UsedFallback = true
		report.Items = len(items)
		f.log.Infow("feed fetched via fallback", "source", name, "fallback", fb, "items", len(items))
		return items, report
	}

	report.Err = err
	return nil, report
}

func (f *Fetcher) fetchURL(ctx context.Context, feedURL, source string, attempts *int) ([]story.RawItem, error) {
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = f.opts.MaxRetries
	cfg.IsRetryable = func(err error) bool {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
		}
		if errors.Is(err, context.Canceled) {
			return false
		}
		// Transport and parse failures alike: a truncated or malformed
		// document may be a partial read that succeeds on retry.
		return true
	}

	var feed *gofeed.Feed
	err := retry.Do(ctx, cfg, func() error {
		*attempts++
		fetchCtx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()

		parsed, err := gofeed.NewParser().ParseURLWithContext(feedURL, fetchCtx)
		if err != nil {
			return fmt.Errorf("parsing feed %s: %w", feedURL, err)
		}
		feed = parsed
		return nil
	})
	if err != nil {
		return nil, err
	}

	var items []story.RawItem
	for _, item := range feed.Items {
		if len(items) >= maxPerFeed {
			break
		}
		raw, ok := f.toRawItem(ctx, item, feedURL, source)
		if !ok {
			continue
		}
		items = append(items, raw)
	}
	return items, nil
}

// toRawItem normalizes a feed entry. Items without a title or without any
// link or GUID are dropped.
func (f *Fetcher) toRawItem(ctx context.Context, item *gofeed.Item, feedURL, source string) (story.RawItem, bool) {
	title := strings.TrimSpace(f.stripText(item.Title))
	if title == "" {
		return story.RawItem{}, false
	}
	sourceURL := item.Link
	if sourceURL == "" {
		sourceURL = item.GUID
	}
	if sourceURL == "" {
		return story.RawItem{}, false
	}

	body := item.Content
	if body == "" {
		body = item.Description
	}
	body = f.stripText(body)

	var published time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	var imageURL string
	if item.Image != nil {
		imageURL = item.Image.URL
	}

	raw := story.RawItem{
		Title:       title,
		Body:        body,
		SourceURL:   sourceURL,
		GUID:        item.GUID,
		PublishedAt: published,
		ImageURL:    imageURL,
		FeedURL:     feedURL,
		Source:      source,
	}

	if f.opts.MinBodyChars > 0 && len(raw.Body) < f.opts.MinBodyChars {
		f.enrichBody(ctx, &raw)
	}
	return raw, true
}

func (f *Fetcher) stripText(s string) string {
	stripped := html.UnescapeString(f.stripper.Sanitize(s))
	return strings.Join(strings.Fields(stripped), " ")
}

func sourceNameFromURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		name := parts[len(parts)-2]
		return strings.ToUpper(name[:1]) + name[1:]
	}
	if host == "" {
		return feedURL
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
