package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/globaltravelreport/contentbot/internal/logging"
)

const rssTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>%s</title>
%s
</channel>
</rss>`

func rssItem(title, link, guid, desc string) string {
	return fmt.Sprintf(`<item>
<title>%s</title>
<link>%s</link>
<guid>%s</guid>
<description>%s</description>
<pubDate>Mon, 24 Aug 2026 09:00:00 GMT</pubDate>
</item>`, title, link, guid, desc)
}

func rssServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchAll(t *testing.T) {
	srv := rssServer(t, fmt.Sprintf(rssTemplate, "Travel Feed",
		rssItem("Bali on a Budget", "https://example.com/bali", "guid-1", "Cheap eats and &amp; beach stays in Bali for under $50 a day.")+
			rssItem("Swiss Rail Passes Compared", "https://example.com/rail", "guid-2", "<p>Which pass suits which <b>itinerary</b>.</p>")))

	f := New(Options{Sources: []Source{{URL: srv.URL, Name: "Travel Feed"}}}, logging.Nop())
	items, reports := f.FetchAll(context.Background())

	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Title != "Bali on a Budget" {
		t.Errorf("unexpected title: %q", items[0].Title)
	}
	if items[0].Body != "Cheap eats and & beach stays in Bali for under $50 a day." {
		t.Errorf("entities not decoded: %q", items[0].Body)
	}
	if items[1].Body != "Which pass suits which itinerary." {
		t.Errorf("HTML not stripped: %q", items[1].Body)
	}
	if items[0].PublishedAt.IsZero() {
		t.Error("expected published time from pubDate")
	}
	if items[0].Source != "Travel Feed" || items[0].GUID != "guid-1" {
		t.Errorf("metadata not carried: %+v", items[0])
	}

	if len(reports) != 1 || reports[0].Err != nil || reports[0].Items != 2 {
		t.Errorf("unexpected report: %+v", reports)
	}
}

func TestFetchDropsItemsWithoutTitleOrLink(t *testing.T) {
	srv := rssServer(t, fmt.Sprintf(rssTemplate, "Partial Feed",
		rssItem("", "https://example.com/untitled", "g1", "no title")+
			`<item><title>No link or guid</title><description>orphan</description></item>`+
			rssItem("Kept", "https://example.com/kept", "g2", "fine")))

	f := New(Options{Sources: []Source{{URL: srv.URL}}}, logging.Nop())
	items, _ := f.FetchAll(context.Background())

	if len(items) != 1 || items[0].Title != "Kept" {
		t.Fatalf("expected only the complete item, got %+v", items)
	}
}

func TestFetchRetriesThenFallback(t *testing.T) {
	var primaryHits atomic.Int32
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		primaryHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(primary.Close)

	fallback := rssServer(t, fmt.Sprintf(rssTemplate, "Fallback Feed",
		rssItem("Rescued Story", "https://example.com/rescued", "g1", "content")))

	f := New(Options{
		Sources:   []Source{{URL: primary.URL, Name: "Flaky"}},
		Fallbacks: []string{fallback.URL},
	}, logging.Nop())
	// shrink backoff for the test run
	f.opts.MaxRetries = 2

	items, reports := f.FetchAll(context.Background())

	if len(items) != 1 || items[0].Title != "Rescued Story" {
		t.Fatalf("expected fallback item, got %+v", items)
	}
	if !reports[0].UsedFallback {
		t.Error("report should record fallback use")
	}
	if got := primaryHits.Load(); got != 2 {
		t.Errorf("expected 2 attempts at primary, got %d", got)
	}
}

func TestFetchRetriesParseFailure(t *testing.T) {
	valid := fmt.Sprintf(rssTemplate, "Travel Feed",
		rssItem("Recovered Story", "https://example.com/recovered", "g1", "content"))

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		if hits.Add(1) == 1 {
			// truncated document, parses with an XML syntax error
			fmt.Fprint(w, valid[:len(valid)/2])
			return
		}
		fmt.Fprint(w, valid)
	}))
	t.Cleanup(srv.Close)

	f := New(Options{Sources: []Source{{URL: srv.URL, Name: "Travel Feed"}}}, logging.Nop())
	f.opts.MaxRetries = 2

	items, reports := f.FetchAll(context.Background())

	if len(items) != 1 || items[0].Title != "Recovered Story" {
		t.Fatalf("expected retried item, got %+v", items)
	}
	if reports[0].Err != nil || reports[0].UsedFallback {
		t.Errorf("retry should recover without a fallback: %+v", reports[0])
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("expected 2 attempts, got %d", got)
	}
}

func TestFetchReportsFailureWhenAllExhausted(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(dead.Close)

	f := New(Options{
		Sources: []Source{{URL: dead.URL, Name: "Dead"}},
	}, logging.Nop())
	f.opts.MaxRetries = 1

	items, reports := f.FetchAll(context.Background())
	if len(items) != 0 {
		t.Errorf("expected no items, got %d", len(items))
	}
	if reports[0].Err == nil {
		t.Error("expected recorded error for exhausted source")
	}
}

func TestThinBodyEnrichment(t *testing.T) {
	article := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Full Story</title></head><body><article>`)
		for i := 0; i < 20; i++ {
			fmt.Fprint(w, `<p>Queensland's reef operators are preparing for the busiest season in a decade, with new moorings and visitor caps in place across the marine park.</p>`)
		}
		fmt.Fprint(w, `</article></body></html>`)
	}))
	t.Cleanup(article.Close)

	srv := rssServer(t, fmt.Sprintf(rssTemplate, "Thin Feed",
		rssItem("Reef Season Opens", article.URL, "g1", "short teaser")))

	f := New(Options{
		Sources:      []Source{{URL: srv.URL, Name: "Thin Feed"}},
		MinBodyChars: 300,
	}, logging.Nop())
	items, _ := f.FetchAll(context.Background())

	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if len(items[0].Body) < 300 {
		t.Errorf("expected enriched body, got %d chars", len(items[0].Body))
	}
}

func TestSourceNameFromURL(t *testing.T) {
	cases := map[string]string{
		"https://www.lonelyplanet.com/news/feed": "Lonelyplanet",
		"https://feeds.skift.com/rss":            "Skift",
	}
	for in, want := range cases {
		if got := sourceNameFromURL(in); got != want {
			t.Errorf("sourceNameFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFetchHonorsCancellation(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	t.Cleanup(slow.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(Options{Sources: []Source{{URL: slow.URL}}}, logging.Nop())
	f.opts.MaxRetries = 1

	items, reports := f.FetchAll(ctx)
	if len(items) != 0 {
		t.Errorf("expected no items after cancellation, got %d", len(items))
	}
	if reports[0].Err == nil {
		t.Error("expected error for cancelled fetch")
	}
}
