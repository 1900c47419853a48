package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/globaltravelreport/contentbot/internal/logging"
	"github.com/globaltravelreport/contentbot/internal/store"
	"github.com/globaltravelreport/contentbot/internal/story"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedStory(t *testing.T, db *store.DB, key string) story.Story {
	t.Helper()
	s := story.Story{
		IdentityKey: key,
		Slug:        "roadtrip-through-tasmania",
		Title:       "Roadtrip Through Tasmania",
		Body:        "## Day one\n\nHobart to Freycinet along the coast.",
		Excerpt:     "Hobart to Freycinet along the coast.",
		Category:    "Destinations",
		Country:     "Australia",
		SourceURL:   "https://example.com/" + key,
		ContentHash: "hash-" + key,
		Quality: story.QualityMetrics{
			Relevance: 0.9, Readability: 0.8, Completeness: 0.9,
			Uniqueness: 0.8, Overall: 0.86,
		},
		OriginalPublishedAt: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
		FirstSeenAt:         time.Date(2026, 8, 21, 6, 0, 0, 0, time.UTC),
		Status:              story.StatusPending,
	}
	if _, err := db.InsertPending(s); err != nil {
		t.Fatalf("seeding story: %v", err)
	}
	return s
}

func newTestServer(t *testing.T, db *store.DB) *Server {
	t.Helper()
	srv, err := New(db, logging.Nop())
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

func TestIndexRoute(t *testing.T) {
	db := openTestDB(t)
	seedStory(t, db, "feed-a")
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Roadtrip Through Tasmania") {
		t.Error("expected pending story title in response body")
	}
}

func TestIndexFiltersByStatus(t *testing.T) {
	db := openTestDB(t)
	seedStory(t, db, "feed-a")
	db.Approve("feed-a")
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/?status=pending", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if strings.Contains(rec.Body.String(), "Roadtrip Through Tasmania") {
		t.Error("approved story must not appear in the pending view")
	}

	req = httptest.NewRequest("GET", "/?status=approved", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "Roadtrip Through Tasmania") {
		t.Error("expected approved story in the approved view")
	}
}

func TestStoryRoute(t *testing.T) {
	db := openTestDB(t)
	seedStory(t, db, "feed-a")
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/story/feed-a", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h2") || !strings.Contains(body, "Day one") {
		t.Error("expected rendered markdown body")
	}
	if !strings.Contains(body, "/story/feed-a/approve") {
		t.Error("pending story should offer the approve action")
	}
}

func TestStoryNotFound(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/story/feed-missing", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestApproveAction(t *testing.T) {
	db := openTestDB(t)
	seedStory(t, db, "feed-a")
	srv := newTestServer(t, db)

	req := httptest.NewRequest("POST", "/story/feed-a/approve", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	s, _ := db.GetByIdentityKey("feed-a")
	if s.Status != story.StatusApproved {
		t.Errorf("expected approved, got %s", s.Status)
	}
}

func TestPublishActionRequiresApproval(t *testing.T) {
	db := openTestDB(t)
	seedStory(t, db, "feed-a")
	srv := newTestServer(t, db)

	req := httptest.NewRequest("POST", "/story/feed-a/publish", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("publishing a pending story should conflict, got %d", rec.Code)
	}
	s, _ := db.GetByIdentityKey("feed-a")
	if s.Status != story.StatusPending {
		t.Errorf("story status must be unchanged, got %s", s.Status)
	}
}

func TestActionRejectsGET(t *testing.T) {
	db := openTestDB(t)
	seedStory(t, db, "feed-a")
	srv := newTestServer(t, db)

	req := httptest.NewRequest("GET", "/story/feed-a/approve", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected redirect, got %d", rec.Code)
	}
	s, _ := db.GetByIdentityKey("feed-a")
	if s.Status != story.StatusPending {
		t.Error("GET must not mutate story status")
	}
}
