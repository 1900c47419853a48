// Package server provides the moderation web UI for pending stories.
package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/globaltravelreport/contentbot/internal/store"
	"github.com/globaltravelreport/contentbot/internal/story"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the HTTP server for the moderation queue.
type Server struct {
	db    *store.DB
	pages map[string]*template.Template
	mux   *http.ServeMux
	log   *zap.SugaredLogger
}

// New creates a new Server.
func New(db *store.DB, log *zap.SugaredLogger) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2 Jan 2006 15:04")
		},
		"pct": func(v float64) string {
			return fmt.Sprintf("%.0f%%", v*100)
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page clones the base so it owns its {{define "content"}}.
	pageNames := []string{"index.html", "story.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err = clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, pages: pages, mux: http.NewServeMux(), log: log}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/story/", s.handleStory)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	status := story.Status(r.URL.Query().Get("status"))
	switch status {
	case story.StatusPending, story.StatusApproved, story.StatusRejected, story.StatusPublished:
	default:
		status = story.StatusPending
	}

	stories, err := s.db.ListByStatus(status)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	counts, _ := s.db.CountByStatus()

	s.render(w, "index.html", map[string]any{
		"Status":  string(status),
		"Stories": stories,
		"Counts":  counts,
	})
}

// handleStory serves the detail page and the moderation actions:
// GET /story/{key}, POST /story/{key}/approve|reject|publish.
func (s *Server) handleStory(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/story/")
	key, action, hasAction := strings.Cut(path, "/")
	if key == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if hasAction {
		if r.Method != http.MethodPost {
			http.Redirect(w, r, "/story/"+key, http.StatusFound)
			return
		}
		s.handleAction(w, r, key, action)
		return
	}

	st, err := s.db.GetByIdentityKey(key)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if st == nil {
		http.NotFound(w, r)
		return
	}

	records, _ := s.db.ListDistributionRecords(key)

	s.render(w, "story.html", map[string]any{
		"Story":   st,
		"Records": records,
	})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request, key, action string) {
	var err error
	switch action {
	case "approve":
		err = s.db.Approve(key)
	case "reject":
		err = s.db.Reject(key)
	case "publish":
		err = s.db.Publish(key, time.Now())
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		s.log.Warnw("moderation action failed", "key", key, "action", action, "error", err)
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	s.log.Infow("moderation action", "key", key, "action", action)
	http.Redirect(w, r, "/story/"+key, http.StatusFound)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.log.Errorw("template not found", "name", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		s.log.Errorw("template render failed", "name", name, "error", err)
	}
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(db *store.DB, port int, log *zap.SugaredLogger) error {
	srv, err := New(db, log)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Infof("Moderation UI listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
