package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/gdlinsight/gdlinsight/internal/briefing"
	"github.com/gdlinsight/gdlinsight/internal/dashboard"
	"github.com/gdlinsight/gdlinsight/internal/database"
	"github.com/gdlinsight/gdlinsight/internal/news"
	"github.com/gdlinsight/gdlinsight/internal/record"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

// Server is the HTTP dashboard.
type Server struct {
	svc      *dashboard.Service
	db       *database.DB
	composer *briefing.Composer
	pages    map[string]*template.Template
	mux      *http.ServeMux

	ttl  time.Duration
	now  func() time.Time
	mu   sync.Mutex
	memo map[string]memoEntry
}

type memoEntry struct {
	at    time.Time
	value any
}

// apiResponse is the JSON envelope of every /api route.
type apiResponse struct {
	Outcome string `json:"outcome"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"`
}

// New creates a new Server. db may be nil; results are memoized for ttl.
func New(svc *dashboard.Service, db *database.DB, composer *briefing.Composer, ttl time.Duration) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"formatDate": database.FormatDateDisplay,
		"synthetic":  func(o record.Origin) bool { return o == record.OriginSynthetic },
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so {{define "content"}} does not collide.
	pageNames := []string{"index.html", "briefing.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		svc:      svc,
		db:       db,
		composer: composer,
		pages:    pages,
		mux:      http.NewServeMux(),
		ttl:      ttl,
		now:      time.Now,
		memo:     make(map[string]memoEntry),
	}
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

	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /briefing", s.handleBriefing)
	s.mux.HandleFunc("GET /api/air", s.handleAir)
	s.mux.HandleFunc("GET /api/air/summary", s.handleAirSummary)
	s.mux.HandleFunc("GET /api/water", s.handleWater)
	s.mux.HandleFunc("GET /api/water/history", s.handleWaterHistory)
	s.mux.HandleFunc("GET /api/news/{topic}", s.handleNews)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// memoize returns the value cached under key when younger than the ttl.
func (s *Server) memoize(key string, fn func() any) any {
	s.mu.Lock()
	e, ok := s.memo[key]
	s.mu.Unlock()
	if ok && s.now().Sub(e.at) < s.ttl {
		return e.value
	}

	v := fn()
	s.mu.Lock()
	s.memo[key] = memoEntry{at: s.now(), value: v}
	s.mu.Unlock()
	return v
}

func (s *Server) snapshot(ctx context.Context) *dashboard.Snapshot {
	return s.memoize("snapshot", func() any {
		return s.svc.Snapshot(ctx, dashboard.SnapshotOptions{
			AllowSynthetic: s.svc.AllowSynthetic(),
			UseAI:          true,
		})
	}).(*dashboard.Snapshot)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index.html", map[string]any{
		"Snap": s.snapshot(r.Context()),
	})
}

func (s *Server) handleBriefing(w http.ResponseWriter, r *http.Request) {
	var b *database.Briefing
	if s.db != nil {
		b, _ = s.db.GetBriefing(database.GetToday())
	}
	if b == nil && s.composer != nil {
		var err error
		b, err = s.composer.Compose(r.Context(), s.snapshot(r.Context()))
		if err != nil {
			log.Printf("Composing briefing: %v", err)
		}
	}
	s.render(w, "briefing.html", map[string]any{
		"Briefing": b,
	})
}

func (s *Server) handleAir(w http.ResponseWriter, r *http.Request) {
	out := s.memoize("air", func() any {
		return s.svc.AirStations(r.Context(), s.svc.AllowSynthetic())
	}).(record.Outcome[[]record.Reading])
	writeOutcome(w, out.Kind, out.Value, out.Err)
}

func (s *Server) handleAirSummary(w http.ResponseWriter, r *http.Request) {
	out := s.memoize("air/summary", func() any {
		return s.svc.AirSummary(r.Context(), s.svc.AllowSynthetic())
	}).(record.Outcome[record.Reading])
	writeOutcome(w, out.Kind, out.Value, out.Err)
}

func (s *Server) handleWater(w http.ResponseWriter, r *http.Request) {
	out := s.memoize("water", func() any {
		return s.svc.WaterLevel(r.Context(), s.svc.AllowSynthetic())
	}).(record.Outcome[record.WaterLevel])
	writeOutcome(w, out.Kind, out.Value, out.Err)
}

func (s *Server) handleWaterHistory(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	writeJSON(w, http.StatusOK, apiResponse{
		Outcome: record.KindDegraded.String(),
		Data:    s.svc.WaterHistory(days),
	})
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	topic := r.PathValue("topic")
	useAI := r.URL.Query().Get("ai") != "0"
	type result struct {
		items []record.NewsItem
		err   error
	}
	res := s.memoize(fmt.Sprintf("news/%s/%t", topic, useAI), func() any {
		items, err := s.svc.News(r.Context(), topic, news.Options{UseAI: useAI})
		return result{items, err}
	}).(result)

	if res.err != nil {
		if _, ok := s.svc.Topic(topic); !ok {
			writeJSON(w, http.StatusNotFound, apiResponse{Outcome: record.KindErr.String(), Error: res.err.Error()})
			return
		}
	}
	kind := record.KindOK
	if res.err != nil {
		kind = record.KindErr
	}
	writeOutcome(w, kind, res.items, res.err)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeOutcome(w http.ResponseWriter, kind record.Kind, data any, err error) {
	resp := apiResponse{Outcome: kind.String(), Data: data}
	if err != nil {
		resp.Error = err.Error()
	}
	status := http.StatusOK
	if kind == record.KindErr {
		status = http.StatusBadGateway
		resp.Data = nil
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(ctx context.Context, srv *Server, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	hs := &http.Server{Addr: addr, Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		hs.Shutdown(shutdownCtx)
	}()

	log.Printf("Server listening on http://%s", addr)
	if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
