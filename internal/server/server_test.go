package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gdlinsight/gdlinsight/internal/briefing"
	"github.com/gdlinsight/gdlinsight/internal/config"
	"github.com/gdlinsight/gdlinsight/internal/dashboard"
	"github.com/gdlinsight/gdlinsight/internal/database"
)

const stationPage = `<table>
<tr><td>Las Pintas</td><td>105</td></tr>
<tr><td>Miravalle</td><td>98</td></tr>
<tr><td>Centro</td><td>64</td></tr>
<tr><td>Tlaquepaque</td><td>88</td></tr>
<tr><td>Águilas</td><td>51</td></tr>
</table>`

const feed = `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>t</title>
<item><title>Reforestan el Colli</title><link>https://example.com/1</link><description>Jornada de reforestación</description></item>
</channel></rss>`

type fixture struct {
	srv     *Server
	db      *database.DB
	airHits *int32
}

func counting(t *testing.T, status int, body string, hits *int32) string {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts.URL
}

func newFixture(t *testing.T, airStatus int) *fixture {
	t.Helper()
	var airHits, other int32
	cfg := config.Default()
	cfg.Retry.Attempts = 1
	cfg.Retry.Delay = 0
	cfg.Output.CacheDir = t.TempDir()
	cfg.Sources.AirURL = counting(t, airStatus, stationPage, &airHits)
	cfg.Sources.WaterURL = counting(t, http.StatusOK, "<p>Cota: 94.56 msnm</p>", &other)
	feedURL := counting(t, http.StatusOK, feed, &other)
	for i := range cfg.News.Topics {
		cfg.News.Topics[i].URL = feedURL
	}

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := dashboard.New(cfg, db, nil)
	srv, err := New(svc, db, briefing.NewComposer(db, nil), 10*time.Minute)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return &fixture{srv: srv, db: db, airHits: &airHits}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestIndexRoute(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	rec := f.get(t, "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Tablero ZMG", "Las Pintas", "94.56 msnm", "Reforestan el Colli"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response body", want)
		}
	}
	if strings.Contains(body, "Datos simulados") {
		t.Error("real readings must not be marked simulated")
	}
}

func TestUnknownPath(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	if rec := f.get(t, "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestBriefingRouteComposes(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	rec := f.get(t, "/briefing")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<table>") {
		t.Error("expected rendered station table")
	}
	stored, err := f.db.GetBriefing(database.GetToday())
	if err != nil || stored == nil {
		t.Fatalf("expected briefing stored, got %v", err)
	}
}

func TestBriefingRouteUsesStored(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	f.db.InsertBriefing(database.GetToday(), "Titular guardado", "## Sección\nContenido")

	rec := f.get(t, "/briefing")
	body := rec.Body.String()
	if !strings.Contains(body, "Titular guardado") {
		t.Error("expected stored headline")
	}
	if !strings.Contains(body, "<h2>Sección</h2>") {
		t.Error("expected markdown rendered")
	}
	if atomic.LoadInt32(f.airHits) != 0 {
		t.Error("stored briefing must not trigger a fetch")
	}
}

func TestAirAPI(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	rec := f.get(t, "/api/air")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("unexpected content type %q", ct)
	}
	body := decode(t, rec)
	if body["outcome"] != "ok" {
		t.Errorf("expected outcome ok, got %v", body["outcome"])
	}
	if data, _ := body["data"].([]any); len(data) != 5 {
		t.Errorf("expected 5 stations, got %v", body["data"])
	}
}

func TestAirAPIMemoized(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	clock := time.Date(2026, 2, 6, 9, 0, 0, 0, time.Local)
	f.srv.now = func() time.Time { return clock }

	f.get(t, "/api/air")
	f.get(t, "/api/air")
	if got := atomic.LoadInt32(f.airHits); got != 1 {
		t.Errorf("expected 1 upstream fetch within ttl, got %d", got)
	}

	clock = clock.Add(11 * time.Minute)
	f.get(t, "/api/air")
	if got := atomic.LoadInt32(f.airHits); got != 2 {
		t.Errorf("expected refetch after ttl, got %d", got)
	}
}

func TestAirAPIDegraded(t *testing.T) {
	f := newFixture(t, http.StatusServiceUnavailable)
	body := decode(t, f.get(t, "/api/air"))

	if body["outcome"] != "degraded" {
		t.Errorf("expected degraded, got %v", body["outcome"])
	}
	if body["error"] == nil {
		t.Error("expected error cause")
	}
	data, _ := body["data"].([]any)
	if len(data) == 0 {
		t.Fatal("expected synthetic stations")
	}
	if first, _ := data[0].(map[string]any); first["origin"] != "synthetic" {
		t.Errorf("expected synthetic origin, got %v", first["origin"])
	}
}

func TestAirSummaryAPI(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	body := decode(t, f.get(t, "/api/air/summary"))
	data, _ := body["data"].(map[string]any)
	if data["station"] != "Las Pintas" {
		t.Errorf("expected worst station Las Pintas, got %v", data["station"])
	}
}

func TestWaterAPI(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	body := decode(t, f.get(t, "/api/water"))
	data, _ := body["data"].(map[string]any)
	if data["elevation_meters"] != 94.56 {
		t.Errorf("unexpected elevation %v", data["elevation_meters"])
	}
}

func TestWaterHistoryAPI(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	body := decode(t, f.get(t, "/api/water/history?days=7"))
	if data, _ := body["data"].([]any); len(data) != 7 {
		t.Errorf("expected 7 points, got %v", body["data"])
	}
}

func TestNewsAPI(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	rec := f.get(t, "/api/news/env?ai=0")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data, _ := decode(t, rec)["data"].([]any)
	if len(data) != 1 {
		t.Fatalf("expected 1 item, got %v", data)
	}
	if item, _ := data[0].(map[string]any); item["ai_summary"] != "Jornada de reforestación" {
		t.Errorf("unexpected summary %v", item["ai_summary"])
	}
}

func TestNewsAPIUnknownTopic(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	if rec := f.get(t, "/api/news/deportes"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, http.StatusOK)
	if body := decode(t, f.get(t, "/healthz")); body["status"] != "ok" {
		t.Errorf("unexpected health %v", body)
	}
}
