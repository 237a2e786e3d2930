// Package dashboard exposes the public entry points: air quality per station,
// the headline air reading, the Chapala level, topic news and a combined
// snapshot. Every entry point returns a best-effort record or a single
// *retry.FetchError.
package dashboard

import (
	"context"
	"fmt"
	"log"

	"github.com/gdlinsight/gdlinsight/internal/config"
	"github.com/gdlinsight/gdlinsight/internal/dailycache"
	"github.com/gdlinsight/gdlinsight/internal/database"
	"github.com/gdlinsight/gdlinsight/internal/extract"
	"github.com/gdlinsight/gdlinsight/internal/fetch"
	"github.com/gdlinsight/gdlinsight/internal/llm"
	"github.com/gdlinsight/gdlinsight/internal/news"
	"github.com/gdlinsight/gdlinsight/internal/normalize"
	"github.com/gdlinsight/gdlinsight/internal/record"
	"github.com/gdlinsight/gdlinsight/internal/retry"
	"github.com/gdlinsight/gdlinsight/internal/station"
	"github.com/gdlinsight/gdlinsight/internal/summarize"
)

// zoneName labels a headline value the page does not attribute to a station.
const zoneName = "ZMG"

// Service wires the fetchers, extractors and stores together.
type Service struct {
	cfg      *config.Config
	registry *station.Registry
	norm     *normalize.Normalizer
	retry    *retry.Controller
	air      *fetch.Client
	water    *fetch.Client
	news     *news.Collector
	history  *database.DB
}

// New creates a service. provider and history may be nil.
func New(cfg *config.Config, history *database.DB, provider llm.Provider) *Service {
	registry := station.Default()
	norm := normalize.New(registry, nil)
	if cfg.Water.FallbackElevation > 0 {
		norm.SyntheticElevation = cfg.Water.FallbackElevation
	}

	rc := retry.New(cfg.Retry.Attempts, cfg.Retry.Delay)
	ua := cfg.Sources.UserAgent

	summ := cfg.Summarization
	models := summ.Models
	if _, ok := provider.(*llm.OllamaProvider); ok {
		// Ollama serves a single local model.
		models = nil
	}
	summarizer := summarize.New(provider, models, summ.MaxTokens, summ.TruncateAt)

	collector := news.NewCollector(
		fetch.NewClient(cfg.Sources.NewsTimeout, ua),
		rc,
		dailycache.New(cfg.GetCacheDir()),
		summarizer,
	)
	collector.Enrich = cfg.News.Enrich

	return &Service{
		cfg:      cfg,
		registry: registry,
		norm:     norm,
		retry:    rc,
		air:      fetch.NewClient(cfg.Sources.AirTimeout, ua),
		water:    fetch.NewClient(cfg.Sources.WaterTimeout, ua),
		news:     collector,
		history:  history,
	}
}

// Registry returns the station registry.
func (s *Service) Registry() *station.Registry { return s.registry }

// AllowSynthetic is the configured fallback policy.
func (s *Service) AllowSynthetic() bool { return s.cfg.Extraction.AllowSynthetic }

// AirStations returns one reading per recovered station. Fewer than the
// configured minimum counts as a failed scrape; with allowSynthetic the full
// synthetic set is returned instead, never a mix.
func (s *Service) AirStations(ctx context.Context, allowSynthetic bool) record.Outcome[[]record.Reading] {
	out := retry.Do(ctx, s.retry, "air", s.getter(s.air, s.cfg.Sources.AirURL), s.parseStations, allowSynthetic, s.norm.SyntheticStations)
	s.recordAir(out)
	return out
}

func (s *Service) parseStations(raw string) ([]record.Reading, error) {
	found, err := extract.ExtractStations(extract.NewPage(raw), s.registry, s.cfg.Extraction.MinStations)
	if err != nil {
		return nil, err
	}
	readings := make([]record.Reading, 0, len(found))
	for _, sv := range found {
		readings = append(readings, s.norm.Reading(sv.Value, sv.Station.Name, record.OriginReal))
	}
	return readings, nil
}

// AirSummary returns the headline reading: the worst station when the
// station table is readable, else the single index the page states.
func (s *Service) AirSummary(ctx context.Context, allowSynthetic bool) record.Outcome[record.Reading] {
	synth := func() record.Reading {
		worst, _ := normalize.Summary(s.norm.SyntheticStations())
		return worst
	}
	out := retry.Do(ctx, s.retry, "air summary", s.getter(s.air, s.cfg.Sources.AirURL), s.parseSummary, allowSynthetic, synth)
	s.report("air summary", out.Kind, 1, out.Err)
	return out
}

func (s *Service) parseSummary(raw string) (record.Reading, error) {
	page := extract.NewPage(raw)
	if readings, err := s.parseStations(raw); err == nil {
		worst, _ := normalize.Summary(readings)
		return s.applyStatusText(page, worst), nil
	}
	ai, err := extract.ExtractAirIndex(page)
	if err != nil {
		return record.Reading{}, err
	}
	name := ai.Station
	if name == "" {
		name = zoneName
	}
	r := s.norm.Reading(ai.Value, name, record.OriginReal)
	if ai.StatusOverride != "" && ai.StatusOverride != r.Status {
		r.Status = ai.StatusOverride
		r.StatusOverridden = true
	}
	return r, nil
}

func (s *Service) applyStatusText(page *extract.Page, r record.Reading) record.Reading {
	if st, ok := extract.StatusText(page); ok && st != r.Status {
		r.Status = st
		r.StatusOverridden = true
	}
	return r
}

// WaterLevel returns the current Chapala elevation.
func (s *Service) WaterLevel(ctx context.Context, allowSynthetic bool) record.Outcome[record.WaterLevel] {
	parse := func(raw string) (record.WaterLevel, error) {
		e, err := extract.ExtractWaterLevel(extract.NewPage(raw), s.cfg.Water.MinElevation, s.cfg.Water.MaxElevation)
		if err != nil {
			return record.WaterLevel{}, err
		}
		return s.norm.WaterLevel(e.Meters, e.Snippet, record.OriginReal), nil
	}
	out := retry.Do(ctx, s.retry, "water", s.getter(s.water, s.cfg.Sources.WaterURL), parse, allowSynthetic, s.norm.SyntheticWaterLevel)
	s.recordWater(out)
	return out
}

// WaterHistory returns the simulated fill-percentage trend.
func (s *Service) WaterHistory(days int) []record.WaterHistoryPoint {
	if days <= 0 {
		days = s.cfg.Water.HistoryDays
	}
	return s.norm.SyntheticWaterHistory(days)
}

// ElevationHistory returns recorded real elevations of the last days.
func (s *Service) ElevationHistory(days int) ([]database.WaterRow, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.GetWaterHistory(database.DaysBefore(database.GetToday(), days))
}

// AirHistory returns recorded daily air aggregates of the last days.
func (s *Service) AirHistory(days int) ([]database.DailyAir, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.GetAirHistory(database.DaysBefore(database.GetToday(), days))
}

// Topics returns the configured news topics.
func (s *Service) Topics() []config.Topic { return s.cfg.News.Topics }

// Topic returns the configured topic with the given key.
func (s *Service) Topic(key string) (config.Topic, bool) { return s.cfg.Topic(key) }

// News returns the items of a configured topic.
func (s *Service) News(ctx context.Context, topicKey string, opts news.Options) ([]record.NewsItem, error) {
	t, ok := s.cfg.Topic(topicKey)
	if !ok {
		return nil, fmt.Errorf("unknown news topic %q", topicKey)
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = s.cfg.News.MaxItems
	}
	items, err := s.news.Collect(ctx, news.Topic{Key: t.Key, URL: t.URL, DefaultSource: t.DefaultSource}, opts)
	kind := record.KindOK
	if err != nil {
		kind = record.KindErr
	}
	s.report(t.Key+" news", kind, len(items), err)
	return items, err
}

func (s *Service) getter(c *fetch.Client, url string) retry.Fetcher {
	return func(ctx context.Context) (string, error) { return c.Get(ctx, url) }
}

func (s *Service) recordAir(out record.Outcome[[]record.Reading]) {
	s.report("air", out.Kind, len(out.Value), out.Err)
	if s.history == nil || len(out.Value) == 0 {
		return
	}
	if err := s.history.InsertAirReadings(database.GetToday(), out.Value); err != nil {
		log.Printf("History: storing air readings: %v", err)
	}
}

func (s *Service) recordWater(out record.Outcome[record.WaterLevel]) {
	n := 0
	if out.Kind != record.KindErr {
		n = 1
	}
	s.report("water", out.Kind, n, out.Err)
	if s.history == nil || n == 0 {
		return
	}
	if _, err := s.history.InsertWaterLevel(database.GetToday(), out.Value); err != nil {
		log.Printf("History: storing water level: %v", err)
	}
}

func (s *Service) report(dataset string, kind record.Kind, count int, err error) {
	if s.history == nil {
		return
	}
	var msg string
	if err != nil {
		msg = err.Error()
	}
	if _, herr := s.history.InsertReport(dataset, kind.String(), count, msg); herr != nil {
		log.Printf("History: storing run report: %v", herr)
	}
}
