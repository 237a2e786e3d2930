package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdlinsight/gdlinsight/internal/news"
	"github.com/gdlinsight/gdlinsight/internal/normalize"
	"github.com/gdlinsight/gdlinsight/internal/record"
)

// StepResult holds the result of a single dataset fetch.
type StepResult struct {
	Name    string      `json:"name"`
	Kind    record.Kind `json:"outcome"`
	Summary string      `json:"summary,omitempty"`
	Err     error       `json:"-"`
	Error   string      `json:"error,omitempty"`
}

// TopicNews is the news section of one topic.
type TopicNews struct {
	Key   string            `json:"key"`
	Name  string            `json:"name"`
	Items []record.NewsItem `json:"items"`
	Err   error             `json:"-"`
	Error string            `json:"error,omitempty"`
}

// Snapshot is everything the dashboard shows at one moment.
type Snapshot struct {
	Date     string                     `json:"date"`
	TakenAt  time.Time                  `json:"taken_at"`
	Stations []record.Reading           `json:"stations"`
	Worst    *record.Reading            `json:"worst,omitempty"`
	Water    *record.WaterLevel         `json:"water,omitempty"`
	History  []record.WaterHistoryPoint `json:"water_history"`
	News     []TopicNews                `json:"news"`
	Steps    []StepResult               `json:"steps"`
}

// SnapshotOptions control a snapshot.
type SnapshotOptions struct {
	AllowSynthetic bool
	UseAI          bool
	Refresh        bool
}

// Snapshot fetches every dataset in parallel. Each fetch keeps its own
// retry-then-fallback sequence.
func (s *Service) Snapshot(ctx context.Context, opts SnapshotOptions) *Snapshot {
	now := time.Now()
	snap := &Snapshot{Date: now.Format("2006-01-02"), TakenAt: now}
	topics := s.Topics()
	snap.News = make([]TopicNews, len(topics))

	// Each goroutine owns one step slot, so steps keep a stable order.
	snap.Steps = make([]StepResult, 2+len(topics))
	setStep := func(i int, step StepResult) {
		if step.Err != nil {
			step.Error = step.Err.Error()
		}
		snap.Steps[i] = step
	}

	var wg sync.WaitGroup

	wg.Add(2 + len(topics))
	go func() {
		defer wg.Done()
		out := s.AirStations(ctx, opts.AllowSynthetic)
		step := StepResult{Name: "Air", Kind: out.Kind, Err: out.Err}
		if out.Kind != record.KindErr {
			snap.Stations = out.Value
			if worst, ok := normalize.Summary(out.Value); ok {
				snap.Worst = &worst
				step.Summary = fmt.Sprintf("%d stations, worst %s %d (%s)", len(out.Value), worst.Station, worst.IndexValue, worst.Status.Label())
			}
		}
		setStep(0, step)
	}()
	go func() {
		defer wg.Done()
		out := s.WaterLevel(ctx, opts.AllowSynthetic)
		step := StepResult{Name: "Water", Kind: out.Kind, Err: out.Err}
		if out.Kind != record.KindErr {
			w := out.Value
			snap.Water = &w
			step.Summary = fmt.Sprintf("Chapala %.2f %s", w.ElevationMeters, w.Unit)
		}
		setStep(1, step)
	}()
	for i, t := range topics {
		go func() {
			defer wg.Done()
			items, err := s.News(ctx, t.Key, news.Options{UseAI: opts.UseAI, Refresh: opts.Refresh})
			tn := TopicNews{Key: t.Key, Name: t.Name, Items: items, Err: err}
			if err != nil {
				tn.Error = err.Error()
			}
			snap.News[i] = tn
			step := StepResult{Name: "News " + t.Name, Kind: record.KindOK, Err: err,
				Summary: fmt.Sprintf("%d items", len(items))}
			if err != nil {
				step.Kind = record.KindErr
			}
			setStep(2+i, step)
		}()
	}
	wg.Wait()

	snap.History = s.WaterHistory(0)
	return snap
}
