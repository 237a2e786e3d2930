package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gdlinsight/gdlinsight/internal/briefing"
	"github.com/gdlinsight/gdlinsight/internal/dashboard"
	"github.com/gdlinsight/gdlinsight/internal/database"
	"github.com/gdlinsight/gdlinsight/internal/news"
	"github.com/gdlinsight/gdlinsight/internal/record"
)

var (
	noSynthetic bool
	asJSON      bool
)

func allowSynthetic() bool {
	return cfg.Extraction.AllowSynthetic && !noSynthetic
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outcomeNote explains a degraded or failed result on stderr.
func outcomeNote(kind record.Kind, err error) {
	switch kind {
	case record.KindDegraded:
		fmt.Fprintf(os.Stderr, "Warning: showing synthetic data: %v\n", err)
	case record.KindErr:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}

func withDB(fn func(svc *dashboard.Service, db *database.DB) error) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}
	svc, _ := newService(db)
	return fn(svc, db)
}

// --- air command ---

var airSummary bool

var airCmd = &cobra.Command{
	Use:   "air",
	Short: "Show IMECA air quality per station",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(svc *dashboard.Service, _ *database.DB) error {
			ctx := cmd.Context()
			if airSummary {
				out := svc.AirSummary(ctx, allowSynthetic())
				outcomeNote(out.Kind, out.Err)
				if out.Kind == record.KindErr {
					return out.Err
				}
				if asJSON {
					return printJSON(out.Value)
				}
				r := out.Value
				fmt.Printf("%s: %d IMECA (%s)\n", r.Station, r.IndexValue, r.Status.Label())
				return nil
			}

			out := svc.AirStations(ctx, allowSynthetic())
			outcomeNote(out.Kind, out.Err)
			if out.Kind == record.KindErr {
				return out.Err
			}
			if asJSON {
				return printJSON(out.Value)
			}
			printStations(out.Value)
			return nil
		})
	},
}

func init() {
	airCmd.Flags().BoolVar(&airSummary, "summary", false, "Show only the headline reading")
	airCmd.Flags().BoolVar(&noSynthetic, "no-synthetic", false, "Fail instead of showing synthetic data")
	airCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
}

func printStations(readings []record.Reading) {
	fmt.Printf("%-22s %6s  %-22s %s\n", "Station", "IMECA", "Quality", "Time")
	for _, r := range readings {
		fmt.Printf("%-22s %6d  %-22s %s\n", r.Station, r.IndexValue, r.Status.Label(), r.ObservedAt)
	}
}

// --- water command ---

var historyPoints int

var waterCmd = &cobra.Command{
	Use:   "water",
	Short: "Show the Lake Chapala level",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(svc *dashboard.Service, _ *database.DB) error {
			out := svc.WaterLevel(cmd.Context(), allowSynthetic())
			outcomeNote(out.Kind, out.Err)
			if out.Kind == record.KindErr {
				return out.Err
			}

			var history []record.WaterHistoryPoint
			if historyPoints > 0 {
				history = svc.WaterHistory(historyPoints)
			}
			if asJSON {
				return printJSON(map[string]any{"level": out.Value, "history": history})
			}

			w := out.Value
			fmt.Printf("Chapala: %.2f %s (%s, %s)\n", w.ElevationMeters, w.Unit, w.Origin, w.ObservedAt)
			if w.EvidenceSnippet != "" {
				fmt.Printf("  \"%s\"\n", w.EvidenceSnippet)
			}
			if len(history) > 0 {
				fmt.Println("\nSimulated fill trend:")
				for _, p := range history {
					fmt.Printf("  %s  %5.1f%%  %s\n", p.Date, p.Percent, strings.Repeat("#", int(p.Percent/5)))
				}
			}
			return nil
		})
	},
}

func init() {
	waterCmd.Flags().IntVar(&historyPoints, "history", 0, "Also show a simulated fill trend of N days")
	waterCmd.Flags().BoolVar(&noSynthetic, "no-synthetic", false, "Fail instead of showing synthetic data")
	waterCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
}

// --- news command ---

var (
	newsMax     int
	newsNoAI    bool
	newsRefresh bool
)

var newsCmd = &cobra.Command{
	Use:   "news [topic]",
	Short: "Show summarized news (topics: env, chivas)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(svc *dashboard.Service, _ *database.DB) error {
			var keys []string
			if len(args) == 1 {
				keys = []string{args[0]}
			} else {
				for _, t := range svc.Topics() {
					keys = append(keys, t.Key)
				}
			}

			opts := news.Options{MaxItems: newsMax, UseAI: cfg.News.UseAI && !newsNoAI, Refresh: newsRefresh}
			all := map[string][]record.NewsItem{}
			for _, key := range keys {
				items, err := svc.News(cmd.Context(), key, opts)
				if err != nil {
					return err
				}
				all[key] = items
				if !asJSON {
					t, _ := svc.Topic(key)
					printNews(t.Name, items)
				}
			}
			if asJSON {
				return printJSON(all)
			}
			return nil
		})
	},
}

func init() {
	newsCmd.Flags().IntVar(&newsMax, "max", 0, "Maximum items per topic (default from config)")
	newsCmd.Flags().BoolVar(&newsNoAI, "no-ai", false, "Skip LLM summaries")
	newsCmd.Flags().BoolVar(&newsRefresh, "refresh", false, "Ignore today's cache")
	newsCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
}

func printNews(name string, items []record.NewsItem) {
	fmt.Printf("\n%s\n%s\n", name, strings.Repeat("=", len([]rune(name))))
	if len(items) == 0 {
		fmt.Println("  No news today.")
		return
	}
	for i, item := range items {
		rumor := ""
		if item.IsRumor {
			rumor = " [rumor]"
		}
		fmt.Printf("%d. %s (%s)%s\n", i+1, item.Title, item.Source, rumor)
		if item.AISummary != "" {
			fmt.Printf("   %s\n", item.AISummary)
		}
		fmt.Printf("   %s\n", item.Link)
	}
}

// --- dashboard command ---

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Fetch every dataset and print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(svc *dashboard.Service, _ *database.DB) error {
			snap := svc.Snapshot(cmd.Context(), dashboard.SnapshotOptions{
				AllowSynthetic: allowSynthetic(),
				UseAI:          cfg.News.UseAI && !newsNoAI,
				Refresh:        newsRefresh,
			})
			if asJSON {
				return printJSON(snap)
			}

			for i, step := range snap.Steps {
				fmt.Printf("\nStep %d/%d: %s [%s]\n", i+1, len(snap.Steps), step.Name, step.Kind)
				if step.Err != nil {
					fmt.Printf("  Error: %v\n", step.Err)
				}
				if step.Summary != "" {
					fmt.Printf("  %s\n", step.Summary)
				}
			}
			if len(snap.Stations) > 0 {
				fmt.Println()
				printStations(snap.Stations)
			}
			for _, tn := range snap.News {
				printNews(tn.Name, tn.Items)
			}
			return nil
		})
	},
}

func init() {
	dashboardCmd.Flags().BoolVar(&noSynthetic, "no-synthetic", false, "Fail instead of showing synthetic data")
	dashboardCmd.Flags().BoolVar(&newsNoAI, "no-ai", false, "Skip LLM summaries")
	dashboardCmd.Flags().BoolVar(&newsRefresh, "refresh", false, "Ignore today's news cache")
	dashboardCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
}

// --- briefing command ---

var briefingOut string

var briefingCmd = &cobra.Command{
	Use:   "briefing",
	Short: "Compose today's briefing",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}
		svc, provider := newService(db)
		composer := briefing.NewComposer(db, provider)

		if briefingOut == "" {
			snap := svc.Snapshot(cmd.Context(), dashboard.SnapshotOptions{AllowSynthetic: allowSynthetic(), UseAI: cfg.News.UseAI})
			b, err := composer.Compose(cmd.Context(), snap)
			if err != nil {
				return err
			}
			fmt.Print(briefing.Document(b))
			return nil
		}

		path, err := writeBriefing(cmd.Context(), svc, composer, briefingOut)
		if err != nil {
			return err
		}
		fmt.Printf("Briefing written to %s\n", path)
		return nil
	},
}

func init() {
	briefingCmd.Flags().StringVarP(&briefingOut, "out", "o", "", "Write into this directory instead of stdout")
	briefingCmd.Flags().BoolVar(&noSynthetic, "no-synthetic", false, "Omit synthetic data")
}

// --- history command ---

var historyDays int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded air and lake history",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := requireDB()
		if err != nil {
			return err
		}
		defer db.Close()
		svc, _ := newService(db)

		air, err := svc.AirHistory(historyDays)
		if err != nil {
			return err
		}
		water, err := svc.ElevationHistory(historyDays)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(map[string]any{"air": air, "water": water})
		}

		fmt.Printf("Air (last %d days, real readings only):\n", historyDays)
		if len(air) == 0 {
			fmt.Println("  none recorded")
		}
		for _, d := range air {
			fmt.Printf("  %s  max %3d (%s)  avg %5.1f  n=%d\n", database.FormatDateDisplay(d.Date), d.MaxIndex, d.Worst, d.AvgIndex, d.Readings)
		}

		fmt.Printf("\nChapala (last %d days):\n", historyDays)
		if len(water) == 0 {
			fmt.Println("  none recorded")
		}
		for _, w := range water {
			fmt.Printf("  %s  %.2f msnm\n", database.FormatDateDisplay(w.RecordedDate), w.Elevation)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyDays, "days", 7, "Number of days to show")
	historyCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
}
