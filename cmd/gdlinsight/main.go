package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/gdlinsight/gdlinsight/internal/briefing"
	"github.com/gdlinsight/gdlinsight/internal/config"
	"github.com/gdlinsight/gdlinsight/internal/dashboard"
	"github.com/gdlinsight/gdlinsight/internal/database"
	"github.com/gdlinsight/gdlinsight/internal/llm"
	"github.com/gdlinsight/gdlinsight/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "gdlinsight",
	Short:   "Guadalajara metro dashboard",
	Long:    "gdlinsight reports IMECA air quality per station, the Lake Chapala level and local news for the Guadalajara metropolitan area.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		if err := config.LoadDotEnv(); err != nil {
			log.Printf("Warning: %v", err)
		}

		path, err := config.ResolveConfigPath(configPath)
		switch {
		case err == nil:
			cfg, err = config.Load(path)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		case configPath == "":
			cfg = config.Default()
		default:
			return err
		}
		if strings.EqualFold(cfg.Logging.Level, "DEBUG") {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(airCmd)
	rootCmd.AddCommand(waterCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(briefingCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("gdlinsight", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/gdlinsight/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Put GOOGLE_API_KEY in ~/.config/gdlinsight/.env to enable news summaries.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show history database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := requireDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Today: %s\n", database.GetToday())
		fmt.Printf("History: %s\n\n", db.Path())
		fmt.Println("Air:")
		fmt.Printf("  Readings stored: %d (%d real)\n", stats.AirReadings, stats.RealAirReadings)
		fmt.Println("\nChapala:")
		fmt.Printf("  Levels stored: %d (%d real)\n", stats.WaterLevels, stats.RealWaterLevels)
		fmt.Println("\nRuns:")
		fmt.Printf("  Total: %d\n", stats.Runs)
		fmt.Printf("  Degraded: %d\n", stats.DegradedRuns)
		fmt.Printf("  Failed: %d\n", stats.FailedRuns)
		fmt.Println("\nOutput:")
		fmt.Printf("  Briefings: %d\n", stats.Briefings)
		fmt.Printf("  Days with data: %d\n", stats.DaysRecorded)
		fmt.Printf("\nSummarizer credential: %s\n", credentialState())

		reports, err := db.GetRecentReports(5)
		if err != nil {
			return err
		}
		if len(reports) > 0 {
			fmt.Println("\nRecent runs:")
			for _, r := range reports {
				line := fmt.Sprintf("  %s  %-14s %-9s %d", deref(r.RunAt), r.Dataset, r.Outcome, r.ItemCount)
				if r.Error != nil {
					line += "  " + *r.Error
				}
				fmt.Println(line)
			}
		}
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		svc, provider := newService(db)
		srv, err := server.New(svc, db, briefing.NewComposer(db, provider), cfg.Server.MemoTTL)
		if err != nil {
			return err
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(ctx, srv, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- schedule command ---

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Write the daily briefing on the configured cron schedule",
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

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := cron.New()
		_, err = c.AddFunc(cfg.Briefing.Schedule, func() {
			path, err := writeBriefing(ctx, svc, composer, cfg.GetBriefingDir())
			if err != nil {
				log.Printf("Scheduled briefing failed: %v", err)
				return
			}
			log.Printf("Briefing written to %s", path)
		})
		if err != nil {
			return fmt.Errorf("invalid schedule %q: %w", cfg.Briefing.Schedule, err)
		}

		c.Start()
		fmt.Printf("Writing briefings to %s on schedule %q\n", cfg.GetBriefingDir(), cfg.Briefing.Schedule)
		fmt.Println("Press Ctrl+C to stop")
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	},
}

func writeBriefing(ctx context.Context, svc *dashboard.Service, composer *briefing.Composer, dir string) (string, error) {
	snap := svc.Snapshot(ctx, dashboard.SnapshotOptions{
		AllowSynthetic: allowSynthetic(),
		UseAI:          cfg.News.UseAI,
	})
	b, err := composer.Compose(ctx, snap)
	if err != nil {
		return "", err
	}
	return briefing.Write(dir, b)
}

// newService builds the dashboard service and the LLM provider it uses.
func newService(db *database.DB) (*dashboard.Service, llm.Provider) {
	summ := cfg.Summarization
	provider := llm.CreateProvider(summ.Provider, summ.BaseURL, summ.APIKey(), summ.OllamaURL, summ.OllamaModel)
	return dashboard.New(cfg, db, provider), provider
}

// openDB opens the history database, or returns nil when history is disabled.
func openDB() (*database.DB, error) {
	if !cfg.History.Enabled {
		return nil, nil
	}
	return database.Open(cfg.HistoryDBPath())
}

func requireDB() (*database.DB, error) {
	if !cfg.History.Enabled {
		return nil, errors.New("history is disabled in config (history.enabled)")
	}
	if _, err := os.Stat(cfg.HistoryDBPath()); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no history yet at %s; run 'gdlinsight dashboard' first", cfg.HistoryDBPath())
	}
	return database.Open(cfg.HistoryDBPath())
}

func credentialState() string {
	if cfg.Summarization.APIKey() != "" {
		return "set"
	}
	return "missing (summaries fall back to truncation)"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
