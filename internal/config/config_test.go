package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if len(cfg.News.Topics) != 2 {
		t.Errorf("expected 2 topics, got %d", len(cfg.News.Topics))
	}
	if cfg.Summarization.Provider != "openai" {
		t.Errorf("expected provider 'openai', got %q", cfg.Summarization.Provider)
	}
	if len(cfg.Summarization.Models) != 2 || cfg.Summarization.Models[0] != "gemini-2.5-flash-lite" {
		t.Errorf("unexpected models %v", cfg.Summarization.Models)
	}
	if cfg.Sources.AirTimeout != 10*time.Second {
		t.Errorf("expected air timeout 10s, got %v", cfg.Sources.AirTimeout)
	}
	if cfg.Server.MemoTTL != 10*time.Minute {
		t.Errorf("expected memo ttl 10m, got %v", cfg.Server.MemoTTL)
	}
	if cfg.Extraction.MinStations != 5 {
		t.Errorf("expected min_stations 5, got %d", cfg.Extraction.MinStations)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
retry:
  attempts: 5
server:
  port: 9000
extraction:
  allow_synthetic: false
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Retry.Attempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.Retry.Attempts)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Extraction.AllowSynthetic {
		t.Error("expected allow_synthetic false")
	}
	// Defaults should still be set for unspecified fields
	if cfg.Retry.Delay != 2*time.Second {
		t.Errorf("expected default delay, got %v", cfg.Retry.Delay)
	}
	if cfg.Water.MaxElevation != 100 {
		t.Errorf("expected default max elevation, got %v", cfg.Water.MaxElevation)
	}
	if _, ok := cfg.Topic("CHIVAS"); !ok {
		t.Error("expected default chivas topic")
	}
}

func TestParseInvalidDuration(t *testing.T) {
	if _, err := parse([]byte("retry:\n  delay: soon\n")); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	topic, ok := cfg.Topic("env")
	if !ok {
		t.Fatal("expected env topic")
	}
	if topic.DefaultSource != "Google News" {
		t.Errorf("expected default source 'Google News', got %q", topic.DefaultSource)
	}
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	if _, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config")
	}
}

func TestAPIKeyPrecedence(t *testing.T) {
	s := Summarization{APIKeyEnvs: []string{"GDL_TEST_KEY_A", "GDL_TEST_KEY_B"}}
	t.Setenv("GDL_TEST_KEY_A", "")
	t.Setenv("GDL_TEST_KEY_B", "second")
	if got := s.APIKey(); got != "second" {
		t.Errorf("expected 'second', got %q", got)
	}

	t.Setenv("GDL_TEST_KEY_A", "first")
	if got := s.APIKey(); got != "first" {
		t.Errorf("expected 'first', got %q", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("GDL_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GDL_TEST_DOTENV", "")
	os.Unsetenv("GDL_TEST_DOTENV")

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("GDL_TEST_DOTENV"); got != "from-file" {
		t.Errorf("expected 'from-file', got %q", got)
	}
}

func TestDirs(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected '/custom/path', got %q", cfg.GetDataDir())
	}
	if cfg.GetCacheDir() != filepath.Join("/custom/path", "cache") {
		t.Errorf("unexpected cache dir %q", cfg.GetCacheDir())
	}
	if cfg.HistoryDBPath() != filepath.Join("/custom/path", "history.db") {
		t.Errorf("unexpected history path %q", cfg.HistoryDBPath())
	}
}
