package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources       Sources       `yaml:"sources"`
	Retry         Retry         `yaml:"retry"`
	Extraction    Extraction    `yaml:"extraction"`
	Water         Water         `yaml:"water"`
	News          News          `yaml:"news"`
	Summarization Summarization `yaml:"summarization"`
	Output        Output        `yaml:"output"`
	History       History       `yaml:"history"`
	Server        Server        `yaml:"server"`
	Briefing      Briefing      `yaml:"briefing"`
	Logging       Logging       `yaml:"logging"`
}

type Sources struct {
	AirURL       string        `yaml:"air_url"`
	AirTimeout   time.Duration `yaml:"air_timeout"`
	WaterURL     string        `yaml:"water_url"`
	WaterTimeout time.Duration `yaml:"water_timeout"`
	NewsTimeout  time.Duration `yaml:"news_timeout"`
	UserAgent    string        `yaml:"user_agent"`
}

type Retry struct {
	Attempts int           `yaml:"attempts"`
	Delay    time.Duration `yaml:"delay"`
}

type Extraction struct {
	MinStations    int  `yaml:"min_stations"`
	AllowSynthetic bool `yaml:"allow_synthetic"`
}

type Water struct {
	MinElevation      float64 `yaml:"min_elevation"`
	MaxElevation      float64 `yaml:"max_elevation"`
	FallbackElevation float64 `yaml:"fallback_elevation"`
	HistoryDays       int     `yaml:"history_days"`
}

type News struct {
	Topics   []Topic `yaml:"topics"`
	MaxItems int     `yaml:"max_items"`
	UseAI    bool    `yaml:"use_ai"`
	// Enrich fetches article text when a feed description is empty.
	Enrich bool `yaml:"enrich"`
}

type Topic struct {
	Key           string `yaml:"key"`
	Name          string `yaml:"name"`
	URL           string `yaml:"url"`
	DefaultSource string `yaml:"default_source"`
}

type Summarization struct {
	Provider    string   `yaml:"provider"`
	BaseURL     string   `yaml:"base_url"`
	Models      []string `yaml:"models"`
	APIKeyEnvs  []string `yaml:"api_key_envs"`
	OllamaURL   string   `yaml:"ollama_url"`
	OllamaModel string   `yaml:"ollama_model"`
	MaxTokens   int      `yaml:"max_tokens"`
	TruncateAt  int      `yaml:"truncate_at"`
}

type Output struct {
	DataDir  string `yaml:"data_dir"`
	CacheDir string `yaml:"cache_dir"`
}

type History struct {
	Enabled bool `yaml:"enabled"`
}

type Server struct {
	Port    int           `yaml:"port"`
	MemoTTL time.Duration `yaml:"memo_ttl"`
}

type Briefing struct {
	Schedule  string `yaml:"schedule"`
	OutputDir string `yaml:"output_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for gdlinsight.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "gdlinsight")
}

// DataDir returns the XDG data directory for gdlinsight.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "gdlinsight")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/gdlinsight/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'gdlinsight init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg, err := parse(nil)
	if err != nil {
		panic(err)
	}
	return cfg
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Sources: Sources{
			AirURL:       "https://aire.jalisco.gob.mx/",
			AirTimeout:   10 * time.Second,
			WaterURL:     "https://www.ceajalisco.gob.mx/contenido/chapala/chapala/cota.html",
			WaterTimeout: 5 * time.Second,
			NewsTimeout:  10 * time.Second,
		},
		Retry:      Retry{Attempts: 3, Delay: 2 * time.Second},
		Extraction: Extraction{MinStations: 5, AllowSynthetic: true},
		Water: Water{
			MinElevation:      85,
			MaxElevation:      100,
			FallbackElevation: 94.50,
			HistoryDays:       30,
		},
		News: News{
			MaxItems: 5,
			UseAI:    true,
		},
		Summarization: Summarization{
			Provider:    "openai",
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta/openai/",
			Models:      []string{"gemini-2.5-flash-lite", "gemini-2.5-flash"},
			APIKeyEnvs:  []string{"GOOGLE_API_KEY", "GOOGLE_AI_API_KEY", "GEMINI_API_KEY"},
			OllamaURL:   "http://localhost:11434",
			OllamaModel: "qwen2.5:7b",
			MaxTokens:   256,
			TruncateAt:  200,
		},
		History:  History{Enabled: true},
		Server:   Server{Port: 8000, MemoTTL: 10 * time.Minute},
		Briefing: Briefing{Schedule: "0 7 * * *"},
		Logging:  Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if len(cfg.News.Topics) == 0 {
		cfg.News.Topics = DefaultTopics()
	}

	return cfg, nil
}

// DefaultTopics returns the environment and Chivas feeds.
func DefaultTopics() []Topic {
	return []Topic{
		{
			Key:           "env",
			Name:          "Medio Ambiente",
			URL:           "https://news.google.com/rss/search?q=Medio+ambiente+Guadalajara&hl=es&gl=MX&ceid=MX:es",
			DefaultSource: "Google News",
		},
		{
			Key:           "chivas",
			Name:          "Chivas",
			URL:           "https://news.google.com/rss/search?q=Chivas+Guadalajara&hl=es&gl=MX&ceid=MX:es",
			DefaultSource: "Fuente desconocida",
		},
	}
}

// Topic returns the configured topic with the given key.
func (c *Config) Topic(key string) (Topic, bool) {
	for _, t := range c.News.Topics {
		if strings.EqualFold(t.Key, key) {
			return t, true
		}
	}
	return Topic{}, false
}

// APIKey returns the first non-empty credential among the configured
// environment variables.
func (s Summarization) APIKey() string {
	for _, env := range s.APIKeyEnvs {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return ""
}

// LoadDotEnv loads credentials from .env files. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env", filepath.Join(ConfigDir(), ".env")}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// GetCacheDir returns the directory holding the daily cache files.
func (c *Config) GetCacheDir() string {
	if c.Output.CacheDir != "" {
		return c.Output.CacheDir
	}
	return filepath.Join(c.GetDataDir(), "cache")
}

// GetBriefingDir returns where scheduled briefings are written.
func (c *Config) GetBriefingDir() string {
	if c.Briefing.OutputDir != "" {
		return c.Briefing.OutputDir
	}
	return filepath.Join(c.GetDataDir(), "briefings")
}

// HistoryDBPath returns the history database file.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.GetDataDir(), "history.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
