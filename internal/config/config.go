package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the prediction dashboard.
type Config struct {
	API       API       `yaml:"api"`
	Dashboard Dashboard `yaml:"dashboard"`
	Server    Server    `yaml:"server"`
	Storage   Storage   `yaml:"storage"`
	Logging   Logging   `yaml:"logging"`
}

// API describes the remote prediction/quote service.
type API struct {
	BaseURL string `yaml:"base_url"`
	// Timeout of zero leaves requests bounded only by their context.
	Timeout time.Duration `yaml:"timeout"`
}

// Dashboard controls what the dashboard polls and how it renders.
type Dashboard struct {
	Tickers              []string      `yaml:"tickers"`
	Window               int           `yaml:"window"`
	PredictInterval      time.Duration `yaml:"predict_interval"`
	QuotesInterval       time.Duration `yaml:"quotes_interval"`
	PredictionOffsetDays int           `yaml:"prediction_offset_days"`
	Timezone             string        `yaml:"timezone"`
	Ordering             string        `yaml:"ordering"`
	Theme                string        `yaml:"theme"`
}

// Server holds network listener configuration for the web dashboard.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Storage holds paths for the optional prediction journal and quote tape.
// Empty paths disable the corresponding store.
type Storage struct {
	DataDir       string `yaml:"data_dir"`
	SQLitePath    string `yaml:"sqlite_path"`
	RetentionDays int    `yaml:"retention_days"`
	PruneSchedule string `yaml:"prune_schedule"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

// DefaultTickers is the quote board's ticker set when none is configured.
var DefaultTickers = []string{"AAPL", "MSFT", "GOOGL", "TSLA", "AMZN", "NVDA"}

const (
	DefaultBaseURL       = "http://localhost:5001"
	DefaultWindow        = 60
	DefaultInterval      = 60 * time.Second
	DefaultOffsetDays    = 2
	DefaultPort          = 8090
	DefaultRetentionDays = 30
	DefaultPruneSchedule = "0 30 3 * * *"

	OrderingLastIssued    = "last_issued"
	OrderingLastCompleted = "last_completed"
)

// DefaultPath is the config file read when PREDICTBOARD_CONFIG is unset.
const DefaultPath = "config/predictboard.yaml"

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Path returns the config file location, honouring PREDICTBOARD_CONFIG.
func Path() string {
	if v := os.Getenv("PREDICTBOARD_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads the YAML configuration file at the given path, applies
// environment variable overrides and defaults, and validates the result.
// A missing file is not an error; the defaults are used instead.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("API_URL"); v != "" {
		cfg.API.BaseURL = v
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}

	if v := os.Getenv("PREDICTION_OFFSET_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Dashboard.PredictionOffsetDays = n
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	d := &cfg.Dashboard
	if len(d.Tickers) == 0 {
		d.Tickers = append([]string(nil), DefaultTickers...)
	}
	for i, t := range d.Tickers {
		d.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	if d.Window == 0 {
		d.Window = DefaultWindow
	}
	if d.PredictInterval == 0 {
		d.PredictInterval = DefaultInterval
	}
	if d.QuotesInterval == 0 {
		d.QuotesInterval = DefaultInterval
	}
	if d.PredictionOffsetDays == 0 {
		d.PredictionOffsetDays = DefaultOffsetDays
	}
	if d.Timezone == "" {
		d.Timezone = "Local"
	}
	if d.Ordering == "" {
		d.Ordering = OrderingLastIssued
	}
	if d.Theme == "" {
		d.Theme = "dark"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	if cfg.Storage.RetentionDays == 0 {
		cfg.Storage.RetentionDays = DefaultRetentionDays
	}
	if cfg.Storage.PruneSchedule == "" {
		cfg.Storage.PruneSchedule = DefaultPruneSchedule
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must not be negative")
	}

	d := c.Dashboard
	if d.Window < 0 {
		return fmt.Errorf("dashboard.window must be positive, got %d", d.Window)
	}
	if d.PredictInterval < 0 || d.QuotesInterval < 0 {
		return errors.New("dashboard poll intervals must be positive")
	}
	if d.PredictionOffsetDays < 0 {
		return fmt.Errorf("dashboard.prediction_offset_days must be positive, got %d", d.PredictionOffsetDays)
	}
	for _, t := range d.Tickers {
		if t == "" {
			return errors.New("dashboard.tickers contains an empty symbol")
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("dashboard.timezone: %w", err)
	}
	switch d.Ordering {
	case OrderingLastIssued, OrderingLastCompleted:
	default:
		return fmt.Errorf("dashboard.ordering %q: want %q or %q", d.Ordering, OrderingLastIssued, OrderingLastCompleted)
	}
	switch d.Theme {
	case "dark", "light":
	default:
		return fmt.Errorf("dashboard.theme %q: want dark or light", d.Theme)
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Storage.RetentionDays < 0 {
		return errors.New("storage.retention_days must not be negative")
	}
	return nil
}

// Location resolves Dashboard.Timezone. "Local" and "" map to time.Local.
func (c *Config) Location() (*time.Location, error) {
	switch c.Dashboard.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	return time.LoadLocation(c.Dashboard.Timezone)
}

// Addr returns the web dashboard listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
