// Package config provides configuration management for the news pipeline stages.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingBaseDir           = errors.New("data.base_dir is required")
	ErrNoFeeds                  = errors.New("rss.feeds must contain at least one URL")
	ErrNoDomains                = errors.New("commoncrawl.domains must contain at least one domain")
	ErrInvalidInterval          = errors.New("interval_sec must be at least 1")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrInvalidTimeout           = errors.New("timeout_sec must be at least 1")
	ErrInvalidRetention         = errors.New("retention_days must be at least 1")
	ErrInvalidMinContent        = errors.New("processor.min_content_chars must be non-negative")
	ErrInvalidThresholds        = errors.New("correlator thresholds must satisfy 0 <= moderate < strong <= 1")
	ErrInvalidPort              = errors.New("dashboard.port must be between 1 and 65535")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
	ErrEmptyTopic               = errors.New("analyzer topic has no keywords")
	ErrUnknownStage             = errors.New("unknown stage")
)

// Stage names one independently running pipeline process.
type Stage string

// Pipeline stages.
const (
	StageRSS         Stage = "rss"
	StageCommonCrawl Stage = "commoncrawl"
	StageEconomic    Stage = "economic"
	StageProcessor   Stage = "processor"
	StageAnalyzer    Stage = "analyzer"
	StageCorrelator  Stage = "correlator"
	StageDashboard   Stage = "dashboard"
)

// DefaultConfigPath is read when no -config flag is given and the file exists.
const DefaultConfigPath = "configs/colnews.yaml"

// Config represents the complete pipeline configuration.
type Config struct {
	Data        DataConfig        `yaml:"data"`
	Logging     LoggingConfig     `yaml:"logging"`
	Retry       RetryPolicy       `yaml:"retry"`
	RSS         RSSConfig         `yaml:"rss"`
	CommonCrawl CommonCrawlConfig `yaml:"commoncrawl"`
	Economic    EconomicConfig    `yaml:"economic"`
	Processor   ProcessorConfig   `yaml:"processor"`
	Analyzer    AnalyzerConfig    `yaml:"analyzer"`
	Correlator  CorrelatorConfig  `yaml:"correlator"`
	Dashboard   DashboardConfig   `yaml:"dashboard"`
}

// DataConfig names the per-stage directories. Relative names resolve under BaseDir.
type DataConfig struct {
	BaseDir     string `yaml:"base_dir"`
	Raw         string `yaml:"raw"`
	Clean       string `yaml:"clean"`
	Analysis    string `yaml:"analysis"`
	Economic    string `yaml:"economic"`
	Results     string `yaml:"results"`
	CommonCrawl string `yaml:"commoncrawl"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RetryPolicy defines in-cycle retry behavior for outbound HTTP.
// The default of a single attempt leaves retries to the next loop interval.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	TimeoutSec        int     `yaml:"timeout_sec"`
}

// RSSConfig configures the RSS fetcher.
type RSSConfig struct {
	Feeds       []string `yaml:"feeds"`
	IntervalSec int      `yaml:"interval_sec"`
}

// CommonCrawlConfig configures the Common Crawl fetcher.
type CommonCrawlConfig struct {
	IndexBaseURL   string   `yaml:"index_base_url"`
	DataBaseURL    string   `yaml:"data_base_url"`
	UserAgent      string   `yaml:"user_agent"`
	Domains        []string `yaml:"domains"`
	IntervalSec    int      `yaml:"interval_sec"`
	MaxIndexes     int      `yaml:"max_indexes"`
	IndexesPerRun  int      `yaml:"indexes_per_run"`
	SearchLimit    int      `yaml:"search_limit"`
	PerDomain      int      `yaml:"per_domain"`
	RequestDelayMs int      `yaml:"request_delay_ms"`
	MinTextChars   int      `yaml:"min_text_chars"`
	MaxTextChars   int      `yaml:"max_text_chars"`
	SummaryChars   int      `yaml:"summary_chars"`
	TimeoutSec     int      `yaml:"timeout_sec"`
}

// GeminiConfig configures the generative-language lookup.
type GeminiConfig struct {
	Endpoint        string  `yaml:"endpoint"`
	Model           string  `yaml:"model"`
	APIKey          string  `yaml:"api_key"`
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	TimeoutSec      int     `yaml:"timeout_sec"`
}

// EconomicConfig configures the economic index fetcher.
type EconomicConfig struct {
	Gemini         GeminiConfig `yaml:"gemini"`
	IntervalSec    int          `yaml:"interval_sec"`
	COLCAPFallback float64      `yaml:"colcap_fallback"`
	USDCOPFallback float64      `yaml:"usdcop_fallback"`
	FetchUSDCOP    bool         `yaml:"fetch_usdcop"`
}

// ProcessorConfig configures the raw-to-clean processor.
type ProcessorConfig struct {
	IntervalSec     int `yaml:"interval_sec"`
	MinContentChars int `yaml:"min_content_chars"`
	RetentionDays   int `yaml:"retention_days"`
	CleanupEvery    int `yaml:"cleanup_every"`
}

// AnalyzerConfig configures the topic analyzer. An empty Topics map keeps the built-in lists.
type AnalyzerConfig struct {
	Topics      map[string][]string `yaml:"topics"`
	IntervalSec int                 `yaml:"interval_sec"`
}

// CorrelatorConfig configures the correlation stage.
type CorrelatorConfig struct {
	IntervalSec       int     `yaml:"interval_sec"`
	RetentionDays     int     `yaml:"retention_days"`
	ModerateThreshold float64 `yaml:"moderate_threshold"`
	StrongThreshold   float64 `yaml:"strong_threshold"`
}

// DashboardConfig configures the HTTP API.
type DashboardConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			BaseDir:     "/app/data",
			Raw:         "raw",
			Clean:       "clean",
			Analysis:    "analysis",
			Economic:    "economic",
			Results:     "results",
			CommonCrawl: "commoncrawl",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Retry: RetryPolicy{
			MaxAttempts:       1,
			InitialDelayMs:    500,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2.0,
			TimeoutSec:        30,
		},
		RSS: RSSConfig{
			Feeds: []string{
				"https://www.eltiempo.com/rss/colombia.xml",
				"https://www.portafolio.co/rss.xml",
				"https://www.elespectador.com/rss/economia",
			},
			IntervalSec: 3600,
		},
		CommonCrawl: CommonCrawlConfig{
			IndexBaseURL: "https://index.commoncrawl.org",
			DataBaseURL:  "https://data.commoncrawl.org",
			UserAgent:    "NewsAnalyzer/1.0 (Educational)",
			Domains: []string{
				"eltiempo.com",
				"portafolio.co",
				"elespectador.com",
				"semana.com",
				"larepublica.co",
			},
			IntervalSec:    86400,
			MaxIndexes:     6,
			IndexesPerRun:  2,
			SearchLimit:    10,
			PerDomain:      5,
			RequestDelayMs: 2000,
			MinTextChars:   100,
			MaxTextChars:   3000,
			SummaryChars:   500,
			TimeoutSec:     120,
		},
		Economic: EconomicConfig{
			Gemini: GeminiConfig{
				Endpoint:        "https://generativelanguage.googleapis.com/v1beta/models",
				Model:           "gemini-2.0-flash",
				Temperature:     0.1,
				MaxOutputTokens: 200,
				TimeoutSec:      30,
			},
			IntervalSec:    3600,
			COLCAPFallback: 1450.00,
			USDCOPFallback: 4150.00,
			FetchUSDCOP:    true,
		},
		Processor: ProcessorConfig{
			IntervalSec:     1800,
			MinContentChars: 30,
			RetentionDays:   7,
			CleanupEvery:    10,
		},
		Analyzer: AnalyzerConfig{IntervalSec: 1800},
		Correlator: CorrelatorConfig{
			IntervalSec:       3600,
			RetentionDays:     30,
			ModerateThreshold: 0.3,
			StrongThreshold:   0.7,
		},
		Dashboard: DashboardConfig{Host: "0.0.0.0", Port: 8080},
	}
}

// LoadConfig loads configuration from a YAML file layered over Default.
// An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	return cfg, nil
}

// Load resolves the config file (explicit path, else DefaultConfigPath when present),
// applies environment overrides for the given stage and validates the result.
func Load(path string, stage Stage) (*Config, error) {
	if path == "" {
		if _, err := os.Stat(DefaultConfigPath); err == nil {
			path = DefaultConfigPath
		}
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(stage, os.LookupEnv); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads variables from a .env file when one exists. Existing variables win.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}

	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	return nil
}

// ApplyEnv overlays environment variables. SLEEP_INTERVAL only affects the given stage.
func (c *Config) ApplyEnv(stage Stage, lookup func(string) (string, bool)) error {
	if v, ok := lookup("DATA_DIR"); ok && v != "" {
		c.Data.BaseDir = v
	}

	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}

	if v, ok := lookup("GEMINI_API_KEY"); ok && v != "" {
		c.Economic.Gemini.APIKey = v
	}

	for _, key := range []string{"PORT", "DASHBOARD_PORT"} {
		if v, ok := lookup(key); ok && v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s=%q: %w", key, v, err)
			}

			c.Dashboard.Port = port
		}
	}

	if v, ok := lookup("SLEEP_INTERVAL"); ok && v != "" && stage != "" && stage != StageDashboard {
		sec, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SLEEP_INTERVAL=%q: %w", v, err)
		}

		if err := c.SetIntervalSec(stage, sec); err != nil {
			return err
		}
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Data.BaseDir == "" {
		return ErrMissingBaseDir
	}

	if len(c.RSS.Feeds) == 0 {
		return ErrNoFeeds
	}

	if len(c.CommonCrawl.Domains) == 0 {
		return ErrNoDomains
	}

	intervals := map[string]int{
		"rss":         c.RSS.IntervalSec,
		"commoncrawl": c.CommonCrawl.IntervalSec,
		"economic":    c.Economic.IntervalSec,
		"processor":   c.Processor.IntervalSec,
		"analyzer":    c.Analyzer.IntervalSec,
		"correlator":  c.Correlator.IntervalSec,
	}

	for name, sec := range intervals {
		if sec < 1 {
			return fmt.Errorf("%w: %s", ErrInvalidInterval, name)
		}
	}

	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if c.Retry.TimeoutSec < 1 || c.CommonCrawl.TimeoutSec < 1 || c.Economic.Gemini.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Processor.RetentionDays < 1 || c.Correlator.RetentionDays < 1 {
		return ErrInvalidRetention
	}

	if c.Processor.MinContentChars < 0 {
		return ErrInvalidMinContent
	}

	m, s := c.Correlator.ModerateThreshold, c.Correlator.StrongThreshold
	if m < 0 || m >= s || s > 1 {
		return ErrInvalidThresholds
	}

	if c.Dashboard.Port < 1 || c.Dashboard.Port > 65535 {
		return ErrInvalidPort
	}

	for topic, words := range c.Analyzer.Topics {
		if !hasKeyword(words) {
			return fmt.Errorf("%w: %s", ErrEmptyTopic, topic)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

func hasKeyword(words []string) bool {
	for _, w := range words {
		if strings.TrimSpace(w) != "" {
			return true
		}
	}

	return false
}

// Interval returns the sleep interval of a looping stage.
func (c *Config) Interval(stage Stage) time.Duration {
	sec := 0

	switch stage {
	case StageRSS:
		sec = c.RSS.IntervalSec
	case StageCommonCrawl:
		sec = c.CommonCrawl.IntervalSec
	case StageEconomic:
		sec = c.Economic.IntervalSec
	case StageProcessor:
		sec = c.Processor.IntervalSec
	case StageAnalyzer:
		sec = c.Analyzer.IntervalSec
	case StageCorrelator:
		sec = c.Correlator.IntervalSec
	case StageDashboard:
	}

	return time.Duration(sec) * time.Second
}

// SetIntervalSec overrides the sleep interval of a looping stage.
func (c *Config) SetIntervalSec(stage Stage, sec int) error {
	switch stage {
	case StageRSS:
		c.RSS.IntervalSec = sec
	case StageCommonCrawl:
		c.CommonCrawl.IntervalSec = sec
	case StageEconomic:
		c.Economic.IntervalSec = sec
	case StageProcessor:
		c.Processor.IntervalSec = sec
	case StageAnalyzer:
		c.Analyzer.IntervalSec = sec
	case StageCorrelator:
		c.Correlator.IntervalSec = sec
	case StageDashboard:
		return fmt.Errorf("%w: %s has no interval", ErrUnknownStage, stage)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownStage, stage)
	}

	return nil
}

// Dir resolves one of the data directories against BaseDir.
func (d DataConfig) Dir(name string) string {
	if filepath.IsAbs(name) {
		return name
	}

	return filepath.Join(d.BaseDir, name)
}

// RawDir returns the raw article directory.
func (d DataConfig) RawDir() string { return d.Dir(d.Raw) }

// CleanDir returns the clean article directory.
func (d DataConfig) CleanDir() string { return d.Dir(d.Clean) }

// AnalysisDir returns the daily counts directory.
func (d DataConfig) AnalysisDir() string { return d.Dir(d.Analysis) }

// EconomicDir returns the economic series directory.
func (d DataConfig) EconomicDir() string { return d.Dir(d.Economic) }

// ResultsDir returns the correlation results directory.
func (d DataConfig) ResultsDir() string { return d.Dir(d.Results) }

// CommonCrawlDir returns the Common Crawl staging directory.
func (d DataConfig) CommonCrawlDir() string { return d.Dir(d.CommonCrawl) }

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the timeout duration.
func (rp *RetryPolicy) GetTimeout() time.Duration {
	return time.Duration(rp.TimeoutSec) * time.Second
}

// Addr returns the dashboard listen address.
func (d DashboardConfig) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{DataDir: %s, Feeds: %d, Domains: %d, GeminiKey: %t}",
		c.Data.BaseDir,
		len(c.RSS.Feeds),
		len(c.CommonCrawl.Domains),
		c.Economic.Gemini.APIKey != "",
	)
}
