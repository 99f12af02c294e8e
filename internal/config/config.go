// Package config loads and validates curator configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/JakeFAU/newsfeed-curator/internal/news"
)

// AppName names the data directory under the XDG data home.
const AppName = "newsfeed-curator"

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Scrape backends.
const (
	BackendFirecrawl   = "firecrawl"
	BackendReadability = "readability"
)

// Publish targets.
const (
	TargetLocal = "local"
	TargetGCS   = "gcs"
)

// Notifier backends.
const (
	NotifyNone   = "none"
	NotifyMemory = "memory"
	NotifyPubSub = "pubsub"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	App        AppConfig         `mapstructure:"app"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	HTTP       HTTPConfig        `mapstructure:"http"`
	Pipeline   PipelineConfig    `mapstructure:"pipeline"`
	Feed       FeedConfig        `mapstructure:"feed"`
	Curator    CuratorConfig     `mapstructure:"curator"`
	Scraper    ScraperConfig     `mapstructure:"scraper"`
	Summarizer SummarizerConfig  `mapstructure:"summarizer"`
	LLM        LLMConfig         `mapstructure:"llm"`
	Store      StoreConfig       `mapstructure:"storage"`
	Publisher  PublisherConfig   `mapstructure:"publisher"`
	Notify     NotifyConfig      `mapstructure:"notify"`
	Telemetry  TelemetryConfig   `mapstructure:"telemetry"`
	Feeds      []news.FeedSource `mapstructure:"feeds"`
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Timezone string `mapstructure:"timezone"`
}

// Location resolves the configured timezone. "Local" and "" use the host zone.
func (a AppConfig) Location() (*time.Location, error) {
	if a.Timezone == "" || a.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", a.Timezone, err)
	}
	return loc, nil
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// HTTPConfig controls the API server.
type HTTPConfig struct {
	Port              int           `mapstructure:"port"`
	APIKey            string        `mapstructure:"api_key"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// PipelineConfig controls scheduling and optional stages.
type PipelineConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	AutoPublish  bool          `mapstructure:"auto_publish"`
	PublishLimit int           `mapstructure:"publish_limit"`
}

// FeedConfig governs feed polling.
type FeedConfig struct {
	BatchSize     int           `mapstructure:"batch_size"`
	BatchPause    time.Duration `mapstructure:"batch_pause"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	SnippetLength int           `mapstructure:"snippet_length"`
	UserAgent     string        `mapstructure:"user_agent"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxBodyBytes  int           `mapstructure:"max_body_bytes"`
}

// CuratorConfig configures the curation gate.
type CuratorConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Topic    string        `mapstructure:"topic"`
	Delay    time.Duration `mapstructure:"delay"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// ScraperConfig selects and tunes the scrape backend.
type ScraperConfig struct {
	Backend      string          `mapstructure:"backend"`
	MaxAttempts  int             `mapstructure:"max_attempts"`
	Backoff      time.Duration   `mapstructure:"backoff"`
	Delay        time.Duration   `mapstructure:"delay"`
	Timeout      time.Duration   `mapstructure:"timeout"`
	BlockedHosts []string        `mapstructure:"blocked_hosts"`
	Firecrawl    FirecrawlConfig `mapstructure:"firecrawl"`
	Headless     HeadlessConfig  `mapstructure:"headless"`
}

// FirecrawlConfig configures the hosted scrape API.
type FirecrawlConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// HeadlessConfig configures browser rendering for the readability backend.
type HeadlessConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxParallel     int           `mapstructure:"max_parallel"`
	NavTimeout      time.Duration `mapstructure:"nav_timeout"`
	PromotionThresh int           `mapstructure:"promotion_threshold"`
}

// SummarizerConfig tunes summary generation.
type SummarizerConfig struct {
	Topic        string        `mapstructure:"topic"`
	MaxContent   int           `mapstructure:"max_content"`
	Delay        time.Duration `mapstructure:"delay"`
	RewriteDelay time.Duration `mapstructure:"rewrite_delay"`
}

// LLMConfig points at an OpenAI-compatible chat completions API.
type LLMConfig struct {
	Endpoint     string        `mapstructure:"endpoint"`
	Model        string        `mapstructure:"model"`
	APIKey       string        `mapstructure:"api_key"`
	SystemPrompt string        `mapstructure:"system_prompt"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// StoreConfig selects the article store.
type StoreConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Path            string        `mapstructure:"path"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// PublisherConfig sets where published units land.
type PublisherConfig struct {
	Target      string `mapstructure:"target"`
	Dir         string `mapstructure:"dir"`
	Bucket      string `mapstructure:"bucket"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
	Ext         string `mapstructure:"ext"`
	DaysToKeep  int    `mapstructure:"days_to_keep"`
}

// NotifyConfig holds metadata for publish notifications.
type NotifyConfig struct {
	Backend   string `mapstructure:"backend"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// TelemetryConfig describes the service for tracing.
type TelemetryConfig struct {
	ServiceName   string `mapstructure:"service_name"`
	Version       string `mapstructure:"version"`
	ProjectID     string `mapstructure:"project_id"`
	ProjectNumber string `mapstructure:"project_number"`
	Region        string `mapstructure:"region"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CURATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// DataDir is the default home for the SQLite file and published units.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.timezone", "Local")
	v.SetDefault("logging.development", false)

	v.SetDefault("http.port", 8080)
	v.SetDefault("http.api_key", "")
	v.SetDefault("http.read_header_timeout", "10s")
	v.SetDefault("http.shutdown_timeout", "15s")

	v.SetDefault("pipeline.interval", "6h")
	v.SetDefault("pipeline.auto_publish", true)
	v.SetDefault("pipeline.publish_limit", 10)

	v.SetDefault("feed.batch_size", 5)
	v.SetDefault("feed.batch_pause", "1s")
	v.SetDefault("feed.max_retries", 3)
	v.SetDefault("feed.retry_delay", "2s")
	v.SetDefault("feed.snippet_length", 300)
	v.SetDefault("feed.user_agent", "newsfeed-curator/1.0")
	v.SetDefault("feed.respect_robots", false)
	v.SetDefault("feed.timeout", "10s")
	v.SetDefault("feed.max_body_bytes", 10<<20)

	v.SetDefault("curator.enabled", true)
	v.SetDefault("curator.topic", "crypto")
	v.SetDefault("curator.delay", "500ms")
	v.SetDefault("curator.cache_ttl", "1h")

	v.SetDefault("scraper.backend", BackendFirecrawl)
	v.SetDefault("scraper.max_attempts", 3)
	v.SetDefault("scraper.backoff", "1s")
	v.SetDefault("scraper.delay", "2s")
	v.SetDefault("scraper.timeout", "10s")
	v.SetDefault("scraper.blocked_hosts", []string{})
	v.SetDefault("scraper.firecrawl.base_url", "https://api.firecrawl.dev")
	v.SetDefault("scraper.firecrawl.api_key", "")
	v.SetDefault("scraper.headless.enabled", false)
	v.SetDefault("scraper.headless.max_parallel", 1)
	v.SetDefault("scraper.headless.nav_timeout", "25s")
	v.SetDefault("scraper.headless.promotion_threshold", 60)

	v.SetDefault("summarizer.topic", "crypto")
	v.SetDefault("summarizer.max_content", 8000)
	v.SetDefault("summarizer.delay", "1s")
	v.SetDefault("summarizer.rewrite_delay", "100ms")

	v.SetDefault("llm.endpoint", "https://api.openai.com/v1/chat/completions")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.system_prompt", "")
	v.SetDefault("llm.timeout", "30s")

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.path", filepath.Join(DataDir(), "articles.db"))
	v.SetDefault("storage.max_conns", 4)
	v.SetDefault("storage.min_conns", 0)
	v.SetDefault("storage.max_conn_lifetime", "30m")

	v.SetDefault("publisher.target", TargetLocal)
	v.SetDefault("publisher.dir", filepath.Join(DataDir(), "posts"))
	v.SetDefault("publisher.bucket", "")
	v.SetDefault("publisher.prefix", "posts")
	v.SetDefault("publisher.content_type", "text/markdown; charset=utf-8")
	v.SetDefault("publisher.ext", "mdx")
	v.SetDefault("publisher.days_to_keep", 30)

	v.SetDefault("notify.backend", NotifyNone)
	v.SetDefault("notify.project_id", "")
	v.SetDefault("notify.topic", "articles-published")

	v.SetDefault("telemetry.service_name", AppName)
	v.SetDefault("telemetry.version", "dev")
	v.SetDefault("telemetry.project_id", "")
	v.SetDefault("telemetry.project_number", "")
	v.SetDefault("telemetry.region", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.HTTP.Port <= 0 {
		return errors.New("http.port must be > 0")
	}
	if c.Pipeline.Interval <= 0 {
		return errors.New("pipeline.interval must be > 0")
	}
	if c.Feed.BatchSize <= 0 {
		return errors.New("feed.batch_size must be > 0")
	}
	if c.Feed.MaxRetries < 0 {
		return errors.New("feed.max_retries must be >= 0")
	}
	if c.Scraper.MaxAttempts <= 0 {
		return errors.New("scraper.max_attempts must be > 0")
	}
	switch c.Scraper.Backend {
	case BackendFirecrawl, BackendReadability:
	default:
		return fmt.Errorf("scraper.backend %q must be %s or %s", c.Scraper.Backend, BackendFirecrawl, BackendReadability)
	}
	if c.Scraper.Headless.Enabled && c.Scraper.Headless.MaxParallel <= 0 {
		return errors.New("scraper.headless.max_parallel must be > 0 when headless is enabled")
	}
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("storage.dsn must be set for the postgres driver")
		}
	case DriverSQLite:
		if c.Store.Path == "" {
			return errors.New("storage.path must be set for the sqlite driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("storage.driver %q is not supported", c.Store.Driver)
	}
	switch c.Publisher.Target {
	case TargetLocal:
		if c.Publisher.Dir == "" {
			return errors.New("publisher.dir must be set for the local target")
		}
	case TargetGCS:
		if c.Publisher.Bucket == "" {
			return errors.New("publisher.bucket must be set for the gcs target")
		}
	default:
		return fmt.Errorf("publisher.target %q is not supported", c.Publisher.Target)
	}
	switch c.Notify.Backend {
	case NotifyNone, NotifyMemory:
	case NotifyPubSub:
		if c.Notify.ProjectID == "" || c.Notify.Topic == "" {
			return errors.New("notify.project_id and notify.topic must be set for pubsub")
		}
	default:
		return fmt.Errorf("notify.backend %q is not supported", c.Notify.Backend)
	}
	if _, err := c.App.Location(); err != nil {
		return err
	}
	for i, f := range c.Feeds {
		if strings.TrimSpace(f.FeedURL) == "" {
			return fmt.Errorf("feeds[%d].feed_url is required", i)
		}
		if strings.TrimSpace(f.Category) == "" {
			return fmt.Errorf("feeds[%d].category is required", i)
		}
	}
	return nil
}

// PipelineReady reports whether the settings needed to run cycles are present.
// Read-only commands such as stats do not need them.
func (c Config) PipelineReady() error {
	if c.LLM.APIKey == "" {
		return errors.New("llm.api_key must be set to run the pipeline")
	}
	if c.Scraper.Backend == BackendFirecrawl && c.Scraper.Firecrawl.APIKey == "" {
		return errors.New("scraper.firecrawl.api_key must be set for the firecrawl backend")
	}
	if len(c.Feeds) == 0 {
		return errors.New("at least one feed must be configured")
	}
	return nil
}
