// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendGCS    = "gcs"
	BackendMinio  = "minio"
	BackendLocal  = "local"
	BackendMemory = "memory"
)

// Page loaders.
const (
	LoaderHTTP     = "http"
	LoaderHeadless = "headless"
	// LoaderAuto probes over HTTP and renders headlessly only when the page looks script-built.
	LoaderAuto = "auto"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Page     PageConfig     `mapstructure:"page"`
	Headless HeadlessConfig `mapstructure:"headless"`
	AWS      AWSConfig      `mapstructure:"aws"`
	Mail     MailConfig     `mapstructure:"mail"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Scrape   ScrapeConfig   `mapstructure:"scrape"`
	Clock    ClockConfig    `mapstructure:"clock"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing"`

	v *viper.Viper
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// HTTPConfig configures the page and file fetcher.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
}

// PageConfig selects how WorkflowA and the link resolver load pages.
type PageConfig struct {
	Loader string `mapstructure:"loader"`
}

// HeadlessConfig configures the headless rendering loader.
type HeadlessConfig struct {
	MaxParallel        int `mapstructure:"max_parallel"`
	NavTimeoutSec      int `mapstructure:"nav_timeout_seconds"`
	PromotionThreshold int `mapstructure:"promotion_threshold"`
}

// AWSConfig pins the SES client.
type AWSConfig struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// MailConfig holds the fixed parts of the notification message.
type MailConfig struct {
	Subject  string `mapstructure:"subject"`
	TextBody string `mapstructure:"text_body"`
}

// StorageConfig selects the object-storage backend.
type StorageConfig struct {
	Backend     string       `mapstructure:"backend"`
	Bucket      string       `mapstructure:"bucket"`
	ContentType string       `mapstructure:"content_type"`
	GCS         GCSConfig    `mapstructure:"gcs"`
	Minio       MinioConfig  `mapstructure:"minio"`
	Local       LocalConfig  `mapstructure:"local"`
	Memory      MemoryConfig `mapstructure:"memory"`
}

// GCSConfig configures the GCS backend.
type GCSConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

// MinioConfig configures the S3-compatible backend.
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

// LocalConfig configures the filesystem backend.
type LocalConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// MemoryConfig lists the buckets the in-memory backend starts with.
type MemoryConfig struct {
	Buckets []string `mapstructure:"buckets"`
}

// ScrapeConfig holds link-resolution defaults.
type ScrapeConfig struct {
	MatchToken string `mapstructure:"match_token"`
}

// ClockConfig selects the zone timestamps in object keys are rendered in.
type ClockConfig struct {
	Location string `mapstructure:"location"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TracingConfig controls OpenTelemetry span export.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	// ProjectID enables export to Google Cloud Trace.
	ProjectID string `mapstructure:"project_id"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WEBSCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("storage.bucket", "BUCKET_NAME", "WEBSCRAPER_STORAGE_BUCKET"); err != nil {
		return Config{}, fmt.Errorf("bind bucket env: %w", err)
	}

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
	cfg.v = v
	if cfg.Storage.Minio.Region == "" {
		cfg.Storage.Minio.Region = cfg.AWS.Region
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 120)
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "webscraper/0.1")
	v.SetDefault("http.max_body_bytes", 0)
	v.SetDefault("page.loader", LoaderHTTP)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("aws.region", "eu-west-2")
	v.SetDefault("mail.subject", "Testing Amazon SES through the API")
	v.SetDefault("mail.text_body", "Testing Amazon SES through the API")
	v.SetDefault("storage.backend", BackendGCS)
	v.SetDefault("storage.content_type", "text/csv")
	// Empty follows aws.region.
	v.SetDefault("storage.minio.region", "")
	v.SetDefault("storage.local.base_dir", "data")
	v.SetDefault("scrape.match_token", "csv")
	v.SetDefault("clock.location", "UTC")
	v.SetDefault("logging.development", false)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits. The bucket is not checked here:
// it is read per invocation and a missing one fails the upload.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http.max_body_bytes must be >= 0")
	}
	switch c.Page.Loader {
	case LoaderHTTP:
	case LoaderHeadless, LoaderAuto:
		if c.Headless.MaxParallel <= 0 {
			return fmt.Errorf("headless.max_parallel must be > 0 when page.loader is %s", c.Page.Loader)
		}
	default:
		return fmt.Errorf("page.loader must be %q, %q or %q, got %q",
			LoaderHTTP, LoaderHeadless, LoaderAuto, c.Page.Loader)
	}
	if strings.TrimSpace(c.AWS.Region) == "" {
		return fmt.Errorf("aws.region is required")
	}
	switch c.Storage.Backend {
	case BackendGCS, BackendMemory:
	case BackendMinio:
		if c.Storage.Minio.Endpoint == "" {
			return fmt.Errorf("storage.minio.endpoint is required for the minio backend")
		}
	case BackendLocal:
		if c.Storage.Local.BaseDir == "" {
			return fmt.Errorf("storage.local.base_dir is required for the local backend")
		}
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}
	if c.Scrape.MatchToken == "" {
		return fmt.Errorf("scrape.match_token must not be empty")
	}
	if _, err := time.LoadLocation(c.Clock.Location); err != nil {
		return fmt.Errorf("clock.location: %w", err)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing.sample_ratio must be within [0, 1]")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// FetchTimeout converts the HTTP timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// NavTimeout converts the headless navigation timeout into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Headless.NavTimeoutSec) * time.Second
}

// Location returns the configured clock zone, UTC when unset or invalid.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Clock.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Bucket re-reads storage.bucket from the environment and config file on every call, so a
// changed BUCKET_NAME is picked up by the next invocation.
func (c Config) Bucket() string {
	if c.v == nil {
		return c.Storage.Bucket
	}
	return strings.TrimSpace(c.v.GetString("storage.bucket"))
}
