// Package config loads and validates ingestion configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/jobingest/internal/jobs"
)

// Store backends understood by the application.
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
	BackendElastic  = "elastic"
	BackendMemory   = "memory"
)

// Startup errors for a store that cannot be reached.
var (
	ErrMissingStoreURL = errors.New("store url is not configured (set SUPABASE_URL or store.url)")
	ErrMissingStoreKey = errors.New("store key is not configured (set SUPABASE_SERVICE_ROLE_KEY or VITE_SUPABASE_ANON_KEY)")
)

// DefaultEnvFiles are read, when present, before the environment is consulted.
var DefaultEnvFiles = []string{".env.local", ".env"}

// Config captures all knobs loaded via Viper.
type Config struct {
	Store   StoreConfig       `mapstructure:"store"`
	Crawler CrawlerConfig     `mapstructure:"crawler"`
	HTTP    HTTPConfig        `mapstructure:"http"`
	Redis   RedisConfig       `mapstructure:"redis"`
	Logging LoggingConfig     `mapstructure:"logging"`
	Metrics MetricsConfig     `mapstructure:"metrics"`
	Sites   []jobs.SiteConfig `mapstructure:"sites"`
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	Backend  string         `mapstructure:"backend"`
	URL      string         `mapstructure:"url"`
	Key      string         `mapstructure:"key"`
	AnonKey  string         `mapstructure:"anon_key"`
	Table    string         `mapstructure:"table"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Elastic  ElasticConfig  `mapstructure:"elastic"`
}

// PostgresConfig controls the direct Postgres backend.
type PostgresConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxConns     int32  `mapstructure:"max_conns"`
	MinConns     int32  `mapstructure:"min_conns"`
	EnsureSchema bool   `mapstructure:"ensure_schema"`
	// RunHistory records each run in scrape_runs and scrape_run_sites.
	RunHistory bool `mapstructure:"run_history"`
}

// ElasticConfig controls the Elasticsearch backend.
type ElasticConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Index       string   `mapstructure:"index"`
	EnsureIndex bool     `mapstructure:"ensure_index"`
}

// CrawlerConfig governs the pipeline.
type CrawlerConfig struct {
	SiteConcurrency int    `mapstructure:"site_concurrency"`
	AutoDetect      bool   `mapstructure:"auto_detect"`
	UserAgent       string `mapstructure:"user_agent"`
	AcceptLanguage  string `mapstructure:"accept_language"`
	Referer         string `mapstructure:"referer"`
}

// HTTPConfig configures the page fetcher client.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// RedisConfig enables the cross-run claim gate when URL is set.
type RedisConfig struct {
	URL             string `mapstructure:"url"`
	Prefix          string `mapstructure:"prefix"`
	ClaimTTLSeconds int    `mapstructure:"claim_ttl_seconds"`
}

// LoggingConfig toggles zap development features and the run log file.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
	// Progress logs every run and site milestone at debug level.
	Progress bool `mapstructure:"progress"`
}

// MetricsConfig points at a node-exporter textfile; empty disables it.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// Load builds a Config from dotenv files, the environment and an optional
// YAML file at path. envFiles defaults to DefaultEnvFiles; missing files are
// ignored.
func Load(path string, envFiles ...string) (Config, error) {
	return LoadWith(path, nil, envFiles...)
}

// LoadWith is Load with overrides (viper keys such as "store.backend") that
// take precedence over every other source, including validation input.
func LoadWith(path string, overrides map[string]any, envFiles ...string) (Config, error) {
	if envFiles == nil {
		envFiles = DefaultEnvFiles
	}
	for _, f := range envFiles {
		// godotenv never overrides variables that are already set.
		_ = godotenv.Load(f)
	}

	v := viper.New()
	v.SetEnvPrefix("JOBINGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindStoreEnv(v); err != nil {
		return Config{}, err
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	for key, value := range overrides {
		v.Set(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Store.Key == "" {
		cfg.Store.Key = cfg.Store.AnonKey
	}
	if len(cfg.Sites) == 0 {
		cfg.Sites = DefaultSites()
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// bindStoreEnv maps the conventional Supabase variables onto store keys. The
// first variable that is set wins.
func bindStoreEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"store.url":      {"JOBINGEST_STORE_URL", "SUPABASE_URL", "VITE_SUPABASE_URL"},
		"store.key":      {"JOBINGEST_STORE_KEY", "SUPABASE_SERVICE_ROLE_KEY"},
		"store.anon_key": {"JOBINGEST_STORE_ANON_KEY", "VITE_SUPABASE_ANON_KEY", "SUPABASE_ANON_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", BackendREST)
	v.SetDefault("store.table", "jobs")
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("store.postgres.max_conns", 4)
	v.SetDefault("store.postgres.min_conns", 0)
	v.SetDefault("store.postgres.ensure_schema", false)
	v.SetDefault("store.postgres.run_history", false)
	v.SetDefault("store.elastic.addresses", []string{})
	v.SetDefault("store.elastic.index", "jobs")
	v.SetDefault("store.elastic.ensure_index", false)
	v.SetDefault("crawler.site_concurrency", 1)
	v.SetDefault("crawler.auto_detect", true)
	v.SetDefault("crawler.user_agent", "")
	v.SetDefault("crawler.accept_language", "")
	v.SetDefault("crawler.referer", "")
	v.SetDefault("http.timeout_seconds", 20)
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.prefix", "jobingest:claim")
	v.SetDefault("redis.claim_ttl_seconds", 900)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.file", "scraper.log")
	v.SetDefault("logging.progress", false)
	v.SetDefault("metrics.textfile", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendREST:
		if strings.TrimSpace(c.Store.URL) == "" {
			return ErrMissingStoreURL
		}
		if strings.TrimSpace(c.Store.Key) == "" {
			return ErrMissingStoreKey
		}
	case BackendPostgres:
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn must be set for the postgres backend")
		}
	case BackendElastic:
		if len(c.Store.Elastic.Addresses) == 0 {
			return fmt.Errorf("store.elastic.addresses must be set for the elastic backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}
	if c.Crawler.SiteConcurrency <= 0 {
		return fmt.Errorf("crawler.site_concurrency must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Redis.URL != "" && c.Redis.ClaimTTLSeconds <= 0 {
		return fmt.Errorf("redis.claim_ttl_seconds must be > 0 when redis is enabled")
	}
	seen := make(map[string]struct{}, len(c.Sites))
	for _, site := range c.Sites {
		if err := site.Validate(); err != nil {
			return fmt.Errorf("sites: %w", err)
		}
		if _, dup := seen[site.Name]; dup {
			return fmt.Errorf("sites: duplicate site name %q", site.Name)
		}
		seen[site.Name] = struct{}{}
	}
	return nil
}

// RequestTimeout converts the HTTP timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// ClaimTTL converts the Redis claim TTL into a duration.
func (c Config) ClaimTTL() time.Duration {
	return time.Duration(c.Redis.ClaimTTLSeconds) * time.Second
}
