package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	SitesFile      string `mapstructure:"sites_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	CutoffDays       int     `mapstructure:"cutoff_days"`
	MaxArticles      int     `mapstructure:"max_articles"`
	WorkerPoolSize   int     `mapstructure:"worker_pool_size"`
	FetchTimeoutSecs int64   `mapstructure:"fetch_timeout_seconds"`
	MaxRetries       int     `mapstructure:"max_retries"`
	BackoffFactor    float64 `mapstructure:"backoff_factor"`

	CrawlIntervalSeconds int64         `mapstructure:"crawl_interval"`
	CrawlInterval        time.Duration `mapstructure:"-"`
	FetchTimeout         time.Duration `mapstructure:"-"`

	CSVPath    string `mapstructure:"csv_path"`
	SQLitePath string `mapstructure:"sqlite_path"`

	CacheType             string        `mapstructure:"cache_type"`
	CachePath             string        `mapstructure:"cache_path"`
	CacheTTLSeconds       int64         `mapstructure:"cache_ttl_seconds"`
	CacheCleanupSeconds   int64         `mapstructure:"cache_cleanup_interval_seconds"`
	CacheTTL              time.Duration `mapstructure:"-"`
	CacheCleanupInterval  time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "regional-news-pipeline")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("sites_file", "./configs/sites.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("cutoff_days", 30)
	v.SetDefault("max_articles", 50)
	v.SetDefault("worker_pool_size", 8)
	v.SetDefault("fetch_timeout_seconds", 15)
	v.SetDefault("max_retries", 3)
	v.SetDefault("backoff_factor", 1.5)
	v.SetDefault("crawl_interval", 900) // seconds
	v.SetDefault("csv_path", "./data/regional_news.csv")
	v.SetDefault("sqlite_path", "./data/news.db")
	v.SetDefault("cache_type", "bbolt")
	v.SetDefault("cache_path", "./data/seen.db")
	v.SetDefault("cache_ttl_seconds", int64((30*24*time.Hour)/time.Second))
	v.SetDefault("cache_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.CrawlInterval = time.Duration(cfg.CrawlIntervalSeconds) * time.Second
	cfg.FetchTimeout = time.Duration(cfg.FetchTimeoutSecs) * time.Second
	cfg.CacheTTL = time.Duration(cfg.CacheTTLSeconds) * time.Second
	cfg.CacheCleanupInterval = time.Duration(cfg.CacheCleanupSeconds) * time.Second

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.CutoffDays <= 0 {
		return fmt.Errorf("invalid cutoff_days (must be positive)")
	}
	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("invalid worker_pool_size (must be positive)")
	}
	if c.FetchTimeoutSecs <= 0 {
		return fmt.Errorf("invalid fetch_timeout_seconds (must be positive seconds)")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("invalid max_retries (must be zero or positive)")
	}
	if c.BackoffFactor < 1 {
		return fmt.Errorf("invalid backoff_factor (must be >= 1)")
	}
	if c.CrawlIntervalSeconds <= 0 {
		return fmt.Errorf("invalid crawl_interval (must be positive seconds)")
	}
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("invalid cache_ttl_seconds (must be positive seconds)")
	}
	if c.CacheCleanupSeconds <= 0 {
		return fmt.Errorf("invalid cache_cleanup_interval_seconds (must be positive seconds)")
	}
	return nil
}
