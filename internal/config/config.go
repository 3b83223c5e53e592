package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName              string        `mapstructure:"app_name"`
	Env                  string        `mapstructure:"app_env"`
	LogLevel             string        `mapstructure:"log_level"`
	BoardsFile           string        `mapstructure:"boards_file"`
	TargetURL            string        `mapstructure:"target_url"`
	PublishersFile       string        `mapstructure:"publishers_file"`
	CrawlIntervalSeconds int64         `mapstructure:"crawl_interval"`
	CrawlSchedule        string        `mapstructure:"crawl_schedule"`
	CrawlInterval        time.Duration `mapstructure:"-"`

	RendererType      string        `mapstructure:"renderer_type"`
	RenderTimeoutMs   int64         `mapstructure:"render_timeout_ms"`
	InsecureTransport bool          `mapstructure:"insecure_transport"`
	Headless          bool          `mapstructure:"headless"`
	RenderTimeout     time.Duration `mapstructure:"-"`

	PersistWorkers   int           `mapstructure:"persist_workers"`
	PersistTimeoutMs int64         `mapstructure:"persist_timeout_ms"`
	PersistTimeout   time.Duration `mapstructure:"-"`

	StorageType  string `mapstructure:"storage_type"`
	DBHost       string `mapstructure:"db_host"`
	DBPort       string `mapstructure:"db_port"`
	DBUser       string `mapstructure:"db_user"`
	DBPassword   string `mapstructure:"db_password"`
	DBName       string `mapstructure:"db_name"`
	DBSSLMode    string `mapstructure:"db_sslmode"`
	NoticesTable string `mapstructure:"notices_table"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
	BBoltPath    string `mapstructure:"bbolt_path"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "notice-harvester")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("boards_file", "./configs/boards.yaml")
	v.SetDefault("target_url", "")
	v.SetDefault("publishers_file", "")
	v.SetDefault("crawl_interval", 900) // seconds
	v.SetDefault("crawl_schedule", "")
	v.SetDefault("renderer_type", "chromedp")
	v.SetDefault("render_timeout_ms", 10000)
	v.SetDefault("insecure_transport", true)
	v.SetDefault("headless", true)
	v.SetDefault("persist_workers", 4)
	v.SetDefault("persist_timeout_ms", 5000)
	v.SetDefault("storage_type", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "")
	v.SetDefault("db_name", "postgres")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("notices_table", "knu_notices")
	v.SetDefault("auto_migrate", false)
	v.SetDefault("bbolt_path", "./data/notices.db")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finalize validates raw values and derives durations.
func (c *Config) finalize() error {
	if c.CrawlIntervalSeconds <= 0 {
		return fmt.Errorf("invalid crawl_interval (must be positive seconds)")
	}
	c.CrawlInterval = time.Duration(c.CrawlIntervalSeconds) * time.Second
	c.CrawlSchedule = strings.TrimSpace(c.CrawlSchedule)
	c.TargetURL = strings.TrimSpace(c.TargetURL)
	if c.TargetURL == "" && strings.TrimSpace(c.BoardsFile) == "" {
		return fmt.Errorf("either target_url or boards_file must be set")
	}

	c.RendererType = strings.ToLower(strings.TrimSpace(c.RendererType))
	switch c.RendererType {
	case "chromedp", "static":
	default:
		return fmt.Errorf("unsupported renderer_type %q", c.RendererType)
	}
	if c.RenderTimeoutMs <= 0 {
		return fmt.Errorf("invalid render_timeout_ms (must be positive milliseconds)")
	}
	c.RenderTimeout = time.Duration(c.RenderTimeoutMs) * time.Millisecond

	if c.PersistWorkers <= 0 {
		return fmt.Errorf("invalid persist_workers (must be positive)")
	}
	if c.PersistTimeoutMs <= 0 {
		return fmt.Errorf("invalid persist_timeout_ms (must be positive milliseconds)")
	}
	c.PersistTimeout = time.Duration(c.PersistTimeoutMs) * time.Millisecond

	c.StorageType = strings.ToLower(strings.TrimSpace(c.StorageType))
	switch c.StorageType {
	case "postgres":
		if strings.TrimSpace(c.NoticesTable) == "" {
			return fmt.Errorf("notices_table is required for postgres storage")
		}
	case "bbolt":
		if strings.TrimSpace(c.BBoltPath) == "" {
			return fmt.Errorf("bbolt_path is required for bbolt storage")
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported storage_type %q", c.StorageType)
	}

	return nil
}
