package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	Providers ProvidersConfig `yaml:"providers"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"` // HTTP listen address, default ":8080"
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`       // "sqlite" or "postgres"
	SQLitePath  string `yaml:"sqlite_path"`  // file path for the sqlite driver
	PostgresDSN string `yaml:"postgres_dsn"` // DSN for the postgres driver
}

type CacheConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"` // host:port
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	TTL      string `yaml:"ttl"` // quote cache TTL, e.g. "1h"
}

// ProviderConfig describes one odds or expert feed.
type ProviderConfig struct {
	Kind    string `yaml:"kind"` // "feed" or "simulated"
	Name    string `yaml:"name"` // bookmaker or outlet name
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"` // per-request timeout, e.g. "10s"
}

type ProvidersConfig struct {
	Odds    []ProviderConfig `yaml:"odds"`
	Experts []ProviderConfig `yaml:"experts"`
}

type AnalyzerConfig struct {
	MinValueThreshold float64 `yaml:"min_value_threshold"` // value at/above this is recommended (default: 1.05)
	MaxHalfCovers     int     `yaml:"max_half_covers"`     // half-cover budget per row (default: 2)
	AllowPartial      bool    `yaml:"allow_partial"`       // generate rows for incomplete coupons

	// Async processing settings
	AsyncEnabled  bool   `yaml:"async_enabled"`  // start the refresh ticker on boot
	AsyncInterval string `yaml:"async_interval"` // interval between refreshes (e.g., "10m")
	FetchTimeout  string `yaml:"fetch_timeout"`  // provider fetch budget per refresh (default: "30s")

	// Notification policy
	AlertThreshold       float64 `yaml:"alert_threshold"`        // value at/above which picks are announced (default: 1.05)
	AlertCooldownMinutes int     `yaml:"alert_cooldown_minutes"` // minutes before re-announcing the same pick (default: 60)
	AlertMinIncrease     float64 `yaml:"alert_min_increase"`     // minimum value increase to re-announce early (default: 0.05)

	// Expert consensus weights, source name -> weight (default: 1.0)
	SourceWeights map[string]float64 `yaml:"source_weights"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`     // "debug", "info", "warn", "error"
	Format   string `yaml:"format"`    // "text" or "json"
	FilePath string `yaml:"file_path"` // optional file handler in addition to stdout
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "tipsvalue.db"
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = "1h"
	}
	if c.Analyzer.MinValueThreshold == 0 {
		c.Analyzer.MinValueThreshold = 1.05
	}
	if c.Analyzer.MaxHalfCovers == 0 {
		c.Analyzer.MaxHalfCovers = 2
	}
	if c.Analyzer.AsyncInterval == "" {
		c.Analyzer.AsyncInterval = "10m"
	}
	if c.Analyzer.FetchTimeout == "" {
		c.Analyzer.FetchTimeout = "30s"
	}
	if c.Analyzer.AlertThreshold == 0 {
		c.Analyzer.AlertThreshold = 1.05
	}
	if c.Analyzer.AlertCooldownMinutes == 0 {
		c.Analyzer.AlertCooldownMinutes = 60
	}
	if c.Analyzer.AlertMinIncrease == 0 {
		c.Analyzer.AlertMinIncrease = 0.05
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks the config for values no component can run with.
// Call it after environment overrides have been applied.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage: sqlite driver requires sqlite_path")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage: postgres driver requires postgres_dsn")
		}
	default:
		return fmt.Errorf("storage: unknown driver %q", c.Storage.Driver)
	}

	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache: enabled but addr is empty")
	}

	if c.Analyzer.MinValueThreshold <= 0 {
		return fmt.Errorf("analyzer: min_value_threshold must be positive, got %v", c.Analyzer.MinValueThreshold)
	}
	if c.Analyzer.MaxHalfCovers < 0 {
		return fmt.Errorf("analyzer: max_half_covers must not be negative, got %d", c.Analyzer.MaxHalfCovers)
	}

	for _, p := range append(append([]ProviderConfig{}, c.Providers.Odds...), c.Providers.Experts...) {
		switch p.Kind {
		case "feed":
			if p.BaseURL == "" {
				return fmt.Errorf("provider %q: feed kind requires base_url", p.Name)
			}
		case "simulated":
		default:
			return fmt.Errorf("provider %q: unknown kind %q", p.Name, p.Kind)
		}
		if p.Name == "" {
			return fmt.Errorf("provider with kind %q has no name", p.Kind)
		}
	}

	return nil
}
