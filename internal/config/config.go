// Package config provides configuration management for the paper trader.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	apperrors "paper-trader/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Trading TradingConfig `mapstructure:"trading"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Quote   QuoteConfig   `mapstructure:"quote"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// TradingConfig holds account-related configuration.
type TradingConfig struct {
	// InitialBalance seeds the account the first time the database is
	// empty, and is used by the reset command.
	InitialBalance float64 `mapstructure:"initial_balance"`
}

// MonitorConfig holds order-monitor configuration.
type MonitorConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// QuoteConfig holds quote-source configuration.
type QuoteConfig struct {
	Provider string        `mapstructure:"provider"` // "yahoo", "kite"
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	Kite     KiteConfig    `mapstructure:"kite"`
}

// KiteConfig holds Kite Connect credentials for the optional kite
// quote provider.
type KiteConfig struct {
	APIKey      string `mapstructure:"api_key"`
	AccessToken string `mapstructure:"access_token"`
	Exchange    string `mapstructure:"exchange"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
	Path    string `mapstructure:"path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/paper-trader"
	}
	return filepath.Join(home, ".config", "paper-trader")
}

// Load loads configuration from the specified directory. If configDir
// is empty, the default config directory is used. A missing config file
// is not an error; defaults apply and a template is written.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config.toml: %w", err)
		}
		if err := writeTemplate(configDir); err != nil {
			return nil, fmt.Errorf("writing config template: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("trading.initial_balance", 100000.0)
	v.SetDefault("monitor.interval", "5s")
	v.SetDefault("quote.provider", "yahoo")
	v.SetDefault("quote.timeout", "10s")
	v.SetDefault("quote.cache_ttl", "2s")
	v.SetDefault("quote.kite.exchange", "NSE")
	v.SetDefault("storage.path", filepath.Join(configDir, "papertrader.db"))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("logging.path", filepath.Join(configDir, "logs", "papertrader.log"))
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KITE_API_KEY"); v != "" {
		cfg.Quote.Kite.APIKey = v
	}
	if v := os.Getenv("KITE_ACCESS_TOKEN"); v != "" {
		cfg.Quote.Kite.AccessToken = v
	}
	if v := os.Getenv("QUOTE_PROVIDER"); v != "" {
		cfg.Quote.Provider = v
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Trading.InitialBalance < 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "trading.initial_balance must not be negative")
	}
	if c.Monitor.Interval <= 0 {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "monitor.interval must be positive")
	}
	switch c.Quote.Provider {
	case "yahoo", "kite":
	default:
		return apperrors.Wrapf(apperrors.ErrConfigInvalid, "unknown quote provider %q", c.Quote.Provider)
	}
	if c.Quote.Provider == "kite" && (c.Quote.Kite.APIKey == "" || c.Quote.Kite.AccessToken == "") {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, "kite provider requires api_key and access_token")
	}
	return nil
}

func writeTemplate(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}
	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, []byte(configTemplate), 0644)
}

const configTemplate = `# paper-trader configuration

[trading]
# Cash balance used to seed a fresh account.
initial_balance = 100000.0

[monitor]
# How often the background monitor evaluates resting orders.
interval = "5s"

[quote]
# Quote provider: "yahoo" (no credentials needed) or "kite".
provider = "yahoo"
timeout = "10s"
cache_ttl = "2s"

[quote.kite]
# Only needed when provider = "kite". Can also be set via
# KITE_API_KEY and KITE_ACCESS_TOKEN environment variables.
api_key = ""
access_token = ""
exchange = "NSE"

[logging]
level = "info"
console = true
file = true
`
