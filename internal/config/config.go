// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. LAUNCHBOT_LISTEN_ADDR or
// LAUNCHBOT_STORAGE_DRIVER.
const EnvPrefix = "LAUNCHBOT"

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

type Config struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	DebugLogging bool   `mapstructure:"debug_logging"`
	LogFormat    string `mapstructure:"log_format"`
	LogFile      string `mapstructure:"log_file"`

	PriceAPIURL    string `mapstructure:"price_api_url"`
	PriceRateLimit int    `mapstructure:"price_rate_limit"`
	PriceTimeoutMS int    `mapstructure:"price_timeout_ms"`

	FeedURL         string `mapstructure:"feed_url"`
	FeedReconnectMS int    `mapstructure:"feed_reconnect_ms"`

	CycleIntervalMS   int `mapstructure:"cycle_interval_ms"`
	DiscoveryWindowMS int `mapstructure:"discovery_window_ms"`

	SimIntervalMS int `mapstructure:"sim_interval_ms"`
	SimSpawnMinMS int `mapstructure:"sim_spawn_min_ms"`
	SimSpawnMaxMS int `mapstructure:"sim_spawn_max_ms"`

	Storage StorageConfig `mapstructure:"storage"`

	Executor      string `mapstructure:"executor"`
	JupiterAPIURL string `mapstructure:"jupiter_api_url"`
	RPCURL        string `mapstructure:"rpc_url"`

	JournalPath string `mapstructure:"journal_path"`
	PresetsPath string `mapstructure:"presets_path"`
}

const (
	DefaultListenAddr        = ":3000"
	DefaultPriceRateLimit    = 10
	DefaultPriceTimeoutMS    = 5000
	DefaultFeedReconnectMS   = 5000
	DefaultCycleIntervalMS   = 10000
	DefaultDiscoveryWindowMS = 2000
	DefaultSimIntervalMS     = 2000
	DefaultSimSpawnMinMS     = 5000
	DefaultSimSpawnMaxMS     = 15000
)

func defaults() map[string]any {
	return map[string]any{
		"listen_addr":         DefaultListenAddr,
		"debug_logging":       false,
		"log_format":          "console",
		"log_file":            "",
		"price_api_url":       "https://lite-api.jup.ag",
		"price_rate_limit":    DefaultPriceRateLimit,
		"price_timeout_ms":    DefaultPriceTimeoutMS,
		"feed_url":            "wss://pumpportal.fun/api/data",
		"feed_reconnect_ms":   DefaultFeedReconnectMS,
		"cycle_interval_ms":   DefaultCycleIntervalMS,
		"discovery_window_ms": DefaultDiscoveryWindowMS,
		"sim_interval_ms":     DefaultSimIntervalMS,
		"sim_spawn_min_ms":    DefaultSimSpawnMinMS,
		"sim_spawn_max_ms":    DefaultSimSpawnMaxMS,
		"storage.driver":      "file",
		"storage.path":        "data",
		"storage.dsn":         "",
		"executor":            "paper",
		"jupiter_api_url":     "https://quote-api.jup.ag/v6",
		"rpc_url":             "https://api.devnet.solana.com",
		"journal_path":        "data/closed_trades.csv",
		"presets_path":        "",
	}
}

// Load reads an optional .env file, then the config file at path (skipped
// when empty), then LAUNCHBOT_* environment variables.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	switch c.Storage.Driver {
	case "file", "sqlite":
		if c.Storage.Path == "" {
			return errors.New("storage.path is required")
		}
	case "postgres":
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Executor {
	case "paper":
	case "jupiter":
		if err := validateURL(c.JupiterAPIURL, "http"); err != nil {
			return fmt.Errorf("jupiter_api_url: %w", err)
		}
	default:
		return fmt.Errorf("executor must be paper or jupiter, got %q", c.Executor)
	}

	if err := validateURL(c.PriceAPIURL, "http"); err != nil {
		return fmt.Errorf("price_api_url: %w", err)
	}
	if err := validateURL(c.FeedURL, "ws"); err != nil {
		return fmt.Errorf("feed_url: %w", err)
	}
	return c.validateNumbers()
}

func (c *Config) validateNumbers() error {
	positive := map[string]int{
		"price_timeout_ms":    c.PriceTimeoutMS,
		"feed_reconnect_ms":   c.FeedReconnectMS,
		"cycle_interval_ms":   c.CycleIntervalMS,
		"discovery_window_ms": c.DiscoveryWindowMS,
		"sim_interval_ms":     c.SimIntervalMS,
		"sim_spawn_min_ms":    c.SimSpawnMinMS,
	}
	for key, val := range positive {
		if val <= 0 {
			return fmt.Errorf("invalid %s: %d", key, val)
		}
	}
	if c.PriceRateLimit < 0 {
		return errors.New("invalid price_rate_limit")
	}
	if c.SimSpawnMaxMS < c.SimSpawnMinMS {
		return errors.New("sim_spawn_max_ms must not be below sim_spawn_min_ms")
	}
	if c.DiscoveryWindowMS >= c.CycleIntervalMS {
		return errors.New("discovery_window_ms must be shorter than cycle_interval_ms")
	}
	return nil
}

func validateURL(raw, scheme string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, scheme) || parsed.Host == "" {
		return fmt.Errorf("expected %s(s) URL, got %q", scheme, raw)
	}
	return nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func (c *Config) PriceTimeout() time.Duration    { return ms(c.PriceTimeoutMS) }
func (c *Config) FeedReconnect() time.Duration   { return ms(c.FeedReconnectMS) }
func (c *Config) CycleInterval() time.Duration   { return ms(c.CycleIntervalMS) }
func (c *Config) DiscoveryWindow() time.Duration { return ms(c.DiscoveryWindowMS) }
func (c *Config) SimInterval() time.Duration     { return ms(c.SimIntervalMS) }
func (c *Config) SimSpawnMin() time.Duration     { return ms(c.SimSpawnMinMS) }
func (c *Config) SimSpawnMax() time.Duration     { return ms(c.SimSpawnMaxMS) }
