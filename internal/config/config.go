package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"arb-ranker/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Exchanges  []string         `mapstructure:"exchanges"`
	Fees       FeesConfig       `mapstructure:"fees"`
	Costs      CostsConfig      `mapstructure:"costs"`
	Ranking    RankingConfig    `mapstructure:"ranking"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Alerting   AlertingConfig   `mapstructure:"alerting"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig covers the inbound HTTP API.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// MarketDataConfig points at the snapshot collaborator service.
type MarketDataConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxPairs       int           `mapstructure:"max_pairs"`
	TopAssetsOnly  bool          `mapstructure:"top_assets_only"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// FeesConfig carries per-exchange taker fee percentages.
type FeesConfig struct {
	Default   float64            `mapstructure:"default"`
	Exchanges map[string]float64 `mapstructure:"exchanges"`
}

// Percent returns the taker fee for an exchange, falling back to the default.
func (f FeesConfig) Percent(exchange string) float64 {
	if pct, ok := f.Exchanges[strings.ToLower(exchange)]; ok {
		return pct
	}
	return f.Default
}

// CostsConfig tunes the per-leg cost model.
type CostsConfig struct {
	TransferPct      float64 `mapstructure:"transfer_pct"`
	SlippageFloorPct float64 `mapstructure:"slippage_floor_pct"`
}

// RankingConfig governs scoring and the result cache.
type RankingConfig struct {
	SafetyBufferPct float64       `mapstructure:"safety_buffer_pct"`
	MinCoverage     int           `mapstructure:"min_coverage"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
}

// SchedulerConfig governs the watch-mode cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToBucket   bool          `mapstructure:"align_to_bucket"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	Enabled      bool           `mapstructure:"enabled"`
	ThresholdPct float64        `mapstructure:"threshold_pct"`
	Cooldown     time.Duration  `mapstructure:"cooldown"`
	Channels     []string       `mapstructure:"channels"`
	Telegram     TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig routes alerts through a Telegram bot.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARBRANKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	for i, exchange := range cfg.Exchanges {
		cfg.Exchanges[i] = strings.ToLower(strings.TrimSpace(exchange))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "arbranker")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("market_data.base_url", "http://127.0.0.1:8000")
	v.SetDefault("market_data.request_timeout", "8s")
	v.SetDefault("market_data.max_pairs", 1000)
	v.SetDefault("market_data.top_assets_only", true)
	v.SetDefault("market_data.user_agent", "arbranker/1.0")

	v.SetDefault("exchanges", []string{"binance", "bybit", "okx", "kraken", "coinbase"})

	v.SetDefault("fees.default", 0.20)
	v.SetDefault("fees.exchanges", map[string]float64{
		"binance":  0.10,
		"bybit":    0.10,
		"okx":      0.08,
		"kraken":   0.26,
		"coinbase": 0.60,
	})

	v.SetDefault("costs.transfer_pct", 0.12)
	v.SetDefault("costs.slippage_floor_pct", 0.05)

	v.SetDefault("ranking.safety_buffer_pct", 0.30)
	v.SetDefault("ranking.min_coverage", 2)
	v.SetDefault("ranking.cache_ttl", "15s")

	v.SetDefault("scheduler.interval", "1m")
	v.SetDefault("scheduler.align_to_bucket", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x61726272))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.threshold_pct", 0.0)
	v.SetDefault("alerting.cooldown", "30m")
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if len(c.Exchanges) == 0 {
		return fmt.Errorf("exchanges must list at least one exchange")
	}
	if c.MarketData.BaseURL == "" {
		return fmt.Errorf("market_data.base_url is required")
	}
	if c.MarketData.MaxPairs <= 0 {
		return fmt.Errorf("market_data.max_pairs must be greater than zero")
	}
	if c.MarketData.RequestTimeout <= 0 {
		return fmt.Errorf("market_data.request_timeout must be greater than zero")
	}
	if c.Ranking.CacheTTL <= 0 {
		return fmt.Errorf("ranking.cache_ttl must be greater than zero")
	}
	if c.Ranking.MinCoverage < 1 {
		return fmt.Errorf("ranking.min_coverage must be at least 1")
	}
	if c.Ranking.SafetyBufferPct < 0 {
		return fmt.Errorf("ranking.safety_buffer_pct cannot be negative")
	}
	if c.Costs.TransferPct < 0 || c.Costs.SlippageFloorPct < 0 {
		return fmt.Errorf("costs percentages cannot be negative")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.ThresholdPct < 0 {
		return fmt.Errorf("alerting.threshold_pct cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token is required when telegram is enabled")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
