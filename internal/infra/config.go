package infra

import (
	"fmt"
	"os"

	"predict_go/internal/domain"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// MakerAsset binds one outcome token to its market for quoting.
type MakerAsset struct {
	AssetID  string `yaml:"asset_id"`
	MarketID string `yaml:"market_id"`
}

// ArbMarket binds a market to its two complementary outcome tokens.
type ArbMarket struct {
	MarketID   string `yaml:"market_id"`
	YesAssetID string `yaml:"yes_asset_id"`
	NoAssetID  string `yaml:"no_asset_id"`
}

// Config holds all application settings. Sensitive values are overridden
// from environment variables after the YAML file is loaded.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Stream struct {
		URL                  string `yaml:"url"`
		ReconnectIntervalMS  int    `yaml:"reconnect_interval_ms"`
		MaxReconnectAttempts int    `yaml:"max_reconnect_attempts"`
		APIKey               string `yaml:"api_key"`
		APISecret            string `yaml:"api_secret"`
	} `yaml:"stream"`

	MarketMaker struct {
		Spread            decimal.Decimal `yaml:"spread"`
		OrderSize         string          `yaml:"order_size"`
		MaxPosition       string          `yaml:"max_position"`
		MinLiquidity      string          `yaml:"min_liquidity"`
		RefreshIntervalMS int             `yaml:"refresh_interval_ms"`
		Assets            []MakerAsset    `yaml:"assets"`
	} `yaml:"market_maker"`

	Arbitrage struct {
		MinSpread   decimal.Decimal `yaml:"min_spread"`
		MaxSlippage decimal.Decimal `yaml:"max_slippage"`
		OrderSize   string          `yaml:"order_size"`
		Markets     []ArbMarket     `yaml:"markets"`
	} `yaml:"arbitrage"`

	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides and defaults, then validates.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults fills every optional field that was left at its zero value.
func (c *Config) applyDefaults() {
	if c.Stream.ReconnectIntervalMS <= 0 {
		c.Stream.ReconnectIntervalMS = 5000
	}
	if c.Stream.MaxReconnectAttempts <= 0 {
		c.Stream.MaxReconnectAttempts = 10
	}
	if c.MarketMaker.Spread.IsZero() {
		c.MarketMaker.Spread = decimal.NewFromFloat(0.02)
	}
	if c.MarketMaker.OrderSize == "" {
		c.MarketMaker.OrderSize = "10"
	}
	if c.MarketMaker.MaxPosition == "" {
		c.MarketMaker.MaxPosition = "100"
	}
	if c.MarketMaker.MinLiquidity == "" {
		c.MarketMaker.MinLiquidity = "1000"
	}
	if c.MarketMaker.RefreshIntervalMS <= 0 {
		c.MarketMaker.RefreshIntervalMS = 30000
	}
	if c.Arbitrage.MinSpread.IsZero() {
		c.Arbitrage.MinSpread = decimal.NewFromFloat(0.01)
	}
	if c.Arbitrage.MaxSlippage.IsZero() {
		c.Arbitrage.MaxSlippage = decimal.NewFromFloat(0.005)
	}
	if c.Arbitrage.OrderSize == "" {
		c.Arbitrage.OrderSize = "50"
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "data/signals.db"
	}
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Stream.URL == "" || (!hasPrefix(c.Stream.URL, "ws://") && !hasPrefix(c.Stream.URL, "wss://")) {
		return fmt.Errorf("invalid stream URL: %s", c.Stream.URL)
	}
	if c.MarketMaker.Spread.IsNegative() || c.MarketMaker.Spread.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("market maker spread must be in [0, 1): %s", c.MarketMaker.Spread)
	}
	if _, err := decimal.NewFromString(c.MarketMaker.OrderSize); err != nil {
		return fmt.Errorf("invalid market maker order size: %s", c.MarketMaker.OrderSize)
	}
	if _, err := decimal.NewFromString(c.MarketMaker.MaxPosition); err != nil {
		return fmt.Errorf("invalid market maker max position: %s", c.MarketMaker.MaxPosition)
	}
	if c.Arbitrage.MinSpread.IsNegative() {
		return fmt.Errorf("arbitrage min spread must not be negative: %s", c.Arbitrage.MinSpread)
	}
	if _, err := decimal.NewFromString(c.Arbitrage.OrderSize); err != nil {
		return fmt.Errorf("invalid arbitrage order size: %s", c.Arbitrage.OrderSize)
	}
	for _, m := range c.Arbitrage.Markets {
		if m.MarketID == "" {
			return fmt.Errorf("arbitrage market with empty market_id")
		}
	}
	return nil
}

// HasTradingCredentials reports whether order placement is possible.
// Gates market-maker start.
func (c *Config) HasTradingCredentials() bool {
	return c.Stream.APIKey != "" && c.Stream.APISecret != ""
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv applies environment variables over file values.
func overrideWithEnv(cfg *Config) {
	if key := os.Getenv("PREDICT_API_KEY"); key != "" {
		cfg.Stream.APIKey = key
	}
	if secret := os.Getenv("PREDICT_API_SECRET"); secret != "" {
		cfg.Stream.APISecret = secret
	}
	if url := os.Getenv("PREDICT_STREAM_URL"); url != "" {
		cfg.Stream.URL = url
	}
}
