package app

import (
	"log/slog"
	"time"

	"predict_go/internal/arb"
	"predict_go/internal/infra"
	"predict_go/internal/journal"
	"predict_go/internal/maker"
	"predict_go/internal/stream"

	"github.com/shopspring/decimal"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config  *infra.Config
	Journal *journal.Journal
	Metrics *infra.Metrics
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, installs the logger, and opens the journal.
func (b *Bootstrap) Initialize(configPath string) error {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg.Logging.Level)
	slog.SetDefault(logger)

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	b.Journal = j
	slog.Info("signal journal opened", slog.String("path", cfg.Journal.Path))

	b.Metrics = &infra.Metrics{}
	return nil
}

// StreamConfig translates the loaded config for the streaming client.
func (b *Bootstrap) StreamConfig() stream.Config {
	cfg := stream.DefaultConfig(b.Config.Stream.URL)
	cfg.ReconnectInterval = time.Duration(b.Config.Stream.ReconnectIntervalMS) * time.Millisecond
	cfg.MaxReconnectAttempts = b.Config.Stream.MaxReconnectAttempts
	return cfg
}

// MakerConfig translates the loaded config for the market-maker engine.
func (b *Bootstrap) MakerConfig() maker.Config {
	cfg := maker.DefaultConfig()
	mm := b.Config.MarketMaker
	cfg.Spread = mm.Spread
	cfg.OrderSize = mm.OrderSize
	if v, err := decimal.NewFromString(mm.MaxPosition); err == nil {
		cfg.MaxPosition = v
	}
	if v, err := decimal.NewFromString(mm.MinLiquidity); err == nil {
		cfg.MinLiquidity = v
	}
	cfg.RefreshInterval = time.Duration(mm.RefreshIntervalMS) * time.Millisecond
	return cfg
}

// ArbConfig translates the loaded config for the arbitrage engine.
func (b *Bootstrap) ArbConfig() arb.Config {
	cfg := arb.DefaultConfig()
	a := b.Config.Arbitrage
	cfg.MinSpread = a.MinSpread
	cfg.MaxSlippage = a.MaxSlippage
	if v, err := decimal.NewFromString(a.OrderSize); err == nil {
		cfg.OrderSize = v
	}
	return cfg
}

// ArbMarkets translates the configured markets into tracked pairs.
func (b *Bootstrap) ArbMarkets() []arb.MarketPair {
	pairs := make([]arb.MarketPair, 0, len(b.Config.Arbitrage.Markets))
	for _, m := range b.Config.Arbitrage.Markets {
		pairs = append(pairs, arb.MarketPair{
			MarketID:   m.MarketID,
			YesAssetID: m.YesAssetID,
			NoAssetID:  m.NoAssetID,
		})
	}
	return pairs
}
