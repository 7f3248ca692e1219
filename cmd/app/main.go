package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"predict_go/internal/app"
	"predict_go/internal/arb"
	"predict_go/internal/domain"
	"predict_go/internal/execution"
	"predict_go/internal/maker"
	"predict_go/internal/state"
	"predict_go/internal/stream"

	"github.com/shopspring/decimal"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// Pprof server, localhost only for security
	go func() {
		slog.Info("pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("pprof server failed", slog.Any("error", err))
		}
	}()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize("configs/config.yaml"); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Journal.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := bootstrap.Config
	metrics := bootstrap.Metrics

	// Streaming client over a shared subscription registry.
	client := stream.NewClient(bootstrap.StreamConfig(), stream.NewRegistry(), metrics)
	client.OnError(func(err error) {
		slog.Error("stream terminally down", slog.Any("error", err))
		stop() // let the host supervisor restart us
	})

	// Shared market state, written by stream callbacks.
	store := state.NewStore()

	// Paper executor carries the maker's cancel/requote cycle locally.
	executor := execution.NewPaperExecutor(decimal.NewFromInt(10_000))

	makerEngine := maker.NewEngine(
		bootstrap.MakerConfig(), client, store, executor,
		cfg.HasTradingCredentials, metrics,
	)
	executor.OnFill(makerEngine.ApplyFill)
	makerEngine.OnSignal(func(s domain.TradeSignal) {
		if err := bootstrap.Journal.RecordSignal(s); err != nil {
			slog.Warn("journal write failed", slog.Any("error", err))
		}
	})

	arbEngine := arb.NewEngine(bootstrap.ArbConfig(), client, store, metrics)
	arbEngine.OnOpportunity(func(opp domain.ArbitrageOpportunity) {
		if err := bootstrap.Journal.RecordOpportunity(opp); err != nil {
			slog.Warn("journal write failed", slog.Any("error", err))
		}
	})

	if err := client.Connect(ctx); err != nil {
		// Reconnection continues in the background; subscriptions are
		// latent until the transport comes up.
		slog.Warn("initial connect failed", slog.Any("error", err))
	}

	for _, a := range cfg.MarketMaker.Assets {
		if err := makerEngine.Start(ctx, a.AssetID, a.MarketID); err != nil {
			slog.Warn("market maker not started",
				slog.String("asset_id", a.AssetID), slog.Any("error", err))
		}
	}

	if pairs := bootstrap.ArbMarkets(); len(pairs) > 0 {
		if err := arbEngine.Start(ctx, pairs); err != nil {
			slog.Warn("arbitrage engine not started", slog.Any("error", err))
		}
	}

	slog.Info("signal core operational",
		slog.Int("maker_assets", len(cfg.MarketMaker.Assets)),
		slog.Int("arb_markets", len(cfg.Arbitrage.Markets)))

	<-ctx.Done()

	slog.Info("shutting down gracefully...")
	makerEngine.StopAll()
	arbEngine.Stop()
	client.Disconnect()

	snap := metrics.Snapshot()
	slog.Info("final counters",
		slog.Uint64("frames", snap.FramesDecoded),
		slog.Uint64("signals", snap.SignalsEmitted),
		slog.Uint64("opportunities", snap.OpportunitiesSeen),
		slog.Uint64("reconnects", snap.Reconnects))
}
