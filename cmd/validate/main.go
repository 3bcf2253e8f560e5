package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/quantgate/quantgate/internal/backtest"
	"github.com/quantgate/quantgate/internal/config"
	"github.com/quantgate/quantgate/internal/logger"
	"github.com/quantgate/quantgate/internal/risk"
	"github.com/quantgate/quantgate/internal/signal"
	"github.com/quantgate/quantgate/internal/sizing"
	"github.com/quantgate/quantgate/internal/validator"
	"github.com/quantgate/quantgate/pkg/data"
	"github.com/quantgate/quantgate/pkg/reporting"
)

const (
	AppName    = "QuantGate Validate"
	AppVersion = "1.0.0"
)

func main() {
	var (
		ticker       = flag.String("ticker", "", "Ticker symbol to validate (required)")
		decision     = flag.String("decision", "BUY", "Trade decision: BUY, SELL or HOLD")
		confidence   = flag.Float64("confidence", 0.6, "Decision confidence in [0, 1]")
		stopLossPct  = flag.Float64("stop", -5.0, "Stop-loss distance in percent")
		targetPct    = flag.Float64("target", 10.0, "Target distance in percent")
		rationale    = flag.String("rationale", "", "Free-text rationale for the signal")
		price        = flag.Float64("price", 0, "Current price (fetched from the provider when 0)")
		skipBacktest = flag.Bool("skip-backtest", false, "Skip the historical backtest gate")
		envFile      = flag.String("env", ".env", "Environment file to load")
		showVersion  = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", AppName, AppVersion)
		return
	}

	if *ticker == "" {
		flag.Usage()
		log.Fatalf("❌ -ticker is required")
	}

	loadEnvironment(*envFile)
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	fileLog, err := logger.NewLogger("validate", cfg.Paths.LogDir)
	if err != nil {
		log.Fatalf("❌ Logger error: %v", err)
	}
	defer fileLog.Close()

	provider := buildProvider(cfg)

	currentPrice := *price
	if currentPrice == 0 {
		currentPrice, err = provider.LatestPrice(ctx, *ticker)
		if err != nil {
			log.Fatalf("❌ Could not fetch current price for %s: %v", *ticker, err)
		}
	}

	pipeline, err := buildPipeline(cfg, provider, fileLog)
	if err != nil {
		log.Fatalf("❌ Pipeline error: %v", err)
	}

	sig := signal.Signal{
		Ticker:      *ticker,
		Decision:    signal.Decision(*decision),
		Confidence:  *confidence,
		StopLossPct: *stopLossPct,
		TargetPct:   *targetPct,
		Rationale:   *rationale,
	}

	result := pipeline.ValidateAndSize(ctx, sig, currentPrice, *skipBacktest)

	console := reporting.NewConsoleReporter()
	console.PrintValidation(result)
	console.PrintPortfolio(pipeline.PortfolioSummary())

	if !result.Approved {
		os.Exit(1)
	}
}

func loadEnvironment(envFile string) {
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("⚠️  Could not load %s (%v)", envFile, err)
	}
}

func buildProvider(cfg *config.Config) data.PriceProvider {
	var provider data.PriceProvider
	switch cfg.MarketData.Provider {
	case "bybit":
		provider = data.NewBybitProvider(data.BybitConfig{
			APIKey:    cfg.MarketData.APIKey,
			APISecret: cfg.MarketData.Secret,
			Category:  cfg.MarketData.Category,
			Testnet:   cfg.MarketData.Testnet,
		})
	default:
		provider = data.NewCSVProvider(cfg.Paths.DataDir)
	}
	return data.NewCachedProvider(provider)
}

func buildPipeline(cfg *config.Config, provider data.PriceProvider, fileLog *logger.Logger) (*validator.Validator, error) {
	riskConfig := risk.Config{
		MinConfidence:           cfg.Risk.MinConfidence,
		MinRiskReward:           cfg.Risk.MinRiskReward,
		MaxOpenPositions:        cfg.Risk.MaxOpenPositions,
		MaxDailyLossPct:         cfg.Risk.MaxDailyLossPct,
		MaxPortfolioDrawdownPct: cfg.Risk.MaxPortfolioDrawdownPct,
		MaxSectorExposurePct:    cfg.Risk.MaxSectorExposurePct,
		PortfolioValue:          cfg.Risk.PortfolioValue,
	}

	riskEngine, err := risk.NewEngine(riskConfig, cfg.Paths.StateDir, fileLog)
	if err != nil {
		return nil, fmt.Errorf("failed to create risk engine: %w", err)
	}

	backtester := backtest.NewBacktester(backtest.Config{
		LookbackDays: cfg.Backtest.LookbackDays,
		TestWindows:  cfg.Backtest.TestWindows,
	}, provider)

	sizer := sizing.NewSizer(sizing.Config{
		MaxRiskPerTradePct: cfg.Sizing.MaxRiskPerTradePct,
		MaxPositionPct:     cfg.Sizing.MaxPositionPct,
		KellyFraction:      cfg.Sizing.KellyFraction,
	})

	audit, err := validator.NewAuditLog(cfg.Paths.LogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit log: %w", err)
	}

	return validator.NewValidator(riskEngine, backtester, sizer, audit, fileLog), nil
}
