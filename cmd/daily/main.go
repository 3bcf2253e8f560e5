package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/quantgate/quantgate/internal/backtest"
	"github.com/quantgate/quantgate/internal/config"
	"github.com/quantgate/quantgate/internal/execution"
	"github.com/quantgate/quantgate/internal/logger"
	"github.com/quantgate/quantgate/internal/monitoring"
	"github.com/quantgate/quantgate/internal/risk"
	"github.com/quantgate/quantgate/internal/signal"
	"github.com/quantgate/quantgate/internal/sizing"
	"github.com/quantgate/quantgate/internal/validator"
	"github.com/quantgate/quantgate/pkg/data"
	"github.com/quantgate/quantgate/pkg/reporting"
)

const (
	AppName    = "QuantGate Daily"
	AppVersion = "1.0.0"
)

// WatchlistSignal is one entry of the signals input file. CurrentPrice
// is optional; missing prices are fetched from the market data provider.
type WatchlistSignal struct {
	signal.Signal
	CurrentPrice float64 `json:"current_price,omitempty"`
}

func main() {
	var (
		signalsFile  = flag.String("signals", "signals.json", "JSON file with the day's signals")
		envFile      = flag.String("env", ".env", "Environment file to load")
		excelOut     = flag.String("excel", "", "Optional Excel report output path")
		skipBacktest = flag.Bool("skip-backtest", false, "Skip the historical backtest gate")
		paper        = flag.Bool("paper", false, "Execute approved orders on the paper account")
		serve        = flag.Bool("serve", false, "Expose Prometheus metrics and health endpoints")
		showVersion  = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", AppName, AppVersion)
		return
	}

	loadEnvironment(*envFile)
	cfg := config.Load()

	fileLog, err := logger.NewLogger("daily", cfg.Paths.LogDir)
	if err != nil {
		log.Fatalf("❌ Logger error: %v", err)
	}
	defer fileLog.Close()

	signals, err := loadSignals(*signalsFile)
	if err != nil {
		log.Fatalf("❌ Signals error: %v", err)
	}
	log.Printf("📋 Loaded %d signals from %s", len(signals), *signalsFile)

	provider := buildProvider(cfg)

	health := monitoring.NewHealthChecker()
	if *serve {
		startMonitoringServers(cfg, health)
	}

	riskEngine, pipeline, err := buildPipeline(cfg, provider, fileLog)
	if err != nil {
		log.Fatalf("❌ Pipeline error: %v", err)
	}

	var trader *execution.PaperTrader
	if *paper {
		trader, err = execution.NewPaperTrader(execution.Config{
			InitialCapital: cfg.Execution.PaperCapital,
			SlippagePct:    cfg.Execution.SlippagePct,
			StateDir:       filepath.Join(cfg.Paths.StateDir, "paper"),
		}, fileLog)
		if err != nil {
			log.Fatalf("❌ Paper trader error: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	// A new trading day starts with fresh daily counters and a sweep of
	// existing positions against their stop levels.
	pipeline.ResetDaily()
	sweepStopLosses(ctx, riskEngine, provider, fileLog)

	results := runWatchlist(ctx, pipeline, riskEngine, trader, provider, signals, *skipBacktest, health, fileLog)

	summary := pipeline.PortfolioSummary()
	monitoring.UpdatePortfolio(summary.PortfolioValue, summary.DrawdownPct, summary.OpenPositions, summary.KillSwitchActive)

	console := reporting.NewConsoleReporter()
	console.PrintWatchlist(results)
	console.PrintPortfolio(summary)
	if trader != nil {
		console.PrintPaperAccount(trader.Portfolio())
	}

	daily := reporting.NewDailySummary(results, summary)
	summaryPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("daily_summary_%s.json", daily.Date))
	if err := reporting.WriteDailySummaryJSON(daily, summaryPath); err != nil {
		log.Printf("⚠️  Could not write daily summary: %v", err)
	} else {
		log.Printf("💾 Daily summary written to %s", summaryPath)
	}

	if *excelOut != "" {
		excel := reporting.NewExcelReporter()
		if err := excel.WriteValidationXLSX(results, *excelOut); err != nil {
			log.Printf("⚠️  Could not write Excel report: %v", err)
		} else {
			log.Printf("📊 Excel report written to %s", *excelOut)
		}
	}
}

func runWatchlist(
	ctx context.Context,
	pipeline *validator.Validator,
	riskEngine *risk.Engine,
	trader *execution.PaperTrader,
	provider data.PriceProvider,
	signals []WatchlistSignal,
	skipBacktest bool,
	health *monitoring.HealthChecker,
	fileLog *logger.Logger,
) []validator.Result {
	results := make([]validator.Result, 0, len(signals))

	for _, entry := range signals {
		currentPrice := entry.CurrentPrice
		if currentPrice == 0 {
			price, err := provider.LatestPrice(ctx, entry.Ticker)
			if err != nil {
				fileLog.Error("No price for %s, skipping: %v", entry.Ticker, err)
				monitoring.RecordError("price_fetch")
				health.SetProviderOK(false)
				continue
			}
			currentPrice = price
		}
		health.SetProviderOK(true)

		result := pipeline.ValidateAndSize(ctx, entry.Signal, currentPrice, skipBacktest)
		results = append(results, result)
		health.UpdateValidation(currentPrice)

		if result.Order == nil {
			continue
		}
		order := *result.Order
		monitoring.RecordOrder(order.Ticker, string(order.Side), order.InvestmentAmount)

		if trader != nil {
			fill := trader.PlaceOrder(order)
			log.Printf("%s", fill.Message)
			if fill.Success && order.Side == signal.DecisionBuy {
				riskEngine.RegisterPosition(order.Ticker, order.Quantity, order.Price, order.StopLoss, order.Target, order.Side)
			}
			if fill.Success && order.Side == signal.DecisionSell {
				riskEngine.ClosePosition(order.Ticker, order.Price)
			}
		}
	}

	return results
}

// sweepStopLosses refreshes open positions with latest prices and
// closes any position trading through its stop level.
func sweepStopLosses(ctx context.Context, riskEngine *risk.Engine, provider data.PriceProvider, fileLog *logger.Logger) {
	summary := riskEngine.PortfolioSummary()
	for ticker := range summary.Positions {
		price, err := provider.LatestPrice(ctx, ticker)
		if err != nil {
			fileLog.Warning("No price for open position %s: %v", ticker, err)
			continue
		}
		riskEngine.UpdatePosition(ticker, price)
	}

	for _, ticker := range riskEngine.CheckStopLosses() {
		pos, ok := riskEngine.PortfolioSummary().Positions[ticker]
		if !ok {
			continue
		}
		closed := riskEngine.ClosePosition(ticker, pos.CurrentPrice)
		fileLog.Audit("Stop-loss triggered for %s: realized P&L %.2f", ticker, closed.RealizedPnL)
		log.Printf("🛑 Stop-loss triggered for %s (P&L $%.2f)", ticker, closed.RealizedPnL)
	}
}

func loadSignals(path string) ([]WatchlistSignal, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signals file: %w", err)
	}
	var signals []WatchlistSignal
	if err := json.Unmarshal(raw, &signals); err != nil {
		return nil, fmt.Errorf("failed to parse signals file: %w", err)
	}
	return signals, nil
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

func buildPipeline(cfg *config.Config, provider data.PriceProvider, fileLog *logger.Logger) (*risk.Engine, *validator.Validator, error) {
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
		return nil, nil, fmt.Errorf("failed to create risk engine: %w", err)
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
		return nil, nil, fmt.Errorf("failed to create audit log: %w", err)
	}

	return riskEngine, validator.NewValidator(riskEngine, backtester, sizer, audit, fileLog), nil
}

func startMonitoringServers(cfg *config.Config, health *monitoring.HealthChecker) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", monitoring.NewMetricsHandler())
		addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
		log.Printf("📈 Metrics listening on %s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("⚠️  Metrics server stopped: %v", err)
		}
	}()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/health", health)
		addr := fmt.Sprintf(":%d", cfg.Monitoring.HealthPort)
		log.Printf("❤️  Health listening on %s/health", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Printf("⚠️  Health server stopped: %v", err)
		}
	}()
}
