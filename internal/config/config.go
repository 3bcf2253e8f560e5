package config

import (
	"os"
	"strconv"
	"strings"
)

// Config is the full configuration surface of the pipeline. It is
// passed explicitly into each component's constructor; there is no
// hidden global state.
type Config struct {
	Environment string
	LogLevel    string

	Sizing struct {
		MaxRiskPerTradePct float64
		MaxPositionPct     float64
		KellyFraction      float64
	}

	Backtest struct {
		LookbackDays int
		TestWindows  []int
	}

	Risk struct {
		MinConfidence           float64
		MinRiskReward           float64
		MaxOpenPositions        int
		MaxDailyLossPct         float64
		MaxPortfolioDrawdownPct float64
		// Declared but not evaluated by the risk engine.
		MaxSectorExposurePct float64
		PortfolioValue       float64
	}

	Paths struct {
		StateDir string
		LogDir   string
		DataDir  string
	}

	MarketData struct {
		Provider string // "csv" or "bybit"
		Category string
		APIKey   string
		Secret   string
		Testnet  bool
	}

	Execution struct {
		SlippagePct  float64
		PaperCapital float64
	}

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
	}
}

// Load builds a Config from environment variables with defaults.
func Load() *Config {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	cfg.Sizing.MaxRiskPerTradePct = getEnvFloat("MAX_RISK_PER_TRADE_PCT", 2.0)
	cfg.Sizing.MaxPositionPct = getEnvFloat("MAX_POSITION_PCT", 20.0)
	cfg.Sizing.KellyFraction = getEnvFloat("KELLY_FRACTION", 0.5)

	cfg.Backtest.LookbackDays = getEnvInt("BACKTEST_LOOKBACK_DAYS", 252)
	cfg.Backtest.TestWindows = getEnvIntList("BACKTEST_TEST_WINDOWS", []int{5, 10, 20, 60})

	cfg.Risk.MinConfidence = getEnvFloat("MIN_CONFIDENCE", 0.5)
	cfg.Risk.MinRiskReward = getEnvFloat("MIN_RISK_REWARD", 1.5)
	cfg.Risk.MaxOpenPositions = getEnvInt("MAX_OPEN_POSITIONS", 10)
	cfg.Risk.MaxDailyLossPct = getEnvFloat("MAX_DAILY_LOSS_PCT", 3.0)
	cfg.Risk.MaxPortfolioDrawdownPct = getEnvFloat("MAX_PORTFOLIO_DRAWDOWN_PCT", 15.0)
	cfg.Risk.MaxSectorExposurePct = getEnvFloat("MAX_SECTOR_EXPOSURE_PCT", 40.0)
	cfg.Risk.PortfolioValue = getEnvFloat("PORTFOLIO_VALUE", 100000.0)

	cfg.Paths.StateDir = getEnv("STATE_DIR", "memory/risk_state")
	cfg.Paths.LogDir = getEnv("LOG_DIR", "memory/quant_logs")
	cfg.Paths.DataDir = getEnv("DATA_DIR", "data")

	cfg.MarketData.Provider = getEnv("MARKET_DATA_PROVIDER", "csv")
	cfg.MarketData.Category = getEnv("MARKET_DATA_CATEGORY", "spot")
	cfg.MarketData.APIKey = getEnv("MARKET_DATA_API_KEY", "")
	cfg.MarketData.Secret = getEnv("MARKET_DATA_SECRET", "")
	cfg.MarketData.Testnet = getEnvBool("MARKET_DATA_TESTNET", false)

	cfg.Execution.SlippagePct = getEnvFloat("SLIPPAGE_PCT", 0.1)
	cfg.Execution.PaperCapital = getEnvFloat("PAPER_CAPITAL", 100000.0)

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func getEnvIntList(key string, defaultVal []int) []int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []int
	for _, part := range strings.Split(val, ",") {
		parsed, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultVal
		}
		out = append(out, parsed)
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
