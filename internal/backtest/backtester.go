package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/quantgate/quantgate/internal/signal"
	"github.com/quantgate/quantgate/pkg/data"
	"github.com/quantgate/quantgate/pkg/types"
)

// minObservations is the fewest daily closes worth simulating against.
const minObservations = 30

// Config holds backtest simulation parameters.
type Config struct {
	LookbackDays int   // length of the historical window in trading days
	TestWindows  []int // holding periods to simulate, in trading days
}

// DefaultConfig returns the standard lookback and holding windows.
func DefaultConfig() Config {
	return Config{
		LookbackDays: 252,
		TestWindows:  []int{5, 10, 20, 60},
	}
}

// Result is the outcome of backtesting one signal. It is ephemeral:
// recomputed per validation call, never persisted.
type Result struct {
	Approved        bool                   `json:"approved"`
	Reason          string                 `json:"reason"`
	WinRate         float64                `json:"win_rate"`
	AvgReturnPct    float64                `json:"avg_return_pct"`
	SharpeRatio     float64                `json:"sharpe_ratio"`
	MaxDrawdownPct  float64                `json:"max_drawdown_pct"`
	TradeCount      int                    `json:"trade_count"`
	BestHoldPeriod  string                 `json:"best_hold_period,omitempty"`
	AllWindows      map[string]WindowStats `json:"all_windows,omitempty"`
	DataUnavailable bool                   `json:"data_unavailable,omitempty"`
}

// Backtester answers "would this signal, applied historically, have
// been profitable?" by walking daily closes forward and simulating
// entries across several holding windows.
//
// When price history is unavailable or too short the backtester
// approves by default with an explanatory reason: a data-provider
// outage must never block trading. The fail-open branch is marked by
// Result.DataUnavailable.
type Backtester struct {
	config   Config
	provider data.PriceProvider
}

// NewBacktester creates a backtester reading history from the provider.
func NewBacktester(config Config, provider data.PriceProvider) *Backtester {
	if config.LookbackDays <= 0 {
		config.LookbackDays = 252
	}
	if len(config.TestWindows) == 0 {
		config.TestWindows = []int{5, 10, 20, 60}
	}
	return &Backtester{config: config, provider: provider}
}

// BacktestSignal simulates the signal against history and issues a
// pass/fail recommendation. It never returns an error; every
// exceptional path converges to an approved fail-open result.
func (b *Backtester) BacktestSignal(ctx context.Context, ticker string, decision signal.Decision, stopLossPct, targetPct float64) Result {
	if decision == signal.DecisionHold {
		return Result{Approved: true, Reason: "HOLD — no backtest needed"}
	}

	maxWindow := 0
	for _, w := range b.config.TestWindows {
		if w > maxWindow {
			maxWindow = w
		}
	}

	end := time.Now()
	start := end.AddDate(0, 0, -(b.config.LookbackDays + maxWindow))

	series, err := b.provider.DailyCloses(ctx, ticker, start, end)
	if err != nil {
		return Result{
			Approved:        true,
			Reason:          fmt.Sprintf("Price history unavailable for %s (proceeding anyway): %v", ticker, err),
			DataUnavailable: true,
		}
	}
	if len(series) < minObservations {
		return Result{
			Approved:        true,
			Reason:          fmt.Sprintf("Insufficient historical data for %s (%d observations)", ticker, len(series)),
			DataUnavailable: true,
		}
	}

	closes := types.Closes(series)

	allWindows := make(map[string]WindowStats)
	for _, holdDays := range b.config.TestWindows {
		returns := simulateTrades(closes, decision, stopLossPct, targetPct, holdDays)
		if len(returns) == 0 {
			continue
		}
		allWindows[fmt.Sprintf("%dd", holdDays)] = computeStats(returns)
	}

	if len(allWindows) == 0 {
		return Result{
			Approved:        true,
			Reason:          "No valid backtest trades generated",
			DataUnavailable: true,
		}
	}

	bestWindow := bestWindowBySharpe(allWindows)
	best := allWindows[bestWindow]

	var reasons []string
	if best.WinRate < 0.4 {
		reasons = append(reasons, fmt.Sprintf("Low win rate: %.0f%%", best.WinRate*100))
	}
	if best.SharpeRatio < 0.5 {
		reasons = append(reasons, fmt.Sprintf("Low Sharpe: %.2f", best.SharpeRatio))
	}
	if best.MaxDrawdownPct > 25.0 {
		reasons = append(reasons, fmt.Sprintf("High drawdown: %.1f%%", best.MaxDrawdownPct))
	}

	result := Result{
		Approved:       len(reasons) == 0,
		Reason:         fmt.Sprintf("Backtest passed (%s hold)", bestWindow),
		WinRate:        best.WinRate,
		AvgReturnPct:   best.AvgReturnPct,
		SharpeRatio:    best.SharpeRatio,
		MaxDrawdownPct: best.MaxDrawdownPct,
		TradeCount:     best.TradeCount,
		BestHoldPeriod: bestWindow,
		AllWindows:     allWindows,
	}
	if len(reasons) > 0 {
		result.Reason = strings.Join(reasons, " | ")
	}
	return result
}

// simulateTrades walks forward through the close series, entering
// every 5 bars and holding up to holdDays. Exits happen at the exact
// stop or target level when crossed, otherwise at the last bar of the
// window. Returns realized percentage returns for the simulated side.
func simulateTrades(closes []float64, decision signal.Decision, stopLossPct, targetPct float64, holdDays int) []float64 {
	var returns []float64
	stopLossPct = -math.Abs(stopLossPct)
	targetPct = math.Abs(targetPct)

	for i := 0; i < len(closes)-holdDays; i += 5 {
		entry := closes[i]
		if entry <= 0 {
			continue
		}
		exit := entry

		for j := 1; j <= holdDays && i+j < len(closes); j++ {
			current := closes[i+j]

			var changePct float64
			if decision == signal.DecisionBuy {
				changePct = (current - entry) / entry * 100
			} else {
				changePct = (entry - current) / entry * 100
			}

			if changePct <= stopLossPct {
				// Exit priced at the exact stop level, not the
				// triggering bar's raw price.
				exit = levelPrice(entry, decision, stopLossPct)
				break
			}
			if changePct >= targetPct {
				exit = levelPrice(entry, decision, targetPct)
				break
			}
			exit = current
		}

		var ret float64
		if decision == signal.DecisionBuy {
			ret = (exit - entry) / entry * 100
		} else {
			ret = (entry - exit) / entry * 100
		}
		returns = append(returns, ret)
	}

	return returns
}

// levelPrice converts a favorable/adverse move in percent into the
// exit price for the simulated side.
func levelPrice(entry float64, decision signal.Decision, movePct float64) float64 {
	if decision == signal.DecisionBuy {
		return entry * (1 + movePct/100)
	}
	return entry * (1 - movePct/100)
}

func bestWindowBySharpe(windows map[string]WindowStats) string {
	keys := make([]string, 0, len(windows))
	for k := range windows {
		keys = append(keys, k)
	}
	// Deterministic tie-breaking across map iteration orders.
	sort.Strings(keys)

	best := keys[0]
	for _, k := range keys[1:] {
		if windows[k].SharpeRatio > windows[best].SharpeRatio {
			best = k
		}
	}
	return best
}
