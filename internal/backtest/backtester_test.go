package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quantgate/quantgate/internal/signal"
	"github.com/quantgate/quantgate/pkg/types"
)

// stubProvider serves a fixed close series for any ticker.
type stubProvider struct {
	series []types.OHLCV
	err    error
	calls  int
}

func (s *stubProvider) DailyCloses(ctx context.Context, ticker string, start, end time.Time) ([]types.OHLCV, error) {
	s.calls++
	return s.series, s.err
}

func (s *stubProvider) LatestPrice(ctx context.Context, ticker string) (float64, error) {
	return 0, s.err
}

func (s *stubProvider) GetName() string { return "stub" }

func makeSeries(closes []float64) []types.OHLCV {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make([]types.OHLCV, len(closes))
	for i, c := range closes {
		series[i] = types.OHLCV{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return series
}

func risingCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100.0 + 0.5*float64(i)
	}
	return closes
}

func fallingCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 400.0 - 0.5*float64(i)
	}
	return closes
}

// TestBacktestSignal_HoldSkipsSimulation verifies HOLD signals are
// approved without touching the data provider.
func TestBacktestSignal_HoldSkipsSimulation(t *testing.T) {
	provider := &stubProvider{}
	bt := NewBacktester(DefaultConfig(), provider)

	result := bt.BacktestSignal(context.Background(), "AAPL", signal.DecisionHold, -5.0, 10.0)

	assert.True(t, result.Approved)
	assert.Equal(t, 0, provider.calls)
}

// TestBacktestSignal_ProviderErrorFailsOpen verifies a data outage
// approves the trade with an explanatory reason.
func TestBacktestSignal_ProviderErrorFailsOpen(t *testing.T) {
	provider := &stubProvider{err: errors.New("connection refused")}
	bt := NewBacktester(DefaultConfig(), provider)

	result := bt.BacktestSignal(context.Background(), "AAPL", signal.DecisionBuy, -5.0, 10.0)

	assert.True(t, result.Approved)
	assert.True(t, result.DataUnavailable)
	assert.Contains(t, result.Reason, "Price history unavailable for AAPL")
	assert.Contains(t, result.Reason, "connection refused")
}

// TestBacktestSignal_InsufficientDataFailsOpen verifies series shorter
// than the minimum observation count approve by default.
func TestBacktestSignal_InsufficientDataFailsOpen(t *testing.T) {
	provider := &stubProvider{series: makeSeries(risingCloses(10))}
	bt := NewBacktester(DefaultConfig(), provider)

	result := bt.BacktestSignal(context.Background(), "TSLA", signal.DecisionBuy, -5.0, 10.0)

	assert.True(t, result.Approved)
	assert.True(t, result.DataUnavailable)
	assert.Contains(t, result.Reason, "Insufficient historical data for TSLA (10 observations)")
}

// TestBacktestSignal_RisingSeriesApprovesBuy verifies a steady uptrend
// clears every approval threshold for a long signal.
func TestBacktestSignal_RisingSeriesApprovesBuy(t *testing.T) {
	provider := &stubProvider{series: makeSeries(risingCloses(300))}
	bt := NewBacktester(DefaultConfig(), provider)

	result := bt.BacktestSignal(context.Background(), "AAPL", signal.DecisionBuy, -5.0, 10.0)

	assert.True(t, result.Approved)
	assert.Contains(t, result.Reason, "Backtest passed")
	assert.Equal(t, 1.0, result.WinRate)
	assert.Equal(t, 0.0, result.MaxDrawdownPct)
	assert.Greater(t, result.TradeCount, 0)
	assert.NotEmpty(t, result.BestHoldPeriod)
	assert.NotEmpty(t, result.AllWindows)
	assert.False(t, result.DataUnavailable)
}

// TestBacktestSignal_FallingSeriesRejectsBuy verifies a downtrend
// rejects a long signal on win rate.
func TestBacktestSignal_FallingSeriesRejectsBuy(t *testing.T) {
	provider := &stubProvider{series: makeSeries(fallingCloses(300))}
	bt := NewBacktester(DefaultConfig(), provider)

	result := bt.BacktestSignal(context.Background(), "AAPL", signal.DecisionBuy, -5.0, 10.0)

	assert.False(t, result.Approved)
	assert.Contains(t, result.Reason, "Low win rate")
}

// TestBacktestSignal_FallingSeriesApprovesSell verifies a downtrend is
// a profitable environment for a short signal.
func TestBacktestSignal_FallingSeriesApprovesSell(t *testing.T) {
	provider := &stubProvider{series: makeSeries(fallingCloses(300))}
	bt := NewBacktester(DefaultConfig(), provider)

	result := bt.BacktestSignal(context.Background(), "AAPL", signal.DecisionSell, -5.0, 10.0)

	assert.True(t, result.Approved)
	assert.Equal(t, 1.0, result.WinRate)
}

// TestBacktestSignal_RejectionReasonsJoined verifies multiple failing
// thresholds produce one pipe-joined reason string.
func TestBacktestSignal_RejectionReasonsJoined(t *testing.T) {
	provider := &stubProvider{series: makeSeries(fallingCloses(300))}
	bt := NewBacktester(DefaultConfig(), provider)

	result := bt.BacktestSignal(context.Background(), "AAPL", signal.DecisionBuy, -5.0, 10.0)

	assert.False(t, result.Approved)
	assert.Contains(t, result.Reason, " | ")
}

// TestSimulateTrades_StopLossExactExit verifies exits are priced at
// the exact stop level rather than the triggering bar's close.
func TestSimulateTrades_StopLossExactExit(t *testing.T) {
	closes := make([]float64, 35)
	closes[0] = 100.0
	for i := 1; i < len(closes); i++ {
		closes[i] = 90.0
	}

	returns := simulateTrades(closes, signal.DecisionBuy, -5.0, 10.0, 5)

	assert.NotEmpty(t, returns)
	assert.Equal(t, -5.0, returns[0])
}

// TestSimulateTrades_TargetExactExit verifies exits are priced at the
// exact target level on a favorable gap.
func TestSimulateTrades_TargetExactExit(t *testing.T) {
	closes := make([]float64, 35)
	closes[0] = 100.0
	for i := 1; i < len(closes); i++ {
		closes[i] = 120.0
	}

	returns := simulateTrades(closes, signal.DecisionBuy, -5.0, 10.0, 5)

	assert.NotEmpty(t, returns)
	assert.Equal(t, 10.0, returns[0])
}

// TestSimulateTrades_EntryCadence verifies one entry every 5 bars over
// the tradable portion of the series.
func TestSimulateTrades_EntryCadence(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100.0
	}

	returns := simulateTrades(closes, signal.DecisionBuy, -5.0, 10.0, 10)

	// Entries at 0, 5, ..., 85: 18 trades.
	assert.Len(t, returns, 18)
}

// TestSimulateTrades_ShortSideStop verifies the stop triggers on an
// adverse upward move for a short.
func TestSimulateTrades_ShortSideStop(t *testing.T) {
	closes := make([]float64, 35)
	closes[0] = 100.0
	for i := 1; i < len(closes); i++ {
		closes[i] = 110.0
	}

	returns := simulateTrades(closes, signal.DecisionSell, -5.0, 10.0, 5)

	assert.NotEmpty(t, returns)
	assert.Equal(t, -5.0, returns[0])
}

// TestBestWindowBySharpe_Deterministic verifies ties break toward the
// lexicographically smallest window key.
func TestBestWindowBySharpe_Deterministic(t *testing.T) {
	windows := map[string]WindowStats{
		"20d": {SharpeRatio: 1.0},
		"10d": {SharpeRatio: 1.0},
		"5d":  {SharpeRatio: 1.0},
	}

	assert.Equal(t, "10d", bestWindowBySharpe(windows))
}
