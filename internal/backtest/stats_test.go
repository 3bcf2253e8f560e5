package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestComputeStats_MixedReturns checks the aggregate figures for a
// mixed win/loss sample.
func TestComputeStats_MixedReturns(t *testing.T) {
	stats := computeStats([]float64{10, -5, 10, -5})

	assert.Equal(t, 0.5, stats.WinRate)
	assert.Equal(t, 2.5, stats.AvgReturnPct)
	assert.Equal(t, 10.0, stats.AvgWinPct)
	assert.Equal(t, -5.0, stats.AvgLossPct)
	assert.Equal(t, 4, stats.TradeCount)
}

// TestComputeStats_ZeroVarianceSharpe verifies identical returns
// produce a zero Sharpe ratio instead of dividing by zero.
func TestComputeStats_ZeroVarianceSharpe(t *testing.T) {
	stats := computeStats([]float64{5, 5, 5})

	assert.Equal(t, 0.0, stats.SharpeRatio)
	assert.Equal(t, 1.0, stats.WinRate)
}

// TestComputeStats_SingleTrade verifies one trade yields no Sharpe.
func TestComputeStats_SingleTrade(t *testing.T) {
	stats := computeStats([]float64{3})

	assert.Equal(t, 0.0, stats.SharpeRatio)
	assert.Equal(t, 1, stats.TradeCount)
}

// TestComputeStats_ZeroCountsAsLoss verifies flat trades are not wins.
func TestComputeStats_ZeroCountsAsLoss(t *testing.T) {
	stats := computeStats([]float64{0, 0, 10, 10})

	assert.Equal(t, 0.5, stats.WinRate)
}

// TestComputeStats_Empty verifies an empty sample is all zeros.
func TestComputeStats_Empty(t *testing.T) {
	assert.Equal(t, WindowStats{}, computeStats(nil))
}

// TestComputeStats_PositiveSharpe verifies a sample with positive mean
// and variance annualizes to a positive Sharpe.
func TestComputeStats_PositiveSharpe(t *testing.T) {
	stats := computeStats([]float64{2, 3, 1, 4, 2, 3})

	assert.Greater(t, stats.SharpeRatio, 0.0)
}

// TestMaxDrawdownOfCumSum_PeakToTrough checks the drawdown of the
// running sum of returns.
func TestMaxDrawdownOfCumSum_PeakToTrough(t *testing.T) {
	// Cumulative path: 10, 5, 0, 10. Peak 10, trough 0.
	dd := maxDrawdownOfCumSum([]float64{10, -5, -5, 10})

	assert.Equal(t, 10.0, dd)
}

// TestMaxDrawdownOfCumSum_MonotonicGains verifies no drawdown on a
// winning streak.
func TestMaxDrawdownOfCumSum_MonotonicGains(t *testing.T) {
	dd := maxDrawdownOfCumSum([]float64{1, 2, 3})

	assert.Equal(t, 0.0, dd)
}

// TestMaxDrawdownOfCumSum_ImmediateLoss verifies losses from a zero
// starting peak still count.
func TestMaxDrawdownOfCumSum_ImmediateLoss(t *testing.T) {
	dd := maxDrawdownOfCumSum([]float64{-5, -5})

	assert.Equal(t, 10.0, dd)
}
