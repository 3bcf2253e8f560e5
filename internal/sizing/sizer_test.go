package sizing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCalculatePosition_MinOfThreeMethods verifies a $100k portfolio,
// $1000 price, -5% stop, 10% target and 0.8 confidence yield candidate
// quantities 40/35/20 and the most conservative wins.
func TestCalculatePosition_MinOfThreeMethods(t *testing.T) {
	sizer := NewSizer(DefaultConfig())

	result := sizer.CalculatePosition(1000.0, -5.0, 10.0, 0.8, 100000.0)

	assert.Equal(t, 40, result.QtyByRiskLimit)
	assert.Equal(t, 35, result.QtyByKelly)
	assert.Equal(t, 20, result.QtyByMaxPosition)
	assert.Equal(t, 20, result.Quantity)
	assert.Equal(t, "min(risk_limit, half_kelly, max_position)", result.Method)
	assert.Equal(t, 20000.0, result.InvestmentAmount)
	assert.Equal(t, 20.0, result.InvestmentPct)
}

// TestCalculatePosition_StopAndTargetPrices checks the derived exit
// levels for a long trade.
func TestCalculatePosition_StopAndTargetPrices(t *testing.T) {
	sizer := NewSizer(DefaultConfig())

	result := sizer.CalculatePosition(100.0, -5.0, 10.0, 0.8, 100000.0)

	assert.Equal(t, 95.0, result.StopLossPrice)
	assert.Equal(t, 110.0, result.TargetPrice)
}

// TestCalculatePosition_RiskLimitBinds makes the fixed-fractional
// method the most conservative by widening the stop.
func TestCalculatePosition_RiskLimitBinds(t *testing.T) {
	sizer := NewSizer(DefaultConfig())

	// With a 20% stop, risk per share is large and the risk budget
	// binds before the position cap does.
	result := sizer.CalculatePosition(100.0, -20.0, 40.0, 0.9, 100000.0)

	assert.Equal(t, 100, result.QtyByRiskLimit)
	assert.Equal(t, result.QtyByRiskLimit, result.Quantity)
	assert.Less(t, result.QtyByRiskLimit, result.QtyByMaxPosition)
}

// TestCalculatePosition_LowConfidenceKellyBinds verifies that a weak
// signal shrinks the Kelly quantity below the other methods.
func TestCalculatePosition_LowConfidenceKellyBinds(t *testing.T) {
	sizer := NewSizer(DefaultConfig())

	result := sizer.CalculatePosition(100.0, -5.0, 6.0, 0.5, 100000.0)

	assert.Equal(t, result.QtyByKelly, result.Quantity)
	assert.Less(t, result.QtyByKelly, result.QtyByRiskLimit)
	assert.Less(t, result.QtyByKelly, result.QtyByMaxPosition)
}

// TestCalculatePosition_ConfidenceClamped checks the win probability
// clamp to [0.1, 0.95].
func TestCalculatePosition_ConfidenceClamped(t *testing.T) {
	sizer := NewSizer(DefaultConfig())

	high := sizer.CalculatePosition(100.0, -5.0, 10.0, 1.0, 100000.0)
	assert.Equal(t, 0.95, high.WinProb)

	low := sizer.CalculatePosition(100.0, -5.0, 10.0, 0.0, 100000.0)
	assert.Equal(t, 0.1, low.WinProb)
}

// TestCalculatePosition_NegativeKellyFloorsAtZero verifies that an
// unfavorable edge never produces a negative Kelly fraction.
func TestCalculatePosition_NegativeKellyFloorsAtZero(t *testing.T) {
	sizer := NewSizer(DefaultConfig())

	// Win prob clamps to 0.1 and the ratio is 1: raw Kelly is negative.
	result := sizer.CalculatePosition(100.0, -5.0, 5.0, 0.0, 100000.0)

	assert.Equal(t, 0.0, result.KellyFractionUsed)
	assert.Equal(t, 0, result.QtyByKelly)
	// The floor of one share still applies.
	assert.Equal(t, 1, result.Quantity)
}

// TestCalculatePosition_MinimumOneShare checks the quantity floor when
// every method rounds down to zero.
func TestCalculatePosition_MinimumOneShare(t *testing.T) {
	sizer := NewSizer(DefaultConfig())

	// Tiny portfolio relative to price: all three methods yield zero.
	result := sizer.CalculatePosition(5000.0, -5.0, 10.0, 0.8, 10000.0)

	assert.Equal(t, 1, result.Quantity)
}

// TestCalculatePosition_InvalidPriceRejected verifies a zero-quantity
// rejection for non-positive prices.
func TestCalculatePosition_InvalidPriceRejected(t *testing.T) {
	sizer := NewSizer(DefaultConfig())

	result := sizer.CalculatePosition(0, -5.0, 10.0, 0.8, 100000.0)

	assert.Equal(t, 0, result.Quantity)
	assert.Contains(t, result.Method, "REJECTED")
}

// TestCalculatePosition_InvalidPortfolioRejected verifies a
// zero-quantity rejection for non-positive portfolio values.
func TestCalculatePosition_InvalidPortfolioRejected(t *testing.T) {
	sizer := NewSizer(DefaultConfig())

	result := sizer.CalculatePosition(100.0, -5.0, 10.0, 0.8, -1.0)

	assert.Equal(t, 0, result.Quantity)
	assert.Contains(t, result.Method, "REJECTED")
}

// TestCalculatePosition_DefaultStopAndTarget checks that zero stop and
// target fall back to -5% and +5%.
func TestCalculatePosition_DefaultStopAndTarget(t *testing.T) {
	sizer := NewSizer(DefaultConfig())

	result := sizer.CalculatePosition(100.0, 0, 0, 0.8, 100000.0)

	assert.Equal(t, 95.0, result.StopLossPrice)
	assert.Equal(t, 105.0, result.TargetPrice)
	assert.Equal(t, 1.0, result.WinLossRatio)
}

// TestCalculatePosition_PositiveStopNormalized verifies that a stop
// given as a positive percentage is treated as negative.
func TestCalculatePosition_PositiveStopNormalized(t *testing.T) {
	sizer := NewSizer(DefaultConfig())

	positive := sizer.CalculatePosition(100.0, 5.0, 10.0, 0.8, 100000.0)
	negative := sizer.CalculatePosition(100.0, -5.0, 10.0, 0.8, 100000.0)

	assert.Equal(t, negative, positive)
}
