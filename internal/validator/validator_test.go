package validator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantgate/quantgate/internal/backtest"
	"github.com/quantgate/quantgate/internal/logger"
	"github.com/quantgate/quantgate/internal/risk"
	"github.com/quantgate/quantgate/internal/signal"
	"github.com/quantgate/quantgate/internal/sizing"
	"github.com/quantgate/quantgate/pkg/types"
)

// stubProvider serves a fixed close series for any ticker.
type stubProvider struct {
	closes []float64
	err    error
	calls  int
}

func (s *stubProvider) DailyCloses(ctx context.Context, ticker string, start, end time.Time) ([]types.OHLCV, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make([]types.OHLCV, len(s.closes))
	for i, c := range s.closes {
		series[i] = types.OHLCV{Timestamp: base.AddDate(0, 0, i), Close: c}
	}
	return series, nil
}

func (s *stubProvider) LatestPrice(ctx context.Context, ticker string) (float64, error) {
	return 0, s.err
}

func (s *stubProvider) GetName() string { return "stub" }

func trendingCloses(n int, slope float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100.0 + slope*float64(i)
	}
	return closes
}

type testPipeline struct {
	validator *Validator
	provider  *stubProvider
	logDir    string
}

func newTestPipeline(t *testing.T, provider *stubProvider) testPipeline {
	t.Helper()

	log := logger.NewDiscardLogger()
	logDir := t.TempDir()

	riskEngine, err := risk.NewEngine(risk.DefaultConfig(), t.TempDir(), log)
	require.NoError(t, err)

	audit, err := NewAuditLog(logDir)
	require.NoError(t, err)
	t.Cleanup(func() { audit.Close() })

	backtester := backtest.NewBacktester(backtest.DefaultConfig(), provider)
	sizer := sizing.NewSizer(sizing.DefaultConfig())

	return testPipeline{
		validator: NewValidator(riskEngine, backtester, sizer, audit, log),
		provider:  provider,
		logDir:    logDir,
	}
}

func buySignal(ticker string) signal.Signal {
	return signal.Signal{
		Ticker:      ticker,
		Decision:    signal.DecisionBuy,
		Confidence:  0.8,
		StopLossPct: -5.0,
		TargetPct:   10.0,
		Rationale:   "test signal",
	}
}

func auditLineCount(t *testing.T, logDir string) int {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(logDir, "signal_validation_log.jsonl"))
	require.NoError(t, err)
	return len(strings.Split(strings.TrimSpace(string(raw)), "\n"))
}

// TestValidateAndSize_ApprovedEndToEnd verifies a good signal clears
// all gates and produces a complete order.
func TestValidateAndSize_ApprovedEndToEnd(t *testing.T) {
	p := newTestPipeline(t, &stubProvider{closes: trendingCloses(300, 0.5)})

	result := p.validator.ValidateAndSize(context.Background(), buySignal("AAPL"), 150.0, false)

	assert.True(t, result.Approved)
	assert.Equal(t, "ALL CHECKS PASSED", result.Reason)
	require.NotNil(t, result.Order)
	assert.Equal(t, "AAPL", result.Order.Ticker)
	assert.Equal(t, signal.DecisionBuy, result.Order.Side)
	assert.Equal(t, "LIMIT", result.Order.OrderType)
	assert.Greater(t, result.Order.Quantity, 0)
	assert.Equal(t, 150.0, result.Order.Price)
	assert.NotNil(t, result.Steps.Backtest)
	assert.NotNil(t, result.Steps.Risk)
	assert.NotNil(t, result.Steps.PositionSizing)
}

// TestValidateAndSize_BacktestRejectionShortCircuits verifies a failed
// backtest stops the pipeline before the risk gate runs.
func TestValidateAndSize_BacktestRejectionShortCircuits(t *testing.T) {
	p := newTestPipeline(t, &stubProvider{closes: trendingCloses(300, -0.2)})

	result := p.validator.ValidateAndSize(context.Background(), buySignal("AAPL"), 150.0, false)

	assert.False(t, result.Approved)
	assert.True(t, strings.HasPrefix(result.Reason, "BACKTEST REJECTED: "))
	assert.Nil(t, result.Order)
	assert.NotNil(t, result.Steps.Backtest)
	assert.Nil(t, result.Steps.Risk)
	assert.Nil(t, result.Steps.PositionSizing)
}

// TestValidateAndSize_RiskRejectionShortCircuits verifies a failed
// risk check stops the pipeline before sizing.
func TestValidateAndSize_RiskRejectionShortCircuits(t *testing.T) {
	p := newTestPipeline(t, &stubProvider{})

	sig := buySignal("AAPL")
	sig.Confidence = 0.2
	result := p.validator.ValidateAndSize(context.Background(), sig, 150.0, true)

	assert.False(t, result.Approved)
	assert.True(t, strings.HasPrefix(result.Reason, "RISK REJECTED: "))
	assert.Nil(t, result.Order)
	assert.NotNil(t, result.Steps.Risk)
	assert.Nil(t, result.Steps.PositionSizing)
}

// TestValidateAndSize_SizingRejection verifies an unpriceable trade is
// rejected at the sizing gate.
func TestValidateAndSize_SizingRejection(t *testing.T) {
	p := newTestPipeline(t, &stubProvider{})

	result := p.validator.ValidateAndSize(context.Background(), buySignal("AAPL"), 0, true)

	assert.False(t, result.Approved)
	assert.True(t, strings.HasPrefix(result.Reason, "SIZING REJECTED: "))
	assert.Nil(t, result.Order)
}

// TestValidateAndSize_HoldProducesNoOrder verifies HOLD approves with
// no order and no backtest call.
func TestValidateAndSize_HoldProducesNoOrder(t *testing.T) {
	provider := &stubProvider{}
	p := newTestPipeline(t, provider)

	sig := buySignal("AAPL")
	sig.Decision = signal.DecisionHold
	result := p.validator.ValidateAndSize(context.Background(), sig, 150.0, false)

	assert.True(t, result.Approved)
	assert.Nil(t, result.Order)
	assert.Contains(t, result.Reason, "HOLD signal")
	assert.Equal(t, 0, provider.calls)
}

// TestValidateAndSize_InvalidSignalRejected verifies boundary
// validation failures reject without running any gate.
func TestValidateAndSize_InvalidSignalRejected(t *testing.T) {
	provider := &stubProvider{}
	p := newTestPipeline(t, provider)

	sig := buySignal("")
	result := p.validator.ValidateAndSize(context.Background(), sig, 150.0, false)

	assert.False(t, result.Approved)
	assert.True(t, strings.HasPrefix(result.Reason, "INVALID SIGNAL: "))
	assert.Equal(t, 0, provider.calls)
}

// TestValidateAndSize_SkipBacktestFlag verifies the backtest gate can
// be bypassed without touching the provider.
func TestValidateAndSize_SkipBacktestFlag(t *testing.T) {
	provider := &stubProvider{err: errors.New("should not be called")}
	p := newTestPipeline(t, provider)

	result := p.validator.ValidateAndSize(context.Background(), buySignal("AAPL"), 150.0, true)

	assert.True(t, result.Approved)
	assert.True(t, result.Steps.BacktestSkipped)
	assert.Nil(t, result.Steps.Backtest)
	assert.Equal(t, 0, provider.calls)
}

// TestValidateAndSize_ProviderOutageFailsOpen verifies a dead data
// provider does not block an otherwise good trade.
func TestValidateAndSize_ProviderOutageFailsOpen(t *testing.T) {
	p := newTestPipeline(t, &stubProvider{err: errors.New("timeout")})

	result := p.validator.ValidateAndSize(context.Background(), buySignal("AAPL"), 150.0, false)

	assert.True(t, result.Approved)
	require.NotNil(t, result.Steps.Backtest)
	assert.True(t, result.Steps.Backtest.DataUnavailable)
	require.NotNil(t, result.Order)
}

// TestValidateAndSize_AuditsEveryOutcome verifies one audit line per
// call regardless of verdict.
func TestValidateAndSize_AuditsEveryOutcome(t *testing.T) {
	p := newTestPipeline(t, &stubProvider{closes: trendingCloses(300, 0.5)})
	ctx := context.Background()

	p.validator.ValidateAndSize(ctx, buySignal("AAPL"), 150.0, false)

	rejected := buySignal("TSLA")
	rejected.Confidence = 0.1
	p.validator.ValidateAndSize(ctx, rejected, 150.0, true)

	invalid := buySignal("")
	p.validator.ValidateAndSize(ctx, invalid, 150.0, false)

	assert.Equal(t, 3, auditLineCount(t, p.logDir))
}

// TestValidateAndSize_Idempotent verifies repeated validation of the
// same signal against unchanged state yields the same verdict.
func TestValidateAndSize_Idempotent(t *testing.T) {
	p := newTestPipeline(t, &stubProvider{closes: trendingCloses(300, 0.5)})
	ctx := context.Background()

	first := p.validator.ValidateAndSize(ctx, buySignal("AAPL"), 150.0, false)
	second := p.validator.ValidateAndSize(ctx, buySignal("AAPL"), 150.0, false)

	assert.Equal(t, first.Approved, second.Approved)
	assert.Equal(t, first.Reason, second.Reason)
	require.NotNil(t, second.Order)
	assert.Equal(t, first.Order.Quantity, second.Order.Quantity)
}

// TestValidateAndSize_NormalizesSignal verifies a positive stop-loss
// input is normalized before the gates run.
func TestValidateAndSize_NormalizesSignal(t *testing.T) {
	p := newTestPipeline(t, &stubProvider{})

	sig := buySignal("AAPL")
	sig.StopLossPct = 5.0
	sig.RiskRewardRatio = 0
	result := p.validator.ValidateAndSize(context.Background(), sig, 150.0, true)

	// Normalization recomputes risk-reward as 10/5 = 2.0, clearing the
	// minimum, so the trade approves.
	assert.True(t, result.Approved)
	require.NotNil(t, result.Order)
}
