package validator

import (
	"context"
	"fmt"
	"time"

	"github.com/quantgate/quantgate/internal/backtest"
	"github.com/quantgate/quantgate/internal/logger"
	"github.com/quantgate/quantgate/internal/monitoring"
	"github.com/quantgate/quantgate/internal/risk"
	"github.com/quantgate/quantgate/internal/signal"
	"github.com/quantgate/quantgate/internal/sizing"
)

// StageResults retains every pipeline stage's full output for audit.
type StageResults struct {
	Backtest        *backtest.Result    `json:"backtest,omitempty"`
	BacktestSkipped bool                `json:"backtest_skipped,omitempty"`
	Risk            *risk.TradeDecision `json:"risk,omitempty"`
	PositionSizing  *sizing.Result      `json:"position_sizing,omitempty"`
}

// Result is the complete outcome of one validate-and-size call.
type Result struct {
	Ticker       string          `json:"ticker"`
	Decision     signal.Decision `json:"decision"`
	CurrentPrice float64         `json:"current_price"`
	Timestamp    time.Time       `json:"timestamp"`
	Steps        StageResults    `json:"steps"`
	Approved     bool            `json:"approved"`
	Order        *signal.Order   `json:"order"`
	Reason       string          `json:"reason"`
	Warnings     []string        `json:"warnings,omitempty"`
}

// Validator chains backtest, risk and sizing gates with short-circuit
// rejection semantics. Stages only move forward; the pipeline is
// terminal at the first rejection or at final order assembly.
//
// ValidateAndSize never returns an error: every exceptional path
// converges to a Result carrying Approved and a Reason, and every call
// is appended to the audit log regardless of outcome.
type Validator struct {
	riskEngine *risk.Engine
	backtester *backtest.Backtester
	sizer      *sizing.Sizer
	audit      *AuditLog
	log        *logger.Logger
}

// NewValidator wires the three gate components together.
func NewValidator(riskEngine *risk.Engine, backtester *backtest.Backtester, sizer *sizing.Sizer, audit *AuditLog, log *logger.Logger) *Validator {
	return &Validator{
		riskEngine: riskEngine,
		backtester: backtester,
		sizer:      sizer,
		audit:      audit,
		log:        log,
	}
}

// ValidateAndSize runs the full pipeline for one signal:
// decision gate → backtest gate → risk gate → sizing gate → assembly.
func (v *Validator) ValidateAndSize(ctx context.Context, sig signal.Signal, currentPrice float64, skipBacktest bool) Result {
	sig = sig.Normalize()

	result := Result{
		Ticker:       sig.Ticker,
		Decision:     sig.Decision,
		CurrentPrice: currentPrice,
		Timestamp:    time.Now(),
	}

	// The audit trail must record the call even when a stage panics
	// or a boundary check rejects early.
	defer func() {
		if r := recover(); r != nil {
			result.Approved = false
			result.Order = nil
			result.Reason = fmt.Sprintf("INTERNAL ERROR: %v", r)
			v.log.Error("Validation panic for %s: %v", sig.Ticker, r)
		}
		v.logResult(&result)
	}()

	if err := sig.Validate(); err != nil {
		result.Reason = fmt.Sprintf("INVALID SIGNAL: %v", err)
		return result
	}

	// Stage 1: decision gate.
	if sig.Decision == signal.DecisionHold {
		result.Approved = true
		result.Reason = "HOLD signal — no order generated"
		return result
	}

	// Stage 2: backtest gate, skippable by the caller.
	if skipBacktest {
		result.Steps.BacktestSkipped = true
	} else {
		backtestResult := v.backtester.BacktestSignal(ctx, sig.Ticker, sig.Decision, sig.StopLossPct, sig.TargetPct)
		result.Steps.Backtest = &backtestResult

		if !backtestResult.Approved {
			result.Reason = fmt.Sprintf("BACKTEST REJECTED: %s", backtestResult.Reason)
			return result
		}
	}

	// Stage 3: risk gate.
	riskResult := v.riskEngine.ValidateTrade(sig)
	result.Steps.Risk = &riskResult

	if !riskResult.Approved {
		result.Reason = fmt.Sprintf("RISK REJECTED: %s", riskResult.Reason)
		return result
	}
	adjusted := riskResult.AdjustedSignal

	// Stage 4: sizing gate.
	sized := v.sizer.CalculatePosition(
		currentPrice,
		adjusted.StopLossPct,
		adjusted.TargetPct,
		adjusted.Confidence,
		v.riskEngine.PortfolioValue(),
	)
	result.Steps.PositionSizing = &sized

	if sized.Quantity <= 0 {
		result.Reason = fmt.Sprintf("SIZING REJECTED: %s", sized.Method)
		return result
	}

	// Stage 5: order assembly.
	result.Approved = true
	result.Order = &signal.Order{
		Ticker:           adjusted.Ticker,
		Side:             adjusted.Decision,
		Quantity:         sized.Quantity,
		OrderType:        "LIMIT",
		Price:            currentPrice,
		StopLoss:         sized.StopLossPrice,
		Target:           sized.TargetPrice,
		InvestmentAmount: sized.InvestmentAmount,
		RiskAmount:       sized.RiskAmount,
		Confidence:       adjusted.Confidence,
		Rationale:        adjusted.Rationale,
	}
	result.Reason = "ALL CHECKS PASSED"
	result.Warnings = riskResult.Warnings
	return result
}

// PortfolioSummary exposes the risk engine's snapshot to callers.
func (v *Validator) PortfolioSummary() risk.Summary {
	return v.riskEngine.PortfolioSummary()
}

// ResetDaily resets the risk engine's daily counters.
func (v *Validator) ResetDaily() {
	v.riskEngine.ResetDaily()
}

func (v *Validator) logResult(result *Result) {
	monitoring.RecordValidation(result.Ticker, string(result.Decision), result.Approved)

	if err := v.audit.Append(result); err != nil {
		v.log.Error("Failed to append audit record for %s: %v", result.Ticker, err)
	}

	if result.Approved {
		v.log.Audit("%s %s approved: %s", result.Ticker, result.Decision, result.Reason)
	} else {
		v.log.Audit("%s %s rejected: %s", result.Ticker, result.Decision, result.Reason)
	}
}
