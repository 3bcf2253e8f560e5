package risk

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/quantgate/quantgate/internal/logger"
	"github.com/quantgate/quantgate/internal/signal"
)

// Config holds portfolio-level risk limits.
type Config struct {
	MinConfidence           float64
	MinRiskReward           float64
	MaxOpenPositions        int
	MaxDailyLossPct         float64
	MaxPortfolioDrawdownPct float64
	MaxSectorExposurePct    float64 // declared but not evaluated
	PortfolioValue          float64 // starting value when no state file exists
}

// DefaultConfig returns the standard risk limits.
func DefaultConfig() Config {
	return Config{
		MinConfidence:           0.5,
		MinRiskReward:           1.5,
		MaxOpenPositions:        10,
		MaxDailyLossPct:         3.0,
		MaxPortfolioDrawdownPct: 15.0,
		MaxSectorExposurePct:    40.0,
		PortfolioValue:          100000.0,
	}
}

// TradeDecision is the structured outcome of ValidateTrade. Rejection
// is a value, never an error: every failing rule contributes its own
// message, joined with " | " into one reason string.
type TradeDecision struct {
	Approved       bool          `json:"approved"`
	Reason         string        `json:"reason"`
	AdjustedSignal signal.Signal `json:"adjusted_signal"`
	Warnings       []string      `json:"warnings,omitempty"`
	KillSwitch     bool          `json:"kill_switch,omitempty"`
}

// CloseResult reports the realized outcome of closing a position.
type CloseResult struct {
	Closed      bool      `json:"closed"`
	Reason      string    `json:"reason,omitempty"`
	Ticker      string    `json:"ticker"`
	RealizedPnL float64   `json:"realized_pnl"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	Quantity    int       `json:"quantity"`
	EntryTime   time.Time `json:"entry_time"`
}

// Summary is a snapshot view of portfolio state for callers.
type Summary struct {
	PortfolioValue     float64                     `json:"portfolio_value"`
	PeakValue          float64                     `json:"peak_value"`
	DrawdownPct        float64                     `json:"drawdown_pct"`
	DailyPnL           float64                     `json:"daily_pnl"`
	OpenPositions      int                         `json:"open_positions"`
	TotalUnrealizedPnL float64                     `json:"total_unrealized_pnl"`
	Positions          map[string]*signal.Position `json:"positions"`
	KillSwitchActive   bool                        `json:"kill_switch_active"`
}

// Engine owns the portfolio state and enforces portfolio-level
// constraints before any order is sized. All state access is
// serialized by a mutex so concurrent callers cannot both believe the
// same risk budget is available.
//
// Persistence failures are logged and swallowed; the in-memory state
// stays authoritative for the running process.
type Engine struct {
	config Config
	store  *StateStore
	log    *logger.Logger

	mu    sync.Mutex
	state *PortfolioState
}

// NewEngine creates a risk engine, reloading persisted state when a
// state file exists. Loss of the persisted file is not fatal.
func NewEngine(config Config, stateDir string, log *logger.Logger) (*Engine, error) {
	store, err := NewStateStore(stateDir)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config: config,
		store:  store,
		log:    log,
		state:  NewPortfolioState(config.PortfolioValue),
	}

	loaded, err := store.Load()
	if err != nil {
		log.Warning("Failed to load risk state, starting from defaults: %v", err)
	} else if loaded != nil {
		e.state = loaded
		log.Info("Loaded risk state: value %.2f, %d open positions", loaded.PortfolioValue, len(loaded.Positions))
	}

	return e, nil
}

// ValidateTrade evaluates every risk rule against the signal. HOLD
// signals bypass all checks. Rules do not short-circuit: a trade
// failing three rules gets all three messages.
func (e *Engine) ValidateTrade(sig signal.Signal) TradeDecision {
	e.mu.Lock()
	defer e.mu.Unlock()

	adjusted := sig
	if sig.Decision == signal.DecisionHold {
		return TradeDecision{
			Approved:       true,
			Reason:         "HOLD signal — no trade required",
			AdjustedSignal: adjusted,
		}
	}

	var rejections []string
	var warnings []string
	killSwitch := false

	if sig.Confidence < e.config.MinConfidence {
		rejections = append(rejections,
			fmt.Sprintf("Confidence %.2f below minimum %.2f", sig.Confidence, e.config.MinConfidence))
	}

	if sig.RiskRewardRatio < e.config.MinRiskReward {
		rejections = append(rejections,
			fmt.Sprintf("Risk-reward ratio %.2f below minimum %.2f", sig.RiskRewardRatio, e.config.MinRiskReward))
	}

	if len(e.state.Positions) >= e.config.MaxOpenPositions && sig.Decision == signal.DecisionBuy {
		rejections = append(rejections,
			fmt.Sprintf("Max positions (%d) already reached", e.config.MaxOpenPositions))
	}

	dailyLossPct := 0.0
	if e.state.PortfolioValue > 0 {
		dailyLossPct = e.state.DailyPnL / e.state.PortfolioValue * 100
	}
	if dailyLossPct <= -e.config.MaxDailyLossPct {
		killSwitch = true
		rejections = append(rejections,
			fmt.Sprintf("KILL SWITCH: Daily loss %.1f%% exceeds limit -%.1f%%", dailyLossPct, e.config.MaxDailyLossPct))
	}

	if drawdown := e.state.DrawdownPct(); drawdown >= e.config.MaxPortfolioDrawdownPct {
		killSwitch = true
		rejections = append(rejections,
			fmt.Sprintf("KILL SWITCH: Portfolio drawdown %.1f%% exceeds limit %.1f%%", drawdown, e.config.MaxPortfolioDrawdownPct))
	}

	if _, held := e.state.Positions[sig.Ticker]; held && sig.Decision == signal.DecisionBuy {
		warnings = append(warnings, fmt.Sprintf("Already hold position in %s", sig.Ticker))
	}

	if sig.StopLossPct == 0 {
		warnings = append(warnings, "No stop-loss defined — adding default -5%")
		adjusted.StopLossPct = -5.0
	}

	if len(rejections) > 0 {
		return TradeDecision{
			Reason:         strings.Join(rejections, " | "),
			AdjustedSignal: adjusted,
			Warnings:       warnings,
			KillSwitch:     killSwitch,
		}
	}

	return TradeDecision{
		Approved:       true,
		Reason:         "All risk checks passed",
		AdjustedSignal: adjusted,
		Warnings:       warnings,
	}
}

// RegisterPosition records a new holding after successful execution.
// At most one position exists per ticker; registering again replaces
// the previous entry.
func (e *Engine) RegisterPosition(ticker string, quantity int, price, stopLoss, target float64, side signal.Decision) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Positions[ticker] = &signal.Position{
		Ticker:       ticker,
		Quantity:     quantity,
		EntryPrice:   price,
		CurrentPrice: price,
		StopLoss:     stopLoss,
		Target:       target,
		Side:         side,
		EntryTime:    time.Now(),
	}
	e.saveLocked()
}

// UpdatePosition marks a holding to market, recomputing unrealized
// P&L by side. Unknown tickers are ignored.
func (e *Engine) UpdatePosition(ticker string, currentPrice float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.state.Positions[ticker]
	if !ok {
		return
	}

	pos.CurrentPrice = currentPrice
	if pos.Side == signal.DecisionBuy {
		pos.UnrealizedPnL = (currentPrice - pos.EntryPrice) * float64(pos.Quantity)
	} else {
		pos.UnrealizedPnL = (pos.EntryPrice - currentPrice) * float64(pos.Quantity)
	}
	e.saveLocked()
}

// ClosePosition realizes P&L into portfolio value and daily P&L,
// raises the peak on a new high and removes the position.
func (e *Engine) ClosePosition(ticker string, exitPrice float64) CloseResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.state.Positions[ticker]
	if !ok {
		return CloseResult{Reason: fmt.Sprintf("No position found for %s", ticker), Ticker: ticker}
	}

	var realized float64
	if pos.Side == signal.DecisionBuy {
		realized = (exitPrice - pos.EntryPrice) * float64(pos.Quantity)
	} else {
		realized = (pos.EntryPrice - exitPrice) * float64(pos.Quantity)
	}

	e.state.PortfolioValue += realized
	e.state.DailyPnL += realized
	if e.state.PortfolioValue > e.state.PeakValue {
		e.state.PeakValue = e.state.PortfolioValue
	}

	result := CloseResult{
		Closed:      true,
		Ticker:      ticker,
		RealizedPnL: math.Round(realized*100) / 100,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exitPrice,
		Quantity:    pos.Quantity,
		EntryTime:   pos.EntryTime,
	}

	delete(e.state.Positions, ticker)
	e.saveLocked()
	return result
}

// CheckStopLosses scans all open positions and returns the tickers
// whose current price has crossed their stop in the adverse direction.
func (e *Engine) CheckStopLosses() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var alerts []string
	for ticker, pos := range e.state.Positions {
		if pos.Side == signal.DecisionBuy && pos.CurrentPrice <= pos.StopLoss {
			alerts = append(alerts, ticker)
		} else if pos.Side == signal.DecisionSell && pos.CurrentPrice >= pos.StopLoss {
			alerts = append(alerts, ticker)
		}
	}
	return alerts
}

// PortfolioSummary returns a snapshot view including whether the
// drawdown kill switch is active.
func (e *Engine) PortfolioSummary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	totalUnrealized := 0.0
	positions := make(map[string]*signal.Position, len(e.state.Positions))
	for ticker, pos := range e.state.Positions {
		totalUnrealized += pos.UnrealizedPnL
		copied := *pos
		positions[ticker] = &copied
	}

	drawdown := e.state.DrawdownPct()
	return Summary{
		PortfolioValue:     e.state.PortfolioValue,
		PeakValue:          e.state.PeakValue,
		DrawdownPct:        math.Round(drawdown*100) / 100,
		DailyPnL:           e.state.DailyPnL,
		OpenPositions:      len(positions),
		TotalUnrealizedPnL: math.Round(totalUnrealized*100) / 100,
		Positions:          positions,
		KillSwitchActive:   drawdown >= e.config.MaxPortfolioDrawdownPct,
	}
}

// ResetDaily zeroes the daily P&L counter. Call once per trading
// session start.
func (e *Engine) ResetDaily() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.DailyPnL = 0
	e.saveLocked()
}

// PortfolioValue returns the current portfolio value for sizing.
func (e *Engine) PortfolioValue() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.PortfolioValue
}

func (e *Engine) saveLocked() {
	if err := e.store.Save(e.state); err != nil {
		e.log.Warning("Failed to save risk state: %v", err)
	}
}
