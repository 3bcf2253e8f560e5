package signal

import (
	"fmt"
	"math"
	"time"
)

// Decision is the closed set of trade decisions a signal can carry.
type Decision string

const (
	DecisionBuy  Decision = "BUY"
	DecisionSell Decision = "SELL"
	DecisionHold Decision = "HOLD"
)

// IsValid reports whether the decision is one of BUY, SELL, HOLD.
func (d Decision) IsValid() bool {
	switch d {
	case DecisionBuy, DecisionSell, DecisionHold:
		return true
	}
	return false
}

// IsTrade reports whether the decision requires an order (BUY or SELL).
func (d Decision) IsTrade() bool {
	return d == DecisionBuy || d == DecisionSell
}

// Signal is a trading decision proposed by an external decision-maker.
// It is immutable input to the validation pipeline; the pipeline may
// return an adjusted copy (e.g. with a defaulted stop-loss) but never
// mutates the caller's value.
type Signal struct {
	Ticker          string   `json:"ticker"`
	Decision        Decision `json:"decision"`
	Confidence      float64  `json:"confidence"`
	StopLossPct     float64  `json:"stop_loss_pct"`
	TargetPct       float64  `json:"target_pct"`
	RiskRewardRatio float64  `json:"risk_reward_ratio"`
	Rationale       string   `json:"rationale"`
}

// Normalize returns a copy with stop-loss forced negative, target
// forced positive and the risk-reward ratio recomputed from them.
func (s Signal) Normalize() Signal {
	out := s
	if out.StopLossPct != 0 {
		out.StopLossPct = -math.Abs(out.StopLossPct)
	}
	out.TargetPct = math.Abs(out.TargetPct)
	if out.StopLossPct != 0 {
		out.RiskRewardRatio = out.TargetPct / math.Abs(out.StopLossPct)
	}
	return out
}

// Validate checks a signal once at the pipeline boundary.
func (s Signal) Validate() error {
	if s.Ticker == "" {
		return fmt.Errorf("signal has no ticker")
	}
	if !s.Decision.IsValid() {
		return fmt.Errorf("invalid decision %q for %s", s.Decision, s.Ticker)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence %.2f for %s outside [0,1]", s.Confidence, s.Ticker)
	}
	return nil
}

// Position is one open holding tracked by the risk engine. At most one
// position exists per ticker.
type Position struct {
	Ticker        string    `json:"ticker"`
	Quantity      int       `json:"quantity"`
	EntryPrice    float64   `json:"entry_price"`
	CurrentPrice  float64   `json:"current_price"`
	StopLoss      float64   `json:"stop_loss"`
	Target        float64   `json:"target"`
	Side          Decision  `json:"side"`
	EntryTime     time.Time `json:"entry_time"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
}

// Order is the pipeline's terminal artifact on approval. Ownership
// passes to the execution collaborator.
type Order struct {
	Ticker           string   `json:"ticker"`
	Side             Decision `json:"side"`
	Quantity         int      `json:"quantity"`
	OrderType        string   `json:"order_type"`
	Price            float64  `json:"price"`
	StopLoss         float64  `json:"stop_loss"`
	Target           float64  `json:"target"`
	InvestmentAmount float64  `json:"investment_amount"`
	RiskAmount       float64  `json:"risk_amount"`
	Confidence       float64  `json:"confidence"`
	Rationale        string   `json:"rationale"`
}
