package sizing

import (
	"fmt"
	"math"
)

// Config holds position sizing limits.
type Config struct {
	MaxRiskPerTradePct float64 // risk budget per trade, % of portfolio
	MaxPositionPct     float64 // single-position cap, % of portfolio
	KellyFraction      float64 // fractional Kelly multiplier (0.5 = half-Kelly)
}

// DefaultConfig returns the standard sizing limits.
func DefaultConfig() Config {
	return Config{
		MaxRiskPerTradePct: 2.0,
		MaxPositionPct:     20.0,
		KellyFraction:      0.5,
	}
}

// Result carries the sized trade plus the figures that produced it.
// The three candidate quantities are retained for audit.
type Result struct {
	Quantity          int     `json:"quantity"`
	InvestmentAmount  float64 `json:"investment_amount"`
	InvestmentPct     float64 `json:"investment_pct"`
	RiskAmount        float64 `json:"risk_amount"`
	RiskPct           float64 `json:"risk_pct"`
	StopLossPrice     float64 `json:"stop_loss_price"`
	TargetPrice       float64 `json:"target_price"`
	KellyFractionUsed float64 `json:"kelly_fraction_used"`
	Method            string  `json:"method"`
	QtyByRiskLimit    int     `json:"qty_by_risk_limit"`
	QtyByKelly        int     `json:"qty_by_kelly"`
	QtyByMaxPosition  int     `json:"qty_by_max_position"`
	WinProb           float64 `json:"win_prob"`
	WinLossRatio      float64 `json:"win_loss_ratio"`
}

// Sizer converts a price/confidence/percentages tuple into a trade
// quantity using the most conservative of three independent methods:
// fixed-fractional risk, fractional Kelly, and a max-position cap.
type Sizer struct {
	config Config
}

// NewSizer creates a position sizer with the given limits.
func NewSizer(config Config) *Sizer {
	return &Sizer{config: config}
}

// CalculatePosition sizes a trade. A non-positive price or portfolio
// value produces a zero-quantity rejected result, never an error.
func (s *Sizer) CalculatePosition(currentPrice, stopLossPct, targetPct, confidence, portfolioValue float64) Result {
	if currentPrice <= 0 || portfolioValue <= 0 {
		return Result{Method: fmt.Sprintf("REJECTED: invalid price %.2f or portfolio value %.2f", currentPrice, portfolioValue)}
	}

	if stopLossPct == 0 {
		stopLossPct = -5.0
	} else {
		stopLossPct = -math.Abs(stopLossPct)
	}
	if targetPct == 0 {
		targetPct = 5.0
	} else {
		targetPct = math.Abs(targetPct)
	}

	// Method 1: fixed-fractional risk.
	riskBudget := portfolioValue * (s.config.MaxRiskPerTradePct / 100)
	riskPerShare := currentPrice * (math.Abs(stopLossPct) / 100)
	qtyByRisk := 0
	if riskPerShare > 0 {
		qtyByRisk = int(riskBudget / riskPerShare)
	}

	// Method 2: fractional Kelly.
	winProb := math.Min(0.95, math.Max(0.1, confidence))
	lossProb := 1 - winProb
	winLossRatio := 1.0
	if math.Abs(stopLossPct) > 0 {
		winLossRatio = targetPct / math.Abs(stopLossPct)
	}
	kellyPct := (winProb*winLossRatio - lossProb) / winLossRatio
	kellyPct = math.Max(0, kellyPct) * s.config.KellyFraction
	qtyByKelly := int(portfolioValue * kellyPct / currentPrice)

	// Method 3: max-position cap.
	qtyByMax := int(portfolioValue * (s.config.MaxPositionPct / 100) / currentPrice)

	finalQty := qtyByRisk
	if qtyByKelly < finalQty {
		finalQty = qtyByKelly
	}
	if qtyByMax < finalQty {
		finalQty = qtyByMax
	}
	if finalQty < 1 {
		finalQty = 1
	}

	investment := float64(finalQty) * currentPrice
	actualRisk := float64(finalQty) * riskPerShare

	return Result{
		Quantity:          finalQty,
		InvestmentAmount:  round2(investment),
		InvestmentPct:     round2(investment / portfolioValue * 100),
		RiskAmount:        round2(actualRisk),
		RiskPct:           round2(actualRisk / portfolioValue * 100),
		StopLossPrice:     round2(currentPrice * (1 + stopLossPct/100)),
		TargetPrice:       round2(currentPrice * (1 + targetPct/100)),
		KellyFractionUsed: round4(kellyPct),
		Method:            "min(risk_limit, half_kelly, max_position)",
		QtyByRiskLimit:    qtyByRisk,
		QtyByKelly:        qtyByKelly,
		QtyByMaxPosition:  qtyByMax,
		WinProb:           round2(winProb),
		WinLossRatio:      round2(winLossRatio),
	}
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }
