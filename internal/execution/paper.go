package execution

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/quantgate/quantgate/internal/logger"
	"github.com/quantgate/quantgate/internal/signal"
)

// Config holds paper trading settings.
type Config struct {
	InitialCapital float64
	SlippagePct    float64
	StateDir       string
}

// DefaultConfig returns standard paper trading settings.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 100000.0,
		SlippagePct:    0.1,
		StateDir:       "memory/paper_trading",
	}
}

// Result reports the outcome of a simulated order placement.
type Result struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id,omitempty"`
	Message string `json:"message"`
}

// PortfolioSummary is a snapshot of the paper account.
type PortfolioSummary struct {
	InitialCapital   float64 `json:"initial_capital"`
	CurrentCapital   float64 `json:"current_capital"`
	Invested         float64 `json:"invested"`
	TotalRealizedPnL float64 `json:"total_realized_pnl"`
	TotalTrades      int     `json:"total_trades"`
	OpenPositions    int     `json:"open_positions"`
	ReturnPct        float64 `json:"return_pct"`
}

// ClosedTrade is one realized round trip in the paper account.
type ClosedTrade struct {
	Ticker     string    `json:"ticker"`
	Side       string    `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   int       `json:"quantity"`
	PnL        float64   `json:"pnl"`
	Timestamp  time.Time `json:"timestamp"`
}

type paperState struct {
	Capital        float64                     `json:"capital"`
	InitialCapital float64                     `json:"initial_capital"`
	Positions      map[string]*signal.Position `json:"positions"`
	TradeCount     int                         `json:"trade_count"`
	OrderCounter   int                         `json:"order_counter"`
	LastUpdated    time.Time                   `json:"last_updated"`
}

// PaperTrader is a simulated broker: same interface shape as a live
// execution bridge, zero risk. Fills orders at the current price with
// slippage applied, tracks capital and positions, and persists state
// so paper sessions survive restarts.
type PaperTrader struct {
	config    Config
	log       *logger.Logger
	stateFile string
	tradeLog  string

	mu           sync.Mutex
	capital      float64
	positions    map[string]*signal.Position
	tradeHistory []ClosedTrade
	orderCounter int
}

// NewPaperTrader creates a paper trader, reloading persisted state
// when available. Persistence failures are logged and swallowed.
func NewPaperTrader(config Config, log *logger.Logger) (*PaperTrader, error) {
	if err := os.MkdirAll(config.StateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create paper trading directory: %w", err)
	}

	t := &PaperTrader{
		config:    config,
		log:       log,
		stateFile: filepath.Join(config.StateDir, "paper_state.json"),
		tradeLog:  filepath.Join(config.StateDir, "paper_trades.jsonl"),
		capital:   config.InitialCapital,
		positions: make(map[string]*signal.Position),
	}
	t.loadState()
	return t, nil
}

// PlaceOrder simulates execution of an order with slippage.
func (t *PaperTrader) PlaceOrder(order signal.Order) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.orderCounter++
	orderID := fmt.Sprintf("PAPER-%06d", t.orderCounter)

	var fillPrice float64
	if order.Side == signal.DecisionBuy {
		fillPrice = order.Price * (1 + t.config.SlippagePct/100)
	} else {
		fillPrice = order.Price * (1 - t.config.SlippagePct/100)
	}
	cost := fillPrice * float64(order.Quantity)

	switch order.Side {
	case signal.DecisionBuy:
		if cost > t.capital {
			return Result{
				Message: fmt.Sprintf("Insufficient capital: need %.2f, have %.2f", cost, t.capital),
			}
		}
		t.capital -= cost
		t.positions[order.Ticker] = &signal.Position{
			Ticker:       order.Ticker,
			Quantity:     order.Quantity,
			EntryPrice:   fillPrice,
			CurrentPrice: fillPrice,
			StopLoss:     order.StopLoss,
			Target:       order.Target,
			Side:         order.Side,
			EntryTime:    time.Now(),
		}

	case signal.DecisionSell:
		if pos, held := t.positions[order.Ticker]; held {
			pnl := (fillPrice - pos.EntryPrice) * float64(pos.Quantity)
			t.capital += float64(pos.Quantity) * fillPrice
			t.tradeHistory = append(t.tradeHistory, ClosedTrade{
				Ticker:     order.Ticker,
				Side:       "SELL",
				EntryPrice: pos.EntryPrice,
				ExitPrice:  fillPrice,
				Quantity:   pos.Quantity,
				PnL:        math.Round(pnl*100) / 100,
				Timestamp:  time.Now(),
			})
			delete(t.positions, order.Ticker)
		} else {
			// Short entry, simplified: credit the proceeds and track
			// the position on the short side.
			t.capital += cost
			t.positions[order.Ticker] = &signal.Position{
				Ticker:       order.Ticker,
				Quantity:     order.Quantity,
				EntryPrice:   fillPrice,
				CurrentPrice: fillPrice,
				StopLoss:     order.StopLoss,
				Target:       order.Target,
				Side:         order.Side,
				EntryTime:    time.Now(),
			}
		}

	default:
		return Result{Message: fmt.Sprintf("Unsupported order side %q", order.Side)}
	}

	t.saveState()
	t.logTrade(order, orderID, fillPrice)

	return Result{
		Success: true,
		OrderID: orderID,
		Message: fmt.Sprintf("[PAPER] %s %dx %s @ %.2f (slippage: %.2f%%)",
			order.Side, order.Quantity, order.Ticker, fillPrice, t.config.SlippagePct),
	}
}

// Positions returns a snapshot of open paper positions.
func (t *PaperTrader) Positions() []signal.Position {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]signal.Position, 0, len(t.positions))
	for _, pos := range t.positions {
		out = append(out, *pos)
	}
	return out
}

// Portfolio returns the paper account summary.
func (t *PaperTrader) Portfolio() PortfolioSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	invested := 0.0
	for _, pos := range t.positions {
		invested += pos.EntryPrice * float64(pos.Quantity)
	}
	realized := 0.0
	for _, trade := range t.tradeHistory {
		realized += trade.PnL
	}

	returnPct := 0.0
	if t.config.InitialCapital > 0 {
		returnPct = (t.capital - t.config.InitialCapital) / t.config.InitialCapital * 100
	}

	return PortfolioSummary{
		InitialCapital:   t.config.InitialCapital,
		CurrentCapital:   math.Round(t.capital*100) / 100,
		Invested:         math.Round(invested*100) / 100,
		TotalRealizedPnL: math.Round(realized*100) / 100,
		TotalTrades:      len(t.tradeHistory),
		OpenPositions:    len(t.positions),
		ReturnPct:        math.Round(returnPct*100) / 100,
	}
}

func (t *PaperTrader) saveState() {
	state := paperState{
		Capital:        t.capital,
		InitialCapital: t.config.InitialCapital,
		Positions:      t.positions,
		TradeCount:     len(t.tradeHistory),
		OrderCounter:   t.orderCounter,
		LastUpdated:    time.Now(),
	}

	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		t.log.Warning("Failed to marshal paper state: %v", err)
		return
	}

	tempFile := t.stateFile + ".tmp"
	if err := os.WriteFile(tempFile, raw, 0644); err != nil {
		t.log.Warning("Failed to write paper state: %v", err)
		return
	}
	if err := os.Rename(tempFile, t.stateFile); err != nil {
		t.log.Warning("Failed to move paper state: %v", err)
	}
}

func (t *PaperTrader) loadState() {
	raw, err := os.ReadFile(t.stateFile)
	if err != nil {
		if !os.IsNotExist(err) {
			t.log.Warning("Failed to read paper state: %v", err)
		}
		return
	}

	var state paperState
	if err := json.Unmarshal(raw, &state); err != nil {
		t.log.Warning("Failed to parse paper state: %v", err)
		return
	}

	t.capital = state.Capital
	t.orderCounter = state.OrderCounter
	if state.Positions != nil {
		t.positions = state.Positions
	}
	t.log.Info("Loaded paper state: capital %.2f, %d positions", t.capital, len(t.positions))
}

func (t *PaperTrader) logTrade(order signal.Order, orderID string, fillPrice float64) {
	entry := struct {
		Timestamp    time.Time    `json:"timestamp"`
		OrderID      string       `json:"order_id"`
		Order        signal.Order `json:"order"`
		FillPrice    float64      `json:"fill_price"`
		CapitalAfter float64      `json:"capital_after"`
	}{
		Timestamp:    time.Now(),
		OrderID:      orderID,
		Order:        order,
		FillPrice:    fillPrice,
		CapitalAfter: math.Round(t.capital*100) / 100,
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}

	file, err := os.OpenFile(t.tradeLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.log.Warning("Failed to open paper trade log: %v", err)
		return
	}
	defer file.Close()
	file.Write(append(raw, '\n'))
}
