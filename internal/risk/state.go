package risk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/quantgate/quantgate/internal/signal"
)

// PortfolioState is the whole-document snapshot the engine persists
// after every mutation and reloads at construction.
//
// Invariant: PeakValue >= PortfolioValue at all times; PeakValue is a
// monotonically non-decreasing high-water mark.
type PortfolioState struct {
	PortfolioValue float64                     `json:"portfolio_value"`
	PeakValue      float64                     `json:"peak_value"`
	DailyPnL       float64                     `json:"daily_pnl"`
	Positions      map[string]*signal.Position `json:"positions"`
	LastUpdated    time.Time                   `json:"last_updated"`
}

// NewPortfolioState creates a clean state at the given starting value.
func NewPortfolioState(portfolioValue float64) *PortfolioState {
	return &PortfolioState{
		PortfolioValue: portfolioValue,
		PeakValue:      portfolioValue,
		Positions:      make(map[string]*signal.Position),
	}
}

// DrawdownPct returns the percentage decline from the peak value.
func (s *PortfolioState) DrawdownPct() float64 {
	if s.PeakValue <= 0 {
		return 0
	}
	return (s.PeakValue - s.PortfolioValue) / s.PeakValue * 100
}

// StateStore persists a PortfolioState as a single JSON document.
// The design assumes one writer process per state file.
type StateStore struct {
	stateFile string
}

// NewStateStore creates a store rooted at the given directory.
func NewStateStore(stateDir string) (*StateStore, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &StateStore{
		stateFile: filepath.Join(stateDir, "risk_state.json"),
	}, nil
}

// Load reads the persisted state. A missing file is not an error; it
// returns (nil, nil) so the engine starts from configured defaults.
func (st *StateStore) Load() (*PortfolioState, error) {
	raw, err := os.ReadFile(st.stateFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var state PortfolioState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if state.Positions == nil {
		state.Positions = make(map[string]*signal.Position)
	}
	return &state, nil
}

// Save rewrites the whole document. It writes to a temporary file and
// renames it over the target so a crash mid-write never leaves a
// truncated state file.
func (st *StateStore) Save(state *PortfolioState) error {
	state.LastUpdated = time.Now()

	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tempFile := st.stateFile + ".tmp"
	if err := os.WriteFile(tempFile, raw, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := os.Rename(tempFile, st.stateFile); err != nil {
		return fmt.Errorf("failed to move state file: %w", err)
	}
	return nil
}

// Path returns the state file location.
func (st *StateStore) Path() string {
	return st.stateFile
}
