package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/quantgate/quantgate/internal/risk"
	"github.com/quantgate/quantgate/internal/validator"
)

// DailySummary aggregates one watchlist run for archival.
type DailySummary struct {
	Date      string             `json:"date"`
	RunAt     time.Time          `json:"run_at"`
	Results   []validator.Result `json:"results"`
	Approved  int                `json:"approved"`
	Rejected  int                `json:"rejected"`
	Portfolio risk.Summary       `json:"portfolio"`
}

// NewDailySummary builds the summary from a run's results.
func NewDailySummary(results []validator.Result, portfolio risk.Summary) DailySummary {
	now := time.Now()
	summary := DailySummary{
		Date:      now.Format("2006-01-02"),
		RunAt:     now,
		Results:   results,
		Portfolio: portfolio,
	}
	for _, result := range results {
		if result.Approved {
			summary.Approved++
		} else {
			summary.Rejected++
		}
	}
	return summary
}

// WriteDailySummaryJSON writes the summary as indented JSON.
func WriteDailySummaryJSON(summary DailySummary, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	raw, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal daily summary: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write daily summary: %w", err)
	}
	return nil
}
