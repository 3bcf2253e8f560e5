package data

import (
	"context"
	"fmt"
	"time"

	"github.com/quantgate/quantgate/pkg/types"
)

// PriceProvider supplies historical and current prices for a ticker.
// Implementations may fail or return short series; callers decide how
// to degrade (the backtester fails open, see internal/backtest).
type PriceProvider interface {
	// DailyCloses returns daily candles for the ticker over
	// [start, end], in chronological order.
	DailyCloses(ctx context.Context, ticker string, start, end time.Time) ([]types.OHLCV, error)

	// LatestPrice returns the most recent trade price for the ticker.
	LatestPrice(ctx context.Context, ticker string) (float64, error)

	// GetName returns the name of the provider.
	GetName() string
}

// ValidateSeries checks candle integrity and chronological order.
func ValidateSeries(data []types.OHLCV) error {
	for i, candle := range data {
		if candle.Open <= 0 || candle.High <= 0 || candle.Low <= 0 || candle.Close <= 0 {
			return fmt.Errorf("invalid candle at index %d: prices must be positive", i)
		}
		if candle.High < candle.Low {
			return fmt.Errorf("invalid candle at index %d: high (%.4f) below low (%.4f)", i, candle.High, candle.Low)
		}
		if i > 0 && candle.Timestamp.Before(data[i-1].Timestamp) {
			return fmt.Errorf("invalid candle at index %d: timestamps not in chronological order", i)
		}
	}
	return nil
}

// FilterByDateRange returns the candles whose timestamps fall inside
// [start, end], preserving order.
func FilterByDateRange(data []types.OHLCV, start, end time.Time) []types.OHLCV {
	var filtered []types.OHLCV
	for _, candle := range data {
		if candle.Timestamp.Before(start) || candle.Timestamp.After(end) {
			continue
		}
		filtered = append(filtered, candle)
	}
	return filtered
}
