package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/quantgate/quantgate/pkg/types"
)

// CSVProvider serves price history from per-ticker CSV files laid out
// as <dataRoot>/<TICKER>.csv with columns
// timestamp,open,high,low,close,volume.
type CSVProvider struct {
	dataRoot   string
	dateFormat string
}

// NewCSVProvider creates a provider reading from the given directory.
func NewCSVProvider(dataRoot string) *CSVProvider {
	return &CSVProvider{
		dataRoot:   dataRoot,
		dateFormat: "2006-01-02",
	}
}

// GetName returns the name of the provider.
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// DailyCloses loads the ticker's file and filters to [start, end].
func (p *CSVProvider) DailyCloses(ctx context.Context, ticker string, start, end time.Time) ([]types.OHLCV, error) {
	series, err := p.loadFile(p.pathFor(ticker))
	if err != nil {
		return nil, err
	}
	return FilterByDateRange(series, start, end), nil
}

// LatestPrice returns the close of the last row in the ticker's file.
func (p *CSVProvider) LatestPrice(ctx context.Context, ticker string) (float64, error) {
	series, err := p.loadFile(p.pathFor(ticker))
	if err != nil {
		return 0, err
	}
	if len(series) == 0 {
		return 0, fmt.Errorf("no price data for %s", ticker)
	}
	return series[len(series)-1].Close, nil
}

func (p *CSVProvider) pathFor(ticker string) string {
	// Tickers like RELIANCE.NS are legal file names, but strip any
	// path separators a hostile ticker could carry.
	safe := strings.ReplaceAll(ticker, string(os.PathSeparator), "_")
	return filepath.Join(p.dataRoot, safe+".csv")
}

func (p *CSVProvider) loadFile(filename string) ([]types.OHLCV, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	var series []types.OHLCV
	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %w", lineNum, err)
		}
		lineNum++

		if len(record) < 6 {
			continue
		}

		timestamp, err := time.Parse(p.dateFormat, record[0])
		if err != nil {
			continue
		}

		open, err1 := strconv.ParseFloat(record[1], 64)
		high, err2 := strconv.ParseFloat(record[2], 64)
		low, err3 := strconv.ParseFloat(record[3], 64)
		close, err4 := strconv.ParseFloat(record[4], 64)
		volume, err5 := strconv.ParseFloat(record[5], 64)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
			continue
		}
		if open <= 0 || high <= 0 || low <= 0 || close <= 0 {
			continue
		}

		series = append(series, types.OHLCV{
			Timestamp: timestamp,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
		})
	}

	if err := ValidateSeries(series); err != nil {
		return nil, err
	}

	return series, nil
}
