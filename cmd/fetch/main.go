package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/quantgate/quantgate/internal/config"
	"github.com/quantgate/quantgate/pkg/data"
	"github.com/quantgate/quantgate/pkg/types"
)

const (
	AppName    = "QuantGate Fetch"
	AppVersion = "1.0.0"
)

// Downloads daily price history and writes per-ticker CSV files in the
// layout the CSV provider reads: <outdir>/<TICKER>.csv with columns
// timestamp,open,high,low,close,volume.
func main() {
	var (
		tickers     = flag.String("tickers", "", "Comma-separated tickers to download (required)")
		days        = flag.Int("days", 365, "Number of calendar days of history")
		outDir      = flag.String("outdir", "", "Output directory (defaults to DATA_DIR)")
		envFile     = flag.String("env", ".env", "Environment file to load")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s v%s\n", AppName, AppVersion)
		return
	}

	if *tickers == "" {
		flag.Usage()
		log.Fatalf("❌ -tickers is required")
	}

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("⚠️  Could not load %s (%v)", *envFile, err)
	}
	cfg := config.Load()

	dir := *outDir
	if dir == "" {
		dir = cfg.Paths.DataDir
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatalf("❌ Could not create %s: %v", dir, err)
	}

	provider := data.NewBybitProvider(data.BybitConfig{
		APIKey:    cfg.MarketData.APIKey,
		APISecret: cfg.MarketData.Secret,
		Category:  cfg.MarketData.Category,
		Testnet:   cfg.MarketData.Testnet,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	end := time.Now()
	start := end.AddDate(0, 0, -*days)

	for _, ticker := range strings.Split(*tickers, ",") {
		ticker = strings.TrimSpace(ticker)
		if ticker == "" {
			continue
		}

		series, err := provider.DailyCloses(ctx, ticker, start, end)
		if err != nil {
			log.Printf("❌ %s: %v", ticker, err)
			continue
		}
		if len(series) == 0 {
			log.Printf("⚠️  %s: no candles returned", ticker)
			continue
		}

		path := filepath.Join(dir, ticker+".csv")
		if err := writeCSV(path, series); err != nil {
			log.Printf("❌ %s: %v", ticker, err)
			continue
		}
		log.Printf("✅ %s: %d candles → %s", ticker, len(series), path)
	}
}

func writeCSV(path string, series []types.OHLCV) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, candle := range series {
		record := []string{
			candle.Timestamp.Format("2006-01-02"),
			strconv.FormatFloat(candle.Open, 'f', -1, 64),
			strconv.FormatFloat(candle.High, 'f', -1, 64),
			strconv.FormatFloat(candle.Low, 'f', -1, 64),
			strconv.FormatFloat(candle.Close, 'f', -1, 64),
			strconv.FormatFloat(candle.Volume, 'f', -1, 64),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}
