package data

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/quantgate/quantgate/pkg/types"
)

// BybitProvider serves daily klines and last prices from the Bybit
// public market API. Market-data endpoints need no credentials.
type BybitProvider struct {
	httpClient *bybit_api.Client
	category   string
}

// BybitConfig holds Bybit connection settings.
type BybitConfig struct {
	APIKey    string
	APISecret string
	Category  string // "spot", "linear", "inverse"
	Testnet   bool
}

// NewBybitProvider creates a Bybit-backed price provider.
func NewBybitProvider(config BybitConfig) *BybitProvider {
	baseURL := bybit_api.MAINNET
	if config.Testnet {
		baseURL = bybit_api.TESTNET
	}
	if config.Category == "" {
		config.Category = "spot"
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &BybitProvider{
		httpClient: httpClient,
		category:   config.Category,
	}
}

// GetName returns the name of the provider.
func (p *BybitProvider) GetName() string {
	return "Bybit Provider"
}

// DailyCloses fetches daily klines for the ticker over [start, end].
func (p *BybitProvider) DailyCloses(ctx context.Context, ticker string, start, end time.Time) ([]types.OHLCV, error) {
	days := int(end.Sub(start).Hours()/24) + 1
	limit := days
	if limit > 1000 {
		limit = 1000
	}

	params := map[string]interface{}{
		"category": p.category,
		"symbol":   ticker,
		"interval": "D",
		"start":    start.UnixMilli(),
		"end":      end.UnixMilli(),
		"limit":    limit,
	}

	result, err := p.httpClient.NewUtaBybitServiceWithParams(params).GetMarketKline(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines for %s: %w", ticker, err)
	}

	series, err := parseKlineResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kline response for %s: %w", ticker, err)
	}

	// Bybit returns newest first; the pipeline expects chronological.
	sort.Slice(series, func(i, j int) bool {
		return series[i].Timestamp.Before(series[j].Timestamp)
	})

	return series, nil
}

// LatestPrice fetches the last traded price for the ticker.
func (p *BybitProvider) LatestPrice(ctx context.Context, ticker string) (float64, error) {
	params := map[string]interface{}{
		"category": p.category,
		"symbol":   ticker,
	}

	result, err := p.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get ticker %s: %w", ticker, err)
	}

	return parseLatestPriceResponse(result)
}

func parseKlineResponse(response interface{}) ([]types.OHLCV, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return nil, fmt.Errorf("API error: %s (code: %d)", serverResp.RetMsg, serverResp.RetCode)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kline result: %w", err)
	}

	var series []types.OHLCV
	for _, item := range klineResult.List {
		if len(item) < 6 {
			continue
		}
		// Bybit kline format: [startTime, open, high, low, close, volume, turnover]
		series = append(series, types.OHLCV{
			Timestamp: time.UnixMilli(parseInt64(item[0])),
			Open:      parseFloat64(item[1]),
			High:      parseFloat64(item[2]),
			Low:       parseFloat64(item[3]),
			Close:     parseFloat64(item[4]),
			Volume:    parseFloat64(item[5]),
		})
	}

	return series, nil
}

func parseLatestPriceResponse(response interface{}) (float64, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return 0, fmt.Errorf("invalid response type")
	}
	if serverResp.RetCode != 0 {
		return 0, fmt.Errorf("API error: %s (code: %d)", serverResp.RetMsg, serverResp.RetCode)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal result: %w", err)
	}

	var tickerResult struct {
		Category string `json:"category"`
		List     []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &tickerResult); err != nil {
		return 0, fmt.Errorf("failed to unmarshal ticker result: %w", err)
	}

	if len(tickerResult.List) == 0 {
		return 0, fmt.Errorf("empty ticker list in response")
	}

	price := parseFloat64(tickerResult.List[0].LastPrice)
	if price <= 0 {
		return 0, fmt.Errorf("invalid last price %q", tickerResult.List[0].LastPrice)
	}
	return price, nil
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseFloat64(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
