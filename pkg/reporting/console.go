package reporting

import (
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/quantgate/quantgate/internal/execution"
	"github.com/quantgate/quantgate/internal/risk"
	"github.com/quantgate/quantgate/internal/validator"
)

// ConsoleReporter renders pipeline results as terminal tables.
type ConsoleReporter struct{}

// NewConsoleReporter creates a new console reporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// PrintValidation prints the stage-by-stage outcome of one validation.
func (r *ConsoleReporter) PrintValidation(result validator.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("VALIDATION: %s %s", result.Ticker, result.Decision))
	t.SetStyle(table.StyleRounded)

	verdict := "❌ REJECTED"
	if result.Approved {
		verdict = "✅ APPROVED"
	}

	t.AppendRows([]table.Row{
		{"Verdict", verdict},
		{"Reason", result.Reason},
		{"Price", fmt.Sprintf("$%.2f", result.CurrentPrice)},
	})

	if bt := result.Steps.Backtest; bt != nil {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Win Rate", fmt.Sprintf("%.1f%%", bt.WinRate*100)},
			{"Sharpe", fmt.Sprintf("%.2f", bt.SharpeRatio)},
			{"Max Drawdown", fmt.Sprintf("%.1f%%", bt.MaxDrawdownPct)},
			{"Best Hold", bt.BestHoldPeriod},
			{"Trades", fmt.Sprintf("%d", bt.TradeCount)},
		})
	}

	if order := result.Order; order != nil {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Order", fmt.Sprintf("%s %dx %s", order.Side, order.Quantity, order.Ticker)},
			{"Limit Price", fmt.Sprintf("$%.2f", order.Price)},
			{"Stop Loss", fmt.Sprintf("$%.2f", order.StopLoss)},
			{"Target", fmt.Sprintf("$%.2f", order.Target)},
			{"Investment", fmt.Sprintf("$%.2f", order.InvestmentAmount)},
			{"Risk", fmt.Sprintf("$%.2f", order.RiskAmount)},
		})
	}

	for _, warning := range result.Warnings {
		t.AppendSeparator()
		t.AppendRow(table.Row{"⚠️ Warning", warning})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 14, WidthMax: 14, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, WidthMax: 60, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

// PrintWatchlist prints one row per validated ticker.
func (r *ConsoleReporter) PrintWatchlist(results []validator.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("WATCHLIST RESULTS")
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"Ticker", "Decision", "Verdict", "Qty", "Reason"})
	for _, result := range results {
		verdict := "❌"
		if result.Approved {
			verdict = "✅"
		}
		qty := "-"
		if result.Order != nil {
			qty = fmt.Sprintf("%d", result.Order.Quantity)
		}
		t.AppendRow(table.Row{result.Ticker, result.Decision, verdict, qty, result.Reason})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, WidthMax: 60, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

// PrintPortfolio prints the risk engine's portfolio snapshot.
func (r *ConsoleReporter) PrintPortfolio(summary risk.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("PORTFOLIO")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"💰 Portfolio Value", fmt.Sprintf("$%.2f", summary.PortfolioValue)},
		{"📈 Peak Value", fmt.Sprintf("$%.2f", summary.PeakValue)},
		{"📉 Drawdown", fmt.Sprintf("%.2f%%", summary.DrawdownPct)},
		{"💵 Daily P&L", fmt.Sprintf("$%.2f", summary.DailyPnL)},
		{"📊 Open Positions", fmt.Sprintf("%d", summary.OpenPositions)},
	})

	if summary.KillSwitchActive {
		t.AppendSeparator()
		t.AppendRow(table.Row{"🚨 Kill Switch", "ACTIVE"})
	}

	if len(summary.Positions) > 0 {
		t.AppendSeparator()
		tickers := make([]string, 0, len(summary.Positions))
		for ticker := range summary.Positions {
			tickers = append(tickers, ticker)
		}
		sort.Strings(tickers)
		for _, ticker := range tickers {
			pos := summary.Positions[ticker]
			t.AppendRow(table.Row{
				ticker,
				fmt.Sprintf("%dx @ $%.2f (P&L $%.2f)", pos.Quantity, pos.EntryPrice, pos.UnrealizedPnL),
			})
		}
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 25, WidthMax: 40, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

// PrintPaperAccount prints the paper trading account summary.
func (r *ConsoleReporter) PrintPaperAccount(summary execution.PortfolioSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("PAPER ACCOUNT")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"💰 Initial Capital", fmt.Sprintf("$%.2f", summary.InitialCapital)},
		{"💰 Current Capital", fmt.Sprintf("$%.2f", summary.CurrentCapital)},
		{"📊 Invested", fmt.Sprintf("$%.2f", summary.Invested)},
		{"💵 Realized P&L", fmt.Sprintf("$%.2f", summary.TotalRealizedPnL)},
		{"🔄 Total Trades", fmt.Sprintf("%d", summary.TotalTrades)},
		{"📈 Return", fmt.Sprintf("%.2f%%", summary.ReturnPct)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 30, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}
