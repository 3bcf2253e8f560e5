package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/quantgate/quantgate/internal/validator"
)

// ExcelStyles holds workbook formatting styles.
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	PercentStyle  int
	BaseStyle     int
}

// ExcelReporter writes validation runs to an Excel workbook.
type ExcelReporter struct{}

// NewExcelReporter creates a new Excel reporter.
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

// WriteValidationXLSX writes one workbook with a summary sheet and a
// per-window backtest breakdown sheet.
func (r *ExcelReporter) WriteValidationXLSX(results []validator.Result, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const summarySheet = "Validations"
	const windowsSheet = "Backtest Windows"

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	fx.NewSheet(windowsSheet)

	styles, err := r.createExcelStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeSummarySheet(fx, summarySheet, results, styles); err != nil {
		return err
	}
	if err := r.writeWindowsSheet(fx, windowsSheet, results, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createExcelStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt: 9,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	if err != nil {
		return styles, err
	}

	styles.BaseStyle, err = fx.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "E0E0E0", Style: 1},
			{Type: "right", Color: "E0E0E0", Style: 1},
			{Type: "bottom", Color: "E0E0E0", Style: 1},
		},
	})
	return styles, err
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, results []validator.Result, styles ExcelStyles) error {
	headers := []string{
		"Timestamp", "Ticker", "Decision", "Approved", "Reason",
		"Price", "Quantity", "Investment", "Risk Amount",
		"Win Rate", "Sharpe", "Max DD %", "Best Hold",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, header)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}

	for rowIdx, result := range results {
		row := rowIdx + 2
		values := []interface{}{
			result.Timestamp.Format("2006-01-02 15:04:05"),
			result.Ticker,
			string(result.Decision),
			result.Approved,
			result.Reason,
			result.CurrentPrice,
		}
		if result.Order != nil {
			values = append(values, result.Order.Quantity, result.Order.InvestmentAmount, result.Order.RiskAmount)
		} else {
			values = append(values, nil, nil, nil)
		}
		if bt := result.Steps.Backtest; bt != nil {
			values = append(values, bt.WinRate, bt.SharpeRatio, bt.MaxDrawdownPct, bt.BestHoldPeriod)
		} else {
			values = append(values, nil, nil, nil, nil)
		}

		for colIdx, value := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, row)
			if value != nil {
				fx.SetCellValue(sheet, cell, value)
			}
			style := styles.BaseStyle
			switch colIdx {
			case 5, 7, 8:
				style = styles.CurrencyStyle
			case 9:
				style = styles.PercentStyle
			}
			fx.SetCellStyle(sheet, cell, cell, style)
		}
	}

	fx.SetColWidth(sheet, "A", "A", 20)
	fx.SetColWidth(sheet, "E", "E", 50)
	return nil
}

func (r *ExcelReporter) writeWindowsSheet(fx *excelize.File, sheet string, results []validator.Result, styles ExcelStyles) error {
	headers := []string{
		"Ticker", "Window", "Win Rate", "Avg Return %", "Sharpe",
		"Max DD %", "Trades", "Avg Win %", "Avg Loss %",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, header)
		fx.SetCellStyle(sheet, cell, cell, styles.HeaderStyle)
	}

	row := 2
	for _, result := range results {
		bt := result.Steps.Backtest
		if bt == nil || len(bt.AllWindows) == 0 {
			continue
		}

		windows := make([]string, 0, len(bt.AllWindows))
		for window := range bt.AllWindows {
			windows = append(windows, window)
		}
		sort.Strings(windows)

		for _, window := range windows {
			stats := bt.AllWindows[window]
			values := []interface{}{
				result.Ticker, window, stats.WinRate, stats.AvgReturnPct,
				stats.SharpeRatio, stats.MaxDrawdownPct, stats.TradeCount,
				stats.AvgWinPct, stats.AvgLossPct,
			}
			for colIdx, value := range values {
				cell, _ := excelize.CoordinatesToCellName(colIdx+1, row)
				fx.SetCellValue(sheet, cell, value)
				style := styles.BaseStyle
				if colIdx == 2 {
					style = styles.PercentStyle
				}
				fx.SetCellStyle(sheet, cell, cell, style)
			}
			row++
		}
	}
	return nil
}
