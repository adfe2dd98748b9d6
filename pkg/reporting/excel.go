package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/pattern-cluster-bot/internal/backtest"
)

// ExcelReporter writes backtest results to an Excel workbook.
type ExcelReporter struct{}

// NewExcelReporter creates a new Excel reporter.
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

// WriteResultsXLSX writes a Trades sheet and a Summary sheet to path.
func (r *ExcelReporter) WriteResultsXLSX(results *backtest.Results, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const tradesSheet = "Trades"
	const summarySheet = "Summary"

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	if _, err := fx.NewSheet(summarySheet); err != nil {
		return err
	}

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return err
	}

	if err := r.writeTradesSheet(fx, tradesSheet, results, headerStyle); err != nil {
		return err
	}
	if err := r.writeSummarySheet(fx, summarySheet, results, headerStyle); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, results *backtest.Results, headerStyle int) error {
	headers := []string{"Instrument", "Entry Date", "Exit Date", "Days Held",
		"Entry Price", "Exit Price", "Shares", "Gross P&L", "P&L %", "Commission", "Exit Reason"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	endHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := fx.SetCellStyle(sheet, "A1", endHeader, headerStyle); err != nil {
		return err
	}

	for i, t := range results.Trades {
		row := i + 2
		values := []interface{}{
			t.Instrument,
			t.EntryDate.Format("2006-01-02"),
			t.ExitDate.Format("2006-01-02"),
			t.DaysHeld,
			t.EntryPrice,
			t.ExitPrice,
			t.Size,
			t.GrossPnL,
			t.PnLPercent,
			t.Commission,
			t.ExitReason.String(),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, results *backtest.Results, headerStyle int) error {
	rows := []struct {
		label string
		value interface{}
	}{
		{"Initial Balance", results.StartBalance},
		{"Final Balance", results.EndBalance},
		{"Total Return %", results.TotalReturn * 100},
		{"Max Drawdown %", results.MaxDrawdown * 100},
		{"Sharpe Ratio", results.SharpeRatio},
		{"Profit Factor", results.ProfitFactor},
		{"Total Trades", results.TotalTrades},
		{"Winning Trades", results.WinningTrades},
		{"Losing Trades", results.LosingTrades},
		{"Win Rate %", results.WinRate()},
	}

	if err := fx.SetCellValue(sheet, "A1", "Metric"); err != nil {
		return err
	}
	if err := fx.SetCellValue(sheet, "B1", "Value"); err != nil {
		return err
	}
	if err := fx.SetCellStyle(sheet, "A1", "B1", headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		if err := fx.SetCellValue(sheet, fmt.Sprintf("A%d", i+2), row.label); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, fmt.Sprintf("B%d", i+2), row.value); err != nil {
			return err
		}
	}
	return nil
}
