package reporting

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/pattern-cluster-bot/internal/backtest"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/config"
)

// ConsoleReporter prints backtest results to stdout.
type ConsoleReporter struct{}

// NewConsoleReporter creates a new console reporter.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// PrintConfig prints the strategy configuration.
func (r *ConsoleReporter) PrintConfig(cfg config.StrategyConfig) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("STRATEGY CONFIGURATION")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"📊 Symbol", cfg.Symbol},
		{"🎯 Min Confidence", fmt.Sprintf("%.2f", cfg.MinConfidence)},
		{"💰 Base Position Size", fmt.Sprintf("%.1f%%", cfg.BasePositionSize*100)},
		{"💰 Max Position Size", fmt.Sprintf("%.1f%%", cfg.MaxPositionSize*100)},
		{"📉 Base Stop Loss", fmt.Sprintf("%.1f%%", cfg.BaseStopLoss*100)},
		{"📈 Base Take Profit", fmt.Sprintf("%.1f%%", cfg.BaseTakeProfit*100)},
		{"⏰ Base Max Hold", fmt.Sprintf("%d days", cfg.BaseMaxHoldDays)},
		{"🪟 Window Capacity", fmt.Sprintf("%d returns", cfg.WindowCapacity)},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 15, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()
}

// OutputResults prints the run summary and closed trade table.
func (r *ConsoleReporter) OutputResults(results *backtest.Results) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("📊 BACKTEST RESULTS")
	fmt.Println(strings.Repeat("=", 50))

	fmt.Printf("💰 Initial Balance:  $%.2f\n", results.StartBalance)
	fmt.Printf("💰 Final Balance:    $%.2f\n", results.EndBalance)
	fmt.Printf("📈 Total Return:     %.2f%%\n", results.TotalReturn*100)
	fmt.Printf("📉 Max Drawdown:     %.2f%%\n", results.MaxDrawdown*100)
	fmt.Printf("📊 Sharpe Ratio:     %.2f\n", results.SharpeRatio)
	fmt.Printf("💹 Profit Factor:    %.2f\n", results.ProfitFactor)
	fmt.Printf("🔄 Total Trades:     %d\n", results.TotalTrades)
	fmt.Printf("✅ Winning Trades:   %d (%.1f%%)\n", results.WinningTrades, results.WinRate())
	fmt.Printf("❌ Losing Trades:    %d\n", results.LosingTrades)
	if results.SkippedBars > 0 {
		fmt.Printf("⚠️ Skipped Bars:     %d\n", results.SkippedBars)
	}

	if len(results.Trades) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("CLOSED TRADES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Entry", "Exit", "Days", "Entry $", "Exit $", "Shares", "P&L $", "P&L %", "Reason"})

	for _, tr := range results.Trades {
		t.AppendRow(table.Row{
			tr.EntryDate.Format("2006-01-02"),
			tr.ExitDate.Format("2006-01-02"),
			tr.DaysHeld,
			fmt.Sprintf("%.2f", tr.EntryPrice),
			fmt.Sprintf("%.2f", tr.ExitPrice),
			fmt.Sprintf("%.0f", tr.Size),
			fmt.Sprintf("%.2f", tr.GrossPnL),
			fmt.Sprintf("%.2f%%", tr.PnLPercent),
			tr.ExitReason.String(),
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})

	t.Render()
}
