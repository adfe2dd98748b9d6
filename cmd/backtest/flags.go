package main

import (
	"flag"
	"fmt"
)

// Flags holds all command line flags for the backtest command.
type Flags struct {
	// Configuration
	ConfigFile *string
	EnvFile    *string
	Symbol     *string

	// Data sources
	DataFile *string
	DBPath   *string

	// Account settings
	InitialBalance *float64
	Commission     *float64

	// Strategy parameters
	MinConfidence    *float64
	BasePositionSize *float64
	MaxPositionSize  *float64

	// Output options
	XLSXPath     *string
	NoPersist    *bool
	ServeMetrics *bool
	ShowVersion  *bool
}

// NewFlags defines all command line flags.
func NewFlags() *Flags {
	return &Flags{
		ConfigFile: flag.String("config", "", "JSON config file overlay"),
		EnvFile:    flag.String("env", ".env", "Environment file"),
		Symbol:     flag.String("symbol", "", "Instrument symbol (default from env)"),

		DataFile: flag.String("data", "", "CSV file with daily bars (overrides the database feed)"),
		DBPath:   flag.String("db", "", "SQLite backtest database path (default from env)"),

		InitialBalance: flag.Float64("balance", 0, "Initial cash balance (default from env)"),
		Commission:     flag.Float64("commission", -1, "Commission rate per fill, e.g. 0.001"),

		MinConfidence:    flag.Float64("min-confidence", -1, "Minimum cluster confidence for entries"),
		BasePositionSize: flag.Float64("base-size", -1, "Base position size fraction"),
		MaxPositionSize:  flag.Float64("max-size", -1, "Maximum position size fraction"),

		XLSXPath:     flag.String("xlsx", "", "Write results workbook to this path"),
		NoPersist:    flag.Bool("no-persist", false, "Skip writing trades to the database"),
		ServeMetrics: flag.Bool("serve-metrics", false, "Expose Prometheus metrics and health endpoints during the run"),
		ShowVersion:  flag.Bool("version", false, "Show version and exit"),
	}
}

// Validate checks flag combinations before the run starts.
func (f *Flags) Validate() error {
	if *f.Commission > 0.1 {
		return fmt.Errorf("commission %.4f looks wrong: expected a fraction like 0.001", *f.Commission)
	}
	if *f.MinConfidence >= 0 && *f.MinConfidence >= 1 {
		return fmt.Errorf("min-confidence %.2f must be below 1", *f.MinConfidence)
	}
	return nil
}
