package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/joho/godotenv"

	"github.com/ducminhle1904/pattern-cluster-bot/internal/backtest"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/broker"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/cluster"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/config"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/engine"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/logger"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/monitoring"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/pattern"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/risk"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/storage"
	datamanager "github.com/ducminhle1904/pattern-cluster-bot/pkg/data"
	"github.com/ducminhle1904/pattern-cluster-bot/pkg/reporting"
	"github.com/ducminhle1904/pattern-cluster-bot/pkg/types"
)

const (
	AppName    = "Pattern Cluster Backtest"
	AppVersion = "1.0.0"
)

func main() {
	flags := NewFlags()
	flag.Parse()

	if err := flags.Validate(); err != nil {
		log.Fatalf("❌ Flag validation error: %v", err)
	}

	if *flags.ShowVersion {
		fmt.Printf("%s v%s\n", AppName, AppVersion)
		return
	}

	printHeader()
	loadEnvironment(*flags.EnvFile)

	cfg := loadConfiguration(flags)

	// The database is both the trade store and the default bar feed.
	store, err := storage.Open(cfg.Backtest.DBPath)
	if err != nil {
		log.Fatalf("❌ Could not open database %s: %v", cfg.Backtest.DBPath, err)
	}
	defer store.Close()

	bars := loadBars(cfg, flags, store)
	log.Printf("📈 Loaded %d daily bars for %s (%s to %s)",
		len(bars), cfg.Strategy.Symbol,
		bars[0].Date.Format("2006-01-02"), bars[len(bars)-1].Date.Format("2006-01-02"))

	table := loadClusterTable(store)

	fileLog, err := logger.NewLogger(cfg.Strategy.Symbol)
	if err != nil {
		log.Fatalf("❌ Could not open log file: %v", err)
	}
	defer fileLog.Close()

	var recorder engine.TradeRecorder = store
	if *flags.NoPersist {
		recorder = storage.NewNoopRecorder()
	}
	collector := backtest.NewCollectingRecorder(recorder)

	parameterizer := risk.NewParameterizer(
		cfg.Strategy.MinConfidence,
		cfg.Strategy.BasePositionSize,
		cfg.Strategy.MaxPositionSize,
		cfg.Strategy.BaseStopLoss,
		cfg.Strategy.BaseTakeProfit,
		cfg.Strategy.BaseMaxHoldDays,
		table,
	)

	sim := broker.NewSim(cfg.Backtest.InitialCash, cfg.Backtest.Commission)
	eng := engine.NewEngine(
		engine.Settings{
			MinConfidence:  cfg.Strategy.MinConfidence,
			WindowCapacity: cfg.Strategy.WindowCapacity,
		},
		pattern.NewRuleClassifier(),
		table,
		parameterizer,
		sim,
		sim,
		collector,
		fileLog,
	)

	runner := backtest.NewRunner(eng, sim, collector)

	if *flags.ServeMetrics {
		health := monitoring.NewHealthChecker()
		runner.SetHealthChecker(health)
		startMonitoring(cfg, health)
	}

	console := reporting.NewConsoleReporter()
	console.PrintConfig(cfg.Strategy)

	results, err := runner.Run(cfg.Strategy.Symbol, bars)
	if err != nil {
		log.Fatalf("❌ Backtest failed: %v", err)
	}

	console.OutputResults(results)

	if *flags.XLSXPath != "" {
		if err := reporting.NewExcelReporter().WriteResultsXLSX(results, *flags.XLSXPath); err != nil {
			log.Printf("⚠️  Could not write workbook: %v", err)
		} else {
			log.Printf("📝 Results written to %s", *flags.XLSXPath)
		}
	}
}

func startMonitoring(cfg *config.Config, health *monitoring.HealthChecker) {
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort)
		if err := http.ListenAndServe(addr, monitoring.NewMetricsHandler()); err != nil {
			log.Printf("⚠️  Metrics server stopped: %v", err)
		}
	}()
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Monitoring.HealthPort)
		if err := http.ListenAndServe(addr, health); err != nil {
			log.Printf("⚠️  Health server stopped: %v", err)
		}
	}()
	log.Printf("📡 Metrics on :%d, health on :%d",
		cfg.Monitoring.PrometheusPort, cfg.Monitoring.HealthPort)
}

func printHeader() {
	fmt.Printf("🎯 %s v%s\n", strings.ToUpper(AppName), AppVersion)
	fmt.Printf("%s\n\n", strings.Repeat("=", 50))
}

func loadEnvironment(envFile string) {
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("⚠️  Could not load %s (%v)", envFile, err)
	}
}

func loadConfiguration(flags *Flags) *config.Config {
	cfg := config.Load()

	if *flags.ConfigFile != "" {
		if err := cfg.LoadFile(*flags.ConfigFile); err != nil {
			log.Fatalf("❌ Configuration error: %v", err)
		}
	}

	// Command line overrides
	if *flags.Symbol != "" {
		cfg.Strategy.Symbol = *flags.Symbol
	}
	if *flags.DBPath != "" {
		cfg.Backtest.DBPath = *flags.DBPath
	}
	if *flags.DataFile != "" {
		cfg.Backtest.DataFile = *flags.DataFile
	}
	if *flags.InitialBalance > 0 {
		cfg.Backtest.InitialCash = *flags.InitialBalance
	}
	if *flags.Commission >= 0 {
		cfg.Backtest.Commission = *flags.Commission
	}
	if *flags.MinConfidence >= 0 {
		cfg.Strategy.MinConfidence = *flags.MinConfidence
	}
	if *flags.BasePositionSize > 0 {
		cfg.Strategy.BasePositionSize = *flags.BasePositionSize
	}
	if *flags.MaxPositionSize > 0 {
		cfg.Strategy.MaxPositionSize = *flags.MaxPositionSize
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}
	return cfg
}

func loadBars(cfg *config.Config, flags *Flags, store *storage.Store) []types.Bar {
	var provider datamanager.Provider
	var source string
	if cfg.Backtest.DataFile != "" {
		provider = datamanager.NewCSVProvider()
		source = cfg.Backtest.DataFile
	} else {
		provider = datamanager.NewSQLiteProvider(store)
		source = cfg.Strategy.Symbol
	}

	bars, err := provider.LoadBars(source)
	if err != nil {
		log.Fatalf("❌ Could not load bars via %s: %v", provider.GetName(), err)
	}
	if len(bars) == 0 {
		log.Fatalf("❌ No bars available for %s", cfg.Strategy.Symbol)
	}
	return bars
}

func loadClusterTable(store *storage.Store) *cluster.Table {
	table, err := cluster.LoadTable(storage.NewClusterStatsSource(store))
	if err != nil {
		// Recoverable degradation: trade conservatively rather than abort.
		log.Printf("⚠️  Cluster statistics unavailable (%v), using conservative defaults", err)
	}
	return table
}
