package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config carries all engine and backtest parameters. It is built once
// at startup and treated as immutable afterwards; nothing in the engine
// reads process-wide state.
type Config struct {
	Environment string
	LogLevel    string

	Strategy StrategyConfig

	Backtest struct {
		InitialCash float64
		Commission  float64
		DataFile    string
		DBPath      string
	}

	Monitoring struct {
		PrometheusPort int
		HealthPort     int
	}
}

// StrategyConfig are the pattern-cluster strategy parameters.
type StrategyConfig struct {
	Symbol           string
	MinConfidence    float64
	BasePositionSize float64
	MaxPositionSize  float64
	BaseStopLoss     float64
	BaseTakeProfit   float64
	BaseMaxHoldDays  int
	WindowCapacity   int
}

// Load builds the configuration from environment variables with the
// reference defaults.
func Load() *Config {
	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		Strategy: StrategyConfig{
			Symbol:           getEnv("TRADING_SYMBOL", "SPXL"),
			MinConfidence:    getEnvFloat("MIN_CONFIDENCE", 0.6),
			BasePositionSize: getEnvFloat("BASE_POSITION_SIZE", 0.3),
			MaxPositionSize:  getEnvFloat("MAX_POSITION_SIZE", 0.8),
			BaseStopLoss:     getEnvFloat("BASE_STOP_LOSS", 0.12),
			BaseTakeProfit:   getEnvFloat("BASE_TAKE_PROFIT", 0.15),
			BaseMaxHoldDays:  getEnvInt("BASE_MAX_HOLD_DAYS", 60),
			WindowCapacity:   getEnvInt("RETURN_WINDOW_CAPACITY", 10),
		},
	}

	cfg.Backtest.InitialCash = getEnvFloat("INITIAL_CASH", 100000.0)
	cfg.Backtest.Commission = getEnvFloat("COMMISSION", 0.001)
	cfg.Backtest.DataFile = getEnv("DATA_FILE", "")
	cfg.Backtest.DBPath = getEnv("DB_PATH", "spxl_backtest.db")

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 8080)
	cfg.Monitoring.HealthPort = getEnvInt("HEALTH_PORT", 8081)

	return cfg
}

// LoadFile overlays a JSON config file on top of cfg.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("could not parse config file: %w", err)
	}
	return c.Validate()
}

// Validate checks the strategy parameters for internal consistency.
func (c *Config) Validate() error {
	s := c.Strategy
	if s.MinConfidence < 0 || s.MinConfidence >= 1 {
		return fmt.Errorf("min confidence %.2f must be in [0, 1)", s.MinConfidence)
	}
	if s.BasePositionSize <= 0 || s.BasePositionSize > s.MaxPositionSize {
		return fmt.Errorf("base position size %.2f must be positive and not above max %.2f", s.BasePositionSize, s.MaxPositionSize)
	}
	if s.MaxPositionSize > 1 {
		return fmt.Errorf("max position size %.2f must not exceed 1", s.MaxPositionSize)
	}
	if s.BaseStopLoss <= 0 || s.BaseTakeProfit <= 0 {
		return fmt.Errorf("stop loss and take profit fractions must be positive")
	}
	if s.BaseMaxHoldDays <= 0 {
		return fmt.Errorf("base max hold days %d must be positive", s.BaseMaxHoldDays)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
