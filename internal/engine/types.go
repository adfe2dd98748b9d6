package engine

import (
	"fmt"
	"time"
)

// Side is the direction of an order intent.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// OrderKind selects how an order intent should be priced.
type OrderKind int

const (
	OrderMarket OrderKind = iota
	OrderLimit
)

// OrderID is the broker-assigned handle for a submitted order.
type OrderID int64

// Broker accepts order intents from the engine. The broker reports the
// outcome back through OnFill/OnReject before the instrument's next bar.
type Broker interface {
	Submit(instrument string, side Side, size float64, kind OrderKind, limitPrice float64) (OrderID, error)
}

// Portfolio exposes the current total portfolio value, used to convert
// a position size fraction into a share count.
type Portfolio interface {
	Value() float64
}

// TradeRecord summarizes one closed round trip. It is handed to the
// recorder at exit and not retained by the engine.
type TradeRecord struct {
	Instrument string
	EntryDate  time.Time
	ExitDate   time.Time
	EntryPrice float64
	ExitPrice  float64
	Size       float64
	GrossPnL   float64
	PnLPercent float64
	Commission float64
	ExitReason ExitReason
	DaysHeld   int
}

// TradeRecorder persists closed trades. Record is fire-and-forget:
// failures are logged by the engine and never alter its state.
type TradeRecorder interface {
	Record(trade TradeRecord) error
}

// Logger is the minimal logging surface the engine needs. The concrete
// file logger in internal/logger satisfies it.
type Logger interface {
	Info(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
	Trade(format string, args ...interface{})
}

// nopLogger discards everything; used when no logger is supplied.
type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})    {}
func (nopLogger) Warning(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{})   {}
func (nopLogger) Trade(string, ...interface{})   {}

// OutOfOrderBarError reports a bar whose date does not advance the
// instrument's clock. The update is rejected and state left unchanged.
type OutOfOrderBarError struct {
	Instrument string
	BarDate    time.Time
	LastDate   time.Time
}

func (e *OutOfOrderBarError) Error() string {
	return fmt.Sprintf("out-of-order bar for %s: %s does not advance %s",
		e.Instrument, e.BarDate.Format("2006-01-02"), e.LastDate.Format("2006-01-02"))
}
