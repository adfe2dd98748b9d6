package engine

import (
	"time"

	"github.com/ducminhle1904/pattern-cluster-bot/internal/pattern"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/risk"
)

// State is the per-instrument position lifecycle state.
type State int

const (
	StateFlat State = iota
	StateEntering
	StateOpen
	StateExiting
)

func (s State) String() string {
	switch s {
	case StateFlat:
		return "FLAT"
	case StateEntering:
		return "ENTERING"
	case StateOpen:
		return "OPEN"
	case StateExiting:
		return "EXITING"
	default:
		return "UNKNOWN"
	}
}

// ExitReason labels which trigger closed a position.
type ExitReason int

const (
	ExitNone ExitReason = iota
	ExitMaxHold
	ExitStopLoss
	ExitTakeProfit
)

func (r ExitReason) String() string {
	switch r {
	case ExitMaxHold:
		return "MAX_HOLD"
	case ExitStopLoss:
		return "STOP_LOSS"
	case ExitTakeProfit:
		return "TAKE_PROFIT"
	default:
		return "NONE"
	}
}

// instrumentState is the exclusively-owned engine state for one
// instrument: its rolling window, bar clock, and position lifecycle.
type instrumentState struct {
	window      *pattern.Window
	lastBarDate time.Time

	state        State
	pendingOrder OrderID

	// Position fields, valid from entry fill until the trade closes.
	// Risk parameters are frozen at entry for the life of the position.
	entryDate       time.Time
	entryPrice      float64
	entryCommission float64
	entryConfidence float64
	size            float64
	params          risk.Parameters
	daysHeld        int
	exitReason      ExitReason
}

// clearPosition resets all position-scoped fields on the way back to FLAT.
func (st *instrumentState) clearPosition() {
	st.state = StateFlat
	st.pendingOrder = 0
	st.entryDate = time.Time{}
	st.entryPrice = 0
	st.entryCommission = 0
	st.entryConfidence = 0
	st.size = 0
	st.params = risk.Parameters{}
	st.daysHeld = 0
	st.exitReason = ExitNone
}
