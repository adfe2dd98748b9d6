package engine

import (
	"fmt"
	"math"

	"github.com/ducminhle1904/pattern-cluster-bot/internal/cluster"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/monitoring"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/pattern"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/risk"
	"github.com/ducminhle1904/pattern-cluster-bot/pkg/types"
)

// Settings are the engine's strategy thresholds. The full parameter set
// lives in internal/config; the engine only needs these two.
type Settings struct {
	MinConfidence  float64
	WindowCapacity int
}

// Engine is the pattern-classification trading decision engine. Each
// bar it updates the instrument's rolling return window, classifies the
// current 4-day pattern when flat, converts the cluster's confidence
// into sizing and risk limits, and drives the per-instrument position
// state machine. Long-only: SELL signals keep the engine in cash.
//
// The engine is bar-synchronous and not safe for concurrent use; each
// instrument's state is independent, so hosts may shard instruments
// across engines if they want parallelism.
type Engine struct {
	settings   Settings
	classifier pattern.Classifier
	table      *cluster.Table
	risk       *risk.Parameterizer
	broker     Broker
	portfolio  Portfolio
	recorder   TradeRecorder
	log        Logger

	instruments map[string]*instrumentState
	orders      map[OrderID]string
}

// NewEngine wires the engine's collaborators together. A nil logger
// discards log output; a nil recorder drops trade records.
func NewEngine(settings Settings, classifier pattern.Classifier, table *cluster.Table, parameterizer *risk.Parameterizer, broker Broker, portfolio Portfolio, recorder TradeRecorder, log Logger) *Engine {
	if settings.WindowCapacity <= 0 {
		settings.WindowCapacity = pattern.DefaultCapacity
	}
	if log == nil {
		log = nopLogger{}
	}
	return &Engine{
		settings:    settings,
		classifier:  classifier,
		table:       table,
		risk:        parameterizer,
		broker:      broker,
		portfolio:   portfolio,
		recorder:    recorder,
		log:         log,
		instruments: make(map[string]*instrumentState),
		orders:      make(map[OrderID]string),
	}
}

// OnBar advances one instrument by one daily bar. Bars must arrive in
// strictly ascending date order per instrument; violations are rejected
// with OutOfOrderBarError and leave state untouched. A non-positive
// close is rejected with pattern.InvalidPriceError the same way.
func (e *Engine) OnBar(instrument string, bar types.Bar) error {
	st := e.state(instrument)

	if !st.lastBarDate.IsZero() && !bar.Date.After(st.lastBarDate) {
		monitoring.RecordError("out_of_order_bar")
		return &OutOfOrderBarError{Instrument: instrument, BarDate: bar.Date, LastDate: st.lastBarDate}
	}
	if err := st.window.Update(bar.Close); err != nil {
		monitoring.RecordError("invalid_price")
		return err
	}
	st.lastBarDate = bar.Date

	switch st.state {
	case StateEntering, StateExiting:
		// A pending order means the broker has not responded yet;
		// wait rather than stacking intents.
		return nil
	case StateOpen:
		e.evaluateExits(instrument, st, bar)
		return nil
	case StateFlat:
		e.evaluateEntry(instrument, st, bar)
		return nil
	default:
		panic(fmt.Sprintf("engine: %s in unknown state %d", instrument, st.state))
	}
}

// evaluateEntry classifies the current pattern and emits a buy intent
// when the cluster signals BUY at sufficient confidence.
func (e *Engine) evaluateEntry(instrument string, st *instrumentState, bar types.Bar) {
	features, ok := st.window.Features()
	if !ok {
		return
	}

	id := e.classifier.Classify(features)
	profile := e.table.Lookup(id)
	monitoring.ObserveClassification(int(id), profile.Signal.String())
	monitoring.UpdateSignalConfidence(instrument, profile.Confidence)

	if profile.Signal != cluster.SignalBuy {
		// Long-only: SELL clusters mean cash-and-wait, not shorting.
		return
	}
	if profile.Confidence < e.settings.MinConfidence {
		return
	}

	params := e.risk.Parameterize(profile.Confidence, id)
	shares := math.Floor(e.portfolio.Value() * params.PositionSizeFraction / bar.Close)
	if shares <= 0 {
		e.log.Warning("%s: buy signal on cluster %d but sizing produced no shares", instrument, id)
		return
	}

	orderID, err := e.broker.Submit(instrument, SideBuy, shares, OrderMarket, 0)
	if err != nil {
		e.log.Error("%s: buy submit failed: %v", instrument, err)
		monitoring.RecordError("submit")
		return
	}

	st.state = StateEntering
	st.pendingOrder = orderID
	st.entryDate = bar.Date
	st.entryConfidence = profile.Confidence
	st.params = params
	e.orders[orderID] = instrument

	e.log.Trade("%s: BUY intent on cluster %d (conf %.2f): %.0f shares, size %.1f%%, stop %.1f%%, target %.1f%%, max hold %d days",
		instrument, id, profile.Confidence, shares,
		params.PositionSizeFraction*100, params.StopLossFraction*100,
		params.TakeProfitFraction*100, params.MaxHoldDays)
}

// evaluateExits increments the holding counter and checks the exit
// triggers in fixed priority order: max hold, then stop loss, then take
// profit. At most one exit intent is emitted per bar.
func (e *Engine) evaluateExits(instrument string, st *instrumentState, bar types.Bar) {
	st.daysHeld++
	pnlPct := (bar.Close/st.entryPrice - 1) * 100

	var reason ExitReason
	switch {
	case st.daysHeld >= st.params.MaxHoldDays:
		reason = ExitMaxHold
	case pnlPct <= -st.params.StopLossFraction*100:
		reason = ExitStopLoss
	case pnlPct >= st.params.TakeProfitFraction*100:
		reason = ExitTakeProfit
	default:
		return
	}

	orderID, err := e.broker.Submit(instrument, SideSell, st.size, OrderMarket, 0)
	if err != nil {
		e.log.Error("%s: exit submit failed (%s): %v", instrument, reason, err)
		monitoring.RecordError("submit")
		return
	}

	st.state = StateExiting
	st.pendingOrder = orderID
	st.exitReason = reason
	e.orders[orderID] = instrument

	e.log.Trade("%s: %s exit at %.2f%% (day %d/%d, conf %.2f)",
		instrument, reason, pnlPct, st.daysHeld, st.params.MaxHoldDays, st.entryConfidence)
}

// OnFill consumes a fill confirmation from the broker. A fill for an
// unknown order is logged and ignored; a fill in a state that cannot
// have a pending order indicates an upstream scheduling bug and panics.
func (e *Engine) OnFill(orderID OrderID, fillPrice, fillSize, commission float64) {
	instrument, ok := e.orders[orderID]
	if !ok {
		e.log.Warning("fill for unknown order %d ignored", orderID)
		monitoring.RecordError("unknown_fill")
		return
	}
	delete(e.orders, orderID)

	st := e.instruments[instrument]
	switch st.state {
	case StateEntering:
		st.state = StateOpen
		st.pendingOrder = 0
		st.entryPrice = fillPrice
		st.entryCommission = commission
		st.size = fillSize
		st.daysHeld = 0
		monitoring.SetOpenPositions(e.openPositions())
		e.log.Trade("%s: entry filled, %.0f shares at %.2f", instrument, fillSize, fillPrice)

	case StateExiting:
		trade := TradeRecord{
			Instrument: instrument,
			EntryDate:  st.entryDate,
			ExitDate:   st.lastBarDate,
			EntryPrice: st.entryPrice,
			ExitPrice:  fillPrice,
			Size:       st.size,
			GrossPnL:   (fillPrice - st.entryPrice) * st.size,
			PnLPercent: (fillPrice/st.entryPrice - 1) * 100,
			Commission: st.entryCommission + commission,
			ExitReason: st.exitReason,
			DaysHeld:   st.daysHeld,
		}
		st.clearPosition()
		monitoring.RecordTrade(instrument, trade.ExitReason.String())
		monitoring.SetOpenPositions(e.openPositions())
		e.log.Trade("%s: exit filled at %.2f, P&L %.2f%% ($%.2f) over %d days",
			instrument, fillPrice, trade.PnLPercent, trade.GrossPnL, trade.DaysHeld)

		if e.recorder != nil {
			if err := e.recorder.Record(trade); err != nil {
				e.log.Error("%s: trade record failed: %v", instrument, err)
				monitoring.RecordError("record")
			}
		}

	default:
		panic(fmt.Sprintf("engine: fill for %s while %s", instrument, st.state))
	}
}

// OnReject consumes a rejection or cancellation. An entry rejection
// returns the instrument to FLAT with nothing persisted; an exit
// rejection returns to OPEN so the triggers re-fire on the next bar.
func (e *Engine) OnReject(orderID OrderID, reason string) {
	instrument, ok := e.orders[orderID]
	if !ok {
		e.log.Warning("rejection for unknown order %d ignored (%s)", orderID, reason)
		monitoring.RecordError("unknown_reject")
		return
	}
	delete(e.orders, orderID)

	st := e.instruments[instrument]
	switch st.state {
	case StateEntering:
		e.log.Warning("%s: entry rejected: %s", instrument, reason)
		st.clearPosition()
	case StateExiting:
		e.log.Warning("%s: exit rejected, position stays open: %s", instrument, reason)
		st.state = StateOpen
		st.pendingOrder = 0
		st.exitReason = ExitNone
	default:
		panic(fmt.Sprintf("engine: rejection for %s while %s", instrument, st.state))
	}
}

// State reports the lifecycle state for an instrument. Unknown
// instruments are FLAT.
func (e *Engine) State(instrument string) State {
	if st, ok := e.instruments[instrument]; ok {
		return st.state
	}
	return StateFlat
}

// Position returns the open position's size and frozen risk parameters.
// The second result is false unless the instrument is OPEN.
func (e *Engine) Position(instrument string) (size float64, params risk.Parameters, ok bool) {
	st, exists := e.instruments[instrument]
	if !exists || st.state != StateOpen {
		return 0, risk.Parameters{}, false
	}
	return st.size, st.params, true
}

func (e *Engine) state(instrument string) *instrumentState {
	st, ok := e.instruments[instrument]
	if !ok {
		st = &instrumentState{window: pattern.NewWindow(e.settings.WindowCapacity)}
		e.instruments[instrument] = st
	}
	return st
}

func (e *Engine) openPositions() int {
	n := 0
	for _, st := range e.instruments {
		if st.state == StateOpen {
			n++
		}
	}
	return n
}
