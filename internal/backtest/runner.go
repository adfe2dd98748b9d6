package backtest

import (
	"errors"

	"github.com/ducminhle1904/pattern-cluster-bot/internal/broker"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/engine"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/monitoring"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/pattern"
	"github.com/ducminhle1904/pattern-cluster-bot/pkg/types"
)

// Runner drives daily bars through the decision engine against the
// simulated broker, delivering order notifications between bars and
// tracking the equity curve.
type Runner struct {
	engine  *engine.Engine
	broker  *broker.Sim
	results *Results
	health  *monitoring.HealthChecker
}

// Results aggregates the outcome of one backtest run.
type Results struct {
	StartBalance  float64
	EndBalance    float64
	TotalReturn   float64
	MaxDrawdown   float64
	SharpeRatio   float64
	ProfitFactor  float64
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	SkippedBars   int
	Trades        []engine.TradeRecord
	EquityCurve   []float64
}

// NewRunner wires a runner over an engine and its simulated broker.
// The engine must have been constructed with a recorder that feeds this
// runner (see CollectingRecorder).
func NewRunner(eng *engine.Engine, sim *broker.Sim, collector *CollectingRecorder) *Runner {
	r := &Runner{
		engine: eng,
		broker: sim,
		results: &Results{
			StartBalance: sim.Value(),
		},
	}
	collector.attach(r.results)
	return r
}

// SetHealthChecker attaches a health checker that is updated as bars
// are processed. Optional; long runs expose it over HTTP.
func (r *Runner) SetHealthChecker(h *monitoring.HealthChecker) {
	r.health = h
}

// Run replays the bars for one instrument in order. Input errors
// (out-of-order bars, bad prices) skip the offending bar and are
// counted rather than aborting the run; anything else is returned.
func (r *Runner) Run(instrument string, bars []types.Bar) (*Results, error) {
	for _, bar := range bars {
		if err := r.engine.OnBar(instrument, bar); err != nil {
			if isInputError(err) {
				r.results.SkippedBars++
				if r.health != nil {
					r.health.ReportError(err.Error())
				}
				continue
			}
			return r.results, err
		}
		if r.health != nil {
			r.health.BarProcessed(bar.Date)
		}

		// Mark only bars the engine accepted: a rejected bar must leave
		// the broker's valuation untouched as well.
		r.broker.MarkPrice(instrument, bar.Close)

		// Order outcomes land before the next bar, per the engine's
		// notification contract.
		r.broker.Deliver(r.engine)

		value := r.broker.Value()
		r.results.EquityCurve = append(r.results.EquityCurve, value)
	}

	r.finalize()
	return r.results, nil
}

func (r *Runner) finalize() {
	r.results.EndBalance = r.broker.Value()
	if r.results.StartBalance > 0 {
		r.results.TotalReturn = (r.results.EndBalance - r.results.StartBalance) / r.results.StartBalance
	}
	r.results.TotalTrades = len(r.results.Trades)
	for _, t := range r.results.Trades {
		if t.GrossPnL > 0 {
			r.results.WinningTrades++
		} else {
			r.results.LosingTrades++
		}
	}
	r.results.MaxDrawdown = maxDrawdown(r.results.EquityCurve)
	r.results.SharpeRatio = sharpeRatio(r.results.EquityCurve)
	r.results.ProfitFactor = profitFactor(r.results.Trades)
}

func isInputError(err error) bool {
	var outOfOrder *engine.OutOfOrderBarError
	var invalidPrice *pattern.InvalidPriceError
	return errors.As(err, &outOfOrder) || errors.As(err, &invalidPrice)
}

// CollectingRecorder implements engine.TradeRecorder by appending each
// closed trade to the run's results, optionally forwarding to a
// downstream recorder (e.g. the SQLite trade store).
type CollectingRecorder struct {
	results  *Results
	forward  engine.TradeRecorder
	buffered []engine.TradeRecord
}

// NewCollectingRecorder creates a collector. forward may be nil.
func NewCollectingRecorder(forward engine.TradeRecorder) *CollectingRecorder {
	return &CollectingRecorder{forward: forward}
}

func (c *CollectingRecorder) attach(results *Results) {
	c.results = results
	// Trades recorded before the runner existed still count.
	c.results.Trades = append(c.results.Trades, c.buffered...)
	c.buffered = nil
}

// Record implements engine.TradeRecorder.
func (c *CollectingRecorder) Record(trade engine.TradeRecord) error {
	if c.results != nil {
		c.results.Trades = append(c.results.Trades, trade)
	} else {
		c.buffered = append(c.buffered, trade)
	}
	if c.forward != nil {
		return c.forward.Record(trade)
	}
	return nil
}
