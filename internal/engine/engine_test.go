package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/pattern-cluster-bot/internal/cluster"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/pattern"
	"github.com/ducminhle1904/pattern-cluster-bot/internal/risk"
	"github.com/ducminhle1904/pattern-cluster-bot/pkg/types"
)

// Test helpers

// fixedClassifier always returns the configured cluster id.
type fixedClassifier struct {
	id cluster.ID
}

func (c fixedClassifier) Classify(_ pattern.Features) cluster.ID {
	return c.id
}

// mockBroker captures submitted order intents.
type submission struct {
	instrument string
	side       Side
	size       float64
}

type mockBroker struct {
	nextID      OrderID
	submissions []submission
}

func (b *mockBroker) Submit(instrument string, side Side, size float64, kind OrderKind, limitPrice float64) (OrderID, error) {
	b.nextID++
	b.submissions = append(b.submissions, submission{instrument: instrument, side: side, size: size})
	return b.nextID, nil
}

func (b *mockBroker) lastOrder() OrderID { return b.nextID }

// fixedPortfolio reports a constant portfolio value.
type fixedPortfolio struct {
	value float64
}

func (p fixedPortfolio) Value() float64 { return p.value }

// captureRecorder collects recorded trades.
type captureRecorder struct {
	trades []TradeRecord
}

func (r *captureRecorder) Record(trade TradeRecord) error {
	r.trades = append(r.trades, trade)
	return nil
}

type testEngine struct {
	engine   *Engine
	broker   *mockBroker
	recorder *captureRecorder
	date     time.Time
}

// newTestEngine builds an engine classifying everything as the given
// cluster with the given profile table.
func newTestEngine(t *testing.T, id cluster.ID, table *cluster.Table, baseHoldDays int) *testEngine {
	t.Helper()
	broker := &mockBroker{}
	recorder := &captureRecorder{}
	parameterizer := risk.NewParameterizer(0.6, 0.3, 0.8, 0.12, 0.15, baseHoldDays, table)

	eng := NewEngine(
		Settings{MinConfidence: 0.6, WindowCapacity: 10},
		fixedClassifier{id: id},
		table,
		parameterizer,
		broker,
		fixedPortfolio{value: 100000},
		recorder,
		nil,
	)
	return &testEngine{
		engine:   eng,
		broker:   broker,
		recorder: recorder,
		date:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

// feedBar advances the engine by one bar at the given close.
func (te *testEngine) feedBar(t *testing.T, instrument string, close float64) {
	t.Helper()
	require.NoError(t, te.engine.OnBar(instrument, types.Bar{Date: te.date, Close: close}))
	te.date = te.date.AddDate(0, 0, 1)
}

// warmUp feeds enough flat bars to fill the classification lookback
// without emitting an entry (flat closes classify, but the fixed
// classifier decides the outcome, so callers pick tables accordingly).
func (te *testEngine) warmUp(t *testing.T, instrument string, closes ...float64) {
	t.Helper()
	for _, close := range closes {
		te.feedBar(t, instrument, close)
	}
}

func buyTable(confidence, expectedReturn float64) *cluster.Table {
	return cluster.NewTable(map[cluster.ID]cluster.Profile{
		6: {Signal: cluster.SignalBuy, Confidence: confidence, ExpectedReturn: expectedReturn},
	})
}

// Tests

// TestEngine_NoClassificationBeforeLookback tests that short windows
// never trigger orders
func TestEngine_NoClassificationBeforeLookback(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.9, 0), 60)

	te.warmUp(t, "SPXL", 100, 101, 102)

	assert.Empty(t, te.broker.submissions)
	assert.Equal(t, StateFlat, te.engine.State("SPXL"))
}

// TestEngine_EntryOnBuySignal tests the FLAT -> ENTERING -> OPEN path
func TestEngine_EntryOnBuySignal(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.9, 0), 60)

	te.warmUp(t, "SPXL", 100, 101, 102, 100)
	require.Len(t, te.broker.submissions, 1)

	sub := te.broker.submissions[0]
	assert.Equal(t, SideBuy, sub.side)
	assert.Greater(t, sub.size, 0.0)
	assert.Equal(t, StateEntering, te.engine.State("SPXL"))

	te.engine.OnFill(te.broker.lastOrder(), 100, sub.size, 10)
	assert.Equal(t, StateOpen, te.engine.State("SPXL"))

	size, params, ok := te.engine.Position("SPXL")
	require.True(t, ok)
	assert.Greater(t, size, 0.0)
	assert.InDelta(t, 0.18, params.StopLossFraction, 1e-9)
}

// TestEngine_PositionSizing tests the fraction-to-shares conversion
func TestEngine_PositionSizing(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.9, 0), 60)

	te.warmUp(t, "SPXL", 100, 101, 102, 100)
	require.Len(t, te.broker.submissions, 1)

	// Confidence 0.9 interpolates to a 67.5% fraction of the 100k
	// portfolio at a close of 100.
	assert.InDelta(t, 675, te.broker.submissions[0].size, 0.5)
}

// TestEngine_NoEntryBelowConfidenceThreshold tests the confidence gate
func TestEngine_NoEntryBelowConfidenceThreshold(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.55, 0), 60)

	te.warmUp(t, "SPXL", 100, 101, 102, 100, 101, 102)

	assert.Empty(t, te.broker.submissions)
	assert.Equal(t, StateFlat, te.engine.State("SPXL"))
}

// TestEngine_SellSignalNotActedOn tests the long-only policy
func TestEngine_SellSignalNotActedOn(t *testing.T) {
	table := cluster.NewTable(map[cluster.ID]cluster.Profile{
		4: {Signal: cluster.SignalSell, Confidence: 0.95, ExpectedReturn: -13.79},
	})
	te := newTestEngine(t, 4, table, 60)

	te.warmUp(t, "SPXL", 100, 95, 90, 85, 80)

	assert.Empty(t, te.broker.submissions)
	assert.Equal(t, StateFlat, te.engine.State("SPXL"))
}

// TestEngine_EntryRejectionReturnsToFlat tests ENTERING -> FLAT
func TestEngine_EntryRejectionReturnsToFlat(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.9, 0), 60)

	te.warmUp(t, "SPXL", 100, 101, 102, 100)
	require.Equal(t, StateEntering, te.engine.State("SPXL"))

	te.engine.OnReject(te.broker.lastOrder(), "insufficient cash")
	assert.Equal(t, StateFlat, te.engine.State("SPXL"))

	_, _, ok := te.engine.Position("SPXL")
	assert.False(t, ok)
}

// TestEngine_StopLossExit tests the stop-loss trigger and trade record
func TestEngine_StopLossExit(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.9, 0), 60)

	te.warmUp(t, "SPXL", 100, 101, 102, 100)
	entrySize := te.broker.submissions[0].size
	te.engine.OnFill(te.broker.lastOrder(), 100, entrySize, 10)

	// Stop loss for confidence 0.9 is 18%; a drop to 80 breaches it.
	te.feedBar(t, "SPXL", 80)
	require.Len(t, te.broker.submissions, 2)
	assert.Equal(t, SideSell, te.broker.submissions[1].side)
	assert.Equal(t, StateExiting, te.engine.State("SPXL"))

	te.engine.OnFill(te.broker.lastOrder(), 80, entrySize, 8)
	assert.Equal(t, StateFlat, te.engine.State("SPXL"))

	require.Len(t, te.recorder.trades, 1)
	trade := te.recorder.trades[0]
	assert.Equal(t, ExitStopLoss, trade.ExitReason)
	assert.InDelta(t, -20.0, trade.PnLPercent, 1e-9)
	assert.InDelta(t, (80.0-100.0)*entrySize, trade.GrossPnL, 1e-9)
	assert.InDelta(t, 18.0, trade.Commission, 1e-9)
}

// TestEngine_TakeProfitExit tests the take-profit trigger
func TestEngine_TakeProfitExit(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.9, 0), 60)

	te.warmUp(t, "SPXL", 100, 101, 102, 100)
	entrySize := te.broker.submissions[0].size
	te.engine.OnFill(te.broker.lastOrder(), 100, entrySize, 10)

	// Take profit for confidence 0.9 is 27%; small gains keep holding.
	te.feedBar(t, "SPXL", 110)
	require.Len(t, te.broker.submissions, 1)

	te.feedBar(t, "SPXL", 130)
	require.Len(t, te.broker.submissions, 2)

	te.engine.OnFill(te.broker.lastOrder(), 130, entrySize, 13)
	require.Len(t, te.recorder.trades, 1)
	assert.Equal(t, ExitTakeProfit, te.recorder.trades[0].ExitReason)
	assert.Equal(t, 2, te.recorder.trades[0].DaysHeld)
}

// TestEngine_MaxHoldExit tests the holding-period deadline
func TestEngine_MaxHoldExit(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.75, 0), 3)

	te.warmUp(t, "SPXL", 100, 101, 102, 100)
	entrySize := te.broker.submissions[0].size
	te.engine.OnFill(te.broker.lastOrder(), 100, entrySize, 0)

	// Base hold 3 days at the 0.7 tier stays 3 days; the price never
	// moves, so only the clock can close the trade.
	te.feedBar(t, "SPXL", 100)
	te.feedBar(t, "SPXL", 100)
	require.Len(t, te.broker.submissions, 1)

	te.feedBar(t, "SPXL", 100)
	require.Len(t, te.broker.submissions, 2)

	te.engine.OnFill(te.broker.lastOrder(), 100, entrySize, 0)
	require.Len(t, te.recorder.trades, 1)
	assert.Equal(t, ExitMaxHold, te.recorder.trades[0].ExitReason)
	assert.Equal(t, 3, te.recorder.trades[0].DaysHeld)
}

// TestEngine_ExitPriority tests that MAX_HOLD outranks STOP_LOSS when
// both trigger on the same bar
func TestEngine_ExitPriority(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.75, 0), 1)

	te.warmUp(t, "SPXL", 100, 101, 102, 100)
	entrySize := te.broker.submissions[0].size
	te.engine.OnFill(te.broker.lastOrder(), 100, entrySize, 0)

	// One bar later the hold limit (1 day) and the stop loss (12%, the
	// 0.7 tier) are both breached; only one exit intent is emitted and
	// it is the max-hold exit.
	te.feedBar(t, "SPXL", 50)
	require.Len(t, te.broker.submissions, 2)

	te.engine.OnFill(te.broker.lastOrder(), 50, entrySize, 0)
	require.Len(t, te.recorder.trades, 1)
	assert.Equal(t, ExitMaxHold, te.recorder.trades[0].ExitReason)
}

// TestEngine_RiskParametersFrozenForLifeOfTrade tests that parameters
// assigned at entry never drift
func TestEngine_RiskParametersFrozenForLifeOfTrade(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.9, 0), 60)

	te.warmUp(t, "SPXL", 100, 101, 102, 100)
	entrySize := te.broker.submissions[0].size
	te.engine.OnFill(te.broker.lastOrder(), 100, entrySize, 0)

	_, entryParams, ok := te.engine.Position("SPXL")
	require.True(t, ok)

	for _, close := range []float64{101, 99, 102, 98} {
		te.feedBar(t, "SPXL", close)
		_, params, ok := te.engine.Position("SPXL")
		require.True(t, ok)
		assert.Equal(t, entryParams, params)
	}
}

// TestEngine_NoReentryWhileOpen tests the one-position invariant
func TestEngine_NoReentryWhileOpen(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.9, 0), 60)

	te.warmUp(t, "SPXL", 100, 101, 102, 100)
	entrySize := te.broker.submissions[0].size
	te.engine.OnFill(te.broker.lastOrder(), 100, entrySize, 0)

	// More BUY-classified bars arrive while the position is open; no
	// further entry intents may be emitted.
	te.feedBar(t, "SPXL", 101)
	te.feedBar(t, "SPXL", 102)
	assert.Len(t, te.broker.submissions, 1)
}

// TestEngine_UnknownOrderNotificationsIgnored tests protocol error
// handling
func TestEngine_UnknownOrderNotificationsIgnored(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.9, 0), 60)
	te.warmUp(t, "SPXL", 100, 101)

	assert.NotPanics(t, func() {
		te.engine.OnFill(999, 100, 10, 1)
		te.engine.OnReject(999, "who dis")
	})
	assert.Equal(t, StateFlat, te.engine.State("SPXL"))
}

// TestEngine_OutOfOrderBarRejected tests the bar-date contract
func TestEngine_OutOfOrderBarRejected(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.9, 0), 60)

	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, te.engine.OnBar("SPXL", types.Bar{Date: date, Close: 100}))

	// Same date and an earlier date are both rejected.
	for _, bad := range []time.Time{date, date.AddDate(0, 0, -1)} {
		err := te.engine.OnBar("SPXL", types.Bar{Date: bad, Close: 101})
		require.Error(t, err)
		var outOfOrder *OutOfOrderBarError
		assert.ErrorAs(t, err, &outOfOrder)
	}

	// The clock still advances on the next valid bar.
	require.NoError(t, te.engine.OnBar("SPXL", types.Bar{Date: date.AddDate(0, 0, 1), Close: 101}))
}

// TestEngine_InvalidPriceRejected tests bad close handling
func TestEngine_InvalidPriceRejected(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.9, 0), 60)

	date := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, te.engine.OnBar("SPXL", types.Bar{Date: date, Close: 100}))

	err := te.engine.OnBar("SPXL", types.Bar{Date: date.AddDate(0, 0, 1), Close: -1})
	require.Error(t, err)
	var invalidPrice *pattern.InvalidPriceError
	assert.ErrorAs(t, err, &invalidPrice)

	// The rejected bar did not advance the clock.
	require.NoError(t, te.engine.OnBar("SPXL", types.Bar{Date: date.AddDate(0, 0, 1), Close: 101}))
}

// TestEngine_PnLPercentRoundTrip tests the trade record math
func TestEngine_PnLPercentRoundTrip(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.9, 0), 60)

	te.warmUp(t, "SPXL", 100, 101, 102, 100)
	entrySize := te.broker.submissions[0].size
	te.engine.OnFill(te.broker.lastOrder(), 100, entrySize, 25)

	te.feedBar(t, "SPXL", 131)
	te.engine.OnFill(te.broker.lastOrder(), 131, entrySize, 33)

	require.Len(t, te.recorder.trades, 1)
	trade := te.recorder.trades[0]

	// pnlPercent depends only on entry and exit prices, not commission.
	assert.InDelta(t, (trade.ExitPrice/trade.EntryPrice-1)*100, trade.PnLPercent, 1e-6)
	assert.InDelta(t, 58.0, trade.Commission, 1e-9)
}

// TestEngine_InstrumentsAreIndependent tests per-instrument isolation
func TestEngine_InstrumentsAreIndependent(t *testing.T) {
	te := newTestEngine(t, 6, buyTable(0.9, 0), 60)

	te.warmUp(t, "SPXL", 100, 101, 102, 100)
	require.Equal(t, StateEntering, te.engine.State("SPXL"))

	// A second instrument starts with its own empty window.
	assert.Equal(t, StateFlat, te.engine.State("TQQQ"))
	require.NoError(t, te.engine.OnBar("TQQQ", types.Bar{Date: te.date, Close: 50}))
	assert.Equal(t, StateFlat, te.engine.State("TQQQ"))
	assert.Len(t, te.broker.submissions, 1)
}
