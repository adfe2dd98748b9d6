package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/pattern-cluster-bot/internal/engine"
)

// recordingNotifier captures delivered order outcomes.
type fill struct {
	orderID    engine.OrderID
	price      float64
	size       float64
	commission float64
}

type reject struct {
	orderID engine.OrderID
	reason  string
}

type recordingNotifier struct {
	fills   []fill
	rejects []reject
}

func (n *recordingNotifier) OnFill(orderID engine.OrderID, fillPrice, fillSize, commission float64) {
	n.fills = append(n.fills, fill{orderID: orderID, price: fillPrice, size: fillSize, commission: commission})
}

func (n *recordingNotifier) OnReject(orderID engine.OrderID, reason string) {
	n.rejects = append(n.rejects, reject{orderID: orderID, reason: reason})
}

// TestSim_BuyFillAccounting tests cash and holdings after a buy fill
func TestSim_BuyFillAccounting(t *testing.T) {
	sim := NewSim(100000, 0.001)
	sim.MarkPrice("SPXL", 100)

	orderID, err := sim.Submit("SPXL", engine.SideBuy, 500, engine.OrderMarket, 0)
	require.NoError(t, err)

	// Nothing settles until Deliver runs.
	assert.InDelta(t, 100000, sim.Cash(), 1e-9)

	n := &recordingNotifier{}
	sim.Deliver(n)

	require.Len(t, n.fills, 1)
	assert.Equal(t, orderID, n.fills[0].orderID)
	assert.InDelta(t, 100.0, n.fills[0].price, 1e-9)
	assert.InDelta(t, 50.0, n.fills[0].commission, 1e-9)

	assert.InDelta(t, 100000-50000-50, sim.Cash(), 1e-9)
	assert.InDelta(t, 500, sim.Holdings("SPXL"), 1e-9)
	assert.InDelta(t, 100000-50, sim.Value(), 1e-9)
}

// TestSim_SellFillAccounting tests a full round trip
func TestSim_SellFillAccounting(t *testing.T) {
	sim := NewSim(100000, 0.001)
	sim.MarkPrice("SPXL", 100)

	n := &recordingNotifier{}
	_, err := sim.Submit("SPXL", engine.SideBuy, 500, engine.OrderMarket, 0)
	require.NoError(t, err)
	sim.Deliver(n)

	sim.MarkPrice("SPXL", 110)
	_, err = sim.Submit("SPXL", engine.SideSell, 500, engine.OrderMarket, 0)
	require.NoError(t, err)
	sim.Deliver(n)

	require.Len(t, n.fills, 2)
	assert.InDelta(t, 110.0, n.fills[1].price, 1e-9)
	assert.InDelta(t, 55.0, n.fills[1].commission, 1e-9)

	// 100000 - 50000 - 50 + 55000 - 55
	assert.InDelta(t, 104895, sim.Cash(), 1e-9)
	assert.InDelta(t, 0, sim.Holdings("SPXL"), 1e-9)
}

// TestSim_InsufficientCashRejected tests buy-side rejection
func TestSim_InsufficientCashRejected(t *testing.T) {
	sim := NewSim(1000, 0.001)
	sim.MarkPrice("SPXL", 100)

	orderID, err := sim.Submit("SPXL", engine.SideBuy, 50, engine.OrderMarket, 0)
	require.NoError(t, err)

	n := &recordingNotifier{}
	sim.Deliver(n)

	require.Len(t, n.rejects, 1)
	assert.Equal(t, orderID, n.rejects[0].orderID)
	assert.Contains(t, n.rejects[0].reason, "insufficient cash")
	assert.InDelta(t, 1000, sim.Cash(), 1e-9)
}

// TestSim_InsufficientHoldingsRejected tests sell-side rejection
func TestSim_InsufficientHoldingsRejected(t *testing.T) {
	sim := NewSim(100000, 0.001)
	sim.MarkPrice("SPXL", 100)

	_, err := sim.Submit("SPXL", engine.SideSell, 10, engine.OrderMarket, 0)
	require.NoError(t, err)

	n := &recordingNotifier{}
	sim.Deliver(n)

	require.Len(t, n.rejects, 1)
	assert.Contains(t, n.rejects[0].reason, "insufficient holdings")
}

// TestSim_NoMarkPriceRejected tests orders on unpriced instruments
func TestSim_NoMarkPriceRejected(t *testing.T) {
	sim := NewSim(100000, 0.001)

	_, err := sim.Submit("TQQQ", engine.SideBuy, 10, engine.OrderMarket, 0)
	require.NoError(t, err)

	n := &recordingNotifier{}
	sim.Deliver(n)

	require.Len(t, n.rejects, 1)
	assert.Contains(t, n.rejects[0].reason, "no market price")
}

// TestSim_SubmitValidation tests order validation at submit time
func TestSim_SubmitValidation(t *testing.T) {
	sim := NewSim(100000, 0.001)
	sim.MarkPrice("SPXL", 100)

	_, err := sim.Submit("SPXL", engine.SideBuy, 0, engine.OrderMarket, 0)
	assert.Error(t, err)

	_, err = sim.Submit("SPXL", engine.SideBuy, -5, engine.OrderMarket, 0)
	assert.Error(t, err)

	_, err = sim.Submit("SPXL", engine.SideBuy, 10, engine.OrderLimit, 0)
	assert.Error(t, err)
}

// TestSim_LimitOrderMarketability tests that limit orders fill at the
// limit only when the mark has crossed it
func TestSim_LimitOrderMarketability(t *testing.T) {
	tests := []struct {
		name   string
		side   engine.Side
		mark   float64
		limit  float64
		filled bool
	}{
		{"buy limit above mark fills", engine.SideBuy, 90, 95, true},
		{"buy limit below mark rejected", engine.SideBuy, 100, 95, false},
		{"sell limit below mark fills", engine.SideSell, 110, 105, true},
		{"sell limit above mark rejected", engine.SideSell, 100, 105, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSim(100000, 0.001)
			sim.MarkPrice("SPXL", 100)
			if tt.side == engine.SideSell {
				// Seed holdings to sell.
				_, err := sim.Submit("SPXL", engine.SideBuy, 10, engine.OrderMarket, 0)
				require.NoError(t, err)
				sim.Deliver(&recordingNotifier{})
			}
			sim.MarkPrice("SPXL", tt.mark)

			_, err := sim.Submit("SPXL", tt.side, 10, engine.OrderLimit, tt.limit)
			require.NoError(t, err)

			n := &recordingNotifier{}
			sim.Deliver(n)

			if tt.filled {
				require.Len(t, n.fills, 1)
				assert.InDelta(t, tt.limit, n.fills[0].price, 1e-9)
			} else {
				require.Len(t, n.rejects, 1)
				assert.Contains(t, n.rejects[0].reason, "not marketable")
			}
		})
	}
}

// TestSim_DeliverDrainsQueue tests that each order settles exactly once
func TestSim_DeliverDrainsQueue(t *testing.T) {
	sim := NewSim(100000, 0)
	sim.MarkPrice("SPXL", 100)

	_, err := sim.Submit("SPXL", engine.SideBuy, 10, engine.OrderMarket, 0)
	require.NoError(t, err)

	n := &recordingNotifier{}
	sim.Deliver(n)
	sim.Deliver(n)

	assert.Len(t, n.fills, 1)
	assert.Empty(t, n.rejects)
}

// TestSim_ValueMarksToMarket tests portfolio valuation at current marks
func TestSim_ValueMarksToMarket(t *testing.T) {
	sim := NewSim(100000, 0)
	sim.MarkPrice("SPXL", 100)

	_, err := sim.Submit("SPXL", engine.SideBuy, 100, engine.OrderMarket, 0)
	require.NoError(t, err)
	sim.Deliver(&recordingNotifier{})

	assert.InDelta(t, 100000, sim.Value(), 1e-9)

	sim.MarkPrice("SPXL", 120)
	assert.InDelta(t, 102000, sim.Value(), 1e-9)
}
