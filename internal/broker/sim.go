package broker

import (
	"fmt"

	"github.com/ducminhle1904/pattern-cluster-bot/internal/engine"
)

// Notifier receives order outcomes. The engine implements it.
type Notifier interface {
	OnFill(orderID engine.OrderID, fillPrice, fillSize, commission float64)
	OnReject(orderID engine.OrderID, reason string)
}

type pendingOrder struct {
	id         engine.OrderID
	instrument string
	side       engine.Side
	size       float64
	kind       engine.OrderKind
	limitPrice float64
}

// Sim is the in-process broker simulation used by backtests: market
// orders fill at the instrument's current mark price, limit orders fill
// at the limit price when the mark has crossed it, both with a
// percentage commission, and cash is accounted per fill. Fill/reject notifications
// are queued on Submit and delivered by Deliver, which the backtest
// runner calls after each OnBar so notifications always arrive before
// the instrument's next bar.
type Sim struct {
	cash           float64
	commissionRate float64
	holdings       map[string]float64
	marks          map[string]float64
	pending        []pendingOrder
	nextID         engine.OrderID
}

// NewSim creates a simulated broker with the given starting cash and
// commission rate (0.001 = 0.1% per fill).
func NewSim(initialCash, commissionRate float64) *Sim {
	return &Sim{
		cash:           initialCash,
		commissionRate: commissionRate,
		holdings:       make(map[string]float64),
		marks:          make(map[string]float64),
	}
}

// MarkPrice updates the instrument's current price, used both to fill
// market orders and to value holdings.
func (s *Sim) MarkPrice(instrument string, price float64) {
	s.marks[instrument] = price
}

// Submit implements engine.Broker. The order is queued; the outcome is
// reported on the next Deliver.
func (s *Sim) Submit(instrument string, side engine.Side, size float64, kind engine.OrderKind, limitPrice float64) (engine.OrderID, error) {
	if size <= 0 {
		return 0, fmt.Errorf("invalid order size %.4f for %s", size, instrument)
	}
	if kind == engine.OrderLimit && limitPrice <= 0 {
		return 0, fmt.Errorf("limit order for %s requires a positive limit price", instrument)
	}

	s.nextID++
	s.pending = append(s.pending, pendingOrder{
		id:         s.nextID,
		instrument: instrument,
		side:       side,
		size:       size,
		kind:       kind,
		limitPrice: limitPrice,
	})
	return s.nextID, nil
}

// Deliver settles all queued orders and notifies their outcomes.
func (s *Sim) Deliver(n Notifier) {
	orders := s.pending
	s.pending = nil

	for _, o := range orders {
		price, ok := s.marks[o.instrument]
		if !ok || price <= 0 {
			n.OnReject(o.id, fmt.Sprintf("no market price for %s", o.instrument))
			continue
		}
		if o.kind == engine.OrderLimit {
			// Everything settles at delivery, so a limit the mark has
			// not crossed is rejected rather than left resting.
			marketable := (o.side == engine.SideBuy && price <= o.limitPrice) ||
				(o.side == engine.SideSell && price >= o.limitPrice)
			if !marketable {
				n.OnReject(o.id, fmt.Sprintf("limit %.2f for %s not marketable at %.2f", o.limitPrice, o.instrument, price))
				continue
			}
			price = o.limitPrice
		}

		switch o.side {
		case engine.SideBuy:
			cost := o.size * price
			commission := cost * s.commissionRate
			if cost+commission > s.cash {
				n.OnReject(o.id, fmt.Sprintf("insufficient cash: need %.2f, have %.2f", cost+commission, s.cash))
				continue
			}
			s.cash -= cost + commission
			s.holdings[o.instrument] += o.size
			n.OnFill(o.id, price, o.size, commission)

		case engine.SideSell:
			held := s.holdings[o.instrument]
			if o.size > held {
				n.OnReject(o.id, fmt.Sprintf("insufficient holdings: selling %.0f, have %.0f", o.size, held))
				continue
			}
			proceeds := o.size * price
			commission := proceeds * s.commissionRate
			s.cash += proceeds - commission
			s.holdings[o.instrument] -= o.size
			n.OnFill(o.id, price, o.size, commission)
		}
	}
}

// Value implements engine.Portfolio: cash plus holdings at marks.
func (s *Sim) Value() float64 {
	value := s.cash
	for instrument, size := range s.holdings {
		value += size * s.marks[instrument]
	}
	return value
}

// Cash returns the uninvested cash balance.
func (s *Sim) Cash() float64 {
	return s.cash
}

// Holdings returns the share count held for an instrument.
func (s *Sim) Holdings(instrument string) float64 {
	return s.holdings[instrument]
}
