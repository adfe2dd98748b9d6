package pattern

import (
	"fmt"
	"math"
)

const (
	// ClassifyLookback is the number of trailing daily returns a
	// classification needs.
	ClassifyLookback = 4

	// DefaultCapacity is the default rolling window capacity.
	DefaultCapacity = 10
)

// InvalidPriceError reports a non-positive close price. The window is
// left unmodified when it is returned.
type InvalidPriceError struct {
	Price float64
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid price %.4f: close must be positive", e.Price)
}

// Window maintains the most recent daily closes and percentage returns
// for a single instrument. It is owned exclusively by that instrument's
// engine state and is not safe for concurrent use.
type Window struct {
	capacity int
	prices   []float64
	returns  []float64
}

// NewWindow creates a rolling window with the given capacity. Capacities
// below the classification lookback are raised to the lookback.
func NewWindow(capacity int) *Window {
	if capacity < ClassifyLookback {
		capacity = ClassifyLookback
	}
	return &Window{
		capacity: capacity,
		prices:   make([]float64, 0, capacity),
		returns:  make([]float64, 0, capacity),
	}
}

// Update appends the newest close. The first bar seeds the window with a
// 0.0 return; subsequent bars record (new/last - 1) * 100. Once the
// window exceeds its capacity the oldest entry is evicted.
func (w *Window) Update(close float64) error {
	if close <= 0 || math.IsNaN(close) || math.IsInf(close, 0) {
		return &InvalidPriceError{Price: close}
	}

	if len(w.prices) == 0 {
		w.prices = append(w.prices, close)
		w.returns = append(w.returns, 0.0)
		return nil
	}

	last := w.prices[len(w.prices)-1]
	dailyReturn := (close/last - 1) * 100

	w.prices = append(w.prices, close)
	w.returns = append(w.returns, dailyReturn)

	if len(w.prices) > w.capacity {
		w.prices = w.prices[len(w.prices)-w.capacity:]
		w.returns = w.returns[len(w.returns)-w.capacity:]
	}
	return nil
}

// Len returns the number of returns currently held.
func (w *Window) Len() int {
	return len(w.returns)
}

// Features computes the pattern feature snapshot from the last four
// returns and their price levels. It reports false while fewer than four
// returns are available.
func (w *Window) Features() (Features, bool) {
	if len(w.returns) < ClassifyLookback {
		return Features{}, false
	}

	returns := w.returns[len(w.returns)-ClassifyLookback:]
	prices := w.prices[len(w.prices)-ClassifyLookback:]

	f := Features{
		Day1Return:      returns[0],
		Day2Return:      returns[1],
		Day3Return:      returns[2],
		Day4Return:      returns[3],
		Total4DayReturn: (prices[ClassifyLookback-1]/prices[0] - 1) * 100,
		MaxReturn:       returns[0],
		MinReturn:       returns[0],
		TrendDirection:  -1,
	}
	if prices[ClassifyLookback-1] > prices[0] {
		f.TrendDirection = 1
	}

	var sum float64
	for _, r := range returns {
		sum += r
		if r > f.MaxReturn {
			f.MaxReturn = r
		}
		if r < f.MinReturn {
			f.MinReturn = r
		}
	}
	f.AvgDailyReturn = sum / ClassifyLookback

	var sq float64
	for _, r := range returns {
		d := r - f.AvgDailyReturn
		sq += d * d
	}
	f.Volatility = math.Sqrt(sq / ClassifyLookback)

	return f, true
}

// Features is the value-type snapshot the classifier consumes. It is
// recomputed on demand and never persisted.
type Features struct {
	Day1Return      float64
	Day2Return      float64
	Day3Return      float64
	Day4Return      float64
	Total4DayReturn float64
	AvgDailyReturn  float64
	Volatility      float64
	MaxReturn       float64
	MinReturn       float64
	TrendDirection  int
}
