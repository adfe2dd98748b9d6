package types

import "time"

// Bar is a single daily OHLCV bar for one instrument.
// Bars are immutable once ingested and must arrive in strictly
// ascending date order per instrument.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
