package data

import (
	"github.com/ducminhle1904/pattern-cluster-bot/pkg/types"
)

// Provider loads historical daily bars for one instrument.
type Provider interface {
	// LoadBars loads all bars for the given symbol, oldest first.
	LoadBars(symbol string) ([]types.Bar, error)

	// GetName returns the name of the data provider.
	GetName() string
}
