package data

import (
	"github.com/ducminhle1904/pattern-cluster-bot/internal/storage"
	"github.com/ducminhle1904/pattern-cluster-bot/pkg/types"
)

// SQLiteProvider loads daily bars from the backtest database's
// historical data table.
type SQLiteProvider struct {
	store *storage.Store
}

// NewSQLiteProvider creates a provider over an open store.
func NewSQLiteProvider(store *storage.Store) *SQLiteProvider {
	return &SQLiteProvider{store: store}
}

// GetName returns the name of the data provider.
func (p *SQLiteProvider) GetName() string {
	return "SQLite Provider"
}

// LoadBars loads all bars for the symbol, oldest first.
func (p *SQLiteProvider) LoadBars(symbol string) ([]types.Bar, error) {
	return p.store.Bars(symbol)
}
