package storage

import "github.com/ducminhle1904/pattern-cluster-bot/internal/engine"

// NoopRecorder is a no-op trade recorder used when SQLite persistence
// is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Record(_ engine.TradeRecord) error { return nil }
