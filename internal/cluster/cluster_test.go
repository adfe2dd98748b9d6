package cluster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultTable_ConservativeProfiles tests the fallback table
func TestDefaultTable_ConservativeProfiles(t *testing.T) {
	table := DefaultTable()

	for id := ID(0); id < NumClusters; id++ {
		p := table.Lookup(id)
		assert.Equal(t, SignalHold, p.Signal)
		assert.Equal(t, 0.5, p.Confidence)
		assert.Equal(t, 0.0, p.ExpectedReturn)
	}
}

// TestTable_LookupOutOfRange tests that unknown ids degrade safely
func TestTable_LookupOutOfRange(t *testing.T) {
	table := ReferenceTable()

	for _, id := range []ID{-1, NumClusters, 42} {
		p := table.Lookup(id)
		assert.Equal(t, SignalHold, p.Signal)
		assert.Equal(t, 0.5, p.Confidence)
	}
}

// TestNewTable_IgnoresOutOfRangeIds tests table construction
func TestNewTable_IgnoresOutOfRangeIds(t *testing.T) {
	table := NewTable(map[ID]Profile{
		3:  {Signal: SignalBuy, Confidence: 0.9},
		-1: {Signal: SignalSell, Confidence: 0.9},
		10: {Signal: SignalSell, Confidence: 0.9},
	})

	assert.Equal(t, SignalBuy, table.Lookup(3).Signal)
	assert.Equal(t, SignalHold, table.Lookup(0).Signal)
}

// TestReferenceTable_Profiles tests the trained constants
func TestReferenceTable_Profiles(t *testing.T) {
	table := ReferenceTable()

	for id := ID(0); id < NumClusters; id++ {
		p := table.Lookup(id)
		assert.GreaterOrEqual(t, p.Confidence, 0.0)
		assert.LessOrEqual(t, p.Confidence, 1.0)
	}

	// Spot checks against the training run.
	assert.Equal(t, Profile{Signal: SignalBuy, Confidence: 0.90, ExpectedReturn: 23.50}, table.Lookup(6))
	assert.Equal(t, Profile{Signal: SignalSell, Confidence: 0.95, ExpectedReturn: -13.79}, table.Lookup(4))
	assert.Equal(t, Profile{Signal: SignalHold, Confidence: 0.55, ExpectedReturn: -2.87}, table.Lookup(5))
}

type failingSource struct{}

func (failingSource) Load() (map[ID]Profile, error) {
	return nil, errors.New("statistics table missing")
}

// TestLoadTable_FallsBackOnError tests the degraded-load path
func TestLoadTable_FallsBackOnError(t *testing.T) {
	table, err := LoadTable(failingSource{})

	require.Error(t, err)
	require.NotNil(t, table)
	assert.Equal(t, SignalHold, table.Lookup(6).Signal)
	assert.Equal(t, 0.5, table.Lookup(6).Confidence)
}

// TestLoadTable_StaticSource tests the compiled-in source
func TestLoadTable_StaticSource(t *testing.T) {
	table, err := LoadTable(StaticSource{})

	require.NoError(t, err)
	assert.Equal(t, SignalBuy, table.Lookup(1).Signal)
}

// TestSignal_String tests the signal labels
func TestSignal_String(t *testing.T) {
	assert.Equal(t, "HOLD", SignalHold.String())
	assert.Equal(t, "BUY", SignalBuy.String())
	assert.Equal(t, "SELL", SignalSell.String())
	assert.Equal(t, "UNKNOWN", Signal(99).String())
}
