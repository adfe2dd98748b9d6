package cluster

// ID identifies one of the ten behavioral price-pattern clusters
// discovered by the offline training run. It is consumed here as an
// opaque key.
type ID int

// NumClusters is the fixed cluster cardinality.
const NumClusters = 10

// Signal is the trading signal associated with a cluster.
type Signal int

const (
	SignalHold Signal = iota
	SignalBuy
	SignalSell
)

func (s Signal) String() string {
	switch s {
	case SignalHold:
		return "HOLD"
	case SignalBuy:
		return "BUY"
	case SignalSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Profile holds the historical performance summary of one cluster:
// its signal, how reliable that signal has been, and the average
// 4-day return observed after the pattern.
type Profile struct {
	Signal         Signal
	Confidence     float64
	ExpectedReturn float64
}

// defaultProfile is the conservative stand-in used when statistics are
// unavailable or an ID falls outside the trained range.
var defaultProfile = Profile{Signal: SignalHold, Confidence: 0.5}

// Table maps cluster ids to their profiles. It is immutable after
// construction and safe for concurrent reads.
type Table struct {
	profiles [NumClusters]Profile
}

// NewTable builds a table from the given profiles. Ids outside [0,9]
// are ignored; missing ids fall back to the conservative default.
func NewTable(profiles map[ID]Profile) *Table {
	t := &Table{}
	for i := range t.profiles {
		t.profiles[i] = defaultProfile
	}
	for id, p := range profiles {
		if id < 0 || id >= NumClusters {
			continue
		}
		t.profiles[id] = p
	}
	return t
}

// DefaultTable returns the conservative fallback table: HOLD with 0.5
// confidence for every cluster.
func DefaultTable() *Table {
	return NewTable(nil)
}

// Lookup returns the profile for the given cluster id. Out-of-range ids
// resolve to the conservative default profile.
func (t *Table) Lookup(id ID) Profile {
	if id < 0 || id >= NumClusters {
		return defaultProfile
	}
	return t.profiles[id]
}

// Source supplies cluster statistics from external storage. A failed
// Load is a recoverable degradation: callers substitute DefaultTable
// and continue.
type Source interface {
	Load() (map[ID]Profile, error)
}

// LoadTable builds a table from the source. On failure it returns the
// conservative default table together with the load error so the caller
// can log the degradation; the returned table is never nil.
func LoadTable(src Source) (*Table, error) {
	profiles, err := src.Load()
	if err != nil {
		return DefaultTable(), err
	}
	return NewTable(profiles), nil
}
