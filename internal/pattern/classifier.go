package pattern

import (
	"github.com/ducminhle1904/pattern-cluster-bot/internal/cluster"
)

// Classifier maps a feature snapshot to a cluster id. Implementations
// must be deterministic and total: every input yields exactly one id
// in [0, NumClusters).
type Classifier interface {
	Classify(f Features) cluster.ID
}

// RuleClassifier is the rule-based stand-in for the trained K-means
// model. It evaluates an ordered cascade of overlapping predicates and
// returns on the first match, so rule order is part of the contract:
// swapping two rules changes classification outcomes.
type RuleClassifier struct{}

// NewRuleClassifier returns the reference rule classifier.
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// Classify implements Classifier.
func (c *RuleClassifier) Classify(f Features) cluster.ID {
	switch {
	case f.Total4DayReturn > 15: // explosive gain
		return 6
	case f.Total4DayReturn < -10: // crash
		return 4
	case f.Total4DayReturn < -4 && f.Volatility > 3: // sharp drop
		return 3
	case f.AvgDailyReturn > 2 && f.Volatility < 3 && f.TrendDirection > 0: // steady uptrend
		return 1
	case f.AvgDailyReturn > 0.5 && f.Volatility < 2 && f.TrendDirection > 0: // small steady gain
		return 9
	case f.Total4DayReturn < 0 && f.Volatility < 2.5: // gradual decline
		return 5
	case f.Volatility > 4 && f.Total4DayReturn > 0: // volatile recovery
		if f.Day1Return < -3 {
			return 8
		}
		return 2
	case f.Total4DayReturn < -3 && f.Volatility > 3: // sharp decline
		return 0
	default: // neutral
		return 5
	}
}
