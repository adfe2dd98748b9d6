package risk

import (
	"math"

	"github.com/ducminhle1904/pattern-cluster-bot/internal/cluster"
)

// Parameters are the sizing and risk limits assigned to a position at
// entry. They are frozen for the life of that position.
type Parameters struct {
	PositionSizeFraction float64
	StopLossFraction     float64
	TakeProfitFraction   float64
	MaxHoldDays          int
}

// Parameterizer converts a cluster signal's confidence into position
// size and risk limits. All fractions are decimals (0.12 = 12%).
type Parameterizer struct {
	minConfidence   float64
	baseSize        float64
	maxSize         float64
	baseStopLoss    float64
	baseTakeProfit  float64
	baseMaxHoldDays int
	table           *cluster.Table
}

// NewParameterizer builds a parameterizer over the given cluster table.
func NewParameterizer(minConfidence, baseSize, maxSize, baseStopLoss, baseTakeProfit float64, baseMaxHoldDays int, table *cluster.Table) *Parameterizer {
	return &Parameterizer{
		minConfidence:   minConfidence,
		baseSize:        baseSize,
		maxSize:         maxSize,
		baseStopLoss:    baseStopLoss,
		baseTakeProfit:  baseTakeProfit,
		baseMaxHoldDays: baseMaxHoldDays,
		table:           table,
	}
}

// Parameterize computes the position size fraction and risk limits for
// a trade entered at the given confidence on the given cluster.
func (p *Parameterizer) Parameterize(confidence float64, id cluster.ID) Parameters {
	expected := p.table.Lookup(id).ExpectedReturn

	return Parameters{
		PositionSizeFraction: p.positionSize(confidence, expected),
		StopLossFraction:     p.stopLoss(confidence),
		TakeProfitFraction:   p.takeProfit(confidence, expected),
		MaxHoldDays:          p.maxHoldDays(confidence, expected),
	}
}

// positionSize interpolates linearly between the base and max fractions
// over [minConfidence, 1], then boosts for large expected moves.
func (p *Parameterizer) positionSize(confidence, expected float64) float64 {
	factor := (confidence - p.minConfidence) / (1.0 - p.minConfidence)
	size := p.baseSize + (p.maxSize-p.baseSize)*factor

	magnitude := math.Abs(expected)
	if magnitude > 15 {
		size = math.Min(size*1.2, p.maxSize)
	} else if magnitude > 7 {
		size = math.Min(size*1.1, p.maxSize)
	}

	return math.Min(math.Max(size, p.baseSize), p.maxSize)
}

func (p *Parameterizer) stopLoss(confidence float64) float64 {
	switch {
	case confidence >= 0.9:
		return p.baseStopLoss * 1.5 // brief room: very high conviction
	case confidence >= 0.8:
		return p.baseStopLoss * 1.25
	case confidence >= 0.7:
		return p.baseStopLoss
	default:
		return p.baseStopLoss * 0.8 // tighter stop at low conviction
	}
}

func (p *Parameterizer) takeProfit(confidence, expected float64) float64 {
	var tp float64
	switch {
	case confidence >= 0.9:
		tp = p.baseTakeProfit * 1.8
	case confidence >= 0.8:
		tp = p.baseTakeProfit * 1.4
	case confidence >= 0.7:
		tp = p.baseTakeProfit * 1.2
	default:
		tp = p.baseTakeProfit
	}

	if expected > 15 {
		tp *= 1.5
	} else if expected > 7 {
		tp *= 1.2
	}
	return tp
}

func (p *Parameterizer) maxHoldDays(confidence, expected float64) int {
	days := float64(p.baseMaxHoldDays)
	switch {
	case confidence >= 0.9:
		days *= 1.5
	case confidence >= 0.8:
		days *= 1.2
	case confidence >= 0.7:
		// base holding period
	default:
		days *= 0.7
	}

	if expected > 15 {
		days *= 1.3
	} else if expected > 7 {
		days *= 1.1
	}
	return int(days)
}
