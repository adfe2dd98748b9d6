package cluster

// referenceProfiles are the hand-tuned signal, confidence, and expected
// 4-day return constants derived from the offline clustering run over
// the SPXL history. Confidence blends win rate, sample size, and the
// magnitude of the average return.
var referenceProfiles = map[ID]Profile{
	0: {Signal: SignalSell, Confidence: 0.75, ExpectedReturn: -4.49},
	1: {Signal: SignalBuy, Confidence: 0.95, ExpectedReturn: 7.80},
	2: {Signal: SignalHold, Confidence: 0.65, ExpectedReturn: 3.59},
	3: {Signal: SignalSell, Confidence: 0.85, ExpectedReturn: -5.93},
	4: {Signal: SignalSell, Confidence: 0.95, ExpectedReturn: -13.79},
	5: {Signal: SignalHold, Confidence: 0.55, ExpectedReturn: -2.87},
	6: {Signal: SignalBuy, Confidence: 0.90, ExpectedReturn: 23.50},
	7: {Signal: SignalBuy, Confidence: 0.80, ExpectedReturn: 5.91},
	8: {Signal: SignalHold, Confidence: 0.65, ExpectedReturn: 2.67},
	9: {Signal: SignalBuy, Confidence: 0.95, ExpectedReturn: 2.80},
}

// ReferenceTable returns the table of trained cluster profiles.
func ReferenceTable() *Table {
	return NewTable(referenceProfiles)
}

// StaticSource serves the compiled-in reference profiles. It never
// fails and is the source of last resort before the conservative
// default.
type StaticSource struct{}

// Load implements Source.
func (StaticSource) Load() (map[ID]Profile, error) {
	out := make(map[ID]Profile, len(referenceProfiles))
	for id, p := range referenceProfiles {
		out[id] = p
	}
	return out, nil
}
