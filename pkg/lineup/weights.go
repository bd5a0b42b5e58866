package lineup

import (
	"errors"
	"fmt"
	"sort"
)

// ErrWeightsMismatch is returned when a score set does not cover exactly the
// signals of a weight table.
var ErrWeightsMismatch = errors.New("weights and scores have different signals")

// Signal names one normalized input to the composite score.
type Signal string

const (
	SignalPopularity Signal = "z_popularity"
	SignalClout      Signal = "z_clout"
	SignalRecency    Signal = "z_recency"
	SignalAffinity   Signal = "z_affinity"
	SignalPlays      Signal = "z_plays30"
	SignalMomentum   Signal = "z_momentum"
	SignalDiversity  Signal = "z_diversity"
)

// Scores holds one candidate's normalized signals.
type Scores map[Signal]float64

// Weights is a composite weight table keyed by signal.
type Weights map[Signal]float64

var longTermWeights = Weights{
	SignalPopularity: 0.45,
	SignalClout:      0.25,
	SignalRecency:    0.20,
	SignalAffinity:   0.10,
}

var trailingWindowWeights = Weights{
	SignalPlays:      0.35,
	SignalMomentum:   0.20,
	SignalPopularity: 0.15,
	SignalClout:      0.10,
	SignalRecency:    0.10,
	SignalAffinity:   0.07,
	SignalDiversity:  0.03,
}

// LongTermWeights returns the weight table for all-time lineups.
func LongTermWeights() Weights { return longTermWeights.clone() }

// TrailingWindowWeights returns the weight table for windowed lineups.
func TrailingWindowWeights() Weights { return trailingWindowWeights.clone() }

// Apply returns the weighted sum of z. Signals are summed in name order so
// equal inputs always produce bit-identical scores.
func (w Weights) Apply(z Scores) (float64, error) {
	if len(w) != len(z) {
		return 0, fmt.Errorf("apply weights: %w: %d weights, %d scores", ErrWeightsMismatch, len(w), len(z))
	}

	var total float64
	for _, sig := range w.Signals() {
		v, ok := z[sig]
		if !ok {
			return 0, fmt.Errorf("apply weights: %w: missing %s", ErrWeightsMismatch, sig)
		}
		total += w[sig] * v
	}
	return total, nil
}

// Signals lists the table's signals sorted by name.
func (w Weights) Signals() []Signal {
	sigs := make([]Signal, 0, len(w))
	for s := range w {
		sigs = append(sigs, s)
	}
	sort.Slice(sigs, func(i, j int) bool { return sigs[i] < sigs[j] })
	return sigs
}

// Sum adds up the weights.
func (w Weights) Sum() float64 {
	var sum float64
	for _, sig := range w.Signals() {
		sum += w[sig]
	}
	return sum
}

func (w Weights) clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}
