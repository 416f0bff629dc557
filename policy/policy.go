// Package policy defines the local move-computation side of self-play:
// anything that can turn an observation and a legal-action mask into an
// action index. The gradient-based learner itself lives outside this
// repository; it plugs in through the same interface.
package policy

import "errors"

// Policy computes an action index for the current observation. The index
// must be legal under mask; implementations return an error instead of
// guessing when they cannot.
type Policy interface {
	Predict(obs []float64, mask []bool) (int, error)
}

// ErrNoLegalActions is returned when the mask admits no action at all.
var ErrNoLegalActions = errors.New("no legal actions available")

// LegalActions returns the indices the mask admits.
func LegalActions(mask []bool) []int {
	var legal []int
	for i, ok := range mask {
		if ok {
			legal = append(legal, i)
		}
	}
	return legal
}
