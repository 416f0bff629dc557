package policy

import (
	"golang.org/x/exp/rand"
)

// Random plays uniformly among legal actions. It doubles as the safety
// net when a stronger opponent fails to produce a move.
type Random struct {
	rng *rand.Rand
}

// NewRandom returns a uniform-random policy. A nil source seeds from the
// global generator.
func NewRandom(source rand.Source) *Random {
	if source == nil {
		source = rand.NewSource(rand.Uint64())
	}
	return &Random{rng: rand.New(source)}
}

func (r *Random) Predict(obs []float64, mask []bool) (int, error) {
	legal := LegalActions(mask)
	if len(legal) == 0 {
		return 0, ErrNoLegalActions
	}
	return legal[r.rng.Intn(len(legal))], nil
}
