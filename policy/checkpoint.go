package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"golang.org/x/exp/rand"
)

// CurrentCheckpointVersion is bumped whenever the artifact layout changes.
const CurrentCheckpointVersion = 1

// ErrVersionMismatch is returned when an artifact was written by an
// incompatible serializer version.
var ErrVersionMismatch = errors.New("checkpoint version mismatch")

// Checkpoint is a serialized past version of the learner's policy: a
// linear scorer over the observation features, one weight row per action.
// It is strong enough to act as a stationary practice opponent while the
// real network stays in the external trainer.
type Checkpoint struct {
	Version    int         `json:"version"`
	ObsSize    int         `json:"obsSize"`
	MaxActions int         `json:"maxActions"`
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`

	rng *rand.Rand
}

// NewCheckpoint allocates a zero-weight checkpoint with the given shape.
func NewCheckpoint(obsSize, maxActions int) *Checkpoint {
	weights := make([][]float64, maxActions)
	for i := range weights {
		weights[i] = make([]float64, obsSize)
	}
	return &Checkpoint{
		Version:    CurrentCheckpointVersion,
		ObsSize:    obsSize,
		MaxActions: maxActions,
		Weights:    weights,
		Bias:       make([]float64, maxActions),
	}
}

// Load reads and validates a checkpoint artifact.
func Load(path string) (*Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", path, err)
	}
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", path, err)
	}
	if cp.Version != CurrentCheckpointVersion {
		return nil, fmt.Errorf("checkpoint %s has version %d: %w", path, cp.Version, ErrVersionMismatch)
	}
	if len(cp.Weights) != cp.MaxActions || len(cp.Bias) != cp.MaxActions {
		return nil, fmt.Errorf("checkpoint %s has inconsistent shape", path)
	}
	return &cp, nil
}

// Save writes the artifact to path.
func (c *Checkpoint) Save(path string) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint %s: %w", path, err)
	}
	return nil
}

// Seed fixes the sampling source, for reproducible play.
func (c *Checkpoint) Seed(seed uint64) {
	c.rng = rand.New(rand.NewSource(seed))
}

// Predict scores every legal action and samples from the masked softmax
// over those scores.
func (c *Checkpoint) Predict(obs []float64, mask []bool) (int, error) {
	legal := LegalActions(mask)
	if len(legal) == 0 {
		return 0, ErrNoLegalActions
	}

	actions := make([]int, 0, len(legal))
	logits := make([]float64, 0, len(legal))
	for _, action := range legal {
		if action >= len(c.Weights) {
			continue
		}
		score := c.Bias[action]
		row := c.Weights[action]
		for i, v := range obs {
			if i >= len(row) {
				break
			}
			score += row[i] * v
		}
		actions = append(actions, action)
		logits = append(logits, score)
	}
	if len(actions) == 0 {
		return legal[0], nil
	}

	return c.sample(actions, softmax(logits)), nil
}

func softmax(logits []float64) []float64 {
	max := math.Inf(-1)
	for _, score := range logits {
		if score > max {
			max = score
		}
	}

	sum := 0.0
	probs := make([]float64, len(logits))
	for i, score := range logits {
		p := math.Exp(score - max)
		sum += p
		probs[i] = p
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// sample draws by cumulative probability in ascending action order, so a
// fixed seed reproduces the same draw sequence.
func (c *Checkpoint) sample(actions []int, probs []float64) int {
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(rand.Uint64()))
	}
	sampled := c.rng.Float64()
	cumulative := 0.0
	for i, prob := range probs {
		cumulative += prob
		if sampled < cumulative {
			return actions[i]
		}
	}
	return actions[len(actions)-1] // Fallback in case of rounding errors
}
