package selfplay

import (
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/rand"

	"managym/policy"
)

// Kind tags an opponent category.
type Kind int

const (
	KindCheckpoint Kind = iota
	KindEngineNative
	KindLivePolicy
	KindRandom
)

func (k Kind) String() string {
	switch k {
	case KindCheckpoint:
		return "checkpoint"
	case KindEngineNative:
		return "engine-native"
	case KindLivePolicy:
		return "live-policy"
	default:
		return "random"
	}
}

// Weights is the declarative opponent distribution. Values need not sum
// to one; categories that are unavailable in a given draw are zeroed and
// the remainder renormalizes implicitly through interval sampling.
type Weights struct {
	Checkpoint   float64
	EngineNative float64
	LivePolicy   float64
	Random       float64
}

// DefaultWeights mixes historical checkpoints, the engine bot, the live
// policy and exploration noise.
func DefaultWeights() Weights {
	return Weights{Checkpoint: 0.3, EngineNative: 0.3, LivePolicy: 0.2, Random: 0.2}
}

// Choice is the opponent picked for one episode. External choices carry
// the policy that computes the opponent's moves locally; engine-native
// choices are played entirely inside the remote engine.
type Choice struct {
	Kind           Kind
	CheckpointPath string
	Policy         policy.Policy
}

// External reports whether this opponent's moves must be computed locally.
func (c Choice) External() bool {
	return c.Kind != KindEngineNative
}

// Loader turns a checkpoint artifact into a playable policy. A nil
// loader means the capability is absent and checkpoint/live-policy
// categories cannot be used at all.
type Loader func(path string) (policy.Policy, error)

// DefaultLoader loads the serialized linear-policy artifact.
func DefaultLoader(path string) (policy.Policy, error) {
	return policy.Load(path)
}

// Selector draws one opponent per episode from the weight table. The
// draw-to-category mapping iterates categories in fixed declaration
// order, so it is deterministic given the random value.
type Selector struct {
	weights Weights
	pool    *Pool
	live    policy.Policy
	loader  Loader
	rng     *rand.Rand
}

type SelectorOption func(s *Selector)

// WithLoader replaces (or, with nil, removes) the checkpoint-loading
// capability.
func WithLoader(loader Loader) SelectorOption {
	return func(s *Selector) {
		s.loader = loader
	}
}

// WithRandSource fixes the selection source, for reproducible draws.
func WithRandSource(source rand.Source) SelectorOption {
	return func(s *Selector) {
		if source != nil {
			s.rng = rand.New(source)
		}
	}
}

func NewSelector(pool *Pool, weights Weights, options ...SelectorOption) *Selector {
	s := &Selector{
		weights: weights,
		pool:    pool,
		loader:  DefaultLoader,
		rng:     rand.New(rand.NewSource(rand.Uint64())),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// SetLivePolicy registers (or clears) the live training policy reference.
func (s *Selector) SetLivePolicy(p policy.Policy) {
	s.live = p
}

// Select draws the opponent for the next episode. It never fails: when
// every category is unavailable it falls back to the engine-native bot,
// which needs no local inference.
func (s *Selector) Select() Choice {
	w := s.weights
	if s.pool.Size() == 0 {
		w.Checkpoint = 0
	}
	if s.live == nil {
		w.LivePolicy = 0
	}
	if s.loader == nil {
		w.Checkpoint = 0
		w.LivePolicy = 0
	}

	total := w.Checkpoint + w.EngineNative + w.LivePolicy + w.Random
	if total == 0 {
		return Choice{Kind: KindEngineNative}
	}

	roll := s.rng.Float64() * total
	cumulative := 0.0

	if cumulative += w.Checkpoint; roll < cumulative {
		return s.pickCheckpoint()
	}
	if cumulative += w.EngineNative; roll < cumulative {
		return Choice{Kind: KindEngineNative}
	}
	if cumulative += w.LivePolicy; roll < cumulative {
		return Choice{Kind: KindLivePolicy, Policy: s.live}
	}
	return Choice{Kind: KindRandom, Policy: policy.NewRandom(rand.NewSource(s.rng.Uint64()))}
}

func (s *Selector) pickCheckpoint() Choice {
	entries := s.pool.Entries()
	path := entries[s.rng.Intn(len(entries))]

	p, err := s.loader(path)
	if err != nil {
		// The pool entry stays; only this episode degrades.
		log.Warn().Err(err).Str("checkpoint", path).
			Msg("failed to load checkpoint, falling back to engine bot")
		return Choice{Kind: KindEngineNative}
	}
	return Choice{Kind: KindCheckpoint, CheckpointPath: path, Policy: p}
}
