package selfplay

import (
	"fmt"

	"managym/env"
	"managym/policy"
)

// externalOpponent is the engine-side label that leaves the opponent
// seat under local control.
const externalOpponent = "external"

// Config extends the base environment configuration with the self-play
// opponent mix.
type Config struct {
	Env            env.Config
	PoolSize       int
	Weights        Weights
	EngineOpponent string // engine bot used for the engine-native category
}

// Env is the self-play environment: a base session environment composed
// with opponent selection and turn coordination. A fresh opponent is
// drawn on every reset and fixed for that episode.
type Env struct {
	base        *env.BattleEnv
	pool        *Pool
	selector    *Selector
	coordinator *Coordinator

	engineOpponent string
	choice         Choice
}

// New wires a self-play environment. Selector options allow seeding the
// opponent draw in tests.
func New(cfg Config, options ...SelectorOption) (*Env, error) {
	if cfg.EngineOpponent == "" {
		cfg.EngineOpponent = "greedy"
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}

	base, err := env.New(cfg.Env)
	if err != nil {
		return nil, err
	}

	pool := NewPool(cfg.PoolSize)
	return &Env{
		base:           base,
		pool:           pool,
		selector:       NewSelector(pool, cfg.Weights, options...),
		coordinator:    NewCoordinator(base.Client(), base.Config().MaxActions*4),
		engineOpponent: cfg.EngineOpponent,
		choice:         Choice{Kind: KindEngineNative},
	}, nil
}

// Base exposes the composed session environment.
func (e *Env) Base() *env.BattleEnv {
	return e.base
}

// AddCheckpoint registers a checkpoint artifact as a candidate opponent.
func (e *Env) AddCheckpoint(path string) {
	e.pool.Add(path)
}

// PoolSize returns the current checkpoint pool size.
func (e *Env) PoolSize() int {
	return e.pool.Size()
}

// SetLivePolicy registers the live training policy as a candidate
// opponent.
func (e *Env) SetLivePolicy(p policy.Policy) {
	e.selector.SetLivePolicy(p)
}

// Opponent returns the category chosen for the current episode.
func (e *Env) Opponent() Kind {
	return e.choice.Kind
}

// Reset draws a new opponent and opens a fresh session against it. The
// session is always recreated rather than reset in place because the
// opponent type can change between episodes.
func (e *Env) Reset(seed *int64) ([]float64, env.Info, error) {
	e.choice = e.selector.Select()

	serverOpponent := e.engineOpponent
	if e.choice.External() {
		serverOpponent = externalOpponent
	}

	if err := e.base.NewSession(serverOpponent, seed); err != nil {
		return nil, env.Info{}, err
	}

	// The opponent may hold priority straight out of the opening hand.
	if e.choice.External() {
		if err := e.playOpponent(); err != nil {
			return nil, env.Info{}, err
		}
	}

	info := e.base.InfoSnapshot()
	info.Opponent = e.choice.Kind.String()
	return e.base.Observation(), info, nil
}

// Step submits the learner's action, then plays out any opponent
// priority window before returning control. For engine-native opponents
// the remote engine resolves the opponent seat itself and the
// coordinator is skipped entirely.
func (e *Env) Step(action int) (env.StepResult, error) {
	result, err := e.base.Step(action)
	if err != nil {
		return env.StepResult{}, err
	}

	if !result.Terminated && e.choice.External() {
		if err := e.playOpponent(); err != nil {
			return env.StepResult{}, err
		}
		state := e.base.State()
		result = env.StepResult{
			Observation: e.base.Observation(),
			Reward:      state.Reward,
			Terminated:  state.Done,
			Truncated:   state.Truncated,
			Info:        e.base.InfoSnapshot(),
		}
	}

	result.Info.Opponent = e.choice.Kind.String()
	return result, nil
}

// ActionMasks returns a copy of the learner's current legal-action mask.
func (e *Env) ActionMasks() []bool {
	return e.base.ActionMasks()
}

func (e *Env) playOpponent() error {
	state, err := e.coordinator.Run(e.base.GameID(), e.choice, e.base.Observation, e.base.State())
	if err != nil {
		return err
	}
	e.base.Sync(state)

	// The last exchange carried the opponent's mask; refresh the
	// player's before handing control back.
	if !state.Done {
		actions, err := e.base.Client().GetActions(e.base.GameID())
		if err != nil {
			return fmt.Errorf("failed to refresh player actions: %w", err)
		}
		state.ActionMask = actions.ActionMask
		e.base.Sync(state)
	}
	return nil
}

// Close releases the live session and any owned engine process.
func (e *Env) Close() {
	e.base.Close()
}
