// Package env exposes the remote card-game engine as a step/reset
// environment for reinforcement learning. It owns exactly one live game
// session at a time and guarantees its outputs stay within the declared
// observation and action contracts no matter what the engine returns.
package env

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"managym/bridge"
)

// Observation/action contract defaults, matching the engine's self-play
// feature vector.
const (
	ObservationSize = 36
	MaxActions      = 200
	ObsLow          = -1.0
	ObsHigh         = 2.0

	// LossReward is the synthetic terminal reward when the learner is
	// stuck with no legal action.
	LossReward = -1.0
)

// Config describes one environment instance. Zero values fall back to
// the package defaults.
type Config struct {
	Opponent        string // engine bot label for plain (non self-play) use
	Deck            string
	OpponentDeck    string
	ServerURL       string
	AutoStartServer bool
	ServerPath      string // optional engine entry point override

	ObservationSize int
	MaxActions      int
	ObsLow          float64
	ObsHigh         float64
}

func (c *Config) fillDefaults() {
	if c.Opponent == "" {
		c.Opponent = "greedy"
	}
	if c.Deck == "" {
		c.Deck = "random"
	}
	if c.OpponentDeck == "" {
		c.OpponentDeck = "random"
	}
	if c.ServerURL == "" {
		c.ServerURL = fmt.Sprintf("http://localhost:%d", bridge.DefaultPort)
	}
	if c.ObservationSize == 0 {
		c.ObservationSize = ObservationSize
	}
	if c.MaxActions == 0 {
		c.MaxActions = MaxActions
	}
	if c.ObsLow == 0 && c.ObsHigh == 0 {
		c.ObsLow = ObsLow
		c.ObsHigh = ObsHigh
	}
}

// Info accompanies every observation.
type Info struct {
	Turn            int
	Phase           string
	PriorityPlayer  string
	NumLegalActions int
	Opponent        string
}

// StepResult is one environment transition.
type StepResult struct {
	Observation []float64
	Reward      float64
	Terminated  bool
	Truncated   bool
	Info        Info
}

// BattleEnv is the base session-management environment: create, step,
// reset, delete against the remote engine, plus action validation and
// observation sanitization. Self-play orchestration composes around it
// rather than subclassing it.
type BattleEnv struct {
	cfg     Config
	client  *bridge.Client
	process *bridge.Process

	gameID string
	state  bridge.GameState
	mask   []bool
	closed bool
}

// New builds an environment against cfg.ServerURL, spawning the engine
// process first when AutoStartServer is set. A failed startup is fatal.
func New(cfg Config) (*BattleEnv, error) {
	cfg.fillDefaults()
	host, port := bridge.ParseServerURL(cfg.ServerURL)
	client := bridge.NewClient(host, port)

	e := &BattleEnv{
		cfg:    cfg,
		client: client,
		mask:   make([]bool, cfg.MaxActions),
	}

	if cfg.AutoStartServer {
		e.process = bridge.NewProcess(client, port, bridge.WithServerPath(cfg.ServerPath))
		if err := e.process.EnsureRunning(); err != nil {
			return nil, fmt.Errorf("failed to ensure engine server: %w", err)
		}
	}
	return e, nil
}

// Client exposes the underlying request client to composing orchestration.
func (e *BattleEnv) Client() *bridge.Client {
	return e.client
}

// Config returns the resolved environment configuration.
func (e *BattleEnv) Config() Config {
	return e.cfg
}

// GameID returns the live session id, empty when no session is open.
func (e *BattleEnv) GameID() string {
	return e.gameID
}

// Reset starts (or restarts) an episode against the configured opponent.
func (e *BattleEnv) Reset(seed *int64) ([]float64, Info, error) {
	return e.ResetAgainst(e.cfg.Opponent, seed)
}

// ResetAgainst starts an episode against the given engine opponent label.
// The first call creates a session; later calls reset it in place.
func (e *BattleEnv) ResetAgainst(opponent string, seed *int64) ([]float64, Info, error) {
	if e.closed {
		return nil, Info{}, fmt.Errorf("environment is closed")
	}

	var state bridge.GameState
	var err error
	if e.gameID == "" {
		state, err = e.client.CreateGame(bridge.CreateGameRequest{
			Opponent:     opponent,
			Deck:         e.cfg.Deck,
			OpponentDeck: e.cfg.OpponentDeck,
			Seed:         seed,
		})
		if err != nil {
			return nil, Info{}, fmt.Errorf("failed to create game: %w", err)
		}
		e.gameID = state.GameID
	} else {
		state, err = e.client.Reset(e.gameID, seed)
		if err != nil {
			return nil, Info{}, fmt.Errorf("failed to reset game %s: %w", e.gameID, err)
		}
	}

	e.Sync(state)
	return e.Observation(), e.InfoSnapshot(), nil
}

// NewSession discards any live session and creates a fresh one against
// opponent. Deleting the stale session is best-effort; its id is never
// reused.
func (e *BattleEnv) NewSession(opponent string, seed *int64) error {
	if e.closed {
		return fmt.Errorf("environment is closed")
	}
	e.discardSession()

	state, err := e.client.CreateGame(bridge.CreateGameRequest{
		Opponent:     opponent,
		Deck:         e.cfg.Deck,
		OpponentDeck: e.cfg.OpponentDeck,
		Seed:         seed,
	})
	if err != nil {
		return fmt.Errorf("failed to create game: %w", err)
	}
	e.gameID = state.GameID
	e.Sync(state)
	return nil
}

// Step validates the action against the last observed mask, submits it,
// and returns the sanitized transition. An illegal index degrades to the
// first legal action; with no legal action at all the episode ends
// locally as a loss without touching the engine.
func (e *BattleEnv) Step(action int) (StepResult, error) {
	if e.gameID == "" {
		return StepResult{}, fmt.Errorf("no active game: call Reset first")
	}

	if action < 0 || action >= len(e.mask) || !e.mask[action] {
		fallback := FirstLegal(e.mask)
		if fallback < 0 {
			// Stuck state: resolve locally as a terminal loss.
			return StepResult{
				Observation: e.Observation(),
				Reward:      LossReward,
				Terminated:  true,
				Truncated:   false,
				Info:        e.InfoSnapshot(),
			}, nil
		}
		log.Debug().Int("action", action).Int("fallback", fallback).
			Msg("illegal action substituted")
		action = fallback
	}

	state, err := e.client.Step(e.gameID, action)
	if err != nil {
		return StepResult{}, fmt.Errorf("failed to step game %s: %w", e.gameID, err)
	}
	e.Sync(state)

	return StepResult{
		Observation: e.Observation(),
		Reward:      state.Reward,
		Terminated:  state.Done,
		Truncated:   state.Truncated,
		Info:        e.InfoSnapshot(),
	}, nil
}

// Sync replaces the tracked engine state. Self-play orchestration calls
// this after acting on the opponent seat so the player-side mask stays
// current.
func (e *BattleEnv) Sync(state bridge.GameState) {
	e.state = state
	mask := make([]bool, e.cfg.MaxActions)
	copy(mask, state.ActionMask)
	e.mask = mask
}

// State returns the last engine response as received.
func (e *BattleEnv) State() bridge.GameState {
	return e.state
}

// Done reports whether the tracked game has ended.
func (e *BattleEnv) Done() bool {
	return e.state.Done
}

// Observation returns the current observation, sanitized to contract.
func (e *BattleEnv) Observation() []float64 {
	return Sanitize(e.state.Observation.Features, e.cfg.ObservationSize, e.cfg.ObsLow, e.cfg.ObsHigh)
}

// ActionMasks returns a copy of the current legal-action mask.
func (e *BattleEnv) ActionMasks() []bool {
	mask := make([]bool, len(e.mask))
	copy(mask, e.mask)
	return mask
}

// InfoSnapshot summarizes the tracked state.
func (e *BattleEnv) InfoSnapshot() Info {
	return Info{
		Turn:            e.state.Info.Turn,
		Phase:           e.state.Info.Phase,
		PriorityPlayer:  e.state.Info.PriorityPlayer,
		NumLegalActions: countLegal(e.mask),
		Opponent:        e.cfg.Opponent,
	}
}

func (e *BattleEnv) discardSession() {
	if e.gameID == "" {
		return
	}
	// Cleanup must never raise into caller code.
	if err := e.client.DeleteGame(e.gameID); err != nil {
		log.Debug().Err(err).Str("game", e.gameID).Msg("failed to delete game")
	}
	e.gameID = ""
}

// Close releases the session and, when this environment spawned the
// engine, the engine process. Idempotent; runs its cleanup best-effort
// on every path.
func (e *BattleEnv) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.discardSession()
	if e.process != nil {
		e.process.Close()
	}
}
