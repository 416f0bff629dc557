// Package harness drives episodes end to end: it asks the curriculum
// which opponent to face, runs the learner policy through the
// environment, records outcomes, and publishes new checkpoints to every
// worker's opponent pool. The gradient-based learner itself is external;
// anything implementing policy.Policy can sit in the learner seat.
package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"managym/checkpointdb"
	"managym/curriculum"
	"managym/env"
	"managym/metrics"
	"managym/policy"
	"managym/selfplay"
)

// Saver is implemented by learners whose current state can be serialized
// as a checkpoint artifact.
type Saver interface {
	Save(path string) error
}

// stepper is the slice of an environment an episode loop needs.
type stepper interface {
	Step(action int) (env.StepResult, error)
	ActionMasks() []bool
}

// Config wires a runner.
type Config struct {
	Learner         policy.Policy
	Scheduler       *curriculum.Scheduler
	Collector       metrics.Collector
	Registry        checkpointdb.Store // optional
	SelfPlay        *selfplay.Env      // optional; serves self-play curriculum stages
	CheckpointDir   string
	CheckpointEvery int // episodes between checkpoint saves, 0 disables
	MaxEpisodeSteps int // defensive truncation bound per episode
}

// Runner executes training episodes against one or more environments.
type Runner struct {
	cfg        Config
	workers    []*selfplay.Env
	saved      int
	warnedSelf bool
}

func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Learner == nil {
		return nil, fmt.Errorf("runner needs a learner policy")
	}
	if cfg.Scheduler == nil {
		return nil, fmt.Errorf("runner needs a curriculum scheduler")
	}
	if cfg.Collector == nil {
		cfg.Collector = metrics.NewDummyCollector()
	}
	if cfg.MaxEpisodeSteps <= 0 {
		cfg.MaxEpisodeSteps = 2000
	}
	return &Runner{cfg: cfg}, nil
}

// RegisterWorker adds a self-play environment to the broadcast set. Each
// worker keeps its own pool; nothing is shared implicitly.
func (r *Runner) RegisterWorker(e *selfplay.Env) {
	r.workers = append(r.workers, e)
}

// Broadcast pushes a checkpoint path into every registered worker's
// pool. This is the explicit consistency step the per-worker pools
// require.
func (r *Runner) Broadcast(path string) {
	for _, worker := range r.workers {
		worker.AddCheckpoint(path)
	}
}

// RestorePool replays the checkpoint registry into every worker, oldest
// first, so a restarted run resumes with its historical opponents.
func (r *Runner) RestorePool(ctx context.Context) error {
	if r.cfg.Registry == nil {
		return nil
	}
	records, err := r.cfg.Registry.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list checkpoint registry: %w", err)
	}
	for _, record := range records {
		r.Broadcast(record.Path)
	}
	log.Info().Int("checkpoints", len(records)).Msg("restored checkpoint pool")
	return nil
}

// RunCurriculum plays episodes against the opponent the scheduler names,
// advancing stages as targets are met. Engine-bot stages run through the
// battle environment; self-play stages carry a sentinel label the engine
// does not understand, so those episodes route through the configured
// self-play environment instead.
func (r *Runner) RunCurriculum(ctx context.Context, battle *env.BattleEnv, episodes int) error {
	r.cfg.Collector.Start()

	lastOpponent := ""
	for i := 0; i < episodes; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		opponent := r.cfg.Scheduler.Opponent()

		if opponent == curriculum.SelfOpponent && r.cfg.SelfPlay != nil {
			obs, info, err := r.cfg.SelfPlay.Reset(nil)
			if err != nil {
				return err
			}
			outcome, err := r.runEpisode(r.cfg.SelfPlay, obs)
			if err != nil {
				return err
			}
			r.record(info.Opponent, outcome)
		} else {
			if opponent == curriculum.SelfOpponent {
				// The engine has no self-play bot; without a self-play
				// environment the strongest engine bot substitutes.
				if !r.warnedSelf {
					log.Warn().Msg("no self-play environment configured, substituting the greedy bot")
					r.warnedSelf = true
				}
				opponent = "greedy"
			}

			// The opponent label is fixed at session creation, so a stage
			// change needs a fresh session rather than an in-place reset.
			var obs []float64
			if battle.GameID() != "" && opponent != lastOpponent {
				if err := battle.NewSession(opponent, nil); err != nil {
					return err
				}
				obs = battle.Observation()
			} else {
				var err error
				obs, _, err = battle.ResetAgainst(opponent, nil)
				if err != nil {
					return err
				}
			}
			lastOpponent = opponent

			outcome, err := r.runEpisode(battle, obs)
			if err != nil {
				return err
			}
			r.record(opponent, outcome)
		}

		if r.cfg.Scheduler.ShouldAdvance() {
			r.cfg.Scheduler.Advance()
		}
		if err := r.maybeCheckpoint(ctx, i+1); err != nil {
			return err
		}
	}
	return nil
}

// RunSelfPlay plays episodes through the self-play environment, which
// draws its own opponent each reset. New checkpoints are broadcast to
// all registered workers, this environment included if registered.
func (r *Runner) RunSelfPlay(ctx context.Context, sp *selfplay.Env, episodes int) error {
	r.cfg.Collector.Start()

	for i := 0; i < episodes; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		obs, info, err := sp.Reset(nil)
		if err != nil {
			return err
		}

		outcome, err := r.runEpisode(sp, obs)
		if err != nil {
			return err
		}
		r.record(info.Opponent, outcome)

		if err := r.maybeCheckpoint(ctx, i+1); err != nil {
			return err
		}
	}
	return nil
}

type episodeOutcome struct {
	reward    float64
	steps     int
	truncated bool
}

func (r *Runner) runEpisode(s stepper, obs []float64) (episodeOutcome, error) {
	var outcome episodeOutcome

	for outcome.steps < r.cfg.MaxEpisodeSteps {
		action, err := r.cfg.Learner.Predict(obs, s.ActionMasks())
		if err != nil {
			// The environment resolves an unactionable state itself.
			action = 0
		}

		result, err := s.Step(action)
		if err != nil {
			return outcome, err
		}
		outcome.steps++
		obs = result.Observation
		outcome.reward = result.Reward

		if result.Terminated || result.Truncated {
			outcome.truncated = result.Truncated
			return outcome, nil
		}
	}

	log.Warn().Int("steps", outcome.steps).Msg("episode hit step bound, truncating")
	outcome.truncated = true
	outcome.reward = env.LossReward
	return outcome, nil
}

func (r *Runner) record(opponent string, outcome episodeOutcome) {
	won := outcome.reward > 0
	r.cfg.Scheduler.RecordGame(won, outcome.steps)
	r.cfg.Collector.AddEpisode(metrics.EpisodeMetric{
		Opponent: opponent,
		Stage:    r.cfg.Scheduler.Stage().Name,
		Won:      won,
		Reward:   outcome.reward,
		Steps:    outcome.steps,
	})
}

func (r *Runner) maybeCheckpoint(ctx context.Context, episode int) error {
	if r.cfg.CheckpointEvery <= 0 || episode%r.cfg.CheckpointEvery != 0 {
		return nil
	}
	saver, ok := r.cfg.Learner.(Saver)
	if !ok {
		return nil
	}

	if err := os.MkdirAll(r.cfg.CheckpointDir, 0o755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	r.saved++
	path := filepath.Join(r.cfg.CheckpointDir, fmt.Sprintf("checkpoint_%d.json", r.saved))
	if err := saver.Save(path); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	if r.cfg.Registry != nil {
		record := checkpointdb.NewRecord(path, r.cfg.Scheduler.Stage().Name, r.cfg.Scheduler.WinRate(0))
		if err := r.cfg.Registry.Put(ctx, record); err != nil {
			// Registry loss is not worth killing a training run over.
			log.Warn().Err(err).Str("checkpoint", path).Msg("failed to register checkpoint")
		}
	}

	r.Broadcast(path)
	log.Info().Str("checkpoint", path).Int("workers", len(r.workers)).Msg("checkpoint broadcast")
	return nil
}
