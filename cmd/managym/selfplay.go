package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"managym/curriculum"
	"managym/env"
	"managym/harness"
	"managym/metrics"
	"managym/policy"
	"managym/selfplay"
)

// selfplay runs historical self-play: the learner (a checkpointable
// linear policy here; the real network trains externally through the
// same interfaces) faces a mix of its own past checkpoints, the engine
// bot, its live self and random play.
func newSelfPlayCmd(configFile *string) *cobra.Command {
	var episodes int

	cmd := &cobra.Command{
		Use:   "selfplay",
		Short: "Run historical self-play episodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			if episodes > 0 {
				cfg.Episodes = episodes
			}

			sp, err := selfplay.New(selfplay.Config{
				Env: env.Config{
					Deck:            cfg.Deck,
					OpponentDeck:    cfg.OpponentDeck,
					ServerURL:       cfg.ServerURL,
					AutoStartServer: cfg.AutoStart,
					ServerPath:      cfg.ServerPath,
				},
				PoolSize: cfg.PoolSize,
				Weights:  cfg.weights(),
			})
			if err != nil {
				return err
			}
			defer sp.Close()

			learner := policy.NewCheckpoint(env.ObservationSize, env.MaxActions)
			sp.SetLivePolicy(learner)

			registry, err := newRegistry(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer registry.Close()

			scheduler := curriculum.NewScheduler(curriculum.ByName(cfg.Curriculum), nil)
			collector := metrics.NewCollector()
			runner, err := harness.NewRunner(harness.Config{
				Learner:         learner,
				Scheduler:       scheduler,
				Collector:       collector,
				Registry:        registry,
				CheckpointDir:   cfg.CheckpointDir,
				CheckpointEvery: cfg.CheckpointEvery,
			})
			if err != nil {
				return err
			}
			runner.RegisterWorker(sp)

			if err := runner.RestorePool(cmd.Context()); err != nil {
				return err
			}
			if err := runner.RunSelfPlay(cmd.Context(), sp, cfg.Episodes); err != nil {
				return err
			}

			fmt.Println(scheduler.Summary())
			return writeRun(cfg, collector)
		},
	}
	cmd.Flags().IntVarP(&episodes, "episodes", "n", 0, "episode count (overrides config)")
	return cmd
}
