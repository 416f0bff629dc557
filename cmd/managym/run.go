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

// run plays curriculum-scheduled episodes with a random learner. It is
// the smoke-test loop: no gradient updates, just the full orchestration
// path end to end.
func newRunCmd(configFile *string) *cobra.Command {
	var episodes int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Play curriculum episodes with a random learner",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			if episodes > 0 {
				cfg.Episodes = episodes
			}

			battle, err := newBattleEnv(cfg)
			if err != nil {
				return err
			}
			defer battle.Close()

			// The battle environment above already ensured the engine is
			// up, so the self-play environment never spawns its own.
			sp, err := selfplay.New(selfplay.Config{
				Env: env.Config{
					Deck:         cfg.Deck,
					OpponentDeck: cfg.OpponentDeck,
					ServerURL:    cfg.ServerURL,
				},
				PoolSize: cfg.PoolSize,
				Weights:  cfg.weights(),
			})
			if err != nil {
				return err
			}
			defer sp.Close()

			learner := policy.NewRandom(nil)
			sp.SetLivePolicy(learner)

			scheduler := curriculum.NewScheduler(curriculum.ByName(cfg.Curriculum), nil)
			collector := metrics.NewCollector()
			runner, err := harness.NewRunner(harness.Config{
				Learner:   learner,
				Scheduler: scheduler,
				Collector: collector,
				SelfPlay:  sp,
			})
			if err != nil {
				return err
			}

			if err := runner.RunCurriculum(cmd.Context(), battle, cfg.Episodes); err != nil {
				return err
			}

			fmt.Println(scheduler.Summary())
			return writeRun(cfg, collector)
		},
	}
	cmd.Flags().IntVarP(&episodes, "episodes", "n", 0, "episode count (overrides config)")
	return cmd
}
