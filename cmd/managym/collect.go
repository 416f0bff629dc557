package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"managym/harness"
)

// collect gathers expert-action imitation data by replaying the engine
// expert's own choices.
func newCollectCmd(configFile *string) *cobra.Command {
	var episodes int
	var dataset string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect expert-action imitation data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			if episodes > 0 {
				cfg.Episodes = episodes
			}
			if dataset != "" {
				cfg.DatasetPath = dataset
			}

			battle, err := newBattleEnv(cfg)
			if err != nil {
				return err
			}
			defer battle.Close()

			collector := harness.NewDatasetCollector(battle, cfg.Expert)
			samples, err := collector.Collect(cfg.Episodes, cfg.DatasetPath)
			if err != nil {
				return err
			}

			fmt.Printf("collected %d samples into %s\n", samples, cfg.DatasetPath)
			return nil
		},
	}
	cmd.Flags().IntVarP(&episodes, "episodes", "n", 0, "episode count (overrides config)")
	cmd.Flags().StringVarP(&dataset, "dataset", "o", "", "output JSONL path (overrides config)")
	return cmd
}
