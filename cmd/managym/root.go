package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"managym/checkpointdb"
	"managym/env"
	"managym/metrics"
)

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "managym",
		Short:         "Orchestration harness for the remote card-game engine",
		Long:          "managym runs training episodes against the remote rules engine: curriculum-scheduled opponents, historical self-play against past checkpoints, and expert-action dataset collection.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a TOML config file")

	rootCmd.AddCommand(
		newRunCmd(&configFile),
		newSelfPlayCmd(&configFile),
		newCollectCmd(&configFile),
	)
	return rootCmd
}

func newBattleEnv(cfg appConfig) (*env.BattleEnv, error) {
	return env.New(env.Config{
		Opponent:        cfg.Opponent,
		Deck:            cfg.Deck,
		OpponentDeck:    cfg.OpponentDeck,
		ServerURL:       cfg.ServerURL,
		AutoStartServer: cfg.AutoStart,
		ServerPath:      cfg.ServerPath,
	})
}

func newRegistry(ctx context.Context, cfg appConfig) (checkpointdb.Store, error) {
	var store checkpointdb.Store
	if cfg.RegistryPath != "" {
		store = checkpointdb.NewSQLiteStore(cfg.RegistryPath)
	} else {
		store = checkpointdb.NewMemoryStore()
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to open checkpoint registry: %w", err)
	}
	return store, nil
}

func writeRun(cfg appConfig, collector metrics.Collector) error {
	writer, err := metrics.NewWriter(cfg.RunsDir)
	if err != nil {
		return err
	}
	if err := writer.WriteEpisodes(collector.Episodes()); err != nil {
		return err
	}
	return writer.WriteRun(collector.Complete())
}
