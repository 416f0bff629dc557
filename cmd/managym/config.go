package main

import (
	"fmt"

	"github.com/spf13/viper"

	"managym/selfplay"
)

// appConfig is everything the CLI wires from flags and the optional TOML
// config file.
type appConfig struct {
	ServerURL       string
	AutoStart       bool
	ServerPath      string
	Deck            string
	OpponentDeck    string
	Opponent        string
	Episodes        int
	Curriculum      string
	CheckpointDir   string
	CheckpointEvery int
	PoolSize        int
	RunsDir         string
	RegistryPath    string
	Expert          string
	DatasetPath     string

	CheckpointWeight   float64
	EngineNativeWeight float64
	LivePolicyWeight   float64
	RandomWeight       float64
}

func (c appConfig) weights() selfplay.Weights {
	return selfplay.Weights{
		Checkpoint:   c.CheckpointWeight,
		EngineNative: c.EngineNativeWeight,
		LivePolicy:   c.LivePolicyWeight,
		Random:       c.RandomWeight,
	}
}

func loadConfig(configFile string) (appConfig, error) {
	v := viper.New()

	v.SetDefault("server.url", "http://localhost:3333")
	v.SetDefault("server.auto_start", true)
	v.SetDefault("server.path", "")
	v.SetDefault("game.deck", "random")
	v.SetDefault("game.opponent_deck", "random")
	v.SetDefault("game.opponent", "greedy")
	v.SetDefault("train.episodes", 100)
	v.SetDefault("train.curriculum", "standard")
	v.SetDefault("train.checkpoint_dir", "./checkpoints")
	v.SetDefault("train.checkpoint_every", 25)
	v.SetDefault("train.runs_dir", "./runs")
	v.SetDefault("train.registry", "")
	v.SetDefault("selfplay.pool_size", selfplay.DefaultPoolSize)
	v.SetDefault("selfplay.checkpoint_weight", 0.3)
	v.SetDefault("selfplay.engine_native_weight", 0.3)
	v.SetDefault("selfplay.live_policy_weight", 0.2)
	v.SetDefault("selfplay.random_weight", 0.2)
	v.SetDefault("collect.expert", "greedy")
	v.SetDefault("collect.dataset", "./expert_dataset.jsonl")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return appConfig{}, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("managym")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return appConfig{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	return appConfig{
		ServerURL:          v.GetString("server.url"),
		AutoStart:          v.GetBool("server.auto_start"),
		ServerPath:         v.GetString("server.path"),
		Deck:               v.GetString("game.deck"),
		OpponentDeck:       v.GetString("game.opponent_deck"),
		Opponent:           v.GetString("game.opponent"),
		Episodes:           v.GetInt("train.episodes"),
		Curriculum:         v.GetString("train.curriculum"),
		CheckpointDir:      v.GetString("train.checkpoint_dir"),
		CheckpointEvery:    v.GetInt("train.checkpoint_every"),
		RunsDir:            v.GetString("train.runs_dir"),
		RegistryPath:       v.GetString("train.registry"),
		PoolSize:           v.GetInt("selfplay.pool_size"),
		CheckpointWeight:   v.GetFloat64("selfplay.checkpoint_weight"),
		EngineNativeWeight: v.GetFloat64("selfplay.engine_native_weight"),
		LivePolicyWeight:   v.GetFloat64("selfplay.live_policy_weight"),
		RandomWeight:       v.GetFloat64("selfplay.random_weight"),
		Expert:             v.GetString("collect.expert"),
		DatasetPath:        v.GetString("collect.dataset"),
	}, nil
}
