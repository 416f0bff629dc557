package harness

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"managym/env"
)

// Sample is one imitation-learning example: the state the learner saw
// and the action the engine-side expert chose there.
type Sample struct {
	Observation  []float64 `json:"observation"`
	ActionMask   []bool    `json:"actionMask"`
	ExpertAction int       `json:"expertAction"`
	ExpertType   string    `json:"expertType"`
	Description  string    `json:"description,omitempty"`
}

// DatasetCollector walks games while querying the expert's choice at
// every state, following the expert's own actions so the visited states
// match its play distribution. Conversion and upload of the resulting
// dataset are external concerns.
type DatasetCollector struct {
	battle *env.BattleEnv
	expert string
}

func NewDatasetCollector(battle *env.BattleEnv, expert string) *DatasetCollector {
	if expert == "" {
		expert = "greedy"
	}
	return &DatasetCollector{battle: battle, expert: expert}
}

// Collect plays episodes and appends one JSONL sample per state to path.
// Expert failures skip the sample and fall back to the first legal
// action so collection keeps moving.
func (c *DatasetCollector) Collect(episodes int, path string) (int, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)

	samples := 0
	for i := 0; i < episodes; i++ {
		obs, _, err := c.battle.ResetAgainst(c.expert, nil)
		if err != nil {
			return samples, err
		}

		for {
			mask := c.battle.ActionMasks()
			action := env.FirstLegal(mask)
			if action < 0 {
				break
			}

			expert, err := c.battle.Client().GetExpertAction(c.battle.GameID(), c.expert)
			if err != nil {
				log.Warn().Err(err).Msg("expert query failed, skipping sample")
			} else {
				action = expert.ExpertAction
				if err := enc.Encode(Sample{
					Observation:  obs,
					ActionMask:   mask,
					ExpertAction: expert.ExpertAction,
					ExpertType:   expert.ExpertType,
					Description:  expert.ExpertActionDescription,
				}); err != nil {
					return samples, fmt.Errorf("failed to write sample: %w", err)
				}
				samples++
			}

			result, err := c.battle.Step(action)
			if err != nil {
				return samples, err
			}
			obs = result.Observation
			if result.Terminated || result.Truncated {
				break
			}
		}
	}

	log.Info().Int("samples", samples).Str("dataset", path).Msg("collection finished")
	return samples, nil
}
