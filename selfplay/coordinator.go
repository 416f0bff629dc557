package selfplay

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"managym/bridge"
	"managym/policy"
)

// Coordinator drives the opponent's seat whenever the engine reports the
// opponent holds priority and the opponent is not engine-native. Each
// iteration fetches the opponent's legal-action mask, computes a move
// locally and submits it, until priority returns to the player or the
// game ends.
type Coordinator struct {
	client        *bridge.Client
	fallback      *policy.Random
	maxIterations int
}

// NewCoordinator builds a coordinator for the given connection. The
// engine's own termination guarantee bounds the loop; maxIterations is a
// defensive cap on top of it in case that guarantee is ever violated.
func NewCoordinator(client *bridge.Client, maxIterations int) *Coordinator {
	if maxIterations <= 0 {
		maxIterations = 800
	}
	return &Coordinator{
		client:        client,
		fallback:      policy.NewRandom(nil),
		maxIterations: maxIterations,
	}
}

// Run plays out the opponent's priority window and returns the final
// engine state. observe supplies the observation used for opponent
// inference; it is the player-perspective vector, reused for the
// opponent as a deliberate simplification that assumes a symmetric
// feature encoding. Inference failures degrade to uniform-random play,
// only transport failures propagate.
func (c *Coordinator) Run(gameID string, choice Choice, observe func() []float64, state bridge.GameState) (bridge.GameState, error) {
	steps := 0
	for state.Info.PriorityPlayer == "opponent" && !state.Done {
		if steps >= c.maxIterations {
			log.Error().Str("game", gameID).Int("steps", steps).
				Msg("opponent turn loop hit iteration cap, abandoning")
			break
		}

		oppState, err := c.client.GetOpponentActions(gameID)
		if err != nil {
			return state, fmt.Errorf("failed to fetch opponent actions for %s: %w", gameID, err)
		}
		if len(policy.LegalActions(oppState.ActionMask)) == 0 {
			// No opponent action available. Leave resolution to the
			// outer game-termination check.
			break
		}

		action := c.computeAction(choice, observe(), oppState.ActionMask)

		state, err = c.client.OpponentStep(gameID, action)
		if err != nil {
			return state, fmt.Errorf("failed to step opponent in %s: %w", gameID, err)
		}
		steps++
	}
	return state, nil
}

func (c *Coordinator) computeAction(choice Choice, obs []float64, mask []bool) int {
	if choice.Policy != nil {
		action, err := choice.Policy.Predict(obs, mask)
		if err == nil {
			return action
		}
		log.Warn().Err(err).Str("opponent", choice.Kind.String()).
			Msg("opponent inference failed, playing randomly")
	}

	action, err := c.fallback.Predict(obs, mask)
	if err != nil {
		return 0
	}
	return action
}
