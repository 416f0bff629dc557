package selfplay

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"managym/bridge"
)

// scriptedEngine serves a fixed sequence of post-opponent-step states.
type scriptedEngine struct {
	oppMask  []bool
	script   []bridge.GameState
	oppSteps []int
}

func (s *scriptedEngine) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/opponent_actions"):
			json.NewEncoder(w).Encode(bridge.GameState{ActionMask: s.oppMask})
		case strings.HasSuffix(r.URL.Path, "/opponent_step"):
			var body struct {
				Action int `json:"action"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			s.oppSteps = append(s.oppSteps, body.Action)

			next := s.script[0]
			if len(s.script) > 1 {
				s.script = s.script[1:]
			}
			json.NewEncoder(w).Encode(next)
		default:
			json.NewEncoder(w).Encode(bridge.GameState{})
		}
	})
}

func scriptedClient(t *testing.T, engine *scriptedEngine) *bridge.Client {
	t.Helper()
	server := httptest.NewServer(engine.handler())
	t.Cleanup(server.Close)

	parsed, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(parsed.Port())
	require.NoError(t, err)
	return bridge.NewClient(parsed.Hostname(), port, bridge.WithMaxRetries(1))
}

func opponentPriority(done bool) bridge.GameState {
	return bridge.GameState{
		Done: done,
		Info: bridge.GameInfo{PriorityPlayer: "opponent"},
	}
}

func playerPriority() bridge.GameState {
	return bridge.GameState{Info: bridge.GameInfo{PriorityPlayer: "player"}}
}

func observe() []float64 { return []float64{0.1, 0.2} }

func TestCoordinatorRun(t *testing.T) {
	t.Run("plays until priority returns to the player", func(t *testing.T) {
		engine := &scriptedEngine{
			oppMask: []bool{true, false},
			script:  []bridge.GameState{opponentPriority(false), playerPriority()},
		}
		coordinator := NewCoordinator(scriptedClient(t, engine), 0)

		final, err := coordinator.Run("g", Choice{Kind: KindRandom, Policy: stubPolicy{}}, observe, opponentPriority(false))
		require.NoError(t, err)
		require.Len(t, engine.oppSteps, 2, "exactly two opponent exchanges")
		require.Equal(t, "player", final.Info.PriorityPlayer)
	})

	t.Run("stops when the engine reports done", func(t *testing.T) {
		engine := &scriptedEngine{
			oppMask: []bool{true},
			script:  []bridge.GameState{opponentPriority(true)},
		}
		coordinator := NewCoordinator(scriptedClient(t, engine), 0)

		final, err := coordinator.Run("g", Choice{Kind: KindRandom, Policy: stubPolicy{}}, observe, opponentPriority(false))
		require.NoError(t, err)
		require.Len(t, engine.oppSteps, 1)
		require.True(t, final.Done)
	})

	t.Run("empty opponent mask breaks without stepping", func(t *testing.T) {
		engine := &scriptedEngine{
			oppMask: []bool{false, false},
			script:  []bridge.GameState{playerPriority()},
		}
		coordinator := NewCoordinator(scriptedClient(t, engine), 0)

		_, err := coordinator.Run("g", Choice{Kind: KindRandom, Policy: stubPolicy{}}, observe, opponentPriority(false))
		require.NoError(t, err)
		require.Empty(t, engine.oppSteps)
	})

	t.Run("iteration cap stops a non-terminating engine", func(t *testing.T) {
		engine := &scriptedEngine{
			oppMask: []bool{true},
			script:  []bridge.GameState{opponentPriority(false)}, // never yields
		}
		coordinator := NewCoordinator(scriptedClient(t, engine), 5)

		_, err := coordinator.Run("g", Choice{Kind: KindRandom, Policy: stubPolicy{}}, observe, opponentPriority(false))
		require.NoError(t, err)
		require.Len(t, engine.oppSteps, 5)
	})

	t.Run("inference failure degrades to random play", func(t *testing.T) {
		engine := &scriptedEngine{
			oppMask: []bool{false, true, false},
			script:  []bridge.GameState{playerPriority()},
		}
		coordinator := NewCoordinator(scriptedClient(t, engine), 0)

		failing := failingPolicy{}
		_, err := coordinator.Run("g", Choice{Kind: KindCheckpoint, Policy: failing}, observe, opponentPriority(false))
		require.NoError(t, err)
		require.Equal(t, []int{1}, engine.oppSteps, "fallback still plays a legal move")
	})

	t.Run("engine-native coordination is never invoked by the env", func(t *testing.T) {
		choice := Choice{Kind: KindEngineNative}
		require.False(t, choice.External())
	})
}

type failingPolicy struct{}

func (failingPolicy) Predict(obs []float64, mask []bool) (int, error) {
	return 0, errors.New("model exploded")
}
