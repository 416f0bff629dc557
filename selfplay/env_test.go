package selfplay

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"managym/bridge"
	"managym/env"
)

// selfplayEngine emulates an engine where every player step hands
// priority to the opponent for exactly one exchange.
type selfplayEngine struct {
	createOpponents []string
	playerSteps     []int
	oppSteps        []int
	actionsCalls    int
	deletes         int
}

func (f *selfplayEngine) state(priority string, done bool) bridge.GameState {
	return bridge.GameState{
		GameID:      "sp-1",
		ActionMask:  []bool{true, true, false},
		Observation: bridge.Observation{Features: []float64{0.25, 0.5}},
		Done:        done,
		Info:        bridge.GameInfo{PriorityPlayer: priority},
	}
}

func (f *selfplayEngine) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		switch {
		case r.URL.Path == "/game/create":
			var body bridge.CreateGameRequest
			json.NewDecoder(r.Body).Decode(&body)
			f.createOpponents = append(f.createOpponents, body.Opponent)
			enc.Encode(f.state("player", false))
		case strings.HasSuffix(r.URL.Path, "/opponent_actions"):
			enc.Encode(bridge.GameState{ActionMask: []bool{false, true}})
		case strings.HasSuffix(r.URL.Path, "/opponent_step"):
			var body struct {
				Action int `json:"action"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.oppSteps = append(f.oppSteps, body.Action)
			enc.Encode(f.state("player", false))
		case strings.HasSuffix(r.URL.Path, "/step"):
			var body struct {
				Action int `json:"action"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.playerSteps = append(f.playerSteps, body.Action)
			enc.Encode(f.state("opponent", false))
		case strings.HasSuffix(r.URL.Path, "/actions"):
			f.actionsCalls++
			enc.Encode(bridge.GameState{ActionMask: []bool{true, false, true}})
		case r.Method == http.MethodDelete:
			f.deletes++
			w.Write([]byte(`{}`))
		default:
			enc.Encode(f.state("player", false))
		}
	})
}

func newSelfplayEnv(t *testing.T, engine *selfplayEngine, weights Weights) *Env {
	t.Helper()
	server := httptest.NewServer(engine.handler())
	t.Cleanup(server.Close)

	e, err := New(Config{
		Env:     env.Config{ServerURL: server.URL, MaxActions: 3, ObservationSize: 2},
		Weights: weights,
	}, WithLoader(stubLoader))
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestSelfPlayReset(t *testing.T) {
	t.Run("engine-native opponent stays remote", func(t *testing.T) {
		engine := &selfplayEngine{}
		e := newSelfplayEnv(t, engine, Weights{EngineNative: 1})

		_, info, err := e.Reset(nil)
		require.NoError(t, err)
		require.Equal(t, []string{"greedy"}, engine.createOpponents)
		require.Equal(t, KindEngineNative, e.Opponent())
		require.Equal(t, "engine-native", info.Opponent)
		require.Empty(t, engine.oppSteps, "coordinator is skipped for engine bots")
	})

	t.Run("external opponent is requested as external", func(t *testing.T) {
		engine := &selfplayEngine{}
		e := newSelfplayEnv(t, engine, Weights{Random: 1})

		_, info, err := e.Reset(nil)
		require.NoError(t, err)
		require.Equal(t, []string{"external"}, engine.createOpponents)
		require.Equal(t, "random", info.Opponent)
	})

	t.Run("each reset opens a fresh session", func(t *testing.T) {
		engine := &selfplayEngine{}
		e := newSelfplayEnv(t, engine, Weights{EngineNative: 1})

		_, _, err := e.Reset(nil)
		require.NoError(t, err)
		_, _, err = e.Reset(nil)
		require.NoError(t, err)
		require.Len(t, engine.createOpponents, 2)
		require.Equal(t, 1, engine.deletes, "previous session is discarded first")
	})
}

func TestSelfPlayStep(t *testing.T) {
	t.Run("opponent window is played out after the learner acts", func(t *testing.T) {
		engine := &selfplayEngine{}
		e := newSelfplayEnv(t, engine, Weights{Random: 1})

		_, _, err := e.Reset(nil)
		require.NoError(t, err)

		result, err := e.Step(0)
		require.NoError(t, err)
		require.Equal(t, []int{0}, engine.playerSteps)
		require.Equal(t, []int{1}, engine.oppSteps, "one opponent exchange per priority window")
		require.False(t, result.Terminated)
		require.Positive(t, engine.actionsCalls, "player mask is refreshed after the opponent acts")
		require.Equal(t, []bool{true, false, true}, e.ActionMasks())
	})

	t.Run("engine-native step returns directly", func(t *testing.T) {
		engine := &selfplayEngine{}
		e := newSelfplayEnv(t, engine, Weights{EngineNative: 1})

		_, _, err := e.Reset(nil)
		require.NoError(t, err)

		_, err = e.Step(1)
		require.NoError(t, err)
		require.Empty(t, engine.oppSteps)
	})
}

func TestSelfPlayCheckpointRegistration(t *testing.T) {
	engine := &selfplayEngine{}
	e := newSelfplayEnv(t, engine, Weights{Checkpoint: 1})

	require.Equal(t, 0, e.PoolSize())
	e.AddCheckpoint(writeCheckpoint(t, t.TempDir(), "cp.json"))
	require.Equal(t, 1, e.PoolSize())

	_, _, err := e.Reset(nil)
	require.NoError(t, err)
	require.Equal(t, KindCheckpoint, e.Opponent())
}
