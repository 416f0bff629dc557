package policy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	cp := NewCheckpoint(4, 8)
	cp.Weights[3][0] = 1.5
	cp.Bias[3] = 0.25

	path := filepath.Join(t.TempDir(), "checkpoint_1.json")
	require.NoError(t, cp.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cp.ObsSize, loaded.ObsSize)
	require.Equal(t, cp.MaxActions, loaded.MaxActions)
	require.InDelta(t, 1.5, loaded.Weights[3][0], 1e-9)
}

func TestLoadRejectsBadArtifacts(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
		require.Error(t, err)
	})

	t.Run("version mismatch", func(t *testing.T) {
		cp := NewCheckpoint(2, 2)
		cp.Version = 99
		data, err := json.Marshal(cp)
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "stale.json")
		require.NoError(t, os.WriteFile(path, data, 0o644))

		_, err = Load(path)
		require.ErrorIs(t, err, ErrVersionMismatch)
	})

	t.Run("inconsistent shape", func(t *testing.T) {
		cp := NewCheckpoint(2, 2)
		cp.Bias = cp.Bias[:1]
		data, err := json.Marshal(cp)
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "short.json")
		require.NoError(t, os.WriteFile(path, data, 0o644))

		_, err = Load(path)
		require.Error(t, err)
	})
}

func TestCheckpointPredict(t *testing.T) {
	t.Run("only legal actions are sampled", func(t *testing.T) {
		cp := NewCheckpoint(2, 4)
		cp.Seed(7)
		mask := []bool{false, true, false, true}

		for i := 0; i < 100; i++ {
			action, err := cp.Predict([]float64{0.5, -0.5}, mask)
			require.NoError(t, err)
			require.Contains(t, []int{1, 3}, action)
		}
	})

	t.Run("strongly weighted action dominates", func(t *testing.T) {
		cp := NewCheckpoint(1, 3)
		cp.Seed(11)
		cp.Bias[2] = 50 // overwhelms the uniform alternatives

		picked := 0
		for i := 0; i < 200; i++ {
			action, err := cp.Predict([]float64{1}, []bool{true, true, true})
			require.NoError(t, err)
			if action == 2 {
				picked++
			}
		}
		require.Greater(t, picked, 190)
	})

	t.Run("empty mask errors", func(t *testing.T) {
		cp := NewCheckpoint(1, 2)
		_, err := cp.Predict([]float64{0}, []bool{false, false})
		require.ErrorIs(t, err, ErrNoLegalActions)
	})

	t.Run("fixed seed reproduces the draw sequence", func(t *testing.T) {
		build := func() *Checkpoint {
			cp := NewCheckpoint(2, 6)
			copy(cp.Bias, []float64{0.1, 0.4, 0.2, 0.9, 0.3, 0.5})
			cp.Seed(99)
			return cp
		}
		a, b := build(), build()
		mask := []bool{true, true, false, true, true, true}

		for i := 0; i < 50; i++ {
			x, err := a.Predict([]float64{0.2, -0.7}, mask)
			require.NoError(t, err)
			y, err := b.Predict([]float64{0.2, -0.7}, mask)
			require.NoError(t, err)
			require.Equal(t, x, y)
		}
	})
}

func TestRandomPolicy(t *testing.T) {
	r := NewRandom(nil)

	t.Run("respects the mask", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			action, err := r.Predict(nil, []bool{false, false, true})
			require.NoError(t, err)
			require.Equal(t, 2, action)
		}
	})

	t.Run("empty mask errors", func(t *testing.T) {
		_, err := r.Predict(nil, []bool{false})
		require.ErrorIs(t, err, ErrNoLegalActions)
	})
}
