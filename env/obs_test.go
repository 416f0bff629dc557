package env

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	t.Run("non-finite values map to sentinels", func(t *testing.T) {
		obs := Sanitize([]float64{math.NaN(), math.Inf(1), math.Inf(-1), 0.5}, 4, -1, 2)
		require.Equal(t, []float64{0, 2, -1, 0.5}, obs)
	})

	t.Run("values are clipped to bounds", func(t *testing.T) {
		obs := Sanitize([]float64{-10, 10, 1.5}, 3, -1, 2)
		require.Equal(t, []float64{-1, 2, 1.5}, obs)
	})

	t.Run("short input pads with zeros", func(t *testing.T) {
		obs := Sanitize([]float64{1}, 3, -1, 2)
		require.Equal(t, []float64{1, 0, 0}, obs)
	})

	t.Run("long input truncates", func(t *testing.T) {
		obs := Sanitize([]float64{1, 1, 1, 1}, 2, -1, 2)
		require.Len(t, obs, 2)
	})

	t.Run("output is always finite and in range", func(t *testing.T) {
		nasty := []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e300, -1e300}
		for _, v := range Sanitize(nasty, 5, -1, 2) {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
			require.GreaterOrEqual(t, v, -1.0)
			require.LessOrEqual(t, v, 2.0)
		}
	})
}

func TestFirstLegal(t *testing.T) {
	require.Equal(t, 1, FirstLegal([]bool{false, true, true}))
	require.Equal(t, -1, FirstLegal([]bool{false, false}))
	require.Equal(t, -1, FirstLegal(nil))
}
