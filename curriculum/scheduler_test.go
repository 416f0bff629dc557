package curriculum

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func twoStageLadder() []Stage {
	return []Stage{
		{Name: "easy", Opponent: "random", TargetWinRate: 0.5, MinGamesToAdvance: 2},
		{Name: "hard", Opponent: "greedy", TargetWinRate: 0.6, MinGamesToAdvance: 2},
	}
}

func TestSchedulerPromotion(t *testing.T) {
	t.Run("advances at min games and target rate", func(t *testing.T) {
		s := NewScheduler(twoStageLadder(), nil)

		s.RecordGame(true, 10)
		require.False(t, s.ShouldAdvance(), "one game is below the minimum")

		s.RecordGame(false, 10)
		require.True(t, s.ShouldAdvance(), "2 games at 50% meets a 50% target")
	})

	t.Run("does not advance below target", func(t *testing.T) {
		s := NewScheduler(twoStageLadder(), nil)
		s.RecordGame(false, 10)
		s.RecordGame(false, 10)
		require.False(t, s.ShouldAdvance())
	})

	t.Run("advance clears the rolling window", func(t *testing.T) {
		s := NewScheduler(twoStageLadder(), nil)
		s.RecordGame(true, 1)
		s.RecordGame(true, 1)
		require.True(t, s.Advance())

		require.Zero(t, s.WinRate(promotionWindow), "window starts empty on the new stage")
		require.Equal(t, "greedy", s.Opponent())
	})

	t.Run("stage change callback fires on promotion", func(t *testing.T) {
		var gotIndex int
		var gotStage Stage
		s := NewScheduler(twoStageLadder(), func(index int, stage Stage) {
			gotIndex = index
			gotStage = stage
		})

		require.True(t, s.Advance())
		require.Equal(t, 1, gotIndex)
		require.Equal(t, "hard", gotStage.Name)
	})
}

func TestSchedulerCompletion(t *testing.T) {
	s := NewScheduler(twoStageLadder(), nil)
	require.True(t, s.Advance())
	require.False(t, s.Advance(), "advancing past the last stage reports false")

	require.True(t, s.IsComplete())
	require.Equal(t, "greedy", s.Opponent(), "complete curriculum serves the fallback label")
	require.False(t, s.ShouldAdvance())

	// Outcomes after completion are dropped.
	s.RecordGame(true, 5)
	require.Equal(t, 0, s.GetProgress().GamesPlayed)
	require.Equal(t, "Complete", s.GetProgress().StageName)
}

func TestCompletionClearsWindow(t *testing.T) {
	s := NewScheduler(twoStageLadder(), nil)
	require.True(t, s.Advance())
	s.RecordGame(true, 1)
	s.RecordGame(true, 1)
	require.False(t, s.Advance())

	require.True(t, s.IsComplete())
	require.Zero(t, s.WinRate(promotionWindow), "final advance clears the rolling window")
	require.Zero(t, s.GetProgress().RecentWinRate)
}

func TestSchedulerMonotonicity(t *testing.T) {
	s := NewScheduler(twoStageLadder(), nil)
	last := s.StageIndex()

	// Arbitrary interleaving of records and advances never decreases
	// the stage index.
	moves := []func(){
		func() { s.RecordGame(true, 1) },
		func() { s.RecordGame(false, 1) },
		func() { s.Advance() },
		func() { s.RecordGame(true, 1) },
		func() { s.Advance() },
		func() { s.Advance() },
		func() { s.RecordGame(false, 1) },
	}
	for _, move := range moves {
		move()
		require.GreaterOrEqual(t, s.StageIndex(), last)
		last = s.StageIndex()
	}
}

func TestWinRateWindows(t *testing.T) {
	s := NewScheduler(twoStageLadder(), nil)
	for i := 0; i < 10; i++ {
		s.RecordGame(i%2 == 0, 1)
	}

	require.InDelta(t, 0.5, s.WinRate(10), 1e-9)
	require.InDelta(t, 0.5, s.WinRate(0), 1e-9, "window <= 0 uses stage totals")
	require.InDelta(t, 0.0, s.WinRate(1), 1e-9, "last result was a loss")
}

func TestCallback(t *testing.T) {
	s := NewScheduler(twoStageLadder(), nil)
	cb := NewCallback(s, 2)

	cb.OnEpisodeEnd(1.0, 30)
	cb.OnEpisodeEnd(-1.0, 30)
	require.Equal(t, 2, s.GetProgress().GamesPlayed)
	require.Equal(t, 1, s.GetProgress().Wins)

	require.True(t, cb.OnStep())
	require.Equal(t, 0, s.StageIndex(), "no check off the eval frequency")
	require.True(t, cb.OnStep())
	require.Equal(t, 1, s.StageIndex(), "periodic check promotes when due")
}

func TestStandardLadders(t *testing.T) {
	require.Len(t, Standard(), 3)
	require.Len(t, Fast(), 2)
	require.Equal(t, SelfOpponent, Standard()[2].Opponent)
	require.Equal(t, Fast(), ByName("fast"))
	require.Equal(t, Standard(), ByName(""))
}
