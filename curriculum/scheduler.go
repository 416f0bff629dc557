package curriculum

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

const (
	// windowSize bounds the rolling outcome buffer; promotion decisions
	// look at the trailing promotionWindow results inside it.
	windowSize      = 100
	promotionWindow = 50

	// completedOpponent is served once the ladder is exhausted: the
	// hardest opponent that needs no local inference.
	completedOpponent = "greedy"
)

// StageChangeFunc is invoked after every promotion with the new stage
// index and stage.
type StageChangeFunc func(index int, stage Stage)

// Scheduler walks the stage ladder. The stage index only ever grows; an
// index equal to the stage count marks the curriculum complete.
type Scheduler struct {
	stages        []Stage
	index         int
	onStageChange StageChangeFunc

	wins      []int
	games     []int
	timesteps []int
	recent    []bool
}

func NewScheduler(stages []Stage, onStageChange StageChangeFunc) *Scheduler {
	if len(stages) == 0 {
		panic("curriculum needs at least one stage")
	}
	return &Scheduler{
		stages:        stages,
		onStageChange: onStageChange,
		wins:          make([]int, len(stages)),
		games:         make([]int, len(stages)),
		timesteps:     make([]int, len(stages)),
	}
}

// Stage returns the active stage. Calling it on a complete curriculum
// returns the final stage.
func (s *Scheduler) Stage() Stage {
	if s.IsComplete() {
		return s.stages[len(s.stages)-1]
	}
	return s.stages[s.index]
}

// StageIndex returns the current position on the ladder; non-decreasing
// for the scheduler's lifetime.
func (s *Scheduler) StageIndex() int {
	return s.index
}

// IsComplete reports whether every stage has been passed.
func (s *Scheduler) IsComplete() bool {
	return s.index >= len(s.stages)
}

// Opponent names the opponent the harness should request next. Once the
// ladder is complete it stays on the hardest fallback rather than
// erroring.
func (s *Scheduler) Opponent() string {
	if s.IsComplete() {
		return completedOpponent
	}
	return s.stages[s.index].Opponent
}

// RecordGame feeds one episode outcome into the active stage's counters
// and the rolling window. Outcomes after completion are dropped.
func (s *Scheduler) RecordGame(won bool, timesteps int) {
	if s.IsComplete() {
		return
	}

	if won {
		s.wins[s.index]++
	}
	s.games[s.index]++
	s.timesteps[s.index] += timesteps

	s.recent = append(s.recent, won)
	if len(s.recent) > windowSize {
		s.recent = s.recent[1:]
	}
}

// WinRate returns the win rate over the trailing window results, or over
// all games of the active stage when window <= 0.
func (s *Scheduler) WinRate(window int) float64 {
	if window > 0 {
		results := s.recent
		if len(results) > window {
			results = results[len(results)-window:]
		}
		if len(results) == 0 {
			return 0
		}
		wins := 0
		for _, won := range results {
			if won {
				wins++
			}
		}
		return float64(wins) / float64(len(results))
	}

	idx := s.index
	if s.IsComplete() {
		idx = len(s.stages) - 1
	}
	if s.games[idx] == 0 {
		return 0
	}
	return float64(s.wins[idx]) / float64(s.games[idx])
}

// ShouldAdvance is true once the active stage has both its minimum game
// count and the target win rate over the trailing promotion window.
func (s *Scheduler) ShouldAdvance() bool {
	if s.IsComplete() {
		return false
	}

	stage := s.stages[s.index]
	if s.games[s.index] < stage.MinGamesToAdvance {
		return false
	}
	return s.WinRate(promotionWindow) >= stage.TargetWinRate
}

// Advance moves to the next stage, clearing the rolling window. It
// returns false when the ladder was already on its final stage, in which
// case the curriculum is marked complete.
func (s *Scheduler) Advance() bool {
	if s.index >= len(s.stages)-1 {
		s.index = len(s.stages)
		s.recent = nil
		return false
	}

	s.index++
	s.recent = nil

	stage := s.stages[s.index]
	log.Info().Int("stage", s.index).Str("name", stage.Name).
		Str("opponent", stage.Opponent).Msg("curriculum advanced")
	if s.onStageChange != nil {
		s.onStageChange(s.index, stage)
	}
	return true
}

// Progress is a point-in-time summary of the scheduler.
type Progress struct {
	StageIndex    int
	StageName     string
	Opponent      string
	GamesPlayed   int
	Wins          int
	WinRate       float64
	RecentWinRate float64
	TargetWinRate float64
	Timesteps     int
	IsComplete    bool
}

// GetProgress snapshots the current position. For a complete curriculum
// the counters aggregate every stage.
func (s *Scheduler) GetProgress() Progress {
	if s.IsComplete() {
		games, wins, steps := 0, 0, 0
		for i := range s.stages {
			games += s.games[i]
			wins += s.wins[i]
			steps += s.timesteps[i]
		}
		return Progress{
			StageIndex:    s.index,
			StageName:     "Complete",
			Opponent:      s.Opponent(),
			GamesPlayed:   games,
			Wins:          wins,
			WinRate:       s.WinRate(0),
			RecentWinRate: s.WinRate(promotionWindow),
			Timesteps:     steps,
			IsComplete:    true,
		}
	}

	stage := s.stages[s.index]
	return Progress{
		StageIndex:    s.index,
		StageName:     stage.Name,
		Opponent:      stage.Opponent,
		GamesPlayed:   s.games[s.index],
		Wins:          s.wins[s.index],
		WinRate:       s.WinRate(0),
		RecentWinRate: s.WinRate(promotionWindow),
		TargetWinRate: stage.TargetWinRate,
		Timesteps:     s.timesteps[s.index],
	}
}

// Summary renders a human-readable progress block.
func (s *Scheduler) Summary() string {
	p := s.GetProgress()
	lines := []string{
		"=== Curriculum Progress ===",
		fmt.Sprintf("Stage: %s", p.StageName),
		fmt.Sprintf("Opponent: %s", p.Opponent),
		fmt.Sprintf("Games: %s", humanize.Comma(int64(p.GamesPlayed))),
		fmt.Sprintf("Timesteps: %s", humanize.Comma(int64(p.Timesteps))),
		fmt.Sprintf("Win Rate: %.1f%%", p.WinRate*100),
		fmt.Sprintf("Recent (%d): %.1f%%", promotionWindow, p.RecentWinRate*100),
	}
	if p.TargetWinRate > 0 {
		lines = append(lines, fmt.Sprintf("Target: %.1f%%", p.TargetWinRate*100))
	}
	return strings.Join(lines, "\n")
}
