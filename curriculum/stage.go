// Package curriculum schedules training difficulty: an ordered list of
// stages, each naming an opponent and a promotion target, advanced by a
// rolling win-rate tracker.
package curriculum

// SelfOpponent is the sentinel stage opponent meaning "play against the
// learner itself". It is not an engine bot label and must never be sent
// to the engine; harnesses route these stages through the self-play
// environment instead.
const SelfOpponent = "self"

// Stage is one rung of the difficulty ladder. Stages are immutable once
// defined.
type Stage struct {
	Name              string
	Opponent          string
	Timesteps         int
	TargetWinRate     float64
	MinGamesToAdvance int
	Description       string
}

// Standard is the full ladder: random, then the greedy engine bot, then
// self-play.
func Standard() []Stage {
	return []Stage{
		{
			Name:              "Stage 1: Beat Random",
			Opponent:          "random",
			Timesteps:         50_000,
			TargetWinRate:     0.90,
			MinGamesToAdvance: 50,
			Description:       "Learn basic game mechanics and legal moves",
		},
		{
			Name:              "Stage 2: Beat Greedy",
			Opponent:          "greedy",
			Timesteps:         200_000,
			TargetWinRate:     0.60,
			MinGamesToAdvance: 100,
			Description:       "Learn to outplay 1-ply lookahead",
		},
		{
			Name:              "Stage 3: Self-Play",
			Opponent:          SelfOpponent,
			Timesteps:         500_000,
			TargetWinRate:     0.55,
			MinGamesToAdvance: 200,
			Description:       "Refine strategies through self-play",
		},
	}
}

// Fast is a shortened ladder for quick experiments.
func Fast() []Stage {
	return []Stage{
		{
			Name:              "Stage 1: Beat Random",
			Opponent:          "random",
			Timesteps:         20_000,
			TargetWinRate:     0.80,
			MinGamesToAdvance: 30,
			Description:       "Learn basic game mechanics",
		},
		{
			Name:              "Stage 2: Beat Greedy",
			Opponent:          "greedy",
			Timesteps:         80_000,
			TargetWinRate:     0.55,
			MinGamesToAdvance: 50,
			Description:       "Learn to outplay greedy bot",
		},
	}
}

// ByName resolves a named ladder, defaulting to Standard.
func ByName(name string) []Stage {
	if name == "fast" {
		return Fast()
	}
	return Standard()
}
