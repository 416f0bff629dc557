// Package metrics records per-episode outcomes of a training run and
// writes them out for offline inspection.
package metrics

import (
	"sync/atomic"
	"time"
)

// EpisodeMetric describes one finished episode.
type EpisodeMetric struct {
	Episode  int
	Opponent string
	Stage    string
	Won      bool
	Reward   float64
	Steps    int
	Duration time.Duration
}

// RunMetric aggregates a whole run.
type RunMetric struct {
	Episodes  int
	Wins      int
	Steps     int
	StartTime time.Time
	Duration  time.Duration
}

type Collector interface {
	Start()
	AddEpisode(m EpisodeMetric)
	Episodes() []EpisodeMetric
	Complete() RunMetric
}

type collector struct {
	startTime time.Time
	episodes  []EpisodeMetric
	wins      atomic.Int32
	steps     atomic.Int64
}

func NewCollector() Collector {
	return &collector{}
}

func (c *collector) Start() {
	c.startTime = time.Now()
}

func (c *collector) AddEpisode(m EpisodeMetric) {
	m.Episode = len(c.episodes) + 1
	c.episodes = append(c.episodes, m)
	if m.Won {
		c.wins.Add(1)
	}
	c.steps.Add(int64(m.Steps))
}

func (c *collector) Episodes() []EpisodeMetric {
	out := make([]EpisodeMetric, len(c.episodes))
	copy(out, c.episodes)
	return out
}

func (c *collector) Complete() RunMetric {
	return RunMetric{
		Episodes:  len(c.episodes),
		Wins:      int(c.wins.Load()),
		Steps:     int(c.steps.Load()),
		StartTime: c.startTime,
		Duration:  time.Since(c.startTime),
	}
}

type dummyCollector struct{}

// NewDummyCollector discards everything, for callers that do not record.
func NewDummyCollector() Collector {
	return &dummyCollector{}
}

func (c *dummyCollector) Start()                     {}
func (c *dummyCollector) AddEpisode(m EpisodeMetric) {}
func (c *dummyCollector) Episodes() []EpisodeMetric  { return nil }
func (c *dummyCollector) Complete() RunMetric        { return RunMetric{} }
