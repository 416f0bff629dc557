// Package selfplay multiplexes a growing population of opponents into
// independent game sessions: past checkpoints of the learner, the live
// policy, an engine-native bot, and uniform-random play.
package selfplay

import (
	"os"

	"github.com/rs/zerolog/log"
)

// Pool is the bounded collection of checkpoint artifacts available as
// practice opponents. Oldest entries are evicted first. Each worker owns
// its own pool; the harness must broadcast new checkpoints to every
// worker explicitly, there is no shared state between them.
type Pool struct {
	capacity int
	entries  []string
}

const DefaultPoolSize = 20

func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultPoolSize
	}
	return &Pool{capacity: capacity}
}

// Add appends a checkpoint path, evicting from the front once the pool
// exceeds capacity. A missing artifact is logged and skipped, never an
// error: a worker lagging behind a broadcast must not take down training.
func (p *Pool) Add(path string) {
	if _, err := os.Stat(path); err != nil {
		log.Warn().Str("checkpoint", path).Msg("checkpoint not found, skipping")
		return
	}

	p.entries = append(p.entries, path)
	for len(p.entries) > p.capacity {
		removed := p.entries[0]
		p.entries = p.entries[1:]
		log.Info().Str("checkpoint", removed).Msg("evicted oldest checkpoint")
	}
	log.Info().Str("checkpoint", path).Int("size", len(p.entries)).Msg("added checkpoint")
}

// Size returns the number of pooled checkpoints.
func (p *Pool) Size() int {
	return len(p.entries)
}

// Entries returns a copy of the pooled paths in insertion order.
func (p *Pool) Entries() []string {
	out := make([]string, len(p.entries))
	copy(out, p.entries)
	return out
}
