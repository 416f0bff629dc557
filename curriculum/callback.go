package curriculum

import (
	"github.com/rs/zerolog/log"
)

// Callback bridges episode outcomes from a training loop into the
// scheduler and periodically checks for promotion. It is the hook point
// an external trainer invokes after every environment step or episode.
type Callback struct {
	scheduler *Scheduler
	evalFreq  int
	calls     int
}

// NewCallback wraps scheduler with an advancement check every evalFreq
// invocations of OnStep.
func NewCallback(scheduler *Scheduler, evalFreq int) *Callback {
	if evalFreq <= 0 {
		evalFreq = 1000
	}
	return &Callback{scheduler: scheduler, evalFreq: evalFreq}
}

// OnEpisodeEnd records one finished episode. A positive terminal reward
// counts as a win.
func (c *Callback) OnEpisodeEnd(reward float64, length int) {
	c.scheduler.RecordGame(reward > 0, length)
}

// OnStep ticks the periodic check. It returns false once the curriculum
// is complete, signalling the caller it may stop early.
func (c *Callback) OnStep() bool {
	c.calls++
	if c.calls%c.evalFreq != 0 {
		return !c.scheduler.IsComplete()
	}

	log.Info().Msg("\n" + c.scheduler.Summary())
	if c.scheduler.ShouldAdvance() {
		from := c.scheduler.Stage().Name
		c.scheduler.Advance()
		to := "Complete"
		if !c.scheduler.IsComplete() {
			to = c.scheduler.Stage().Name
		}
		log.Info().Str("from", from).Str("to", to).Msg("curriculum advancement")
	}
	return !c.scheduler.IsComplete()
}
