package fetch

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// Throttle produces the randomized inter-request delay the upstream
// endpoints require. The delay is drawn uniformly from [Min, Max] and is a
// caller-side discipline: callers wait after every attempt, regardless of
// whether the attempt succeeded.
type Throttle struct {
	min    time.Duration
	max    time.Duration
	rng    *rand.Rand
	logger *slog.Logger
}

// NewThrottle creates a throttle over the given interval. A nil rng falls
// back to a time-seeded source.
func NewThrottle(min, max time.Duration, rng *rand.Rand, logger *slog.Logger) *Throttle {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Throttle{
		min:    min,
		max:    max,
		rng:    rng,
		logger: logger,
	}
}

// Wait sleeps for a random duration in [min, max]. Returns early if the
// context is cancelled; callers re-check the context at the top of their
// loop, so an early return is not an error.
func (t *Throttle) Wait(ctx context.Context) {
	span := t.max - t.min
	delay := t.min
	if span > 0 {
		delay += time.Duration(t.rng.Int63n(int64(span) + 1))
	}

	t.logger.Debug("snoozing between requests", "delay", delay)

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
