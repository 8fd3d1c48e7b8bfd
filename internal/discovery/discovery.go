// Package discovery drives the brute-force scan of the upstream id space.
// Candidate ids come off a durable queue, each one is fetched and
// classified, and confirmed ids land in the winner log. The queue is
// persisted on exit so an interrupted scan resumes exactly where it
// stopped.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/dgadling/hyperion/internal/fetch"
	"github.com/dgadling/hyperion/internal/queue"
)

// Outcome is the terminal classification of one candidate attempt
type Outcome int

const (
	// OutcomeConfirmed means the id references a real upstream event
	OutcomeConfirmed Outcome = iota
	// OutcomeRejected means the id is exhausted and not a winner
	OutcomeRejected
	// OutcomeTransient means the attempt failed in a retryable way and
	// the id goes back on the queue
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmed:
		return "confirmed"
	case OutcomeRejected:
		return "rejected"
	case OutcomeTransient:
		return "transient"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Fetcher is the slice of the fetch client the engine needs; tests swap in
// a stub.
type Fetcher interface {
	Get(ctx context.Context, rawURL string, params url.Values) ([]byte, int, error)
}

// Config holds discovery engine settings
type Config struct {
	// DetailURL is a printf template with one %d verb for the candidate id
	DetailURL string `toml:"detail_url"`
	// Marker must appear (case-insensitively) in a 200 response body for
	// the candidate to count as confirmed
	Marker string `toml:"marker"`
}

// Engine runs candidates from the queue through the fetcher and records
// winners. Strictly single-threaded: one candidate in flight at a time,
// with a mandatory randomized sleep after every attempt.
type Engine struct {
	config   Config
	queue    *queue.Queue
	fetcher  Fetcher
	winners  *WinnerLog
	throttle *fetch.Throttle
	logger   *slog.Logger
}

// New creates a discovery engine
func New(config Config, q *queue.Queue, fetcher Fetcher, winners *WinnerLog, throttle *fetch.Throttle, logger *slog.Logger) *Engine {
	return &Engine{
		config:   config,
		queue:    q,
		fetcher:  fetcher,
		winners:  winners,
		throttle: throttle,
		logger:   logger,
	}
}

// Run processes candidates until the queue empties or the context is
// cancelled. On cancellation the in-flight candidate has already been
// requeued (a cancelled fetch classifies as transient), so persisting the
// queue and returning is all that is left. Run returns nil on both
// completion and cancellation; only a setup-level failure is an error.
func (e *Engine) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)

	logger.Info("starting candidate scan", "remaining", e.queue.Len())
	processed := 0

	for {
		select {
		case <-ctx.Done():
			logger.Info("interrupted, persisting remaining candidates",
				"remaining", e.queue.Len(), "processed", processed)
			e.persistBestEffort(logger)
			return nil
		default:
		}

		id, ok := e.queue.Pop()
		if !ok {
			break
		}

		outcome := e.check(ctx, logger, id)
		switch outcome {
		case OutcomeTransient:
			e.queue.Requeue(id)
		case OutcomeConfirmed, OutcomeRejected:
			// Terminal either way; the id simply stays off the queue
		}
		processed++

		// Uniform throttling: every attempt sleeps, no matter how it went
		e.throttle.Wait(ctx)
	}

	logger.Info("ran out of ids, scan complete", "processed", processed)
	e.persistBestEffort(logger)
	return nil
}

// check fetches one candidate's detail page and classifies it
func (e *Engine) check(ctx context.Context, logger *slog.Logger, id int) Outcome {
	detailURL := fmt.Sprintf(e.config.DetailURL, id)

	body, status, err := e.fetcher.Get(ctx, detailURL, nil)
	if err != nil {
		logger.Warn("fetch failed, requeueing candidate", "candidate", id, "error", err)
		return OutcomeTransient
	}

	if status < 200 || status > 299 {
		logger.Debug("candidate rejected by status", "candidate", id, "status", status)
		return OutcomeRejected
	}

	if !strings.Contains(strings.ToLower(string(body)), strings.ToLower(e.config.Marker)) {
		logger.Debug("candidate missing marker", "candidate", id, "marker", e.config.Marker)
		return OutcomeRejected
	}

	logger.Info("confirmed candidate", "candidate", id, "url", detailURL)
	if err := e.winners.Append(id); err != nil {
		// Requeue rather than lose a confirmed id we failed to record
		logger.Error("couldn't record winner, requeueing", "candidate", id, "error", err)
		return OutcomeTransient
	}
	return OutcomeConfirmed
}

// persistBestEffort writes the queue out; losing persistence should not
// fail an otherwise-successful run, but it must be surfaced.
func (e *Engine) persistBestEffort(logger *slog.Logger) {
	if err := e.queue.Persist(); err != nil {
		logger.Error("couldn't persist candidate queue, progress may repeat", "error", err)
	}
}
