package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgadling/hyperion/internal/fetch"
	"github.com/dgadling/hyperion/internal/queue"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type stubResponse struct {
	body   string
	status int
}

// stubFetcher classifies candidates by the id at the end of the URL.
// Ids listed in transient fail with a transport error that many times
// before their real response applies.
type stubFetcher struct {
	responses map[int]stubResponse
	transient map[int]int
	calls     []int

	// onCall, when set, runs before each response (used to cancel a
	// context partway through a run)
	onCall func(call int)
}

func (s *stubFetcher) Get(ctx context.Context, rawURL string, params url.Values) ([]byte, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	idx := strings.LastIndex(rawURL, "-")
	id, err := strconv.Atoi(rawURL[idx+1:])
	if err != nil {
		return nil, 0, fmt.Errorf("stub can't parse candidate from %q", rawURL)
	}

	s.calls = append(s.calls, id)
	if s.onCall != nil {
		s.onCall(len(s.calls))
	}
	// A cancel during the request surfaces as a transport error, the same
	// way http.Client reports it
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	if remaining := s.transient[id]; remaining > 0 {
		s.transient[id] = remaining - 1
		return nil, 0, errors.New("connection reset by peer")
	}

	resp, ok := s.responses[id]
	if !ok {
		return []byte("nothing here"), 404, nil
	}
	return []byte(resp.body), resp.status, nil
}

const testDetailURL = "http://timing.test/event/results/event/event-%d"

func testConfig() Config {
	return Config{DetailURL: testDetailURL, Marker: "spartan"}
}

func testEngine(t *testing.T, q *queue.Queue, fetcher Fetcher, winnersPath string) *Engine {
	t.Helper()

	winners, err := OpenWinnerLog(winnersPath)
	require.NoError(t, err)
	t.Cleanup(func() { winners.Close() })

	throttle := fetch.NewThrottle(0, 0, nil, testLogger())
	return New(testConfig(), q, fetcher, winners, throttle, testLogger())
}

func loadQueue(t *testing.T, path string, low, high int) *queue.Queue {
	t.Helper()
	q, err := queue.Load(path, low, high, testLogger())
	require.NoError(t, err)
	return q
}

func persistedIDs(t *testing.T, path string) []int {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var ids []int
	require.NoError(t, json.Unmarshal(data, &ids))
	return ids
}

func TestRunClassifiesEveryCandidate(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	winnersPath := filepath.Join(dir, "winners.txt")

	fetcher := &stubFetcher{
		responses: map[int]stubResponse{
			1: {body: "page not found", status: 404},
			2: {body: "Totally a SPARTAN results page", status: 200},
			3: {body: "some other race series", status: 200},
		},
	}

	q := loadQueue(t, statePath, 1, 3)
	engine := testEngine(t, q, fetcher, winnersPath)
	require.NoError(t, engine.Run(context.Background()))

	// Every id ended terminal: confirmed or rejected, none pending
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, persistedIDs(t, statePath), "state file should persist as empty")

	winners, err := ReadWinners(winnersPath)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, winners)
}

func TestRunMatchesMarkerCaseInsensitively(t *testing.T) {
	dir := t.TempDir()
	winnersPath := filepath.Join(dir, "winners.txt")

	fetcher := &stubFetcher{
		responses: map[int]stubResponse{
			1: {body: "spartan race up ahead", status: 200},
			2: {body: "SPARTAN RACE UP AHEAD", status: 200},
		},
	}

	q := loadQueue(t, filepath.Join(dir, "state.json"), 1, 2)
	engine := testEngine(t, q, fetcher, winnersPath)
	require.NoError(t, engine.Run(context.Background()))

	winners, err := ReadWinners(winnersPath)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{1, 2}, winners)
}

func TestRunRetriesTransientFailures(t *testing.T) {
	dir := t.TempDir()
	winnersPath := filepath.Join(dir, "winners.txt")

	fetcher := &stubFetcher{
		responses: map[int]stubResponse{
			1: {body: "a spartan page", status: 200},
		},
		transient: map[int]int{1: 2},
	}

	q := loadQueue(t, filepath.Join(dir, "state.json"), 1, 1)
	engine := testEngine(t, q, fetcher, winnersPath)
	require.NoError(t, engine.Run(context.Background()))

	assert.Equal(t, []int{1, 1, 1}, fetcher.calls, "two transient failures then success")

	winners, err := ReadWinners(winnersPath)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, winners)
}

func TestRunPersistsOnInterrupt(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	winnersPath := filepath.Join(dir, "winners.txt")

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &stubFetcher{
		responses: map[int]stubResponse{
			1: {body: "spartan", status: 200}, 2: {body: "spartan", status: 200},
			3: {body: "spartan", status: 200}, 4: {body: "spartan", status: 200},
			5: {body: "spartan", status: 200},
		},
		onCall: func(call int) {
			if call == 2 {
				cancel()
			}
		},
	}

	q := loadQueue(t, statePath, 1, 5)
	engine := testEngine(t, q, fetcher, winnersPath)
	require.NoError(t, engine.Run(ctx), "interrupt is a clean exit, not an error")

	// One candidate finished, the second was in flight when the cancel
	// hit and got requeued; the untouched three plus the requeued one
	// survive in the state file
	remaining := persistedIDs(t, statePath)
	assert.Len(t, remaining, 4)
}

func TestRunRequeuesInFlightCandidateOnInterrupt(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	winnersPath := filepath.Join(dir, "winners.txt")

	ctx, cancel := context.WithCancel(context.Background())
	// Cancelling before responding makes the in-flight fetch fail with the
	// context error, which must class as transient and requeue the id
	fetcher := &stubFetcher{
		onCall: func(call int) {
			cancel()
		},
	}

	q := loadQueue(t, statePath, 7, 7)
	engine := testEngine(t, q, fetcher, winnersPath)
	require.NoError(t, engine.Run(ctx))

	assert.Equal(t, []int{7}, persistedIDs(t, statePath),
		"the in-flight candidate must survive the interrupt as pending")
}

func TestInterruptedThenResumedMatchesUninterruptedRun(t *testing.T) {
	newFetcher := func(cancel context.CancelFunc, cancelAt int) *stubFetcher {
		return &stubFetcher{
			responses: map[int]stubResponse{
				2: {body: "spartan sprint", status: 200},
				4: {body: "spartan beast", status: 200},
				5: {body: "trail series", status: 200},
			},
			onCall: func(call int) {
				if cancel != nil && call == cancelAt {
					cancel()
				}
			},
		}
	}

	// Uninterrupted reference run
	refDir := t.TempDir()
	refWinners := filepath.Join(refDir, "winners.txt")
	q := loadQueue(t, filepath.Join(refDir, "state.json"), 1, 6)
	engine := testEngine(t, q, newFetcher(nil, 0), refWinners)
	require.NoError(t, engine.Run(context.Background()))

	expected, err := ReadWinners(refWinners)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{2, 4}, expected)

	// Interrupted run, then a resume against the persisted state
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	winnersPath := filepath.Join(dir, "winners.txt")

	ctx, cancel := context.WithCancel(context.Background())
	q = loadQueue(t, statePath, 1, 6)
	engine = testEngine(t, q, newFetcher(cancel, 3), winnersPath)
	require.NoError(t, engine.Run(ctx))
	require.Greater(t, q.Len(), 0, "interrupt should leave work behind")

	// The range passed here is deliberately wrong; resume must be fully
	// state-driven
	q = loadQueue(t, statePath, 100, 200)
	engine = testEngine(t, q, newFetcher(nil, 0), winnersPath)
	require.NoError(t, engine.Run(context.Background()))

	resumed, err := ReadWinners(winnersPath)
	require.NoError(t, err)
	assert.ElementsMatch(t, expected, resumed)
	assert.Empty(t, persistedIDs(t, statePath))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "confirmed", OutcomeConfirmed.String())
	assert.Equal(t, "rejected", OutcomeRejected.String())
	assert.Equal(t, "transient", OutcomeTransient.String())
}
