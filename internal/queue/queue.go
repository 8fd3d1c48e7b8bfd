package queue

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
)

// Queue holds the set of candidate ids that have not been checked yet.
// The contents are persisted as a JSON integer array so the state file can
// be inspected and repaired by hand if it ever has to be.
//
// The invariant across a run: persisted ids plus the id currently being
// processed equal the original scan range minus confirmed winners and
// permanently rejected ids.
type Queue struct {
	path   string
	ids    []int
	logger *slog.Logger
}

// Load returns the persisted queue if the state file exists, ignoring the
// range bounds entirely. Otherwise it materializes [low, high], persists it
// immediately, and returns it. Only the very first run depends on the
// bounds; every later run is state-driven.
func Load(path string, low, high int, logger *slog.Logger) (*Queue, error) {
	q := &Queue{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, &q.ids); err != nil {
			return nil, fmt.Errorf("decoding state file %s: %w", path, err)
		}
		logger.Info("loaded persisted candidates", "state_file", path, "count", len(q.ids))
		return q, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading state file %s: %w", path, err)
	}

	if high < low {
		return nil, fmt.Errorf("invalid candidate range [%d, %d]", low, high)
	}

	logger.Info("generating candidates from scratch", "low", low, "high", high)
	q.ids = make([]int, 0, high-low+1)
	for id := low; id <= high; id++ {
		q.ids = append(q.ids, id)
	}

	if err := q.Persist(); err != nil {
		return nil, err
	}
	return q, nil
}

// Persist atomically overwrites the state file with the current contents.
// Write goes to a temp file in the same directory followed by a rename, so
// an interrupt can never leave a truncated state file behind.
func (q *Queue) Persist() error {
	data, err := json.Marshal(q.ids)
	if err != nil {
		return fmt.Errorf("encoding %d candidates: %w", len(q.ids), err)
	}

	dir := filepath.Dir(q.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(q.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp state file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp state file %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp state file %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, q.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state file %s: %w", q.path, err)
	}

	q.logger.Info("persisted candidates", "state_file", q.path, "count", len(q.ids))
	return nil
}

// Shuffle randomizes iteration order for this run so the upstream id space
// is not probed sequentially.
func (q *Queue) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(q.ids), func(i, j int) {
		q.ids[i], q.ids[j] = q.ids[j], q.ids[i]
	})
}

// Pop removes and returns the most recently added id. Order within a run
// does not matter since the queue was shuffled up front.
func (q *Queue) Pop() (int, bool) {
	if len(q.ids) == 0 {
		return 0, false
	}
	id := q.ids[len(q.ids)-1]
	q.ids = q.ids[:len(q.ids)-1]
	return id, true
}

// Requeue pushes an id back onto the tail for another attempt later in the
// run, or so an interrupted in-flight id survives into the next run.
func (q *Queue) Requeue(id int) {
	q.ids = append(q.ids, id)
}

// Len returns the number of ids still waiting to be checked
func (q *Queue) Len() int {
	return len(q.ids)
}

// IDs returns a copy of the remaining ids
func (q *Queue) IDs() []int {
	out := make([]int, len(q.ids))
	copy(out, q.ids)
	return out
}
