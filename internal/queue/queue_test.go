package queue

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func statePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "state.json")
}

func TestLoadMaterializesRangeOnFirstRun(t *testing.T) {
	path := statePath(t)

	q, err := Load(path, 5, 9, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 5, q.Len())
	assert.Equal(t, []int{5, 6, 7, 8, 9}, q.IDs())

	// The first run persists immediately so an interrupt before any
	// progress still leaves a state file behind
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var persisted []int
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, []int{5, 6, 7, 8, 9}, persisted)
}

func TestLoadPrefersPersistedStateOverRange(t *testing.T) {
	path := statePath(t)
	require.NoError(t, os.WriteFile(path, []byte("[42, 7]"), 0o644))

	// Completely different bounds must be ignored once state exists
	q, err := Load(path, 1, 1000, testLogger())
	require.NoError(t, err)

	assert.Equal(t, []int{42, 7}, q.IDs())
}

func TestLoadRejectsInvalidRange(t *testing.T) {
	_, err := Load(statePath(t), 10, 5, testLogger())
	assert.Error(t, err)
}

func TestLoadRejectsCorruptStateFile(t *testing.T) {
	path := statePath(t)
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	_, err := Load(path, 1, 10, testLogger())
	assert.Error(t, err)
}

func TestPersistRoundTrips(t *testing.T) {
	path := statePath(t)

	q, err := Load(path, 1, 6, testLogger())
	require.NoError(t, err)

	q.Pop()
	q.Pop()
	q.Requeue(99)
	require.NoError(t, q.Persist())

	reloaded, err := Load(path, 0, 0, testLogger())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 99}, reloaded.IDs())
}

func TestPersistLeavesNoTempFilesBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	q, err := Load(path, 1, 3, testLogger())
	require.NoError(t, err)
	require.NoError(t, q.Persist())

	var names []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names = append(names, d.Name())
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"state.json"}, names)
}

func TestPopAndRequeue(t *testing.T) {
	q, err := Load(statePath(t), 1, 3, testLogger())
	require.NoError(t, err)

	id, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 3, id)

	q.Requeue(id)
	again, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 3, again)

	q.Pop()
	q.Pop()
	_, ok = q.Pop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestShufflePreservesMembership(t *testing.T) {
	q, err := Load(statePath(t), 1, 100, testLogger())
	require.NoError(t, err)

	before := q.IDs()
	q.Shuffle(rand.New(rand.NewSource(1)))
	after := q.IDs()

	assert.NotEqual(t, before, after, "seeded shuffle of 100 ids should reorder")

	sort.Ints(after)
	assert.Equal(t, before, after)
}
