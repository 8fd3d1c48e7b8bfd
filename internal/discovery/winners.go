package discovery

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// WinnerLog is the append-only record of confirmed candidate ids, one id
// per line. Appends are never deduplicated here; a candidate can show up
// twice if two runs overlap the same id, and readers are expected to cope.
type WinnerLog struct {
	f *os.File
}

// OpenWinnerLog opens (creating if needed) the winner log for appending
func OpenWinnerLog(path string) (*WinnerLog, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening winner log %s: %w", path, err)
	}
	return &WinnerLog{f: f}, nil
}

// Append records a confirmed id
func (w *WinnerLog) Append(id int) error {
	if _, err := fmt.Fprintf(w.f, "%d\n", id); err != nil {
		return fmt.Errorf("appending %d to winner log: %w", id, err)
	}
	return nil
}

// Close closes the underlying file
func (w *WinnerLog) Close() error {
	return w.f.Close()
}

// ReadWinners returns the confirmed ids from a winner log, deduplicated
// and in first-seen order. Blank lines are skipped.
func ReadWinners(path string) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening winner log %s: %w", path, err)
	}
	defer f.Close()

	seen := make(map[int]struct{})
	var ids []int

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		id, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("bad winner log line %q: %w", line, err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading winner log %s: %w", path, err)
	}

	return ids, nil
}
