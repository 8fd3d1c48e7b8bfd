package spartan

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgadling/hyperion/internal/fetch"
)

const racesMarker = "window.races"

// ErrNoRaceList is returned when the find-race page has no race list line
var ErrNoRaceList = errors.New("spartan: couldn't find race list in page")

// ExtractRaces scans a find-race page body for the `window.races = [...];`
// line and parses the array it carries.
func ExtractRaces(body []byte) ([]RacePayload, error) {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, racesMarker) {
			continue
		}

		// Drop everything through the assignment and the trailing semicolon
		_, list, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		list = strings.TrimSuffix(strings.TrimSpace(list), ";")

		var races []RacePayload
		if err := json.Unmarshal([]byte(list), &races); err != nil {
			return nil, fmt.Errorf("decoding race list: %w", err)
		}
		return races, nil
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning page: %w", err)
	}
	return nil, ErrNoRaceList
}

// Source fetches the current race list, optionally caching the raw list on
// disk. A readable cache file wins over the network; any problem with the
// cache just means we fetch.
type Source struct {
	fetcher *fetch.Client
	url     string
	logger  *slog.Logger
}

// NewSource creates a race list source over the given find-race URL
func NewSource(fetcher *fetch.Client, url string, logger *slog.Logger) *Source {
	return &Source{
		fetcher: fetcher,
		url:     url,
		logger:  logger,
	}
}

// Races returns the race list. When cachePath is non-empty, a cached copy
// is used if present; otherwise the fetched list is written back to the
// cache on a best-effort basis. A cache write failure is logged and never
// fails the fetch.
func (s *Source) Races(ctx context.Context, cachePath string) ([]RacePayload, error) {
	if cachePath != "" {
		races, err := loadCached(cachePath)
		if err == nil {
			s.logger.Info("using cached race list", "cache_file", cachePath, "count", len(races))
			return races, nil
		}
		if !os.IsNotExist(err) {
			s.logger.Warn("ignoring unreadable race list cache", "cache_file", cachePath, "error", err)
		}
	}

	body, err := s.fetcher.GetOK(ctx, s.url, nil)
	if err != nil {
		return nil, err
	}

	races, err := ExtractRaces(body)
	if err != nil {
		return nil, err
	}

	if cachePath != "" {
		if err := saveCached(cachePath, races); err != nil {
			s.logger.Warn("couldn't persist race list cache, continuing",
				"cache_file", cachePath, "error", err)
		} else {
			s.logger.Info("persisted race list cache", "cache_file", cachePath)
		}
	}

	return races, nil
}

func loadCached(path string) ([]RacePayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var races []RacePayload
	if err := json.Unmarshal(data, &races); err != nil {
		return nil, err
	}
	return races, nil
}

func saveCached(path string, races []RacePayload) error {
	data, err := json.Marshal(races)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
