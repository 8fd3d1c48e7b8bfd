package chronotrack

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgadling/hyperion/internal/fetch"
)

const (
	loadModelPath   = "/embed/results/load-model"
	resultsGridPath = "/embed/results/results-grid"
)

// startTimeLayouts are the two formats the upstream has been seen using.
// Which one you get appears to depend on the event's locale.
var startTimeLayouts = []string{
	"Jan 2, 2006 3:04PM",
	"2 Jan, 2006 3:04PM",
}

// Heat is one runnable race within a timed event, addressed by the triple
// the results grid wants.
type Heat struct {
	EventID   int    `json:"event_id"`
	RaceID    int    `json:"race_id"`
	BracketID int    `json:"bracket_id"`
	Heat      string `json:"heat"`
}

// EventInfo is the normalized description of one timed event. When the
// start time doesn't match a known layout, Year stays zero and Date holds
// the raw upstream string so nothing is lost.
type EventInfo struct {
	EventID int    `json:"event"`
	Name    string `json:"name"`
	Year    int    `json:"year,omitempty"`
	Date    string `json:"date"`
	Heats   []Heat `json:"races"`
}

// Interesting reports whether the event has at least one heat worth
// fetching results for.
func (e *EventInfo) Interesting() bool {
	return len(e.Heats) > 0
}

// Client wraps the fetch client with the timing endpoints
type Client struct {
	fetcher *fetch.Client
	baseURL string
	logger  *slog.Logger
}

// NewClient creates a chronotrack client rooted at baseURL
func NewClient(fetcher *fetch.Client, baseURL string, logger *slog.Logger) *Client {
	return &Client{
		fetcher: fetcher,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

type loadModelRace struct {
	Name             string      `json:"name"`
	DefaultBracketID json.Number `json:"default_bracket_id"`
}

type loadModelResponse struct {
	Model struct {
		Name      string          `json:"name"`
		StartTime string          `json:"start_time"`
		Races     json.RawMessage `json:"races"`
	} `json:"model"`
}

// EventInfo fetches and normalizes the load-model record for one event
func (c *Client) EventInfo(ctx context.Context, eventID int) (*EventInfo, error) {
	body, err := c.loadModel(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var resp loadModelResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding load-model for event %d: %w", eventID, err)
	}

	info := &EventInfo{
		EventID: eventID,
		Name:    strings.TrimSpace(strings.SplitN(resp.Model.Name, "-", 2)[0]),
	}

	if t, ok := parseStartTime(resp.Model.StartTime); ok {
		info.Year = t.Year()
		info.Date = t.Format("2006-01-02")
	} else {
		c.logger.Warn("bad start time format, keeping raw value",
			"event_id", eventID, "start_time", resp.Model.StartTime)
		info.Date = resp.Model.StartTime
	}

	// races is {} / a map when present, sometimes [] when empty; a failed
	// decode just means no heats
	var races map[string]loadModelRace
	if len(resp.Model.Races) > 0 {
		_ = json.Unmarshal(resp.Model.Races, &races)
	}

	for raceID, race := range races {
		id, err := strconv.Atoi(raceID)
		if err != nil {
			c.logger.Warn("skipping race with non-numeric id", "event_id", eventID, "race_id", raceID)
			continue
		}
		bracketID, err := race.DefaultBracketID.Int64()
		if err != nil {
			c.logger.Warn("skipping race with bad bracket id",
				"event_id", eventID, "race_id", raceID, "bracket_id", race.DefaultBracketID.String())
			continue
		}

		heat := race.Name
		if _, after, found := strings.Cut(race.Name, " - "); found {
			heat = strings.ToLower(after)
		}

		info.Heats = append(info.Heats, Heat{
			EventID:   eventID,
			RaceID:    id,
			BracketID: int(bracketID),
			Heat:      heat,
		})
	}

	return info, nil
}

// EventDetails fetches the raw load-model record and returns just the
// requested model fields, untyped. Used to bolt extra fields (location,
// time zone) onto already-collected events.
func (c *Client) EventDetails(ctx context.Context, eventID int, fields []string) (map[string]any, error) {
	body, err := c.loadModel(ctx, eventID)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Model map[string]any `json:"model"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding load-model for event %d: %w", eventID, err)
	}

	details := make(map[string]any, len(fields))
	for _, field := range fields {
		if value, ok := resp.Model[field]; ok {
			details[field] = value
		}
	}
	return details, nil
}

func (c *Client) loadModel(ctx context.Context, eventID int) ([]byte, error) {
	raw, err := c.fetcher.GetOK(ctx, c.baseURL+loadModelPath, url.Values{
		"modelID": {"event"},
		"eventID": {strconv.Itoa(eventID)},
	})
	if err != nil {
		return nil, err
	}
	return Unwrap(raw)
}

func parseStartTime(raw string) (time.Time, bool) {
	for _, layout := range startTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
