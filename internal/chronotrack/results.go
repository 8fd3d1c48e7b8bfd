package chronotrack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dgadling/hyperion/internal/fetch"
)

// RacerResult is one finisher's row from the results grid. Duration is
// normalized from the grid's h:mm:ss string into seconds.
type RacerResult struct {
	ID           int
	Rank         int
	Name         string
	Bib          string
	Duration     int
	Pace         string
	Hometown     string
	Age          int
	Gender       string
	Division     string
	DivisionRank int
}

// racerResultFields is how many columns a grid row must have
const racerResultFields = 11

// Columns returns the CSV header matching Record
func Columns() []string {
	return []string{
		"id", "rank", "name", "bib", "duration", "pace",
		"hometown", "age", "gender", "division", "division_rank",
	}
}

// Record renders the result as CSV fields in Columns order
func (r RacerResult) Record() []string {
	return []string{
		strconv.Itoa(r.ID),
		strconv.Itoa(r.Rank),
		r.Name,
		r.Bib,
		strconv.Itoa(r.Duration),
		r.Pace,
		r.Hometown,
		strconv.Itoa(r.Age),
		r.Gender,
		r.Division,
		strconv.Itoa(r.DivisionRank),
	}
}

// buildRacerResult coerces one raw grid row. The grid serializes most
// numbers as strings, so every numeric field goes through the same
// tolerant conversion.
func buildRacerResult(raw []any) (RacerResult, error) {
	if len(raw) != racerResultFields {
		return RacerResult{}, fmt.Errorf("grid row has %d fields, want %d: %v", len(raw), racerResultFields, raw)
	}

	var result RacerResult
	var err error

	if result.ID, err = asInt(raw[0]); err != nil {
		return RacerResult{}, fmt.Errorf("id: %w (row %v)", err, raw)
	}
	if result.Rank, err = asInt(raw[1]); err != nil {
		return RacerResult{}, fmt.Errorf("rank: %w (row %v)", err, raw)
	}
	result.Name = asString(raw[2])
	result.Bib = asString(raw[3])
	if result.Duration, err = durationSeconds(asString(raw[4])); err != nil {
		return RacerResult{}, fmt.Errorf("duration: %w (row %v)", err, raw)
	}
	result.Pace = asString(raw[5])
	result.Hometown = asString(raw[6])
	if result.Age, err = asInt(raw[7]); err != nil {
		return RacerResult{}, fmt.Errorf("age: %w (row %v)", err, raw)
	}
	result.Gender = asString(raw[8])
	result.Division = asString(raw[9])
	if result.DivisionRank, err = asInt(raw[10]); err != nil {
		return RacerResult{}, fmt.Errorf("division_rank: %w (row %v)", err, raw)
	}

	return result, nil
}

// durationSeconds converts "h:mm:ss" (or "mm:ss") into seconds
func durationSeconds(raw string) (int, error) {
	parts := strings.Split(raw, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("bad duration %q", raw)
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0, fmt.Errorf("bad duration %q: %w", raw, err)
		}
		total = total*60 + n
	}
	return total, nil
}

func asInt(v any) (int, error) {
	switch value := v.(type) {
	case float64:
		return int(value), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(value))
	case json.Number:
		n, err := value.Int64()
		return int(n), err
	default:
		return 0, fmt.Errorf("can't coerce %T to int", v)
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

type gridResponse struct {
	TotalRecords json.Number `json:"iTotalRecords"`
	Rows         [][]any     `json:"aaData"`
}

func (c *Client) resultsPage(ctx context.Context, eventID, raceID, bracketID, start, length int) (*gridResponse, error) {
	raw, err := c.fetcher.GetOK(ctx, c.baseURL+resultsGridPath, url.Values{
		"iDisplayStart":  {strconv.Itoa(start)},
		"iDisplayLength": {strconv.Itoa(length)},
		"raceID":         {strconv.Itoa(raceID)},
		"bracketID":      {strconv.Itoa(bracketID)},
		"eventID":        {strconv.Itoa(eventID)},
	})
	if err != nil {
		return nil, err
	}

	body, err := Unwrap(raw)
	if err != nil {
		return nil, err
	}

	var page gridResponse
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decoding results grid: %w", err)
	}
	return &page, nil
}

// TotalResults fetches how many finisher rows the grid holds for a heat.
// The grid refuses a zero-length page, so this asks for exactly one row.
func (c *Client) TotalResults(ctx context.Context, eventID, raceID, bracketID int) (int, error) {
	page, err := c.resultsPage(ctx, eventID, raceID, bracketID, 0, 1)
	if err != nil {
		return 0, err
	}

	total, err := page.TotalRecords.Int64()
	if err != nil {
		return 0, fmt.Errorf("bad total record count %q: %w", page.TotalRecords.String(), err)
	}
	return int(total), nil
}

// Results pages through the full results grid for one heat, sleeping the
// throttle between pages.
func (c *Client) Results(ctx context.Context, eventID, raceID, bracketID, batchSize int, throttle *fetch.Throttle) ([]RacerResult, error) {
	total, err := c.TotalResults(ctx, eventID, raceID, bracketID)
	if err != nil {
		return nil, err
	}
	c.logger.Info("fetching results", "event_id", eventID, "race_id", raceID, "total", total)

	var results []RacerResult
	for start := 0; start < total; start += batchSize {
		page, err := c.resultsPage(ctx, eventID, raceID, bracketID, start, batchSize)
		if err != nil {
			return nil, err
		}

		for _, row := range page.Rows {
			result, err := buildRacerResult(row)
			if err != nil {
				return nil, err
			}
			results = append(results, result)
		}

		throttle.Wait(ctx)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return results, nil
}
