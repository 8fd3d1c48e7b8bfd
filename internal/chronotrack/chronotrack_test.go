package chronotrack

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgadling/hyperion/internal/fetch"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testServerClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(fetch.NewClient(fetch.DefaultConfig(), testLogger()), server.URL, testLogger())
}

// wrap reproduces the jsonp-style shell the live endpoints use
func wrap(json string) string {
	return "(" + json + ");"
}

func TestUnwrap(t *testing.T) {
	body, err := Unwrap([]byte(wrap(`{"model": {"name": "x"}}`)))
	require.NoError(t, err)
	assert.Equal(t, `{"model": {"name": "x"}}`, string(body))
}

func TestUnwrapRejectsNonJSON(t *testing.T) {
	_, err := Unwrap([]byte("<html>502 bad gateway</html>"))
	assert.ErrorIs(t, err, ErrNotWrappedJSON)
}

func TestEventInfo(t *testing.T) {
	client := testServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, loadModelPath, r.URL.Path)
		assert.Equal(t, "event", r.URL.Query().Get("modelID"))
		assert.Equal(t, "31337", r.URL.Query().Get("eventID"))

		fmt.Fprint(w, wrap(`{
			"model": {
				"name": "Monterey Spartan Sprint - 2023",
				"start_time": "Jun 10, 2023 8:00AM",
				"races": {
					"900": {"name": "Spartan Sprint - Elite Men", "default_bracket_id": 77},
					"901": {"name": "Open Heat", "default_bracket_id": "78"}
				}
			}
		}`))
	})

	info, err := client.EventInfo(context.Background(), 31337)
	require.NoError(t, err)

	assert.Equal(t, 31337, info.EventID)
	assert.Equal(t, "Monterey Spartan Sprint", info.Name, "name keeps only the part before the dash")
	assert.Equal(t, 2023, info.Year)
	assert.Equal(t, "2023-06-10", info.Date)
	assert.True(t, info.Interesting())

	require.Len(t, info.Heats, 2)
	sort.Slice(info.Heats, func(i, j int) bool { return info.Heats[i].RaceID < info.Heats[j].RaceID })

	assert.Equal(t, Heat{EventID: 31337, RaceID: 900, BracketID: 77, Heat: "elite men"}, info.Heats[0])
	// No " - " separator keeps the raw name
	assert.Equal(t, Heat{EventID: 31337, RaceID: 901, BracketID: 78, Heat: "Open Heat"}, info.Heats[1])
}

func TestEventInfoAlternateDateLayout(t *testing.T) {
	client := testServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, wrap(`{"model": {"name": "EU Race", "start_time": "10 Jun, 2023 8:00AM"}}`))
	})

	info, err := client.EventInfo(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2023, info.Year)
	assert.Equal(t, "2023-06-10", info.Date)
}

func TestEventInfoKeepsRawDateOnBadFormat(t *testing.T) {
	client := testServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, wrap(`{"model": {"name": "Weird Race", "start_time": "sometime in June"}}`))
	})

	info, err := client.EventInfo(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Year)
	assert.Equal(t, "sometime in June", info.Date)
	assert.False(t, info.Interesting())
}

func TestEventInfoEmptyRacesList(t *testing.T) {
	// Some events serialize an empty race set as an array
	client := testServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, wrap(`{"model": {"name": "Lonely Race", "start_time": "Jun 10, 2023 8:00AM", "races": []}}`))
	})

	info, err := client.EventInfo(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, info.Heats)
}

func TestEventDetailsPicksRequestedFields(t *testing.T) {
	client := testServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, wrap(`{"model": {
			"name": "x", "start_time": "Jun 10, 2023 8:00AM",
			"location": "Monterey, CA", "time_zone": "America/Los_Angeles",
			"secret_internal_field": true
		}}`))
	})

	details, err := client.EventDetails(context.Background(), 1, []string{"start_time", "location", "time_zone"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"start_time": "Jun 10, 2023 8:00AM",
		"location":   "Monterey, CA",
		"time_zone":  "America/Los_Angeles",
	}, details)
}

func TestDurationSeconds(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"1:02:03", 3723},
		{"0:59:59", 3599},
		{"12:34", 754},
		{"45", 45},
	}
	for _, tc := range cases {
		got, err := durationSeconds(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}

	_, err := durationSeconds("1:02:03:04")
	assert.Error(t, err)
	_, err = durationSeconds("DNF")
	assert.Error(t, err)
}

func TestBuildRacerResult(t *testing.T) {
	row := []any{
		float64(123456), "4", "Ada Lovelace", "1815", "1:23:45", "8:05/mi",
		"London, UK", float64(36), "F", "F35-39", "2",
	}

	result, err := buildRacerResult(row)
	require.NoError(t, err)
	assert.Equal(t, RacerResult{
		ID:           123456,
		Rank:         4,
		Name:         "Ada Lovelace",
		Bib:          "1815",
		Duration:     5025,
		Pace:         "8:05/mi",
		Hometown:     "London, UK",
		Age:          36,
		Gender:       "F",
		Division:     "F35-39",
		DivisionRank: 2,
	}, result)
}

func TestBuildRacerResultWrongFieldCount(t *testing.T) {
	_, err := buildRacerResult([]any{"too", "short"})
	assert.Error(t, err)
}

func TestRecordMatchesColumns(t *testing.T) {
	result := RacerResult{ID: 1, Rank: 2, Name: "x", Duration: 60}
	assert.Len(t, result.Record(), len(Columns()))
}

func TestResultsPagesThroughGrid(t *testing.T) {
	row := func(id, rank int) string {
		return fmt.Sprintf(`[%d, %d, "Runner %d", "%d", "0:30:00", "9:00/mi", "Somewhere", 30, "M", "M30-34", %d]`,
			id, rank, rank, id, rank)
	}

	var starts []string
	client := testServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, resultsGridPath, r.URL.Path)
		start := r.URL.Query().Get("iDisplayStart")
		starts = append(starts, start)

		var rows string
		switch start {
		case "0":
			if r.URL.Query().Get("iDisplayLength") == "1" {
				rows = row(1, 1) // metadata probe
			} else {
				rows = row(1, 1) + "," + row(2, 2)
			}
		case "2":
			rows = row(3, 3)
		}
		fmt.Fprint(w, wrap(fmt.Sprintf(`{"iTotalRecords": "3", "aaData": [%s]}`, rows)))
	})

	throttle := fetch.NewThrottle(0, 0, nil, testLogger())
	results, err := client.Results(context.Background(), 31337, 900, 77, 2, throttle)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, []string{"0", "0", "2"}, starts, "one metadata probe then two pages")
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 3, results[2].Rank)
	assert.Equal(t, 1800, results[0].Duration)
}
