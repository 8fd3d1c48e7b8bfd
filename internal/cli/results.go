package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dgadling/hyperion/internal/chronotrack"
	"github.com/dgadling/hyperion/internal/fetch"
)

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "results",
		Short: "Export finisher results for every interesting event",
		Long: `Page through the results grid for each heat of each interesting event
and write one CSV per heat under <results_dir>/<year>/. Heats that already
have a CSV are skipped, so reruns only fetch what's missing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rootOpts.Load()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			data, err := os.ReadFile(cfg.Chronotrack.InterestingFile)
			if err != nil {
				return fmt.Errorf("reading %s: %w", cfg.Chronotrack.InterestingFile, err)
			}

			var events []chronotrack.EventInfo
			if err := json.Unmarshal(data, &events); err != nil {
				return fmt.Errorf("decoding %s: %w", cfg.Chronotrack.InterestingFile, err)
			}

			fetcher := fetch.NewClient(cfg.Fetch, logger)
			throttle := fetch.NewThrottle(cfg.Throttle.MinSleep, cfg.Throttle.MaxSleep, nil, logger)
			client := chronotrack.NewClient(fetcher, cfg.Chronotrack.BaseURL, logger)

			for _, event := range events {
				if ctx.Err() != nil {
					logger.Info("interrupted, stopping cleanly")
					return nil
				}

				// A zero year means the start time never parsed; there is no
				// sane directory to file these under
				if event.Year == 0 {
					logger.Warn("event has no usable year, skipping",
						"event_id", event.EventID, "date", event.Date)
					continue
				}

				yearDir := filepath.Join(cfg.Chronotrack.ResultsDir, strconv.Itoa(event.Year))
				if err := os.MkdirAll(yearDir, 0o755); err != nil {
					return fmt.Errorf("creating %s: %w", yearDir, err)
				}

				logger.Info("looking at event", "year", event.Year, "name", event.Name)
				for _, heat := range event.Heats {
					path := filepath.Join(yearDir,
						fmt.Sprintf("%d-%d-%d.csv", heat.EventID, heat.RaceID, heat.BracketID))
					if _, err := os.Stat(path); err == nil {
						logger.Info("results already exported, skipping", "path", path)
						continue
					}

					results, err := client.Results(ctx, heat.EventID, heat.RaceID, heat.BracketID,
						cfg.Chronotrack.BatchSize, throttle)
					if err != nil {
						logger.Warn("skipping heat",
							"race_id", heat.RaceID, "bracket_id", heat.BracketID, "error", err)
						continue
					}

					if err := writeResultsCSV(path, results); err != nil {
						return err
					}
					logger.Info("wrote results", "path", path, "count", len(results))
				}
			}

			return nil
		},
	}
}

func writeResultsCSV(path string, results []chronotrack.RacerResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(chronotrack.Columns()); err != nil {
		return fmt.Errorf("writing header to %s: %w", path, err)
	}
	for _, result := range results {
		if err := w.Write(result.Record()); err != nil {
			return fmt.Errorf("writing row to %s: %w", path, err)
		}
	}
	w.Flush()
	return w.Error()
}
