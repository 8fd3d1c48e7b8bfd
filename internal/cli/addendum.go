package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgadling/hyperion/internal/chronotrack"
	"github.com/dgadling/hyperion/internal/fetch"
)

// interestingFields are the extra model fields worth bolting onto each
// collected event.
var interestingFields = []string{"start_time", "location", "time_zone"}

// NewAddendumCommand creates the addendum command.
func NewAddendumCommand(rootOpts *RootOptions) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "addendum",
		Short: "Enrich the interesting events file with location details",
		Long: `Re-fetch each event in the interesting events file and merge a few extra
fields (start time, location, time zone) into its record. Failures skip
that one event; everything else still gets written out.`,
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

			// Untyped so unknown fields in the file survive the round trip
			var events []map[string]any
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

				name, _ := event["name"].(string)
				logger.Info("looking at event", "name", name)

				id, ok := event["event"].(float64)
				if !ok {
					logger.Warn("skipping event without an id", "name", name)
					continue
				}

				details, err := client.EventDetails(ctx, int(id), interestingFields)
				if err != nil {
					logger.Warn("skipping event", "name", name, "error", err)
					throttle.Wait(ctx)
					continue
				}
				for field, value := range details {
					event[field] = value
				}

				throttle.Wait(ctx)
			}

			logger.Info("writing output", "path", outPath)
			out, err := json.Marshal(events)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, out, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", outPath, err)
			}
			logger.Info("done")
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "event_addendum.json", "where to write the enriched events")

	return cmd
}
