package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgadling/hyperion/internal/chronotrack"
	"github.com/dgadling/hyperion/internal/discovery"
	"github.com/dgadling/hyperion/internal/fetch"
)

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Fetch event details for every discovered winner",
		Long: `Read the winners file, fetch the timing record for each id that doesn't
already have one on disk, and write it under the event info directory.
Events with at least one heat are then collected into the interesting
events file for the results exporter.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rootOpts.Load()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			ids, err := discovery.ReadWinners(cfg.Discovery.WinnersFile)
			if err != nil {
				return err
			}
			logger.Info("loaded winners", "count", len(ids))

			infoDir := cfg.Chronotrack.EventInfoDir
			if err := os.MkdirAll(infoDir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", infoDir, err)
			}

			fetcher := fetch.NewClient(cfg.Fetch, logger)
			throttle := fetch.NewThrottle(cfg.Throttle.MinSleep, cfg.Throttle.MaxSleep, nil, logger)
			client := chronotrack.NewClient(fetcher, cfg.Chronotrack.BaseURL, logger)

			for _, id := range ids {
				if ctx.Err() != nil {
					logger.Info("interrupted, stopping cleanly")
					return nil
				}

				path := filepath.Join(infoDir, fmt.Sprintf("%d.json", id))
				if _, err := os.Stat(path); err == nil {
					logger.Debug("event info already on disk, skipping", "event_id", id, "path", path)
					continue
				}

				logger.Info("getting info", "event_id", id)
				info, err := client.EventInfo(ctx, id)
				if err != nil {
					logger.Warn("skipping event", "event_id", id, "error", err)
					throttle.Wait(ctx)
					continue
				}

				data, err := json.Marshal(info)
				if err != nil {
					return fmt.Errorf("encoding event %d: %w", id, err)
				}
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", path, err)
				}

				throttle.Wait(ctx)
			}

			return compileInteresting(cfg.Chronotrack.EventInfoDir, cfg.Chronotrack.InterestingFile, logger)
		},
	}
}

// compileInteresting gathers every stored event info with at least one
// heat into one file the results exporter reads.
func compileInteresting(infoDir, outPath string, logger *slog.Logger) error {
	entries, err := os.ReadDir(infoDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", infoDir, err)
	}

	var interesting []chronotrack.EventInfo
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		path := filepath.Join(infoDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		var info chronotrack.EventInfo
		if err := json.Unmarshal(data, &info); err != nil {
			logger.Warn("skipping unreadable event info", "path", path, "error", err)
			continue
		}

		if !info.Interesting() {
			continue
		}
		logger.Info("found interesting event", "name", info.Name, "heats", len(info.Heats))
		interesting = append(interesting, info)
	}

	logger.Info("persisting interesting events", "count", len(interesting), "path", outPath)
	data, err := json.Marshal(interesting)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}
