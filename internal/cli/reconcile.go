package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgadling/hyperion/internal/fetch"
	"github.com/dgadling/hyperion/internal/reconcile"
	"github.com/dgadling/hyperion/internal/spartan"
	"github.com/dgadling/hyperion/internal/store"
)

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	var useCache bool

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Fetch the current race list and merge it into the store",
		Long: `Fetch the upstream race listing, normalize it, and merge it into the
local record store. New races and events are inserted; existing ones are
compared field by field and every change is reported and applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rootOpts.Load()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			db, err := store.OpenWithConfig(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			cachePath := ""
			if useCache {
				cachePath = cfg.Spartan.CacheFile
				if cachePath == "" {
					return fmt.Errorf("--cached requires spartan.cache_file in the config")
				}
			}

			fetcher := fetch.NewClient(cfg.Fetch, logger)
			source := spartan.NewSource(fetcher, cfg.Spartan.FindRaceURL, logger)

			races, err := source.Races(ctx, cachePath)
			if err != nil {
				return err
			}

			engine := reconcile.New(db, logger)
			reports, err := engine.Reconcile(races)
			if err != nil {
				return err
			}

			for _, report := range reports {
				fmt.Fprintln(cmd.OutOrStdout(), report.String())
			}
			logger.Info("done", "changed_entities", len(reports))
			return nil
		},
	}

	cmd.Flags().BoolVar(&useCache, "cached", false, "use/refresh the on-disk race list cache")

	return cmd
}
