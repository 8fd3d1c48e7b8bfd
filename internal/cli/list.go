package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgadling/hyperion/internal/reconcile"
	"github.com/dgadling/hyperion/internal/store"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the stored races and their offered categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := rootOpts.Load()
			if err != nil {
				return err
			}

			db, err := store.OpenWithConfig(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			var races []store.Race
			if since != "" {
				day, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("bad --since value %q: %w", since, err)
				}
				races, err = db.RacesStartingOnOrAfter(day)
				if err != nil {
					return err
				}
			} else {
				races, err = db.AllRaces()
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			for _, race := range races {
				events, err := db.EventsForRace(race.SpartanID)
				if err != nil {
					return err
				}

				offered := reconcile.NewCategorySet()
				for _, event := range events {
					offered.Mark(event.Category)
				}

				fmt.Fprintf(out, "%d\t%s\t%s\t%s, %s\t%s\n",
					race.SpartanID,
					race.StartDate.Format("2006-01-02"),
					race.Name,
					race.Region,
					race.Country,
					strings.Join(offered.Offered(), ","))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "only races starting on or after this date (YYYY-MM-DD)")

	return cmd
}
