package cli

import (
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgadling/hyperion/internal/discovery"
	"github.com/dgadling/hyperion/internal/fetch"
	"github.com/dgadling/hyperion/internal/queue"
)

// NewDiscoverCommand creates the discover command.
func NewDiscoverCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Brute-force the upstream id space for valid events",
		Long: `Scan the configured candidate id range for ids that reference real
timed events. Progress persists across runs: interrupt with Ctrl-C at any
point and the next run picks up where this one stopped.

Confirmed ids are appended to the winners file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := rootOpts.Load()
			if err != nil {
				return err
			}

			ctx, stop := signalContext()
			defer stop()

			q, err := queue.Load(cfg.Discovery.StateFile, cfg.Discovery.Low, cfg.Discovery.High, logger)
			if err != nil {
				return err
			}

			rng := rand.New(rand.NewSource(time.Now().UnixNano()))
			q.Shuffle(rng)

			winners, err := discovery.OpenWinnerLog(cfg.Discovery.WinnersFile)
			if err != nil {
				return err
			}
			defer winners.Close()

			fetcher := fetch.NewClient(cfg.Fetch, logger)
			throttle := fetch.NewThrottle(cfg.Throttle.MinSleep, cfg.Throttle.MaxSleep, rng, logger)

			engine := discovery.New(cfg.Discovery.Engine, q, fetcher, winners, throttle, logger)
			return engine.Run(ctx)
		},
	}
}
