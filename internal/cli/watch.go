package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

func newWatchCommand(opts *RootOptions) *cobra.Command {
	var (
		interval time.Duration
		count    int
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the product list every time it changes",
		Long: "Print the product list, then print it again whenever it changes,\n" +
			"until interrupted. The store is polled every --interval.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			sess, err := openSession(ctx, opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			out := cmd.OutOrStdout()
			format := opts.settings.Output
			var (
				last    []types.Record
				printed int
			)
			// Runs on the delivery queue, one update at a time.
			sub := sess.repo.AllProducts().Subscribe(func(recs []types.Record) {
				if printed > 0 && slices.Equal(recs, last) {
					return
				}
				if printed > 0 && format == outputTable {
					fmt.Fprintln(out)
				}
				if err := renderRecords(out, format, recs); err != nil {
					opts.logger.Error("render update", "error", err)
				}
				last = recs
				printed++
				if count > 0 && printed >= count {
					cancel()
				}
			})
			defer sub.Cancel()

			var tick <-chan time.Time
			if interval > 0 {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				tick = ticker.C
			}
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-tick:
					if err := sess.repo.Refresh(); err != nil {
						return sysError("refresh", err)
					}
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "poll interval (0 disables polling)")
	cmd.Flags().IntVar(&count, "count", 0, "exit after printing this many lists (0 means no limit)")
	return cmd
}
