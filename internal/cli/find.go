package cli

import (
	"github.com/spf13/cobra"
)

func newFindCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find NAME",
		Short: "Show the products named NAME",
		Long:  "Show the products whose name equals NAME exactly. Matching is case-sensitive.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.repo.FindProduct(args[0]); err != nil {
				return commandError("find product", err)
			}
			if err := sess.flush(cmd.Context()); err != nil {
				return err
			}
			return renderRecords(cmd.OutOrStdout(), opts.settings.Output, sess.repo.SearchResults().Value())
		},
	}
}
