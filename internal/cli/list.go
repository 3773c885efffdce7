package cli

import (
	"github.com/spf13/cobra"
)

func newListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List every product",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()
			return renderRecords(cmd.OutOrStdout(), opts.settings.Output, sess.repo.AllProducts().Value())
		},
	}
}
