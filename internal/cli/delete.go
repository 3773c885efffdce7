package cli

import (
	"github.com/spf13/cobra"
)

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete every product named NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.repo.DeleteProduct(args[0]); err != nil {
				return commandError("delete product", err)
			}
			if err := sess.flush(cmd.Context()); err != nil {
				return err
			}
			return renderRecords(cmd.OutOrStdout(), opts.settings.Output, sess.repo.AllProducts().Value())
		},
	}
}
