package cli

import (
	"github.com/spf13/cobra"
)

func newAddCommand(opts *RootOptions) *cobra.Command {
	var name, quantity string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return userError("--name is required", nil)
			}

			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.repo.InsertProduct(name, quantity); err != nil {
				return commandError("add product", err)
			}
			if err := sess.flush(cmd.Context()); err != nil {
				return err
			}
			return renderRecords(cmd.OutOrStdout(), opts.settings.Output, sess.repo.AllProducts().Value())
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "product name")
	cmd.Flags().StringVar(&quantity, "quantity", "", "non-negative whole number")
	return cmd
}
