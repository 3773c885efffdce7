package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/internal/snapshot"
)

func newExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Write every product to FILE as JSONL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			recs := sess.repo.AllProducts().Value()
			if err := snapshot.Write(args[0], recs); err != nil {
				return sysError("export", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d products to %s\n", len(recs), args[0])
			return nil
		},
	}
}

func newImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Add every product in the JSONL FILE",
		Long:  "Add every product in the JSONL FILE. Products get new ids; ids in the file are ignored.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := snapshot.Read(args[0], opts.logger)
			if err != nil {
				return sysError("import", err)
			}

			sess, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			for _, r := range recs {
				if err := sess.repo.InsertProduct(r.Name, strconv.FormatInt(r.Quantity, 10)); err != nil {
					return commandError("import", err)
				}
			}
			if err := sess.flush(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d products from %s\n", len(recs), args[0])
			return nil
		},
	}
}
