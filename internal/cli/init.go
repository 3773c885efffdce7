package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/pantry/internal/backend"
	"github.com/mesh-intelligence/pantry/internal/paths"
)

func newInitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config and initialize storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := opts.settings
			wrote, err := writeConfigIfMissing(s.ConfigDir, s)
			if err != nil {
				return sysError("write config", err)
			}

			store, err := backend.Open(cmd.Context(), s.Store)
			if err != nil {
				return sysError("initialize storage", err)
			}
			if err := store.Close(); err != nil {
				return sysError("finalize storage", err)
			}

			out := cmd.OutOrStdout()
			if wrote {
				fmt.Fprintf(out, "Wrote %s\n", paths.ConfigFile(s.ConfigDir))
			}
			fmt.Fprintf(out, "pantry initialized (backend %s)\n", s.Store.Backend)
			return nil
		},
	}
}
