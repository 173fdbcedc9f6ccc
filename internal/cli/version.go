package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the todostore release version.
const Version = "0.1.0"

const modulePath = "github.com/mesh-intelligence/todostore"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the todostore version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "todostore v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
