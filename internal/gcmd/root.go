// Package gcmd holds the cobra commands of the gorvote binary.
package gcmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd returns the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gorvote",
		Short: "Private yes/no voting among a fixed set of consensors",

		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),

		newStatusCmd(),
		newPeersCmd(),
		newProposeCmd(),
		newVoteCmd(),
		newRoundsCmd(),
		newResultsCmd(),
	)

	return root
}
