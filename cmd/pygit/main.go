package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "pygit",
		Short:         "Minimal Git-compatible version control",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newHashObjectCmd())
	root.AddCommand(newCatFileCmd())
	root.AddCommand(newAddCmd())
	root.AddCommand(newLsFilesCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newDiffCmd())
	root.AddCommand(newWriteTreeCmd())
	root.AddCommand(newCommitCmd())
	root.AddCommand(newLogCmd())
	root.AddCommand(newRevParseCmd())
	root.AddCommand(newBranchCmd())
	root.AddCommand(newCheckoutCmd())
	root.AddCommand(newRmCmd())
	root.AddCommand(newRestoreCmd())
	root.AddCommand(newResetCmd())
	root.AddCommand(newRemoteCmd())
	root.AddCommand(newPushCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "pygit 0.1.0-dev")
		},
	}
}
