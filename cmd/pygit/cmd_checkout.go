package main

import (
	"fmt"

	"github.com/hamza-m-farooqi/pygit/pkg/repo"
	"github.com/spf13/cobra"
)

func newCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout <branch-or-rev>",
		Short: "Switch branches or detach HEAD at a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			result, err := r.Checkout(args[0])
			if err != nil {
				return err
			}
			if result.Branch != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "switched to branch %q\n", result.Branch)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "HEAD is now at %s\n", result.Detached[:7])
			}
			return nil
		},
	}
}
