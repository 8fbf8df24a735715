package main

import (
	"fmt"

	"github.com/hamza-m-farooqi/pygit/pkg/repo"
	"github.com/spf13/cobra"
)

func newResetCmd() *cobra.Command {
	var soft, mixed bool

	cmd := &cobra.Command{
		Use:   "reset [--soft|--mixed] <rev>",
		Short: "Move HEAD to another commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if soft && mixed {
				return fmt.Errorf("--soft and --mixed are mutually exclusive")
			}
			mode := repo.ResetMixed
			label := "mixed"
			if soft {
				mode = repo.ResetSoft
				label = "soft"
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			target, err := r.Reset(args[0], mode)
			if err != nil {
				return err
			}

			branch, _ := r.CurrentBranch()
			if branch == "" {
				branch = "HEAD"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %s to %s (%s)\n", branch, target[:7], label)
			return nil
		},
	}
	cmd.Flags().BoolVar(&soft, "soft", false, "move HEAD only")
	cmd.Flags().BoolVar(&mixed, "mixed", false, "move HEAD and reset the index to the target tree")
	return cmd
}
