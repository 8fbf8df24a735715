package main

import (
	"fmt"

	"github.com/hamza-m-farooqi/pygit/pkg/repo"
	"github.com/spf13/cobra"
)

func newBranchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "branch [<name>]",
		Short: "List or create branches",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				active, _ := r.CurrentBranch()
				branches, err := r.ListBranches()
				if err != nil {
					return err
				}
				for _, b := range branches {
					marker := " "
					if b == active {
						marker = "*"
					}
					fmt.Fprintf(out, "%s %s\n", marker, b)
				}
				return nil
			}

			head, err := r.ResolveRef("HEAD")
			if err != nil {
				return fmt.Errorf("cannot create branch: HEAD does not point to a commit")
			}
			if err := r.CreateBranch(args[0], head); err != nil {
				return err
			}
			fmt.Fprintf(out, "branch %q created at %s\n", args[0], head[:7])
			return nil
		},
	}
}
