package main

import (
	"fmt"

	"github.com/hamza-m-farooqi/pygit/pkg/repo"
	"github.com/spf13/cobra"
)

func newRestoreCmd() *cobra.Command {
	var staged bool

	cmd := &cobra.Command{
		Use:   "restore --staged <path>...",
		Short: "Restore index entries from HEAD",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !staged {
				return fmt.Errorf("only --staged restore is implemented")
			}
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			return r.RestoreStaged(args)
		},
	}
	cmd.Flags().BoolVar(&staged, "staged", false, "restore staged content only")
	return cmd
}
