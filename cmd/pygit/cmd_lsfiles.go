package main

import (
	"fmt"

	"github.com/hamza-m-farooqi/pygit/pkg/repo"
	"github.com/spf13/cobra"
)

func newLsFilesCmd() *cobra.Command {
	var stage bool

	cmd := &cobra.Command{
		Use:   "ls-files [-s]",
		Short: "List index entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			idx, err := r.LoadIndex()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range idx.Entries() {
				if stage {
					fmt.Fprintf(out, "%o %s %d\t%s\n", e.Mode, e.Hash, e.Stage(), e.Path)
				} else {
					fmt.Fprintln(out, e.Path)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&stage, "stage", "s", false, "show mode and object id")
	return cmd
}
