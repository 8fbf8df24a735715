package main

import (
	"fmt"

	"github.com/hamza-m-farooqi/pygit/pkg/repo"
	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var oneline bool
	var maxCount int

	cmd := &cobra.Command{
		Use:   "log [--oneline] [-n <count>]",
		Short: "Show commit history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			head, err := r.ResolveRef("HEAD")
			if err != nil {
				return fmt.Errorf("your current branch does not have any commits yet")
			}

			entries, err := r.Log(head, maxCount)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range entries {
				if oneline {
					fmt.Fprintf(out, "%s %s\n", e.Hash[:7], e.Commit.Summary())
					continue
				}
				fmt.Fprintf(out, "commit %s\n", e.Hash)
				fmt.Fprintf(out, "Author: %s <%s>\n", e.Commit.Author.Name, e.Commit.Author.Email)
				fmt.Fprintln(out)
				if s := e.Commit.Summary(); s != "" {
					fmt.Fprintf(out, "    %s\n", s)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&oneline, "oneline", false, "show one commit per line")
	cmd.Flags().IntVarP(&maxCount, "max-count", "n", 10, "limit the number of commits")
	return cmd
}
