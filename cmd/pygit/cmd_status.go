package main

import (
	"fmt"

	"github.com/hamza-m-farooqi/pygit/pkg/repo"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			report, err := r.Status()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.Branch != "" {
				fmt.Fprintf(out, "On branch %s\n", report.Branch)
			} else if report.Detached != "" {
				fmt.Fprintf(out, "HEAD detached at %s\n", report.Detached[:7])
			} else {
				fmt.Fprintln(out, "HEAD detached at unknown")
			}
			fmt.Fprintln(out)

			if len(report.Staged) > 0 {
				fmt.Fprintln(out, "Changes to be committed:")
				for _, c := range report.Staged {
					fmt.Fprintf(out, "  %s:   %s\n", paddedKind(c.Kind), c.Path)
				}
				fmt.Fprintln(out)
			}
			if len(report.Unstaged) > 0 {
				fmt.Fprintln(out, "Changes not staged for commit:")
				for _, c := range report.Unstaged {
					fmt.Fprintf(out, "  %s:  %s\n", c.Kind, c.Path)
				}
				fmt.Fprintln(out)
			}
			if len(report.Untracked) > 0 {
				fmt.Fprintln(out, "Untracked files:")
				for _, p := range report.Untracked {
					fmt.Fprintf(out, "  %s\n", p)
				}
				fmt.Fprintln(out)
			}
			if report.Clean() {
				fmt.Fprintln(out, "nothing to commit, working tree clean")
			}
			return nil
		},
	}
}

func paddedKind(kind string) string {
	if kind == "new" {
		return "new file"
	}
	return kind
}
