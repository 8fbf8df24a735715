package main

import (
	"fmt"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
	"github.com/hamza-m-farooqi/pygit/pkg/remote"
	"github.com/hamza-m-farooqi/pygit/pkg/repo"
	"github.com/spf13/cobra"
)

func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push [<remote>] [<branch>]",
		Short: "Push a branch to a remote",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			remoteName := "origin"
			if len(args) > 0 {
				remoteName = args[0]
			}
			branch := ""
			if len(args) > 1 {
				branch = args[1]
			} else {
				branch, err = r.CurrentBranch()
				if err != nil {
					return err
				}
				if branch == "" {
					return fmt.Errorf("push: HEAD is detached; name a branch to push")
				}
			}

			newHash, err := r.ResolveRef("refs/heads/" + branch)
			if err != nil {
				return fmt.Errorf("push: branch %q has no commits", branch)
			}

			url, err := r.RemoteURL(remoteName)
			if err != nil {
				return err
			}
			client, err := remote.NewClient(url, remote.ClientOptions{Timeout: r.HTTPTimeout()})
			if err != nil {
				return err
			}

			result, err := client.PushBranch(r.Store, branch, newHash)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.UpToDate {
				fmt.Fprintf(out, "%s: everything up to date\n", result.Ref)
				return nil
			}
			fmt.Fprintf(out, "%s: %s -> %s (%d objects)\n",
				result.Ref, shortID(result.Old), shortID(result.New), result.Objects)
			return nil
		},
	}
}

func shortID(h object.Hash) string {
	if h == object.ZeroHash {
		return "(new branch)"
	}
	return string(h[:7])
}
