package main

import (
	"fmt"

	"github.com/hamza-m-farooqi/pygit/pkg/repo"
	"github.com/spf13/cobra"
)

func newCommitCmd() *cobra.Command {
	var message string
	var amend bool
	var sign bool
	var signKey string

	cmd := &cobra.Command{
		Use:   "commit -m <msg> | commit --amend [-m <msg>]",
		Short: "Write a commit object from the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}

			opts := repo.CommitOptions{Message: message, Amend: amend}
			if sign {
				signer, keyPath, err := newSSHCommitSigner(signKey)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "signing with key %s\n", keyPath)
				opts.Signer = signer
			}

			h, err := r.Commit(opts)
			if err != nil {
				return err
			}

			branch, _ := r.CurrentBranch()
			verb := "committed to"
			if amend {
				verb = "amended"
			}
			if branch != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", verb, branch, h)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s detached HEAD: %s\n", verb, h)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().BoolVar(&amend, "amend", false, "amend the current HEAD commit")
	cmd.Flags().BoolVarP(&sign, "sign", "S", false, "sign the commit with an SSH key")
	cmd.Flags().StringVar(&signKey, "sign-key", "", "path to the SSH signing key")
	return cmd
}
