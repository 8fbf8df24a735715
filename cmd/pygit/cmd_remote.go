package main

import (
	"fmt"

	"github.com/hamza-m-farooqi/pygit/pkg/repo"
	"github.com/spf13/cobra"
)

func newRemoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Manage repository remotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRemotes(cmd, false)
		},
	}

	var verbose bool
	listCmd := &cobra.Command{
		Use:   "list [-v]",
		Short: "List remotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRemotes(cmd, verbose)
		},
	}
	listCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show remote URLs")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name> <url>",
		Short: "Add a remote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			return r.AddRemote(args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get-url <name>",
		Short: "Print a remote URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			url, err := r.RemoteURL(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a remote",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			return r.RemoveRemote(args[0])
		},
	})

	return cmd
}

func listRemotes(cmd *cobra.Command, verbose bool) error {
	r, err := repo.Open(".")
	if err != nil {
		return err
	}
	remotes, err := r.Remotes()
	if err != nil {
		return err
	}
	names, err := r.RemoteNames()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, name := range names {
		if verbose {
			fmt.Fprintf(out, "%s\t%s (fetch)\n", name, remotes[name])
			fmt.Fprintf(out, "%s\t%s (push)\n", name, remotes[name])
		} else {
			fmt.Fprintln(out, name)
		}
	}
	return nil
}
