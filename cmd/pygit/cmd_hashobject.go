package main

import (
	"fmt"
	"os"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
	"github.com/hamza-m-farooqi/pygit/pkg/repo"
	"github.com/spf13/cobra"
)

func newHashObjectCmd() *cobra.Command {
	var objType string
	var write bool

	cmd := &cobra.Command{
		Use:   "hash-object [-w] [-t <type>] <file>",
		Short: "Hash a file and optionally write the object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			kind := object.ObjectType(objType)
			if !kind.Valid() {
				return fmt.Errorf("unsupported object type: %s", objType)
			}

			var h object.Hash
			if write {
				r, err := repo.Open(".")
				if err != nil {
					return err
				}
				h, err = r.Store.Write(kind, data)
				if err != nil {
					return err
				}
			} else {
				h = object.HashObject(kind, data)
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
	cmd.Flags().StringVarP(&objType, "type", "t", "blob", "object type (blob, tree, commit)")
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the object to the store")
	return cmd
}
