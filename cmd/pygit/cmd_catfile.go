package main

import (
	"fmt"

	"github.com/hamza-m-farooqi/pygit/pkg/object"
	"github.com/hamza-m-farooqi/pygit/pkg/repo"
	"github.com/spf13/cobra"
)

func newCatFileCmd() *cobra.Command {
	var pretty, typeOnly, sizeOnly bool

	cmd := &cobra.Command{
		Use:   "cat-file (-p|-t|-s) <object>",
		Short: "Inspect object contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modes := 0
			for _, b := range []bool{pretty, typeOnly, sizeOnly} {
				if b {
					modes++
				}
			}
			if modes != 1 {
				return fmt.Errorf("exactly one of -p, -t, -s is required")
			}

			r, err := repo.Open(".")
			if err != nil {
				return err
			}
			h, err := r.ResolveRevision(args[0])
			if err != nil {
				return err
			}
			objType, data, err := r.Store.Read(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case typeOnly:
				fmt.Fprintln(out, objType)
			case sizeOnly:
				fmt.Fprintln(out, len(data))
			case objType == object.TypeTree:
				tree, err := object.UnmarshalTree(data)
				if err != nil {
					return err
				}
				for _, e := range tree.Entries {
					kind := object.TypeBlob
					if e.IsDir() {
						kind = object.TypeTree
					}
					fmt.Fprintf(out, "%6s %6s %s    %s\n", e.Mode, kind, e.Hash, e.Name)
				}
			default:
				fmt.Fprint(out, string(data))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "pretty-print the object")
	cmd.Flags().BoolVarP(&typeOnly, "type-only", "t", false, "print the object type")
	cmd.Flags().BoolVarP(&sizeOnly, "size-only", "s", false, "print the object size")
	return cmd
}
