package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/stitch/pkg/patch"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [patchfile]",
		Short: "Parse and validate a patch without touching any file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readPatchText(args)
			if err != nil {
				return err
			}

			plan, err := patch.Parse(text)
			if err != nil {
				return err
			}
			if err := patch.Validate(plan); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if plan.Title != "" {
				fmt.Fprintf(out, "%s\n", plan.Title)
			}
			for i := range plan.Directives {
				d := &plan.Directives[i]
				switch d.Op {
				case patch.OpRename, patch.OpCopy:
					fmt.Fprintf(out, "%-6s %s -> %s (%d hunks)\n", d.Op, d.OldPath, d.NewPath, len(d.Hunks))
				default:
					fmt.Fprintf(out, "%-6s %s (%d hunks)\n", d.Op, d.Path(), len(d.Hunks))
				}
			}
			fmt.Fprintf(out, "%d directive(s) ok\n", len(plan.Directives))
			return nil
		},
	}
}
