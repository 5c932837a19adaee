package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/odvcencio/stitch/pkg/apply"
	"github.com/odvcencio/stitch/pkg/patch"
	"github.com/odvcencio/stitch/pkg/store"
)

func newApplyCmd() *cobra.Command {
	var (
		root             string
		contextTolerance int
		ignoreWhitespace bool
		sandbox          bool
		snapshot         bool
		snapshotDir      string
		dryRun           bool
		verbose          bool
	)

	cmd := &cobra.Command{
		Use:   "apply [patchfile]",
		Short: "Parse, validate, and apply a patch to the working tree",
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

			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			// Flags the user set explicitly win over config values.
			if cfg.ContextTolerance != nil && !cmd.Flags().Changed("context-tolerance") {
				contextTolerance = *cfg.ContextTolerance
			}
			if cfg.IgnoreWhitespace != nil && !cmd.Flags().Changed("ignore-whitespace") {
				ignoreWhitespace = *cfg.IgnoreWhitespace
			}
			if cfg.Sandbox != nil && !cmd.Flags().Changed("sandbox") {
				sandbox = *cfg.Sandbox
			}
			if cfg.SnapshotDir != nil && !cmd.Flags().Changed("snapshot-dir") {
				snapshotDir = *cfg.SnapshotDir
			}

			logger := zap.NewNop()
			if verbose {
				logger, err = zap.NewDevelopment()
				if err != nil {
					return err
				}
				defer logger.Sync()
			}

			opts := apply.Options{
				ContextTolerance: contextTolerance,
				Logger:           logger,
			}
			if ignoreWhitespace {
				opts.Whitespace = apply.WhitespaceIgnoreAll
			}

			if dryRun {
				if err := dryRunApply(plan, root, opts); err != nil {
					return err
				}
				printSummary(cmd.OutOrStdout(), plan, true)
				return nil
			}

			var st store.Store = store.NewOS(root)
			if sandbox {
				st, err = store.NewSandbox(root, store.NewOS(root))
				if err != nil {
					return err
				}
			}

			var snap *store.Snapshotting
			if snapshot {
				snap, err = store.NewSnapshotting(st, snapshotDir)
				if err != nil {
					return err
				}
				st = snap
			}

			if err := apply.New(st, opts).Apply(plan); err != nil {
				if snap != nil {
					if rbErr := snap.Rollback(); rbErr != nil {
						return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
					}
					return fmt.Errorf("%w (rolled back)", err)
				}
				return err
			}
			if snap != nil {
				if err := snap.Discard(); err != nil {
					return err
				}
			}

			printSummary(cmd.OutOrStdout(), plan, false)
			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", ".", "directory the patch applies to")
	cmd.Flags().IntVar(&contextTolerance, "context-tolerance", 0, "context lines a hunk may shed while matching")
	cmd.Flags().BoolVar(&ignoreWhitespace, "ignore-whitespace", false, "ignore whitespace when matching context")
	cmd.Flags().BoolVar(&sandbox, "sandbox", false, "refuse paths that escape the root")
	cmd.Flags().BoolVar(&snapshot, "snapshot", false, "snapshot touched files and roll back on failure")
	cmd.Flags().StringVar(&snapshotDir, "snapshot-dir", defaultSnapshotDir(), "directory for snapshot blobs")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "apply against an in-memory copy and report")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "trace directive application")

	return cmd
}

func defaultSnapshotDir() string {
	return filepath.Join(os.TempDir(), "stitch-snapshots")
}

// readPatchText reads the patch from the named file, or stdin when no
// argument (or "-") is given.
func readPatchText(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// dryRunApply copies every file the plan touches into a memory store and
// applies there, so a bad patch is caught without a single write.
func dryRunApply(plan *patch.Plan, root string, opts apply.Options) error {
	src := store.NewOS(root)
	mem := store.NewMemory()

	seed := func(path string) error {
		if path == "" {
			return nil
		}
		ok, err := src.Exists(path)
		if err != nil || !ok {
			return err
		}
		data, err := src.Read(path)
		if err != nil {
			return err
		}
		mode, _, _ := src.Permissions(path)
		mem.Seed(path, data, mode)
		return nil
	}

	for i := range plan.Directives {
		d := &plan.Directives[i]
		if err := seed(d.OldPath); err != nil {
			return err
		}
		if err := seed(d.NewPath); err != nil {
			return err
		}
	}

	return apply.New(mem, opts).Apply(plan)
}

var (
	addColor    = color.New(color.FgGreen)
	deleteColor = color.New(color.FgRed)
	modifyColor = color.New(color.FgYellow)
	moveColor   = color.New(color.FgCyan)
)

func printSummary(out io.Writer, plan *patch.Plan, dryRun bool) {
	for i := range plan.Directives {
		d := &plan.Directives[i]
		switch d.Op {
		case patch.OpAdd:
			addColor.Fprintf(out, "A %s\n", d.NewPath)
		case patch.OpDelete:
			deleteColor.Fprintf(out, "D %s\n", d.OldPath)
		case patch.OpModify:
			modifyColor.Fprintf(out, "M %s\n", d.NewPath)
		case patch.OpRename:
			moveColor.Fprintf(out, "R %s -> %s\n", d.OldPath, d.NewPath)
		case patch.OpCopy:
			moveColor.Fprintf(out, "C %s -> %s\n", d.OldPath, d.NewPath)
		}
	}
	if dryRun {
		fmt.Fprintf(out, "%d directive(s) would apply cleanly\n", len(plan.Directives))
	} else {
		fmt.Fprintf(out, "%d directive(s) applied\n", len(plan.Directives))
	}
}
