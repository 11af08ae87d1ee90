// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qail-io/qail/pkg/differ"
	"github.com/qail-io/qail/pkg/impact"
	"github.com/qail-io/qail/pkg/qaillog"
	"github.com/qail-io/qail/pkg/transpile"
)

func migrateCmd() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Diff schema documents and analyze migration impact",
	}

	migrateCmd.AddCommand(migrateDiffCmd())
	migrateCmd.AddCommand(migrateAnalyzeCmd())

	return migrateCmd
}

func migrateDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <old-schema> <new-schema>",
		Short: "Print the SQL a migration from old-schema to new-schema would run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldSchema, err := loadSchemaDocument(args[0])
			if err != nil {
				return err
			}
			newSchema, err := loadSchemaDocument(args[1])
			if err != nil {
				return err
			}

			cmds, err := differ.Diff(oldSchema, newSchema)
			if err != nil {
				return fmt.Errorf("diffing schemas: %w", err)
			}
			if len(cmds) == 0 {
				qaillog.Success("Schemas are identical, nothing to migrate.")
				return nil
			}

			for i, q := range cmds {
				result, err := transpile.Transpile(q, transpile.Postgres)
				if err != nil {
					return fmt.Errorf("transpiling operation %d: %w", i+1, err)
				}
				qaillog.Step(i+1, len(cmds), result.SQL)
			}
			return nil
		},
	}
}

func migrateAnalyzeCmd() *cobra.Command {
	var ci bool
	var scanDir string

	cmd := &cobra.Command{
		Use:   "analyze <old-schema> <new-schema>",
		Short: "Scan a codebase for references that break under a pending migration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			oldSchema, err := loadSchemaDocument(args[0])
			if err != nil {
				return err
			}
			newSchema, err := loadSchemaDocument(args[1])
			if err != nil {
				return err
			}

			diffCmds, err := differ.Diff(oldSchema, newSchema)
			if err != nil {
				return fmt.Errorf("diffing schemas: %w", err)
			}

			refs, err := impact.Scan(context.Background(), scanDir)
			if err != nil {
				return fmt.Errorf("scanning %s: %w", scanDir, err)
			}

			changes := impact.Classify(diffCmds, refs)

			if ci {
				impact.WriteCIReport(os.Stdout, changes)
			} else {
				impact.WriteHumanReport(changes)
			}

			if code := impact.ExitCode(changes); code != 0 {
				return fmt.Errorf("%d breaking change(s) found", len(changes))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scanDir, "path", ".", "Directory to scan for code references")
	cmd.Flags().BoolVar(&ci, "ci", false, "Emit GitHub-Actions-style annotations instead of a human report")
	viper.BindPFlag("ANALYZE_CI", cmd.Flags().Lookup("ci"))

	return cmd
}
