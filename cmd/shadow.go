// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qail-io/qail/pkg/differ"
	"github.com/qail-io/qail/pkg/qaillog"
	"github.com/qail-io/qail/pkg/shadow"
)

func shadowCmd() *cobra.Command {
	shadowCmd := &cobra.Command{
		Use:   "shadow",
		Short: "Run a blue-green shadow-database migration",
	}

	shadowCmd.AddCommand(shadowCreateCmd())
	shadowCmd.AddCommand(shadowPromoteCmd())
	shadowCmd.AddCommand(shadowAbortCmd())

	return shadowCmd
}

func newOrchestrator() *shadow.Orchestrator {
	return shadow.New(viper.GetString("POSTGRES_URL"), shadow.WithLogger(qaillog.New()))
}

func shadowCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <old-schema> <new-schema>",
		Short: "Create a shadow database, apply the old schema, and stream data across; the diff is saved for promote and not applied to the shadow",
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

			o := newOrchestrator()
			ctx := cmd.Context()

			sp, _ := pterm.DefaultSpinner.WithText("Creating shadow database...").Start()
			if err := o.Create(ctx); err != nil {
				sp.Fail(err.Error())
				return err
			}

			sp.UpdateText("Applying base schema to shadow...")
			if err := o.ApplyBaseSchema(ctx, oldSchema); err != nil {
				sp.Fail(err.Error())
				return err
			}

			sp.UpdateText("Streaming data to shadow...")
			result, err := o.SyncData(ctx)
			if err != nil {
				sp.Fail(err.Error())
				return err
			}

			sp.UpdateText("Saving pending migration state...")
			if err := o.SaveState(ctx, diffCmds, args[0], args[1], Version); err != nil {
				sp.Fail(err.Error())
				return err
			}

			sp.Success(fmt.Sprintf("Shadow ready, %d table(s) synced. Run `qail shadow promote` to cut over.", len(result.RowsByTable)))
			return nil
		},
	}
}

func shadowPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote",
		Short: "Apply the pending diff to the primary and drop the shadow database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sp, _ := pterm.DefaultSpinner.WithText("Promoting shadow migration...").Start()
			if err := newOrchestrator().Promote(cmd.Context(), Version); err != nil {
				sp.Fail(err.Error())
				return err
			}
			sp.Success("Promoted. Primary now matches the new schema.")
			return nil
		},
	}
}

func shadowAbortCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abort",
		Short: "Drop the shadow database and discard the pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sp, _ := pterm.DefaultSpinner.WithText("Aborting shadow migration...").Start()
			if err := newOrchestrator().Abort(cmd.Context()); err != nil {
				sp.Fail(err.Error())
				return err
			}
			sp.Success("Aborted. Primary untouched.")
			return nil
		},
	}
}
