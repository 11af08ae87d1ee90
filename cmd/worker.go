// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/qail-io/qail/pkg/config"
	"github.com/qail-io/qail/pkg/outbox"
	"github.com/qail-io/qail/pkg/qaillog"
)

func workerCmd() *cobra.Command {
	worker := &cobra.Command{
		Use:   "worker",
		Short: "Run the transactional outbox worker",
	}

	worker.AddCommand(workerRunCmd())
	return worker
}

func workerRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll the outbox queue and sync changes into the configured vector store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(viper.GetString("CONFIG"))
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Project.Mode == config.ModePostgres {
				return fmt.Errorf("worker run: project.mode is %q, no vector store configured", cfg.Project.Mode)
			}

			store := outbox.NewQdrantREST(cfg.Qdrant.URL)
			embedder := outbox.NewRESTEmbedder(os.Getenv("QAIL_EMBEDDINGS_URL"), os.Getenv("QAIL_EMBEDDINGS_API_KEY"))

			w := outbox.New(
				cfg.Postgres.URL,
				cfg.Sync,
				store,
				embedder,
				outbox.WithLogger(qaillog.New()),
			)

			ctx := cmd.Context()
			if err := w.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("worker run: %w", err)
			}

			qaillog.Success("Outbox worker starting, watching %d sync rule(s)", len(cfg.Sync))
			return w.Run(ctx)
		},
	}
}
