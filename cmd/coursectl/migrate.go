package main

import (
	"fmt"

	"coursekb/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(c *cli) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long: `Creates the vector extension, tables and indexes. Statements are idempotent.

The vector width comes from COURSEKB_EMBED_DIM and must match the configured
embedding provider.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dryRun {
				fmt.Fprint(cmd.OutOrStdout(), storage.SchemaSQL(c.cfg.EmbedDim))
				return nil
			}
			// A plain connection: pooled connections register the vector type,
			// which needs the extension this command creates.
			conn, err := pgx.Connect(cmd.Context(), c.cfg.PostgresURL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer conn.Close(cmd.Context())
			if err := storage.Migrate(cmd.Context(), conn, c.cfg.EmbedDim); err != nil {
				return err
			}
			c.logger.Info("schema applied", zap.Int("embed_dim", c.cfg.EmbedDim))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the schema instead of applying it")
	return cmd
}
