package main

import (
	"coursekb/internal/config"
	"coursekb/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type cli struct {
	envFile string
	cfg     config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "coursekb-ctl",
		Short:         "Operate a coursekb deployment",
		Long:          "Applies the database schema, inspects entities waiting for embeddings and starts the embedding backfill workflow.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load(c.envFile)
			c.cfg = config.Load()
			logger, err := logging.New(c.cfg.LogLevel, "console")
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file to load before reading COURSEKB_ settings")

	root.AddCommand(newMigrateCmd(c), newPendingCmd(c), newBackfillCmd(c))
	return root
}
