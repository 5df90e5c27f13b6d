package main

import (
	"fmt"
	"os"

	"github.com/Rrens/groqchat/internal/config"
	"github.com/Rrens/groqchat/internal/logger"
	"github.com/Rrens/groqchat/internal/repository/postgres"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var source string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the chat_log archive schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&source, "source", postgres.DefaultMigrationsSource, "migration source URL")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				dsn, err := loadDSN()
				if err != nil {
					return err
				}
				return report(postgres.RunMigrations(dsn, source))
			},
		},
		newDownCmd(&source),
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: func(cmd *cobra.Command, args []string) error {
				dsn, err := loadDSN()
				if err != nil {
					return err
				}
				v, dirty, err := postgres.MigrationVersion(dsn, source)
				if err != nil {
					return report(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", v, dirty)
				return nil
			},
		},
	)

	return root
}

func newDownCmd(source *string) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := loadDSN()
			if err != nil {
				return err
			}
			return report(postgres.RollbackMigrations(dsn, *source, steps))
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	return cmd
}

func loadDSN() (string, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return "", report(fmt.Errorf("failed to load configuration: %w", err))
	}
	logger.Init(cfg.Logging, os.Stderr)

	log.Info().Str("host", cfg.Database.Host).Int("port", cfg.Database.Port).Msg("Connecting to database")
	return cfg.Database.DSN(), nil
}

func report(err error) error {
	if err != nil {
		log.Error().Err(err).Msg("Migration command failed")
	}
	return err
}
