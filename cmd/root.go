package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dtroode/authkeeper/database"
	"github.com/dtroode/authkeeper/internal/config"
)

var errMemoryStoreMigrate = errors.New("migrate requires a postgres DATABASE_DSN")

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authkeeper",
		Short: "User authentication backend",
		Long: `authkeeper serves registration, login and password reset over HTTP
and reports readiness over gRPC health checks.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and ops gRPC server",
		RunE:  runServe,
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE:  runMigrate,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build metadata",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logAppVersion(cmd.OutOrStdout())
			return nil
		},
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	if cfg.Database.UsesMemoryStore() {
		return errMemoryStoreMigrate
	}

	cmd.Println("Running migrations...")
	if err := database.Migrate(cmd.Context(), cfg.Database.DSN); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	cmd.Println("Migrations completed successfully")

	return nil
}
