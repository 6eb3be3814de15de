package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/resume-optimizer/internal/db"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:       "migrate up|down",
	Short:     "Apply or roll back database migrations",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{db.DirectionUp, db.DirectionDown},
	RunE:      runMigrate,
}

func init() {
	migrateCmd.Flags().IntVar(&migrateSteps, "steps", 0, "Number of migrations to apply (0 means all)")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if migrateSteps < 0 {
		return errors.New("--steps must not be negative")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("a database is required: set DATABASE_URL or database_url")
	}

	if err := db.Migrate(cfg.DatabaseURL, args[0], migrateSteps); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrations %s complete\n", args[0])
	return nil
}
