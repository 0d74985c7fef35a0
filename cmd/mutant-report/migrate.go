package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/banshee-data/mutant.report/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the outcome database schema",
	Long: `Applies, rolls back or inspects the embedded schema migrations against the
database named by --db (or db_path in the config).`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: withDB(func(cmd *cobra.Command, database *db.DB, args []string) error {
		if err := database.MigrateUp(db.MigrationsFS()); err != nil {
			return err
		}
		return printStatus(cmd, database)
	}),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: withDB(func(cmd *cobra.Command, database *db.DB, args []string) error {
		if err := database.MigrateDown(db.MigrationsFS()); err != nil {
			return err
		}
		return printStatus(cmd, database)
	}),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE: withDB(func(cmd *cobra.Command, database *db.DB, args []string) error {
		return printStatus(cmd, database)
	}),
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version <n>",
	Short: "Migrate up or down to version n",
	Args:  cobra.ExactArgs(1),
	RunE: withDB(func(cmd *cobra.Command, database *db.DB, args []string) error {
		v, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		if err := database.MigrateTo(db.MigrationsFS(), uint(v)); err != nil {
			return err
		}
		return printStatus(cmd, database)
	}),
}

var migrateForceCmd = &cobra.Command{
	Use:   "force <n>",
	Short: "Mark the schema as version n without running migrations",
	Long: `Sets the recorded schema version and clears the dirty flag. Use it only to
recover after a failed migration has been repaired by hand.`,
	Args: cobra.ExactArgs(1),
	RunE: withDB(func(cmd *cobra.Command, database *db.DB, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[0], err)
		}
		if err := database.MigrateForce(db.MigrationsFS(), v); err != nil {
			return err
		}
		return printStatus(cmd, database)
	}),
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd, migrateVersionCmd, migrateForceCmd)
}

// withDB opens the configured database without migrating it.
func withDB(run func(cmd *cobra.Command, database *db.DB, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		database, err := db.OpenDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer database.Close()
		return run(cmd, database, args)
	}
}

func printStatus(cmd *cobra.Command, database *db.DB) error {
	status, err := database.GetMigrationStatus(db.MigrationsFS())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(status)
}
