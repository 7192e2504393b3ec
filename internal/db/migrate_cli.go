package db

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
)

// ErrMigrateUsage is returned for a missing or unknown migrate action.
var ErrMigrateUsage = errors.New("invalid migrate command")

// RunMigrateCommand handles the 'migrate' subcommand against the journal at
// dbPath. The schema is left alone until the action runs.
func RunMigrateCommand(args []string, dbPath string, out io.Writer) error {
	if len(args) < 1 {
		PrintMigrateHelp(out)
		return ErrMigrateUsage
	}

	database, err := openJournal(dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	return runMigrateAction(database, MigrationsFS(), args, out)
}

func runMigrateAction(database *DB, migrationsFS fs.FS, args []string, out io.Writer) error {
	switch action := args[0]; action {
	case "up":
		if err := database.MigrateUp(migrationsFS); err != nil {
			return err
		}
		fmt.Fprintln(out, "All migrations applied")
	case "down":
		if err := database.MigrateDown(migrationsFS); err != nil {
			return err
		}
		fmt.Fprintln(out, "Rolled back one migration")
	case "status":
		// status reports below
	case "version", "force":
		if len(args) < 2 {
			return fmt.Errorf("%w: %s needs a version number", ErrMigrateUsage, action)
		}
		n, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("%w: invalid version number %q", ErrMigrateUsage, args[1])
		}
		if action == "version" {
			err = database.MigrateTo(migrationsFS, uint(n))
		} else {
			err = database.MigrateForce(migrationsFS, int(n))
		}
		if err != nil {
			return err
		}
	case "help":
		PrintMigrateHelp(out)
		return nil
	default:
		PrintMigrateHelp(out)
		return fmt.Errorf("%w: unknown action %q", ErrMigrateUsage, action)
	}

	return printMigrateStatus(database, migrationsFS, out)
}

func printMigrateStatus(database *DB, migrationsFS fs.FS, out io.Writer) error {
	version, dirty, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", version, dirty)
	if dirty {
		fmt.Fprintln(out, "WARNING: a migration failed mid-way; inspect the journal, then run: lola-bridge migrate force <version>")
	}
	return nil
}

// PrintMigrateHelp displays the help message for the migrate command
func PrintMigrateHelp(out io.Writer) {
	fmt.Fprint(out, `Journal Migration Commands

Usage: lola-bridge -record-db <path> migrate <command>

Commands:
  up              Apply all pending migrations
  down            Roll back one migration
  status          Show current migration version
  version <N>     Migrate to version N
  force <N>       Force migration version to N (recovery only)
  help            Show this help message
`)
}
