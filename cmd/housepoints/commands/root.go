// Package commands implements the housepoints command tree.
package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/housepoints/house-points-hub/cmd/housepoints/output"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
)

var (
	// Global flags
	sqlitePath  string
	databaseURL string
	logLevel    string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "housepoints",
	Short: "House points competition ledger",
	Long: `housepoints tracks a school house competition: houses earn points in
scored events, students belong to houses and class years, and a season
rollover graduates the senior class and clears the ledger.

The ledger lives in SQLite by default (SQLITE_PATH) or in PostgreSQL when
DATABASE_URL is set. Settings are read from the environment and from a
.env file in the working directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       "1.0.0",
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output.Error("%v", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps error kinds to distinct process exit codes so scripts can
// tell bad input from infrastructure trouble.
func exitCode(err error) int {
	switch {
	case shared.IsValidation(err), shared.IsReference(err):
		return 2
	case shared.IsNotFound(err):
		return 3
	case shared.IsConcurrentModification(err):
		return 4
	case errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "db", "", "SQLite database file (overrides SQLITE_PATH)")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (overrides DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Shorthand for --log-level debug")

	rootCmd.AddCommand(
		migrateCmd,
		initCmd,
		housesCmd,
		standingsCmd,
		winnerCmd,
		totalCmd,
		rosterCmd,
		winnersByClassCmd,
		studentsCmd,
		eventsCmd,
		pointsCmd,
		suggestHouseCmd,
		rolloverCmd,
		statsCmd,
		doctorCmd,
	)
}

func requireArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return shared.Validationf("cli", cmd.Name(), "usage: %s %s", cmd.CommandPath(), usage)
		}
		return nil
	}
}
