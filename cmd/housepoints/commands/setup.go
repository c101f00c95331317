package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/housepoints/house-points-hub/cmd/housepoints/output"
	"github.com/housepoints/house-points-hub/internal/application/command"
	"github.com/housepoints/house-points-hub/internal/application/query"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/infrastructure/persistence/postgres"
)

var seniorYear int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Apply pending schema migrations and show the migration status.

Every command migrates on startup; this one only reports.`,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		if a.pg == nil {
			output.Success("SQLite ledger at %s is up to date", a.cfg.Database.SQLitePath)
			return nil
		}
		status, err := postgres.NewMigrator(a.pg).Status(ctx)
		if err != nil {
			return err
		}
		rows := make([][]string, 0, len(status))
		for _, m := range status {
			applied := "pending"
			if m.IsApplied {
				applied = m.AppliedAt.Format("2006-01-02 15:04")
			}
			rows = append(rows, []string{strconv.Itoa(m.Version), m.Name, applied})
		}
		output.Section("Migrations")
		output.Table([]string{"VERSION", "NAME", "APPLIED"}, rows)
		return nil
	}),
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Seed houses and class years into an empty ledger",
	Long: `Seed the four default houses and the four class years.

Tables that already have rows are left alone, so init is safe to re-run.
The senior graduation year defaults to SENIOR_GRAD_YEAR, or to the
current school year when that is unset.`,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		year := seniorYear
		if year == 0 {
			year = a.cfg.Competition.SeniorGradYear
		}
		res, err := command.NewSetupCompetitionHandler(a.store, a.clock, a.log).
			Handle(ctx, command.SetupCompetitionCommand{SeniorGradYear: year})
		if err != nil {
			return err
		}
		if res.AlreadySetUp() {
			output.Info("Competition already set up; nothing to do")
			return nil
		}
		for _, h := range res.HousesCreated {
			output.Success("House %s %s", h.Name, output.Swatch(h.Color))
		}
		for _, y := range res.ClassYearsCreated {
			output.Success("Class %s (graduates %d)", y.ClassName, y.GraduationYear)
		}
		return nil
	}),
}

var housesCmd = &cobra.Command{
	Use:   "houses",
	Short: "List houses and class years",
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		dir := query.NewDirectoryHandler(a.store, a.log)
		houses, err := dir.ListHouses(ctx)
		if err != nil {
			return err
		}
		years, err := dir.ListClassYears(ctx)
		if err != nil {
			return err
		}

		output.Section("Houses")
		rows := make([][]string, 0, len(houses))
		for _, h := range houses {
			rows = append(rows, []string{fmt.Sprint(h.ID), h.Name, output.Swatch(h.Color)})
		}
		output.Table([]string{"ID", "HOUSE", "COLOR"}, rows)

		output.Section("Class years")
		rows = rows[:0]
		for _, y := range years {
			rows = append(rows, []string{fmt.Sprint(y.ID), fmt.Sprint(y.DisplayOrder), fmt.Sprint(y.GraduationYear), y.ClassName})
		}
		output.Table([]string{"ID", "ORDER", "GRADUATES", "CLASS"}, rows)
		return nil
	}),
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the ledger, the lock backend and the competition setup",
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		st := a.health.Check(ctx)
		rows := make([][]string, 0, len(st.Results))
		for _, r := range st.Results {
			mark := "ok"
			if !r.Healthy {
				mark = "FAIL"
			}
			rows = append(rows, []string{r.Name, mark, r.Duration.Round(time.Millisecond).String(), r.Message})
		}
		output.Table([]string{"CHECK", "STATUS", "TOOK", "DETAIL"}, rows)

		if !st.Healthy {
			return shared.NewDomainError("cli", "doctor", shared.ErrStorage, st.Message)
		}
		output.Success("%s", st.Message)
		return nil
	}),
}

func init() {
	initCmd.Flags().IntVar(&seniorYear, "senior-year", 0, "Graduation year of the senior class")
}
