package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/housepoints/house-points-hub/cmd/housepoints/output"
	"github.com/housepoints/house-points-hub/internal/application/command"
	"github.com/housepoints/house-points-hub/internal/application/query"
	"github.com/housepoints/house-points-hub/internal/domain/student"
)

var (
	confirmation string

	sgFirst    string
	sgLast     string
	sgGrade    string
	sgHomeroom string
)

var rolloverCmd = &cobra.Command{
	Use:   "rollover",
	Short: "End the season: graduate seniors and clear all events",
	Long: `End the season. In one transaction this removes every student in the
senior class, deletes every event and result, and promotes the remaining
class years. Houses are kept.

This cannot be undone. Pass --confirm ` + command.ConfirmationToken + ` to proceed.`,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		h := command.NewSeasonRolloverHandler(a.store, a.locker, a.clock, a.cfg.Redis.RolloverLockTTL, a.log)
		res, err := h.Handle(ctx, command.SeasonRolloverCommand{Confirmation: confirmation})
		if err != nil {
			return err
		}

		output.Success("Season rolled over (run %s)", res.RunID)
		fmt.Fprintf(output.Out, "  Graduated:        %s (%d)\n", res.GraduatedClass.ClassName, res.GraduatedClass.GraduationYear)
		fmt.Fprintf(output.Out, "  Students removed: %d\n", res.StudentsRemoved)
		fmt.Fprintf(output.Out, "  Events removed:   %d (%d results)\n", res.EventsRemoved, res.ResultsRemoved)

		rows := make([][]string, 0, len(res.ClassYears))
		for _, y := range res.ClassYears {
			rows = append(rows, []string{fmt.Sprint(y.DisplayOrder), fmt.Sprint(y.GraduationYear), y.ClassName})
		}
		output.Section("Class years")
		output.Table([]string{"ORDER", "GRADUATES", "CLASS"}, rows)
		return nil
	}),
}

var suggestHouseCmd = &cobra.Command{
	Use:   "suggest-house",
	Short: "Suggest a house for a new student",
	Long: `Suggest a house for a student who is about to enroll. Rules, in order:
entry-grade homeroom mapping, existing siblings (same last name), then
the smallest non-empty house.

Example:
  housepoints suggest-house --first John --last Doe --grade 9 --homeroom 101`,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		s, err := query.NewSuggestHouseHandler(a.store, a.advisor, a.log).Handle(ctx, query.SuggestHouseQuery{
			FirstName: sgFirst,
			LastName:  sgLast,
			Grade:     sgGrade,
			Homeroom:  sgHomeroom,
		})
		if err != nil {
			return err
		}
		if s.HouseID == nil {
			output.Warning("%s", s.Reason)
			return nil
		}

		output.Banner(fmt.Sprintf("%s  (%s)", s.HouseName, s.Rule))
		fmt.Fprintln(output.Out, s.Reason)
		if s.Rule == student.RuleSibling {
			output.Section("Siblings")
			for _, sib := range s.Siblings {
				fmt.Fprintf(output.Out, "  %s %s (%s, %s)\n", sib.FirstName, sgLast, sib.HouseName, sib.ClassName)
			}
		}
		return nil
	}),
}

func init() {
	rolloverCmd.Flags().StringVar(&confirmation, "confirm", "", "Type "+command.ConfirmationToken+" to confirm")

	suggestHouseCmd.Flags().StringVar(&sgFirst, "first", "", "First name")
	suggestHouseCmd.Flags().StringVar(&sgLast, "last", "", "Last name")
	suggestHouseCmd.Flags().StringVar(&sgGrade, "grade", "", "Grade the student is entering")
	suggestHouseCmd.Flags().StringVar(&sgHomeroom, "homeroom", "", "Homeroom code")
	_ = suggestHouseCmd.MarkFlagRequired("last")
}
