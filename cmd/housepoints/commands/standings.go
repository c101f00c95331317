package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/housepoints/house-points-hub/cmd/housepoints/output"
	"github.com/housepoints/house-points-hub/internal/application/query"
	"github.com/housepoints/house-points-hub/internal/domain/student"
)

var standingsCmd = &cobra.Command{
	Use:     "standings",
	Aliases: []string{"leaderboard"},
	Short:   "Show the house leaderboard",
	Long: `Show every house ranked by total points, with wins, placings and the
lead over the next house. Standings are recomputed from the ledger on
every call.`,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		standings, err := query.NewStandingsHandler(a.store, a.log).StandingsWithGap(ctx)
		if err != nil {
			return err
		}
		if len(standings) == 0 {
			output.Warning("No houses yet. Run `housepoints init` first.")
			return nil
		}

		rows := make([][]string, 0, len(standings))
		for _, s := range standings {
			gap := "-"
			if s.PointsAheadOfNext != nil {
				gap = fmt.Sprintf("+%d", *s.PointsAheadOfNext)
			}
			rows = append(rows, []string{
				fmt.Sprint(s.Rank),
				s.House,
				fmt.Sprint(s.TotalPoints),
				fmt.Sprint(s.EventsParticipated),
				fmt.Sprintf("%d/%d/%d/%d", s.Wins, s.Second, s.Third, s.Fourth),
				gap,
				output.Swatch(s.Color),
			})
		}
		output.Section("Standings")
		output.Table([]string{"#", "HOUSE", "POINTS", "EVENTS", "1st/2nd/3rd/4th", "LEAD", ""}, rows)
		return nil
	}),
}

var winnerCmd = &cobra.Command{
	Use:   "winner",
	Short: "Show the house currently in first place",
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		w, err := query.NewStandingsHandler(a.store, a.log).Winner(ctx)
		if err != nil {
			return err
		}
		if w == nil {
			output.Warning("No houses yet")
			return nil
		}
		output.Banner(fmt.Sprintf("%s %s  %d points", output.Swatch(w.Color), w.House, w.TotalPoints))
		return nil
	}),
}

var totalCmd = &cobra.Command{
	Use:   "total <house>",
	Short: "Show one house's total points",
	Args:  requireArgs(1, "<house name or id>"),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		h, err := resolveHouse(ctx, a.store, args[0])
		if err != nil {
			return err
		}
		total, err := query.NewStandingsHandler(a.store, a.log).TotalPoints(ctx, h.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(output.Out, "%s %s: %d\n", output.Swatch(h.Color), h.Name, total)
		return nil
	}),
}

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "List students grouped by house, in leaderboard order",
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		rosters, err := query.NewRosterHandler(a.store, a.log).StudentsByHouseRank(ctx)
		if err != nil {
			return err
		}
		for _, r := range rosters {
			output.Section(fmt.Sprintf("%d. %s  %d points  (%d students)", r.Rank, r.House, r.TotalPoints, len(r.Students)))
			printProfiles(r.Students)
		}
		return nil
	}),
}

var winnersByClassCmd = &cobra.Command{
	Use:   "winners-by-class",
	Short: "List the leading house's students grouped by class year",
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		res, err := query.NewRosterHandler(a.store, a.log).WinningHouseStudentsByClass(ctx)
		if err != nil {
			return err
		}
		if res.Winner == nil {
			output.Warning("No houses yet")
			return nil
		}
		output.Banner(fmt.Sprintf("%s %s  %d points", output.Swatch(res.Winner.Color), res.Winner.House, res.Winner.TotalPoints))
		for _, c := range res.Classes {
			output.Section(fmt.Sprintf("%s (%d)  %d students", c.ClassYear.ClassName, c.ClassYear.GraduationYear, c.Count))
			for _, p := range c.Students {
				fmt.Fprintf(output.Out, "  %s\n", p.FullName())
			}
		}
		return nil
	}),
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-house analytics",
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		stats, err := query.NewStatsHandler(a.store, a.log).Handle(ctx)
		if err != nil {
			return err
		}

		output.Section("Competition")
		fmt.Fprintf(output.Out, "Events: %d   Students: %d   Net points: %d\n",
			stats.TotalEvents, stats.TotalStudents, stats.TotalPoints)

		rows := make([][]string, 0, len(stats.Houses))
		for _, h := range stats.Houses {
			types := make([]string, 0, len(h.PointsByType))
			for _, t := range sortedTypes(h.PointsByType) {
				types = append(types, fmt.Sprintf("%s=%d", t, h.PointsByType[t]))
			}
			rows = append(rows, []string{
				fmt.Sprint(h.Rank),
				h.House,
				fmt.Sprint(h.TotalPoints),
				fmt.Sprint(h.Students),
				fmt.Sprintf("%.1f", h.PointsPerStudent),
				fmt.Sprintf("%.2f", h.AverageRank),
				strings.Join(types, " "),
			})
		}
		output.Section("Houses")
		output.Table([]string{"#", "HOUSE", "POINTS", "STUDENTS", "PTS/STUDENT", "AVG RANK", "BY TYPE"}, rows)
		return nil
	}),
}

func printProfiles(ps []student.Profile) {
	if len(ps) == 0 {
		output.Muted("  (none)")
		return
	}
	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, []string{fmt.Sprint(p.ID), p.FullName(), p.HouseName, p.ClassName, p.Email})
	}
	output.Table([]string{"ID", "NAME", "HOUSE", "CLASS", "EMAIL"}, rows)
}
