package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/housepoints/house-points-hub/cmd/housepoints/output"
	"github.com/housepoints/house-points-hub/internal/application/command"
	"github.com/housepoints/house-points-hub/internal/application/query"
	"github.com/housepoints/house-points-hub/internal/domain/event"
	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/pkg/timeutil"
)

var (
	// event flags
	evDate    string
	evDesc    string
	evType    string
	evResults []string
	evLimit   int

	// points flags
	ptReason string
)

var eventsCmd = &cobra.Command{
	Use:     "events",
	Aliases: []string{"event"},
	Short:   "Manage scored events",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List events, newest first",
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		dir := query.NewDirectoryHandler(a.store, a.log)
		var (
			events []event.Summary
			err    error
		)
		if evLimit > 0 {
			events, err = dir.RecentEvents(ctx, evLimit)
		} else {
			events, err = dir.ListEvents(ctx)
		}
		if err != nil {
			return err
		}
		if len(events) == 0 {
			output.Muted("No events recorded")
			return nil
		}
		rows := make([][]string, 0, len(events))
		for _, e := range events {
			rows = append(rows, []string{
				fmt.Sprint(e.ID),
				timeutil.FormatDate(e.Date),
				string(e.Type),
				fmt.Sprint(e.HousesParticipated),
				e.Description,
			})
		}
		output.Table([]string{"ID", "DATE", "TYPE", "HOUSES", "DESCRIPTION"}, rows)
		return nil
	}),
}

var eventsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an event and its results",
	Args:  requireArgs(1, "<id>"),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("event", args[0])
		if err != nil {
			return err
		}
		e, err := query.NewDirectoryHandler(a.store, a.log).GetEvent(ctx, id)
		if err != nil {
			return err
		}
		printEvent(e)
		return nil
	}),
}

var eventsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a scored event",
	Long: `Record an event with one result per participating house. Each --result
is house:points:rank; the house may be a name or an id. Points are never
negative: use --type deduction to subtract them.

Examples:
  housepoints events add --desc "Relay" --type sports --result Athena:50:1 --result Apollo:30:2
  housepoints events add --date 2025-03-14 --desc "Hallway noise" --type deduction --result Poseidon:10:1`,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		date := timeutil.Today(a.clock)
		if evDate != "" {
			d, err := timeutil.ParseDate(evDate)
			if err != nil {
				return shared.Validationf("event", "Add", "%v", err)
			}
			date = d
		}

		results := make([]event.Result, 0, len(evResults))
		for _, raw := range evResults {
			r, err := parseResult(ctx, a.store, raw)
			if err != nil {
				return err
			}
			results = append(results, r)
		}

		res, err := command.NewAddEventHandler(a.store, a.clock, a.log).Handle(ctx, command.AddEventCommand{
			Date:        date,
			Description: evDesc,
			Type:        event.Type(strings.TrimSpace(evType)),
			Results:     results,
		})
		if err != nil {
			return err
		}
		output.Success("Recorded event %d", res.Event.ID)
		printEvent(res.Event)
		return nil
	}),
}

var eventsDeleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"remove"},
	Short:   "Delete an event and its results",
	Args:    requireArgs(1, "<id>"),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("event", args[0])
		if err != nil {
			return err
		}
		res, err := command.NewDeleteEventHandler(a.store, a.log).Handle(ctx, command.DeleteEventCommand{EventID: id})
		if err != nil {
			return err
		}
		if !res.Deleted {
			output.Info("Event %d did not exist", id)
			return nil
		}
		output.Success("Deleted event %d", id)
		return nil
	}),
}

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "Award or deduct points outside a scored event",
}

var pointsAwardCmd = &cobra.Command{
	Use:   "award <house=delta>...",
	Short: "Record quick point changes for one or more houses",
	Long: `Record quick point changes dated today. Each argument is house=delta;
a negative delta is stored as a deduction. Zero deltas are skipped. All
changes are recorded together or not at all.

Example:
  housepoints points award --reason "Assembly behaviour" Athena=+5 Apollo=-3`,
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		if len(args) == 0 {
			return shared.Validationf("points", "Record", "at least one house=delta is required")
		}
		awards := make([]command.Award, 0, len(args))
		for _, raw := range args {
			aw, err := parseAward(ctx, a.store, raw)
			if err != nil {
				return err
			}
			awards = append(awards, aw)
		}

		res, err := command.NewRecordQuickPointsHandler(a.store, a.clock, a.log).Handle(ctx, command.RecordQuickPointsCommand{
			Reason: ptReason,
			Awards: awards,
		})
		if err != nil {
			return err
		}
		for _, e := range res.Events {
			h, err := a.store.FindHouse(ctx, e.HouseID)
			name := fmt.Sprint(e.HouseID)
			if err == nil {
				name = h.Name
			}
			fmt.Fprintf(output.Out, "  %s %s (event %d)\n", output.Signed(e.Delta), name, e.EventID)
		}
		output.Success("Recorded %d point change(s)", len(res.Events))
		return nil
	}),
}

func printEvent(e event.Event) {
	output.Section(fmt.Sprintf("%s  %s  [%s]", timeutil.FormatDate(e.Date), e.Description, e.Type))
	rows := make([][]string, 0, len(e.Results))
	for _, r := range e.Results {
		rows = append(rows, []string{fmt.Sprint(r.Rank), r.HouseName, fmt.Sprint(r.Points), output.Signed(e.Type.Sign() * r.Points)})
	}
	output.Table([]string{"RANK", "HOUSE", "POINTS", "EFFECT"}, rows)
}

// parseResult parses house:points:rank.
func parseResult(ctx context.Context, r ledger.Reader, raw string) (event.Result, error) {
	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return event.Result{}, shared.Validationf("event", "Add", "result %q: want house:points:rank", raw)
	}
	points, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return event.Result{}, shared.Validationf("event", "Add", "result %q: points must be an integer", raw)
	}
	rank, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return event.Result{}, shared.Validationf("event", "Add", "result %q: rank must be an integer", raw)
	}
	h, err := resolveHouse(ctx, r, parts[0])
	if err != nil {
		if shared.IsNotFound(err) {
			return event.Result{}, shared.Referencef("event", "Add", "result %q: unknown house", raw)
		}
		return event.Result{}, err
	}
	return event.Result{HouseID: h.ID, HouseName: h.Name, Points: points, Rank: rank}, nil
}

// parseAward parses house=delta, where delta may carry a sign.
func parseAward(ctx context.Context, r ledger.Reader, raw string) (command.Award, error) {
	name, rawDelta, ok := strings.Cut(raw, "=")
	if !ok {
		return command.Award{}, shared.Validationf("points", "Record", "%q: want house=delta", raw)
	}
	delta, err := strconv.Atoi(strings.TrimSpace(rawDelta))
	if err != nil {
		return command.Award{}, shared.Validationf("points", "Record", "%q: delta must be an integer", raw)
	}
	h, err := resolveHouse(ctx, r, name)
	if err != nil {
		if shared.IsNotFound(err) {
			return command.Award{}, shared.Referencef("points", "Record", "%q: unknown house", raw)
		}
		return command.Award{}, err
	}
	return command.Award{HouseID: h.ID, Delta: delta}, nil
}

func sortedTypes(m map[event.Type]int) []event.Type {
	out := make([]event.Type, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func init() {
	eventsListCmd.Flags().IntVarP(&evLimit, "limit", "n", 0, fmt.Sprintf("Show only the most recent events (e.g. %d)", query.DefaultRecentEvents))

	eventsAddCmd.Flags().StringVar(&evDate, "date", "", "Event date YYYY-MM-DD (default today)")
	eventsAddCmd.Flags().StringVar(&evDesc, "desc", "", "Description")
	eventsAddCmd.Flags().StringVar(&evType, "type", "", "Event type, e.g. sports, academic, deduction")
	eventsAddCmd.Flags().StringArrayVar(&evResults, "result", nil, "house:points:rank (repeatable)")
	_ = eventsAddCmd.MarkFlagRequired("desc")
	_ = eventsAddCmd.MarkFlagRequired("type")

	pointsAwardCmd.Flags().StringVar(&ptReason, "reason", "", "Why the points were awarded")
	_ = pointsAwardCmd.MarkFlagRequired("reason")

	eventsCmd.AddCommand(eventsListCmd, eventsShowCmd, eventsAddCmd, eventsDeleteCmd)
	pointsCmd.AddCommand(pointsAwardCmd)
}
