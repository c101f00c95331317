package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/housepoints/house-points-hub/cmd/housepoints/output"
	"github.com/housepoints/house-points-hub/internal/application/command"
	"github.com/housepoints/house-points-hub/internal/application/query"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/domain/student"
)

var (
	// student flags
	stFirst string
	stLast  string
	stEmail string
	stHouse string
	stClass string
)

var studentsCmd = &cobra.Command{
	Use:     "students",
	Aliases: []string{"student"},
	Short:   "Manage students",
}

var studentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every student",
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		ps, err := query.NewDirectoryHandler(a.store, a.log).ListStudents(ctx)
		if err != nil {
			return err
		}
		printProfiles(ps)
		return nil
	}),
}

var studentsSearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Find students by name or email",
	Args:  requireArgs(1, "<term>"),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		ps, err := query.NewDirectoryHandler(a.store, a.log).SearchStudents(ctx, args[0])
		if err != nil {
			return err
		}
		printProfiles(ps)
		return nil
	}),
}

var studentsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one student",
	Args:  requireArgs(1, "<id>"),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("student", args[0])
		if err != nil {
			return err
		}
		p, err := query.NewDirectoryHandler(a.store, a.log).GetStudent(ctx, id)
		if err != nil {
			return err
		}
		printProfiles([]student.Profile{p})
		return nil
	}),
}

var studentsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Enroll one student",
	Long: `Enroll one student into a house and class year.

Examples:
  housepoints students add --first Jane --last Doe --house Athena --class Freshman
  housepoints students add --first Jo --last Roe --email jo@school.edu --house 2 --class 4`,
	RunE: withApp(func(ctx context.Context, a *app, _ []string) error {
		h, err := resolveHouse(ctx, a.store, stHouse)
		if err != nil {
			return err
		}
		y, err := resolveClassYear(ctx, a.store, stClass)
		if err != nil {
			return err
		}
		res, err := command.NewAddStudentHandler(a.store, a.log).Handle(ctx, command.AddStudentCommand{
			FirstName:   stFirst,
			LastName:    stLast,
			Email:       stEmail,
			HouseID:     h.ID,
			ClassYearID: y.ID,
		})
		if err != nil {
			return err
		}
		output.Success("Added %s (id %d) to %s, %s", res.Student.FullName(), res.Student.ID, h.Name, y.ClassName)
		return nil
	}),
}

var studentsHomeroomCmd = &cobra.Command{
	Use:   "homeroom <name>...",
	Short: "Enroll a whole homeroom into one house and class",
	Long: `Enroll several students into one house and class year at once. Either
every student is added or none is.

Each name is "First Last", optionally followed by ":email".

Example:
  housepoints students homeroom --house Athena --class Freshman "Jane Doe" "Jo Roe:jo@school.edu"`,
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		if len(args) == 0 {
			return shared.Validationf("cli", "homeroom", "at least one student name is required")
		}
		h, err := resolveHouse(ctx, a.store, stHouse)
		if err != nil {
			return err
		}
		y, err := resolveClassYear(ctx, a.store, stClass)
		if err != nil {
			return err
		}

		students := make([]command.NewStudent, 0, len(args))
		for _, arg := range args {
			ns, err := parseNewStudent(arg)
			if err != nil {
				return err
			}
			students = append(students, ns)
		}

		res, err := command.NewAddStudentsHandler(a.store, a.log).Handle(ctx, command.AddStudentsCommand{
			HouseID:     h.ID,
			ClassYearID: y.ID,
			Students:    students,
		})
		if err != nil {
			return err
		}
		output.Success("Added %d students to %s, %s", len(res.Students), h.Name, y.ClassName)
		return nil
	}),
}

var studentsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a student's name, email, house or class",
	Long: `Change a student's details. Only the flags given are changed.

Example:
  housepoints students update 12 --house Apollo --email jane@school.edu`,
	Args: requireArgs(1, "<id> [--first] [--last] [--email] [--house] [--class]"),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app, args []string) error {
			return runStudentUpdate(ctx, a, cmd.Flags(), args[0])
		})(cmd, args)
	},
}

func runStudentUpdate(ctx context.Context, a *app, flags *pflag.FlagSet, arg string) error {
	id, err := parseID("student", arg)
	if err != nil {
		return err
	}

	var u student.Update
	if flags.Changed("first") {
		u.FirstName = &stFirst
	}
	if flags.Changed("last") {
		u.LastName = &stLast
	}
	if flags.Changed("email") {
		u.Email = &stEmail
	}
	if flags.Changed("house") {
		h, err := resolveHouse(ctx, a.store, stHouse)
		if err != nil {
			return err
		}
		u.HouseID = &h.ID
	}
	if flags.Changed("class") {
		y, err := resolveClassYear(ctx, a.store, stClass)
		if err != nil {
			return err
		}
		u.ClassYearID = &y.ID
	}

	res, err := command.NewUpdateStudentHandler(a.store, a.log).Handle(ctx, command.UpdateStudentCommand{
		StudentID: id,
		Changes:   u,
	})
	if err != nil {
		return err
	}
	output.Success("Updated %s", res.After.FullName())
	return nil
}

var studentsRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"delete"},
	Short:   "Remove a student",
	Args:    requireArgs(1, "<id>"),
	RunE: withApp(func(ctx context.Context, a *app, args []string) error {
		id, err := parseID("student", args[0])
		if err != nil {
			return err
		}
		res, err := command.NewDeleteStudentHandler(a.store, a.log).Handle(ctx, command.DeleteStudentCommand{StudentID: id})
		if err != nil {
			return err
		}
		output.Success("Removed %s", res.Student)
		return nil
	}),
}

// parseNewStudent parses "First Last" or "First Last:email". Everything
// after the first word is the last name.
func parseNewStudent(arg string) (command.NewStudent, error) {
	name, email, _ := strings.Cut(arg, ":")
	first, last, ok := strings.Cut(strings.TrimSpace(name), " ")
	if !ok || strings.TrimSpace(last) == "" {
		return command.NewStudent{}, shared.Validationf("cli", "homeroom",
			"%q: want \"First Last\" or \"First Last:email\"", arg)
	}
	return command.NewStudent{
		FirstName: strings.TrimSpace(first),
		LastName:  strings.TrimSpace(last),
		Email:     strings.TrimSpace(email),
	}, nil
}

func init() {
	for _, c := range []*cobra.Command{studentsAddCmd, studentsUpdateCmd} {
		c.Flags().StringVar(&stFirst, "first", "", "First name")
		c.Flags().StringVar(&stLast, "last", "", "Last name")
		c.Flags().StringVar(&stEmail, "email", "", "Email address")
	}
	for _, c := range []*cobra.Command{studentsAddCmd, studentsUpdateCmd, studentsHomeroomCmd} {
		c.Flags().StringVar(&stHouse, "house", "", "House name or id")
		c.Flags().StringVar(&stClass, "class", "", "Class name or id")
	}
	for _, c := range []*cobra.Command{studentsAddCmd, studentsHomeroomCmd} {
		_ = c.MarkFlagRequired("house")
		_ = c.MarkFlagRequired("class")
	}
	_ = studentsAddCmd.MarkFlagRequired("first")
	_ = studentsAddCmd.MarkFlagRequired("last")

	studentsCmd.AddCommand(
		studentsListCmd,
		studentsSearchCmd,
		studentsShowCmd,
		studentsAddCmd,
		studentsHomeroomCmd,
		studentsUpdateCmd,
		studentsRemoveCmd,
	)
}
