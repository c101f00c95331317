package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/housepoints/house-points-hub/internal/domain/event"
	"github.com/housepoints/house-points-hub/internal/domain/house"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/domain/student"
)

// queries implements every ledger read and write on a Querier, so the same
// code serves the pool and a transaction.
type queries struct {
	q Querier
}

// ─────────────────────────────────────────────────────────────────────────────
// Houses & class years
// ─────────────────────────────────────────────────────────────────────────────

func (r queries) ListHouses(ctx context.Context) ([]house.House, error) {
	rows, err := r.q.Query(ctx, `
		SELECT house_id, house_name, color
		FROM houses
		ORDER BY house_name, house_id
	`)
	if err != nil {
		return nil, mapError("house", "List", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (house.House, error) {
		var h house.House
		err := row.Scan(&h.ID, &h.Name, &h.Color)
		return h, err
	})
	if err != nil {
		return nil, mapError("house", "List", err)
	}
	return out, nil
}

func (r queries) FindHouse(ctx context.Context, id int64) (house.House, error) {
	var h house.House
	err := r.q.QueryRow(ctx, `
		SELECT house_id, house_name, color FROM houses WHERE house_id = $1
	`, id).Scan(&h.ID, &h.Name, &h.Color)
	if IsNoRows(err) {
		return house.House{}, shared.NotFoundf("house", "Find", "house %d not found", id)
	}
	if err != nil {
		return house.House{}, mapError("house", "Find", err)
	}
	return h, nil
}

func (r queries) InsertHouse(ctx context.Context, h *house.House) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO houses (house_name, color) VALUES ($1, $2) RETURNING house_id
	`, h.Name, h.Color).Scan(&h.ID)
	return mapError("house", "Insert", err)
}

const classYearColumns = `class_year_id, class_name, grad_year, display_order`

func scanClassYear(row pgx.Row) (student.ClassYear, error) {
	var c student.ClassYear
	err := row.Scan(&c.ID, &c.ClassName, &c.GraduationYear, &c.DisplayOrder)
	return c, err
}

func (r queries) ListClassYears(ctx context.Context) ([]student.ClassYear, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+classYearColumns+`
		FROM class_years
		ORDER BY display_order, class_year_id
	`)
	if err != nil {
		return nil, mapError("class_year", "List", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (student.ClassYear, error) {
		return scanClassYear(row)
	})
	if err != nil {
		return nil, mapError("class_year", "List", err)
	}
	return out, nil
}

func (r queries) FindClassYear(ctx context.Context, id int64) (student.ClassYear, error) {
	c, err := scanClassYear(r.q.QueryRow(ctx, `
		SELECT `+classYearColumns+` FROM class_years WHERE class_year_id = $1
	`, id))
	if IsNoRows(err) {
		return student.ClassYear{}, shared.NotFoundf("class_year", "Find", "class year %d not found", id)
	}
	if err != nil {
		return student.ClassYear{}, mapError("class_year", "Find", err)
	}
	return c, nil
}

func (r queries) InsertClassYear(ctx context.Context, c *student.ClassYear) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO class_years (class_name, grad_year, display_order)
		VALUES ($1, $2, $3)
		RETURNING class_year_id
	`, c.ClassName, c.GraduationYear, c.DisplayOrder).Scan(&c.ID)
	return mapError("class_year", "Insert", err)
}

func (r queries) UpdateClassYear(ctx context.Context, c student.ClassYear) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE class_years
		SET class_name = $1, grad_year = $2, display_order = $3
		WHERE class_year_id = $4
	`, c.ClassName, c.GraduationYear, c.DisplayOrder, c.ID)
	if err != nil {
		return mapError("class_year", "Update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("class_year", "Update", "class year %d not found", c.ID)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Students
// ─────────────────────────────────────────────────────────────────────────────

const profileSelect = `
	SELECT s.student_id, s.fname, s.lname, s.email, s.house_id, s.class_year_id,
	       h.house_name, h.color, c.class_name, c.grad_year, c.display_order
	FROM students s
	JOIN houses h ON h.house_id = s.house_id
	JOIN class_years c ON c.class_year_id = s.class_year_id
`

const profileOrder = `
	ORDER BY h.house_name, c.display_order, s.lname, s.fname, s.student_id
`

func scanProfile(row pgx.Row) (student.Profile, error) {
	var p student.Profile
	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.HouseID, &p.ClassYearID,
		&p.HouseName, &p.HouseColor, &p.ClassName, &p.GraduationYear, &p.DisplayOrder,
	)
	return p, err
}

func (r queries) profiles(ctx context.Context, op, sql string, args ...any) ([]student.Profile, error) {
	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError("student", op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (student.Profile, error) {
		return scanProfile(row)
	})
	if err != nil {
		return nil, mapError("student", op, err)
	}
	return out, nil
}

func (r queries) ListStudents(ctx context.Context) ([]student.Profile, error) {
	return r.profiles(ctx, "List", profileSelect+profileOrder)
}

func (r queries) SearchStudents(ctx context.Context, term string) ([]student.Profile, error) {
	return r.profiles(ctx, "Search", profileSelect+`
		WHERE s.fname ILIKE $1
		   OR s.lname ILIKE $1
		   OR (s.fname || ' ' || s.lname) ILIKE $1
		   OR s.email ILIKE $1
	`+profileOrder, likePattern(term))
}

func (r queries) FindStudentsByLastName(ctx context.Context, lastName string) ([]student.Profile, error) {
	return r.profiles(ctx, "FindByLastName", profileSelect+`
		WHERE lower(s.lname) = lower($1)
	`+profileOrder, strings.TrimSpace(lastName))
}

func (r queries) FindStudent(ctx context.Context, id int64) (student.Profile, error) {
	p, err := scanProfile(r.q.QueryRow(ctx, profileSelect+` WHERE s.student_id = $1`, id))
	if IsNoRows(err) {
		return student.Profile{}, shared.NotFoundf("student", "Find", "student %d not found", id)
	}
	if err != nil {
		return student.Profile{}, mapError("student", "Find", err)
	}
	return p, nil
}

func (r queries) CountStudentsByHouse(ctx context.Context) (map[int64]int, error) {
	rows, err := r.q.Query(ctx, `SELECT house_id, COUNT(*) FROM students GROUP BY house_id`)
	if err != nil {
		return nil, mapError("student", "CountByHouse", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, mapError("student", "CountByHouse", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, mapError("student", "CountByHouse", err)
	}
	return counts, nil
}

func (r queries) InsertStudent(ctx context.Context, s *student.Student) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO students (fname, lname, email, house_id, class_year_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING student_id
	`, s.FirstName, s.LastName, s.Email, s.HouseID, s.ClassYearID).Scan(&s.ID)
	return mapError("student", "Insert", err)
}

func (r queries) UpdateStudent(ctx context.Context, s student.Student) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE students
		SET fname = $1, lname = $2, email = $3, house_id = $4, class_year_id = $5
		WHERE student_id = $6
	`, s.FirstName, s.LastName, s.Email, s.HouseID, s.ClassYearID, s.ID)
	if err != nil {
		return mapError("student", "Update", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("student", "Update", "student %d not found", s.ID)
	}
	return nil
}

func (r queries) DeleteStudent(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM students WHERE student_id = $1`, id)
	if err != nil {
		return mapError("student", "Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("student", "Delete", "student %d not found", id)
	}
	return nil
}

func (r queries) DeleteStudentsInClassYear(ctx context.Context, classYearID int64) (int, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM students WHERE class_year_id = $1`, classYearID)
	if err != nil {
		return 0, mapError("student", "DeleteInClassYear", err)
	}
	return int(tag.RowsAffected()), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Events
// ─────────────────────────────────────────────────────────────────────────────

func (r queries) ListEvents(ctx context.Context, limit int) ([]event.Summary, error) {
	sql := `
		SELECT e.event_id, e.event_date, e.event_desc, e.event_type, e.created_at,
		       COUNT(er.house_id)
		FROM events e
		LEFT JOIN event_results er ON er.event_id = e.event_id
		GROUP BY e.event_id
		ORDER BY e.event_date DESC, e.event_id DESC
	`
	args := []any{}
	if limit > 0 {
		sql += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError("event", "List", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (event.Summary, error) {
		var s event.Summary
		var typ string
		err := row.Scan(&s.ID, &s.Date, &s.Description, &typ, &s.CreatedAt, &s.HousesParticipated)
		s.Type = event.Type(typ)
		return s, err
	})
	if err != nil {
		return nil, mapError("event", "List", err)
	}
	return out, nil
}

func (r queries) FindEvent(ctx context.Context, id int64) (event.Event, error) {
	var e event.Event
	var typ string
	err := r.q.QueryRow(ctx, `
		SELECT event_id, event_date, event_desc, event_type, created_at
		FROM events WHERE event_id = $1
	`, id).Scan(&e.ID, &e.Date, &e.Description, &typ, &e.CreatedAt)
	if IsNoRows(err) {
		return event.Event{}, shared.NotFoundf("event", "Find", "event %d not found", id)
	}
	if err != nil {
		return event.Event{}, mapError("event", "Find", err)
	}
	e.Type = event.Type(typ)

	rows, err := r.q.Query(ctx, `
		SELECT er.house_id, h.house_name, er.points_earned, er.rank
		FROM event_results er
		JOIN houses h ON h.house_id = er.house_id
		WHERE er.event_id = $1
		ORDER BY er.rank, h.house_name
	`, id)
	if err != nil {
		return event.Event{}, mapError("event", "Find", err)
	}
	e.Results, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (event.Result, error) {
		var res event.Result
		err := row.Scan(&res.HouseID, &res.HouseName, &res.Points, &res.Rank)
		return res, err
	})
	if err != nil {
		return event.Event{}, mapError("event", "Find", err)
	}
	return e, nil
}

func (r queries) ListScoredResults(ctx context.Context) ([]event.ScoredResult, error) {
	rows, err := r.q.Query(ctx, `
		SELECT er.event_id, er.house_id, e.event_type, er.points_earned, er.rank
		FROM event_results er
		JOIN events e ON e.event_id = er.event_id
		ORDER BY er.event_id, er.house_id
	`)
	if err != nil {
		return nil, mapError("event", "ListScoredResults", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (event.ScoredResult, error) {
		var s event.ScoredResult
		var typ string
		err := row.Scan(&s.EventID, &s.HouseID, &typ, &s.Points, &s.Rank)
		s.EventType = event.Type(typ)
		return s, err
	})
	if err != nil {
		return nil, mapError("event", "ListScoredResults", err)
	}
	return out, nil
}

func (r queries) DeleteEvent(ctx context.Context, id int64) (bool, error) {
	if _, err := r.q.Exec(ctx, `DELETE FROM event_results WHERE event_id = $1`, id); err != nil {
		return false, mapError("event", "Delete", err)
	}
	tag, err := r.q.Exec(ctx, `DELETE FROM events WHERE event_id = $1`, id)
	if err != nil {
		return false, mapError("event", "Delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r queries) DeleteAllResults(ctx context.Context) (int, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM event_results`)
	if err != nil {
		return 0, mapError("event", "DeleteAllResults", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r queries) DeleteAllEvents(ctx context.Context) (int, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM events`)
	if err != nil {
		return 0, mapError("event", "DeleteAllEvents", err)
	}
	return int(tag.RowsAffected()), nil
}

// likePattern wraps term in % after escaping LIKE metacharacters.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return fmt.Sprintf("%%%s%%", r.Replace(strings.TrimSpace(term)))
}
