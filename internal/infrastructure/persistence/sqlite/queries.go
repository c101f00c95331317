package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/housepoints/house-points-hub/internal/domain/event"
	"github.com/housepoints/house-points-hub/internal/domain/house"
	"github.com/housepoints/house-points-hub/internal/domain/shared"
	"github.com/housepoints/house-points-hub/internal/domain/student"
	"github.com/housepoints/house-points-hub/pkg/timeutil"
)

// dbtx is implemented by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements every ledger read and write on a dbtx.
type queries struct {
	q dbtx
}

// createdAtLayout keeps sub-second precision and sorts lexically.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

type scanner interface {
	Scan(dest ...any) error
}

func collect[T any](rows *sql.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func affected(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		return 0
	}
	return int(n)
}

// ─────────────────────────────────────────────────────────────────────────────
// Houses & class years
// ─────────────────────────────────────────────────────────────────────────────

func scanHouse(s scanner) (house.House, error) {
	var h house.House
	err := s.Scan(&h.ID, &h.Name, &h.Color)
	return h, err
}

func (r queries) ListHouses(ctx context.Context) ([]house.House, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT house_id, house_name, color FROM houses ORDER BY house_name, house_id
	`)
	if err != nil {
		return nil, mapError("house", "List", err)
	}
	out, err := collect(rows, scanHouse)
	return out, mapError("house", "List", err)
}

func (r queries) FindHouse(ctx context.Context, id int64) (house.House, error) {
	h, err := scanHouse(r.q.QueryRowContext(ctx, `
		SELECT house_id, house_name, color FROM houses WHERE house_id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return house.House{}, shared.NotFoundf("house", "Find", "house %d not found", id)
	}
	return h, mapError("house", "Find", err)
}

func (r queries) InsertHouse(ctx context.Context, h *house.House) error {
	res, err := r.q.ExecContext(ctx, `INSERT INTO houses (house_name, color) VALUES (?, ?)`, h.Name, h.Color)
	if err != nil {
		return mapError("house", "Insert", err)
	}
	h.ID, err = res.LastInsertId()
	return mapError("house", "Insert", err)
}

const classYearColumns = `class_year_id, class_name, grad_year, display_order`

func scanClassYear(s scanner) (student.ClassYear, error) {
	var c student.ClassYear
	err := s.Scan(&c.ID, &c.ClassName, &c.GraduationYear, &c.DisplayOrder)
	return c, err
}

func (r queries) ListClassYears(ctx context.Context) ([]student.ClassYear, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT `+classYearColumns+` FROM class_years ORDER BY display_order, class_year_id
	`)
	if err != nil {
		return nil, mapError("class_year", "List", err)
	}
	out, err := collect(rows, scanClassYear)
	return out, mapError("class_year", "List", err)
}

func (r queries) FindClassYear(ctx context.Context, id int64) (student.ClassYear, error) {
	c, err := scanClassYear(r.q.QueryRowContext(ctx, `
		SELECT `+classYearColumns+` FROM class_years WHERE class_year_id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return student.ClassYear{}, shared.NotFoundf("class_year", "Find", "class year %d not found", id)
	}
	return c, mapError("class_year", "Find", err)
}

func (r queries) InsertClassYear(ctx context.Context, c *student.ClassYear) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO class_years (class_name, grad_year, display_order) VALUES (?, ?, ?)
	`, c.ClassName, c.GraduationYear, c.DisplayOrder)
	if err != nil {
		return mapError("class_year", "Insert", err)
	}
	c.ID, err = res.LastInsertId()
	return mapError("class_year", "Insert", err)
}

func (r queries) UpdateClassYear(ctx context.Context, c student.ClassYear) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE class_years SET class_name = ?, grad_year = ?, display_order = ?
		WHERE class_year_id = ?
	`, c.ClassName, c.GraduationYear, c.DisplayOrder, c.ID)
	if err != nil {
		return mapError("class_year", "Update", err)
	}
	if affected(res) == 0 {
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

func scanProfile(s scanner) (student.Profile, error) {
	var p student.Profile
	err := s.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.HouseID, &p.ClassYearID,
		&p.HouseName, &p.HouseColor, &p.ClassName, &p.GraduationYear, &p.DisplayOrder,
	)
	return p, err
}

func (r queries) profiles(ctx context.Context, op, query string, args ...any) ([]student.Profile, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("student", op, err)
	}
	out, err := collect(rows, scanProfile)
	return out, mapError("student", op, err)
}

func (r queries) ListStudents(ctx context.Context) ([]student.Profile, error) {
	return r.profiles(ctx, "List", profileSelect+profileOrder)
}

func (r queries) SearchStudents(ctx context.Context, term string) ([]student.Profile, error) {
	p := strings.ToLower(likePattern(term))
	return r.profiles(ctx, "Search", profileSelect+`
		WHERE hp_fold(s.fname) LIKE ? ESCAPE '\'
		   OR hp_fold(s.lname) LIKE ? ESCAPE '\'
		   OR hp_fold(s.fname || ' ' || s.lname) LIKE ? ESCAPE '\'
		   OR hp_fold(s.email) LIKE ? ESCAPE '\'
	`+profileOrder, p, p, p, p)
}

func (r queries) FindStudentsByLastName(ctx context.Context, lastName string) ([]student.Profile, error) {
	return r.profiles(ctx, "FindByLastName", profileSelect+`
		WHERE hp_fold(s.lname) = ?
	`+profileOrder, strings.ToLower(strings.TrimSpace(lastName)))
}

func (r queries) FindStudent(ctx context.Context, id int64) (student.Profile, error) {
	p, err := scanProfile(r.q.QueryRowContext(ctx, profileSelect+` WHERE s.student_id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return student.Profile{}, shared.NotFoundf("student", "Find", "student %d not found", id)
	}
	return p, mapError("student", "Find", err)
}

func (r queries) CountStudentsByHouse(ctx context.Context) (map[int64]int, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT house_id, COUNT(*) FROM students GROUP BY house_id`)
	if err != nil {
		return nil, mapError("student", "CountByHouse", err)
	}
	type pair struct {
		id int64
		n  int
	}
	pairs, err := collect(rows, func(s scanner) (pair, error) {
		var p pair
		err := s.Scan(&p.id, &p.n)
		return p, err
	})
	if err != nil {
		return nil, mapError("student", "CountByHouse", err)
	}
	counts := make(map[int64]int, len(pairs))
	for _, p := range pairs {
		counts[p.id] = p.n
	}
	return counts, nil
}

func (r queries) InsertStudent(ctx context.Context, s *student.Student) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO students (fname, lname, email, house_id, class_year_id) VALUES (?, ?, ?, ?, ?)
	`, s.FirstName, s.LastName, s.Email, s.HouseID, s.ClassYearID)
	if err != nil {
		return mapError("student", "Insert", err)
	}
	s.ID, err = res.LastInsertId()
	return mapError("student", "Insert", err)
}

func (r queries) UpdateStudent(ctx context.Context, s student.Student) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE students SET fname = ?, lname = ?, email = ?, house_id = ?, class_year_id = ?
		WHERE student_id = ?
	`, s.FirstName, s.LastName, s.Email, s.HouseID, s.ClassYearID, s.ID)
	if err != nil {
		return mapError("student", "Update", err)
	}
	if affected(res) == 0 {
		return shared.NotFoundf("student", "Update", "student %d not found", s.ID)
	}
	return nil
}

func (r queries) DeleteStudent(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM students WHERE student_id = ?`, id)
	if err != nil {
		return mapError("student", "Delete", err)
	}
	if affected(res) == 0 {
		return shared.NotFoundf("student", "Delete", "student %d not found", id)
	}
	return nil
}

func (r queries) DeleteStudentsInClassYear(ctx context.Context, classYearID int64) (int, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM students WHERE class_year_id = ?`, classYearID)
	if err != nil {
		return 0, mapError("student", "DeleteInClassYear", err)
	}
	return affected(res), nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Events
// ─────────────────────────────────────────────────────────────────────────────

func parseDates(date, created string) (time.Time, time.Time, error) {
	d, err := timeutil.ParseDate(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	c, err := time.Parse(createdAtLayout, created)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid created_at %q: %w", created, err)
	}
	return d, c, nil
}

func (r queries) ListEvents(ctx context.Context, limit int) ([]event.Summary, error) {
	query := `
		SELECT e.event_id, e.event_date, e.event_desc, e.event_type, e.created_at,
		       COUNT(er.house_id)
		FROM events e
		LEFT JOIN event_results er ON er.event_id = e.event_id
		GROUP BY e.event_id
		ORDER BY e.event_date DESC, e.event_id DESC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError("event", "List", err)
	}
	out, err := collect(rows, func(s scanner) (event.Summary, error) {
		var e event.Summary
		var date, created, typ string
		if err := s.Scan(&e.ID, &date, &e.Description, &typ, &created, &e.HousesParticipated); err != nil {
			return e, err
		}
		e.Type = event.Type(typ)
		var err error
		e.Date, e.CreatedAt, err = parseDates(date, created)
		return e, err
	})
	return out, mapError("event", "List", err)
}

func (r queries) FindEvent(ctx context.Context, id int64) (event.Event, error) {
	var e event.Event
	var date, created, typ string
	err := r.q.QueryRowContext(ctx, `
		SELECT event_id, event_date, event_desc, event_type, created_at
		FROM events WHERE event_id = ?
	`, id).Scan(&e.ID, &date, &e.Description, &typ, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return event.Event{}, shared.NotFoundf("event", "Find", "event %d not found", id)
	}
	if err != nil {
		return event.Event{}, mapError("event", "Find", err)
	}
	e.Type = event.Type(typ)
	if e.Date, e.CreatedAt, err = parseDates(date, created); err != nil {
		return event.Event{}, mapError("event", "Find", err)
	}

	rows, err := r.q.QueryContext(ctx, `
		SELECT er.house_id, h.house_name, er.points_earned, er.rank
		FROM event_results er
		JOIN houses h ON h.house_id = er.house_id
		WHERE er.event_id = ?
		ORDER BY er.rank, h.house_name
	`, id)
	if err != nil {
		return event.Event{}, mapError("event", "Find", err)
	}
	e.Results, err = collect(rows, func(s scanner) (event.Result, error) {
		var res event.Result
		err := s.Scan(&res.HouseID, &res.HouseName, &res.Points, &res.Rank)
		return res, err
	})
	if err != nil {
		return event.Event{}, mapError("event", "Find", err)
	}
	return e, nil
}

func (r queries) ListScoredResults(ctx context.Context) ([]event.ScoredResult, error) {
	rows, err := r.q.QueryContext(ctx, `
		SELECT er.event_id, er.house_id, e.event_type, er.points_earned, er.rank
		FROM event_results er
		JOIN events e ON e.event_id = er.event_id
		ORDER BY er.event_id, er.house_id
	`)
	if err != nil {
		return nil, mapError("event", "ListScoredResults", err)
	}
	out, err := collect(rows, func(s scanner) (event.ScoredResult, error) {
		var row event.ScoredResult
		var typ string
		err := s.Scan(&row.EventID, &row.HouseID, &typ, &row.Points, &row.Rank)
		row.EventType = event.Type(typ)
		return row, err
	})
	return out, mapError("event", "ListScoredResults", err)
}

func (r queries) InsertEvent(ctx context.Context, e *event.Event) error {
	res, err := r.q.ExecContext(ctx, `
		INSERT INTO events (event_date, event_desc, event_type, created_at) VALUES (?, ?, ?, ?)
	`, timeutil.FormatDate(e.Date), e.Description, string(e.Type), e.CreatedAt.UTC().Format(createdAtLayout))
	if err != nil {
		return mapError("event", "InsertEvent", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return mapError("event", "InsertEvent", err)
	}

	for _, result := range e.Results {
		if _, err := r.q.ExecContext(ctx, `
			INSERT INTO event_results (event_id, house_id, points_earned, rank) VALUES (?, ?, ?, ?)
		`, e.ID, result.HouseID, result.Points, result.Rank); err != nil {
			return mapError("event", "InsertEvent", err)
		}
	}
	return nil
}

func (r queries) DeleteEvent(ctx context.Context, id int64) (bool, error) {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM event_results WHERE event_id = ?`, id); err != nil {
		return false, mapError("event", "Delete", err)
	}
	res, err := r.q.ExecContext(ctx, `DELETE FROM events WHERE event_id = ?`, id)
	if err != nil {
		return false, mapError("event", "Delete", err)
	}
	return affected(res) > 0, nil
}

func (r queries) DeleteAllResults(ctx context.Context) (int, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM event_results`)
	if err != nil {
		return 0, mapError("event", "DeleteAllResults", err)
	}
	return affected(res), nil
}

func (r queries) DeleteAllEvents(ctx context.Context) (int, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM events`)
	if err != nil {
		return 0, mapError("event", "DeleteAllEvents", err)
	}
	return affected(res), nil
}

// likePattern wraps term in % after escaping LIKE metacharacters.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(term)) + "%"
}
