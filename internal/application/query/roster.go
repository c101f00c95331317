package query

import (
	"context"
	"sort"
	"strings"

	"github.com/housepoints/house-points-hub/internal/domain/leaderboard"
	"github.com/housepoints/house-points-hub/internal/domain/ledger"
	"github.com/housepoints/house-points-hub/internal/domain/student"
	"github.com/housepoints/house-points-hub/pkg/logger"
	"github.com/housepoints/house-points-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROSTERS
// ══════════════════════════════════════════════════════════════════════════════

// HouseRoster is a ranked house with its students ordered by class display
// order, last name, first name.
type HouseRoster struct {
	leaderboard.Entry
	Students []student.Profile
}

// ClassGroup is one class year of the winning house.
type ClassGroup struct {
	ClassYear student.ClassYear
	Count     int
	Students  []student.Profile
}

// WinnerRoster is the winning house's students split by class year. Every
// class year appears, including empty ones. Winner is nil when no houses
// exist.
type WinnerRoster struct {
	Winner  *leaderboard.Entry
	Classes []ClassGroup
}

// RosterHandler answers the roster queries.
type RosterHandler struct {
	store   ledger.Reader
	retrier *retry.Retrier
	log     *logger.Logger
}

// NewRosterHandler creates a new RosterHandler.
func NewRosterHandler(store ledger.Reader, log *logger.Logger) *RosterHandler {
	return &RosterHandler{
		store:   store,
		retrier: retry.ReadRetrier(),
		log:     log.WithComponent("query.roster"),
	}
}

type rosterData struct {
	entries  []leaderboard.Entry
	students []student.Profile
	years    []student.ClassYear
}

func (h *RosterHandler) load(ctx context.Context, withYears bool) (rosterData, error) {
	return retry.DoWithData(ctx, h.retrier, func(ctx context.Context) (rosterData, error) {
		houses, err := h.store.ListHouses(ctx)
		if err != nil {
			return rosterData{}, err
		}
		rows, err := h.store.ListScoredResults(ctx)
		if err != nil {
			return rosterData{}, err
		}
		students, err := h.store.ListStudents(ctx)
		if err != nil {
			return rosterData{}, err
		}
		d := rosterData{entries: leaderboard.Build(houses, rows), students: students}
		if withYears {
			if d.years, err = h.store.ListClassYears(ctx); err != nil {
				return rosterData{}, err
			}
		}
		return d, nil
	})
}

// StudentsByHouseRank returns every house in leaderboard order with its
// students. Houses without students carry an empty list.
func (h *RosterHandler) StudentsByHouseRank(ctx context.Context) ([]HouseRoster, error) {
	d, err := h.load(ctx, false)
	if err != nil {
		return nil, err
	}

	byHouse := groupByHouse(d.students)
	out := make([]HouseRoster, len(d.entries))
	for i, e := range d.entries {
		students := byHouse[e.HouseID]
		if students == nil {
			students = []student.Profile{}
		}
		sortRoster(students)
		out[i] = HouseRoster{Entry: e, Students: students}
	}

	h.log.Debug("rosters built", logger.Int("houses", len(out)), logger.Int("students", len(d.students)))
	return out, nil
}

// ByRank indexes rosters by leaderboard rank.
func ByRank(rosters []HouseRoster) map[int]HouseRoster {
	m := make(map[int]HouseRoster, len(rosters))
	for _, r := range rosters {
		m[r.Rank] = r
	}
	return m
}

// WinningHouseStudentsByClass returns the winning house's students for every
// class year, ordered by display order.
func (h *RosterHandler) WinningHouseStudentsByClass(ctx context.Context) (*WinnerRoster, error) {
	d, err := h.load(ctx, true)
	if err != nil {
		return nil, err
	}

	out := &WinnerRoster{
		Winner:  leaderboard.Winner(d.entries),
		Classes: make([]ClassGroup, 0, len(d.years)),
	}

	byYear := make(map[int64][]student.Profile)
	if out.Winner != nil {
		for _, p := range d.students {
			if p.HouseID == out.Winner.HouseID {
				byYear[p.ClassYearID] = append(byYear[p.ClassYearID], p)
			}
		}
	}

	years := append([]student.ClassYear(nil), d.years...)
	sort.SliceStable(years, func(i, j int) bool { return years[i].DisplayOrder < years[j].DisplayOrder })
	for _, y := range years {
		students := byYear[y.ID]
		if students == nil {
			students = []student.Profile{}
		}
		sortRoster(students)
		out.Classes = append(out.Classes, ClassGroup{ClassYear: y, Count: len(students), Students: students})
	}
	return out, nil
}

func groupByHouse(students []student.Profile) map[int64][]student.Profile {
	m := make(map[int64][]student.Profile)
	for _, p := range students {
		m[p.HouseID] = append(m[p.HouseID], p)
	}
	return m
}

func sortRoster(students []student.Profile) {
	sort.SliceStable(students, func(i, j int) bool {
		a, b := students[i], students[j]
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder < b.DisplayOrder
		}
		if c := strings.Compare(strings.ToLower(a.LastName), strings.ToLower(b.LastName)); c != 0 {
			return c < 0
		}
		if c := strings.Compare(strings.ToLower(a.FirstName), strings.ToLower(b.FirstName)); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
}
