// Package leaderboard computes house standings from the result ledger.
// Everything here is a pure function of its inputs: callers fetch houses
// and scored results from the ledger and recompute on every request.
package leaderboard

import (
	"fmt"
	"sort"

	"github.com/housepoints/house-points-hub/internal/domain/event"
	"github.com/housepoints/house-points-hub/internal/domain/house"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Entry is one ranked house. Rank is 1-based and unique (row-number
// style); ties in TotalPoints are ordered by house name, then ID.
type Entry struct {
	Rank               int
	HouseID            int64
	House              string
	Color              string
	TotalPoints        int
	EventsParticipated int
	Wins               int
	Second             int
	Third              int
	Fourth             int
}

func (e Entry) String() string {
	return fmt.Sprintf("Entry{Rank: %d, House: %s, Total: %d, Events: %d}",
		e.Rank, e.House, e.TotalPoints, e.EventsParticipated)
}

// Standing extends an entry with the gap to the house ranked just below.
// PointsAheadOfNext is nil for the last entry.
type Standing struct {
	Entry
	PointsAheadOfNext *int
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKING
// ══════════════════════════════════════════════════════════════════════════════

// Ranking accumulates results per house in a single pass and then sorts.
type Ranking struct {
	entries []*Entry
	byID    map[int64]*Entry
	events  map[int64]map[int64]struct{} // house -> distinct event IDs
}

// NewRanking seeds a ranking with every house at zero, so that houses with
// no results still appear.
func NewRanking(houses []house.House) *Ranking {
	r := &Ranking{
		entries: make([]*Entry, 0, len(houses)),
		byID:    make(map[int64]*Entry, len(houses)),
		events:  make(map[int64]map[int64]struct{}, len(houses)),
	}
	for _, h := range houses {
		if _, dup := r.byID[h.ID]; dup {
			continue
		}
		e := &Entry{HouseID: h.ID, House: h.Name, Color: h.Color}
		r.entries = append(r.entries, e)
		r.byID[h.ID] = e
		r.events[h.ID] = make(map[int64]struct{})
	}
	return r
}

// Add folds one result row into its house. Rows for unknown houses are
// ignored; the ledger's foreign keys make them unreachable.
func (r *Ranking) Add(row event.ScoredResult) {
	e, ok := r.byID[row.HouseID]
	if !ok {
		return
	}
	e.TotalPoints += row.Signed()
	r.events[row.HouseID][row.EventID] = struct{}{}

	switch row.Rank {
	case 1:
		e.Wins++
	case 2:
		e.Second++
	case 3:
		e.Third++
	case 4:
		e.Fourth++
	}
}

// Sort orders by total descending, then house name, then ID, and assigns ranks.
func (r *Ranking) Sort() {
	for id, e := range r.byID {
		e.EventsParticipated = len(r.events[id])
	}

	sort.SliceStable(r.entries, func(i, j int) bool {
		a, b := r.entries[i], r.entries[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.House != b.House {
			return a.House < b.House
		}
		return a.HouseID < b.HouseID
	})

	for i, e := range r.entries {
		e.Rank = i + 1
	}
}

// Entries returns a copy of the ranked entries.
func (r *Ranking) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = *e
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPUTATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Build ranks houses by their signed totals over rows.
func Build(houses []house.House, rows []event.ScoredResult) []Entry {
	r := NewRanking(houses)
	for _, row := range rows {
		r.Add(row)
	}
	r.Sort()
	return r.Entries()
}

// Totals returns the signed total per house for every house that has at
// least one row.
func Totals(rows []event.ScoredResult) map[int64]int {
	totals := make(map[int64]int)
	for _, row := range rows {
		totals[row.HouseID] += row.Signed()
	}
	return totals
}

// LedgerSum is the signed sum over every row. It equals the sum of the
// leaderboard's TotalPoints when every row references a known house.
func LedgerSum(rows []event.ScoredResult) int {
	sum := 0
	for _, row := range rows {
		sum += row.Signed()
	}
	return sum
}

// Winner returns the first entry, or nil when there are no houses.
func Winner(entries []Entry) *Entry {
	if len(entries) == 0 {
		return nil
	}
	w := entries[0]
	return &w
}

// WithGaps annotates each entry with its lead over the next one.
func WithGaps(entries []Entry) []Standing {
	out := make([]Standing, len(entries))
	for i, e := range entries {
		out[i] = Standing{Entry: e}
		if i+1 < len(entries) {
			gap := e.TotalPoints - entries[i+1].TotalPoints
			out[i].PointsAheadOfNext = &gap
		}
	}
	return out
}
