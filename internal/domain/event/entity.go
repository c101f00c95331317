// Package event models scored competition events and their per-house results.
package event

import (
	"fmt"
	"strings"
	"time"
)

// Type is a free-form event tag. Two values are reserved.
type Type string

const (
	// TypeDeduction results are subtracted from house totals.
	TypeDeduction Type = "deduction"

	// TypeQuickPoints is the baseline type for ad-hoc point awards.
	TypeQuickPoints Type = "quick_points"
)

// Sign is -1 for deductions and +1 for every other type.
func (t Type) Sign() int {
	if t == TypeDeduction {
		return -1
	}
	return 1
}

// IsReserved reports whether t has special semantics.
func (t Type) IsReserved() bool {
	return t == TypeDeduction || t == TypeQuickPoints
}

// Event is a scored competition instance. Results holds one row per
// participating house.
type Event struct {
	ID          int64
	Date        time.Time
	Description string
	Type        Type
	CreatedAt   time.Time
	Results     []Result
}

// Result is a house's rank and points for one event. Points is always
// non-negative; the sign comes from the owning event's Type.
type Result struct {
	HouseID   int64
	HouseName string
	Points    int
	Rank      int
}

// ValidationProblem describes why a result set was rejected.
type ValidationProblem struct {
	Index  int
	Reason string
}

func (p ValidationProblem) String() string {
	return fmt.Sprintf("result %d: %s", p.Index+1, p.Reason)
}

// ValidateResults checks a result set for emptiness, sign, rank and
// duplicate houses. It does not check that houses exist.
func ValidateResults(results []Result) []ValidationProblem {
	if len(results) == 0 {
		return []ValidationProblem{{Index: -1, Reason: "at least one result is required"}}
	}

	var problems []ValidationProblem
	seen := make(map[int64]int, len(results))
	for i, r := range results {
		if r.Points < 0 {
			problems = append(problems, ValidationProblem{Index: i, Reason: fmt.Sprintf("points must be >= 0, got %d", r.Points)})
		}
		if r.Rank < 1 {
			problems = append(problems, ValidationProblem{Index: i, Reason: fmt.Sprintf("rank must be >= 1, got %d", r.Rank)})
		}
		if prev, dup := seen[r.HouseID]; dup {
			problems = append(problems, ValidationProblem{Index: i, Reason: fmt.Sprintf("house %d already listed in result %d", r.HouseID, prev+1)})
		}
		seen[r.HouseID] = i
	}
	return problems
}

// JoinProblems renders problems as a single message.
func JoinProblems(problems []ValidationProblem) string {
	parts := make([]string, len(problems))
	for i, p := range problems {
		if p.Index < 0 {
			parts[i] = p.Reason
			continue
		}
		parts[i] = p.String()
	}
	return strings.Join(parts, "; ")
}

// ScoredResult is one result row joined with its event type. It is the
// only input the standings computation needs.
type ScoredResult struct {
	EventID   int64
	HouseID   int64
	EventType Type
	Points    int
	Rank      int
}

// Signed returns the contribution of the row to its house's total.
func (r ScoredResult) Signed() int {
	return r.EventType.Sign() * r.Points
}

// Summary is an event as listed, with its participating house count.
type Summary struct {
	ID                 int64
	Date               time.Time
	Description        string
	Type               Type
	CreatedAt          time.Time
	HousesParticipated int
}
