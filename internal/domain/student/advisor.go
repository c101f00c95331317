package student

import (
	"fmt"
	"sort"
	"strings"

	"github.com/housepoints/house-points-hub/internal/domain/house"
)

// ══════════════════════════════════════════════════════════════════════════════
// HOUSE ASSIGNMENT ADVISOR
//
// Rules are tried in order and the first one that matches decides:
//   1. homeroom  - entry-grade student with a mapped homeroom code
//   2. siblings  - existing students sharing the last name
//   3. balance   - the smallest non-empty house
// ══════════════════════════════════════════════════════════════════════════════

// Rule names the advisor rule that produced a suggestion.
type Rule string

const (
	RuleHomeroom Rule = "homeroom"
	RuleSibling  Rule = "sibling"
	RuleBalance  Rule = "balance"
	RuleNone     Rule = "none"
)

// AdviceRequest describes the student being placed.
type AdviceRequest struct {
	FirstName string
	LastName  string
	Grade     string
	Homeroom  string
}

// HouseLoad is a house with its current student count.
type HouseLoad struct {
	House    house.House
	Students int
}

// Sibling is a matched existing student, as reported back to the caller.
type Sibling struct {
	FirstName string
	HouseName string
	ClassName string
}

// Suggestion is the advisor output. HouseID is nil when no house could be
// suggested; Siblings is empty unless the sibling rule fired.
type Suggestion struct {
	HouseID   *int64
	HouseName string
	Rule      Rule
	Reason    string
	Siblings  []Sibling
}

// Advisor holds the static homeroom table.
type Advisor struct {
	entryGrade string
	homerooms  map[string]string // lower(code) -> house name
}

// NewAdvisor builds an advisor. homerooms maps homeroom codes to house names.
func NewAdvisor(entryGrade string, homerooms map[string]string) *Advisor {
	m := make(map[string]string, len(homerooms))
	for code, name := range homerooms {
		m[strings.ToLower(strings.TrimSpace(code))] = strings.TrimSpace(name)
	}
	return &Advisor{entryGrade: strings.TrimSpace(entryGrade), homerooms: m}
}

// Suggest applies the rule chain. loads must cover every house (including
// empty ones); siblings are the existing students whose last name matches
// req.LastName case-insensitively.
func (a *Advisor) Suggest(req AdviceRequest, loads []HouseLoad, siblings []Profile) Suggestion {
	if s, ok := a.byHomeroom(req, loads); ok {
		return s
	}
	if s, ok := bySiblings(loads, siblings); ok {
		return s
	}
	return byBalance(loads)
}

func (a *Advisor) byHomeroom(req AdviceRequest, loads []HouseLoad) (Suggestion, bool) {
	if strings.TrimSpace(req.Grade) != a.entryGrade {
		return Suggestion{}, false
	}
	code := strings.ToLower(strings.TrimSpace(req.Homeroom))
	if code == "" {
		return Suggestion{}, false
	}
	name, ok := a.homerooms[code]
	if !ok {
		return Suggestion{}, false
	}

	for _, l := range loads {
		if strings.EqualFold(l.House.Name, name) {
			id := l.House.ID
			return Suggestion{
				HouseID:   &id,
				HouseName: l.House.Name,
				Rule:      RuleHomeroom,
				Reason: fmt.Sprintf("Grade %s homeroom %s is assigned to %s",
					a.entryGrade, strings.TrimSpace(req.Homeroom), l.House.Name),
				Siblings: []Sibling{},
			}, true
		}
	}
	return Suggestion{}, false
}

type siblingGroup struct {
	load      HouseLoad
	names     []string
	fullNames []string
}

func bySiblings(loads []HouseLoad, siblings []Profile) (Suggestion, bool) {
	if len(siblings) == 0 {
		return Suggestion{}, false
	}

	loadByID := make(map[int64]HouseLoad, len(loads))
	for _, l := range loads {
		loadByID[l.House.ID] = l
	}

	groups := make(map[int64]*siblingGroup)
	matched := make([]Sibling, 0, len(siblings))
	for _, p := range siblings {
		matched = append(matched, Sibling{
			FirstName: p.FirstName,
			HouseName: p.HouseName,
			ClassName: p.ClassName,
		})

		g, ok := groups[p.HouseID]
		if !ok {
			l, known := loadByID[p.HouseID]
			if !known {
				l = HouseLoad{House: house.House{ID: p.HouseID, Name: p.HouseName, Color: p.HouseColor}}
			}
			g = &siblingGroup{load: l}
			groups[p.HouseID] = g
		}
		g.names = append(g.names, p.FirstName)
		g.fullNames = append(g.fullNames, p.FullName())
	}

	ordered := make([]*siblingGroup, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	// most siblings, then fewest total students, then name
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if len(a.names) != len(b.names) {
			return len(a.names) > len(b.names)
		}
		if a.load.Students != b.load.Students {
			return a.load.Students < b.load.Students
		}
		if a.load.House.Name != b.load.House.Name {
			return a.load.House.Name < b.load.House.Name
		}
		return a.load.House.ID < b.load.House.ID
	})

	best := ordered[0]
	id := best.load.House.ID
	s := Suggestion{
		HouseID:   &id,
		HouseName: best.load.House.Name,
		Rule:      RuleSibling,
		Siblings:  matched,
	}

	if len(ordered) == 1 {
		s.Reason = fmt.Sprintf("Sibling%s %s already in %s",
			plural(len(best.names), "", "s"), strings.Join(best.fullNames, ", "), best.load.House.Name)
		return s, true
	}

	options := make([]string, 0, len(ordered))
	for _, g := range ordered {
		options = append(options, fmt.Sprintf("%s (%d: %s)",
			g.load.House.Name, len(g.names), strings.Join(g.names, ", ")))
	}
	reason := fmt.Sprintf("Siblings found in multiple houses: %s. ", strings.Join(options, "; "))

	runnerUp := ordered[1]
	if len(runnerUp.names) == len(best.names) {
		tied := 0
		for _, g := range ordered {
			if len(g.names) == len(best.names) {
				tied++
			}
		}
		basis := fmt.Sprintf("fewest total students (%d)", best.load.Students)
		if runnerUp.load.Students == best.load.Students {
			basis = fmt.Sprintf("equal student counts (%d), chosen alphabetically", best.load.Students)
		}
		reason += fmt.Sprintf("%d houses tied with %d sibling%s each; tie broken by %s: %s",
			tied, len(best.names), plural(len(best.names), "", "s"), basis, best.load.House.Name)
	} else {
		reason += fmt.Sprintf("Chose %s with the most siblings (%d)", best.load.House.Name, len(best.names))
	}
	s.Reason = reason
	return s, true
}

func byBalance(loads []HouseLoad) Suggestion {
	var best *HouseLoad
	for i := range loads {
		l := &loads[i]
		if l.Students == 0 {
			continue
		}
		if best == nil ||
			l.Students < best.Students ||
			(l.Students == best.Students && l.House.Name < best.House.Name) {
			best = l
		}
	}

	if best == nil {
		return Suggestion{
			Rule:     RuleNone,
			Reason:   "No students are enrolled yet, so there is no basis for a suggestion",
			Siblings: []Sibling{},
		}
	}

	id := best.House.ID
	return Suggestion{
		HouseID:   &id,
		HouseName: best.House.Name,
		Rule:      RuleBalance,
		Reason:    fmt.Sprintf("%s has the fewest students (%d)", best.House.Name, best.Students),
		Siblings:  []Sibling{},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
