// Package student contains the student and class-year model plus the
// house assignment rules used when enrolling new students.
package student

import (
	"fmt"
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLASS YEAR
// ══════════════════════════════════════════════════════════════════════════════

// ClassYear is a graduating cohort. DisplayOrder defines traversal and sort
// order; 1 is the oldest class.
type ClassYear struct {
	ID             int64
	ClassName      string
	GraduationYear int
	DisplayOrder   int
}

// classNames is the fixed display_order → class_name mapping applied after
// a season rollover. Orders outside the table keep their current name.
var classNames = map[int]string{
	1: "Senior",
	2: "Junior",
	3: "Sophomore",
	4: "Freshman",
}

// ClassNameForOrder returns the canonical name for a display order.
func ClassNameForOrder(order int) (string, bool) {
	name, ok := classNames[order]
	return name, ok
}

// Promote returns the class year as it looks one season later: graduation
// year decremented and name reassigned from the display order.
func (c ClassYear) Promote() ClassYear {
	next := c
	next.GraduationYear--
	if name, ok := ClassNameForOrder(c.DisplayOrder); ok {
		next.ClassName = name
	}
	return next
}

// DefaultClassYears returns the four standard class years for a school year
// whose seniors graduate in seniorYear.
func DefaultClassYears(seniorYear int) []ClassYear {
	years := make([]ClassYear, 0, len(classNames))
	for order := 1; order <= len(classNames); order++ {
		years = append(years, ClassYear{
			ClassName:      classNames[order],
			GraduationYear: seniorYear + order - 1,
			DisplayOrder:   order,
		})
	}
	return years
}

// Senior returns the class year with the minimum graduation year. The second
// result is false when years is empty or the minimum is shared, which breaks
// the single-senior-class invariant.
func Senior(years []ClassYear) (ClassYear, bool) {
	if len(years) == 0 {
		return ClassYear{}, false
	}
	senior := years[0]
	unique := true
	for _, y := range years[1:] {
		switch {
		case y.GraduationYear < senior.GraduationYear:
			senior = y
			unique = true
		case y.GraduationYear == senior.GraduationYear:
			unique = false
		}
	}
	return senior, unique
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT
// ══════════════════════════════════════════════════════════════════════════════

// Student is an enrolled student. HouseID and ClassYearID are required
// references.
type Student struct {
	ID          int64
	FirstName   string
	LastName    string
	Email       string
	HouseID     int64
	ClassYearID int64
}

// FullName returns "First Last".
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// Normalize trims whitespace from the free-text fields.
func (s *Student) Normalize() {
	s.FirstName = strings.TrimSpace(s.FirstName)
	s.LastName = strings.TrimSpace(s.LastName)
	s.Email = strings.TrimSpace(s.Email)
}

// Profile is a student joined with its house and class year, as returned by
// list and search reads.
type Profile struct {
	Student
	HouseName      string
	HouseColor     string
	ClassName      string
	GraduationYear int
	DisplayOrder   int
}

func (p Profile) String() string {
	return fmt.Sprintf("%s (%s, %s)", p.FullName(), p.HouseName, p.ClassName)
}

// Update carries optional field changes for an existing student. Nil fields
// are left untouched.
type Update struct {
	FirstName   *string
	LastName    *string
	Email       *string
	HouseID     *int64
	ClassYearID *int64
}

// IsEmpty reports whether the update changes nothing.
func (u Update) IsEmpty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil &&
		u.HouseID == nil && u.ClassYearID == nil
}

// Apply returns s with the non-nil fields of u applied.
func (u Update) Apply(s Student) Student {
	if u.FirstName != nil {
		s.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		s.LastName = *u.LastName
	}
	if u.Email != nil {
		s.Email = *u.Email
	}
	if u.HouseID != nil {
		s.HouseID = *u.HouseID
	}
	if u.ClassYearID != nil {
		s.ClassYearID = *u.ClassYearID
	}
	s.Normalize()
	return s
}
