package catalog

import (
	"math"
	"strings"
	"time"
)

// CourseType distinguishes full courses from refreshers.
type CourseType string

const (
	TypeStandard  CourseType = "standard"
	TypeRefresher CourseType = "refresher"
)

// ParseCourseType accepts "standard" or "refresher" in any case.
func ParseCourseType(s string) (CourseType, bool) {
	switch CourseType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeStandard:
		return TypeStandard, true
	case TypeRefresher:
		return TypeRefresher, true
	default:
		return "", false
	}
}

// UnknownLocation is reported when a listing name carries no venue segment.
const UnknownLocation = "Unknown"

// Meta is derived from a Record for the duration of one query.
type Meta struct {
	Start *time.Time
	End   *time.Time

	IsUpcoming bool
	IsOngoing  bool
	// Ended is the temporal exclusion rule: the course has definitively
	// finished, or its end date alone is already past.
	Ended bool

	// DurationDays counts both endpoints; zero when either date is unknown.
	DurationDays int

	Type     CourseType
	Location string

	Price     float64
	HasPrice  bool
	Spaces    int
	HasSpaces bool
}

// BuildMeta derives query-scoped attributes. "Today" is asOf truncated to
// midnight in asOf's location.
func BuildMeta(r Record, asOf time.Time) Meta {
	today := StartOfDay(asOf)

	m := Meta{
		Type:     TypeOf(r.Name),
		Location: ExtractLocation(r.Name),
	}
	if t, ok := ParseDate(r.StartDate, asOf); ok {
		m.Start = &t
	}
	if t, ok := ParseDate(r.EndDate, asOf); ok {
		m.End = &t
	}
	m.Price, m.HasPrice = ParsePrice(r.Price.String())
	m.Spaces, m.HasSpaces = ParseSpaces(r.AvailableSpaces.String())

	if m.Start != nil {
		m.IsUpcoming = m.Start.After(today)
	}
	if m.Start != nil && m.End != nil {
		m.IsOngoing = !today.Before(*m.Start) && !today.After(*m.End)
		m.DurationDays = int(math.Round(m.End.Sub(*m.Start).Hours()/24)) + 1
	}

	startPast := m.Start != nil && m.Start.Before(today)
	endPast := m.End != nil && m.End.Before(today)
	m.Ended = (startPast && (m.End == nil || endPast)) || endPast

	return m
}

// TypeOf classifies a listing name.
func TypeOf(name string) CourseType {
	if strings.Contains(strings.ToLower(name), "refresher") {
		return TypeRefresher
	}
	return TypeStandard
}

// ExtractLocation returns the text between the first and second pipe of a
// listing name ("SMSTS | Chelmsford | 5 days" -> "Chelmsford").
func ExtractLocation(name string) string {
	parts := strings.Split(name, "|")
	if len(parts) < 2 {
		return UnknownLocation
	}
	loc := strings.TrimSpace(parts[1])
	if loc == "" {
		return UnknownLocation
	}
	return loc
}
