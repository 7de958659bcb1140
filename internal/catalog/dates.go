package catalog

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

var (
	isoPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	ordinal   = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	weekday   = regexp.MustCompile(`(?i)^(mon|tue|wed|thu|fri|sat|sun)[a-z]*\.?\s+`)
	spaces    = regexp.MustCompile(`\s+`)
	dashes    = strings.NewReplacer("–", "-", "—", "-")
	monthFix  = strings.NewReplacer("Sept ", "Sep ", "sept ", "sep ")
)

var dateLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"Jan 2 2006",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"2 January 06",
	"2 Jan 06",
}

var yearlessLayouts = []string{
	"2 January",
	"2 Jan",
	"January 2",
	"Jan 2",
}

// DateSegment picks the authoritative part of a free-text date field.
// A range keeps the segment after its separator; a multi-line value keeps
// its first line. "5 May - 9 May\n12 May - 16 May" yields "9 May".
func DateSegment(s string) string {
	s = dashes.Replace(s)
	switch {
	case strings.Contains(s, " - "):
		s = strings.Split(s, " - ")[1]
	case strings.Contains(s, "-") && !isoPrefix.MatchString(strings.TrimSpace(s)):
		s = strings.Split(s, "-")[1]
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// ParseDate parses a catalog date field in asOf's location. Dates without a
// year take asOf's year. Unparseable input reports false and never errors.
func ParseDate(raw string, asOf time.Time) (time.Time, bool) {
	s := DateSegment(raw)
	if s == "" {
		return time.Time{}, false
	}
	s = strings.ReplaceAll(s, ",", " ")
	s = strings.TrimSpace(spaces.ReplaceAllString(s, " "))
	s = weekday.ReplaceAllString(s, "")
	s = ordinal.ReplaceAllString(s, "$1")
	s = monthFix.Replace(s + " ")
	s = strings.TrimSpace(s)

	loc := asOf.Location()
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	for _, layout := range yearlessLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return time.Date(asOf.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
		}
	}

	t, err := dateparse.ParseIn(s, loc, dateparse.PreferMonthFirst(false))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
