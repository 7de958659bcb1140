// Package search filters and orders catalog records against resolved slots.
//
// All functions are pure: they take the immutable synonym table, a snapshot of
// the catalog and the reference instant, and never mutate their inputs.
package search

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/targetzero/coursebot/internal/catalog"
	"github.com/targetzero/coursebot/internal/stringutil"
	"github.com/targetzero/coursebot/internal/synonym"
)

// Criteria is the slot set a search runs against.
type Criteria struct {
	// Keyword is the raw phrase supplied by the user or the model.
	Keyword string
	// Code short-circuits keyword resolution when the caller already
	// resolved it (confirmation, umbrella narrowing, fallback).
	Code string

	Month    string
	Location string
	Type     catalog.CourseType

	RequireAvailable bool
}

// Hit is a record that survived filtering, with its derived attributes.
type Hit struct {
	Record catalog.Record
	Meta   catalog.Meta
}

// Filter returns the records matching every active predicate of c.
//
// An unresolvable keyword yields nil rather than an unconstrained scan.
// Records that have ended by asOf are dropped regardless of the other slots.
func Filter(t *synonym.Table, records []catalog.Record, c Criteria, asOf time.Time) []Hit {
	code, ok := resolveCode(t, c)
	if !ok {
		return nil
	}

	month := ""
	if strings.TrimSpace(c.Month) != "" {
		m, ok := ParseMonth(c.Month)
		if !ok {
			return nil
		}
		month = m
	}
	location := stringutil.Normalize(c.Location)

	var hits []Hit
	for _, r := range records {
		if !MatchesKeyword(t, r.Name, code, c.Keyword) {
			continue
		}

		meta := catalog.BuildMeta(r, asOf)

		if c.Type != "" && meta.Type != c.Type {
			continue
		}
		if c.RequireAvailable && (!meta.HasSpaces || meta.Spaces <= 0) {
			continue
		}
		if month != "" && r.StartDate != "" {
			if got, ok := FirstMonth(r.StartDate); !ok || got != month {
				continue
			}
		}
		if location != "" && !strings.Contains(stringutil.Normalize(r.Name), location) {
			continue
		}
		if meta.Ended {
			continue
		}

		hits = append(hits, Hit{Record: r, Meta: meta})
	}
	return hits
}

func resolveCode(t *synonym.Table, c Criteria) (string, bool) {
	if c.Code != "" {
		if _, ok := t.Entry(c.Code); ok {
			return c.Code, true
		}
		return "", false
	}
	return t.Resolve(c.Keyword)
}

// MatchesKeyword reports whether a listing name belongs to the course family
// identified by code. The name matches when it contains the family's full
// name, the code as whole words, the raw keyword as whole words (only when
// the keyword itself resolves to code), or every token of one of the
// family's match-all groups.
func MatchesKeyword(t *synonym.Table, name, code, rawKeyword string) bool {
	entry, ok := t.Entry(code)
	if !ok {
		return false
	}

	normName := stringutil.Normalize(name)
	if normName == "" {
		return false
	}

	if full := stringutil.Normalize(entry.FullName); full != "" && strings.Contains(normName, full) {
		return true
	}
	if stringutil.ContainsWords(name, code) {
		return true
	}
	if rawKeyword != "" {
		if rc, ok := t.Resolve(rawKeyword); ok && rc == code && stringutil.ContainsWords(name, rawKeyword) {
			return true
		}
	}

	for _, group := range t.MatchGroups(code) {
		if len(group) == 0 {
			continue
		}
		all := true
		for _, tok := range group {
			if !strings.Contains(normName, tok) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

var monthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var monthLookup = func() map[string]string {
	m := make(map[string]string, 40)
	for _, name := range monthNames {
		lower := strings.ToLower(name)
		m[lower] = name
		m[lower[:3]] = name
	}
	m["sept"] = "September"
	return m
}()

var monthToken = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec)\b`)

// ParseMonth canonicalizes a month slot ("jun", "JUNE", "6") to its English
// name ("June").
func ParseMonth(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	if name, ok := monthLookup[s]; ok {
		return name, true
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= 12 {
		return monthNames[n-1], true
	}
	// "June 2025", "june," and similar
	if tok := monthToken.FindString(s); tok != "" {
		return monthLookup[strings.ToLower(tok)], true
	}
	return "", false
}

// FirstMonth returns the first month name mentioned in a free-text date,
// canonicalized. Only the first month token counts, so "30 June - 2 July"
// is a June course.
func FirstMonth(dateText string) (string, bool) {
	tok := monthToken.FindString(dateText)
	if tok == "" {
		return "", false
	}
	return monthLookup[strings.ToLower(tok)], true
}
