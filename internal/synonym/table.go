// Package synonym maps free-form course phrasing to canonical course codes.
//
// A Table is built once from the course-code catalog and is read-only
// afterwards; it is safe for concurrent use without locking.
package synonym

import (
	"fmt"
	"strings"

	"github.com/targetzero/coursebot/internal/data"
	"github.com/targetzero/coursebot/internal/stringutil"
)

// minFallbackKeyLen is the shortest curated key considered by the
// contains-scan in Fallback; shorter keys collide with ordinary words.
const minFallbackKeyLen = 4

// Entry is a course family known to the table.
type Entry struct {
	Code     string
	FullName string
	Category string

	normCode string
	normName string
}

// Label returns the code as shown to users ("nebosh-general" -> "NEBOSH-GENERAL").
func (e Entry) Label() string {
	return strings.ToUpper(e.Code)
}

type key struct {
	norm string
	code string
}

type umbrella struct {
	family  string
	terms   []string
	options []umbrellaOption
}

type umbrellaOption struct {
	code       string
	label      string
	qualifiers []string
}

// Table is the immutable normalized-phrase to course-code lookup.
type Table struct {
	entries   []Entry
	byCode    map[string]int
	lookup    map[string]string
	keys      map[string][]string // code -> every registered normalized key
	fallbacks []key
	matchAll  map[string][][]string
	umbrellas []umbrella
}

// NewTable builds the lookup from a catalog. Codes and full names are
// registered before curated phrases so a phrase can never shadow them.
func NewTable(c *data.Catalog) (*Table, error) {
	if c == nil {
		return nil, fmt.Errorf("synonym: nil catalog")
	}

	t := &Table{
		byCode:   make(map[string]int),
		lookup:   make(map[string]string),
		keys:     make(map[string][]string),
		matchAll: make(map[string][][]string),
	}

	var courses []data.Course
	for _, cat := range c.Categories {
		for _, course := range cat.Courses {
			e := Entry{
				Code:     course.Code,
				FullName: course.Name,
				Category: cat.Name,
				normCode: stringutil.Normalize(course.Code),
				normName: stringutil.Normalize(course.Name),
			}
			t.byCode[course.Code] = len(t.entries)
			t.entries = append(t.entries, e)
			courses = append(courses, course)
		}
	}

	// Canonical keys first.
	for _, e := range t.entries {
		for _, k := range []string{e.normCode, e.normName} {
			if err := t.register(k, e.Code, true); err != nil {
				return nil, err
			}
		}
	}

	for _, course := range courses {
		variants := []string{
			strings.ReplaceAll(course.Name, "co-ordinator", "coordinator"),
			strings.ReplaceAll(course.Name, "coordinator", "co-ordinator"),
		}
		variants = append(variants, course.Phrases...)
		for _, v := range variants {
			_ = t.register(stringutil.Normalize(v), course.Code, false)
		}

		for _, group := range course.MatchAll {
			var tokens []string
			for _, tok := range group {
				if n := stringutil.Normalize(tok); n != "" {
					tokens = append(tokens, n)
				}
			}
			if len(tokens) > 0 {
				t.matchAll[course.Code] = append(t.matchAll[course.Code], tokens)
			}
		}
	}

	// Fallback keys: every curated key long enough to scan for, then the
	// broader hand-listed fragments.
	for _, course := range courses {
		for _, k := range t.keys[course.Code] {
			if len(k) >= minFallbackKeyLen {
				t.fallbacks = append(t.fallbacks, key{norm: k, code: course.Code})
			}
		}
		for _, f := range course.Fallbacks {
			if n := stringutil.Normalize(f); n != "" {
				t.fallbacks = append(t.fallbacks, key{norm: n, code: course.Code})
			}
		}
	}

	for _, u := range c.Umbrellas {
		um := umbrella{family: u.Family}
		for _, term := range u.Terms {
			if n := stringutil.Normalize(term); n != "" {
				um.terms = append(um.terms, n)
			}
		}
		for _, opt := range u.Options {
			if _, ok := t.byCode[opt.Code]; !ok {
				return nil, fmt.Errorf("synonym: umbrella %q references unknown code %q", u.Family, opt.Code)
			}
			uo := umbrellaOption{code: opt.Code, label: opt.Label}
			for _, q := range opt.Qualifiers {
				if n := stringutil.Normalize(q); n != "" {
					uo.qualifiers = append(uo.qualifiers, n)
				}
			}
			um.options = append(um.options, uo)
		}
		t.umbrellas = append(t.umbrellas, um)
	}

	return t, nil
}

// register adds k -> code. A canonical key claimed by another code is a
// configuration error; a curated phrase that collides is ignored.
func (t *Table) register(k, code string, canonical bool) error {
	if k == "" {
		return nil
	}
	if existing, ok := t.lookup[k]; ok {
		if existing != code && canonical {
			return fmt.Errorf("synonym: key %q maps to both %q and %q", k, existing, code)
		}
		return nil
	}
	t.lookup[k] = code
	t.keys[code] = append(t.keys[code], k)
	return nil
}

// Resolve normalizes phrase and looks it up directly.
func (t *Table) Resolve(phrase string) (string, bool) {
	n := stringutil.Normalize(phrase)
	if n == "" {
		return "", false
	}
	code, ok := t.lookup[n]
	return code, ok
}

// Entry returns the family registered under code.
func (t *Table) Entry(code string) (Entry, bool) {
	i, ok := t.byCode[code]
	if !ok {
		return Entry{}, false
	}
	return t.entries[i], true
}

// Entries returns every family in declaration order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// FullName returns the descriptive name for code, or "" when unknown.
func (t *Table) FullName(code string) string {
	e, ok := t.Entry(code)
	if !ok {
		return ""
	}
	return e.FullName
}

// CodeForFullName finds the code whose full name normalizes equal to name.
func (t *Table) CodeForFullName(name string) (string, bool) {
	n := stringutil.Normalize(name)
	if n == "" {
		return "", false
	}
	for _, e := range t.entries {
		if e.normName == n {
			return e.Code, true
		}
	}
	return "", false
}

// MatchGroups returns the normalized token groups a listing name may contain
// to belong to code, in addition to its full name.
func (t *Table) MatchGroups(code string) [][]string {
	return t.matchAll[code]
}

// Len returns the number of registered lookup keys.
func (t *Table) Len() int {
	return len(t.lookup)
}
