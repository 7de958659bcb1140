package synonym

import (
	"strings"

	"github.com/targetzero/coursebot/internal/stringutil"
)

// minSuggestLen is the shortest normalized phrase worth a "did you mean".
const minSuggestLen = 3

// everyday holds curated keys that are also ordinary words in a question
// about dates ("any seats left?"). They name a course only when the
// conversation is not already about one.
var everyday = map[string]bool{
	"seats":  true,
	"spaces": true,
	"places": true,
}

// UmbrellaOption is one concrete course an umbrella term may refer to.
type UmbrellaOption struct {
	Code  string
	Label string
}

// UmbrellaMatch reports that a phrase named a course family.
// Code is set when the phrase also carried enough to pick one option.
type UmbrellaMatch struct {
	Family  string
	Options []UmbrellaOption
	Code    string
}

// Ambiguous reports whether the user still has to pick an option.
func (m UmbrellaMatch) Ambiguous() bool {
	return m.Code == ""
}

// Covers reports whether code is one of the options.
func (m UmbrellaMatch) Covers(code string) bool {
	for _, o := range m.Options {
		if o.Code == code {
			return true
		}
	}
	return false
}

// Labels returns the option labels in declaration order.
func (m UmbrellaMatch) Labels() []string {
	out := make([]string, len(m.Options))
	for i, o := range m.Options {
		out[i] = o.Label
	}
	return out
}

// Resolver layers suggestion, umbrella and fallback heuristics over a Table.
type Resolver struct {
	table *Table
}

// NewResolver returns a resolver reading from t.
func NewResolver(t *Table) *Resolver {
	return &Resolver{table: t}
}

// Table returns the underlying lookup.
func (r *Resolver) Table() *Table {
	return r.table
}

// Resolve is a direct lookup of the normalized phrase.
func (r *Resolver) Resolve(phrase string) (string, bool) {
	return r.table.Resolve(phrase)
}

// Suggest proposes a family for a phrase that has no direct match: the first
// entry whose full name contains the phrase, or whose code the phrase contains.
func (r *Resolver) Suggest(phrase string) (Entry, bool) {
	n := stringutil.Normalize(phrase)
	if len(n) < minSuggestLen {
		return Entry{}, false
	}
	if _, ok := r.table.lookup[n]; ok {
		return Entry{}, false
	}
	for _, e := range r.table.entries {
		if strings.Contains(e.normName, n) || strings.Contains(n, e.normCode) {
			return e, true
		}
	}
	return Entry{}, false
}

// Umbrella reports whether phrase names a family term covering several
// courses. When exactly one option's qualifier or curated key also appears
// in the phrase the match is narrowed to that option's code.
func (r *Resolver) Umbrella(phrase string) (UmbrellaMatch, bool) {
	n := stringutil.Normalize(phrase)
	if n == "" {
		return UmbrellaMatch{}, false
	}

	for _, u := range r.table.umbrellas {
		if !stringutil.ContainsAny(n, u.terms...) {
			continue
		}

		m := UmbrellaMatch{Family: u.family}
		var hits []string
		for _, opt := range u.options {
			m.Options = append(m.Options, UmbrellaOption{Code: opt.code, Label: opt.label})
			if r.optionMentioned(n, opt) {
				hits = append(hits, opt.code)
			}
		}
		if len(hits) == 1 {
			m.Code = hits[0]
		}
		return m, true
	}
	return UmbrellaMatch{}, false
}

func (r *Resolver) optionMentioned(n string, opt umbrellaOption) bool {
	if stringutil.ContainsAny(n, opt.qualifiers...) {
		return true
	}
	for _, k := range r.table.keys[opt.code] {
		if len(k) >= minFallbackKeyLen && strings.Contains(n, k) {
			return true
		}
	}
	return false
}

// Fallback scans the phrases for any curated key or broader fallback
// fragment. The longest matching key wins; ties go to the earlier phrase,
// then to declaration order.
func (r *Resolver) Fallback(phrases ...string) (string, bool) {
	return r.scan(false, phrases...)
}

func (r *Resolver) scan(skipEveryday bool, phrases ...string) (string, bool) {
	var (
		best    string
		bestLen int
	)
	for _, p := range phrases {
		n := stringutil.Normalize(p)
		if n == "" {
			continue
		}
		for _, k := range r.table.fallbacks {
			if skipEveryday && everyday[k.norm] {
				continue
			}
			if len(k.norm) > bestLen && strings.Contains(n, k.norm) {
				best, bestLen = k.code, len(k.norm)
			}
		}
	}
	return best, best != ""
}

// Detect returns the code a phrase implies without asking the user:
// a direct match, a narrowed umbrella, or a fallback fragment.
func (r *Resolver) Detect(phrase string) (string, bool) {
	if code, ok := r.Resolve(phrase); ok {
		return code, true
	}
	if m, ok := r.Umbrella(phrase); ok {
		if m.Ambiguous() {
			return "", false
		}
		return m.Code, true
	}
	return r.Fallback(phrase)
}

// Mentions is Detect for a conversation that is already about a course:
// everyday words that double as course keys do not count, so "any seats
// left?" keeps the current subject.
func (r *Resolver) Mentions(phrase string) (string, bool) {
	if code, ok := r.Resolve(phrase); ok {
		return code, true
	}
	if m, ok := r.Umbrella(phrase); ok {
		if m.Ambiguous() {
			return "", false
		}
		return m.Code, true
	}
	return r.scan(true, phrase)
}
