package search

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/targetzero/coursebot/internal/stringutil"
)

// SortKey names a result ordering requested in conversation.
type SortKey string

const (
	SortNone        SortKey = ""
	SortCheapest    SortKey = "cheapest"
	SortExpensive   SortKey = "expensive"
	SortSoonest     SortKey = "soonest"
	SortLatest      SortKey = "latest"
	SortShortest    SortKey = "shortest"
	SortLongest     SortKey = "longest"
	SortMostSpaces  SortKey = "most spaces"
	SortLeastSpaces SortKey = "least spaces"
)

type trigger struct {
	key     SortKey
	phrases []string
}

// sortTriggers is ordered: when phrases of several keys occur in one
// utterance, the earliest declared key wins.
var sortTriggers = func() []trigger {
	raw := []struct {
		key     SortKey
		phrases []string
	}{
		{SortCheapest, []string{"cheapest", "lowest price", "low cost", "least expensive"}},
		{SortExpensive, []string{"most expensive", "highest price", "premium", "expensive course"}},
		{SortSoonest, []string{"soonest", "earliest", "first available", "next one"}},
		{SortLatest, []string{"latest", "last one", "latest date"}},
		{SortShortest, []string{"shortest", "least days", "minimum duration"}},
		{SortLongest, []string{"longest", "maximum duration", "many days"}},
		{SortMostSpaces, []string{"most spaces", "more availability", "more seats"}},
		{SortLeastSpaces, []string{"least spaces", "almost full", "low availability"}},
	}
	out := make([]trigger, 0, len(raw))
	for _, r := range raw {
		t := trigger{key: r.key}
		for _, p := range r.phrases {
			t.phrases = append(t.phrases, stringutil.Normalize(p))
		}
		out = append(out, t)
	}
	return out
}()

// SortKeys lists every key in trigger precedence order.
func SortKeys() []SortKey {
	keys := make([]SortKey, len(sortTriggers))
	for i, t := range sortTriggers {
		keys[i] = t.key
	}
	return keys
}

// DetectSortKey finds the first sort key whose trigger phrase occurs in the
// normalized utterance.
func DetectSortKey(utterance string) (SortKey, bool) {
	n := stringutil.Normalize(utterance)
	if n == "" {
		return SortNone, false
	}
	for _, t := range sortTriggers {
		for _, p := range t.phrases {
			if strings.Contains(n, p) {
				return t.key, true
			}
		}
	}
	return SortNone, false
}

// ParseSortKey accepts a key name in any case or spacing ("most-spaces").
func ParseSortKey(s string) (SortKey, error) {
	n := stringutil.Normalize(s)
	if n == "" {
		return SortNone, nil
	}
	for _, t := range sortTriggers {
		if stringutil.Normalize(string(t.key)) == n {
			return t.key, nil
		}
	}
	return SortNone, fmt.Errorf("unknown sort key %q", s)
}

// Sort orders hits in place. The detected key is the primary criterion and
// ascending start date the secondary one; without a key only the start date
// applies. Unknown values always sort last. The sort is stable, so ties keep
// catalog order.
func Sort(hits []Hit, key SortKey) {
	primary := comparator(key)
	slices.SortStableFunc(hits, func(a, b Hit) int {
		if primary != nil {
			if c := primary(a, b); c != 0 {
				return c
			}
		}
		return compareTime(a.Meta.Start, b.Meta.Start, false)
	})
}

func comparator(key SortKey) func(a, b Hit) int {
	switch key {
	case SortCheapest:
		return func(a, b Hit) int {
			return compareKnown(a.Meta.HasPrice, b.Meta.HasPrice, a.Meta.Price, b.Meta.Price, false)
		}
	case SortExpensive:
		return func(a, b Hit) int {
			return compareKnown(a.Meta.HasPrice, b.Meta.HasPrice, a.Meta.Price, b.Meta.Price, true)
		}
	case SortSoonest:
		return func(a, b Hit) int { return compareTime(a.Meta.Start, b.Meta.Start, false) }
	case SortLatest:
		return func(a, b Hit) int { return compareTime(a.Meta.Start, b.Meta.Start, true) }
	case SortShortest:
		return func(a, b Hit) int {
			return compareKnown(a.Meta.DurationDays > 0, b.Meta.DurationDays > 0, a.Meta.DurationDays, b.Meta.DurationDays, false)
		}
	case SortLongest:
		return func(a, b Hit) int {
			return compareKnown(a.Meta.DurationDays > 0, b.Meta.DurationDays > 0, a.Meta.DurationDays, b.Meta.DurationDays, true)
		}
	case SortMostSpaces:
		return func(a, b Hit) int {
			return compareKnown(a.Meta.HasSpaces, b.Meta.HasSpaces, a.Meta.Spaces, b.Meta.Spaces, true)
		}
	case SortLeastSpaces:
		return func(a, b Hit) int {
			return compareKnown(a.Meta.HasSpaces, b.Meta.HasSpaces, a.Meta.Spaces, b.Meta.Spaces, false)
		}
	default:
		return nil
	}
}

func compareKnown[T cmp.Ordered](aOK, bOK bool, a, b T, desc bool) int {
	switch {
	case !aOK && !bOK:
		return 0
	case !aOK:
		return 1
	case !bOK:
		return -1
	}
	if desc {
		return cmp.Compare(b, a)
	}
	return cmp.Compare(a, b)
}

func compareTime(a, b *time.Time, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if desc {
		return b.Compare(*a)
	}
	return a.Compare(*b)
}
