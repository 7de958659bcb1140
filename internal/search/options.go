package search

import (
	"time"

	"github.com/targetzero/coursebot/internal/catalog"
	"github.com/targetzero/coursebot/internal/stringutil"
	"github.com/targetzero/coursebot/internal/synonym"
)

// Options are the venues and months currently bookable for one course
// family, in start-date order.
type Options struct {
	Venues []string
	Months []string
}

// Empty reports whether nothing is bookable.
func (o Options) Empty() bool {
	return len(o.Venues) == 0 && len(o.Months) == 0
}

// AvailableOptions lists the distinct venues and months for c's course
// family. The month and location slots of c are ignored; every other
// predicate, including the temporal cutoff, still applies so only bookable
// options are offered.
func AvailableOptions(t *synonym.Table, records []catalog.Record, c Criteria, asOf time.Time) Options {
	c.Month = ""
	c.Location = ""

	hits := Filter(t, records, c, asOf)
	Sort(hits, SortNone)

	var venues, months []string
	for _, h := range hits {
		if v := h.Meta.Location; v != "" && v != catalog.UnknownLocation {
			venues = append(venues, v)
		}
		if m := monthOf(h); m != "" {
			months = append(months, m)
		}
	}

	return Options{
		Venues: stringutil.UniqueFold(venues),
		Months: stringutil.UniqueFold(months),
	}
}

// monthOf reads the month the same way the month filter does, so every
// offered month selects at least one record. A start date without a month
// name (such as "14/07/2025") offers no month; its venue still does.
func monthOf(h Hit) string {
	m, _ := FirstMonth(h.Record.StartDate)
	return m
}
