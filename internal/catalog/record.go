// Package catalog fetches course listings and derives per-query metadata.
package catalog

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FlexString decodes a JSON string, number or null into text.
// The upstream feed is inconsistent about quoting prices and seat counts.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*f = ""
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*f = FlexString(n.String())
		return nil
	}
}

// String returns the raw text.
func (f FlexString) String() string {
	return string(f)
}

// Record is a single schedulable course instance as supplied by the catalog.
// The engine never mutates records; derived values live in Meta.
type Record struct {
	Name            string     `json:"name"`
	Price           FlexString `json:"price"`
	StartDate       string     `json:"start_date"`
	EndDate         string     `json:"end_date"`
	DatesList       string     `json:"dates_list,omitempty"`
	AvailableSpaces FlexString `json:"available_spaces"`
	Link            string     `json:"link"`
}

// Dates returns the human-readable schedule, preferring the full list.
func (r Record) Dates() string {
	if s := strings.TrimSpace(r.DatesList); s != "" {
		return s
	}
	switch {
	case r.StartDate != "" && r.EndDate != "" && r.StartDate != r.EndDate:
		return r.StartDate + " - " + r.EndDate
	case r.StartDate != "":
		return r.StartDate
	default:
		return r.EndDate
	}
}

var (
	brTag         = regexp.MustCompile(`(?i)<br\s*/?>`)
	leadingNumber = regexp.MustCompile(`^-?\d+(\.\d+)?`)
	leadingInt    = regexp.MustCompile(`^-?\d+`)
)

// cleanText strips markup from a feed field, keeping <br> as line breaks.
func cleanText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	s = brTag.ReplaceAllString(s, "\n")
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

// clean returns a copy of r with markup removed from its text fields.
func (r Record) clean() Record {
	r.Name = cleanText(r.Name)
	r.StartDate = cleanText(r.StartDate)
	r.EndDate = cleanText(r.EndDate)
	r.DatesList = cleanText(r.DatesList)
	r.Link = strings.TrimSpace(r.Link)
	return r
}

// ParsePrice reads the leading number of a price ("£1,250.00 + VAT" -> 1250).
func ParsePrice(s string) (float64, bool) {
	s = strings.NewReplacer("£", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseSpaces reads the leading integer of a seat count ("3 left" -> 3).
func ParseSpaces(s string) (int, bool) {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}
