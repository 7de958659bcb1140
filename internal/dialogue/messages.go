package dialogue

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/targetzero/coursebot/internal/catalog"
	"github.com/targetzero/coursebot/internal/search"
	"github.com/targetzero/coursebot/internal/stringutil"
	"github.com/targetzero/coursebot/internal/synonym"
)

const (
	msgNetworkError = "Network error. Please try again later."
	msgGeneric      = "Could you tell me a bit more about the course you're looking for, such as the course name, month or location?"
	msgDeclined     = "No problem. Please type the name of the course you're looking for and I'll search again."
	msgMixedTypes   = "Note: this list includes both standard and refresher courses."
)

// confirmPattern matches the controller's own confirmation question and
// nothing a model would plausibly write.
var confirmPattern = regexp.MustCompile(`Did you mean "([^"]+)" \(([A-Za-z0-9-]+)\)\? Please answer yes or no\.`)

func confirmText(e synonym.Entry) string {
	return fmt.Sprintf(`Did you mean "%s" (%s)? Please answer yes or no.`, e.FullName, e.Label())
}

func umbrellaText(m synonym.UmbrellaMatch) string {
	return fmt.Sprintf("%s covers more than one course. Did you mean %s?", m.Family, stringutil.JoinOr(m.Labels()))
}

func unresolvedText(keyword string) string {
	if strings.TrimSpace(keyword) == "" {
		return "To help you better, could you please let me know the course name, month or location?"
	}
	return fmt.Sprintf(`I couldn't match "%s" to one of our courses. Could you give the course name, for example SMSTS, SSSTS or NEBOSH General?`, strings.TrimSpace(keyword))
}

func askDetailText(fullName, label string, opts search.Options) string {
	if opts.Empty() {
		return fmt.Sprintf("I'm sorry, there are no upcoming %s courses at the moment.", fullName)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Thanks! You've asked about %s (%s). Could you also tell me the month or location you prefer?", fullName, label)
	if s := optionsText(opts); s != "" {
		b.WriteString(" ")
		b.WriteString(s)
	}
	return b.String()
}

func noResultsText(fullName string, opts search.Options) string {
	intro := fmt.Sprintf("I'm sorry, I couldn't find any %s courses matching your criteria.", fullName)
	if s := optionsText(opts); s != "" {
		return intro + " " + s
	}
	return intro
}

// optionsText states a single venue or month directly and enumerates
// several.
func optionsText(opts search.Options) string {
	var parts []string
	switch len(opts.Venues) {
	case 0:
	case 1:
		parts = append(parts, fmt.Sprintf("It is currently available in %s.", opts.Venues[0]))
	default:
		parts = append(parts, fmt.Sprintf("Available locations: %s.", stringutil.JoinAnd(opts.Venues)))
	}
	switch len(opts.Months) {
	case 0:
	case 1:
		parts = append(parts, fmt.Sprintf("The next dates are in %s.", opts.Months[0]))
	default:
		parts = append(parts, fmt.Sprintf("Available months: %s.", stringutil.JoinAnd(opts.Months)))
	}
	return strings.Join(parts, " ")
}

func resultsIntro(n int, fullName string) string {
	plural := ""
	if n > 1 {
		plural = "s"
	}
	return fmt.Sprintf("Sure! I found %d %s course%s. Here are the details:", n, fullName, plural)
}

var (
	yesWords = map[string]bool{
		"yes": true, "y": true, "yeah": true, "yep": true, "yup": true, "sure": true,
		"correct": true, "ok": true, "okay": true, "right": true, "definitely": true,
	}
	noWords = map[string]bool{
		"no": true, "n": true, "nope": true, "nah": true, "wrong": true, "incorrect": true,
	}
	yesPhrases = []string{"that s right", "thats right", "that s it", "that s the one", "yes please"}
	noPhrases  = []string{"not that", "not that one", "no thanks", "no thank you"}
)

// answer classifies a reply to a confirmation question as yes, no, or
// neither (a fresh request).
func answer(utterance string) (yes, no bool) {
	w := stringutil.Words(utterance)
	if w == "" {
		return false, false
	}
	for _, p := range noPhrases {
		if w == p || strings.HasPrefix(w, p+" ") {
			return false, true
		}
	}
	for _, p := range yesPhrases {
		if w == p || strings.HasPrefix(w, p+" ") {
			return true, false
		}
	}
	first, _, _ := strings.Cut(w, " ")
	switch {
	case noWords[first]:
		return false, true
	case yesWords[first]:
		return true, false
	}
	return false, false
}

type typeHint struct {
	phrase string
	typ    catalog.CourseType
}

// typeHints are checked in order; negations come first so "not refresher
// courses" is not read as "refresher courses".
var typeHints = []typeHint{
	{"not refresher", catalog.TypeStandard},
	{"without refresher", catalog.TypeStandard},
	{"no refresher", catalog.TypeStandard},
	{"only refresher", catalog.TypeRefresher},
	{"just refresher", catalog.TypeRefresher},
	{"refresher courses", catalog.TypeRefresher},
}

// typeHintOf reads an explicit course-type restriction from the utterance.
func typeHintOf(utterance string) (catalog.CourseType, bool) {
	w := " " + stringutil.Words(utterance) + " "
	for _, h := range typeHints {
		if strings.Contains(w, " "+h.phrase+" ") {
			return h.typ, true
		}
	}
	return "", false
}
