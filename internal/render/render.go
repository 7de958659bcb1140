// Package render turns a dialogue result into web-chat HTML, plain text for
// chat channels and terminals, or a short sentence for speech output.
package render

import (
	"bytes"
	"html/template"
	"strconv"
	"strings"

	"github.com/targetzero/coursebot/internal/dialogue"
	"github.com/targetzero/coursebot/internal/search"
)

// Detail is the display form of one course.
type Detail struct {
	Name     string
	Location string
	Dates    string
	Price    string
	Spaces   string
	Link     string
}

// Details converts hits to display rows in order.
func Details(hits []search.Hit) []Detail {
	out := make([]Detail, 0, len(hits))
	for _, h := range hits {
		d := Detail{
			Name:     h.Record.Name,
			Location: h.Meta.Location,
			Dates:    h.Record.Dates(),
			Price:    "TBC",
			Spaces:   "Unknown",
			Link:     h.Record.Link,
		}
		if p := strings.TrimSpace(h.Record.Price.String()); p != "" {
			d.Price = "£" + strings.TrimPrefix(p, "£")
		}
		if s := strings.TrimSpace(h.Record.AvailableSpaces.String()); s != "" {
			d.Spaces = s
		}
		out = append(out, d)
	}
	return out
}

var htmlTemplate = template.Must(template.New("reply").Parse(
	`{{.Intro}}{{range .Details}}
<div class="courseBox">
  <span class="mainCourse">{{.Name}} <span class="arrow">▼</span></span>
  <span class="bodyCourse">
    📍 Location: {{.Location}}<br>
    📅 Dates: {{.Dates}}<br>
    💷 Price: {{.Price}}<br>
    🪑 Available Spaces: {{.Spaces}}
  </span>{{if .Link}}
  <a href="{{.Link}}" class="bookButton">BOOK NOW!</a>{{end}}
</div>{{end}}{{if .More}}
<p class="more">{{.More}}</p>{{end}}{{if .Note}}
<p class="note">{{.Note}}</p>{{end}}`))

// HTML renders the result for the web chat. Results become one collapsible
// box per course; every other outcome is its escaped text.
func HTML(res dialogue.Result) string {
	if res.Outcome != dialogue.OutcomeResults {
		return template.HTMLEscapeString(res.Text)
	}
	var more string
	if res.Total > len(res.Hits) {
		more = moreText(res.Total - len(res.Hits))
	}
	var buf bytes.Buffer
	err := htmlTemplate.Execute(&buf, struct {
		Intro   string
		More    string
		Note    string
		Details []Detail
	}{res.Intro, more, res.Note, Details(res.Hits)})
	if err != nil {
		return template.HTMLEscapeString(res.Text)
	}
	return buf.String()
}

// Text renders the result as plain text with one block per course.
func Text(res dialogue.Result) string {
	if res.Outcome != dialogue.OutcomeResults {
		return res.Text
	}
	var b strings.Builder
	b.WriteString(res.Intro)
	for i, d := range Details(res.Hits) {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(detailLines(i+1, d), "\n"))
	}
	if res.Total > len(res.Hits) {
		b.WriteString("\n\n")
		b.WriteString(moreText(res.Total - len(res.Hits)))
	}
	if res.Note != "" {
		b.WriteString("\n\n")
		b.WriteString(res.Note)
	}
	return b.String()
}

// Summary is the results text without per-course blocks: the intro, how
// many matches were left out, and the mixed-type note. Channels that show
// courses as cards send it alongside them.
func Summary(res dialogue.Result) string {
	if res.Outcome != dialogue.OutcomeResults {
		return res.Text
	}
	parts := []string{res.Intro}
	if res.Total > len(res.Hits) {
		parts = append(parts, moreText(res.Total-len(res.Hits)))
	}
	if res.Note != "" {
		parts = append(parts, res.Note)
	}
	return strings.Join(parts, "\n\n")
}

func detailLines(n int, d Detail) []string {
	lines := []string{
		strconv.Itoa(n) + ". " + d.Name,
		"📍 Location: " + d.Location,
		"📅 Dates: " + d.Dates,
		"💷 Price: " + d.Price,
		"🪑 Available Spaces: " + d.Spaces,
	}
	if d.Link != "" {
		lines = append(lines, "🔗 "+d.Link)
	}
	return lines
}

func moreText(n int) string {
	if n == 1 {
		return "1 more course is available on our website."
	}
	return strconv.Itoa(n) + " more courses are available on our website."
}

// Spoken is what a voice interface reads aloud: the intro up to its colon,
// plus the mixed-type note. Other outcomes are spoken in full.
func Spoken(res dialogue.Result) string {
	if res.Outcome != dialogue.OutcomeResults {
		return res.Text
	}
	s := Lead(res.Intro)
	if res.Note != "" {
		s += " " + res.Note
	}
	return s
}

// Lead returns text before the first colon or line break, ending with a
// full stop.
func Lead(text string) string {
	lead, _, _ := strings.Cut(text, "\n")
	lead, _, _ = strings.Cut(lead, ":")
	lead = strings.TrimSpace(lead)
	if lead == "" {
		return ""
	}
	if !strings.ContainsAny(lead[len(lead)-1:], ".!?") {
		lead += "."
	}
	return lead
}
