// Package dialogue decides, for one conversational turn, whether to ask a
// clarifying question, offer a "did you mean" confirmation, disambiguate an
// umbrella term, or return matching courses.
//
// The controller is stateless between calls: the caller owns the
// conversation and passes it in full with every request.
package dialogue

import (
	"time"

	"github.com/targetzero/coursebot/internal/catalog"
	"github.com/targetzero/coursebot/internal/search"
	"github.com/targetzero/coursebot/internal/synonym"
)

// Turn roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PendingConfirmation is a "did you mean" question awaiting a yes or no.
type PendingConfirmation struct {
	Code     string `json:"code"`
	FullName string `json:"full_name"`
}

// Request is one user turn.
type Request struct {
	// History holds every earlier turn, oldest first. A leading system turn
	// is kept as the model's instruction.
	History []Turn
	// Utterance is the new user message.
	Utterance string
	// TypeHint restricts results to one course type regardless of what the
	// model extracted.
	TypeHint catalog.CourseType
	// Pending overrides detection of an outstanding confirmation from the
	// previous assistant turn.
	Pending *PendingConfirmation
}

// Response carries the result and the conversation to send next time.
type Response struct {
	Result Result
	// History is the request history plus the user and assistant turns.
	// After a network error it is the request history, unchanged.
	History []Turn
}

// Outcome classifies how a turn ended.
type Outcome string

const (
	OutcomePassthrough  Outcome = "passthrough"
	OutcomeClarify      Outcome = "clarify"
	OutcomeUmbrella     Outcome = "umbrella"
	OutcomeConfirm      Outcome = "confirm"
	OutcomeDeclined     Outcome = "declined"
	OutcomeResults      Outcome = "results"
	OutcomeNoResults    Outcome = "no_results"
	OutcomeNetworkError Outcome = "network_error"
)

// Slots are the search constraints gathered for a turn.
type Slots struct {
	Keyword          string
	Code             string
	Month            string
	Location         string
	Type             catalog.CourseType
	RequireAvailable bool
}

// Result is what the turn communicates. It holds data only; rendering to
// HTML, plain text or speech happens elsewhere.
type Result struct {
	Outcome Outcome

	// Text is the complete plain-text sentence(s) for the user, without
	// per-course details. It becomes the assistant turn in History.
	Text string
	// Intro is the headline of a result list ("Sure! I found 2 ...").
	Intro string
	// Note flags a list mixing standard and refresher courses.
	Note string

	Code     string
	FullName string
	Slots    Slots
	SortKey  search.SortKey

	// Hits are the matching courses in display order.
	Hits []search.Hit
	// Total is the match count before any display cap.
	Total int

	// Options are the bookable venues and months offered when asking for
	// more detail or after an empty search.
	Options search.Options

	// Choices are the umbrella options the user must pick from.
	Choices []synonym.UmbrellaOption

	// Pending is set when Outcome is OutcomeConfirm.
	Pending *PendingConfirmation
}

// Event describes a handled turn for analytics.
type Event struct {
	RequestID string
	Outcome   Outcome
	Code      string
	// Utterance is normalized; raw user text is never recorded.
	Utterance string
	Records   int
	Duration  time.Duration
}
