package dialogue

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/targetzero/coursebot/internal/catalog"
	"github.com/targetzero/coursebot/internal/ctxutil"
	domerrors "github.com/targetzero/coursebot/internal/errors"
	"github.com/targetzero/coursebot/internal/genai"
	"github.com/targetzero/coursebot/internal/logger"
	"github.com/targetzero/coursebot/internal/metrics"
	"github.com/targetzero/coursebot/internal/search"
	"github.com/targetzero/coursebot/internal/stringutil"
	"github.com/targetzero/coursebot/internal/synonym"
)

// DefaultHistoryWindow is how many recent non-system turns are sent to the
// model besides the system instruction.
const DefaultHistoryWindow = 6

// Config holds the collaborators and settings of a Controller.
type Config struct {
	Resolver *synonym.Resolver
	Model    genai.Model
	Source   catalog.Source
	Logger   *logger.Logger
	Metrics  *metrics.Metrics

	// Observer, when set, is called once per handled turn.
	Observer func(ctx context.Context, e Event)

	HistoryWindow int
	// MaxResults caps the listed courses; 0 lists all.
	MaxResults int
	// Now returns the reference instant for date filtering.
	Now func() time.Time
}

// Controller runs the slot-filling state machine for one turn at a time.
// It holds no conversation state and is safe for concurrent use.
type Controller struct {
	resolver *synonym.Resolver
	table    *synonym.Table
	model    genai.Model
	source   catalog.Source
	log      *logger.Logger
	metrics  *metrics.Metrics
	observer func(ctx context.Context, e Event)

	historyWindow int
	maxResults    int
	now           func() time.Time
}

// NewController creates a controller. Resolver and Source are required;
// a nil Model makes every turn fail with ErrMissingCredentials.
func NewController(cfg Config) *Controller {
	c := &Controller{
		resolver:      cfg.Resolver,
		table:         cfg.Resolver.Table(),
		model:         cfg.Model,
		source:        cfg.Source,
		log:           cfg.Logger,
		metrics:       cfg.Metrics,
		observer:      cfg.Observer,
		historyWindow: cfg.HistoryWindow,
		maxResults:    cfg.MaxResults,
		now:           cfg.Now,
	}
	if c.log == nil {
		c.log = logger.Discard()
	}
	c.log = c.log.WithModule("dialogue")
	if c.historyWindow <= 0 {
		c.historyWindow = DefaultHistoryWindow
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// turn carries the per-request working state.
type turn struct {
	req       Request
	utterance string
	asOf      time.Time
	pending   *PendingConfirmation
	prevCode  string
}

// Handle processes one user turn. Every path ends in a user-facing Result;
// the only error returned is ErrMissingCredentials when no model is
// configured. Collaborator failures become OutcomeNetworkError with the
// history returned unchanged.
func (c *Controller) Handle(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	if c.model == nil {
		return Response{History: req.History}, domerrors.ErrMissingCredentials
	}

	t := &turn{
		req:       req,
		utterance: strings.TrimSpace(req.Utterance),
		asOf:      c.now(),
	}
	t.pending = req.Pending
	if t.pending == nil {
		t.pending = c.PendingFromHistory(req.History)
	}
	t.prevCode = c.previousCode(req.History)

	res, err := c.handle(ctx, t)
	if err != nil {
		if errors.Is(err, domerrors.ErrMissingCredentials) {
			return Response{History: req.History}, err
		}
		c.log.WithError(err).WarnContext(ctx, "collaborator failed, turn not committed")
		res = Result{Outcome: OutcomeNetworkError, Text: msgNetworkError}
	}

	duration := time.Since(start)
	c.metrics.RecordTurn(string(res.Outcome), duration.Seconds())
	if res.Code == "" && (res.Outcome == OutcomeClarify || res.Outcome == OutcomeUmbrella) {
		c.metrics.RecordUnresolved()
	}
	c.log.InfoContext(ctx, "turn handled",
		"outcome", res.Outcome,
		"code", res.Code,
		"records", len(res.Hits),
		"duration_ms", duration.Milliseconds())
	c.notify(ctx, t, res, duration)

	resp := Response{Result: res}
	if res.Outcome == OutcomeNetworkError {
		resp.History = cloneTurns(req.History)
		return resp, nil
	}
	resp.History = append(cloneTurns(req.History),
		Turn{Role: RoleUser, Content: t.utterance},
		Turn{Role: RoleAssistant, Content: res.Text},
	)
	return resp, nil
}

func (c *Controller) handle(ctx context.Context, t *turn) (Result, error) {
	var confirmed bool
	if t.pending != nil {
		yes, no := answer(t.utterance)
		if no {
			return Result{Outcome: OutcomeDeclined, Text: msgDeclined}, nil
		}
		confirmed = yes
	}

	comp, err := c.model.Complete(ctx, c.payload(t))
	if err != nil {
		return Result{}, domerrors.Collaborator("model", "complete", err)
	}

	var args genai.SearchArgs
	switch {
	case comp != nil && comp.Call != nil:
		if comp.Call.Malformed {
			c.log.WarnContext(ctx, "malformed function arguments", "raw_length", len(comp.Call.Raw))
		}
		args = comp.Call.Args
	case confirmed:
		// The model did not call the function on "yes"; search for the
		// confirmed course with no other slots.
	default:
		return c.terminal(comp, t), nil
	}

	slots := c.slotsFrom(args, t)

	if confirmed {
		slots.Code = t.pending.Code
		slots.Keyword = t.pending.Code
	} else {
		res, done := c.resolve(&slots, t)
		if done {
			return res, nil
		}
	}

	c.resetOnSubjectChange(&slots, t)
	return c.search(ctx, slots, t)
}

// terminal handles a completion without a function call.
func (c *Controller) terminal(comp *genai.Completion, t *turn) Result {
	if m, ok := c.resolver.Umbrella(t.utterance); ok && m.Ambiguous() {
		return umbrellaResult(m)
	}
	text := ""
	if comp != nil {
		text = strings.TrimSpace(comp.Content)
	}
	if text == "" {
		text = msgGeneric
	}
	return Result{Outcome: OutcomePassthrough, Text: text}
}

func (c *Controller) slotsFrom(args genai.SearchArgs, t *turn) Slots {
	s := Slots{
		Keyword:          strings.TrimSpace(args.Keyword),
		Location:         strings.TrimSpace(args.Location),
		RequireAvailable: args.RequireAvailableSpaces,
	}
	if args.Month != "" {
		// A month the model made up is dropped, not searched for.
		if m, ok := search.ParseMonth(args.Month); ok {
			s.Month = m
		}
	}
	if typ, ok := catalog.ParseCourseType(args.Type); ok {
		s.Type = typ
	}
	if typ, ok := typeHintOf(t.utterance); ok {
		s.Type = typ
	}
	if t.req.TypeHint != "" {
		s.Type = t.req.TypeHint
	}
	return s
}

// resolve fills slots.Code, or returns the prompt that ends the turn.
func (c *Controller) resolve(s *Slots, t *turn) (Result, bool) {
	kw := s.Keyword

	// A bare family name the user typed outranks the model's guess at one of
	// its members, unless it names the course already under discussion.
	if m, ok := c.resolver.Umbrella(t.utterance); ok && m.Ambiguous() && !m.Covers(t.prevCode) {
		return umbrellaResult(m), true
	}

	for _, p := range []string{kw, t.utterance} {
		if code, ok := c.resolver.Resolve(p); ok {
			s.Code = code
			return Result{}, false
		}
	}

	var ambiguous *synonym.UmbrellaMatch
	for _, p := range []string{kw, t.utterance} {
		m, ok := c.resolver.Umbrella(p)
		if !ok {
			continue
		}
		if !m.Ambiguous() {
			s.Code = m.Code
			return Result{}, false
		}
		if ambiguous == nil {
			ambiguous = &m
		}
	}
	if ambiguous != nil {
		return umbrellaResult(*ambiguous), true
	}

	if e, ok := c.resolver.Suggest(kw); ok {
		return confirmResult(e, *s), true
	}

	if kw == "" && t.prevCode != "" {
		// "In Chelmsford please" or "any seats left?" after a search.
		s.Code = t.prevCode
		if code, ok := c.resolver.Mentions(t.utterance); ok {
			s.Code = code
		}
		return Result{}, false
	}

	if code, ok := c.resolver.Fallback(kw, t.utterance); ok {
		s.Code = code
		return Result{}, false
	}

	if kw == "" {
		if e, ok := c.resolver.Suggest(t.utterance); ok {
			return confirmResult(e, *s), true
		}
	}

	return Result{Outcome: OutcomeClarify, Text: unresolvedText(kw), Slots: *s}, true
}

// resetOnSubjectChange drops month and location carried over from a
// conversation about another course, unless this utterance restates them.
func (c *Controller) resetOnSubjectChange(s *Slots, t *turn) {
	if t.prevCode == "" || t.prevCode == s.Code {
		return
	}
	if s.Month != "" {
		if m, ok := search.FirstMonth(t.utterance); !ok || m != s.Month {
			s.Month = ""
		}
	}
	if s.Location != "" && !stringutil.ContainsNormalized(t.utterance, s.Location) {
		s.Location = ""
	}
}

func (c *Controller) search(ctx context.Context, s Slots, t *turn) (Result, error) {
	entry, _ := c.table.Entry(s.Code)
	sortKey, sorted := search.DetectSortKey(t.utterance)
	_, hinted := typeHintOf(t.utterance)

	criteria := search.Criteria{
		Keyword:          s.Keyword,
		Code:             s.Code,
		Month:            s.Month,
		Location:         s.Location,
		Type:             s.Type,
		RequireAvailable: s.RequireAvailable,
	}

	refinement := t.prevCode == s.Code && (sorted || hinted || s.RequireAvailable)
	needDetail := s.Month == "" && s.Location == "" && !refinement

	records, err := c.source.Courses(ctx)
	if err != nil {
		return Result{}, domerrors.Collaborator("catalog", "fetch", err)
	}

	base := Result{Code: s.Code, FullName: entry.FullName, Slots: s, SortKey: sortKey}

	if needDetail {
		opts := search.AvailableOptions(c.table, records, criteria, t.asOf)
		base.Outcome = OutcomeClarify
		base.Options = opts
		base.Text = askDetailText(entry.FullName, entry.Label(), opts)
		return base, nil
	}

	hits := search.Filter(c.table, records, criteria, t.asOf)
	search.Sort(hits, sortKey)

	if len(hits) == 0 {
		opts := search.AvailableOptions(c.table, records, criteria, t.asOf)
		base.Outcome = OutcomeNoResults
		base.Options = opts
		base.Text = noResultsText(entry.FullName, opts)
		base.Intro = base.Text
		return base, nil
	}

	base.Outcome = OutcomeResults
	base.Total = len(hits)
	base.Intro = resultsIntro(len(hits), entry.FullName)
	if mixedTypes(hits) {
		base.Note = msgMixedTypes
	}
	if c.maxResults > 0 && len(hits) > c.maxResults {
		hits = hits[:c.maxResults]
	}
	base.Hits = hits
	base.Text = base.Intro
	if base.Note != "" {
		base.Text += " " + base.Note
	}
	return base, nil
}

func mixedTypes(hits []search.Hit) bool {
	var standard, refresher bool
	for _, h := range hits {
		switch h.Meta.Type {
		case catalog.TypeRefresher:
			refresher = true
		default:
			standard = true
		}
	}
	return standard && refresher
}

func umbrellaResult(m synonym.UmbrellaMatch) Result {
	return Result{
		Outcome: OutcomeUmbrella,
		Text:    umbrellaText(m),
		Choices: m.Options,
	}
}

func confirmResult(e synonym.Entry, s Slots) Result {
	return Result{
		Outcome:  OutcomeConfirm,
		Text:     confirmText(e),
		Code:     e.Code,
		FullName: e.FullName,
		Slots:    s,
		Pending:  &PendingConfirmation{Code: e.Code, FullName: e.FullName},
	}
}

func (c *Controller) notify(ctx context.Context, t *turn, res Result, d time.Duration) {
	if c.observer == nil {
		return
	}
	requestID, _ := ctxutil.GetRequestID(ctx)
	e := Event{
		RequestID: requestID,
		Outcome:   res.Outcome,
		Code:      res.Code,
		Utterance: stringutil.Normalize(t.utterance),
		Records:   res.Total,
		Duration:  d,
	}
	defer func() {
		if r := recover(); r != nil {
			c.log.ErrorContext(ctx, "turn observer panicked", slog.Any("panic", r))
		}
	}()
	c.observer(ctx, e)
}

func cloneTurns(turns []Turn) []Turn {
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
