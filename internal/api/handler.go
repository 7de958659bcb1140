// Package api serves the web chat endpoint. Clients own the conversation
// and send all of it with every request.
package api

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/targetzero/coursebot/internal/catalog"
	"github.com/targetzero/coursebot/internal/dialogue"
	domerrors "github.com/targetzero/coursebot/internal/errors"
	"github.com/targetzero/coursebot/internal/logger"
	"github.com/targetzero/coursebot/internal/render"
	"github.com/targetzero/coursebot/internal/sentry"
)

// Request limits.
const (
	MaxBodyBytes     = 256 << 10
	MaxMessages      = 100
	MaxContentRunes  = 4000
	DefaultTimeout   = 60 * time.Second
	msgMissingKey    = "Missing OpenAI API key in environment."
	msgBadRequest    = "Invalid request body."
	msgNoUserMessage = "The last message must come from the user."
	msgInternal      = "Internal server error."
)

// Dialogue handles one conversational turn.
type Dialogue interface {
	Handle(ctx context.Context, req dialogue.Request) (dialogue.Response, error)
}

// Message is one chat message on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Messages []Message `json:"messages"`
	// Type optionally restricts results to "standard" or "refresher".
	Type string `json:"type,omitempty"`
}

// AskResponse is the reply to POST /api/ask.
type AskResponse struct {
	Reply    string    `json:"reply"`
	HTML     string    `json:"html"`
	Spoken   string    `json:"spoken"`
	Outcome  string    `json:"outcome"`
	Messages []Message `json:"messages"`
}

// Handler serves the ask endpoint.
type Handler struct {
	dialogue Dialogue
	logger   *logger.Logger
	timeout  time.Duration
}

// NewHandler creates a Handler. A zero timeout uses DefaultTimeout.
func NewHandler(d Dialogue, log *logger.Logger, timeout time.Duration) (*Handler, error) {
	if d == nil {
		return nil, errors.New("api: dialogue is required")
	}
	if log == nil {
		log = logger.Discard()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Handler{dialogue: d, logger: log.WithModule("api"), timeout: timeout}, nil
}

// Register mounts the endpoint. Every method is routed so that anything but
// POST gets a JSON 405.
func (h *Handler) Register(r gin.IRoutes, middleware ...gin.HandlerFunc) {
	r.Any("/api/ask", append(slices.Clone(middleware), h.Ask)...)
}

// Ask handles one turn of the web chat.
func (h *Handler) Ask(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.Header("Allow", http.MethodPost)
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	var body AskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.WithError(err).DebugContext(c.Request.Context(), "Rejected malformed request")
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadRequest})
		return
	}

	req, err := toRequest(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	resp, err := h.dialogue.Handle(ctx, req)
	if err != nil {
		if domerrors.IsMissingCredentials(err) {
			h.logger.WithError(err).ErrorContext(ctx, "No model credentials configured")
			c.JSON(http.StatusInternalServerError, gin.H{"error": msgMissingKey})
			return
		}
		h.logger.WithError(err).ErrorContext(ctx, "Dialogue failed")
		sentry.CaptureExceptionWithContext(ctx, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgInternal})
		return
	}

	res := resp.Result
	c.JSON(http.StatusOK, AskResponse{
		Reply:    render.Text(res),
		HTML:     render.HTML(res),
		Spoken:   render.Spoken(res),
		Outcome:  string(res.Outcome),
		Messages: fromTurns(resp.History),
	})
}

// toRequest splits the wire messages into history and the new utterance,
// which must be the last message and come from the user.
func toRequest(body AskRequest) (dialogue.Request, error) {
	if len(body.Messages) == 0 || len(body.Messages) > MaxMessages {
		return dialogue.Request{}, errors.New(msgBadRequest)
	}
	last := body.Messages[len(body.Messages)-1]
	if last.Role != dialogue.RoleUser || strings.TrimSpace(last.Content) == "" {
		return dialogue.Request{}, errors.New(msgNoUserMessage)
	}

	history := make([]dialogue.Turn, 0, len(body.Messages)-1)
	for _, m := range body.Messages {
		if len([]rune(m.Content)) > MaxContentRunes {
			return dialogue.Request{}, errors.New(msgBadRequest)
		}
		switch m.Role {
		case dialogue.RoleUser, dialogue.RoleAssistant, dialogue.RoleSystem:
		default:
			return dialogue.Request{}, errors.New(msgBadRequest)
		}
	}
	for _, m := range body.Messages[:len(body.Messages)-1] {
		history = append(history, dialogue.Turn{Role: m.Role, Content: m.Content})
	}

	req := dialogue.Request{History: history, Utterance: last.Content}
	if typ, ok := catalog.ParseCourseType(body.Type); ok {
		req.TypeHint = typ
	}
	return req, nil
}

func fromTurns(turns []dialogue.Turn) []Message {
	out := make([]Message, len(turns))
	for i, t := range turns {
		out[i] = Message{Role: t.Role, Content: t.Content}
	}
	return out
}
