package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/targetzero/coursebot/internal/catalog"
	"github.com/targetzero/coursebot/internal/dialogue"
	domerrors "github.com/targetzero/coursebot/internal/errors"
	"github.com/targetzero/coursebot/internal/logger"
	"github.com/targetzero/coursebot/internal/search"
)

type fakeDialogue struct {
	got  dialogue.Request
	res  dialogue.Result
	err  error
	hits int
}

func (f *fakeDialogue) Handle(_ context.Context, req dialogue.Request) (dialogue.Response, error) {
	f.hits++
	f.got = req
	if f.err != nil {
		return dialogue.Response{History: req.History}, f.err
	}
	history := append(req.History,
		dialogue.Turn{Role: dialogue.RoleUser, Content: req.Utterance},
		dialogue.Turn{Role: dialogue.RoleAssistant, Content: f.res.Text})
	return dialogue.Response{Result: f.res, History: history}, nil
}

func newRouter(t *testing.T, d Dialogue) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h, err := NewHandler(d, logger.Discard(), 0)
	require.NoError(t, err)
	r := gin.New()
	h.Register(r)
	return r
}

func do(r http.Handler, method, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/api/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestNewHandler_RequiresDialogue(t *testing.T) {
	t.Parallel()
	_, err := NewHandler(nil, nil, 0)
	assert.Error(t, err)
}

func TestAsk_MethodNotAllowed(t *testing.T) {
	t.Parallel()
	d := &fakeDialogue{}
	r := newRouter(t, d)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		w := do(r, method, "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, method)
		assert.JSONEq(t, `{"error":"Method not allowed"}`, w.Body.String())
		assert.Equal(t, http.MethodPost, w.Header().Get("Allow"))
	}
	assert.Zero(t, d.hits)
}

func TestAsk_Results(t *testing.T) {
	t.Parallel()
	d := &fakeDialogue{res: dialogue.Result{
		Outcome: dialogue.OutcomeResults,
		Text:    "Sure! I found 1 Site Management Safety Training Scheme course:",
		Intro:   "Sure! I found 1 Site Management Safety Training Scheme course:",
		Hits: []search.Hit{{
			Record: catalog.Record{Name: "SMSTS | Chelmsford | 5 days", Link: "https://example.com/smsts"},
			Meta:   catalog.Meta{Location: "Chelmsford"},
		}},
		Total: 1,
	}}
	r := newRouter(t, d)

	w := do(r, http.MethodPost, `{
		"messages": [
			{"role": "system", "content": "You help people find courses."},
			{"role": "user", "content": "smsts please"},
			{"role": "assistant", "content": "Which location?"},
			{"role": "user", "content": "Chelmsford"}
		],
		"type": "Standard"
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "Chelmsford", d.got.Utterance)
	assert.Len(t, d.got.History, 3)
	assert.Equal(t, catalog.TypeStandard, d.got.TypeHint)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "results", resp.Outcome)
	assert.Contains(t, resp.Reply, "1. SMSTS | Chelmsford | 5 days")
	assert.Contains(t, resp.HTML, `class="courseBox"`)
	assert.Contains(t, resp.HTML, "https://example.com/smsts")
	assert.Equal(t, "Sure! I found 1 Site Management Safety Training Scheme course.", resp.Spoken)
	require.Len(t, resp.Messages, 5)
	assert.Equal(t, Message{Role: "user", Content: "Chelmsford"}, resp.Messages[3])
	assert.Equal(t, "assistant", resp.Messages[4].Role)
}

func TestAsk_BadRequests(t *testing.T) {
	t.Parallel()
	long := strings.Repeat("a", MaxContentRunes+1)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{"messages":`, msgBadRequest},
		{"no messages", `{"messages":[]}`, msgBadRequest},
		{"ends with assistant", `{"messages":[{"role":"assistant","content":"hi"}]}`, msgNoUserMessage},
		{"blank utterance", `{"messages":[{"role":"user","content":"  "}]}`, msgNoUserMessage},
		{"unknown role", `{"messages":[{"role":"tool","content":"x"},{"role":"user","content":"hi"}]}`, msgBadRequest},
		{"content too long", `{"messages":[{"role":"user","content":"` + long + `"}]}`, msgBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := &fakeDialogue{}
			w := do(newRouter(t, d), http.MethodPost, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
			assert.Zero(t, d.hits)
		})
	}
}

func TestAsk_MissingCredentials(t *testing.T) {
	t.Parallel()
	d := &fakeDialogue{err: domerrors.ErrMissingCredentials}
	w := do(newRouter(t, d), http.MethodPost, `{"messages":[{"role":"user","content":"sssts"}]}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Missing OpenAI API key in environment."}`, w.Body.String())
}

func TestAsk_UnexpectedError(t *testing.T) {
	t.Parallel()
	d := &fakeDialogue{err: errors.New("boom")}
	w := do(newRouter(t, d), http.MethodPost, `{"messages":[{"role":"user","content":"sssts"}]}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error."}`, w.Body.String())
}

func TestAsk_ClarifyIsPlainText(t *testing.T) {
	t.Parallel()
	d := &fakeDialogue{res: dialogue.Result{
		Outcome: dialogue.OutcomeClarify,
		Text:    "Which location works for you? <Chelmsford>",
	}}
	w := do(newRouter(t, d), http.MethodPost, `{"messages":[{"role":"user","content":"smsts"}],"type":"advanced"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "clarify", resp.Outcome)
	assert.Equal(t, d.res.Text, resp.Reply)
	assert.Equal(t, d.res.Text, resp.Spoken)
	assert.Equal(t, "Which location works for you? &lt;Chelmsford&gt;", resp.HTML)
	assert.Empty(t, d.got.TypeHint, "unknown type is ignored")
}
