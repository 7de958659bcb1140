package genai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			raw, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(raw, seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestOpenAIModel(t *testing.T, url string) *openaiModel {
	t.Helper()
	m, err := newOpenAIModel(ProviderOpenAI, ProviderConfig{APIKey: "test-key", BaseURL: url + "/"}, "gpt-4o-mini", 0.2, 256)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

func TestNewOpenAIModel(t *testing.T) {
	t.Parallel()

	m, err := newOpenAIModel(ProviderGroq, ProviderConfig{}, "llama", 0, 0)
	assert.NoError(t, err)
	assert.Nil(t, m)

	_, err = newOpenAIModel(ProviderGroq, ProviderConfig{APIKey: "k"}, "", 0, 0)
	assert.Error(t, err)

	_, err = newOpenAIModel(ProviderGemini, ProviderConfig{APIKey: "k"}, "x", 0, 0)
	assert.Error(t, err)

	m, err = newOpenAIModel(ProviderGroq, ProviderConfig{APIKey: "k"}, "llama-3.3-70b-versatile", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, ProviderGroq, m.Provider())
	assert.Equal(t, "llama-3.3-70b-versatile", m.model)
}

func TestOpenAIModel_FunctionCall(t *testing.T) {
	t.Parallel()
	body := `{
	  "id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
	  "choices": [{
	    "index": 0, "finish_reason": "tool_calls",
	    "message": {"role": "assistant", "content": null, "tool_calls": [{
	      "id": "call_1", "type": "function",
	      "function": {"name": "searchCourses", "arguments": "{\"keyword\":\"smsts\",\"location\":\"Chelmsford\",\"require_available_spaces\":true}"}
	    }]}
	  }],
	  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
	}`
	var seen map[string]any
	srv := chatServer(t, http.StatusOK, body, &seen)
	m := newTestOpenAIModel(t, srv.URL)

	c, err := m.Complete(context.Background(), []Message{
		{Role: RoleSystem, Content: SystemPrompt(time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC))},
		{Role: RoleUser, Content: "smsts in Chelmsford with spaces"},
	})
	require.NoError(t, err)
	require.NotNil(t, c.Call)
	assert.False(t, c.Call.Malformed)
	assert.Equal(t, "smsts", c.Call.Args.Keyword)
	assert.Equal(t, "Chelmsford", c.Call.Args.Location)
	assert.True(t, c.Call.Args.RequireAvailableSpaces)

	msgs, ok := seen["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
	tools, ok := seen["tools"].([]any)
	require.True(t, ok)
	assert.Len(t, tools, 1)
}

func TestOpenAIModel_TextReply(t *testing.T) {
	t.Parallel()
	body := `{"id":"x","object":"chat.completion","created":1,"model":"m",
	  "choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Hello! How can I help?"}}]}`
	m := newTestOpenAIModel(t, chatServer(t, http.StatusOK, body, nil).URL)

	c, err := m.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Nil(t, c.Call)
	assert.Equal(t, "Hello! How can I help?", c.Content)
}

func TestOpenAIModel_MalformedArguments(t *testing.T) {
	t.Parallel()
	body := `{"id":"x","object":"chat.completion","created":1,"model":"m",
	  "choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":null,
	  "tool_calls":[{"id":"c","type":"function","function":{"name":"searchCourses","arguments":"{keyword: smsts"}}]}}]}`
	m := newTestOpenAIModel(t, chatServer(t, http.StatusOK, body, nil).URL)

	c, err := m.Complete(context.Background(), []Message{{Role: RoleUser, Content: "smsts"}})
	require.NoError(t, err)
	require.NotNil(t, c.Call)
	assert.True(t, c.Call.Malformed)
	assert.Empty(t, c.Call.Args.Keyword)
}

func TestOpenAIModel_ErrorsCarryStatus(t *testing.T) {
	t.Parallel()
	srv := chatServer(t, http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests"}}`, nil)
	m := newTestOpenAIModel(t, srv.URL)

	_, err := m.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
	assert.Equal(t, ActionRetry, ClassifyError(err))
}

func TestOpenAIModel_NoChoices(t *testing.T) {
	t.Parallel()
	srv := chatServer(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`, nil)
	m := newTestOpenAIModel(t, srv.URL)

	_, err := m.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, ActionFallback, ClassifyError(err))
}
