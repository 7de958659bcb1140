// Error classification for retry and provider fallback.

package genai

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/openai/openai-go/v3"
	"google.golang.org/genai"
)

// ErrorAction defines the action to take based on error type.
type ErrorAction int

const (
	// ActionRetry retries the same model after a backoff.
	ActionRetry ErrorAction = iota
	// ActionFallback moves on to the next model or provider.
	ActionFallback
	// ActionFail stops immediately.
	ActionFail
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// LLMError wraps a provider error with its HTTP status.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
}

func (e *LLMError) Error() string {
	if e.StatusCode > 0 {
		return string(e.Provider) + ": " + e.Err.Error() + " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return string(e.Provider) + ": " + e.Err.Error()
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// WrapError attaches provider and status to err. The status is taken from
// the SDK error when the caller does not know it.
func WrapError(err error, provider Provider, statusCode int) error {
	if err == nil {
		return nil
	}
	if statusCode == 0 {
		statusCode = StatusCode(err)
	}
	return &LLMError{Err: err, StatusCode: statusCode, Provider: provider}
}

// StatusCode extracts the HTTP status from an SDK error, or 0.
func StatusCode(err error) int {
	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return llmErr.StatusCode
	}
	var oaErr *openai.Error
	if errors.As(err, &oaErr) {
		return oaErr.StatusCode
	}
	var gErr genai.APIError
	if errors.As(err, &gErr) {
		return gErr.Code
	}
	return 0
}

// ClassifyError determines the next step after a failed call:
//   - transient errors (429, 5xx, timeouts, network) are retried
//   - quota exhaustion and unusable responses fall back to another model
//   - other 4xx and cancellation fail immediately
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFail
	}

	if errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}
	if errors.Is(err, ErrEmptyResponse) {
		return ActionFallback
	}

	errStr := strings.ToLower(err.Error())

	// Quota exhaustion is reported as 429 by some providers; check it first.
	if containsAny(errStr, "quota", "daily limit", "monthly limit", "billing") {
		return ActionFallback
	}

	if code := StatusCode(err); code > 0 {
		return classifyStatusCode(code)
	}

	switch {
	case containsAny(errStr, "rate limit", "too many requests", "resource_exhausted", "429"):
		return ActionRetry
	case containsAny(errStr, "unavailable", "internal server error", "bad gateway",
		"gateway timeout", "overloaded", "capacity", "500", "502", "503", "504"):
		return ActionRetry
	case containsAny(errStr, "timeout", "deadline", "connection", "eof"):
		return ActionRetry
	case containsAny(errStr, "unauthorized", "unauthenticated", "invalid api key",
		"forbidden", "permission denied", "not found", "bad request", "invalid", "malformed"):
		return ActionFail
	}

	// Unknown errors are retried.
	return ActionRetry
}

func classifyStatusCode(statusCode int) ErrorAction {
	switch {
	case statusCode == http.StatusTooManyRequests,
		statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusConflict,
		statusCode >= 500 && statusCode < 600:
		return ActionRetry
	case statusCode == http.StatusNotFound:
		// Model name retired or misspelled: the next model may work.
		return ActionFallback
	case statusCode >= 400 && statusCode < 500:
		return ActionFail
	default:
		return ActionRetry
	}
}

// IsRetryable returns true if the error is transient and can be retried.
func IsRetryable(err error) bool {
	return ClassifyError(err) == ActionRetry
}

// IsPermanent returns true if the error should not be retried.
func IsPermanent(err error) bool {
	return ClassifyError(err) == ActionFail
}

// statusLabel maps err to a metric status label.
func statusLabel(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	switch code := StatusCode(err); {
	case code == http.StatusTooManyRequests:
		return "rate_limit"
	case code >= 500:
		return "server_error"
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return "auth_error"
	case code == http.StatusBadRequest:
		return "invalid_request"
	}

	switch ClassifyError(err) {
	case ActionFallback:
		return "quota_exhausted"
	case ActionRetry:
		return "transient_error"
	default:
		return "error"
	}
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
