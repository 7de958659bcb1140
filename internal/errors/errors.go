// Package errors holds the failure kinds a dialogue turn distinguishes:
// missing model credentials are fatal for the request, collaborator
// failures become the network-error reply, and catalog fetches carry the
// upstream URL and status.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a stored object does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrMissingCredentials indicates the model has no API key configured.
	// It is never retried.
	ErrMissingCredentials = errors.New("missing API credentials")

	// ErrCollaborator indicates the model or catalog source failed.
	ErrCollaborator = errors.New("external collaborator failed")
)

func IsMissingCredentials(err error) bool {
	return errors.Is(err, ErrMissingCredentials)
}

func IsCollaborator(err error) bool {
	return errors.Is(err, ErrCollaborator)
}

// CollaboratorError records which collaborator failed during which step of
// a turn. It matches both ErrCollaborator and the underlying cause.
type CollaboratorError struct {
	Name string // "model" or "catalog"
	Step string
	Err  error
}

// Collaborator wraps err as a CollaboratorError, or returns nil for nil.
func Collaborator(name, step string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Name: name, Step: step, Err: err}
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Name, e.Step, e.Err)
}

func (e *CollaboratorError) Unwrap() []error {
	return []error{ErrCollaborator, e.Err}
}

// CatalogError represents a failed fetch from the course catalog source.
type CatalogError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *CatalogError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("catalog error (url=%s, status=%d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("catalog error (url=%s): %v", e.URL, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

func NewCatalogError(url string, statusCode int, err error) *CatalogError {
	return &CatalogError{URL: url, StatusCode: statusCode, Err: err}
}
