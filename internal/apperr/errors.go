// Package apperr holds the storefront's error taxonomy: validation failures
// that never reach the network, network failures across every candidate
// endpoint, and explicit rejections from the backend.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/multierr"
)

// ValidationError is missing or malformed input. No network call was made.
type ValidationError struct {
	Field   string
	Message string
	// Redirect names the surface the adapter should show, e.g. "account".
	Redirect string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Validation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// AttemptError is the failure of one candidate base URL.
type AttemptError struct {
	URL     string
	Status  int
	Message string
	Err     error
}

func (e *AttemptError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.URL, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %d %s: %s", e.URL, e.Status, http.StatusText(e.Status), e.Message)
	default:
		return fmt.Sprintf("%s: %d %s", e.URL, e.Status, http.StatusText(e.Status))
	}
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// NetworkError reports that every candidate endpoint failed.
type NetworkError struct {
	Path     string
	Attempts []*AttemptError
}

func NewNetworkError(path string, attempts []*AttemptError) *NetworkError {
	return &NetworkError{Path: path, Attempts: attempts}
}

func (e *NetworkError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("failed to fetch %s: no endpoints configured", e.Path)
	}
	return fmt.Sprintf("failed to fetch %s from all available endpoints: %v", e.Path, e.combined())
}

func (e *NetworkError) Unwrap() []error {
	return multierr.Errors(e.combined())
}

func (e *NetworkError) combined() error {
	var err error
	for _, a := range e.Attempts {
		err = multierr.Append(err, a)
	}
	return err
}

// ServerMessage is the last message a backend sent back, if any.
func (e *NetworkError) ServerMessage() string {
	for i := len(e.Attempts) - 1; i >= 0; i-- {
		if e.Attempts[i].Message != "" {
			return e.Attempts[i].Message
		}
	}
	return ""
}

// BackendRejection is a 2xx reply carrying success:false.
type BackendRejection struct {
	Message string
}

func (e *BackendRejection) Error() string {
	if e.Message == "" {
		return "request rejected by backend"
	}
	return "request rejected by backend: " + e.Message
}

// UserMessage renders err the way the storefront surfaces it.
func UserMessage(err error) string {
	var (
		verr *ValidationError
		nerr *NetworkError
		rerr *BackendRejection
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Message
	case errors.As(err, &rerr):
		if rerr.Message == "" {
			return "❌ Order failed: Please try again."
		}
		return "❌ Order failed: " + rerr.Message
	case errors.As(err, &nerr):
		if msg := nerr.ServerMessage(); msg != "" {
			return "❌ Network error: " + msg
		}
		return "❌ Network error. Please check your connection."
	default:
		return "❌ " + err.Error()
	}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
