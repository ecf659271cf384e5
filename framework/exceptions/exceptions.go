// Package exceptions defines the error kinds the request pipeline knows how
// to turn into responses.
package exceptions

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/cockroachdb/errors"
)

// StatusCoder is implemented by errors that carry an HTTP status and a
// client-facing message. Any error satisfying it is surfaced as-is by the
// guard stage and the default exception filter.
type StatusCoder interface {
	error
	StatusCode() int
	PublicMessage() string
}

// HTTPException is the general error with an explicit status and message.
type HTTPException struct {
	Status  int
	Message string
	// Details is merged into the JSON response body.
	Details map[string]any
	Cause   error
}

// New creates an HTTPException. An empty message falls back to the status text.
func New(status int, message string) *HTTPException {
	if message == "" {
		message = http.StatusText(status)
	}
	return &HTTPException{Status: status, Message: message}
}

func (e *HTTPException) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%d %s: %v", e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func (e *HTTPException) Unwrap() error         { return e.Cause }
func (e *HTTPException) StatusCode() int       { return e.Status }
func (e *HTTPException) PublicMessage() string { return e.Message }

// WithCause sets the underlying cause and returns the receiver.
func (e *HTTPException) WithCause(cause error) *HTTPException {
	e.Cause = cause
	return e
}

// WithDetail sets one detail key and returns the receiver.
func (e *HTTPException) WithDetail(key string, value any) *HTTPException {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// ── Common constructors ──────────────────────────────────────────────────────

// DefaultForbiddenMessage is used when a guard rejects without saying why.
const DefaultForbiddenMessage = "Forbidden resource"

func BadRequest(message string) *HTTPException   { return New(http.StatusBadRequest, message) }
func Unauthorized(message string) *HTTPException { return New(http.StatusUnauthorized, message) }
func NotFound(message string) *HTTPException     { return New(http.StatusNotFound, message) }
func Conflict(message string) *HTTPException     { return New(http.StatusConflict, message) }
func Internal(message string) *HTTPException     { return New(http.StatusInternalServerError, message) }

// Forbidden is the AccessDenied kind.
func Forbidden(message string) *HTTPException {
	if message == "" {
		message = DefaultForbiddenMessage
	}
	return New(http.StatusForbidden, message)
}

// RouteNotFound is produced when no route matches the request.
func RouteNotFound(method, path string) *HTTPException {
	return NotFound(fmt.Sprintf("Cannot %s %s", method, path))
}

// ── Validation ───────────────────────────────────────────────────────────────

// ValidationError is the ValidationFailure kind: per-field messages
// produced by a pipe that rejected its input.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError creates an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// Add appends a message for a field.
func (e *ValidationError) Add(field, message string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
	return e
}

// Has returns true if any message was recorded.
func (e *ValidationError) Has() bool { return len(e.Fields) > 0 }

// First returns the first message for a field.
func (e *ValidationError) First(field string) string {
	if msgs := e.Fields[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fmt.Sprintf("validation failed on %v", fields)
}

func (e *ValidationError) StatusCode() int { return http.StatusUnprocessableEntity }

func (e *ValidationError) PublicMessage() string { return "The given data was invalid." }

// ── Handler faults ───────────────────────────────────────────────────────────

// HandlerFault wraps a panic recovered while running a pipeline stage.
type HandlerFault struct {
	Stage string
	Value any
	Stack []byte
}

func (e *HandlerFault) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Stage, e.Value)
}

// Unwrap exposes a panicked error value.
func (e *HandlerFault) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// AsStatusCoder finds a StatusCoder in err's chain.
func AsStatusCoder(err error) (StatusCoder, bool) {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc, true
	}
	return nil, false
}

// AsValidation finds a ValidationError in err's chain.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// Status returns the HTTP status carried by err, or 500.
func Status(err error) int {
	if sc, ok := AsStatusCoder(err); ok {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}
