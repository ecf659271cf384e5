package http

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response is the single artifact produced for a request. Handlers may
// return one to control status, headers and body directly; it is written
// unchanged.
type Response struct {
	Status int
	Header http.Header

	// Exactly one of Value (JSON encoded) or Raw is used.
	Value any
	Raw   []byte
}

// JSON creates a JSON response.
//
//	return gohttp.JSON(http.StatusOK, map[string]any{"message": "ok"}), nil
func JSON(status int, v any) *Response {
	res := &Response{Status: status, Header: http.Header{}, Value: v}
	res.Header.Set("Content-Type", "application/json")
	return res
}

// Text creates a text/plain response.
func Text(status int, s string) *Response {
	res := &Response{Status: status, Header: http.Header{}, Raw: []byte(s)}
	res.Header.Set("Content-Type", "text/plain; charset=utf-8")
	return res
}

// Empty creates a response with no body.
func Empty(status int) *Response {
	return &Response{Status: status, Header: http.Header{}}
}

// Success creates 200 JSON: {"data": v}
func Success(v any) *Response { return JSON(http.StatusOK, envelope{"data": v}) }

// Created creates 201 JSON: {"data": v}
func Created(v any) *Response { return JSON(http.StatusCreated, envelope{"data": v}) }

// NoContent creates 204 with no body.
func NoContent() *Response { return Empty(http.StatusNoContent) }

// Error creates the standard error body:
//
//	{"statusCode": 404, "message": "Not found.", "error": "Not Found"}
func Error(status int, message string) *Response {
	return JSON(status, ErrorBody(status, message))
}

// ErrorBody builds the map used by Error, so callers can add fields.
func ErrorBody(status int, message string) map[string]any {
	return map[string]any{
		"statusCode": status,
		"message":    message,
		"error":      http.StatusText(status),
	}
}

// Forbidden creates 403.
func Forbidden(message ...string) *Response {
	return Error(http.StatusForbidden, first(message, "Forbidden resource"))
}

// NotFound creates 404.
func NotFound(message ...string) *Response {
	return Error(http.StatusNotFound, first(message, "Not found."))
}

// ServerError creates 500.
func ServerError(message ...string) *Response {
	return Error(http.StatusInternalServerError, first(message, "Internal server error"))
}

// ValidationError creates 422 with the field error bag:
//
//	{"statusCode": 422, "message": "...", "errors": {"field": ["msg"]}}
func ValidationError(message string, fields map[string][]string) *Response {
	body := ErrorBody(http.StatusUnprocessableEntity, message)
	body["errors"] = fields
	return JSON(http.StatusUnprocessableEntity, body)
}

// Redirect creates a redirect to url.
func Redirect(status int, url string) *Response {
	res := Empty(status)
	res.Header.Set("Location", url)
	return res
}

// WithHeader sets a header and returns the receiver.
func (res *Response) WithHeader(key, value string) *Response {
	if res.Header == nil {
		res.Header = http.Header{}
	}
	res.Header.Set(key, value)
	return res
}

// Encode returns the body bytes.
func (res *Response) Encode() ([]byte, error) {
	if res.Value == nil {
		return res.Raw, nil
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(res.Value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write sends the response. The body is encoded before anything is written,
// so an encoding failure leaves w untouched.
func (res *Response) Write(w http.ResponseWriter) error {
	body, err := res.Encode()
	if err != nil {
		return err
	}
	for k, v := range res.Header {
		w.Header()[k] = v
	}
	status := res.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(body) > 0 {
		_, err = w.Write(body)
	}
	return err
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
