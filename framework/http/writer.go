package http

import "net/http"

// StatusWriter wraps http.ResponseWriter to record whether, and with which
// status, a response was written. The pipeline uses it to skip response
// shaping when a handler wrote to the raw writer itself.
type StatusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

// NewStatusWriter wraps w. An already wrapped writer is returned as is.
func NewStatusWriter(w http.ResponseWriter) *StatusWriter {
	if sw, ok := w.(*StatusWriter); ok {
		return sw
	}
	return &StatusWriter{ResponseWriter: w, status: http.StatusOK}
}

func (sw *StatusWriter) WriteHeader(code int) {
	if !sw.wroteHeader {
		sw.status = code
		sw.wroteHeader = true
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *StatusWriter) Write(b []byte) (int, error) {
	if !sw.wroteHeader {
		sw.wroteHeader = true
	}
	return sw.ResponseWriter.Write(b)
}

// Written reports whether headers or body have been sent.
func (sw *StatusWriter) Written() bool { return sw.wroteHeader }

// Status returns the status sent, 200 if none was set explicitly.
func (sw *StatusWriter) Status() int { return sw.status }

// Flush implements http.Flusher for streaming responses.
func (sw *StatusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the original writer.
func (sw *StatusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
