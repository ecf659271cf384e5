package http

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
)

const maxMemory = 32 << 20 // 32 MB

// ErrEmptyBody is returned by Bind when there is nothing to decode.
var ErrEmptyBody = errors.New("empty request body")

type paramsKey struct{}

// WithRouteParams attaches the path parameters computed by the matcher.
func WithRouteParams(r *http.Request, params map[string]string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), paramsKey{}, params))
}

// RouteParams returns the path parameters attached to r, if any.
func RouteParams(r *http.Request) map[string]string {
	params, _ := r.Context().Value(paramsKey{}).(map[string]string)
	return params
}

// Request wraps *http.Request with the accessors used by parameter binding.
// The body is parsed at most once per request.
type Request struct {
	raw *http.Request

	bodyOnce sync.Once
	body     any
	bodyErr  error
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// Context returns the request context.
func (req *Request) Context() context.Context { return req.raw.Context() }

// ── Body ─────────────────────────────────────────────────────────────────────

// Body returns the parsed body: map[string]any (or another JSON value) for
// JSON, map[string]any of strings / []string for forms. Only POST, PUT and
// PATCH requests with a JSON or form content type are parsed; others yield nil.
func (req *Request) Body() (any, error) {
	req.bodyOnce.Do(func() {
		req.body, req.bodyErr = req.parseBody()
	})
	return req.body, req.bodyErr
}

// BodyField returns one top-level field of an object body.
func (req *Request) BodyField(key string) (any, error) {
	body, err := req.Body()
	if err != nil {
		return nil, err
	}
	if m, ok := body.(map[string]any); ok {
		return m[key], nil
	}
	return nil, nil
}

func (req *Request) parseBody() (any, error) {
	switch req.raw.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil, nil
	}

	mediaType, _, _ := mime.ParseMediaType(req.ContentType())
	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		return req.parseJSON()
	case mediaType == "application/x-www-form-urlencoded":
		if err := req.raw.ParseForm(); err != nil {
			return nil, errors.Wrap(err, "parsing form body")
		}
		return formValues(req.raw.PostForm), nil
	case mediaType == "multipart/form-data":
		if err := req.raw.ParseMultipartForm(maxMemory); err != nil {
			return nil, errors.Wrap(err, "parsing multipart body")
		}
		return formValues(req.raw.MultipartForm.Value), nil
	}
	return nil, nil
}

func (req *Request) parseJSON() (any, error) {
	if req.raw.Body == nil {
		return nil, nil
	}
	defer req.raw.Body.Close()
	data, err := io.ReadAll(req.raw.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading body")
	}
	if len(data) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "decoding JSON body")
	}
	return v, nil
}

// formValues flattens single-valued fields to strings.
func formValues(values map[string][]string) map[string]any {
	m := make(map[string]any, len(values))
	for k, vals := range values {
		if len(vals) == 1 {
			m[k] = vals[0]
		} else {
			m[k] = vals
		}
	}
	return m
}

// Bind decodes the parsed body into v using `json` tags.
func (req *Request) Bind(v any) error {
	body, err := req.Body()
	if err != nil {
		return err
	}
	if body == nil {
		return ErrEmptyBody
	}
	return Convert(body, v)
}

// Convert copies an arbitrary decoded value into v through a JSON round
// trip, so nested structs follow their json tags.
func Convert(src any, v any) error {
	b, err := json.Marshal(src)
	if err != nil {
		return errors.Wrap(err, "encoding value")
	}
	return errors.Wrap(json.Unmarshal(b, v), "decoding value")
}

// ── Input helpers ────────────────────────────────────────────────────────────

// Param returns a path parameter bound by the matcher.
func (req *Request) Param(key string) string {
	return RouteParams(req.raw)[key]
}

// Params returns all path parameters.
func (req *Request) Params() map[string]string {
	params := RouteParams(req.raw)
	if params == nil {
		return map[string]string{}
	}
	return params
}

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// QueryAll returns the query string as key → first value.
func (req *Request) QueryAll() map[string]string {
	out := make(map[string]string)
	for k, v := range req.raw.URL.Query() {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// Has returns true if the query or an object body has a non-empty key.
func (req *Request) Has(key string) bool {
	if req.Query(key) != "" {
		return true
	}
	v, _ := req.BodyField(key)
	return v != nil && v != ""
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// Headers returns all headers as lower-cased key → first value.
func (req *Request) Headers() map[string]string {
	out := make(map[string]string, len(req.raw.Header))
	for k, v := range req.raw.Header {
		if len(v) > 0 {
			out[strings.ToLower(k)] = v[0]
		}
	}
	return out
}

// BearerToken extracts the token from Authorization: Bearer <token>.
func (req *Request) BearerToken() string {
	auth := req.raw.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// IP returns the client IP (respects the RealIP middleware).
func (req *Request) IP() string {
	return req.raw.RemoteAddr
}

// Method returns the HTTP method.
func (req *Request) Method() string { return req.raw.Method }

// Path returns the URL path.
func (req *Request) Path() string { return req.raw.URL.Path }

// ContentType returns the Content-Type header value.
func (req *Request) ContentType() string {
	return req.raw.Header.Get("Content-Type")
}

// IsJSON returns true when the request sends or expects JSON.
func (req *Request) IsJSON() bool {
	return strings.Contains(req.raw.Header.Get("Accept"), "application/json") ||
		strings.Contains(req.ContentType(), "application/json")
}

// ── File uploads ─────────────────────────────────────────────────────────────

// File returns an uploaded file by field name.
func (req *Request) File(key string) (*multipart.FileHeader, error) {
	if err := req.raw.ParseMultipartForm(maxMemory); err != nil {
		return nil, err
	}
	_, fh, err := req.raw.FormFile(key)
	return fh, err
}
