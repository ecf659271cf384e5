package routing

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
)

// MethodAll matches every HTTP method.
const MethodAll = "ALL"

// Entry is one registered route. Entries are created while controllers are
// loaded and never change afterwards.
type Entry struct {
	// ID is the registration index, assigned by Table.Add.
	ID int

	Method  string
	Path    string
	Pattern Pattern

	// Handler is the controller method bound to Controller.
	Handler        reflect.Value
	Controller     any
	ControllerType reflect.Type
	MethodName     string
}

// Table is the ordered list of routes. Registration order decides which
// route wins when several match.
type Table struct {
	entries []*Entry
}

// NewTable creates an empty route table.
func NewTable() *Table {
	return &Table{}
}

// Add registers an entry, parsing its path. The stored entry is returned.
func (t *Table) Add(e Entry) (*Entry, error) {
	method := strings.ToUpper(e.Method)
	if method == "" {
		return nil, errors.Newf("route %s: empty method", e.Path)
	}
	pattern, err := Parse(e.Path)
	if err != nil {
		return nil, err
	}

	e.ID = len(t.entries)
	e.Method = method
	e.Path = pattern.String()
	e.Pattern = pattern
	stored := &e
	t.entries = append(t.entries, stored)
	return stored, nil
}

// Match returns the first entry whose method and path match the request.
func (t *Table) Match(method, path string) (*Entry, Params, bool) {
	for _, e := range t.entries {
		if !methodMatches(e.Method, method) {
			continue
		}
		if params, ok := e.Pattern.Match(path); ok {
			return e, params, true
		}
	}
	return nil, nil, false
}

// Allowed returns the methods registered for a path. The kernel logs them
// when a request matches a path under a different method.
func (t *Table) Allowed(path string) []string {
	var out []string
	for _, e := range t.entries {
		if _, ok := e.Pattern.Match(path); ok {
			out = append(out, e.Method)
		}
	}
	return out
}

// Entries returns the registered routes in order.
func (t *Table) Entries() []*Entry {
	return append([]*Entry(nil), t.entries...)
}

// Len returns the number of routes.
func (t *Table) Len() int { return len(t.entries) }

func methodMatches(route, request string) bool {
	if route == MethodAll || route == request {
		return true
	}
	return route == http.MethodGet && request == http.MethodHead
}
