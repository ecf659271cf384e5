package routing

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// WildcardKey is the parameter key under which a trailing "**" segment
// captures the rest of the path.
const WildcardKey = "**"

// ErrInvalidPattern is returned for malformed route paths.
var ErrInvalidPattern = errors.New("invalid route pattern")

// SegmentKind classifies one segment of a PathPattern.
type SegmentKind int

const (
	Static       SegmentKind = iota // literal text, compared exactly
	Param                           // ":name" or "{name}", binds the segment
	WildcardOne                     // "*", matches one segment, no binding
	WildcardMany                    // "**", final segment only, captures the remainder
)

// Segment is one descriptor of a PathPattern.
type Segment struct {
	Kind  SegmentKind
	Value string // literal for Static, name for Param
}

// Params holds the values bound by a successful match.
type Params map[string]string

// Pattern is a parsed route path.
type Pattern struct {
	raw      string
	segments []Segment
}

// Parse compiles a normalized path into a Pattern.
//
//	routing.Parse("/cats/:id")        // static, param
//	routing.Parse("/users/{id}/*")    // static, param, wildcardOne
//	routing.Parse("/files/**")        // static, wildcardMany
func Parse(path string) (Pattern, error) {
	parts := split(path)
	segments := make([]Segment, 0, len(parts))
	for i, part := range parts {
		seg, err := parseSegment(part)
		if err != nil {
			return Pattern{}, errors.Wrapf(err, "route %q", path)
		}
		if seg.Kind == WildcardMany && i != len(parts)-1 {
			return Pattern{}, errors.Wrapf(ErrInvalidPattern, "route %q: ** must be the last segment", path)
		}
		segments = append(segments, seg)
	}
	return Pattern{raw: Normalize(path), segments: segments}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(path string) Pattern {
	p, err := Parse(path)
	if err != nil {
		panic(err)
	}
	return p
}

func parseSegment(part string) (Segment, error) {
	switch {
	case part == "**":
		return Segment{Kind: WildcardMany}, nil
	case part == "*":
		return Segment{Kind: WildcardOne}, nil
	case strings.HasPrefix(part, ":"):
		name := part[1:]
		if name == "" {
			return Segment{}, errors.Wrap(ErrInvalidPattern, "empty parameter name")
		}
		return Segment{Kind: Param, Value: name}, nil
	case strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}"):
		name := part[1 : len(part)-1]
		if name == "" {
			return Segment{}, errors.Wrap(ErrInvalidPattern, "empty parameter name")
		}
		return Segment{Kind: Param, Value: name}, nil
	}
	return Segment{Kind: Static, Value: part}, nil
}

// String returns the normalized path the pattern was parsed from.
func (p Pattern) String() string { return p.raw }

// Segments returns a copy of the segment descriptors.
func (p Pattern) Segments() []Segment {
	return append([]Segment(nil), p.segments...)
}

// IsStatic reports whether the pattern has only literal segments.
func (p Pattern) IsStatic() bool {
	for _, s := range p.segments {
		if s.Kind != Static {
			return false
		}
	}
	return true
}

// Match tests an incoming path against the pattern. Static patterns bind
// nothing, so a match returns an empty (non-nil) Params.
func (p Pattern) Match(path string) (Params, bool) {
	parts := split(path)
	params := Params{}

	fixed := p.segments
	many := len(fixed) > 0 && fixed[len(fixed)-1].Kind == WildcardMany
	if many {
		fixed = fixed[:len(fixed)-1]
		if len(parts) < len(fixed) {
			return nil, false
		}
	} else if len(parts) != len(fixed) {
		return nil, false
	}

	for i, seg := range fixed {
		switch seg.Kind {
		case Static:
			if parts[i] != seg.Value {
				return nil, false
			}
		case Param:
			params[seg.Value] = parts[i]
		case WildcardOne:
		}
	}

	if many {
		params[WildcardKey] = strings.Join(parts[len(fixed):], "/")
	}
	return params, true
}

// Normalize joins path fragments into one absolute path: duplicate slashes
// collapse, leading and trailing slashes are trimmed, and exactly one
// leading slash is added back.
//
//	routing.Normalize("api/", "/cats//", ":id") // "/api/cats/:id"
func Normalize(parts ...string) string {
	var segments []string
	for _, part := range parts {
		segments = append(segments, split(part)...)
	}
	return "/" + strings.Join(segments, "/")
}

// split segments a path on "/", ignoring empty segments.
func split(path string) []string {
	raw := strings.Split(path, "/")
	out := raw[:0]
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
