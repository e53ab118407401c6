package router

import (
	"strings"

	dawnerrors "github.com/albedosehen/dawn/internal/errors"
	"github.com/albedosehen/dawn/internal/pipeline"
)

type segmentKind int

const (
	segmentStatic segmentKind = iota
	segmentParam
	segmentWildcard
)

type segment struct {
	kind segmentKind
	text string
}

// route is a registered handler together with the names its pattern binds.
type route struct {
	handler      pipeline.Handler
	pattern      string
	paramNames   []string
	wildcardName string
}

type node struct {
	static   map[string]*node
	param    *node
	wildcard *route
	leaf     *route
}

func newNode() *node {
	return &node{}
}

// parsePattern splits pattern into segments, panicking on malformed input.
func parsePattern(pattern string) []segment {
	trimmed := strings.TrimPrefix(pattern, "/")
	trimmed = strings.TrimSuffix(trimmed, "/")
	if trimmed == "" {
		return nil
	}

	parts := strings.Split(trimmed, "/")
	segments := make([]segment, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for i, part := range parts {
		switch {
		case part == "":
			panic(dawnerrors.NewPatternError(pattern, "empty segment"))

		case part[0] == ':':
			name := part[1:]
			if name == "" {
				panic(dawnerrors.NewPatternError(pattern, "parameter without a name"))
			}
			if !validName(name) {
				panic(dawnerrors.NewPatternError(pattern, "invalid parameter name "+name))
			}
			if _, dup := seen[name]; dup {
				panic(dawnerrors.NewPatternError(pattern, "duplicate parameter name "+name))
			}
			seen[name] = struct{}{}
			segments = append(segments, segment{kind: segmentParam, text: name})

		case part[0] == '*':
			if i != len(parts)-1 {
				panic(dawnerrors.NewPatternError(pattern, "wildcard must be the last segment"))
			}
			name := part[1:]
			if name != "" && !validName(name) {
				panic(dawnerrors.NewPatternError(pattern, "invalid wildcard name "+name))
			}
			if _, dup := seen[name]; dup && name != "" {
				panic(dawnerrors.NewPatternError(pattern, "duplicate parameter name "+name))
			}
			segments = append(segments, segment{kind: segmentWildcard, text: name})

		case strings.ContainsAny(part, ":*"):
			panic(dawnerrors.NewPatternError(pattern, "segment "+part+" mixes literal text with a parameter"))

		default:
			segments = append(segments, segment{kind: segmentStatic, text: part})
		}
	}

	return segments
}

func validName(name string) bool {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}

// insert adds a route for segments below n. It panics when a route with the
// same shape already exists.
func (n *node) insert(method string, segments []segment, r *route) {
	current := n
	for _, seg := range segments {
		switch seg.kind {
		case segmentStatic:
			if current.static == nil {
				current.static = make(map[string]*node)
			}
			child, ok := current.static[seg.text]
			if !ok {
				child = newNode()
				current.static[seg.text] = child
			}
			current = child

		case segmentParam:
			if current.param == nil {
				current.param = newNode()
			}
			r.paramNames = append(r.paramNames, seg.text)
			current = current.param

		case segmentWildcard:
			if current.wildcard != nil {
				panic(dawnerrors.NewConflictError(method, r.pattern))
			}
			r.wildcardName = seg.text
			current.wildcard = r
			return
		}
	}

	if current.leaf != nil {
		panic(dawnerrors.NewConflictError(method, r.pattern))
	}
	current.leaf = r
}

// match is the outcome of a successful lookup. Positions are absolute byte
// offsets into the full request path.
type match struct {
	route         *route
	values        []string
	wildcardStart int
	hasWildcard   bool
}

// lookup finds the most specific route for path starting at offset.
func (n *node) lookup(path string, offset int) (match, bool) {
	pos := offset
	if pos < len(path) && path[pos] == '/' {
		pos++
	}
	return n.find(path, pos, nil)
}

// find tries static children first, then the parameter child, then a
// wildcard, backtracking when a deeper branch fails.
func (n *node) find(path string, pos int, values []string) (match, bool) {
	if pos >= len(path) {
		if n.leaf != nil {
			return match{route: n.leaf, values: values}, true
		}
		if n.wildcard != nil {
			return match{route: n.wildcard, values: values, wildcardStart: len(path), hasWildcard: true}, true
		}
		return match{}, false
	}

	end := strings.IndexByte(path[pos:], '/')
	if end < 0 {
		end = len(path)
	} else {
		end += pos
	}
	seg := path[pos:end]
	next := end
	if next < len(path) {
		next++
	}

	if child, ok := n.static[seg]; ok && seg != "" {
		if m, ok := child.find(path, next, values); ok {
			return m, true
		}
	}

	if n.param != nil && seg != "" {
		withParam := append(values[:len(values):len(values)], seg)
		if m, ok := n.param.find(path, next, withParam); ok {
			return m, true
		}
	}

	if n.wildcard != nil {
		return match{route: n.wildcard, values: values, wildcardStart: pos, hasWildcard: true}, true
	}

	return match{}, false
}
