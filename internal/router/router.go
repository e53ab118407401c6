// Package router implements a method-aware trie router.
//
// Patterns are made of static segments, named parameters (":id") and an
// optional trailing wildcard ("*" or "*rest"). The most specific route wins,
// comparing segments from the left: static beats parameter beats wildcard.
// Registration order never matters.
//
// A request that no route matches is passed to next unchanged, so routers can
// be composed with other handlers and with each other. A router mounted under
// another router's wildcard matches only the part of the path the outer
// router has not consumed.
package router

import (
	"context"
	"net/http"
	"strings"

	"github.com/albedosehen/dawn/internal/envelope"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
)

// MatchedPath is the number of leading path bytes consumed by enclosing
// routers.
type MatchedPath int

// matchedPattern is the pattern of the innermost route that matched.
type matchedPattern string

// StandardMethods are the methods Any registers for.
var StandardMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodConnect,
	http.MethodOptions,
	http.MethodTrace,
}

// Route describes one registration.
type Route struct {
	Method  string
	Pattern string
}

// Router dispatches requests to handlers by method and path. Routes must be
// registered before the router serves its first request.
type Router struct {
	trees  map[string]*node
	routes []Route
	logger observability.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger makes the router log registrations and matches at debug level.
func WithLogger(logger observability.Logger) Option {
	return func(r *Router) {
		r.logger = logger.WithFields(observability.Component("router"))
	}
}

func New(opts ...Option) *Router {
	r := &Router{
		trees:  make(map[string]*node),
		logger: observability.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build runs fn against r and returns r, for declaring routes inline.
func (r *Router) Build(fn func(*Router)) *Router {
	fn(r)
	return r
}

// Route registers h for method and pattern. It panics on a malformed pattern
// or when an equivalent route is already registered.
func (r *Router) Route(method, pattern string, h pipeline.Handler) {
	segments := parsePattern(pattern)

	tree, ok := r.trees[method]
	if !ok {
		tree = newNode()
		r.trees[method] = tree
	}
	tree.insert(method, segments, &route{handler: h, pattern: pattern})

	r.routes = append(r.routes, Route{Method: method, Pattern: pattern})
	r.logger.Debug(context.Background(), "route registered",
		observability.Method(method),
		observability.Pattern(pattern),
		observability.String("handler", pipeline.Name(h)),
	)
}

func (r *Router) Get(pattern string, h pipeline.Handler) {
	r.Route(http.MethodGet, pattern, h)
}

func (r *Router) Head(pattern string, h pipeline.Handler) {
	r.Route(http.MethodHead, pattern, h)
}

func (r *Router) Post(pattern string, h pipeline.Handler) {
	r.Route(http.MethodPost, pattern, h)
}

func (r *Router) Put(pattern string, h pipeline.Handler) {
	r.Route(http.MethodPut, pattern, h)
}

func (r *Router) Patch(pattern string, h pipeline.Handler) {
	r.Route(http.MethodPatch, pattern, h)
}

func (r *Router) Delete(pattern string, h pipeline.Handler) {
	r.Route(http.MethodDelete, pattern, h)
}

func (r *Router) Connect(pattern string, h pipeline.Handler) {
	r.Route(http.MethodConnect, pattern, h)
}

func (r *Router) Options(pattern string, h pipeline.Handler) {
	r.Route(http.MethodOptions, pattern, h)
}

func (r *Router) Trace(pattern string, h pipeline.Handler) {
	r.Route(http.MethodTrace, pattern, h)
}

// Any registers h for every standard method.
func (r *Router) Any(pattern string, h pipeline.Handler) {
	for _, method := range StandardMethods {
		r.Route(method, pattern, h)
	}
}

// Mount hands every request under prefix to h, which is usually another
// Router. The mounted handler sees the path remainder after prefix.
func (r *Router) Mount(prefix string, h pipeline.Handler) {
	r.Any(strings.TrimSuffix(prefix, "/")+"/*", h)
}

// Routes lists registrations in the order they were made.
func (r *Router) Routes() []Route {
	return append([]Route(nil), r.routes...)
}

func (r *Router) Name() string {
	return "router"
}

// Run dispatches req to the best matching route, or to next when there is
// none. The matched handler receives the router's own next.
func (r *Router) Run(req *envelope.Request, next pipeline.Next) (*envelope.Request, error) {
	offset, nested := envelope.TakeExt[MatchedPath](req)

	tree, ok := r.trees[req.Method()]
	if !ok {
		return next.Run(req)
	}

	path := req.Path()
	if int(offset) > len(path) {
		return next.Run(req)
	}

	m, ok := tree.lookup(path, int(offset))
	if !ok {
		return next.Run(req)
	}

	captures := Captures{
		params: make([]Capture, len(m.values)),
	}
	for i, value := range m.values {
		captures.params[i] = Capture{Name: m.route.paramNames[i], Value: value}
	}

	consumed := len(path)
	if m.hasWildcard {
		captures.hasWildcard = true
		captures.wildcardName = m.route.wildcardName
		captures.wildcardStart = m.wildcardStart
		captures.wildcard = path[m.wildcardStart:]
		consumed = m.wildcardStart
	}

	if nested {
		if outer, ok := envelope.Ext[Captures](req); ok {
			captures = captures.inherit(outer)
		}
	}

	envelope.SetExt(req, MatchedPath(consumed))
	envelope.SetExt(req, captures)
	envelope.SetExt(req, matchedPattern(m.route.pattern))

	r.logger.Debug(req.Context(), "route matched",
		observability.Method(req.Method()),
		observability.Path(path),
		observability.Pattern(m.route.pattern),
	)

	return m.route.handler.Run(req, next)
}

// Param returns the path parameter name captured for req.
func Param(req *envelope.Request, name string) (string, bool) {
	captures, ok := envelope.Ext[Captures](req)
	if !ok {
		return "", false
	}
	return captures.Get(name)
}

// CapturesOf returns the captures of the innermost route that matched req.
func CapturesOf(req *envelope.Request) (Captures, bool) {
	return envelope.Ext[Captures](req)
}

// MatchedOffset returns how much of req's path has been consumed by routing.
func MatchedOffset(req *envelope.Request) (int, bool) {
	offset, ok := envelope.Ext[MatchedPath](req)
	return int(offset), ok
}

// PatternOf returns the pattern of the innermost route that matched req.
func PatternOf(req *envelope.Request) (string, bool) {
	pattern, ok := envelope.Ext[matchedPattern](req)
	return string(pattern), ok
}
