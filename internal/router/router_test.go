package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albedosehen/dawn/internal/envelope"
	dawnerrors "github.com/albedosehen/dawn/internal/errors"
	"github.com/albedosehen/dawn/internal/pipeline"
)

// answer is an endpoint that replies with its own label.
func answer(label string) pipeline.Handler {
	return pipeline.EndpointFunc(func(req *envelope.Request) (*envelope.Request, error) {
		req.SetResponse(envelope.Text(http.StatusOK, label))
		return req, nil
	})
}

// fallthroughNext marks requests no route handled.
var fallthroughNext = pipeline.NextFunc(func(req *envelope.Request) (*envelope.Request, error) {
	req.SetResponse(envelope.Text(http.StatusNotFound, "next"))
	return req, nil
})

func serve(t *testing.T, h pipeline.Handler, method, path string) *envelope.Request {
	t.Helper()
	req := envelope.NewRequest(httptest.NewRequest(method, path, nil))
	out, err := h.Run(req, fallthroughNext)
	require.NoError(t, err)
	require.NotNil(t, out)
	return out
}

func body(req *envelope.Request) string {
	if req.Response() == nil {
		return ""
	}
	return string(req.Response().Body)
}

func TestRouter_ParamMatch(t *testing.T) {
	r := New()
	r.Get("/users/:id", answer("user"))

	out := serve(t, r, http.MethodGet, "/users/42")

	assert.Equal(t, "user", body(out))
	id, ok := Param(out, "id")
	assert.True(t, ok)
	assert.Equal(t, "42", id)

	offset, ok := MatchedOffset(out)
	assert.True(t, ok)
	assert.Equal(t, len("/users/42"), offset)

	pattern, ok := PatternOf(out)
	assert.True(t, ok)
	assert.Equal(t, "/users/:id", pattern)
}

func TestRouter_MethodMismatchFallsThrough(t *testing.T) {
	r := New()
	r.Get("/users/:id", answer("user"))

	out := serve(t, r, http.MethodPost, "/users/42")

	assert.Equal(t, "next", body(out))
	_, ok := CapturesOf(out)
	assert.False(t, ok)
}

func TestRouter_NoMatchFallsThrough(t *testing.T) {
	r := New()
	r.Get("/users/:id", answer("user"))

	tests := []string{"/", "/users", "/users/", "/users/42/posts", "/accounts/1"}
	for _, path := range tests {
		t.Run(path, func(t *testing.T) {
			out := serve(t, r, http.MethodGet, path)
			assert.Equal(t, "next", body(out))
		})
	}
}

func TestRouter_Wildcard(t *testing.T) {
	r := New()
	r.Get("/files/*rest", answer("files"))

	path := "/files/a/b/c"
	out := serve(t, r, http.MethodGet, path)

	assert.Equal(t, "files", body(out))

	captures, ok := CapturesOf(out)
	require.True(t, ok)

	text, ok := captures.Wildcard()
	require.True(t, ok)
	assert.Equal(t, "a/b/c", text)

	start, ok := captures.WildcardStart()
	require.True(t, ok)
	assert.Equal(t, 7, start)
	assert.Equal(t, len(path), start+len(text))

	named, ok := captures.Get("rest")
	assert.True(t, ok)
	assert.Equal(t, "a/b/c", named)

	offset, _ := MatchedOffset(out)
	assert.Equal(t, start, offset)
}

func TestRouter_WildcardMatchesEmpty(t *testing.T) {
	r := New()
	r.Get("/files/*", answer("files"))

	for _, path := range []string{"/files", "/files/"} {
		t.Run(path, func(t *testing.T) {
			out := serve(t, r, http.MethodGet, path)
			assert.Equal(t, "files", body(out))

			captures, _ := CapturesOf(out)
			text, ok := captures.Wildcard()
			assert.True(t, ok)
			assert.Empty(t, text)
			start, _ := captures.WildcardStart()
			assert.Equal(t, len(path), start)
		})
	}
}

func TestRouter_Specificity(t *testing.T) {
	r := New()
	// Registered least specific first to show order does not matter.
	r.Get("/users/*", answer("wildcard"))
	r.Get("/users/:id", answer("param"))
	r.Get("/users/me", answer("static"))

	tests := []struct {
		path string
		want string
	}{
		{path: "/users/me", want: "static"},
		{path: "/users/42", want: "param"},
		{path: "/users/42/posts", want: "wildcard"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			out := serve(t, r, http.MethodGet, tt.path)
			assert.Equal(t, tt.want, body(out))
		})
	}
}

func TestRouter_Backtracking(t *testing.T) {
	r := New()
	r.Get("/a/b/d", answer("static"))
	r.Get("/a/:x/c", answer("param"))

	out := serve(t, r, http.MethodGet, "/a/b/c")

	assert.Equal(t, "param", body(out))
	x, _ := Param(out, "x")
	assert.Equal(t, "b", x)
}

func TestRouter_SlashesInsignificant(t *testing.T) {
	r := New()
	r.Get("users/:id/", answer("user"))
	r.Get("/", answer("root"))

	assert.Equal(t, "user", body(serve(t, r, http.MethodGet, "/users/42")))
	assert.Equal(t, "user", body(serve(t, r, http.MethodGet, "/users/42/")))
	assert.Equal(t, "root", body(serve(t, r, http.MethodGet, "/")))
}

func TestRouter_MultipleParams(t *testing.T) {
	r := New()
	r.Get("/orgs/:org/repos/:repo", answer("repo"))

	out := serve(t, r, http.MethodGet, "/orgs/acme/repos/dawn")

	captures, ok := CapturesOf(out)
	require.True(t, ok)
	assert.Equal(t, 2, captures.Len())
	assert.Equal(t, map[string]string{"org": "acme", "repo": "dawn"}, captures.Params())
	assert.Equal(t, []Capture{{Name: "org", Value: "acme"}, {Name: "repo", Value: "dawn"}}, captures.List())
	_, ok = captures.Wildcard()
	assert.False(t, ok)
}

func TestRouter_ParamNamesPerRoute(t *testing.T) {
	r := New()
	r.Get("/items/:id", answer("get"))
	r.Delete("/items/:item", answer("delete"))

	out := serve(t, r, http.MethodDelete, "/items/5")
	v, ok := Param(out, "item")
	assert.True(t, ok)
	assert.Equal(t, "5", v)
	_, ok = Param(out, "id")
	assert.False(t, ok)
}

func TestRouter_Nested(t *testing.T) {
	inner := New().Build(func(r *Router) {
		r.Get("/users/:id", answer("inner-user"))
	})
	outer := New().Build(func(r *Router) {
		r.Mount("/api", inner)
		r.Get("/health", answer("health"))
	})

	path := "/api/users/7"
	out := serve(t, outer, http.MethodGet, path)

	assert.Equal(t, "inner-user", body(out))
	id, _ := Param(out, "id")
	assert.Equal(t, "7", id)
	offset, _ := MatchedOffset(out)
	assert.Equal(t, len(path), offset)

	assert.Equal(t, "health", body(serve(t, outer, http.MethodGet, "/health")))
}

func TestRouter_NestedEquivalentToFlat(t *testing.T) {
	inner := New()
	inner.Get("/repos/:repo", answer("repo"))

	outer := New()
	outer.Mount("/orgs/:org", inner)

	flat := New()
	flat.Get("/orgs/:org/repos/:repo", answer("repo"))

	path := "/orgs/acme/repos/dawn"
	nested := serve(t, outer, http.MethodGet, path)
	direct := serve(t, flat, http.MethodGet, path)

	nestedCaptures, _ := CapturesOf(nested)
	directCaptures, _ := CapturesOf(direct)
	assert.Equal(t, directCaptures.Params(), nestedCaptures.Params())
	assert.Equal(t, body(direct), body(nested))
}

func TestRouter_NestedMissFallsThroughToOuterNext(t *testing.T) {
	inner := New()
	inner.Get("/users/:id", answer("user"))

	outer := New()
	outer.Mount("/api", inner)

	out := serve(t, outer, http.MethodGet, "/api/orders/1")

	assert.Equal(t, "next", body(out))
	_, ok := MatchedOffset(out)
	assert.False(t, ok)
}

func TestRouter_NestedRoot(t *testing.T) {
	inner := New()
	inner.Get("/", answer("api-root"))

	outer := New()
	outer.Mount("/api/", inner)

	assert.Equal(t, "api-root", body(serve(t, outer, http.MethodGet, "/api")))
	assert.Equal(t, "api-root", body(serve(t, outer, http.MethodGet, "/api/")))
}

func TestRouter_MatchedHandlerGetsOriginalNext(t *testing.T) {
	r := New()
	r.Get("/passthrough", pipeline.HandlerFunc(func(req *envelope.Request, next pipeline.Next) (*envelope.Request, error) {
		return next.Run(req)
	}))

	out := serve(t, r, http.MethodGet, "/passthrough")

	assert.Equal(t, "next", body(out))
	_, ok := CapturesOf(out)
	assert.True(t, ok)
}

func TestRouter_Any(t *testing.T) {
	r := New()
	r.Any("/ping", answer("pong"))

	for _, method := range StandardMethods {
		t.Run(method, func(t *testing.T) {
			assert.Equal(t, "pong", body(serve(t, r, method, "/ping")))
		})
	}
	assert.Len(t, r.Routes(), len(StandardMethods))
}

func TestRouter_Routes(t *testing.T) {
	r := New()
	r.Get("/a", answer("a"))
	r.Post("/b", answer("b"))

	assert.Equal(t, []Route{
		{Method: http.MethodGet, Pattern: "/a"},
		{Method: http.MethodPost, Pattern: "/b"},
	}, r.Routes())
}

func TestRouter_InvalidPatterns_Panic(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{name: "Route_EmptyParamName", pattern: "/users/:"},
		{name: "Route_InvalidParamName", pattern: "/users/:user-id"},
		{name: "Route_WildcardNotLast", pattern: "/files/*/meta"},
		{name: "Route_DuplicateParam", pattern: "/a/:id/b/:id"},
		{name: "Route_MixedSegment", pattern: "/files/name:id"},
		{name: "Route_MixedWildcard", pattern: "/files/a*"},
		{name: "Route_EmptySegment", pattern: "/a//b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := recoverCode(t, func() {
				New().Get(tt.pattern, answer("x"))
			})
			assert.Equal(t, dawnerrors.ErrCodeInvalidPattern, code)
		})
	}
}

func TestRouter_Conflicts_Panic(t *testing.T) {
	tests := []struct {
		name   string
		first  string
		second string
	}{
		{name: "Route_SameStatic", first: "/a", second: "/a/"},
		{name: "Route_SameShapeParams", first: "/a/:x", second: "/a/:y"},
		{name: "Route_SameWildcard", first: "/a/*", second: "/a/*rest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			r.Get(tt.first, answer("first"))

			code := recoverCode(t, func() {
				r.Get(tt.second, answer("second"))
			})
			assert.Equal(t, dawnerrors.ErrCodeRouteConflict, code)
		})
	}
}

func TestRouter_SamePatternDifferentMethods(t *testing.T) {
	r := New()
	assert.NotPanics(t, func() {
		r.Get("/a/:x", answer("get"))
		r.Post("/a/:x", answer("post"))
	})
}

func recoverCode(t *testing.T, fn func()) (code dawnerrors.ErrorCode) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected panic")
		err, ok := r.(error)
		require.True(t, ok)
		code, _ = dawnerrors.CodeOf(err)
	}()
	fn()
	return 0
}
