// Package pipeline implements the continuation-passing handler abstraction and
// the ways handlers are composed into a request pipeline.
//
// A Handler receives the request together with Next, the rest of the
// pipeline. It may answer on its own by not calling Next, or call Next
// exactly once and inspect or modify what comes back. Calling Next more than
// once is undefined.
package pipeline

import (
	"fmt"
	"net/http"

	"github.com/albedosehen/dawn/internal/envelope"
)

// Next is the remainder of a pipeline.
type Next interface {
	Run(req *envelope.Request) (*envelope.Request, error)
}

// Handler is one stage of a pipeline.
type Handler interface {
	Run(req *envelope.Request, next Next) (*envelope.Request, error)
}

// Named is implemented by handlers that report a stable name for logging.
type Named interface {
	Name() string
}

// NextFunc adapts a function to Next.
type NextFunc func(req *envelope.Request) (*envelope.Request, error)

func (f NextFunc) Run(req *envelope.Request) (*envelope.Request, error) {
	return f(req)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(req *envelope.Request, next Next) (*envelope.Request, error)

func (f HandlerFunc) Run(req *envelope.Request, next Next) (*envelope.Request, error) {
	return f(req, next)
}

// EndpointFunc is a Handler that always answers and never calls next.
type EndpointFunc func(req *envelope.Request) (*envelope.Request, error)

func (f EndpointFunc) Run(req *envelope.Request, _ Next) (*envelope.Request, error) {
	return f(req)
}

type identity struct{}

func (identity) Run(req *envelope.Request) (*envelope.Request, error) {
	return req, nil
}

// Identity is the empty continuation. It returns the request untouched.
var Identity Next = identity{}

// Execute runs h as a complete pipeline, terminated by Identity.
func Execute(h Handler, req *envelope.Request) (*envelope.Request, error) {
	return h.Run(req, Identity)
}

// Name returns h's name, falling back to its dynamic type.
func Name(h Handler) string {
	if n, ok := h.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}

type httpEndpoint struct {
	handler http.Handler
}

// HTTP adapts a net/http handler into an endpoint. Whatever the handler
// writes becomes the request's response.
func HTTP(h http.Handler) Handler {
	return httpEndpoint{handler: h}
}

func (e httpEndpoint) Run(req *envelope.Request, _ Next) (*envelope.Request, error) {
	rec := envelope.NewRecorder()
	e.handler.ServeHTTP(rec, req.HTTP())
	req.SetResponse(rec.Response())
	return req, nil
}

func (e httpEndpoint) Name() string {
	return fmt.Sprintf("http(%T)", e.handler)
}
