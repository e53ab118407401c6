// Package envelope provides the request and response values threaded through
// a handler pipeline.
//
// A *Request is exclusively owned by whichever stage currently holds it. A
// stage that passes it to the rest of the pipeline must not use it again
// until it is handed back.
package envelope

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// Request wraps an inbound HTTP request together with its extensions and the
// response attached by the pipeline so far.
type Request struct {
	inner *http.Request
	ext   Extensions
	res   *Response
}

// NewRequest wraps r in a fresh envelope with no extensions and no response.
func NewRequest(r *http.Request) *Request {
	return &Request{inner: r}
}

// HTTP returns the wrapped *http.Request.
func (r *Request) HTTP() *http.Request {
	return r.inner
}

func (r *Request) Method() string {
	return r.inner.Method
}

func (r *Request) URL() *url.URL {
	return r.inner.URL
}

// Path returns the decoded request path.
func (r *Request) Path() string {
	return r.inner.URL.Path
}

func (r *Request) Header() http.Header {
	return r.inner.Header
}

func (r *Request) Body() io.ReadCloser {
	return r.inner.Body
}

// SetBody replaces the request body.
func (r *Request) SetBody(body io.ReadCloser) {
	r.inner.Body = body
}

func (r *Request) RemoteAddr() string {
	return r.inner.RemoteAddr
}

func (r *Request) Context() context.Context {
	return r.inner.Context()
}

// WithContext replaces the request context in place and returns r.
func (r *Request) WithContext(ctx context.Context) *Request {
	r.inner = r.inner.WithContext(ctx)
	return r
}

// Extensions returns the request's extension store.
func (r *Request) Extensions() *Extensions {
	return &r.ext
}

// Response returns the attached response, or nil.
func (r *Request) Response() *Response {
	return r.res
}

// SetResponse attaches res, replacing any previous response, and returns it.
func (r *Request) SetResponse(res *Response) *Response {
	r.res = res
	return res
}

// TakeResponse detaches and returns the attached response.
func (r *Request) TakeResponse() *Response {
	res := r.res
	r.res = nil
	return res
}

// Respond returns the attached response, attaching an empty 200 response
// first if there is none.
func (r *Request) Respond() *Response {
	if r.res == nil {
		r.res = NewResponse()
	}
	return r.res
}

// Fail bundles r with err so that handlers further up the pipeline can still
// inspect the request. It is meant to be returned directly:
//
//	return req.Fail(err)
func (r *Request) Fail(err error) (*Request, error) {
	return nil, NewRequestError(r, err)
}

// Ext returns the extension value of type T stored on req.
func Ext[T any](req *Request) (T, bool) {
	return Get[T](&req.ext)
}

// SetExt stores v as the extension value of type T on req and returns the
// value it replaced, if any.
func SetExt[T any](req *Request, v T) (T, bool) {
	return Set(&req.ext, v)
}

// TakeExt removes and returns the extension value of type T stored on req.
func TakeExt[T any](req *Request) (T, bool) {
	return Take[T](&req.ext)
}
