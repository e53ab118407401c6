package envelope

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

const (
	contentTypeHeader = "Content-Type"
	contentTypeText   = "text/plain; charset=utf-8"
	contentTypeJSON   = "application/json"
)

// Response is the answer a handler attaches to a Request.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewResponse returns an empty 200 response.
func NewResponse() *Response {
	return &Response{
		Status: http.StatusOK,
		Header: make(http.Header),
	}
}

// Text returns a plain-text response.
func Text(status int, body string) *Response {
	return NewResponse().
		WithStatus(status).
		WithHeader(contentTypeHeader, contentTypeText).
		WithBody([]byte(body))
}

// JSON returns a response with v encoded as the JSON body.
func JSON(status int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response body: %w", err)
	}

	return NewResponse().
		WithStatus(status).
		WithHeader(contentTypeHeader, contentTypeJSON).
		WithBody(body), nil
}

func (r *Response) WithStatus(status int) *Response {
	r.Status = status
	return r
}

func (r *Response) WithHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
	return r
}

func (r *Response) WithBody(body []byte) *Response {
	r.Body = body
	return r
}

// StatusCode returns the response status, defaulting to 200.
func (r *Response) StatusCode() int {
	if r.Status == 0 {
		return http.StatusOK
	}
	return r.Status
}

// IsClientError reports a 4xx status.
func (r *Response) IsClientError() bool {
	s := r.StatusCode()
	return s >= 400 && s < 500
}

// IsServerError reports a 5xx status.
func (r *Response) IsServerError() bool {
	return r.StatusCode() >= 500
}

// Write copies the response onto w.
func (r *Response) Write(w http.ResponseWriter) error {
	header := w.Header()
	for key, values := range r.Header {
		header[key] = append([]string(nil), values...)
	}
	if len(r.Body) > 0 && header.Get("Content-Length") == "" {
		header.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}

	w.WriteHeader(r.StatusCode())

	if len(r.Body) == 0 {
		return nil
	}
	if _, err := w.Write(r.Body); err != nil {
		return fmt.Errorf("write response body: %w", err)
	}
	return nil
}
