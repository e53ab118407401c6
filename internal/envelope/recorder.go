package envelope

import (
	"bytes"
	"net/http"
)

// Recorder is an http.ResponseWriter that captures what a net/http handler
// writes so it can be attached to a Request as a Response.
type Recorder struct {
	header      http.Header
	status      int
	body        bytes.Buffer
	wroteHeader bool
}

func NewRecorder() *Recorder {
	return &Recorder{header: make(http.Header)}
}

func (r *Recorder) Header() http.Header {
	return r.header
}

func (r *Recorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
}

func (r *Recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.body.Write(b)
}

// Written reports whether the handler produced any output.
func (r *Recorder) Written() bool {
	return r.wroteHeader
}

// Response converts the captured output into a Response.
func (r *Recorder) Response() *Response {
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	return &Response{
		Status: status,
		Header: r.header.Clone(),
		Body:   bytes.Clone(r.body.Bytes()),
	}
}
