package envelope

import (
	"errors"

	dawnerrors "github.com/albedosehen/dawn/internal/errors"
)

// RequestError bundles a failure with the request it occurred on.
type RequestError struct {
	Err error
	Req *Request
}

// NewRequestError wraps err with req. An err that already is a
// *RequestError is returned with its request replaced.
func NewRequestError(req *Request, err error) *RequestError {
	var re *RequestError
	if errors.As(err, &re) {
		return &RequestError{Err: re.Err, Req: req}
	}
	return &RequestError{Err: err, Req: req}
}

func (e *RequestError) Error() string {
	if e.Err == nil {
		return "request failed"
	}
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Request returns the bundled request.
func (e *RequestError) Request() *Request {
	return e.Req
}

// Parts splits the error into its cause and request.
func (e *RequestError) Parts() (error, *Request) {
	return e.Err, e.Req
}

// HTTPStatus returns the status carried by a coded cause, or 500.
func (e *RequestError) HTTPStatus() int {
	return dawnerrors.StatusOf(e.Err)
}

// SplitError extracts the request bundled in err, if any.
func SplitError(err error) (*Request, bool) {
	var re *RequestError
	if errors.As(err, &re) && re.Req != nil {
		return re.Req, true
	}
	return nil, false
}
