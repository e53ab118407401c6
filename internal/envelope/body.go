package envelope

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	dawnerrors "github.com/albedosehen/dawn/internal/errors"
)

// DefaultBodyLimit caps how much of a request body ReadBody will buffer.
const DefaultBodyLimit = 4 << 20

// ReadBody buffers the request body up to DefaultBodyLimit bytes and leaves
// an equivalent reader in its place.
func ReadBody(req *Request) ([]byte, error) {
	body := req.Body()
	if body == nil || body == http.NoBody {
		return nil, nil
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, DefaultBodyLimit+1))
	if err != nil {
		return nil, dawnerrors.Wrap(dawnerrors.ErrCodeBodyInvalid, "failed to read request body", err)
	}
	if len(data) > DefaultBodyLimit {
		return nil, dawnerrors.New(dawnerrors.ErrCodeBodyInvalid, "request body too large").
			WithContext("limit", DefaultBodyLimit)
	}

	req.SetBody(io.NopCloser(bytes.NewReader(data)))
	return data, nil
}

// DecodeJSON decodes the request body into a value of type T.
func DecodeJSON[T any](req *Request) (T, error) {
	var v T

	data, err := ReadBody(req)
	if err != nil {
		return v, err
	}
	if len(data) == 0 {
		return v, dawnerrors.New(dawnerrors.ErrCodeBodyInvalid, "request body is empty")
	}

	if err := json.Unmarshal(data, &v); err != nil {
		return v, dawnerrors.Wrap(dawnerrors.ErrCodeBodyInvalid, "invalid JSON body", err)
	}
	return v, nil
}
