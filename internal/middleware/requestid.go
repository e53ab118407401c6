package middleware

import (
	"github.com/google/uuid"

	"github.com/albedosehen/dawn/internal/envelope"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
)

// HeaderRequestID carries the request identifier in both directions.
const HeaderRequestID = "X-Request-ID"

const maxRequestIDLength = 128

type requestIDHandler struct {
	header   string
	generate func() string
}

// NewRequestID returns a handler that reuses the client's X-Request-ID or
// assigns a fresh UUID, exposes it to later stages and echoes it on the
// response.
func NewRequestID() pipeline.Handler {
	return &requestIDHandler{
		header:   HeaderRequestID,
		generate: uuid.NewString,
	}
}

func (m *requestIDHandler) Name() string {
	return "request_id"
}

func (m *requestIDHandler) Run(req *envelope.Request, next pipeline.Next) (*envelope.Request, error) {
	id := req.Header().Get(m.header)
	if id == "" || len(id) > maxRequestIDLength {
		id = m.generate()
	}

	envelope.SetExt(req, RequestID(id))
	req.WithContext(observability.WithRequestID(req.Context(), id))

	out, err := next.Run(req)
	if err != nil {
		return out, err
	}

	if res := out.Response(); res != nil {
		res.WithHeader(m.header, id)
	}
	return out, nil
}
