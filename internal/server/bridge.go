package server

import (
	"net/http"

	"github.com/albedosehen/dawn/internal/envelope"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
)

type pipelineHandler struct {
	root   pipeline.Handler
	logger observability.Logger
}

// NewHTTPHandler adapts a pipeline to net/http. The pipeline runs with the
// identity continuation. An error becomes 500 with the error text and a
// pipeline that produced no response answers 404.
func NewHTTPHandler(h pipeline.Handler, logger observability.Logger) http.Handler {
	return &pipelineHandler{
		root:   h,
		logger: logger.WithFields(observability.Component("transport")),
	}
}

func (p *pipelineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	out, err := pipeline.Execute(p.root, envelope.NewRequest(r))
	if err != nil {
		p.logger.Error(r.Context(), err, "Unhandled pipeline error",
			observability.Method(r.Method),
			observability.Path(r.URL.Path),
		)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var res *envelope.Response
	if out != nil {
		res = out.TakeResponse()
	}
	if res == nil {
		res = envelope.NewResponse().WithStatus(http.StatusNotFound)
	}

	if err := res.Write(w); err != nil {
		p.logger.Warn(r.Context(), "Failed to write response",
			observability.Path(r.URL.Path),
			observability.Error(err),
		)
	}
}
