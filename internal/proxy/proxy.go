// Package proxy forwards requests to an upstream HTTP service.
package proxy

import (
	"context"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/albedosehen/dawn/internal/envelope"
	dawnerrors "github.com/albedosehen/dawn/internal/errors"
	"github.com/albedosehen/dawn/internal/observability"
	"github.com/albedosehen/dawn/internal/pipeline"
	"github.com/albedosehen/dawn/internal/router"
)

const (
	// HeaderRequestID is forwarded so upstream logs correlate with ours.
	HeaderRequestID = "X-Request-ID"

	// HeaderForwardedBy names this proxy to the upstream.
	HeaderForwardedBy = "X-Forwarded-By"
)

type Option func(*endpoint)

// WithTransport replaces the upstream round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(e *endpoint) {
		e.transport = rt
	}
}

// WithTimeout bounds each upstream exchange. Zero means no bound beyond the
// request's own context.
func WithTimeout(d time.Duration) Option {
	return func(e *endpoint) {
		e.timeout = d
	}
}

type endpoint struct {
	target    *url.URL
	transport http.RoundTripper
	timeout   time.Duration
	proxy     *httputil.ReverseProxy
	logger    observability.Logger
}

// upstreamErr carries a transport failure out of the reverse proxy's error
// handler for the current exchange.
type upstreamErr struct {
	err error
}

type upstreamErrKey struct{}

// New returns an endpoint forwarding requests to target. The upstream path is
// the target's path joined with the part of the request path routing has not
// consumed: the wildcard remainder under a Mount, or the full path when the
// endpoint is not behind a router.
func New(target *url.URL, logger observability.Logger, opts ...Option) pipeline.Handler {
	e := &endpoint{
		target: target,
		logger: logger.WithFields(observability.Component("proxy")),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.transport == nil {
		e.transport = newTransport(e.timeout)
	}

	e.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(e.target)
			pr.SetXForwarded()
			pr.Out.Header.Set(HeaderForwardedBy, "dawn")
			if id := observability.GetRequestID(pr.In.Context()); id != "" {
				pr.Out.Header.Set(HeaderRequestID, id)
			}
		},
		Transport: e.transport,
		ErrorHandler: func(_ http.ResponseWriter, r *http.Request, err error) {
			if holder, ok := r.Context().Value(upstreamErrKey{}).(*upstreamErr); ok {
				holder.err = err
			}
		},
	}

	return e
}

func (e *endpoint) Name() string {
	return "proxy(" + e.target.String() + ")"
}

func (e *endpoint) Run(req *envelope.Request, _ pipeline.Next) (*envelope.Request, error) {
	ctx := req.Context()
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	holder := &upstreamErr{}
	ctx = context.WithValue(ctx, upstreamErrKey{}, holder)

	out := req.HTTP().Clone(ctx)
	out.URL.Path = Remainder(req)
	out.URL.RawPath = ""

	e.logger.Debug(ctx, "Forwarding request upstream",
		observability.Method(req.Method()),
		observability.Path(req.Path()),
		observability.String("upstream", e.target.String()),
		observability.String("upstream_path", out.URL.Path),
	)

	rec := envelope.NewRecorder()
	e.proxy.ServeHTTP(rec, out)

	if holder.err != nil {
		e.logger.Error(ctx, holder.err, "Upstream request failed",
			observability.Method(req.Method()),
			observability.Path(req.Path()),
			observability.String("upstream", e.target.String()),
		)
		return req.Fail(dawnerrors.Wrap(dawnerrors.ErrCodeUpstream, "upstream request failed", holder.err).
			WithContext("upstream", e.target.String()))
	}

	req.SetResponse(rec.Response())
	return req, nil
}

// Remainder returns the part of req's path that routing has not consumed,
// always starting with "/".
func Remainder(req *envelope.Request) string {
	path := req.Path()
	offset, ok := router.MatchedOffset(req)
	if !ok || offset > len(path) {
		return "/" + strings.TrimPrefix(path, "/")
	}
	return "/" + strings.TrimPrefix(path[offset:], "/")
}

func newTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}
