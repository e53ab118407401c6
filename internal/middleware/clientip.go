package middleware

import (
	"net"
	"net/netip"
	"strings"

	"github.com/albedosehen/dawn/internal/envelope"
	dawnerrors "github.com/albedosehen/dawn/internal/errors"
)

// HTTP headers used for client IP extraction, in order of preference.
var clientIPHeaders = []string{
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Real-IP",
	"X-Forwarded-For",
	"X-Client-IP",
	"Forwarded",
}

// ClientIPResolver derives client addresses, honoring proxy headers only on
// connections from trusted proxies.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver parses the trusted proxy CIDRs. With none, proxy
// headers are never consulted.
func NewClientIPResolver(trustedProxies []string) (*ClientIPResolver, error) {
	r := &ClientIPResolver{trusted: make([]netip.Prefix, 0, len(trustedProxies))}
	for _, cidr := range trustedProxies {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			return nil, dawnerrors.NewConfigError(dawnerrors.ErrCodeConfigInvalid, "ratelimit.trusted_proxies", err)
		}
		r.trusted = append(r.trusted, prefix.Masked())
	}
	return r, nil
}

// ClientIP returns the originating client address of req. Proxy headers are
// used only when the peer is a trusted proxy and the header carries a public
// address; otherwise the connection's remote address is used.
func (r *ClientIPResolver) ClientIP(req *envelope.Request) string {
	peer := remoteHost(req.RemoteAddr())
	if !r.isTrusted(peer) {
		return peer
	}

	for _, header := range clientIPHeaders {
		if ip := publicIP(headerIP(req, header)); ip != "" {
			return ip
		}
	}
	return peer
}

func (r *ClientIPResolver) isTrusted(peer string) bool {
	if r == nil || len(r.trusted) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(peer)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range r.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the connection's remote address of req, ignoring proxy
// headers.
func ClientIP(req *envelope.Request) string {
	return remoteHost(req.RemoteAddr())
}

func headerIP(req *envelope.Request, header string) string {
	value := strings.TrimSpace(req.Header().Get(header))
	if value == "" {
		return ""
	}

	if header == "Forwarded" {
		return forwardedFor(value)
	}

	// The leftmost entry is the original client.
	if first, _, found := strings.Cut(value, ","); found {
		value = first
	}
	return strings.TrimSpace(value)
}

// forwardedFor extracts the for= parameter of an RFC 7239 Forwarded header.
func forwardedFor(value string) string {
	for part := range strings.SplitSeq(value, ";") {
		part = strings.TrimSpace(part)
		if len(part) < 4 || !strings.EqualFold(part[:4], "for=") {
			continue
		}
		v := strings.Trim(strings.TrimSpace(part[4:]), `"`)
		if host, _, err := net.SplitHostPort(v); err == nil {
			return host
		}
		return strings.Trim(v, "[]")
	}
	return ""
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// publicIP returns the normalized form of s, or "" when s is not a routable
// public address.
func publicIP(s string) string {
	ip := net.ParseIP(s)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
