package httpserver

import (
	"net"
	"net/http"
	"strings"

	"github.com/mzyun/novelgate/internal/token"
)

// tokenFromRequest extracts the bearer token from the Authorization header or
// the `t` query parameter.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	return r.URL.Query().Get("t")
}

// requireClaims verifies the request token against a required permission set.
func (s *Server) requireClaims(r *http.Request, required ...string) (token.Claims, error) {
	return token.Verify(s.codec, tokenFromRequest(r), required)
}

// clientIP resolves the client address behind the usual proxy header.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
