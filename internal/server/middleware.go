package server

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const addrContextKey = "unitdeck.addr"

// clientAddr resolves the caller's address: the reverse proxy's
// forwarded header when present, else the direct peer, else a literal
// "unknown". The result feeds the allowlist and audit trail, never
// anything that trusts it beyond that.
func clientAddr(c *gin.Context) string {
	if fwd := c.Request.Header.Get("X-Forwarded-For"); fwd != "" {
		first := fwd
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			first = fwd[:i]
		}
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if c.Request.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
			return host
		}
		return c.Request.RemoteAddr
	}
	return "unknown"
}

// requireAuth guards every protected route: allowlist plus session
// validation, with a 401 and cleared cookies on any failure.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		addr := clientAddr(c)
		signed, _ := c.Cookie(SessionCookie)

		if _, err := s.auth.RequireAuth(addr, signed); err != nil {
			s.clearSessionCookies(c)
			writeAuthError(c, err)
			return
		}

		c.Set(addrContextKey, addr)
		c.Next()
	}
}

// requireCSRF guards mutating routes with the double-submit header
// check. Runs after requireAuth.
func (s *Server) requireCSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.auth.RequireCSRF(c.GetHeader(CSRFHeader)); err != nil {
			writeAuthError(c, err)
			return
		}
		c.Next()
	}
}

// requestAddr returns the address requireAuth resolved for this
// request.
func requestAddr(c *gin.Context) string {
	if addr, ok := c.Get(addrContextKey); ok {
		if s, ok := addr.(string); ok {
			return s
		}
	}
	return clientAddr(c)
}
