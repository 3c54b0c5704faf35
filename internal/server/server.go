// Package server wires the auth manager, service inventory, and audit
// dispatcher into the panel's HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"unitdeck/internal/audit"
	"unitdeck/internal/auth"
	"unitdeck/internal/sysinfo"
	"unitdeck/internal/systemd"
)

// Cookie and header names are the wire contract with the frontend.
const (
	SessionCookie = "ud_session"
	CSRFCookie    = "ud_csrf"
	CSRFHeader    = "X-CSRF-Token"
)

// Inventory is the service-inventory capability the handlers call.
// Satisfied by *systemd.Inventory.
type Inventory interface {
	Units() ([]systemd.Unit, error)
	Status(ctx context.Context, name string) (systemd.Status, error)
	Start(ctx context.Context, name string) error
	Stop(ctx context.Context, name string) error
	Restart(ctx context.Context, name string) error
	Logs(ctx context.Context, name string, lines int) (string, error)
	ReadEnv(name string) (string, error)
	WriteEnv(name, content string) error
}

// AuditReader exposes the persisted audit trail for the panel's audit
// page. Satisfied by *audit.StoreSink; nil disables the endpoint.
type AuditReader interface {
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
}

// Config holds server settings.
type Config struct {
	// SecureCookies marks cookies Secure (release mode).
	SecureCookies bool
	// SessionLifetime sets cookie Max-Age to match the session store.
	SessionLifetime time.Duration
}

// Server owns the HTTP surface of the panel.
type Server struct {
	cfg   Config
	auth  *auth.Manager
	inv   Inventory
	sys   *sysinfo.Collector
	audit *audit.Dispatcher
	trail AuditReader
}

// New assembles a Server. dispatcher and trail may be nil.
func New(cfg Config, mgr *auth.Manager, inv Inventory, sys *sysinfo.Collector, dispatcher *audit.Dispatcher, trail AuditReader) *Server {
	if cfg.SessionLifetime <= 0 {
		cfg.SessionLifetime = 24 * time.Hour
	}
	return &Server{
		cfg:   cfg,
		auth:  mgr,
		inv:   inv,
		sys:   sys,
		audit: dispatcher,
		trail: trail,
	}
}

// Router builds the gin engine with all routes and guards attached.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.POST("/login", s.handleLogin)

	authed := api.Group("", s.requireAuth())
	authed.POST("/logout", s.handleLogout)
	authed.GET("/services", s.handleListServices)
	authed.GET("/services/:name/logs", s.handleServiceLogs)
	authed.GET("/services/:name/env", s.handleReadEnv)
	authed.GET("/system", s.handleSystem)
	authed.GET("/audit", s.handleAuditTrail)

	// State-changing routes additionally require the CSRF header.
	mutating := authed.Group("", s.requireCSRF())
	mutating.POST("/services/:name/start", s.handleServiceAction("start"))
	mutating.POST("/services/:name/stop", s.handleServiceAction("stop"))
	mutating.POST("/services/:name/restart", s.handleServiceAction("restart"))
	mutating.PUT("/services/:name/env", s.handleWriteEnv)

	return r
}

// writeAuthError maps an auth failure onto the response. Anything that
// is not an *auth.Error is an internal error and stays opaque.
func writeAuthError(c *gin.Context, err error) {
	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	body := gin.H{"error": authErr.Error()}
	if authErr.RetryAfter > 0 {
		body["retry_after_ms"] = authErr.RetryAfter.Milliseconds()
	}
	if errors.Is(authErr, auth.ErrInvalidPassword) {
		body["remaining"] = authErr.Remaining
	}
	c.AbortWithStatusJSON(authErr.Status, body)
}

func (s *Server) setSessionCookies(c *gin.Context, signedID, csrfToken string) {
	maxAge := int(s.cfg.SessionLifetime / time.Second)
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     SessionCookie,
		Value:    signedID,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	// Deliberately script-readable: the frontend echoes it back in the
	// CSRF header (double-submit).
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CSRFCookie,
		Value:    csrfToken,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearSessionCookies(c *gin.Context) {
	for _, name := range []string{SessionCookie, CSRFCookie} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Secure:   s.cfg.SecureCookies,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
