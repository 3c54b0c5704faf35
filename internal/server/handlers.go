package server

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"unitdeck/internal/audit"
	"unitdeck/internal/systemd"
)

type loginRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess, err := s.auth.Login(c.Request.Context(), clientAddr(c), req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	s.setSessionCookies(c, s.auth.SignSessionID(sess.ID), sess.CSRFToken)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.auth.Logout(c.Request.Context(), requestAddr(c))
	s.clearSessionCookies(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type serviceView struct {
	systemd.Unit
	Status systemd.Status `json:"status"`
}

func (s *Server) handleListServices(c *gin.Context) {
	units, err := s.inv.Units()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "service discovery failed"})
		return
	}

	views := make([]serviceView, 0, len(units))
	for _, u := range units {
		view := serviceView{Unit: u}
		// Status is best-effort per unit; one broken unit must not
		// empty the whole listing.
		st, err := s.inv.Status(c.Request.Context(), u.Name)
		if err != nil {
			log.Printf("server: status of %s: %v", u.Name, err)
		} else {
			view.Status = st
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, gin.H{"services": views})
}

func (s *Server) handleServiceAction(verb string) gin.HandlerFunc {
	actions := map[string]struct {
		run   func(*gin.Context, string) error
		event string
	}{
		"start":   {func(c *gin.Context, n string) error { return s.inv.Start(c.Request.Context(), n) }, audit.EventServiceStart},
		"stop":    {func(c *gin.Context, n string) error { return s.inv.Stop(c.Request.Context(), n) }, audit.EventServiceStop},
		"restart": {func(c *gin.Context, n string) error { return s.inv.Restart(c.Request.Context(), n) }, audit.EventServiceRestart},
	}
	action := actions[verb]

	return func(c *gin.Context) {
		name := c.Param("name")
		if err := action.run(c, name); err != nil {
			writeServiceError(c, err)
			return
		}
		s.audit.Emit(c.Request.Context(), audit.Event{
			Type:   action.event,
			Addr:   requestAddr(c),
			Target: name,
		})
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

func (s *Server) handleServiceLogs(c *gin.Context) {
	lines, _ := strconv.Atoi(c.DefaultQuery("lines", "200"))
	out, err := s.inv.Logs(c.Request.Context(), c.Param("name"), lines)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": out})
}

func (s *Server) handleReadEnv(c *gin.Context) {
	content, err := s.inv.ReadEnv(c.Param("name"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content})
}

type writeEnvRequest struct {
	// Password re-verifies the operator before a destructive save,
	// even with a valid session (step-up check).
	Password string `json:"password"`
	Content  string `json:"content"`
}

func (s *Server) handleWriteEnv(c *gin.Context) {
	var req writeEnvRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := s.auth.VerifyPassword(req.Password); err != nil {
		writeAuthError(c, err)
		return
	}

	name := c.Param("name")
	if err := s.inv.WriteEnv(name, req.Content); err != nil {
		writeServiceError(c, err)
		return
	}
	s.audit.Emit(c.Request.Context(), audit.Event{
		Type:   audit.EventEnvSaved,
		Addr:   requestAddr(c),
		Target: name,
	})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleSystem(c *gin.Context) {
	c.JSON(http.StatusOK, s.sys.Read())
}

func (s *Server) handleAuditTrail(c *gin.Context) {
	if s.trail == nil {
		c.JSON(http.StatusOK, gin.H{"events": []audit.Event{}})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	events, err := s.trail.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "audit trail unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, systemd.ErrUnknownUnit):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown service"})
	case errors.Is(err, systemd.ErrNoEnvFile):
		c.JSON(http.StatusNotFound, gin.H{"error": "service has no environment file"})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
