// Package auth orchestrates login, logout, and request-time
// authorization for the panel: allowlist check, rate limiting, password
// verification, session issue, and CSRF validation, with audit events
// emitted along the way.
package auth

import (
	"context"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"unitdeck/internal/audit"
	"unitdeck/internal/ipallow"
	"unitdeck/internal/rate"
	"unitdeck/internal/session"
	"unitdeck/internal/signer"
)

// Config holds the manager's fixed configuration.
type Config struct {
	// PasswordHash is the operator's bcrypt hash (cost 12 in
	// production). Empty means the panel is not configured yet.
	PasswordHash string
	// Allowlist restricts source addresses. Nil or empty allows all.
	Allowlist *ipallow.List
}

// Manager is the single entry point for every authorization decision.
// All checks fail closed: missing cookies, malformed signatures, and
// unknown addresses are "not authorized", never "authorized by default".
type Manager struct {
	cfg      Config
	sessions *session.Store
	limiter  *rate.Limiter
	signer   *signer.Signer
	audit    *audit.Dispatcher
}

// NewManager wires the manager to its collaborators. dispatcher may be
// nil to disable auditing.
func NewManager(cfg Config, sessions *session.Store, limiter *rate.Limiter, sig *signer.Signer, dispatcher *audit.Dispatcher) *Manager {
	return &Manager{
		cfg:      cfg,
		sessions: sessions,
		limiter:  limiter,
		signer:   sig,
		audit:    dispatcher,
	}
}

// Login runs the full login state machine for addr. Check order is
// fixed: allowlist, rate limit, configuration, then the password hash —
// an early failure skips the expensive bcrypt comparison entirely and,
// for allowlist rejections, leaves no rate-limit bookkeeping behind.
func (m *Manager) Login(ctx context.Context, addr, password string) (session.Session, error) {
	if !m.cfg.Allowlist.Allowed(addr) {
		m.emit(ctx, audit.Event{Type: audit.EventBlockedIP, Addr: addr})
		return session.Session{}, denied()
	}

	res := m.limiter.Check(addr)
	if !res.Allowed {
		m.emit(ctx, audit.Event{Type: audit.EventRateLimited, Addr: addr})
		return session.Session{}, &Error{
			Kind:       ErrRateLimited,
			Status:     http.StatusTooManyRequests,
			RetryAfter: res.RetryAfter,
		}
	}

	if m.cfg.PasswordHash == "" {
		return session.Session{}, &Error{Kind: ErrNotConfigured, Status: http.StatusInternalServerError}
	}

	// bcrypt runs outside any shared lock; it is deliberately slow and
	// must not serialize unrelated requests.
	if err := bcrypt.CompareHashAndPassword([]byte(m.cfg.PasswordHash), []byte(password)); err != nil {
		m.limiter.RecordFailure(addr)
		after := m.limiter.Check(addr)
		m.emit(ctx, audit.Event{Type: audit.EventLoginFailed, Addr: addr})
		return session.Session{}, &Error{
			Kind:      ErrInvalidPassword,
			Status:    http.StatusUnauthorized,
			Remaining: after.Remaining,
		}
	}

	m.limiter.Clear(addr)
	sess, err := m.sessions.Issue(addr)
	if err != nil {
		return session.Session{}, err
	}
	m.emit(ctx, audit.Event{Type: audit.EventLoginSuccess, Addr: addr})
	return sess, nil
}

// SignSessionID produces the tamper-evident cookie value for a session
// identifier.
func (m *Manager) SignSessionID(id string) string {
	return m.signer.Sign(id)
}

// RequireAuth authorizes a request: the address must pass the
// allowlist and signedID must verify and match the live, unexpired
// session. Every failure mode is the same 401; callers cannot probe
// which check rejected them. On success the session's login IP is
// returned for audit use.
func (m *Manager) RequireAuth(addr, signedID string) (string, error) {
	if !m.cfg.Allowlist.Allowed(addr) {
		return "", unauthorized()
	}
	id, ok := m.signer.Verify(signedID)
	if !ok {
		return "", unauthorized()
	}
	ip, ok := m.sessions.Validate(id)
	if !ok {
		return "", unauthorized()
	}
	return ip, nil
}

// RequireCSRF validates the double-submit token from the request
// header against the live session. Called by every mutating operation,
// always after RequireAuth.
func (m *Manager) RequireCSRF(token string) error {
	if !m.sessions.ValidateCSRF(token) {
		return &Error{Kind: ErrCSRF, Status: http.StatusForbidden}
	}
	return nil
}

// Logout invalidates the live session. Idempotent: logging out with no
// active session is not an error.
func (m *Manager) Logout(ctx context.Context, addr string) {
	m.sessions.Invalidate()
	m.emit(ctx, audit.Event{Type: audit.EventLogout, Addr: addr})
}

// VerifyPassword re-checks the operator password against the
// configured hash. Used as a step-up gate for destructive actions even
// when the caller already holds a valid session.
func (m *Manager) VerifyPassword(password string) error {
	if m.cfg.PasswordHash == "" {
		return &Error{Kind: ErrNotConfigured, Status: http.StatusInternalServerError}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.cfg.PasswordHash), []byte(password)); err != nil {
		return &Error{Kind: ErrInvalidPassword, Status: http.StatusUnauthorized}
	}
	return nil
}

func (m *Manager) emit(ctx context.Context, event audit.Event) {
	m.audit.Emit(ctx, event)
}
