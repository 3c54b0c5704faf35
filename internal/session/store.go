// Package session holds the panel's single login session. The panel is
// single-operator: at most one session exists process-wide, and issuing
// a new one unconditionally discards the previous one.
package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"sync"
	"time"
)

const tokenSize = 32

// Session is the live login. ID and CSRFToken are independent
// unguessable tokens generated at login.
type Session struct {
	ID           string
	CSRFToken    string
	CreatedAt    time.Time
	LastActivity time.Time
	IP           string
}

// Store owns the single session slot. Expiry is fixed-lifetime: the
// deadline is CreatedAt plus the configured lifetime, and LastActivity
// is an informational marker that never extends it.
type Store struct {
	mu       sync.Mutex
	current  *Session
	lifetime time.Duration

	now func() time.Time
}

// NewStore creates an empty Store with the given absolute lifetime.
func NewStore(lifetime time.Duration) *Store {
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &Store{
		lifetime: lifetime,
		now:      time.Now,
	}
}

// Issue creates a new session for ip, replacing whatever session
// existed. It returns a copy of the stored session.
func (s *Store) Issue(ip string) (Session, error) {
	id, err := newToken()
	if err != nil {
		return Session{}, err
	}
	csrf, err := newToken()
	if err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.current = &Session{
		ID:           id,
		CSRFToken:    csrf,
		CreatedAt:    now,
		LastActivity: now,
		IP:           ip,
	}
	return *s.current, nil
}

// Validate checks a presented session identifier against the live
// session. It fails when no session exists, when the identifier does
// not match, or when the absolute lifetime has elapsed; in the last
// case the session is also cleared. A well-formed identifier from a
// discarded session fails exactly like no session at all.
//
// On success the session's recorded IP is returned and LastActivity is
// updated.
func (s *Store) Validate(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || id == "" {
		return "", false
	}
	if subtle.ConstantTimeCompare([]byte(id), []byte(s.current.ID)) != 1 {
		return "", false
	}

	now := s.now()
	if now.Sub(s.current.CreatedAt) > s.lifetime {
		s.current = nil
		return "", false
	}

	s.current.LastActivity = now
	return s.current.IP, true
}

// ValidateCSRF reports whether token exactly matches the live session's
// CSRF token. False when no session exists or token is empty.
func (s *Store) ValidateCSRF(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.current.CSRFToken)) == 1
}

// Invalidate clears the live session. Idempotent.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

func newToken() (string, error) {
	var raw [tokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}
