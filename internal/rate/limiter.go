// Package rate throttles login attempts per source address using a
// fixed attempt window with an escalating hard lockout on top.
package rate

import (
	"sync"
	"time"
)

// Config holds rate limiter tuning parameters. The zero value is filled
// in with the defaults below.
type Config struct {
	// MaxAttempts is the soft budget of failed attempts per window.
	MaxAttempts int
	// Window is the span of the attempt-counting window.
	Window time.Duration
	// LockoutThreshold is the failure count that triggers a hard
	// lockout. It is strictly greater than MaxAttempts.
	LockoutThreshold int
	// LockoutDuration is how long a triggered lockout lasts.
	LockoutDuration time.Duration
	// SweepInterval is how often stale entries are reclaimed.
	SweepInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.Window <= 0 {
		c.Window = 15 * time.Minute
	}
	if c.LockoutThreshold <= c.MaxAttempts {
		c.LockoutThreshold = 2 * c.MaxAttempts
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = 30 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 5 * time.Minute
	}
	return c
}

// Result is the outcome of a Check call.
type Result struct {
	// Allowed reports whether another attempt may proceed.
	Allowed bool
	// Remaining is the number of attempts left in the current window.
	Remaining int
	// RetryAfter is how long a locked-out caller must wait. Zero when
	// not locked.
	RetryAfter time.Duration
}

type entry struct {
	attempts     int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// Limiter tracks failed login attempts per source address. The window
// and the lockout run on independent clocks: a lockout outlives window
// expiry until lockedUntil passes.
//
// All methods are safe for concurrent use. The background sweep is pure
// housekeeping; Check and RecordFailure are correct even if it never runs.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	config  Config

	now func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Limiter and starts its reclamation sweep. Call Close to
// stop the sweep.
func New(cfg Config) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		config:  cfg.withDefaults(),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.run()
	return l
}

// Check reports whether addr may attempt a login. It never mutates the
// table.
func (l *Limiter) Check(addr string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[addr]
	if !ok {
		return Result{Allowed: true, Remaining: l.config.MaxAttempts}
	}
	if now.Before(e.lockedUntil) {
		return Result{RetryAfter: e.lockedUntil.Sub(now)}
	}
	if now.Sub(e.firstAttempt) > l.config.Window {
		// Window elapsed with no active lockout: fresh budget.
		return Result{Allowed: true, Remaining: l.config.MaxAttempts}
	}
	remaining := l.config.MaxAttempts - e.attempts
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: remaining > 0, Remaining: remaining}
}

// RecordFailure counts a failed attempt for addr. Reaching the lockout
// threshold sets the lockout deadline.
func (l *Limiter) RecordFailure(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[addr]
	if !ok || (now.Sub(e.firstAttempt) > l.config.Window && !now.Before(e.lockedUntil)) {
		l.entries[addr] = &entry{attempts: 1, firstAttempt: now}
		return
	}

	e.attempts++
	if e.attempts >= l.config.LockoutThreshold {
		e.lockedUntil = now.Add(l.config.LockoutDuration)
	}
}

// Clear removes the entry for addr. Called after a successful login.
func (l *Limiter) Clear(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, addr)
}

// Close stops the background sweep. Idempotent.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

func (l *Limiter) run() {
	ticker := time.NewTicker(l.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.prune()
		case <-l.stop:
			return
		}
	}
}

// prune removes entries whose window has elapsed and whose lockout, if
// any, has also passed.
func (l *Limiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for addr, e := range l.entries {
		if now.Sub(e.firstAttempt) > l.config.Window && !now.Before(e.lockedUntil) {
			delete(l.entries, addr)
		}
	}
}
