package session

import (
	"testing"
	"time"
)

func testStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(24 * time.Hour)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestIssueAndValidate(t *testing.T) {
	s, _ := testStore(t)

	sess, err := s.Issue("10.0.0.5")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if sess.ID == "" || sess.CSRFToken == "" {
		t.Fatal("Issue returned empty tokens")
	}
	if sess.ID == sess.CSRFToken {
		t.Fatal("session id and CSRF token must be independent")
	}

	ip, ok := s.Validate(sess.ID)
	if !ok {
		t.Fatal("Validate rejected the live session")
	}
	if ip != "10.0.0.5" {
		t.Fatalf("Validate ip = %q, want 10.0.0.5", ip)
	}
}

func TestValidateWithNoSession(t *testing.T) {
	s, _ := testStore(t)

	if _, ok := s.Validate("anything"); ok {
		t.Fatal("Validate accepted with no session")
	}
	if _, ok := s.Validate(""); ok {
		t.Fatal("Validate accepted empty id")
	}
}

func TestValidateRejectsMismatch(t *testing.T) {
	s, _ := testStore(t)

	if _, err := s.Issue("10.0.0.5"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, ok := s.Validate("not-the-id"); ok {
		t.Fatal("Validate accepted a foreign id")
	}
}

func TestFixedLifetimeBoundary(t *testing.T) {
	s, now := testStore(t)

	sess, err := s.Issue("10.0.0.5")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	*now = sess.CreatedAt.Add(24*time.Hour - time.Millisecond)
	if _, ok := s.Validate(sess.ID); !ok {
		t.Fatal("session invalid 1ms before the deadline")
	}

	*now = sess.CreatedAt.Add(24*time.Hour + time.Millisecond)
	if _, ok := s.Validate(sess.ID); ok {
		t.Fatal("session valid 1ms after the deadline")
	}

	// Expiry clears the slot: the id now fails like any unknown id.
	*now = sess.CreatedAt
	if _, ok := s.Validate(sess.ID); ok {
		t.Fatal("expired session was not cleared")
	}
}

func TestLastActivityDoesNotExtendExpiry(t *testing.T) {
	s, now := testStore(t)

	sess, err := s.Issue("10.0.0.5")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Keep the session busy right up to the deadline.
	for i := 1; i <= 23; i++ {
		*now = sess.CreatedAt.Add(time.Duration(i) * time.Hour)
		if _, ok := s.Validate(sess.ID); !ok {
			t.Fatalf("session invalid at hour %d", i)
		}
	}

	*now = sess.CreatedAt.Add(24*time.Hour + time.Second)
	if _, ok := s.Validate(sess.ID); ok {
		t.Fatal("activity must not extend the absolute lifetime")
	}
}

func TestSecondLoginInvalidatesFirst(t *testing.T) {
	s, _ := testStore(t)

	first, err := s.Issue("10.0.0.5")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	second, err := s.Issue("10.0.0.6")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, ok := s.Validate(first.ID); ok {
		t.Fatal("first session still valid after second login")
	}
	ip, ok := s.Validate(second.ID)
	if !ok {
		t.Fatal("second session should be valid")
	}
	if ip != "10.0.0.6" {
		t.Fatalf("ip = %q, want 10.0.0.6", ip)
	}
}

func TestInvalidateIsIdempotent(t *testing.T) {
	s, _ := testStore(t)

	sess, err := s.Issue("10.0.0.5")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	s.Invalidate()
	s.Invalidate()

	if _, ok := s.Validate(sess.ID); ok {
		t.Fatal("session valid after Invalidate")
	}
}

func TestValidateCSRF(t *testing.T) {
	s, _ := testStore(t)

	if s.ValidateCSRF("token") {
		t.Fatal("CSRF valid with no session")
	}

	sess, err := s.Issue("10.0.0.5")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if s.ValidateCSRF("") {
		t.Fatal("empty CSRF token accepted")
	}
	if s.ValidateCSRF(sess.CSRFToken + "x") {
		t.Fatal("near-miss CSRF token accepted")
	}
	if s.ValidateCSRF(sess.ID) {
		t.Fatal("session id accepted as CSRF token")
	}
	if !s.ValidateCSRF(sess.CSRFToken) {
		t.Fatal("exact CSRF token rejected")
	}
}
