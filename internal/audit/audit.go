package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Event types emitted by the auth layer and the service handlers.
const (
	EventLoginSuccess   = "login_success"
	EventLoginFailed    = "login_failed"
	EventLogout         = "logout"
	EventRateLimited    = "rate_limited"
	EventBlockedIP      = "blocked_ip"
	EventServiceStart   = "service_start"
	EventServiceStop    = "service_stop"
	EventServiceRestart = "service_restart"
	EventEnvSaved       = "env_saved"
)

// Event is a single append-only audit record.
type Event struct {
	ID     string    `json:"id" gorm:"primaryKey;size:36"`
	Time   time.Time `json:"time" gorm:"index"`
	Type   string    `json:"type" gorm:"size:32;index"`
	Addr   string    `json:"addr,omitempty" gorm:"size:64"`
	Target string    `json:"target,omitempty" gorm:"size:128"`
	Detail string    `json:"detail,omitempty" gorm:"size:512"`
}

// TableName keeps the persisted table name stable regardless of the
// struct name.
func (Event) TableName() string { return "audit_log" }

// Sink receives emitted audit events. Sinks are best-effort: a failing
// sink never blocks or fails the operation that emitted the event.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// WriterSink writes one JSON object per line.
type WriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{
		writer: w,
	}
}

func (s *WriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
