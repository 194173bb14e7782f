package careauth

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	auditEventChallengeIssued    = "challenge.issued"
	auditEventChallengeResent    = "challenge.resent"
	auditEventLoginRejected      = "login.rejected"
	auditEventSignupRejected     = "signup.rejected"
	auditEventCodeConfirmed      = "code.confirmed"
	auditEventCodeRejected       = "code.rejected"
	auditEventSessionExpired     = "session.expired"
	auditEventSessionAbandoned   = "session.abandoned"
	auditEventIdentityRegistered = "identity.registered"
	auditEventLogout             = "session.logout"
)

// AuditEvent is one observable fact about a flow: a challenge sent, a code
// confirmed or rejected, a session expiring. Phone numbers are masked before
// the event leaves the engine.
type AuditEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Flow      string            `json:"flow,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	ClientID  string            `json:"client_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives flow audit events from the dispatcher.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards everything.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink buffers events on a channel for test and pipeline consumers.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}

// JSONWriterSink writes one JSON object per line to the writer.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(_ context.Context, event AuditEvent) {
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

// maskPhone keeps the final two digits of a national number so audit output
// stays correlatable without carrying the identifier itself.
func maskPhone(phone string) string {
	if len(phone) <= 2 {
		return phone
	}
	return strings.Repeat("*", len(phone)-2) + phone[len(phone)-2:]
}
