package careauth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/trygve-health/careauth/token"
)

// Engine orchestrates the onboarding and authentication flows. Configure it
// through [Builder.Build] and treat it as immutable afterwards; methods are
// safe for concurrent use.
type Engine struct {
	config      Config
	directory   *userDirectory
	sessions    *verificationStore
	provenance  *provenanceStore
	challenger  Challenger
	botVerifier BotVerifier
	tokens      *token.Manager
	audit       *auditDispatcher
	metrics     *Metrics
	log         *slog.Logger
}

// Close releases the engine's background resources. The audit dispatcher
// drains queued events before returning.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded by a full
// buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the flow counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	flow Flow,
	phone string,
	cause error,
	metadata func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		EventType: eventType,
		ClientID:  ClientIDFromContext(ctx),
		Success:   success,
	}
	if flow.Valid() {
		event.Flow = flow.String()
	}
	if phone != "" {
		event.Phone = maskPhone(phone)
	}
	if cause != nil {
		event.Error = cause.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.Emit(ctx, event)
}

// VerifySessionToken checks a signed authenticated-session flag and returns
// the display name it carries. Used by the session guard.
func (e *Engine) VerifySessionToken(tokenString string) (string, error) {
	if e == nil || e.tokens == nil {
		return "", ErrEngineNotReady
	}
	return e.tokens.Verify(tokenString)
}

// ConsumeProvenance atomically takes the caller's one-shot navigation
// marker and requires it to match the stage the landing page accepts.
func (e *Engine) ConsumeProvenance(ctx context.Context, want Stage) (string, error) {
	if e == nil || e.provenance == nil {
		return "", ErrEngineNotReady
	}
	clientID := ClientIDFromContext(ctx)
	if clientID == "" {
		e.metricInc(MetricGuardRedirect)
		return "", ErrProvenanceMismatch
	}
	name, err := e.provenance.Consume(ctx, clientID, want)
	if err != nil {
		e.metricInc(MetricGuardRedirect)
		return "", err
	}
	return name, nil
}

// CheckProvenance reports whether the caller holds the wanted marker
// without consuming it. Only the profile-completion page uses this: its gate
// must survive rendering the form and fall only when the step completes.
func (e *Engine) CheckProvenance(ctx context.Context, want Stage) (string, error) {
	if e == nil || e.provenance == nil {
		return "", ErrEngineNotReady
	}
	clientID := ClientIDFromContext(ctx)
	if clientID == "" {
		return "", ErrProvenanceMismatch
	}
	return e.provenance.Check(ctx, clientID, want)
}

// EmitProvenance records the marker a completed step hands to its successor
// page. The welcome page uses it to admit the dashboard exactly once.
func (e *Engine) EmitProvenance(ctx context.Context, stage Stage, name string) error {
	if e == nil || e.provenance == nil {
		return ErrEngineNotReady
	}
	clientID := ClientIDFromContext(ctx)
	if clientID == "" {
		return ErrProvenanceMismatch
	}
	return e.provenance.Emit(ctx, clientID, stage, name, e.config.Provenance.TTL)
}

// Profile returns the merged current-session profile, if any. Landing pages
// use it for display only.
func (e *Engine) Profile(ctx context.Context) (Identity, bool, error) {
	if e == nil || e.directory == nil {
		return Identity{}, false, ErrEngineNotReady
	}
	return e.directory.Profile(ctx)
}

// Logout clears the merged profile record. The signed token is discarded by
// the web layer (cookie removal); it was the only other durable trace.
func (e *Engine) Logout(ctx context.Context) error {
	if e == nil || e.directory == nil {
		return ErrEngineNotReady
	}
	if err := e.directory.ClearProfile(ctx); err != nil {
		return err
	}
	e.emitAudit(ctx, auditEventLogout, true, 0, "", nil, nil)
	return nil
}
