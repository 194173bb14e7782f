package careauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trygve-health/careauth/internal"
)

// startVerification issues a challenge and creates the verification session
// behind it. The bot-check token is a scoped resource: acquired for this
// issue and released when it returns, never parked on shared state.
func (e *Engine) startVerification(ctx context.Context, flow Flow, phone, email, fullName string) (*StartResult, error) {
	botToken, err := e.botVerifier.Acquire(ctx)
	if err != nil {
		e.metricInc(MetricChallengeIssueFailed)
		return nil, fmt.Errorf("%w: %v", ErrChallengeIssueFailed, err)
	}
	defer e.botVerifier.Release()

	ref, err := e.challenger.Issue(ctx, e.config.Challenge.CountryCode+phone, botToken)
	if err != nil {
		e.metricInc(MetricChallengeIssueFailed)
		e.emitAudit(ctx, auditEventChallengeIssued, false, flow, phone, err, nil)
		return nil, fmt.Errorf("%w: %v", ErrChallengeIssueFailed, err)
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(e.config.Session.TTL)
	record := &verificationSession{
		Flow:         flow,
		ClientID:     ClientIDFromContext(ctx),
		Phone:        phone,
		Email:        email,
		FullName:     fullName,
		ChallengeRef: ref,
		IssuedAt:     now.Unix(),
		ExpiresAt:    expiresAt.Unix(),
	}
	if err := e.sessions.Save(ctx, sid.String(), record, e.config.Session.TTL); err != nil {
		return nil, err
	}

	e.metricInc(MetricChallengeIssued)
	e.emitAudit(ctx, auditEventChallengeIssued, true, flow, phone, nil, func() map[string]string {
		return map[string]string{"challenge_ref": ref}
	})

	return &StartResult{
		SessionID: sid.String(),
		Flow:      flow,
		Phone:     phone,
		Email:     email,
		FullName:  fullName,
		ExpiresAt: expiresAt,
	}, nil
}

// ResumeVerification is the verification page's entry guard. A live pending
// session yields a view the page may render; a missing or malformed one is
// an abandoned attempt (ErrSessionNotFound) and a stale one is expired
// (ErrSessionExpired, record destroyed). Callers redirect to the flow entry
// on either error, without rendering code entry.
func (e *Engine) ResumeVerification(ctx context.Context, sessionID string) (*VerificationView, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if sessionID == "" {
		e.metricInc(MetricSessionAbandoned)
		return nil, ErrSessionNotFound
	}

	record, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionExpired):
			e.metricInc(MetricSessionExpired)
			e.emitAudit(ctx, auditEventSessionExpired, false, 0, "", err, nil)
		case errors.Is(err, ErrSessionNotFound):
			e.metricInc(MetricSessionAbandoned)
			e.emitAudit(ctx, auditEventSessionAbandoned, false, 0, "", err, nil)
		}
		return nil, err
	}

	return &VerificationView{
		State:    StatePending,
		Flow:     record.Flow,
		Phone:    record.Phone,
		Email:    record.Email,
		FullName: record.FullName,
	}, nil
}

// ConfirmCode submits an entered code against the held challenge. Success is
// the only path that writes the authenticated flag: the session is destroyed
// exactly once, the signed token is issued, and the provenance marker for
// the flow's next page is emitted. A wrong code leaves the attempt pending;
// provider trouble is transient and never terminal.
func (e *Engine) ConfirmCode(ctx context.Context, sessionID, code string) (*VerifyResult, error) {
	if e == nil || e.sessions == nil || e.challenger == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}
	if !isCompleteCode(code) {
		return nil, ErrCodeIncomplete
	}

	record, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionExpired):
			e.metricInc(MetricSessionExpired)
			e.emitAudit(ctx, auditEventSessionExpired, false, 0, "", err, nil)
		case errors.Is(err, ErrSessionNotFound):
			e.metricInc(MetricSessionAbandoned)
			e.emitAudit(ctx, auditEventSessionAbandoned, false, 0, "", err, nil)
		}
		return nil, err
	}

	if err := e.challenger.Confirm(ctx, record.ChallengeRef, code); err != nil {
		if errors.Is(err, ErrCodeIncorrect) {
			e.metricInc(MetricCodeRejected)
			e.emitAudit(ctx, auditEventCodeRejected, false, record.Flow, record.Phone, err, nil)
			return nil, ErrCodeIncorrect
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeUnavailable, err)
	}

	deleted, err := e.sessions.Delete(ctx, sessionID, record.ClientID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, ErrSessionReplay
	}

	signed, err := e.tokens.Create(record.FullName)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{
		Flow:  record.Flow,
		Name:  record.FullName,
		Token: signed,
	}
	clientID := record.ClientID
	if clientID == "" {
		clientID = ClientIDFromContext(ctx)
	}

	switch record.Flow {
	case FlowLogin:
		result.NextRoute = "/welcome"
		if clientID != "" {
			if err := e.provenance.Emit(ctx, clientID, StageLogin, record.FullName, e.config.Provenance.TTL); err != nil {
				return nil, err
			}
		}
		// Display-only merged profile for the landing pages.
		if err := e.directory.SaveProfile(ctx, Identity{
			FullName: record.FullName,
			Email:    record.Email,
			Phone:    record.Phone,
		}); err != nil {
			return nil, err
		}
	case FlowSignup:
		result.NextRoute = "/create-account"
		if clientID != "" {
			// The profile gate lives as long as the session budget, not the
			// short navigation-marker window.
			if err := e.provenance.Emit(ctx, clientID, StageOTPVerified, "", e.config.Session.TTL); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("confirm: unhandled flow %v", record.Flow)
	}

	e.metricInc(MetricCodeConfirmed)
	e.emitAudit(ctx, auditEventCodeConfirmed, true, record.Flow, record.Phone, nil, nil)
	return result, nil
}

// ResendCode issues a fresh challenge for the same phone and swaps the held
// reference in place. The attempt's expiry clock is not restarted — the
// session keeps its original budget. Entered digits are the page's to
// clear.
func (e *Engine) ResendCode(ctx context.Context, sessionID string) error {
	if e == nil || e.sessions == nil || e.challenger == nil {
		return ErrEngineNotReady
	}

	record, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	botToken, err := e.botVerifier.Acquire(ctx)
	if err != nil {
		e.metricInc(MetricChallengeIssueFailed)
		return fmt.Errorf("%w: %v", ErrChallengeIssueFailed, err)
	}
	defer e.botVerifier.Release()

	ref, err := e.challenger.Issue(ctx, e.config.Challenge.CountryCode+record.Phone, botToken)
	if err != nil {
		e.metricInc(MetricChallengeIssueFailed)
		e.emitAudit(ctx, auditEventChallengeResent, false, record.Flow, record.Phone, err, nil)
		return fmt.Errorf("%w: %v", ErrChallengeIssueFailed, err)
	}

	if err := e.sessions.ReplaceChallengeRef(ctx, sessionID, ref); err != nil {
		return err
	}

	e.metricInc(MetricChallengeResent)
	e.emitAudit(ctx, auditEventChallengeResent, true, record.Flow, record.Phone, nil, nil)
	return nil
}

func isCompleteCode(code string) bool {
	if len(code) != otpDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
