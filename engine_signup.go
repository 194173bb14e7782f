package careauth

import "context"

// StartSignup resolves a new-user submission: a bare 10-digit phone. An
// already-registered phone is a hard block — the caller should log in
// instead, and no challenge is issued for it.
func (e *Engine) StartSignup(ctx context.Context, phone string) (*StartResult, error) {
	if e == nil || e.directory == nil || e.challenger == nil {
		return nil, ErrEngineNotReady
	}

	normalized, err := NormalizePhone(phone)
	if err != nil {
		e.metricInc(MetricSignupRejected)
		return nil, err
	}

	exists, err := e.directory.Exists(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if exists {
		e.metricInc(MetricSignupRejected)
		e.emitAudit(ctx, auditEventSignupRejected, false, FlowSignup, normalized, ErrIdentityAlreadyRegistered, nil)
		return nil, ErrIdentityAlreadyRegistered
	}

	return e.startVerification(ctx, FlowSignup, normalized, "", "")
}

// CompleteSignup records the identity collected by the profile-completion
// form. It requires the one-shot otp-verified gate set by a confirmed signup
// code; completing the step consumes the gate. The directory insert is
// double-checked for duplicates internally (logged, non-fatal) — the primary
// gate was the Exists check before the challenge went out.
func (e *Engine) CompleteSignup(ctx context.Context, profile Profile) (string, error) {
	if e == nil || e.directory == nil || e.provenance == nil {
		return "", ErrEngineNotReady
	}

	clientID := ClientIDFromContext(ctx)
	if clientID == "" {
		return "", ErrProfileGateMissing
	}
	if _, err := e.provenance.Check(ctx, clientID, StageOTPVerified); err != nil {
		return "", ErrProfileGateMissing
	}

	if err := ValidateFullName(profile.FullName); err != nil {
		return "", err
	}
	if err := ValidateEmail(profile.Email); err != nil {
		return "", err
	}
	normalized, err := NormalizePhone(profile.SecondaryPhone)
	if err != nil {
		return "", err
	}

	identity := Identity{
		FullName: profile.FullName,
		Email:    profile.Email,
		Phone:    normalized,
		Location: profile.Location,
	}
	if err := e.directory.Insert(ctx, identity); err != nil {
		return "", err
	}

	// Gate falls with the step; the confirmation page gets its own marker.
	if _, err := e.provenance.Consume(ctx, clientID, StageOTPVerified); err != nil {
		return "", err
	}
	if err := e.provenance.Emit(ctx, clientID, StageSignupComplete, identity.FullName, e.config.Provenance.TTL); err != nil {
		return "", err
	}

	e.metricInc(MetricIdentityRegistered)
	e.emitAudit(ctx, auditEventIdentityRegistered, true, FlowSignup, normalized, nil, nil)
	e.log.Info("identity registered",
		"phone", maskPhone(normalized))

	return identity.FullName, nil
}
