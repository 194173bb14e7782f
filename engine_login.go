package careauth

import "context"

// StartLogin resolves a returning-user submission. Field validation runs
// first, then the email and phone are looked up independently; the pair must
// point at the same record before a challenge is issued. Cross-matched
// identifiers — an email belonging to one record and a phone belonging to
// another — are rejected, never silently accepted.
func (e *Engine) StartLogin(ctx context.Context, email, phone string) (*StartResult, error) {
	if e == nil || e.directory == nil || e.challenger == nil {
		return nil, ErrEngineNotReady
	}

	if err := ValidateEmail(email); err != nil {
		e.metricInc(MetricLoginRejected)
		return nil, err
	}
	normalized, err := NormalizePhone(phone)
	if err != nil {
		e.metricInc(MetricLoginRejected)
		return nil, err
	}

	byEmail, emailFound, err := e.directory.FindByEmailOrPhone(ctx, email)
	if err != nil {
		return nil, err
	}
	byPhone, phoneFound, err := e.directory.FindByEmailOrPhone(ctx, normalized)
	if err != nil {
		return nil, err
	}

	// Decision table, in order. Each rejection names the identifier that
	// failed so the form can point at the right field.
	var verdict error
	switch {
	case !emailFound && !phoneFound:
		verdict = ErrNoAccountFound
	case emailFound && !phoneFound:
		verdict = ErrPhoneMismatch
	case !emailFound && phoneFound:
		verdict = ErrEmailMismatch
	case byEmail.Phone != normalized:
		verdict = ErrPhoneMismatch
	case byPhone.Email != email:
		verdict = ErrEmailMismatch
	}
	if verdict != nil {
		e.metricInc(MetricLoginRejected)
		e.emitAudit(ctx, auditEventLoginRejected, false, FlowLogin, normalized, verdict, nil)
		return nil, verdict
	}

	return e.startVerification(ctx, FlowLogin, normalized, byEmail.Email, byEmail.FullName)
}
