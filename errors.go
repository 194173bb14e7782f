package careauth

import "errors"

var (
	// ErrInvalidEmailFormat reports an email that does not match the accepted shape.
	ErrInvalidEmailFormat = errors.New("invalid email format")
	// ErrInvalidPhoneLength reports a phone number that is not exactly 10 digits.
	ErrInvalidPhoneLength = errors.New("phone number must be 10 digits")
	// ErrInvalidNameCharset reports a full name containing disallowed characters.
	ErrInvalidNameCharset = errors.New("full name contains invalid characters")
	// ErrNoAccountFound is returned by login when neither identifier is registered.
	ErrNoAccountFound = errors.New("no account found for email or phone")
	// ErrPhoneMismatch is returned by login when the phone does not match the record on file.
	ErrPhoneMismatch = errors.New("phone number does not match records for this email")
	// ErrEmailMismatch is returned by login when the email does not match the record on file.
	ErrEmailMismatch = errors.New("email does not match records for this phone number")
	// ErrIdentityAlreadyRegistered is returned by signup for an already-known phone.
	ErrIdentityAlreadyRegistered = errors.New("identity already registered")
	// ErrChallengeIssueFailed reports a transient provider failure while sending a code.
	ErrChallengeIssueFailed = errors.New("challenge issue failed")
	// ErrChallengeUnavailable reports a transient provider failure while confirming a code.
	ErrChallengeUnavailable = errors.New("challenge provider unavailable")
	// ErrChallengeNotFound reports a confirm against an unknown challenge reference.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrCodeIncomplete is returned when fewer than six digits were submitted.
	ErrCodeIncomplete = errors.New("verification code incomplete")
	// ErrCodeIncorrect is returned when the submitted code does not confirm; the
	// verification session stays pending.
	ErrCodeIncorrect = errors.New("incorrect verification code")
	// ErrSessionNotFound reports a missing or malformed verification session on
	// page entry; the attempt is treated as abandoned.
	ErrSessionNotFound = errors.New("verification session not found")
	// ErrSessionExpired reports a verification session past its expiry instant.
	ErrSessionExpired = errors.New("verification session expired")
	// ErrSessionReplay reports a confirm racing a concurrent terminal outcome.
	ErrSessionReplay = errors.New("verification session already consumed")
	// ErrProfileGateMissing reports profile completion attempted without the
	// one-shot otp-verified marker.
	ErrProfileGateMissing = errors.New("profile completion gate missing")
	// ErrProvenanceMismatch reports a page entered without the marker its
	// predecessor step emits.
	ErrProvenanceMismatch = errors.New("provenance marker missing or mismatched")
	// ErrStoreUnavailable reports a directory or session storage backend failure.
	ErrStoreUnavailable = errors.New("auth storage backend unavailable")
	// ErrEngineNotReady is returned when a flow method is called on a partially
	// constructed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
