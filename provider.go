package careauth

import (
	"context"
	"crypto/subtle"
	"sync"

	"github.com/google/uuid"

	"github.com/trygve-health/careauth/internal"
)

// Challenger is the phone-verification provider contract: issue a one-time
// code to a phone number and confirm a submitted code against the issued
// challenge. The provider's challenge protocol is opaque to the engine; only
// the returned reference is held, inside the verification session.
type Challenger interface {
	// Issue sends a code to an E.164 phone number. botToken is the bot-check
	// proof acquired for this attempt.
	Issue(ctx context.Context, e164Phone, botToken string) (ref string, err error)
	// Confirm checks a submitted code against the challenge behind ref.
	// It returns ErrCodeIncorrect for a wrong code and ErrChallengeNotFound
	// for an unknown or consumed reference.
	Confirm(ctx context.Context, ref, code string) error
}

// BotVerifier is the bot-check token source for challenge issuing. It is a
// scoped resource: acquired per verification attempt and released on the
// attempt's terminal outcome. Implementations wrap whatever captcha or
// attestation scheme the provider requires.
type BotVerifier interface {
	Acquire(ctx context.Context) (token string, err error)
	Release()
}

// StaticBotVerifier satisfies BotVerifier with a fixed token. Useful for
// providers that do not enforce bot checks and for tests.
type StaticBotVerifier string

func (v StaticBotVerifier) Acquire(context.Context) (string, error) { return string(v), nil }

func (StaticBotVerifier) Release() {}

type devChallenge struct {
	phone string
	code  string
}

// DevChallenger is a local simulated provider: it generates a real random
// six-digit code per challenge and confirms against its own table. It stands
// in for the external SDK in tests and development servers; no SMS leaves
// the process.
type DevChallenger struct {
	mu         sync.Mutex
	challenges map[string]devChallenge
}

// NewDevChallenger returns an empty simulated provider.
func NewDevChallenger() *DevChallenger {
	return &DevChallenger{challenges: make(map[string]devChallenge)}
}

// Issue generates a fresh code and challenge reference for the phone.
func (d *DevChallenger) Issue(_ context.Context, e164Phone, _ string) (string, error) {
	code, err := internal.NewOTP(otpDigits)
	if err != nil {
		return "", err
	}
	ref := uuid.NewString()

	d.mu.Lock()
	d.challenges[ref] = devChallenge{phone: e164Phone, code: code}
	d.mu.Unlock()

	return ref, nil
}

// Confirm checks the submitted code. A correct code consumes the challenge;
// a wrong one leaves it in place for another attempt.
func (d *DevChallenger) Confirm(_ context.Context, ref, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ch, ok := d.challenges[ref]
	if !ok {
		return ErrChallengeNotFound
	}
	if subtle.ConstantTimeCompare([]byte(ch.code), []byte(code)) != 1 {
		return ErrCodeIncorrect
	}
	delete(d.challenges, ref)
	return nil
}

// Drop discards the challenge behind ref, if any. Called when a replaced or
// abandoned reference should stop confirming.
func (d *DevChallenger) Drop(ref string) {
	d.mu.Lock()
	delete(d.challenges, ref)
	d.mu.Unlock()
}

// IssuedCode exposes the code behind a live challenge. Development and test
// use only; a real provider has no equivalent.
func (d *DevChallenger) IssuedCode(ref string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.challenges[ref]
	return ch.code, ok
}
