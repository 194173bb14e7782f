// Package careauth implements the onboarding and authentication flow engine
// for a phone-first healthcare-booking product: signup or login intent
// resolution, one-time-passcode (OTP) challenge issue and confirmation,
// profile completion, and the provenance-checked hand-off into an
// authenticated session.
//
// The package is the public surface. It exposes [Engine], [Builder],
// [Config], the [Challenger] provider contract, and value types. Identity
// records, in-flight verification sessions, and one-shot provenance markers
// are persisted in Redis; the authenticated-session flag is a signed token
// issued by the token subpackage and checked by middleware.
//
// # Flow shape
//
// A verification attempt is a single explicit session: created exactly once
// by StartLogin or StartSignup when a challenge is issued, carried by an
// opaque session ID, and destroyed on its terminal outcome (Verified,
// Expired, or Abandoned). Its expiry is a field on the record and is checked
// on every read, so both the login and signup flows share one mechanism.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
package careauth
