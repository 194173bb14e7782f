// Package web serves the onboarding and authentication route surface:
// server-rendered pages for the carousel, the login and signup forms, OTP
// verification, profile completion, and the provenance-gated landing pages.
//
// All flow decisions live in the careauth engine; handlers translate form
// posts into engine calls and engine errors into re-rendered forms or
// redirects. The in-flight verification handle travels in a cookie scoped to
// the attempt, the signed session token in another.
package web
