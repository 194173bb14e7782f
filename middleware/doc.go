// Package middleware provides the HTTP session guard and client-context
// plumbing for the careauth flow pages.
//
// Guard protects post-authentication pages twice over: the signed
// authenticated-session flag must verify, and the caller must hold the
// one-shot provenance marker its predecessor page emits. Either check
// failing redirects to the flow entry instead of rendering, which is what
// keeps deep links out of the middle of the flow.
package middleware
