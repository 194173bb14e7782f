package careauth

import "context"

type clientIDContextKey struct{}

// WithClientID attaches the browser-context identifier to ctx. The engine
// uses it to enforce the one-live-verification-session-per-context rule and
// to key provenance markers; the web layer assigns it via cookie.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDContextKey{}, clientID)
}

// ClientIDFromContext returns the attached browser-context identifier, or
// the empty string.
func ClientIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	clientID, _ := ctx.Value(clientIDContextKey{}).(string)
	return clientID
}
