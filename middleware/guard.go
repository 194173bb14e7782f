package middleware

import (
	"context"
	"net/http"

	careauth "github.com/trygve-health/careauth"
)

type sessionNameContextKey struct{}

// SessionName returns the display name of the authenticated session the
// guard admitted, preferring the provenance marker's name over the token's.
func SessionName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(sessionNameContextKey{}).(string)
	return name, ok
}

// Guard gates a post-authentication page. The durable flag alone is not
// enough: the request must also consume the provenance marker the previous
// step emitted, so a set flag cannot be replayed into the middle of the
// flow. Failures redirect — never render — and send the caller to /login.
func Guard(engine *careauth.Engine, required careauth.Stage) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			tokenName, err := engine.VerifySessionToken(cookie.Value)
			if err != nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			// Authenticated but arriving out of sequence still gets turned
			// away: the marker is one-shot and page-specific.
			name, err := engine.ConsumeProvenance(r.Context(), required)
			if err != nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if name == "" {
				name = tokenName
			}

			ctx := context.WithValue(r.Context(), sessionNameContextKey{}, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
