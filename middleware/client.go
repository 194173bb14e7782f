package middleware

import (
	"net/http"

	"github.com/google/uuid"

	careauth "github.com/trygve-health/careauth"
)

const (
	// SessionCookie carries the signed authenticated-session token.
	SessionCookie = "ca_session"
	// ClientCookie carries the browser-context identifier that keys
	// verification sessions and provenance markers.
	ClientCookie = "ca_client"
)

// ClientContext guarantees every request carries a browser-context ID: it
// reads the client cookie, minting and setting one when absent, and attaches
// the ID to the request context for the engine.
func ClientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := ""
		if c, err := r.Cookie(ClientCookie); err == nil && c.Value != "" {
			clientID = c.Value
		}
		if clientID == "" {
			clientID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     ClientCookie,
				Value:    clientID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := careauth.WithClientID(r.Context(), clientID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
