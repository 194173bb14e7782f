package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	careauth "github.com/trygve-health/careauth"
	"github.com/trygve-health/careauth/middleware"
)

// Handler owns the flow pages. Construct with NewHandler and mount Router
// at the site root.
type Handler struct {
	engine *careauth.Engine
	log    *slog.Logger
}

// NewHandler wires the page handlers to an engine.
func NewHandler(engine *careauth.Engine, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{engine: engine, log: log}
}

// Router builds the full route surface. Every route runs under the client
// context middleware; only the dashboard needs the full session guard, the
// other gated pages consume their markers inside their handlers.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.ClientContext)

	r.Get("/", h.onboarding)
	r.Get("/home", h.home)

	r.Get("/login", h.loginForm)
	r.Post("/login", h.loginSubmit)
	r.Get("/signup", h.signupForm)
	r.Post("/signup", h.signupSubmit)

	r.Get("/otp-verify", h.otpForm)
	r.Post("/otp-verify", h.otpSubmit)
	r.Post("/otp-resend", h.otpResend)

	r.Get("/create-account", h.createAccountForm)
	r.Post("/create-account", h.createAccountSubmit)

	r.Get("/welcome", h.welcome)
	r.Post("/welcome", h.welcomeContinue)
	r.Get("/back-to-login", h.backToLogin)

	r.Group(func(gr chi.Router) {
		gr.Use(middleware.Guard(h.engine, careauth.StageWelcome))
		gr.Get("/dashboard", h.dashboard)
	})

	r.Post("/logout", h.logout)

	r.NotFound(h.notFound)
	return r
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func setCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
