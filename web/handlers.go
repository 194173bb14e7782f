package web

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	careauth "github.com/trygve-health/careauth"
	"github.com/trygve-health/careauth/middleware"
)

// verifyCookie carries the in-flight verification handle as
// "<flow>.<sessionID>" so the verification page can redirect to the right
// flow entry when the attempt is dead.
const verifyCookie = "ca_verify"

func execBody(t *template.Template, data any) template.HTML {
	var buf bytes.Buffer
	_ = t.Execute(&buf, data)
	return template.HTML(buf.String())
}

func splitVerifyCookie(value string) (flow careauth.Flow, sessionID string) {
	flowName, sid, ok := strings.Cut(value, ".")
	if !ok {
		return 0, ""
	}
	switch flowName {
	case careauth.FlowLogin.String():
		return careauth.FlowLogin, sid
	case careauth.FlowSignup.String():
		return careauth.FlowSignup, sid
	default:
		return 0, ""
	}
}

func (h *Handler) onboarding(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusOK, pageData{
		Title:   "TRYGVE",
		Page:    "onboarding",
		Heading: "Welcome to TRYGVE",
		Body:    execBody(onboardingBody, onboardingSlides),
	})
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusOK, pageData{
		Title:   "TRYGVE",
		Page:    "home",
		Heading: "Trusted Guardian of Life",
		Body:    template.HTML(`<p><a href="/login">Log in</a> or <a href="/signup">Sign up</a></p>`),
	})
}

type loginFormData struct {
	Email string
	Phone string
}

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, http.StatusOK, loginFormData{}, "", r.URL.Query().Get("notice"))
}

func (h *Handler) renderLogin(w http.ResponseWriter, status int, form loginFormData, errMsg, notice string) {
	renderPage(w, status, pageData{
		Title:   "OTP Verification",
		Page:    "login",
		Heading: "OTP Verification",
		Notice:  notice,
		Error:   errMsg,
		Body:    execBody(loginFormBody, form),
	})
}

func (h *Handler) loginSubmit(w http.ResponseWriter, r *http.Request) {
	form := loginFormData{
		Email: strings.TrimSpace(r.PostFormValue("email")),
		Phone: strings.TrimSpace(r.PostFormValue("phone")),
	}

	result, err := h.engine.StartLogin(r.Context(), form.Email, form.Phone)
	if err != nil {
		h.renderLogin(w, http.StatusUnprocessableEntity, form, loginErrorMessage(err), "")
		return
	}

	setCookie(w, verifyCookie, result.Flow.String()+"."+result.SessionID)
	http.Redirect(w, r, "/otp-verify", http.StatusSeeOther)
}

func loginErrorMessage(err error) string {
	switch {
	case errors.Is(err, careauth.ErrInvalidEmailFormat):
		return "Please enter a valid email address"
	case errors.Is(err, careauth.ErrInvalidPhoneLength):
		return "Please enter a valid 10-digit phone number"
	case errors.Is(err, careauth.ErrNoAccountFound):
		return "No account found with this email or phone. Please sign up first."
	case errors.Is(err, careauth.ErrPhoneMismatch):
		return "The phone number does not match our records for this email."
	case errors.Is(err, careauth.ErrEmailMismatch):
		return "The email does not match our records for this phone number."
	case errors.Is(err, careauth.ErrChallengeIssueFailed):
		return "Could not send the code. Please try again."
	default:
		return "Something went wrong. Please try again."
	}
}

type signupFormData struct {
	CountryCode string
	Phone       string
}

func (h *Handler) signupForm(w http.ResponseWriter, r *http.Request) {
	h.renderSignup(w, http.StatusOK, signupFormData{CountryCode: "+91"}, "", r.URL.Query().Get("notice"))
}

func (h *Handler) renderSignup(w http.ResponseWriter, status int, form signupFormData, errMsg, notice string) {
	renderPage(w, status, pageData{
		Title:   "Sign Up",
		Page:    "signup",
		Heading: "Enter Your Phone Number",
		Notice:  notice,
		Error:   errMsg,
		Body:    execBody(signupFormBody, form),
	})
}

func (h *Handler) signupSubmit(w http.ResponseWriter, r *http.Request) {
	form := signupFormData{
		CountryCode: "+91",
		Phone:       strings.TrimSpace(r.PostFormValue("phone")),
	}

	result, err := h.engine.StartSignup(r.Context(), form.Phone)
	if err != nil {
		msg := "Something went wrong. Please try again."
		switch {
		case errors.Is(err, careauth.ErrInvalidPhoneLength):
			msg = "Please enter a valid 10-digit phone number"
		case errors.Is(err, careauth.ErrIdentityAlreadyRegistered):
			msg = "This phone number is already registered. Please log in instead."
		case errors.Is(err, careauth.ErrChallengeIssueFailed):
			msg = "Could not send the code. Please try again."
		}
		h.renderSignup(w, http.StatusUnprocessableEntity, form, msg, "")
		return
	}

	setCookie(w, verifyCookie, result.Flow.String()+"."+result.SessionID)
	http.Redirect(w, r, "/otp-verify", http.StatusSeeOther)
}

type otpFormData struct {
	CountryCode string
	Phone       string
	Cells       []int
}

// redirectDeadSession sends an abandoned or expired attempt back to its flow
// entry with a session-expired notice. No code entry is rendered.
func (h *Handler) redirectDeadSession(w http.ResponseWriter, r *http.Request, flow careauth.Flow) {
	clearCookie(w, verifyCookie)
	entry := "/login"
	if flow.Valid() {
		entry = flow.EntryRoute()
	}
	http.Redirect(w, r, entry+"?notice=Session+expired+or+invalid.+Please+try+again.", http.StatusSeeOther)
}

func (h *Handler) otpForm(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(verifyCookie)
	if err != nil {
		h.redirectDeadSession(w, r, 0)
		return
	}
	flow, sessionID := splitVerifyCookie(cookie.Value)
	view, err := h.engine.ResumeVerification(r.Context(), sessionID)
	if err != nil {
		h.redirectDeadSession(w, r, flow)
		return
	}

	h.renderOTP(w, http.StatusOK, view.Phone, "", "")
}

func (h *Handler) renderOTP(w http.ResponseWriter, status int, phone, errMsg, notice string) {
	renderPage(w, status, pageData{
		Title:   "OTP Verification",
		Page:    "otp-verify",
		Heading: "OTP Verification",
		Notice:  notice,
		Error:   errMsg,
		Body: execBody(otpFormBody, otpFormData{
			CountryCode: "+91",
			Phone:       phone,
			Cells:       []int{1, 2, 3, 4, 5, 6},
		}),
	})
}

// collectCode rebuilds the entered code from the six discrete cell inputs,
// or from a pasted payload when the form sends one.
func collectCode(r *http.Request) (string, bool) {
	entry := careauth.NewCodeEntry()
	if pasted := r.PostFormValue("paste"); pasted != "" {
		if !entry.Paste(pasted) {
			return "", false
		}
		return mustCode(entry)
	}
	for i := 1; i <= 6; i++ {
		cell := r.PostFormValue(fmt.Sprintf("code%d", i))
		if len(cell) != 1 || !entry.Input(rune(cell[0])) {
			return "", false
		}
	}
	return mustCode(entry)
}

func mustCode(entry *careauth.CodeEntry) (string, bool) {
	code, complete := entry.Code()
	return code, complete
}

func (h *Handler) otpSubmit(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(verifyCookie)
	if err != nil {
		h.redirectDeadSession(w, r, 0)
		return
	}
	flow, sessionID := splitVerifyCookie(cookie.Value)

	code, ok := collectCode(r)
	if !ok {
		view, err := h.engine.ResumeVerification(r.Context(), sessionID)
		if err != nil {
			h.redirectDeadSession(w, r, flow)
			return
		}
		h.renderOTP(w, http.StatusUnprocessableEntity, view.Phone, "Please enter a valid 6-digit OTP.", "")
		return
	}

	result, err := h.engine.ConfirmCode(r.Context(), sessionID, code)
	if err != nil {
		switch {
		case errors.Is(err, careauth.ErrSessionNotFound),
			errors.Is(err, careauth.ErrSessionExpired),
			errors.Is(err, careauth.ErrSessionReplay):
			h.redirectDeadSession(w, r, flow)
		case errors.Is(err, careauth.ErrCodeIncorrect):
			view, verr := h.engine.ResumeVerification(r.Context(), sessionID)
			if verr != nil {
				h.redirectDeadSession(w, r, flow)
				return
			}
			h.renderOTP(w, http.StatusUnprocessableEntity, view.Phone, "Incorrect OTP. Please try again.", "")
		default:
			view, verr := h.engine.ResumeVerification(r.Context(), sessionID)
			if verr != nil {
				h.redirectDeadSession(w, r, flow)
				return
			}
			h.renderOTP(w, http.StatusServiceUnavailable, view.Phone, "", "Could not verify right now. Please try again.")
		}
		return
	}

	clearCookie(w, verifyCookie)
	setCookie(w, middleware.SessionCookie, result.Token)
	http.Redirect(w, r, result.NextRoute, http.StatusSeeOther)
}

func (h *Handler) otpResend(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(verifyCookie)
	if err != nil {
		h.redirectDeadSession(w, r, 0)
		return
	}
	flow, sessionID := splitVerifyCookie(cookie.Value)

	if err := h.engine.ResendCode(r.Context(), sessionID); err != nil {
		switch {
		case errors.Is(err, careauth.ErrSessionNotFound), errors.Is(err, careauth.ErrSessionExpired):
			h.redirectDeadSession(w, r, flow)
			return
		}
		view, verr := h.engine.ResumeVerification(r.Context(), sessionID)
		if verr != nil {
			h.redirectDeadSession(w, r, flow)
			return
		}
		h.renderOTP(w, http.StatusServiceUnavailable, view.Phone, "", "Could not resend the code. Please try again.")
		return
	}

	view, verr := h.engine.ResumeVerification(r.Context(), sessionID)
	if verr != nil {
		h.redirectDeadSession(w, r, flow)
		return
	}
	h.renderOTP(w, http.StatusOK, view.Phone, "", "A new OTP has been sent.")
}

func (h *Handler) createAccountForm(w http.ResponseWriter, r *http.Request) {
	if _, err := h.engine.CheckProvenance(r.Context(), careauth.StageOTPVerified); err != nil {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}
	h.renderCreateAccount(w, http.StatusOK, careauth.Profile{}, "")
}

func (h *Handler) renderCreateAccount(w http.ResponseWriter, status int, form careauth.Profile, errMsg string) {
	renderPage(w, status, pageData{
		Title:   "Almost Done!",
		Page:    "create-account",
		Heading: "Almost Done!",
		Error:   errMsg,
		Body:    execBody(createAccountBody, form),
	})
}

func (h *Handler) createAccountSubmit(w http.ResponseWriter, r *http.Request) {
	form := careauth.Profile{
		FullName:       strings.TrimSpace(r.PostFormValue("fullName")),
		Email:          strings.TrimSpace(r.PostFormValue("email")),
		Location:       strings.TrimSpace(r.PostFormValue("location")),
		SecondaryPhone: strings.TrimSpace(r.PostFormValue("secondaryPhone")),
	}

	if _, err := h.engine.CompleteSignup(r.Context(), form); err != nil {
		if errors.Is(err, careauth.ErrProfileGateMissing) {
			http.Redirect(w, r, "/home", http.StatusSeeOther)
			return
		}
		msg := "Something went wrong. Please try again."
		switch {
		case errors.Is(err, careauth.ErrInvalidNameCharset):
			msg = "Only letters, spaces, hyphens, and apostrophes are allowed"
		case errors.Is(err, careauth.ErrInvalidEmailFormat):
			msg = "Invalid email format"
		case errors.Is(err, careauth.ErrInvalidPhoneLength):
			msg = "Phone must be 10 digits"
		}
		h.renderCreateAccount(w, http.StatusUnprocessableEntity, form, msg)
		return
	}

	http.Redirect(w, r, "/back-to-login", http.StatusSeeOther)
}

func (h *Handler) welcome(w http.ResponseWriter, r *http.Request) {
	name, err := h.engine.ConsumeProvenance(r.Context(), careauth.StageLogin)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	first := name
	if i := strings.IndexByte(first, ' '); i > 0 {
		first = first[:i]
	}
	if first == "" {
		first = "User"
	}
	renderPage(w, http.StatusOK, pageData{
		Title:   "Welcome",
		Page:    "welcome",
		Heading: "Welcome, " + first + "!",
		Body: template.HTML(`<p>Your login was successful. Click below to continue.</p>` +
			`<form method="post" action="/welcome"><button type="submit">Continue to Dashboard</button></form>`),
	})
}

func (h *Handler) welcomeContinue(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookie)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	name, err := h.engine.VerifySessionToken(cookie.Value)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := h.engine.EmitProvenance(r.Context(), careauth.StageWelcome, name); err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *Handler) backToLogin(w http.ResponseWriter, r *http.Request) {
	name, err := h.engine.ConsumeProvenance(r.Context(), careauth.StageSignupComplete)
	if err != nil {
		http.Redirect(w, r, "/home", http.StatusSeeOther)
		return
	}

	// A fresh account starts logged out: drop any leftover session state.
	clearCookie(w, middleware.SessionCookie)
	if err := h.engine.Logout(r.Context()); err != nil {
		h.log.Warn("clearing session on signup completion", "error", err)
	}

	renderPage(w, http.StatusOK, pageData{
		Title:   "Account Created",
		Page:    "back-to-login",
		Heading: "Account Created!",
		Body: template.HTML("<p>Congratulations " + template.HTMLEscapeString(name) +
			`! Your account has been successfully created. Please log in to access your dashboard.</p>` +
			`<p><a href="/login">Log In Now</a></p>`),
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	name, _ := middleware.SessionName(r.Context())
	if name == "" {
		name = "User"
	}
	renderPage(w, http.StatusOK, pageData{
		Title:   "Dashboard",
		Page:    "dashboard",
		Heading: "Welcome to TRYGVE, " + name,
		Body: template.HTML(`<nav><a href="/dashboard">Dashboard</a></nav>` +
			`<form method="post" action="/logout"><button type="submit">Logout</button></form>`),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Logout(r.Context()); err != nil {
		h.log.Warn("logout", "error", err)
	}
	clearCookie(w, middleware.SessionCookie)
	clearCookie(w, verifyCookie)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	renderPage(w, http.StatusNotFound, pageData{
		Title:   "Not Found",
		Page:    "not-found",
		Heading: "Page not found",
		Body:    template.HTML(`<p><a href="/home">Back to home</a></p>`),
	})
}
