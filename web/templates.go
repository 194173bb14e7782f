package web

import (
	"html/template"
	"net/http"
)

// Slide is one onboarding carousel frame. Autoplay runs client-side; the
// server only supplies the frames.
type Slide struct {
	Title    string
	Subtitle string
	Image    string
}

var onboardingSlides = []Slide{
	{Title: "TRYGVE", Subtitle: "Trusted Guardian of Life", Image: "/assets/healthcare-intro-1.jpg"},
	{Title: "Your Health, Our Priority", Subtitle: "Trusted doctors and care at your doorstep.", Image: "/assets/healthcare-intro-2.jpg"},
	{Title: "Seamless Care, Delivered", Subtitle: "Consult, treat, and heal, hassle-free.", Image: "/assets/healthcare-intro-3.jpg"},
	{Title: "Affordable Healthcare for Everyone", Subtitle: "Quality care for every budget.", Image: "/assets/healthcare-intro-4.jpg"},
}

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<main id="{{.Page}}">
<h1>{{.Heading}}</h1>
{{if .Notice}}<p class="notice">{{.Notice}}</p>{{end}}
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{.Body}}
</main>
</body>
</html>
`))

type pageData struct {
	Title   string
	Page    string
	Heading string
	Notice  string
	Error   string
	Body    template.HTML
}

func renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = pageTemplate.Execute(w, data)
}

var loginFormBody = template.Must(template.New("login").Parse(`
<form method="post" action="/login">
<label>Email Id <input type="email" name="email" value="{{.Email}}" required></label>
<label>Phone Number <input type="tel" name="phone" value="{{.Phone}}" maxlength="10" required></label>
<button type="submit">Send OTP</button>
</form>
<p>Don't have an account? <a href="/signup">Sign up</a></p>
`))

var signupFormBody = template.Must(template.New("signup").Parse(`
<form method="post" action="/signup">
<span>{{.CountryCode}}</span>
<label>Phone Number <input type="tel" name="phone" value="{{.Phone}}" maxlength="10" required></label>
<button type="submit">Send Code</button>
</form>
<p>Already have an account? <a href="/login">Log in</a></p>
`))

var otpFormBody = template.Must(template.New("otp").Parse(`
<p>Enter the 6-digit code sent to {{.CountryCode}} {{.Phone}}</p>
<form method="post" action="/otp-verify">
{{range .Cells}}<input type="text" name="code{{.}}" maxlength="1" inputmode="numeric" autocomplete="one-time-code">{{end}}
<button type="submit">Verify OTP</button>
</form>
<form method="post" action="/otp-resend"><button type="submit">Resend OTP</button></form>
`))

var createAccountBody = template.Must(template.New("create").Parse(`
<form method="post" action="/create-account">
<label>Full Name <input type="text" name="fullName" value="{{.FullName}}"></label>
<label>Email <input type="email" name="email" value="{{.Email}}"></label>
<label>Location <input type="text" name="location" value="{{.Location}}"></label>
<label>Secondary Phone <input type="tel" name="secondaryPhone" value="{{.SecondaryPhone}}" maxlength="10"></label>
<button type="submit">Create Account</button>
</form>
`))

var onboardingBody = template.Must(template.New("onboarding").Parse(`
<ol class="carousel" data-autoplay="client">
{{range .}}<li><img src="{{.Image}}" alt=""><h2>{{.Title}}</h2><p>{{.Subtitle}}</p></li>
{{end}}</ol>
<a href="/home">Get Started</a>
`))
