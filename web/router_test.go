package web

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	careauth "github.com/trygve-health/careauth"
)

type flowFixture struct {
	server     *httptest.Server
	client     *http.Client
	challenger *careauth.DevChallenger
	sink       *careauth.ChannelSink
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	challenger := careauth.NewDevChallenger()
	sink := careauth.NewChannelSink(64)

	engine, err := careauth.New().
		WithConfig(testWebConfig()).
		WithRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})).
		WithChallenger(challenger).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	server := httptest.NewServer(NewHandler(engine, nil).Router())
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar.New failed: %v", err)
	}

	return &flowFixture{
		server:     server,
		client:     &http.Client{Jar: jar},
		challenger: challenger,
		sink:       sink,
	}
}

func testWebConfig() careauth.Config {
	return careauth.Config{
		Challenge: careauth.ChallengeConfig{CountryCode: "+91"},
		Session: careauth.SessionConfig{
			TTL:         600 * time.Second,
			RedisPrefix: "avs",
		},
		Directory: careauth.DirectoryConfig{
			UsersKey:   "auth:users",
			ProfileKey: "auth:profile",
		},
		Token: careauth.TokenConfig{
			Secret: "0123456789abcdef0123456789abcdef",
			TTL:    time.Hour,
			Issuer: "careauth",
			Leeway: 30 * time.Second,
		},
		Provenance: careauth.ProvenanceConfig{
			TTL:         2 * time.Minute,
			RedisPrefix: "apt",
		},
		Audit: careauth.AuditConfig{
			Enabled:    true,
			BufferSize: 64,
			DropIfFull: false,
		},
		Metrics: careauth.MetricsConfig{Enabled: true},
	}
}

// currentCode waits for the next issued-challenge audit event and reads its
// code from the development challenger.
func (f *flowFixture) currentCode(t *testing.T) string {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-f.sink.Events():
			ref, ok := event.Metadata["challenge_ref"]
			if !ok {
				continue
			}
			code, ok := f.challenger.IssuedCode(ref)
			if !ok {
				t.Fatalf("no code behind challenge %q", ref)
			}
			return code
		case <-deadline:
			t.Fatal("no challenge issued within deadline")
		}
	}
}

func (f *flowFixture) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()

	resp, err := f.client.PostForm(f.server.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func (f *flowFixture) submitCode(t *testing.T, code string) *http.Response {
	t.Helper()

	form := url.Values{}
	for i := 0; i < len(code); i++ {
		form.Set("code"+string(rune('1'+i)), string(code[i]))
	}
	return f.postForm(t, "/otp-verify", form)
}

func finalPath(resp *http.Response) string {
	return resp.Request.URL.Path
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()

	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return string(data)
}

func TestSignupFlowOverHTTP(t *testing.T) {
	f := newFlowFixture(t)

	resp := f.postForm(t, "/signup", url.Values{"phone": {"9876543210"}})
	if finalPath(resp) != "/otp-verify" {
		t.Fatalf("signup landed on %s, want /otp-verify", finalPath(resp))
	}
	body := readBody(t, resp)
	if !strings.Contains(body, "9876543210") {
		t.Error("verification page does not show the phone")
	}

	resp = f.submitCode(t, f.currentCode(t))
	if finalPath(resp) != "/create-account" {
		t.Fatalf("code confirm landed on %s, want /create-account", finalPath(resp))
	}
	readBody(t, resp)

	resp = f.postForm(t, "/create-account", url.Values{
		"fullName":       {"Asha Rao"},
		"email":          {"asha@example.com"},
		"location":       {"Bengaluru"},
		"secondaryPhone": {"9876543210"},
	})
	if finalPath(resp) != "/back-to-login" {
		t.Fatalf("profile submit landed on %s, want /back-to-login", finalPath(resp))
	}
	body = readBody(t, resp)
	if !strings.Contains(body, "Asha Rao") {
		t.Error("confirmation page does not greet the new account")
	}
}

func TestLoginFlowOverHTTP(t *testing.T) {
	f := newFlowFixture(t)

	// Register first, through the same surface.
	f.postForm(t, "/signup", url.Values{"phone": {"9876543210"}}).Body.Close()
	f.submitCode(t, f.currentCode(t)).Body.Close()
	f.postForm(t, "/create-account", url.Values{
		"fullName":       {"Asha Rao"},
		"email":          {"asha@example.com"},
		"secondaryPhone": {"9876543210"},
	}).Body.Close()

	resp := f.postForm(t, "/login", url.Values{
		"email": {"asha@example.com"},
		"phone": {"9876543210"},
	})
	if finalPath(resp) != "/otp-verify" {
		t.Fatalf("login landed on %s, want /otp-verify", finalPath(resp))
	}
	readBody(t, resp)

	resp = f.submitCode(t, f.currentCode(t))
	if finalPath(resp) != "/welcome" {
		t.Fatalf("code confirm landed on %s, want /welcome", finalPath(resp))
	}
	body := readBody(t, resp)
	if !strings.Contains(body, "Welcome") {
		t.Error("welcome page missing greeting")
	}

	resp = f.postForm(t, "/welcome", url.Values{})
	if finalPath(resp) != "/dashboard" {
		t.Fatalf("welcome continue landed on %s, want /dashboard", finalPath(resp))
	}
	body = readBody(t, resp)
	if !strings.Contains(body, "Asha Rao") {
		t.Error("dashboard does not greet the user")
	}
}

func TestLoginRejectionRendersFormError(t *testing.T) {
	f := newFlowFixture(t)

	resp := f.postForm(t, "/login", url.Values{
		"email": {"nobody@example.com"},
		"phone": {"1112223334"},
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	body := readBody(t, resp)
	if !strings.Contains(body, "No account found") {
		t.Error("rejection page missing error message")
	}
}

func TestWrongCodeStaysOnVerificationPage(t *testing.T) {
	f := newFlowFixture(t)

	f.postForm(t, "/signup", url.Values{"phone": {"9876543210"}}).Body.Close()
	code := f.currentCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	resp := f.submitCode(t, wrong)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	body := readBody(t, resp)
	if !strings.Contains(body, "Incorrect OTP") {
		t.Error("wrong-code page missing error message")
	}

	// The attempt is still pending: the right code completes it.
	resp = f.submitCode(t, code)
	if finalPath(resp) != "/create-account" {
		t.Fatalf("retry landed on %s, want /create-account", finalPath(resp))
	}
	resp.Body.Close()
}

func TestDashboardGuardsDeepLinks(t *testing.T) {
	f := newFlowFixture(t)

	resp, err := f.client.Get(f.server.URL + "/dashboard")
	if err != nil {
		t.Fatalf("GET /dashboard failed: %v", err)
	}
	defer resp.Body.Close()
	if finalPath(resp) != "/login" {
		t.Errorf("unauthenticated dashboard landed on %s, want /login", finalPath(resp))
	}
}

func TestVerificationPageWithoutSessionRedirects(t *testing.T) {
	f := newFlowFixture(t)

	resp, err := f.client.Get(f.server.URL + "/otp-verify")
	if err != nil {
		t.Fatalf("GET /otp-verify failed: %v", err)
	}
	defer resp.Body.Close()
	if finalPath(resp) != "/login" {
		t.Errorf("bare verification page landed on %s, want /login", finalPath(resp))
	}
}
