package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	careauth "github.com/trygve-health/careauth"
	"github.com/trygve-health/careauth/token"
)

func newGuardTestEngine(t *testing.T) *careauth.Engine {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	engine, err := careauth.New().
		WithRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()})).
		WithChallenger(careauth.NewDevChallenger()).
		WithConfig(guardTestConfig()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine
}

const guardTestSecret = "0123456789abcdef0123456789abcdef"

func guardTestConfig() careauth.Config {
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
			Secret: guardTestSecret,
			TTL:    time.Hour,
			Issuer: "careauth",
			Leeway: 30 * time.Second,
		},
		Provenance: careauth.ProvenanceConfig{
			TTL:         2 * time.Minute,
			RedisPrefix: "apt",
		},
	}
}

// mintToken signs a session token the same way a confirmed code does.
func mintToken(t *testing.T, name string) string {
	t.Helper()

	manager, err := token.NewManager(token.Config{
		Secret: []byte(guardTestSecret),
		TTL:    time.Hour,
		Issuer: "careauth",
		Leeway: 30 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	signed, err := manager.Create(name)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return signed
}

// guardedProbe records whether the guard let the request through and what
// name it attached.
type guardedProbe struct {
	served bool
	name   string
}

func (p *guardedProbe) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.served = true
		p.name, _ = SessionName(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func authenticate(t *testing.T, engine *careauth.Engine, ctx context.Context, name string) string {
	t.Helper()

	if err := engine.EmitProvenance(ctx, careauth.StageWelcome, name); err != nil {
		t.Fatalf("EmitProvenance failed: %v", err)
	}
	return mintToken(t, name)
}

func TestGuardAdmitsAuthenticatedArrival(t *testing.T) {
	engine := newGuardTestEngine(t)
	ctx := careauth.WithClientID(context.Background(), "client-1")

	token := authenticate(t, engine, ctx, "Asha Rao")

	probe := &guardedProbe{}
	handler := Guard(engine, careauth.StageWelcome)(probe.handler())

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil).WithContext(ctx)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !probe.served {
		t.Fatalf("guard rejected a valid arrival: status %d", rec.Code)
	}
	if probe.name != "Asha Rao" {
		t.Errorf("SessionName = %q, want Asha Rao", probe.name)
	}
}

func TestGuardRedirectsWithoutToken(t *testing.T) {
	engine := newGuardTestEngine(t)

	probe := &guardedProbe{}
	handler := Guard(engine, careauth.StageWelcome)(probe.handler())

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if probe.served {
		t.Fatal("guard admitted a request with no session cookie")
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Errorf("status=%d location=%q, want redirect to /login", rec.Code, rec.Header().Get("Location"))
	}
}

func TestGuardRedirectsWithoutProvenance(t *testing.T) {
	engine := newGuardTestEngine(t)
	ctx := careauth.WithClientID(context.Background(), "client-1")

	// Valid token, but no marker: a deep link into the middle of the flow.
	token := mintToken(t, "Asha Rao")

	probe := &guardedProbe{}
	handler := Guard(engine, careauth.StageWelcome)(probe.handler())

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil).WithContext(ctx)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if probe.served {
		t.Fatal("guard admitted a replayed session flag")
	}
	if rec.Header().Get("Location") != "/login" {
		t.Errorf("location = %q, want /login", rec.Header().Get("Location"))
	}
}

func TestGuardRejectsForgedToken(t *testing.T) {
	engine := newGuardTestEngine(t)
	ctx := careauth.WithClientID(context.Background(), "client-1")

	probe := &guardedProbe{}
	handler := Guard(engine, careauth.StageWelcome)(probe.handler())

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil).WithContext(ctx)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: "forged.token.value"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if probe.served {
		t.Fatal("guard admitted a forged token")
	}
}

func TestClientContextMintsCookie(t *testing.T) {
	var gotID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = careauth.ClientIDFromContext(r.Context())
	})

	rec := httptest.NewRecorder()
	ClientContext(inner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if gotID == "" {
		t.Fatal("no client ID attached to context")
	}
	cookies := rec.Result().Cookies()
	var minted *http.Cookie
	for _, c := range cookies {
		if c.Name == ClientCookie {
			minted = c
		}
	}
	if minted == nil || minted.Value != gotID {
		t.Fatalf("client cookie not set to context ID: %+v", minted)
	}
}

func TestClientContextKeepsExistingCookie(t *testing.T) {
	var gotID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = careauth.ClientIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ClientCookie, Value: "client-1"})
	rec := httptest.NewRecorder()
	ClientContext(inner).ServeHTTP(rec, req)

	if gotID != "client-1" {
		t.Errorf("client ID = %q, want client-1", gotID)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == ClientCookie {
			t.Error("cookie re-minted for a request that already had one")
		}
	}
}
