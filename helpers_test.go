package careauth

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const testTokenSecret = "0123456789abcdef0123456789abcdef"

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Token.Secret = testTokenSecret
	return cfg
}

// newTestEngine builds a full engine on miniredis with the development
// challenger. The challenger is returned so tests can read issued codes.
func newTestEngine(t *testing.T, cfg Config) (*Engine, *miniredis.Miniredis, *DevChallenger) {
	t.Helper()

	mr, client := newTestRedis(t)
	t.Cleanup(mr.Close)

	challenger := NewDevChallenger()
	engine, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithChallenger(challenger).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, mr, challenger
}

func seedUser(t *testing.T, engine *Engine, identity Identity) {
	t.Helper()

	if err := engine.directory.Insert(context.Background(), identity); err != nil {
		t.Fatalf("seeding user %q: %v", identity.Email, err)
	}
}

// issuedCodeFor digs the current challenge reference out of the stored
// session and asks the development challenger for its code.
func issuedCodeFor(t *testing.T, engine *Engine, challenger *DevChallenger, sessionID string) string {
	t.Helper()

	record, err := engine.sessions.Get(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("reading session %q: %v", sessionID, err)
	}
	code, ok := challenger.IssuedCode(record.ChallengeRef)
	if !ok {
		t.Fatalf("no issued code for challenge %q", record.ChallengeRef)
	}
	return code
}
