package careauth

import (
	"context"
	"errors"
	"testing"
)

func TestSignupFlowEndToEnd(t *testing.T) {
	engine, _, challenger := newTestEngine(t, testConfig())
	ctx := WithClientID(context.Background(), "client-1")

	result, err := engine.StartSignup(ctx, "9876543210")
	if err != nil {
		t.Fatalf("StartSignup failed: %v", err)
	}
	if result.Flow != FlowSignup {
		t.Fatalf("Flow = %v, want FlowSignup", result.Flow)
	}

	code := issuedCodeFor(t, engine, challenger, result.SessionID)
	verified, err := engine.ConfirmCode(ctx, result.SessionID, code)
	if err != nil {
		t.Fatalf("ConfirmCode failed: %v", err)
	}
	if verified.NextRoute != "/create-account" {
		t.Errorf("NextRoute = %q, want /create-account", verified.NextRoute)
	}

	name, err := engine.CompleteSignup(ctx, Profile{
		FullName:       "Asha Rao",
		Email:          "asha@example.com",
		Location:       "Bengaluru",
		SecondaryPhone: "9876543210",
	})
	if err != nil {
		t.Fatalf("CompleteSignup failed: %v", err)
	}
	if name != "Asha Rao" {
		t.Errorf("CompleteSignup name = %q", name)
	}

	// The identity is in the directory and the confirmation marker is set.
	found, err := engine.directory.Exists(ctx, "9876543210")
	if err != nil || !found {
		t.Fatalf("directory Exists = %v, %v after signup", found, err)
	}
	if _, err := engine.ConsumeProvenance(ctx, StageSignupComplete); err != nil {
		t.Errorf("signup-complete marker missing: %v", err)
	}
}

func TestStartSignupRejectsRegisteredPhone(t *testing.T) {
	engine, _, _ := newTestEngine(t, testConfig())
	seedUser(t, engine, Identity{Email: "asha@example.com", Phone: "9876543210"})

	_, err := engine.StartSignup(context.Background(), "9876543210")
	if !errors.Is(err, ErrIdentityAlreadyRegistered) {
		t.Fatalf("StartSignup = %v, want ErrIdentityAlreadyRegistered", err)
	}

	snap := engine.MetricsSnapshot()
	if got := snap.Counters[MetricSignupRejected]; got != 1 {
		t.Errorf("MetricSignupRejected = %d, want 1", got)
	}
}

func TestCompleteSignupRequiresGate(t *testing.T) {
	engine, _, _ := newTestEngine(t, testConfig())
	profile := Profile{
		FullName:       "Asha Rao",
		Email:          "asha@example.com",
		SecondaryPhone: "9876543210",
	}

	// No client context at all.
	if _, err := engine.CompleteSignup(context.Background(), profile); !errors.Is(err, ErrProfileGateMissing) {
		t.Errorf("CompleteSignup without client = %v, want ErrProfileGateMissing", err)
	}

	// Client context but no verified-code marker.
	ctx := WithClientID(context.Background(), "client-1")
	if _, err := engine.CompleteSignup(ctx, profile); !errors.Is(err, ErrProfileGateMissing) {
		t.Errorf("CompleteSignup without gate = %v, want ErrProfileGateMissing", err)
	}
}

func TestCompleteSignupGateSurvivesValidationFailure(t *testing.T) {
	engine, _, challenger := newTestEngine(t, testConfig())
	ctx := WithClientID(context.Background(), "client-1")

	result, err := engine.StartSignup(ctx, "9876543210")
	if err != nil {
		t.Fatalf("StartSignup failed: %v", err)
	}
	code := issuedCodeFor(t, engine, challenger, result.SessionID)
	if _, err := engine.ConfirmCode(ctx, result.SessionID, code); err != nil {
		t.Fatalf("ConfirmCode failed: %v", err)
	}

	// A bad submission reports the field error and keeps the gate.
	if _, err := engine.CompleteSignup(ctx, Profile{FullName: "Asha2", Email: "asha@example.com", SecondaryPhone: "9876543210"}); !errors.Is(err, ErrInvalidNameCharset) {
		t.Fatalf("CompleteSignup with bad name = %v, want ErrInvalidNameCharset", err)
	}

	if _, err := engine.CompleteSignup(ctx, Profile{FullName: "Asha Rao", Email: "asha@example.com", SecondaryPhone: "9876543210"}); err != nil {
		t.Fatalf("retry after validation failure = %v, want nil", err)
	}
}

func TestCompleteSignupValidatesFields(t *testing.T) {
	engine, _, challenger := newTestEngine(t, testConfig())

	cases := []struct {
		name    string
		profile Profile
		want    error
	}{
		{"bad name", Profile{FullName: "Asha2", Email: "a@b.co", SecondaryPhone: "9876543210"}, ErrInvalidNameCharset},
		{"bad email", Profile{FullName: "Asha Rao", Email: "nope", SecondaryPhone: "9876543210"}, ErrInvalidEmailFormat},
		{"bad phone", Profile{FullName: "Asha Rao", Email: "a@b.co", SecondaryPhone: "12"}, ErrInvalidPhoneLength},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := WithClientID(context.Background(), "client-"+tc.name)

			result, err := engine.StartSignup(ctx, "987654321"+string(rune('0'+i)))
			if err != nil {
				t.Fatalf("StartSignup failed: %v", err)
			}
			code := issuedCodeFor(t, engine, challenger, result.SessionID)
			if _, err := engine.ConfirmCode(ctx, result.SessionID, code); err != nil {
				t.Fatalf("ConfirmCode failed: %v", err)
			}

			if _, err := engine.CompleteSignup(ctx, tc.profile); !errors.Is(err, tc.want) {
				t.Errorf("CompleteSignup = %v, want %v", err, tc.want)
			}
		})
	}
}
