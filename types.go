package careauth

import (
	"fmt"
	"time"
)

// Flow identifies which onboarding flow owns a verification attempt.
type Flow uint8

const (
	// FlowLogin is the returning-user flow: email + phone, OTP, welcome page.
	FlowLogin Flow = iota + 1
	// FlowSignup is the new-user flow: phone, OTP, profile completion.
	FlowSignup
)

// String implements fmt.Stringer.
func (f Flow) String() string {
	switch f {
	case FlowLogin:
		return "login"
	case FlowSignup:
		return "signup"
	default:
		return fmt.Sprintf("flow(%d)", uint8(f))
	}
}

// Valid reports whether f is one of the defined flows.
func (f Flow) Valid() bool {
	switch f {
	case FlowLogin, FlowSignup:
		return true
	default:
		return false
	}
}

// EntryRoute is where a broken or expired attempt in this flow restarts.
func (f Flow) EntryRoute() string {
	switch f {
	case FlowLogin:
		return "/login"
	case FlowSignup:
		return "/signup"
	default:
		return "/home"
	}
}

// Stage tags a one-shot provenance marker with the step that emitted it.
// Each landing page accepts exactly the stage its predecessor is permitted
// to emit; anything else redirects to the flow entry point.
type Stage uint8

const (
	// StageLogin is emitted by a confirmed login OTP and consumed by /welcome.
	StageLogin Stage = iota + 1
	// StageOTPVerified is emitted by a confirmed signup OTP and consumed by
	// /create-account.
	StageOTPVerified
	// StageWelcome is emitted by the welcome page and consumed by /dashboard.
	StageWelcome
	// StageSignupComplete is emitted by profile completion and consumed by
	// /back-to-login.
	StageSignupComplete
)

// String implements fmt.Stringer.
func (s Stage) String() string {
	switch s {
	case StageLogin:
		return "login"
	case StageOTPVerified:
		return "otp-verified"
	case StageWelcome:
		return "welcome"
	case StageSignupComplete:
		return "signup-complete"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}

// Valid reports whether s is one of the defined stages.
func (s Stage) Valid() bool {
	switch s {
	case StageLogin, StageOTPVerified, StageWelcome, StageSignupComplete:
		return true
	default:
		return false
	}
}

// Identity is a registered user's directory record. Records are append-only:
// the directory never mutates or deletes them.
type Identity struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// Profile carries the fields collected by the profile-completion form after
// a signup OTP confirms.
type Profile struct {
	FullName       string
	Email          string
	Location       string
	SecondaryPhone string
}

// SessionState is the lifecycle state of a verification attempt.
type SessionState uint8

const (
	// StatePending is an issued, unconfirmed attempt.
	StatePending SessionState = iota + 1
	// StateVerified is the terminal success state.
	StateVerified
	// StateExpired is terminal: the attempt outlived its expiry instant.
	StateExpired
	// StateAbandoned is terminal: session data was missing or malformed on
	// page entry.
	StateAbandoned
)

// String implements fmt.Stringer.
func (s SessionState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateVerified:
		return "verified"
	case StateExpired:
		return "expired"
	case StateAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// StartResult is returned when an intent resolves and a challenge is issued.
// SessionID is the opaque handle the verification page presents back.
type StartResult struct {
	SessionID string
	Flow      Flow
	Phone     string
	Email     string
	FullName  string
	ExpiresAt time.Time
}

// VerificationView is what the verification page may render for a live
// pending attempt. The challenge reference and code never leave the engine.
type VerificationView struct {
	State    SessionState
	Flow     Flow
	Phone    string
	Email    string
	FullName string
}

// VerifyResult is returned when a code confirms. Token is the signed
// authenticated-session flag; NextRoute is where the flow continues.
type VerifyResult struct {
	Flow      Flow
	Name      string
	Token     string
	NextRoute string
}
