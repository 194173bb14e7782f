package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid covers every verification failure: bad signature,
	// malformed payload, wrong issuer, or expiry.
	ErrTokenInvalid = errors.New("invalid session token")
)

// Config holds the signing parameters for session tokens.
type Config struct {
	// Secret is the HS256 signing key. At least 32 bytes.
	Secret []byte
	// TTL bounds how long a confirmed verification keeps a session
	// authenticated.
	TTL time.Duration
	// Issuer is stamped into and required from every token.
	Issuer string
	// Leeway tolerates clock skew during expiry checks.
	Leeway time.Duration
}

// SessionClaims is the complete claim set of an authenticated-session token.
type SessionClaims struct {
	// Name is the display name captured at verification time, empty for
	// signup-flow confirmations that have not completed a profile yet.
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies session tokens. Immutable after construction.
type Manager struct {
	config Config
}

// NewManager validates the config and returns a ready manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token TTL must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token leeway must be between 0 and 2m")
	}
	if cfg.Issuer == "" {
		return nil, errors.New("token issuer must not be empty")
	}
	return &Manager{config: cfg}, nil
}

// Create signs a fresh session token carrying the display name.
func (m *Manager) Create(name string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer, and expiry, and returns the display name.
func (m *Manager) Verify(tokenString string) (string, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return m.config.Secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.config.Issuer),
		jwt.WithLeeway(m.config.Leeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return "", ErrTokenInvalid
	}
	return claims.Name, nil
}
