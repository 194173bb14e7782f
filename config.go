package careauth

import (
	"errors"
	"strings"
	"time"
)

// otpDigits is the fixed challenge code length. The entry widget, the dev
// provider, and the confirm path all assume exactly six cells.
const otpDigits = 6

// Config carries every tunable of the flow engine. Zero values are filled by
// defaultConfig; env tags allow loading with caarlos0/env in the server
// binary.
type Config struct {
	Challenge  ChallengeConfig
	Session    SessionConfig
	Directory  DirectoryConfig
	Token      TokenConfig
	Provenance ProvenanceConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig controls how phone challenges are addressed.
type ChallengeConfig struct {
	// CountryCode is prefixed to the 10-digit national number when a
	// challenge is issued. Single fixed code; internationalization is out
	// of scope.
	CountryCode string `env:"AUTH_COUNTRY_CODE" envDefault:"+91"`
}

/*
====================================
VERIFICATION SESSION CONFIG
====================================
*/

// SessionConfig controls in-flight verification session storage.
type SessionConfig struct {
	// TTL bounds a verification attempt from issue to confirm. The expiry
	// instant is stored on the record and checked on every read; resend
	// does not extend it.
	TTL         time.Duration `env:"AUTH_SESSION_TTL" envDefault:"600s"`
	RedisPrefix string        `env:"AUTH_SESSION_PREFIX" envDefault:"avs"`
}

/*
====================================
DIRECTORY CONFIG
====================================
*/

// DirectoryConfig names the durable directory records.
type DirectoryConfig struct {
	UsersKey   string `env:"AUTH_USERS_KEY" envDefault:"auth:users"`
	ProfileKey string `env:"AUTH_PROFILE_KEY" envDefault:"auth:profile"`
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls the signed authenticated-session flag.
type TokenConfig struct {
	Secret string        `env:"AUTH_TOKEN_SECRET"`
	TTL    time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"24h"`
	Issuer string        `env:"AUTH_TOKEN_ISSUER" envDefault:"careauth"`
	Leeway time.Duration `env:"AUTH_TOKEN_LEEWAY" envDefault:"30s"`
}

/*
====================================
PROVENANCE CONFIG
====================================
*/

// ProvenanceConfig controls one-shot navigation markers. TTL only has to
// cover the gap between emitting a marker and the next page load.
type ProvenanceConfig struct {
	TTL         time.Duration `env:"AUTH_PROVENANCE_TTL" envDefault:"2m"`
	RedisPrefix string        `env:"AUTH_PROVENANCE_PREFIX" envDefault:"apt"`
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `env:"AUTH_AUDIT_ENABLED" envDefault:"true"`
	BufferSize int  `env:"AUTH_AUDIT_BUFFER" envDefault:"256"`
	DropIfFull bool `env:"AUTH_AUDIT_DROP_IF_FULL" envDefault:"true"`
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process flow counters.
type MetricsConfig struct {
	Enabled bool `env:"AUTH_METRICS_ENABLED" envDefault:"true"`
}

func defaultConfig() Config {
	return Config{
		Challenge: ChallengeConfig{
			CountryCode: "+91",
		},
		Session: SessionConfig{
			TTL:         600 * time.Second,
			RedisPrefix: "avs",
		},
		Directory: DirectoryConfig{
			UsersKey:   "auth:users",
			ProfileKey: "auth:profile",
		},
		Token: TokenConfig{
			TTL:    24 * time.Hour,
			Issuer: "careauth",
			Leeway: 30 * time.Second,
		},
		Provenance: ProvenanceConfig{
			TTL:         2 * time.Minute,
			RedisPrefix: "apt",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations that would misbehave at runtime rather
// than failing lazily inside a flow.
func (c Config) Validate() error {
	cc := strings.TrimSpace(c.Challenge.CountryCode)
	if !strings.HasPrefix(cc, "+") || len(cc) < 2 || len(cc) > 4 {
		return errors.New("challenge country code must be + followed by 1-3 digits")
	}
	for _, r := range cc[1:] {
		if r < '0' || r > '9' {
			return errors.New("challenge country code must be + followed by 1-3 digits")
		}
	}
	if c.Session.TTL < 30*time.Second || c.Session.TTL > time.Hour {
		return errors.New("session TTL must be between 30s and 1h")
	}
	if c.Session.RedisPrefix == "" {
		return errors.New("session redis prefix must not be empty")
	}
	if c.Directory.UsersKey == "" || c.Directory.ProfileKey == "" {
		return errors.New("directory keys must not be empty")
	}
	if c.Directory.UsersKey == c.Directory.ProfileKey {
		return errors.New("directory users and profile keys must differ")
	}
	if len(c.Token.Secret) < 32 {
		return errors.New("token secret must be at least 32 bytes")
	}
	if c.Token.TTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("token leeway must be between 0 and 2m")
	}
	if c.Provenance.TTL < 10*time.Second || c.Provenance.TTL > 10*time.Minute {
		return errors.New("provenance TTL must be between 10s and 10m")
	}
	if c.Provenance.RedisPrefix == "" {
		return errors.New("provenance redis prefix must not be empty")
	}
	if c.Provenance.RedisPrefix == c.Session.RedisPrefix {
		return errors.New("provenance and session redis prefixes must differ")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive when audit is enabled")
	}
	return nil
}
