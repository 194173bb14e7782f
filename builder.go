package careauth

import (
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/trygve-health/careauth/token"
)

// Builder assembles an [Engine]. Construction is allocation-only; no I/O
// happens until the first flow call.
type Builder struct {
	config      Config
	redis       *redis.Client
	challenger  Challenger
	botVerifier BotVerifier
	auditSink   AuditSink
	log         *slog.Logger

	built bool
}

// New returns a builder preloaded with default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the storage backend shared by the directory, the
// verification session store, and the provenance store.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithChallenger sets the phone-verification provider.
func (b *Builder) WithChallenger(c Challenger) *Builder {
	b.challenger = c
	return b
}

// WithBotVerifier sets the bot-check token source. Defaults to a static
// no-op verifier.
func (b *Builder) WithBotVerifier(v BotVerifier) *Builder {
	b.botVerifier = v
	return b
}

// WithAuditSink sets the destination for flow audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func (b *Builder) WithLogger(log *slog.Logger) *Builder {
	b.log = log
	return b
}

// Build validates the configuration and wires the engine. A builder builds
// exactly once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.challenger == nil {
		return nil, errors.New("challenge provider is required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	log := b.log
	if log == nil {
		log = slog.Default()
	}
	botVerifier := b.botVerifier
	if botVerifier == nil {
		botVerifier = StaticBotVerifier("")
	}

	tokens, err := token.NewManager(token.Config{
		Secret: []byte(b.config.Token.Secret),
		TTL:    b.config.Token.TTL,
		Issuer: b.config.Token.Issuer,
		Leeway: b.config.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	b.built = true
	return &Engine{
		config:      b.config,
		directory:   newUserDirectory(b.redis, b.config.Directory, log),
		sessions:    newVerificationStore(b.redis, b.config.Session.RedisPrefix),
		provenance:  newProvenanceStore(b.redis, b.config.Provenance),
		challenger:  b.challenger,
		botVerifier: botVerifier,
		tokens:      tokens,
		audit:       newAuditDispatcher(b.config.Audit, b.auditSink),
		metrics:     NewMetrics(b.config.Metrics),
		log:         log,
	}, nil
}
