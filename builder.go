package authcore

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
)

// Builder assembles an [Engine]. A builder is single use.
type Builder struct {
	config Config
	store  Store
	email  EmailSender
	redis  *redis.Client
	sink   AuditSink
	clock  func() time.Time

	built bool
}

// New returns a builder preloaded with the default configuration. The signing
// secret, store, and any non-default settings are supplied through the With
// methods before Build.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore sets the persistence backend. Required.
func (b *Builder) WithStore(store Store) *Builder {
	b.store = store
	return b
}

// WithEmailSender sets the outbound email trigger. When absent, operations
// that would send email silently skip the send.
func (b *Builder) WithEmailSender(sender EmailSender) *Builder {
	b.email = sender
	return b
}

// WithRedis enables the one-shot replay guard on 2FA-pending challenges.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithClock overrides the engine's time source. Intended for tests.
func (b *Builder) WithClock(clock func() time.Time) *Builder {
	b.clock = clock
	return b
}

// Build validates the configuration, wires the internal components, and
// returns a ready engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config

	if b.store == nil {
		return nil, errors.New("store required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := &Engine{
		config: cfg,
		store:  b.store,
		email:  b.email,
		now:    b.clock,
	}
	if engine.now == nil {
		engine.now = time.Now
	}

	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
		MaxPassword: cfg.Password.MaxLength,
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = ph

	jm, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		Secret:        cloneBytes(cfg.JWT.Secret),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		PendingTTL:    cfg.JWT.PendingTTL,
		Leeway:        cfg.JWT.Leeway,
		TimeFunc:      engine.now,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = jm

	engine.totp = newTOTPManager(cfg.TOTP)
	engine.guard = newChallengeGuard(b.redis, cfg.Guard.RedisPrefix)
	engine.audit = newAuditDispatcher(cfg.Audit, b.sink)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}

func cloneBytes(in []byte) []byte {
	if in == nil {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}
