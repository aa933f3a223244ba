package authcore

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full engine configuration. Zero values are filled in by
// [defaultConfig]; [Config.Validate] runs at Build time.
type Config struct {
	JWT           JWTConfig
	Password      PasswordConfig
	TOTP          TOTPConfig
	Verification  VerificationConfig
	PasswordReset PasswordResetConfig
	Login         LoginConfig
	Providers     ProvidersConfig
	Guard         GuardConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

// JWTConfig controls the signed-token codec.
type JWTConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	Secret        []byte // hs256 signing secret
	PrivateKey    []byte // ed25519 private key
	PublicKey     []byte // ed25519 public key
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	PendingTTL    time.Duration // 2FA-pending challenge lifetime
	Leeway        time.Duration
}

// PasswordConfig carries the argon2id work factors and the password policy
// bounds enforced at registration, change, and reset.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
	MaxLength   int
}

// TOTPConfig controls two-factor code generation and verification.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Skew      int // accepted drift in time steps on each side
	Algorithm string
}

// VerificationConfig controls email-verification action tokens.
type VerificationConfig struct {
	TokenTTL time.Duration
}

// PasswordResetConfig controls password-reset action tokens.
type PasswordResetConfig struct {
	TokenTTL time.Duration
}

// LoginConfig holds lockout policy constants. The engine does not implement
// rate limiting or lockout itself; these values are surfaced for the boundary
// layer that does.
type LoginConfig struct {
	MaxAttempts   int
	LockoutWindow time.Duration
}

// ProvidersConfig is the OAuth capability map built once at startup. A
// provider disabled here rejects every related operation with
// [ErrProviderDisabled].
type ProvidersConfig struct {
	Google   bool
	Facebook bool
}

// Enabled reports whether the given provider is switched on.
func (p ProvidersConfig) Enabled(provider Provider) bool {
	switch provider {
	case ProviderGoogle:
		return p.Google
	case ProviderFacebook:
		return p.Facebook
	default:
		return false
	}
}

// GuardConfig controls the optional Redis-backed replay guard on 2FA-pending
// challenges. It is active only when a Redis client is supplied to the
// builder.
type GuardConfig struct {
	RedisPrefix string
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: "hs256",
			Issuer:        "authcore",
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			PendingTTL:    5 * time.Minute,
			Leeway:        30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   8,
			MaxLength:   128,
		},
		TOTP: TOTPConfig{
			Issuer:    "authcore",
			Digits:    6,
			Period:    30,
			Skew:      1,
			Algorithm: "SHA1",
		},
		Verification:  VerificationConfig{TokenTTL: 24 * time.Hour},
		PasswordReset: PasswordResetConfig{TokenTTL: time.Hour},
		Login: LoginConfig{
			MaxAttempts:   5,
			LockoutWindow: 15 * time.Minute,
		},
		Guard: GuardConfig{RedisPrefix: "acg"},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Validate rejects configurations the engine cannot run safely with.
func (c Config) Validate() error {
	switch c.JWT.SigningMethod {
	case "hs256":
		if len(c.JWT.Secret) < 32 {
			return errors.New("jwt secret must be at least 32 bytes for hs256")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires private and public key")
		}
	default:
		return errors.New("unsupported jwt signing method")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 || c.JWT.PendingTTL <= 0 {
		return errors.New("jwt TTLs must be positive")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("refresh TTL must exceed access TTL")
	}
	if c.Password.MinLength < 8 {
		return errors.New("password MinLength must be at least 8")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("password MaxLength must be >= MinLength")
	}
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 8 {
		return errors.New("totp digits must be 6..8")
	}
	if c.TOTP.Period <= 0 || c.TOTP.Skew < 0 {
		return errors.New("invalid totp period/skew")
	}
	if c.Verification.TokenTTL <= 0 || c.PasswordReset.TokenTTL <= 0 {
		return errors.New("action token TTLs must be positive")
	}
	return nil
}

type envConfig struct {
	SigningSecret     string        `env:"AUTH_SIGNING_SECRET,required"`
	Issuer            string        `env:"AUTH_ISSUER" envDefault:"authcore"`
	AccessTTL         time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"15m"`
	RefreshTTLDays    int           `env:"AUTH_REFRESH_TTL_DAYS" envDefault:"7"`
	VerificationTTL   time.Duration `env:"AUTH_VERIFICATION_TTL" envDefault:"24h"`
	ResetTTL          time.Duration `env:"AUTH_RESET_TTL" envDefault:"1h"`
	TOTPIssuer        string        `env:"AUTH_TOTP_ISSUER" envDefault:"authcore"`
	TOTPSkew          int           `env:"AUTH_TOTP_SKEW" envDefault:"1"`
	PasswordMinLength int           `env:"AUTH_PASSWORD_MIN_LENGTH" envDefault:"8"`
	PasswordMaxLength int           `env:"AUTH_PASSWORD_MAX_LENGTH" envDefault:"128"`
	MaxLoginAttempts  int           `env:"AUTH_MAX_LOGIN_ATTEMPTS" envDefault:"5"`
	GoogleEnabled     bool          `env:"AUTH_PROVIDER_GOOGLE" envDefault:"false"`
	FacebookEnabled   bool          `env:"AUTH_PROVIDER_FACEBOOK" envDefault:"false"`
}

// ConfigFromEnv builds a Config from environment variables, starting from
// defaults. The capability map for OAuth providers is fixed here, at startup,
// rather than derived from nullable provider wiring at request time.
func ConfigFromEnv() (Config, error) {
	var e envConfig
	if err := env.Parse(&e); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	cfg.JWT.Secret = []byte(e.SigningSecret)
	cfg.JWT.Issuer = e.Issuer
	cfg.JWT.AccessTTL = e.AccessTTL
	cfg.JWT.RefreshTTL = time.Duration(e.RefreshTTLDays) * 24 * time.Hour
	cfg.Verification.TokenTTL = e.VerificationTTL
	cfg.PasswordReset.TokenTTL = e.ResetTTL
	cfg.TOTP.Issuer = e.TOTPIssuer
	cfg.TOTP.Skew = e.TOTPSkew
	cfg.Password.MinLength = e.PasswordMinLength
	cfg.Password.MaxLength = e.PasswordMaxLength
	cfg.Login.MaxAttempts = e.MaxLoginAttempts
	cfg.Providers.Google = e.GoogleEnabled
	cfg.Providers.Facebook = e.FacebookEnabled

	return cfg, cfg.Validate()
}
