package jwt

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with an HMAC-SHA256 shared secret.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 key pair.
	MethodEd25519 SigningMethod = "ed25519"
)

// Kind tags each signed token with its intended use. Verify rejects a token
// whose kind does not match the expected one, so an access token can never be
// replayed as a 2FA challenge or a refresh envelope.
type Kind string

const (
	// KindAccess marks short-lived access tokens.
	KindAccess Kind = "access"
	// KindRefresh marks the signed envelope carrying an opaque refresh value.
	KindRefresh Kind = "refresh"
	// KindTwoFactorPending marks a login awaiting its second factor.
	KindTwoFactorPending Kind = "2fa_pending"
)

// ErrTokenInvalid is the single failure result of Verify. Expiry, tampering,
// kind mismatch, and malformed input are deliberately indistinguishable.
var ErrTokenInvalid = errors.New("invalid token")

// Config holds the signing material and per-kind lifetimes.
type Config struct {
	SigningMethod SigningMethod
	Secret        []byte // hs256
	PrivateKey    ed25519.PrivateKey
	PublicKey     ed25519.PublicKey
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	PendingTTL    time.Duration
	Leeway        time.Duration
	TimeFunc      func() time.Time // expiry evaluation clock; defaults to time.Now
}

// Claims is the payload carried by every signed token kind. Fields unused by
// a kind are left empty: pending tokens carry no role, refresh envelopes carry
// the opaque value, access tokens carry email and role.
type Claims struct {
	Kind   Kind   `json:"knd"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Opaque string `json:"token,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies tokens. Immutable after construction.
type Manager struct {
	config Config
}

// NewManager validates the configuration and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.PendingTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.Secret) == 0 {
			return nil, errors.New("hs256 requires a secret")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) != ed25519.PrivateKeySize {
			return nil, errors.New("invalid ed25519 private key")
		}
		if len(cfg.PublicKey) != ed25519.PublicKeySize {
			return nil, errors.New("invalid ed25519 public key")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	return &Manager{config: cfg}, nil
}

// SignAccess mints an access token for the subject.
func (m *Manager) SignAccess(subject, email, role string, now time.Time) (string, time.Time, error) {
	return m.signClaims(Claims{Kind: KindAccess, Email: email, Role: role}, subject, now, m.config.AccessTTL)
}

// SignRefresh wraps an opaque refresh value in a signed envelope bound to the
// subject. A stolen database hash alone cannot be replayed without this
// wrapper, and the wrapper alone is useless without the matching stored hash.
func (m *Manager) SignRefresh(subject, opaque string, now time.Time) (string, time.Time, error) {
	return m.signClaims(Claims{Kind: KindRefresh, Opaque: opaque}, subject, now, m.config.RefreshTTL)
}

// SignPending mints the short-lived challenge returned when a password login
// still requires its second factor. The returned id is the token's jti, used
// by the optional replay guard.
func (m *Manager) SignPending(subject, id string, now time.Time) (string, error) {
	claims := Claims{
		Kind: KindTwoFactorPending,
		RegisteredClaims: jwt.RegisteredClaims{
			ID: id,
		},
	}
	token, _, err := m.signClaims(claims, subject, now, m.config.PendingTTL)
	return token, err
}

func (m *Manager) signClaims(claims Claims, subject string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	claims.Subject = subject
	claims.Issuer = m.config.Issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(expiresAt)

	token := jwt.NewWithClaims(m.method(), claims)
	signed, err := token.SignedString(m.signKey())
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature, expiry, issuer, and the kind tag. Every failure
// collapses to [ErrTokenInvalid].
func (m *Manager) Verify(tokenStr string, expected Kind) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.TimeFunc != nil {
		options = append(options, jwt.WithTimeFunc(m.config.TimeFunc))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return m.verifyKey(), nil
	})
	if err != nil {
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Kind != expected || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (m *Manager) method() jwt.SigningMethod {
	switch m.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (m *Manager) signKey() interface{} {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.Secret
	default:
		return m.config.PrivateKey
	}
}

func (m *Manager) verifyKey() interface{} {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.Secret
	default:
		return m.config.PublicKey
	}
}
