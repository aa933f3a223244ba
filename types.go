package authcore

import (
	"context"
	"time"
)

// Role is the coarse authorization role carried inside access tokens.
type Role string

const (
	// RoleUser is the default role assigned at registration.
	RoleUser Role = "user"
	// RoleAdmin marks administrative accounts.
	RoleAdmin Role = "admin"
)

// Provider identifies a supported OAuth identity provider.
type Provider string

const (
	// ProviderGoogle is an exported provider identifier.
	ProviderGoogle Provider = "google"
	// ProviderFacebook is an exported provider identifier.
	ProviderFacebook Provider = "facebook"
)

// Account is a local user identity. PasswordHash is empty for OAuth-only
// accounts; such accounts must hold at least one OAuthLink at all times.
type Account struct {
	ID              string
	Email           string
	Name            string
	PasswordHash    string
	Role            Role
	EmailVerified   bool
	EmailVerifiedAt *time.Time
	TOTPEnabled     bool
	TOTPSecret      []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasPassword reports whether the account can authenticate with a password.
func (a *Account) HasPassword() bool { return a != nil && a.PasswordHash != "" }

// RefreshSession is one refresh-token grant. The plaintext opaque value is
// never stored; TokenHash is its SHA-256. A session is usable only while
// RevokedAt is nil and ExpiresAt is in the future. Rows are append-only: a
// session transitions to revoked exactly once and never back.
type RefreshSession struct {
	ID        string
	AccountID string
	TokenHash string
	UserAgent string
	IP        string
	IssuedAt  time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// ActionTokenKind distinguishes the two single-use action token families.
type ActionTokenKind string

const (
	// TokenKindVerification authorizes marking an email address verified.
	TokenKindVerification ActionTokenKind = "verification"
	// TokenKindReset authorizes a password reset.
	TokenKindReset ActionTokenKind = "reset"
)

// ActionToken is a single-use, time-boxed action grant (email verification or
// password reset). At most one unconsumed token per account per kind exists at
// any time; creating a new one invalidates prior outstanding ones.
type ActionToken struct {
	ID        string
	AccountID string
	Kind      ActionTokenKind
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// OAuthLink binds a third-party identity to an Account. (Provider,
// ProviderUserID) is unique across links; an account holds at most one link
// per provider. Provider tokens are opaque pass-through values.
type OAuthLink struct {
	ID             string
	AccountID      string
	Provider       Provider
	ProviderUserID string
	AccessToken    string
	RefreshToken   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OAuthProfile is the normalized external profile handed in by a provider
// strategy. The engine never talks to the provider network itself.
type OAuthProfile struct {
	Provider       Provider
	ProviderUserID string
	Email          string
	Name           string
	AccessToken    string
	RefreshToken   string
}

// DeviceInfo is optional request metadata recorded on refresh sessions.
type DeviceInfo struct {
	UserAgent string
	IP        string
}

// TokenPair is the transient issuance result of a successful authentication.
// It is never persisted as a unit: the access token is self-verifying and the
// refresh token is stored only as its hash.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Claims is the verified content of an access token, exposed to boundary-layer
// middleware through [Engine.VerifyAccessToken].
type Claims struct {
	AccountID string
	Email     string
	Role      Role
}

// LoginResult is returned by [Engine.Login]. When the account has 2FA enabled
// no TokenPair is issued; instead PendingToken carries a short-lived signed
// challenge to be completed via [Engine.VerifyTwoFactorLogin].
type LoginResult struct {
	RequiresTwoFactor bool
	PendingToken      string
	Account           *Account
	Tokens            *TokenPair
}

// AuthResult is returned by operations that end in a fully authenticated
// session: Register, VerifyTwoFactorLogin, and HandleOAuthLogin.
type AuthResult struct {
	Account   *Account
	Tokens    *TokenPair
	IsNewUser bool
}

// TOTPSetup is the two-phase enrollment material returned by
// [Engine.GenerateTOTPSetup]. The secret is NOT yet persisted; it becomes
// active only after [Engine.EnableTOTP] proves possession with a valid code.
type TOTPSetup struct {
	SecretBase32 string
	OTPAuthURI   string
	QRPayload    string
}

// Profile is the account snapshot returned by [Engine.Profile].
type Profile struct {
	ID              string
	Email           string
	Name            string
	Role            Role
	EmailVerified   bool
	EmailVerifiedAt *time.Time
	TOTPEnabled     bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
	LinkedProviders []Provider
}

// Store is the persistence contract consumed by the engine. Implementations
// back it with a relational store reachable through key-based lookups,
// conditional updates, and a transaction primitive. All methods must be safe
// for concurrent use across unrelated accounts; per-row serialization is
// expressed through the conditional semantics documented per method, never
// through application-level locks.
type Store interface {
	// InTx runs fn against a transactional view of the store. Statements
	// issued inside fn commit atomically; any error aborts and leaves every
	// touched row in its pre-attempt state. Nested InTx calls join the
	// enclosing transaction.
	InTx(ctx context.Context, fn func(Store) error) error

	// CreateAccount inserts a new account. A duplicate email (case-folded)
	// fails with [ErrAccountExists].
	CreateAccount(ctx context.Context, account *Account) error
	// AccountByID returns [ErrAccountNotFound] when absent.
	AccountByID(ctx context.Context, id string) (*Account, error)
	// AccountByEmail looks up by case-folded email and returns
	// [ErrAccountNotFound] when absent.
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	// UpdatePasswordHash replaces the account's password hash.
	UpdatePasswordHash(ctx context.Context, accountID, hash string) error
	// MarkEmailVerified sets the verified flag and timestamp.
	MarkEmailVerified(ctx context.Context, accountID string, at time.Time) error
	// SetTOTP enables or disables 2FA. Secret must be nil when disabling.
	SetTOTP(ctx context.Context, accountID string, enabled bool, secret []byte) error

	// InsertRefreshSession persists a new session row. TokenHash is unique.
	InsertRefreshSession(ctx context.Context, session *RefreshSession) error
	// RevokeRefreshSessionByHash atomically revokes the session with the
	// given token hash if and only if it is still active (RevokedAt nil,
	// ExpiresAt after now) and returns the revoked row. Absent, already
	// revoked, or expired sessions fail with [ErrSessionNotFound]; a caller
	// that race-loses a concurrent rotation observes exactly that error.
	RevokeRefreshSessionByHash(ctx context.Context, tokenHash string, now time.Time) (*RefreshSession, error)
	// RevokeAccountSessions revokes every active session of the account.
	// Idempotent.
	RevokeAccountSessions(ctx context.Context, accountID string, now time.Time) error

	// InsertActionToken persists a new action token row.
	InsertActionToken(ctx context.Context, token *ActionToken) error
	// InvalidateActionTokens marks every unconsumed token of the given kind
	// for the account as used. Idempotent.
	InvalidateActionTokens(ctx context.Context, accountID string, kind ActionTokenKind, now time.Time) error
	// ActionTokenByHash returns [ErrTokenInvalid] when no row matches the
	// kind and hash. Used and expired rows are returned as-is; the engine
	// evaluates their state.
	ActionTokenByHash(ctx context.Context, kind ActionTokenKind, tokenHash string) (*ActionToken, error)
	// MarkActionTokenUsed atomically sets UsedAt if and only if it is still
	// nil, failing with [ErrTokenUsed] otherwise. The conditional write is
	// what makes consumption exactly-once under concurrency.
	MarkActionTokenUsed(ctx context.Context, tokenID string, at time.Time) error

	// OAuthLinkByProvider returns [ErrLinkNotFound] when absent.
	OAuthLinkByProvider(ctx context.Context, provider Provider, providerUserID string) (*OAuthLink, error)
	// OAuthLinksByAccount lists the account's links, possibly empty.
	OAuthLinksByAccount(ctx context.Context, accountID string) ([]OAuthLink, error)
	// CreateOAuthLink inserts a link. (Provider, ProviderUserID) is unique.
	CreateOAuthLink(ctx context.Context, link *OAuthLink) error
	// UpdateOAuthLinkTokens refreshes the cached provider tokens on a link.
	UpdateOAuthLinkTokens(ctx context.Context, linkID, accessToken, refreshToken string) error
	// DeleteOAuthLink removes the account's link for the provider and returns
	// [ErrLinkNotFound] when no such link exists.
	DeleteOAuthLink(ctx context.Context, accountID string, provider Provider) error
}

// EmailKind selects the transactional email template to trigger.
type EmailKind string

const (
	// EmailVerification carries an email-verification token link.
	EmailVerification EmailKind = "verification"
	// EmailPasswordReset carries a password-reset token link.
	EmailPasswordReset EmailKind = "password_reset"
	// EmailWelcome is sent after successful email verification. Token is
	// empty for this kind.
	EmailWelcome EmailKind = "welcome"
)

// EmailSender is the outbound email trigger contract. The engine treats it as
// fire-and-forget: a returned error is audited but never fails the operation
// that triggered the send.
type EmailSender interface {
	Send(ctx context.Context, kind EmailKind, toEmail, toName, token string) error
}
