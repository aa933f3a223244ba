package authcore

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures so boundary layers can map them to
// transport responses without inspecting message text.
type ErrorKind uint8

const (
	// KindValidation marks malformed input or policy violations.
	KindValidation ErrorKind = iota + 1
	// KindAuthentication marks bad credentials and invalid, expired, or
	// reused tokens. Deliberately undifferentiated to avoid oracle attacks.
	KindAuthentication
	// KindAuthorization marks operations the account is not allowed to
	// perform, such as logging in before email verification.
	KindAuthorization
	// KindConflict marks state conflicts: duplicate email, 2FA already
	// enabled, unlinking the last remaining authentication method.
	KindConflict
	// KindNotFound marks absent referenced entities. Most account-existence
	// checks are folded into KindAuthentication before reaching a caller.
	KindNotFound
)

// Error is the typed error returned by every Engine operation. Raw store or
// codec errors are never surfaced; they are wrapped or normalized here.
type Error struct {
	kind ErrorKind
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Kind reports the taxonomy class of the error.
func (e *Error) Kind() ErrorKind { return e.kind }

func newError(kind ErrorKind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// IsKind reports whether err (or anything it wraps) is an engine [Error] of
// the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.kind == kind
}

var (
	// ErrInvalidCredentials covers unknown email, missing password hash, and
	// wrong password. One sentinel for all three closes the enumeration oracle.
	ErrInvalidCredentials = newError(KindAuthentication, "invalid credentials")
	// ErrEmailNotVerified rejects password login before email verification.
	ErrEmailNotVerified = newError(KindAuthorization, "email not verified")
	// ErrTokenInvalid covers signature, expiry, kind-tag, and replay failures
	// on signed tokens, plus unknown opaque token hashes.
	ErrTokenInvalid = newError(KindAuthentication, "invalid token")
	// ErrTokenUsed rejects a single-use action token that was already consumed.
	ErrTokenUsed = newError(KindValidation, "token already used")
	// ErrTokenExpired rejects a single-use action token past its expiry.
	ErrTokenExpired = newError(KindValidation, "token expired")
	// ErrSessionNotFound is the internal result of a refresh-session lookup
	// miss or rotation race loss; callers see it normalized to ErrTokenInvalid.
	ErrSessionNotFound = newError(KindNotFound, "refresh session not found")
	// ErrPasswordPolicy rejects passwords failing length or character-class
	// requirements.
	ErrPasswordPolicy = newError(KindValidation, "password policy violation")
	// ErrAccountExists rejects registration with an email already registered.
	ErrAccountExists = newError(KindConflict, "email already registered")
	// ErrAccountNotFound marks an absent account referenced by id.
	ErrAccountNotFound = newError(KindNotFound, "account not found")
	// ErrNoPassword rejects password operations on an OAuth-only account.
	ErrNoPassword = newError(KindValidation, "account has no password set")
	// ErrPasswordAlreadySet rejects SetPassword when a password exists.
	ErrPasswordAlreadySet = newError(KindConflict, "password already set")
	// ErrTOTPInvalid rejects a bad TOTP code on enrollment and disable calls.
	// 2FA login failures collapse into ErrTokenInvalid instead.
	ErrTOTPInvalid = newError(KindAuthentication, "invalid totp code")
	// ErrTOTPAlreadyEnabled rejects enrollment when 2FA is already active.
	ErrTOTPAlreadyEnabled = newError(KindConflict, "totp already enabled")
	// ErrTOTPNotEnabled rejects management calls on an account without 2FA.
	ErrTOTPNotEnabled = newError(KindConflict, "totp not enabled")
	// ErrEmailAlreadyVerified rejects a verification resend for a verified
	// account.
	ErrEmailAlreadyVerified = newError(KindConflict, "email already verified")
	// ErrLastAuthMethod guards unlink: an account must always retain at least
	// one authentication method.
	ErrLastAuthMethod = newError(KindConflict, "cannot remove last authentication method")
	// ErrProviderDisabled rejects OAuth operations for a provider that was not
	// enabled at startup.
	ErrProviderDisabled = newError(KindValidation, "oauth provider not enabled")
	// ErrLinkNotFound marks an absent OAuth link on unlink.
	ErrLinkNotFound = newError(KindNotFound, "oauth link not found")
	// ErrEngineNotReady is returned by methods on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// storeFailure wraps an unexpected store error for operator logs. It is never
// returned with a typed kind attached, so backend detail cannot be mapped to a
// user-visible response.
func storeFailure(op string, err error) error {
	return fmt.Errorf("authcore: %s: %w", op, err)
}
