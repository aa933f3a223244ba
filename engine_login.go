package authcore

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MrEthical07/authcore/jwt"
)

// Login verifies an email/password pair. Unknown email, an OAuth-only account
// without a password, and a wrong password are indistinguishable to the
// caller. An unverified email is rejected distinctly. With 2FA enabled no
// token pair is issued; the result carries a short-lived pending token to be
// completed through [Engine.VerifyTwoFactorLogin].
func (e *Engine) Login(ctx context.Context, email, plaintext string, device DeviceInfo) (*LoginResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)

	account, err := e.store.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.loginRejected(ctx, "", "unknown_email")
			return nil, ErrInvalidCredentials
		}
		return nil, storeFailure("load account", err)
	}
	if !account.HasPassword() {
		e.loginRejected(ctx, account.ID, "no_password")
		return nil, ErrInvalidCredentials
	}

	ok, err := e.hasher.Verify(plaintext, account.PasswordHash)
	if err != nil || !ok {
		e.loginRejected(ctx, account.ID, "password_mismatch")
		return nil, ErrInvalidCredentials
	}

	if !account.EmailVerified {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginUnverified, false, account.ID, "", ErrEmailNotVerified, nil)
		return nil, ErrEmailNotVerified
	}

	if account.TOTPEnabled {
		challengeID := uuid.NewString()
		pending, err := e.tokens.SignPending(account.ID, challengeID, e.now())
		if err != nil {
			return nil, err
		}
		if err := e.guard.Register(ctx, challengeID, e.config.JWT.PendingTTL); err != nil {
			return nil, err
		}

		e.metricInc(MetricTwoFactorRequired)
		e.emitAudit(ctx, auditEventTwoFactorRequired, true, account.ID, "", nil, nil)

		return &LoginResult{
			RequiresTwoFactor: true,
			PendingToken:      pending,
			Account:           account,
		}, nil
	}

	tokens, err := e.issueTokenPair(ctx, account, device)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.ID, "", nil, nil)

	return &LoginResult{
		Account: account,
		Tokens:  tokens,
	}, nil
}

func (e *Engine) loginRejected(ctx context.Context, accountID, reason string) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, auditEventLoginFailure, false, accountID, "", ErrInvalidCredentials, map[string]string{
		"reason": reason,
	})
}

// VerifyTwoFactorLogin completes a login parked on a pending challenge. Every
// failure — bad token, wrong kind, unknown subject, wrong code, replay —
// collapses into [ErrTokenInvalid]. A wrong code does not consume the
// challenge, so the caller may retry while the pending token lives; a
// challenge that once succeeded is consumed and cannot complete again.
func (e *Engine) VerifyTwoFactorLogin(ctx context.Context, pendingToken, code string, device DeviceInfo) (*AuthResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Verify(pendingToken, jwt.KindTwoFactorPending)
	if err != nil {
		e.metricInc(MetricTwoFactorFailure)
		return nil, ErrTokenInvalid
	}

	account, err := e.store.AccountByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricTwoFactorFailure)
			return nil, ErrTokenInvalid
		}
		return nil, storeFailure("load account", err)
	}
	if !account.TOTPEnabled || len(account.TOTPSecret) == 0 {
		e.metricInc(MetricTwoFactorFailure)
		return nil, ErrTokenInvalid
	}

	ok, err := e.totp.VerifyCode(account.TOTPSecret, code, e.now())
	if err != nil || !ok {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, account.ID, "", ErrTokenInvalid, map[string]string{
			"reason": "code_mismatch",
		})
		return nil, ErrTokenInvalid
	}

	live, err := e.guard.Consume(ctx, claims.ID)
	if err != nil {
		return nil, storeFailure("consume challenge", err)
	}
	if !live {
		e.metricInc(MetricTwoFactorReplay)
		e.emitAudit(ctx, auditEventTwoFactorReplay, false, account.ID, "", ErrTokenInvalid, nil)
		return nil, ErrTokenInvalid
	}

	tokens, err := e.issueTokenPair(ctx, account, device)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricTwoFactorSuccess)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventTwoFactorSuccess, true, account.ID, "", nil, nil)

	return &AuthResult{
		Account: account,
		Tokens:  tokens,
	}, nil
}
