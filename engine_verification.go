package authcore

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// issueVerificationToken mints a fresh email-verification token for the
// account, invalidating any outstanding one in the same transaction, and
// triggers the verification email.
func (e *Engine) issueVerificationToken(ctx context.Context, account *Account) error {
	raw, err := newOpaqueToken()
	if err != nil {
		return err
	}
	now := e.now()

	err = e.store.InTx(ctx, func(s Store) error {
		if err := s.InvalidateActionTokens(ctx, account.ID, TokenKindVerification, now); err != nil {
			return err
		}
		return s.InsertActionToken(ctx, &ActionToken{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Kind:      TokenKindVerification,
			TokenHash: hashOpaque(raw),
			ExpiresAt: now.Add(e.config.Verification.TokenTTL),
			CreatedAt: now,
		})
	})
	if err != nil {
		return storeFailure("issue verification token", err)
	}

	e.metricInc(MetricEmailVerificationRequest)
	e.sendEmail(ctx, EmailVerification, account, raw)
	return nil
}

// ResendVerification issues a new verification token for the account. It is
// keyed on the authenticated account id, never on a caller-supplied email, so
// it cannot be used to probe which addresses are registered. An already
// verified account is rejected with [ErrEmailAlreadyVerified].
func (e *Engine) ResendVerification(ctx context.Context, accountID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	account, err := e.store.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return storeFailure("load account", err)
	}
	if account.EmailVerified {
		return ErrEmailAlreadyVerified
	}

	if err := e.issueVerificationToken(ctx, account); err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventEmailVerificationRequest, true, account.ID, "", nil, nil)
	return nil
}

// VerifyEmail consumes a verification token and marks the account's email
// verified. Consumption and the flag update commit atomically; a token is
// consumable exactly once.
func (e *Engine) VerifyEmail(ctx context.Context, token string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	row, err := e.lookupActionToken(ctx, TokenKindVerification, token)
	if err != nil {
		e.metricInc(MetricEmailVerificationFailure)
		return err
	}

	now := e.now()
	err = e.store.InTx(ctx, func(s Store) error {
		if err := s.MarkActionTokenUsed(ctx, row.ID, now); err != nil {
			return err
		}
		return s.MarkEmailVerified(ctx, row.AccountID, now)
	})
	if err != nil {
		if errors.Is(err, ErrTokenUsed) {
			e.metricInc(MetricEmailVerificationFailure)
			return ErrTokenUsed
		}
		return storeFailure("consume verification token", err)
	}

	e.metricInc(MetricEmailVerificationSuccess)
	e.emitAudit(ctx, auditEventEmailVerificationConfirm, true, row.AccountID, "", nil, nil)

	if account, err := e.store.AccountByID(ctx, row.AccountID); err == nil {
		e.sendEmail(ctx, EmailWelcome, account, "")
	}
	return nil
}

// lookupActionToken resolves a plaintext action token to its row and checks
// its state. Unknown hashes are invalid; used and expired rows are rejected
// distinctly.
func (e *Engine) lookupActionToken(ctx context.Context, kind ActionTokenKind, token string) (*ActionToken, error) {
	row, err := e.store.ActionTokenByHash(ctx, kind, hashOpaque(token))
	if err != nil {
		if errors.Is(err, ErrTokenInvalid) {
			return nil, ErrTokenInvalid
		}
		return nil, storeFailure("load action token", err)
	}
	if row.UsedAt != nil {
		return nil, ErrTokenUsed
	}
	if !row.ExpiresAt.After(e.now()) {
		return nil, ErrTokenExpired
	}
	return row, nil
}
