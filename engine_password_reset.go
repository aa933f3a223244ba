package authcore

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// RequestPasswordReset mints a single-use reset token and triggers the reset
// email. The outcome is masked: unknown emails and OAuth-only accounts
// without a password report success without sending anything.
func (e *Engine) RequestPasswordReset(ctx context.Context, email string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	e.metricInc(MetricPasswordResetRequest)

	account, err := e.store.AccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil
		}
		return storeFailure("load account", err)
	}
	if !account.HasPassword() {
		return nil
	}

	raw, err := newOpaqueToken()
	if err != nil {
		return err
	}
	now := e.now()

	err = e.store.InTx(ctx, func(s Store) error {
		if err := s.InvalidateActionTokens(ctx, account.ID, TokenKindReset, now); err != nil {
			return err
		}
		return s.InsertActionToken(ctx, &ActionToken{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			Kind:      TokenKindReset,
			TokenHash: hashOpaque(raw),
			ExpiresAt: now.Add(e.config.PasswordReset.TokenTTL),
			CreatedAt: now,
		})
	})
	if err != nil {
		return storeFailure("issue reset token", err)
	}

	e.emitAudit(ctx, auditEventPasswordResetRequest, true, account.ID, "", nil, nil)
	e.sendEmail(ctx, EmailPasswordReset, account, raw)
	return nil
}

// ResetPassword consumes a reset token and installs the new password in one
// transaction, then revokes every refresh session of the account. A token
// that was already consumed fails with [ErrTokenUsed] even under concurrent
// presentation.
func (e *Engine) ResetPassword(ctx context.Context, token, next string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	if err := e.checkPasswordPolicy(next); err != nil {
		return err
	}

	row, err := e.lookupActionToken(ctx, TokenKindReset, token)
	if err != nil {
		e.metricInc(MetricPasswordResetFailure)
		if errors.Is(err, ErrTokenUsed) {
			e.emitAudit(ctx, auditEventPasswordResetReplay, false, "", "", ErrTokenUsed, nil)
		}
		return err
	}

	hash, err := e.hasher.Hash(next)
	if err != nil {
		return storeFailure("hash password", err)
	}

	now := e.now()
	err = e.store.InTx(ctx, func(s Store) error {
		if err := s.MarkActionTokenUsed(ctx, row.ID, now); err != nil {
			return err
		}
		return s.UpdatePasswordHash(ctx, row.AccountID, hash)
	})
	if err != nil {
		if errors.Is(err, ErrTokenUsed) {
			e.metricInc(MetricPasswordResetFailure)
			e.emitAudit(ctx, auditEventPasswordResetReplay, false, row.AccountID, "", ErrTokenUsed, nil)
			return ErrTokenUsed
		}
		return storeFailure("consume reset token", err)
	}

	if err := e.store.RevokeAccountSessions(ctx, row.AccountID, now); err != nil {
		return storeFailure("revoke account sessions", err)
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, row.AccountID, "", nil, nil)
	return nil
}
