package authcore

import (
	"context"
	"errors"
)

// checkPasswordPolicy enforces the length bounds and character-class
// requirements: at least one lowercase letter, one uppercase letter, one
// digit, and one non-alphanumeric character.
func (e *Engine) checkPasswordPolicy(plaintext string) error {
	if len(plaintext) < e.config.Password.MinLength || len(plaintext) > e.config.Password.MaxLength {
		return ErrPasswordPolicy
	}

	var lower, upper, digit, special bool
	for _, r := range plaintext {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	if !lower || !upper || !digit || !special {
		return ErrPasswordPolicy
	}
	return nil
}

// ChangePassword replaces the password after verifying the current one, then
// revokes every outstanding refresh session of the account.
func (e *Engine) ChangePassword(ctx context.Context, accountID, current, next string) error {
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
	if !account.HasPassword() {
		return ErrNoPassword
	}

	ok, err := e.hasher.Verify(current, account.PasswordHash)
	if err != nil || !ok {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeInvalidOld, false, account.ID, "", ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	if err := e.checkPasswordPolicy(next); err != nil {
		return err
	}
	hash, err := e.hasher.Hash(next)
	if err != nil {
		return storeFailure("hash password", err)
	}

	if err := e.store.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return storeFailure("update password hash", err)
	}
	if err := e.store.RevokeAccountSessions(ctx, account.ID, e.now()); err != nil {
		return storeFailure("revoke account sessions", err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, account.ID, "", nil, nil)
	return nil
}

// SetPassword gives an OAuth-only account a password. It is rejected when a
// password already exists; ChangePassword is the path for that. Outstanding
// refresh sessions are revoked on success.
func (e *Engine) SetPassword(ctx context.Context, accountID, next string) error {
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
	if account.HasPassword() {
		return ErrPasswordAlreadySet
	}

	if err := e.checkPasswordPolicy(next); err != nil {
		return err
	}
	hash, err := e.hasher.Hash(next)
	if err != nil {
		return storeFailure("hash password", err)
	}

	if err := e.store.UpdatePasswordHash(ctx, account.ID, hash); err != nil {
		return storeFailure("update password hash", err)
	}
	if err := e.store.RevokeAccountSessions(ctx, account.ID, e.now()); err != nil {
		return storeFailure("revoke account sessions", err)
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordSet, true, account.ID, "", nil, nil)
	return nil
}
