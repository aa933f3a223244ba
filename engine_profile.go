package authcore

import (
	"context"
	"errors"
)

// Profile returns the account snapshot exposed to callers, including the
// linked OAuth providers. Secrets and hashes are never part of it.
func (e *Engine) Profile(ctx context.Context, accountID string) (*Profile, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.store.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storeFailure("load account", err)
	}

	providers, err := e.LinkedProviders(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	return &Profile{
		ID:              account.ID,
		Email:           account.Email,
		Name:            account.Name,
		Role:            account.Role,
		EmailVerified:   account.EmailVerified,
		EmailVerifiedAt: account.EmailVerifiedAt,
		TOTPEnabled:     account.TOTPEnabled,
		CreatedAt:       account.CreatedAt,
		UpdatedAt:       account.UpdatedAt,
		LinkedProviders: providers,
	}, nil
}
