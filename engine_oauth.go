package authcore

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// HandleOAuthLogin reconciles an external profile against local state, in
// priority order: an existing link signs the linked account in, a matching
// email attaches the provider to that account, and otherwise a fresh account
// is provisioned with its link in one transaction. Provider emails are
// treated as verified.
func (e *Engine) HandleOAuthLogin(ctx context.Context, profile OAuthProfile, device DeviceInfo) (*AuthResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if !e.config.Providers.Enabled(profile.Provider) {
		return nil, ErrProviderDisabled
	}
	if profile.ProviderUserID == "" || profile.Email == "" {
		return nil, newError(KindValidation, "incomplete oauth profile")
	}

	email := normalizeEmail(profile.Email)
	now := e.now()

	link, err := e.store.OAuthLinkByProvider(ctx, profile.Provider, profile.ProviderUserID)
	switch {
	case err == nil:
		account, err := e.store.AccountByID(ctx, link.AccountID)
		if err != nil {
			return nil, storeFailure("load linked account", err)
		}
		if err := e.store.UpdateOAuthLinkTokens(ctx, link.ID, profile.AccessToken, profile.RefreshToken); err != nil {
			return nil, storeFailure("update link tokens", err)
		}

		tokens, err := e.issueTokenPair(ctx, account, device)
		if err != nil {
			return nil, err
		}

		e.metricInc(MetricOAuthLogin)
		e.emitAudit(ctx, auditEventOAuthLogin, true, account.ID, "", nil, map[string]string{
			"provider": string(profile.Provider),
		})
		return &AuthResult{Account: account, Tokens: tokens}, nil

	case errors.Is(err, ErrLinkNotFound):
		// fall through to email reconciliation
	default:
		return nil, storeFailure("load oauth link", err)
	}

	account, err := e.store.AccountByEmail(ctx, email)
	switch {
	case err == nil:
		err = e.store.InTx(ctx, func(s Store) error {
			if err := s.CreateOAuthLink(ctx, &OAuthLink{
				ID:             uuid.NewString(),
				AccountID:      account.ID,
				Provider:       profile.Provider,
				ProviderUserID: profile.ProviderUserID,
				AccessToken:    profile.AccessToken,
				RefreshToken:   profile.RefreshToken,
				CreatedAt:      now,
				UpdatedAt:      now,
			}); err != nil {
				return err
			}
			if !account.EmailVerified {
				// The provider vouches for the address.
				return s.MarkEmailVerified(ctx, account.ID, now)
			}
			return nil
		})
		if err != nil {
			return nil, storeFailure("attach oauth link", err)
		}
		account.EmailVerified = true

		tokens, err := e.issueTokenPair(ctx, account, device)
		if err != nil {
			return nil, err
		}

		e.metricInc(MetricOAuthLinked)
		e.emitAudit(ctx, auditEventOAuthLinked, true, account.ID, "", nil, map[string]string{
			"provider": string(profile.Provider),
		})
		return &AuthResult{Account: account, Tokens: tokens}, nil

	case errors.Is(err, ErrAccountNotFound):
		// fall through to provisioning
	default:
		return nil, storeFailure("load account", err)
	}

	verifiedAt := now
	account = &Account{
		ID:              uuid.NewString(),
		Email:           email,
		Name:            profile.Name,
		Role:            RoleUser,
		EmailVerified:   true,
		EmailVerifiedAt: &verifiedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err = e.store.InTx(ctx, func(s Store) error {
		if err := s.CreateAccount(ctx, account); err != nil {
			return err
		}
		return s.CreateOAuthLink(ctx, &OAuthLink{
			ID:             uuid.NewString(),
			AccountID:      account.ID,
			Provider:       profile.Provider,
			ProviderUserID: profile.ProviderUserID,
			AccessToken:    profile.AccessToken,
			RefreshToken:   profile.RefreshToken,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	})
	if err != nil {
		return nil, storeFailure("provision oauth account", err)
	}

	tokens, err := e.issueTokenPair(ctx, account, device)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricOAuthAccountCreated)
	e.emitAudit(ctx, auditEventOAuthAccountCreated, true, account.ID, "", nil, map[string]string{
		"provider": string(profile.Provider),
	})
	return &AuthResult{Account: account, Tokens: tokens, IsNewUser: true}, nil
}

// UnlinkProvider detaches a provider from the account. The unlink is refused
// when it would strand the account without any remaining authentication
// method.
func (e *Engine) UnlinkProvider(ctx context.Context, accountID string, provider Provider) error {
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

	links, err := e.store.OAuthLinksByAccount(ctx, account.ID)
	if err != nil {
		return storeFailure("list oauth links", err)
	}

	var found bool
	for _, l := range links {
		if l.Provider == provider {
			found = true
			break
		}
	}
	if !found {
		return ErrLinkNotFound
	}
	if !account.HasPassword() && len(links) <= 1 {
		return ErrLastAuthMethod
	}

	if err := e.store.DeleteOAuthLink(ctx, account.ID, provider); err != nil {
		if errors.Is(err, ErrLinkNotFound) {
			return ErrLinkNotFound
		}
		return storeFailure("delete oauth link", err)
	}

	e.metricInc(MetricOAuthUnlinked)
	e.emitAudit(ctx, auditEventOAuthUnlinked, true, account.ID, "", nil, map[string]string{
		"provider": string(provider),
	})
	return nil
}

// LinkedProviders lists the providers currently attached to the account.
func (e *Engine) LinkedProviders(ctx context.Context, accountID string) ([]Provider, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	links, err := e.store.OAuthLinksByAccount(ctx, accountID)
	if err != nil {
		return nil, storeFailure("list oauth links", err)
	}

	providers := make([]Provider, 0, len(links))
	for _, l := range links {
		providers = append(providers, l.Provider)
	}
	return providers, nil
}
