package authcore

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MrEthical07/authcore/jwt"
)

// issueTokenPair creates a refresh session for the account and returns the
// signed pair. The opaque refresh value leaves this function exactly once,
// inside the signed envelope; only its hash is persisted.
func (e *Engine) issueTokenPair(ctx context.Context, account *Account, device DeviceInfo) (*TokenPair, error) {
	now := e.now()

	opaque, err := newOpaqueToken()
	if err != nil {
		return nil, err
	}

	access, accessExp, err := e.tokens.SignAccess(account.ID, account.Email, string(account.Role), now)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := e.tokens.SignRefresh(account.ID, opaque, now)
	if err != nil {
		return nil, err
	}

	session := &RefreshSession{
		ID:        uuid.NewString(),
		AccountID: account.ID,
		TokenHash: hashOpaque(opaque),
		UserAgent: device.UserAgent,
		IP:        device.IP,
		IssuedAt:  now,
		ExpiresAt: refreshExp,
	}
	if err := e.store.InsertRefreshSession(ctx, session); err != nil {
		return nil, storeFailure("insert refresh session", err)
	}
	e.metricInc(MetricSessionCreated)

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh rotates a refresh token: the presented session is atomically
// revoked and a successor is created in the same transaction. Rotation is
// strictly one shot; under concurrent presentation of the same token exactly
// one caller wins and every other observes [ErrTokenInvalid].
func (e *Engine) Refresh(ctx context.Context, refreshToken string, device DeviceInfo) (*TokenPair, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.tokens.Verify(refreshToken, jwt.KindRefresh)
	if err != nil || claims.Opaque == "" {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrTokenInvalid, map[string]string{
			"reason": "envelope_rejected",
		})
		return nil, ErrTokenInvalid
	}

	account, err := e.store.AccountByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, claims.Subject, "", ErrTokenInvalid, map[string]string{
				"reason": "unknown_subject",
			})
			return nil, ErrTokenInvalid
		}
		return nil, storeFailure("load account", err)
	}

	now := e.now()
	tokenHash := hashOpaque(claims.Opaque)

	opaque, err := newOpaqueToken()
	if err != nil {
		return nil, err
	}
	access, accessExp, err := e.tokens.SignAccess(account.ID, account.Email, string(account.Role), now)
	if err != nil {
		return nil, err
	}
	nextRefresh, refreshExp, err := e.tokens.SignRefresh(account.ID, opaque, now)
	if err != nil {
		return nil, err
	}

	var revoked *RefreshSession
	txErr := e.store.InTx(ctx, func(s Store) error {
		var err error
		revoked, err = s.RevokeRefreshSessionByHash(ctx, tokenHash, now)
		if err != nil {
			return err
		}
		if revoked.AccountID != account.ID {
			return ErrSessionNotFound
		}
		return s.InsertRefreshSession(ctx, &RefreshSession{
			ID:        uuid.NewString(),
			AccountID: account.ID,
			TokenHash: hashOpaque(opaque),
			UserAgent: device.UserAgent,
			IP:        device.IP,
			IssuedAt:  now,
			ExpiresAt: refreshExp,
		})
	})
	if txErr != nil {
		if errors.Is(txErr, ErrSessionNotFound) {
			// A validly signed envelope whose session is gone means the opaque
			// value was already rotated or revoked: a replay signal.
			e.metricInc(MetricRefreshFailure)
			e.metricInc(MetricRefreshReuseDetected)
			e.emitAudit(ctx, auditEventRefreshReuseDetected, false, account.ID, "", ErrTokenInvalid, nil)
			return nil, ErrTokenInvalid
		}
		return nil, storeFailure("rotate refresh session", txErr)
	}

	e.metricInc(MetricSessionCreated)
	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, account.ID, revoked.ID, nil, nil)

	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     nextRefresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Logout revokes the session behind the presented refresh token. Revoking an
// already revoked or unknown session is a no-op; only a rejected envelope
// fails.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.Verify(refreshToken, jwt.KindRefresh)
	if err != nil || claims.Opaque == "" {
		return ErrTokenInvalid
	}

	revoked, err := e.store.RevokeRefreshSessionByHash(ctx, hashOpaque(claims.Opaque), e.now())
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return storeFailure("revoke refresh session", err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogoutSession, true, revoked.AccountID, revoked.ID, nil, nil)
	return nil
}

// LogoutAll revokes every active refresh session of the account. Idempotent.
func (e *Engine) LogoutAll(ctx context.Context, accountID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}

	if err := e.store.RevokeAccountSessions(ctx, accountID, e.now()); err != nil {
		return storeFailure("revoke account sessions", err)
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, auditEventLogoutAll, true, accountID, "", nil, nil)
	return nil
}
