package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MrEthical07/authcore"
)

func (a *Adapter) InsertRefreshSession(ctx context.Context, session *authcore.RefreshSession) error {
	query := `
		INSERT INTO refresh_sessions (id, account_id, token_hash, user_agent, ip, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := a.db.Exec(ctx, query,
		session.ID,
		session.AccountID,
		session.TokenHash,
		session.UserAgent,
		session.IP,
		session.IssuedAt,
		session.ExpiresAt,
	)
	return err
}

// RevokeRefreshSessionByHash is the one-shot rotation primitive: the
// conditional UPDATE matches only a live session, so under concurrent
// presentation of the same token exactly one caller gets the row back.
func (a *Adapter) RevokeRefreshSessionByHash(ctx context.Context, tokenHash string, now time.Time) (*authcore.RefreshSession, error) {
	query := `
		UPDATE refresh_sessions SET revoked_at = $2
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > $2
		RETURNING id, account_id, token_hash, user_agent, ip, issued_at, expires_at, revoked_at`

	var s authcore.RefreshSession
	err := a.db.QueryRow(ctx, query, tokenHash, now).Scan(
		&s.ID,
		&s.AccountID,
		&s.TokenHash,
		&s.UserAgent,
		&s.IP,
		&s.IssuedAt,
		&s.ExpiresAt,
		&s.RevokedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authcore.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (a *Adapter) RevokeAccountSessions(ctx context.Context, accountID string, now time.Time) error {
	query := `
		UPDATE refresh_sessions SET revoked_at = $2
		WHERE account_id = $1 AND revoked_at IS NULL`

	_, err := a.db.Exec(ctx, query, accountID, now)
	return err
}
