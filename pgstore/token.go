package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MrEthical07/authcore"
)

func (a *Adapter) InsertActionToken(ctx context.Context, token *authcore.ActionToken) error {
	query := `
		INSERT INTO action_tokens (id, account_id, kind, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := a.db.Exec(ctx, query,
		token.ID,
		token.AccountID,
		token.Kind,
		token.TokenHash,
		token.ExpiresAt,
		token.CreatedAt,
	)
	return err
}

func (a *Adapter) InvalidateActionTokens(ctx context.Context, accountID string, kind authcore.ActionTokenKind, now time.Time) error {
	query := `
		UPDATE action_tokens SET used_at = $3
		WHERE account_id = $1 AND kind = $2 AND used_at IS NULL`

	_, err := a.db.Exec(ctx, query, accountID, kind, now)
	return err
}

func (a *Adapter) ActionTokenByHash(ctx context.Context, kind authcore.ActionTokenKind, tokenHash string) (*authcore.ActionToken, error) {
	query := `
		SELECT id, account_id, kind, token_hash, expires_at, used_at, created_at
		FROM action_tokens
		WHERE kind = $1 AND token_hash = $2`

	var t authcore.ActionToken
	err := a.db.QueryRow(ctx, query, kind, tokenHash).Scan(
		&t.ID,
		&t.AccountID,
		&t.Kind,
		&t.TokenHash,
		&t.ExpiresAt,
		&t.UsedAt,
		&t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authcore.ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// MarkActionTokenUsed consumes a token exactly once: the conditional UPDATE
// matches only while used_at is still null.
func (a *Adapter) MarkActionTokenUsed(ctx context.Context, tokenID string, at time.Time) error {
	query := `UPDATE action_tokens SET used_at = $2 WHERE id = $1 AND used_at IS NULL`

	tag, err := a.db.Exec(ctx, query, tokenID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrTokenUsed
	}
	return nil
}
