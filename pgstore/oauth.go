package pgstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/MrEthical07/authcore"
)

const oauthLinkColumns = `id, account_id, provider, provider_user_id, access_token, refresh_token,
	created_at, updated_at`

func scanOAuthLink(row pgx.Row) (*authcore.OAuthLink, error) {
	var l authcore.OAuthLink
	err := row.Scan(
		&l.ID,
		&l.AccountID,
		&l.Provider,
		&l.ProviderUserID,
		&l.AccessToken,
		&l.RefreshToken,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authcore.ErrLinkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (a *Adapter) OAuthLinkByProvider(ctx context.Context, provider authcore.Provider, providerUserID string) (*authcore.OAuthLink, error) {
	query := `SELECT ` + oauthLinkColumns + ` FROM oauth_links WHERE provider = $1 AND provider_user_id = $2`
	return scanOAuthLink(a.db.QueryRow(ctx, query, provider, providerUserID))
}

func (a *Adapter) OAuthLinksByAccount(ctx context.Context, accountID string) ([]authcore.OAuthLink, error) {
	query := `SELECT ` + oauthLinkColumns + ` FROM oauth_links WHERE account_id = $1 ORDER BY created_at`

	rows, err := a.db.Query(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []authcore.OAuthLink
	for rows.Next() {
		var l authcore.OAuthLink
		if err := rows.Scan(
			&l.ID,
			&l.AccountID,
			&l.Provider,
			&l.ProviderUserID,
			&l.AccessToken,
			&l.RefreshToken,
			&l.CreatedAt,
			&l.UpdatedAt,
		); err != nil {
			return nil, err
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (a *Adapter) CreateOAuthLink(ctx context.Context, link *authcore.OAuthLink) error {
	query := `
		INSERT INTO oauth_links (id, account_id, provider, provider_user_id, access_token, refresh_token,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := a.db.Exec(ctx, query,
		link.ID,
		link.AccountID,
		link.Provider,
		link.ProviderUserID,
		link.AccessToken,
		link.RefreshToken,
		link.CreatedAt,
		link.UpdatedAt,
	)
	return err
}

func (a *Adapter) UpdateOAuthLinkTokens(ctx context.Context, linkID, accessToken, refreshToken string) error {
	query := `
		UPDATE oauth_links SET access_token = $2, refresh_token = $3, updated_at = now()
		WHERE id = $1`

	tag, err := a.db.Exec(ctx, query, linkID, accessToken, refreshToken)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrLinkNotFound
	}
	return nil
}

func (a *Adapter) DeleteOAuthLink(ctx context.Context, accountID string, provider authcore.Provider) error {
	query := `DELETE FROM oauth_links WHERE account_id = $1 AND provider = $2`

	tag, err := a.db.Exec(ctx, query, accountID, provider)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrLinkNotFound
	}
	return nil
}
