package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/MrEthical07/authcore"
)

const accountColumns = `id, email, name, password_hash, role, email_verified, email_verified_at,
	totp_enabled, totp_secret, created_at, updated_at`

func scanAccount(row pgx.Row) (*authcore.Account, error) {
	var a authcore.Account
	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.Name,
		&a.PasswordHash,
		&a.Role,
		&a.EmailVerified,
		&a.EmailVerifiedAt,
		&a.TOTPEnabled,
		&a.TOTPSecret,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, authcore.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (a *Adapter) CreateAccount(ctx context.Context, account *authcore.Account) error {
	query := `
		INSERT INTO accounts (id, email, name, password_hash, role, email_verified, email_verified_at,
			totp_enabled, totp_secret, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := a.db.Exec(ctx, query,
		account.ID,
		account.Email,
		account.Name,
		account.PasswordHash,
		account.Role,
		account.EmailVerified,
		account.EmailVerifiedAt,
		account.TOTPEnabled,
		account.TOTPSecret,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return authcore.ErrAccountExists
	}
	return err
}

func (a *Adapter) AccountByID(ctx context.Context, id string) (*authcore.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(a.db.QueryRow(ctx, query, id))
}

func (a *Adapter) AccountByEmail(ctx context.Context, email string) (*authcore.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(a.db.QueryRow(ctx, query, email))
}

func (a *Adapter) UpdatePasswordHash(ctx context.Context, accountID, hash string) error {
	query := `UPDATE accounts SET password_hash = $2, updated_at = now() WHERE id = $1`

	tag, err := a.db.Exec(ctx, query, accountID, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrAccountNotFound
	}
	return nil
}

func (a *Adapter) MarkEmailVerified(ctx context.Context, accountID string, at time.Time) error {
	query := `
		UPDATE accounts SET email_verified = true, email_verified_at = $2, updated_at = $2
		WHERE id = $1`

	tag, err := a.db.Exec(ctx, query, accountID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrAccountNotFound
	}
	return nil
}

func (a *Adapter) SetTOTP(ctx context.Context, accountID string, enabled bool, secret []byte) error {
	query := `
		UPDATE accounts SET totp_enabled = $2, totp_secret = $3, updated_at = now()
		WHERE id = $1`

	tag, err := a.db.Exec(ctx, query, accountID, enabled, secret)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrAccountNotFound
	}
	return nil
}
