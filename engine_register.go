package authcore

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Register creates an account from an email/password pair. The account starts
// unverified; a verification email is triggered fire-and-forget and a token
// pair is issued immediately so the caller can hold a session while the email
// is pending.
func (e *Engine) Register(ctx context.Context, email, name, plaintext string, device DeviceInfo) (*AuthResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" {
		return nil, newError(KindValidation, "email required")
	}
	if err := e.checkPasswordPolicy(plaintext); err != nil {
		return nil, err
	}

	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		return nil, storeFailure("hash password", err)
	}

	now := e.now()
	account := &Account{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", "", ErrAccountExists, map[string]string{
				"email": email,
			})
			return nil, ErrAccountExists
		}
		return nil, storeFailure("create account", err)
	}

	if err := e.issueVerificationToken(ctx, account); err != nil {
		// Account creation stands; the caller can re-request verification.
		e.emitAudit(ctx, auditEventEmailVerificationRequest, false, account.ID, "", err, nil)
	}

	tokens, err := e.issueTokenPair(ctx, account, device)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, account.ID, "", nil, nil)

	return &AuthResult{
		Account:   account,
		Tokens:    tokens,
		IsNewUser: true,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
