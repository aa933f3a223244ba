package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPasswordResetRoundTrip(t *testing.T) {
	env := newTestEngine(t)
	account := registerVerified(t, env, "alice@example.com")
	loginTokens(t, env, "alice@example.com")

	if err := env.engine.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	mail, ok := env.sender.last()
	if !ok || mail.Kind != EmailPasswordReset {
		t.Fatalf("expected reset email, got %+v", mail)
	}

	const newPassword = "N3w-Password!"
	if err := env.engine.ResetPassword(context.Background(), mail.Token, newPassword); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	// Every outstanding session is revoked.
	if got := env.store.activeSessionCount(account.ID); got != 0 {
		t.Fatalf("expected all sessions revoked, got %d active", got)
	}

	if _, err := env.engine.Login(context.Background(), "alice@example.com", testPassword, DeviceInfo{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password must be rejected, got %v", err)
	}
	if _, err := env.engine.Login(context.Background(), "alice@example.com", newPassword, DeviceInfo{}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}

	// Single use.
	if err := env.engine.ResetPassword(context.Background(), mail.Token, "An0ther-Pass!"); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("expected ErrTokenUsed, got %v", err)
	}
}

func TestPasswordResetRejections(t *testing.T) {
	env := newTestEngine(t)
	registerVerified(t, env, "alice@example.com")

	if err := env.engine.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset failed: %v", err)
	}
	mail, _ := env.sender.last()

	if err := env.engine.ResetPassword(context.Background(), mail.Token, "weak"); !errors.Is(err, ErrPasswordPolicy) {
		t.Fatalf("expected ErrPasswordPolicy, got %v", err)
	}
	if err := env.engine.ResetPassword(context.Background(), "bogus", "N3w-Password!"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	env.clock.Advance(env.engine.config.PasswordReset.TokenTTL + time.Minute)
	if err := env.engine.ResetPassword(context.Background(), mail.Token, "N3w-Password!"); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestPasswordResetRequestIsMasked(t *testing.T) {
	env := newTestEngine(t)

	// Unknown email: success, no mail.
	if err := env.engine.RequestPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("expected masked success, got %v", err)
	}

	// OAuth-only account without a password: success, no mail.
	now := env.clock.Now()
	if err := env.store.CreateAccount(context.Background(), &Account{
		ID: "oauth-only", Email: "oauth@example.com", Role: RoleUser,
		EmailVerified: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if err := env.engine.RequestPasswordReset(context.Background(), "oauth@example.com"); err != nil {
		t.Fatalf("expected masked success, got %v", err)
	}

	if env.sender.count() != 0 {
		t.Fatal("masked requests must not send email")
	}
}

func TestPasswordResetNewRequestInvalidatesOldToken(t *testing.T) {
	env := newTestEngine(t)
	registerVerified(t, env, "alice@example.com")

	if err := env.engine.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	first, _ := env.sender.last()

	if err := env.engine.RequestPasswordReset(context.Background(), "alice@example.com"); err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	second, _ := env.sender.last()

	if err := env.engine.ResetPassword(context.Background(), first.Token, "N3w-Password!"); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("expected superseded token rejected, got %v", err)
	}
	if err := env.engine.ResetPassword(context.Background(), second.Token, "N3w-Password!"); err != nil {
		t.Fatalf("fresh token failed: %v", err)
	}
}
