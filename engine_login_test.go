package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoginSuccess(t *testing.T) {
	env := newTestEngine(t)
	account := registerVerified(t, env, "alice@example.com")

	res, err := env.engine.Login(context.Background(), "ALICE@example.com", testPassword, DeviceInfo{UserAgent: "ua"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.RequiresTwoFactor {
		t.Fatal("unexpected 2FA challenge")
	}
	if res.Tokens == nil || res.Tokens.AccessToken == "" {
		t.Fatal("expected a token pair")
	}
	if res.Account.ID != account.ID {
		t.Fatal("wrong account returned")
	}

	claims, err := env.engine.VerifyAccessToken(res.Tokens.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccessToken failed: %v", err)
	}
	if claims.AccountID != account.ID || claims.Email != "alice@example.com" || claims.Role != RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEngine(t)
	registerVerified(t, env, "alice@example.com")

	// An OAuth-only account without a password hash.
	now := env.clock.Now()
	if err := env.store.CreateAccount(context.Background(), &Account{
		ID: "oauth-only", Email: "oauth@example.com", Role: RoleUser,
		EmailVerified: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", testPassword},
		{"wrong password", "alice@example.com", "Wr0ng-Password!"},
		{"oauth-only account", "oauth@example.com", testPassword},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.engine.Login(context.Background(), tc.email, tc.password, DeviceInfo{})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestLoginRejectsUnverifiedEmail(t *testing.T) {
	env := newTestEngine(t)

	if _, err := env.engine.Register(context.Background(), "new@example.com", "N", testPassword, DeviceInfo{}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	_, err := env.engine.Login(context.Background(), "new@example.com", testPassword, DeviceInfo{})
	if !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
	if !IsKind(err, KindAuthorization) {
		t.Fatal("expected authorization kind, distinct from bad credentials")
	}
}

func TestLoginWithTwoFactorReturnsPendingToken(t *testing.T) {
	env := newTestEngine(t)
	account := registerVerified(t, env, "alice@example.com")
	secret := enrollTOTP(t, env, account.ID)

	res, err := env.engine.Login(context.Background(), "alice@example.com", testPassword, DeviceInfo{})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !res.RequiresTwoFactor || res.PendingToken == "" {
		t.Fatal("expected a pending 2FA challenge")
	}
	if res.Tokens != nil {
		t.Fatal("no token pair may be issued before the second factor")
	}

	code := codeForTOTP(t, secret, env.engine.config.TOTP, env.clock.Now())
	auth, err := env.engine.VerifyTwoFactorLogin(context.Background(), res.PendingToken, code, DeviceInfo{})
	if err != nil {
		t.Fatalf("VerifyTwoFactorLogin failed: %v", err)
	}
	if auth.Tokens == nil || auth.Tokens.RefreshToken == "" {
		t.Fatal("expected tokens after 2FA completion")
	}
}

func TestVerifyTwoFactorLoginRejections(t *testing.T) {
	env := newTestEngine(t)
	account := registerVerified(t, env, "alice@example.com")
	secret := enrollTOTP(t, env, account.ID)

	res, err := env.engine.Login(context.Background(), "alice@example.com", testPassword, DeviceInfo{})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// A wrong code fails with the same error as every other 2FA-login
	// failure and leaves the challenge retryable.
	if _, err := env.engine.VerifyTwoFactorLogin(context.Background(), res.PendingToken, "000000", DeviceInfo{}); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong code, got %v", err)
	}
	code := codeForTOTP(t, secret, env.engine.config.TOTP, env.clock.Now())
	if _, err := env.engine.VerifyTwoFactorLogin(context.Background(), res.PendingToken, code, DeviceInfo{}); err != nil {
		t.Fatalf("retry with the correct code must succeed, got %v", err)
	}

	// An access token must not pass as a pending challenge.
	pair, err := env.engine.issueTokenPair(context.Background(), account, DeviceInfo{})
	if err != nil {
		t.Fatalf("issueTokenPair failed: %v", err)
	}
	code = codeForTOTP(t, secret, env.engine.config.TOTP, env.clock.Now())
	if _, err := env.engine.VerifyTwoFactorLogin(context.Background(), pair.AccessToken, code, DeviceInfo{}); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for kind mismatch, got %v", err)
	}

	// Expired challenge.
	env.clock.Advance(env.engine.config.JWT.PendingTTL + time.Minute)
	code = codeForTOTP(t, secret, env.engine.config.TOTP, env.clock.Now())
	if _, err := env.engine.VerifyTwoFactorLogin(context.Background(), res.PendingToken, code, DeviceInfo{}); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for expired challenge, got %v", err)
	}
}

func TestVerifyTwoFactorLoginReplayGuard(t *testing.T) {
	_, rdb := newTestRedis(t)

	cfg := testConfig()
	store := newMemStore()
	clock := newTestClock()
	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithRedis(rdb).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	env := &testEnv{engine: engine, store: store, sender: &fakeSender{}, clock: clock}
	account := registerVerified(t, env, "alice@example.com")
	secret := enrollTOTP(t, env, account.ID)

	res, err := engine.Login(context.Background(), "alice@example.com", testPassword, DeviceInfo{})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	code := codeForTOTP(t, secret, cfg.TOTP, clock.Now())
	if _, err := engine.VerifyTwoFactorLogin(context.Background(), res.PendingToken, code, DeviceInfo{}); err != nil {
		t.Fatalf("first VerifyTwoFactorLogin failed: %v", err)
	}

	// The same pending token must not complete a second login.
	if _, err := engine.VerifyTwoFactorLogin(context.Background(), res.PendingToken, code, DeviceInfo{}); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid on replay, got %v", err)
	}
}
