package authcore

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// enrollTOTP walks an account through the full two-phase enrollment and
// returns the raw shared secret.
func enrollTOTP(t *testing.T, env *testEnv, accountID string) []byte {
	t.Helper()

	setup, err := env.engine.GenerateTOTPSetup(context.Background(), accountID)
	if err != nil {
		t.Fatalf("GenerateTOTPSetup failed: %v", err)
	}

	secret, err := decodeBase32Secret(setup.SecretBase32)
	if err != nil {
		t.Fatalf("decodeBase32Secret failed: %v", err)
	}
	code := codeForTOTP(t, secret, env.engine.config.TOTP, env.clock.Now())
	if err := env.engine.EnableTOTP(context.Background(), accountID, setup.SecretBase32, code); err != nil {
		t.Fatalf("EnableTOTP failed: %v", err)
	}
	return secret
}

func TestTOTPSetupIsNotPersistedUntilEnabled(t *testing.T) {
	env := newTestEngine(t)
	account := registerVerified(t, env, "alice@example.com")

	setup, err := env.engine.GenerateTOTPSetup(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("GenerateTOTPSetup failed: %v", err)
	}
	if setup.SecretBase32 == "" {
		t.Fatal("expected a secret")
	}
	if !strings.HasPrefix(setup.OTPAuthURI, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning URI: %q", setup.OTPAuthURI)
	}
	if !strings.Contains(setup.OTPAuthURI, "secret="+setup.SecretBase32) {
		t.Fatal("URI must embed the secret")
	}

	stored, err := env.store.AccountByID(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("AccountByID failed: %v", err)
	}
	if stored.TOTPEnabled || len(stored.TOTPSecret) != 0 {
		t.Fatal("setup must not persist anything before EnableTOTP")
	}
}

func TestEnableTOTPWithInvalidCodeLeavesDisabled(t *testing.T) {
	env := newTestEngine(t)
	account := registerVerified(t, env, "alice@example.com")

	setup, err := env.engine.GenerateTOTPSetup(context.Background(), account.ID)
	if err != nil {
		t.Fatalf("GenerateTOTPSetup failed: %v", err)
	}

	for _, code := range []string{"000000", "12345", "abcdef", ""} {
		if err := env.engine.EnableTOTP(context.Background(), account.ID, setup.SecretBase32, code); !errors.Is(err, ErrTOTPInvalid) {
			t.Fatalf("code %q: expected ErrTOTPInvalid, got %v", code, err)
		}
	}

	stored, _ := env.store.AccountByID(context.Background(), account.ID)
	if stored.TOTPEnabled {
		t.Fatal("a failed enable must leave 2FA off")
	}
}

func TestEnableTOTPTwiceConflicts(t *testing.T) {
	env := newTestEngine(t)
	account := registerVerified(t, env, "alice@example.com")
	enrollTOTP(t, env, account.ID)

	if _, err := env.engine.GenerateTOTPSetup(context.Background(), account.ID); !errors.Is(err, ErrTOTPAlreadyEnabled) {
		t.Fatalf("expected ErrTOTPAlreadyEnabled, got %v", err)
	}
}

func TestDisableTOTP(t *testing.T) {
	env := newTestEngine(t)
	account := registerVerified(t, env, "alice@example.com")
	secret := enrollTOTP(t, env, account.ID)

	code := codeForTOTP(t, secret, env.engine.config.TOTP, env.clock.Now())

	if err := env.engine.DisableTOTP(context.Background(), account.ID, "Wr0ng-Password!", code); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := env.engine.DisableTOTP(context.Background(), account.ID, testPassword, "000000"); !errors.Is(err, ErrTOTPInvalid) {
		t.Fatalf("expected ErrTOTPInvalid, got %v", err)
	}

	if err := env.engine.DisableTOTP(context.Background(), account.ID, testPassword, code); err != nil {
		t.Fatalf("DisableTOTP failed: %v", err)
	}
	stored, _ := env.store.AccountByID(context.Background(), account.ID)
	if stored.TOTPEnabled || len(stored.TOTPSecret) != 0 {
		t.Fatal("expected 2FA torn down, secret cleared")
	}

	if err := env.engine.DisableTOTP(context.Background(), account.ID, testPassword, code); !errors.Is(err, ErrTOTPNotEnabled) {
		t.Fatalf("expected ErrTOTPNotEnabled, got %v", err)
	}
}
