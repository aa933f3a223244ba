package authcore

import (
	"context"
	"errors"
)

// GenerateTOTPSetup begins two-phase enrollment: it returns a fresh secret
// and its otpauth provisioning URI without persisting anything. The secret
// becomes active only through [Engine.EnableTOTP].
func (e *Engine) GenerateTOTPSetup(ctx context.Context, accountID string) (*TOTPSetup, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.store.AccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storeFailure("load account", err)
	}
	if account.TOTPEnabled {
		return nil, ErrTOTPAlreadyEnabled
	}

	_, secretBase32, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, err
	}
	uri := e.totp.ProvisionURI(secretBase32, account.Email)

	e.emitAudit(ctx, auditEventTOTPSetupRequested, true, account.ID, "", nil, nil)

	return &TOTPSetup{
		SecretBase32: secretBase32,
		OTPAuthURI:   uri,
		QRPayload:    uri,
	}, nil
}

// EnableTOTP completes enrollment. The caller proves possession of the
// secret from [Engine.GenerateTOTPSetup] by submitting one valid code; only
// then is the secret persisted and 2FA switched on.
func (e *Engine) EnableTOTP(ctx context.Context, accountID, secretBase32, code string) error {
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
	if account.TOTPEnabled {
		return ErrTOTPAlreadyEnabled
	}

	secret, err := decodeBase32Secret(secretBase32)
	if err != nil {
		return ErrTOTPInvalid
	}
	ok, err := e.totp.VerifyCode(secret, code, e.now())
	if err != nil || !ok {
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, account.ID, "", ErrTOTPInvalid, map[string]string{
			"stage": "enable",
		})
		return ErrTOTPInvalid
	}

	if err := e.store.SetTOTP(ctx, account.ID, true, secret); err != nil {
		return storeFailure("enable totp", err)
	}

	e.metricInc(MetricTOTPEnabled)
	e.emitAudit(ctx, auditEventTOTPEnabled, true, account.ID, "", nil, nil)
	return nil
}

// DisableTOTP tears down 2FA. The account must re-prove both factors: its
// password (when one exists) and a current code.
func (e *Engine) DisableTOTP(ctx context.Context, accountID, plaintext, code string) error {
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
	if !account.TOTPEnabled || len(account.TOTPSecret) == 0 {
		return ErrTOTPNotEnabled
	}

	if account.HasPassword() {
		ok, err := e.hasher.Verify(plaintext, account.PasswordHash)
		if err != nil || !ok {
			return ErrInvalidCredentials
		}
	}

	ok, err := e.totp.VerifyCode(account.TOTPSecret, code, e.now())
	if err != nil || !ok {
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, account.ID, "", ErrTOTPInvalid, map[string]string{
			"stage": "disable",
		})
		return ErrTOTPInvalid
	}

	if err := e.store.SetTOTP(ctx, account.ID, false, nil); err != nil {
		return storeFailure("disable totp", err)
	}

	e.metricInc(MetricTOTPDisabled)
	e.emitAudit(ctx, auditEventTOTPDisabled, true, account.ID, "", nil, nil)
	return nil
}
