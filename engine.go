package authcore

import (
	"context"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/password"
)

// Engine is the credential and session lifecycle core. Construct it through
// [Builder]; all fields are fixed at Build time and safe for concurrent use.
type Engine struct {
	config  Config
	store   Store
	email   EmailSender
	hasher  *password.Argon2
	tokens  *jwt.Manager
	totp    *totpManager
	guard   *challengeGuard
	audit   *auditDispatcher
	metrics *Metrics
	now     func() time.Time
}

// Close stops background workers after draining pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded under load.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// sendEmail triggers an outbound email without blocking the calling
// operation's outcome. Failures are counted and audited, never returned.
func (e *Engine) sendEmail(ctx context.Context, kind EmailKind, account *Account, token string) {
	if e.email == nil {
		return
	}
	if err := e.email.Send(ctx, kind, account.Email, account.Name, token); err != nil {
		e.metricInc(MetricEmailSendFailure)
		e.emitAudit(ctx, auditEventEmailSendFailure, false, account.ID, "", err, map[string]string{
			"kind": string(kind),
		})
	}
}

// VerifyAccessToken checks an access token's signature, expiry, and kind and
// returns its claims. Every failure mode collapses into [ErrTokenInvalid].
func (e *Engine) VerifyAccessToken(tokenStr string) (*Claims, error) {
	claims, err := e.tokens.Verify(tokenStr, jwt.KindAccess)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	return &Claims{
		AccountID: claims.Subject,
		Email:     claims.Email,
		Role:      Role(claims.Role),
	}, nil
}
