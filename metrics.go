package authcore

import (
	"sync/atomic"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricRegisterSuccess counts successful account creations.
	MetricRegisterSuccess MetricID = iota
	// MetricRegisterDuplicate counts registrations rejected for an existing email.
	MetricRegisterDuplicate
	// MetricLoginSuccess counts fully authenticated password logins.
	MetricLoginSuccess
	// MetricLoginFailure counts rejected password logins.
	MetricLoginFailure
	// MetricTwoFactorRequired counts logins parked on a pending 2FA challenge.
	MetricTwoFactorRequired
	// MetricTwoFactorSuccess counts completed 2FA challenges.
	MetricTwoFactorSuccess
	// MetricTwoFactorFailure counts rejected 2FA codes.
	MetricTwoFactorFailure
	// MetricTwoFactorReplay counts pending tokens presented more than once.
	MetricTwoFactorReplay
	// MetricRefreshSuccess counts successful refresh rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh attempts.
	MetricRefreshFailure
	// MetricRefreshReuseDetected counts refresh tokens presented after revocation.
	MetricRefreshReuseDetected
	// MetricLogout counts single-session logouts.
	MetricLogout
	// MetricLogoutAll counts account-wide session revocations.
	MetricLogoutAll
	// MetricPasswordChangeSuccess counts accepted password changes.
	MetricPasswordChangeSuccess
	// MetricPasswordChangeFailure counts password changes rejected on the current password.
	MetricPasswordChangeFailure
	// MetricPasswordResetRequest counts password-reset requests, including masked ones.
	MetricPasswordResetRequest
	// MetricPasswordResetSuccess counts consumed reset tokens.
	MetricPasswordResetSuccess
	// MetricPasswordResetFailure counts rejected reset tokens.
	MetricPasswordResetFailure
	// MetricEmailVerificationRequest counts verification emails requested.
	MetricEmailVerificationRequest
	// MetricEmailVerificationSuccess counts consumed verification tokens.
	MetricEmailVerificationSuccess
	// MetricEmailVerificationFailure counts rejected verification tokens.
	MetricEmailVerificationFailure
	// MetricTOTPEnabled counts completed TOTP enrollments.
	MetricTOTPEnabled
	// MetricTOTPDisabled counts TOTP teardowns.
	MetricTOTPDisabled
	// MetricOAuthLogin counts OAuth sign-ins on an existing link.
	MetricOAuthLogin
	// MetricOAuthAccountCreated counts accounts provisioned from an OAuth profile.
	MetricOAuthAccountCreated
	// MetricOAuthLinked counts providers attached to an existing account.
	MetricOAuthLinked
	// MetricOAuthUnlinked counts providers detached from an account.
	MetricOAuthUnlinked
	// MetricSessionCreated counts refresh sessions written to the store.
	MetricSessionCreated
	// MetricEmailSendFailure counts outbound emails the sender rejected.
	MetricEmailSendFailure
	metricIDCount
)

const cacheLineSize = 64

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds the engine's in-process counters.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics creates a counter set. A disabled set accepts increments and
// discards them.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled: cfg.Enabled,
	}
}

// Enabled reports whether counters are being recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// Inc increments a counter. Unknown ids are ignored.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Value returns the current value of one counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter into a map.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}

	s := MetricsSnapshot{
		Counters: make(map[MetricID]uint64, int(metricIDCount)),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	return s
}
