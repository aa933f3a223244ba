// Package authcore implements the credential and session lifecycle engine for a
// web application: password registration and login, refresh-token
// rotation with revocation, email-verification and password-reset token flows,
// TOTP two-factor authentication, and OAuth identity reconciliation.
//
// The package is designed for concurrent server workloads: Engine methods are
// request-scoped and safe to call from multiple goroutines after initialization
// through [Builder.Build]. All durable state lives behind the [Store] contract;
// the engine itself holds only configuration and stateless codecs.
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config], the
// error taxonomy, and value types (Account, TokenPair, Claims, OAuthProfile).
// Storage adapters live in pgstore/ and implement [Store]; transports,
// rendering, and email delivery are external collaborators reached only
// through the narrow interfaces declared here.
//
// # What this package must NOT do
//
//   - Talk to an OAuth provider network (provider strategies hand it a
//     normalized profile).
//   - Deliver email (the [EmailSender] contract is fire-and-forget; delivery
//     failures never fail the triggering operation).
//   - Sweep expired rows proactively. Expiry is evaluated lazily at
//     verification time; garbage collection is an external concern.
//
// # Security contract
//
// Opaque single-use tokens (refresh, verification, reset) are disclosed to the
// caller exactly once and persisted only as SHA-256 hashes. Refresh rotation is
// strictly one-shot: presenting the same refresh token twice always fails the
// second time. Account-existence probes (login, password reset) are folded
// into undifferentiated results to resist enumeration; verification resend is
// keyed on the authenticated account id and exposes no probe surface at all.
package authcore
