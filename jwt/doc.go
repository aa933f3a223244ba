// Package jwt is the signed-token half of the authcore token codec. It mints
// and verifies the three signed token kinds: short-lived access tokens,
// 2FA-pending login challenges, and the signed envelope wrapping opaque
// refresh values.
//
// # Architecture boundaries
//
// This package owns claim shapes, kind tags, and signature verification. It
// knows nothing about storage: opaque-value hashing and session state live in
// the root package. Verification failures are collapsed into [ErrTokenInvalid]
// so callers cannot distinguish "expired" from "tampered" from "wrong kind".
package jwt
