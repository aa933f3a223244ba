// Package middleware exposes HTTP adapters on top of authcore.Engine access
// token verification.
//
//   - [RequireAccess] — reads the Authorization bearer token, verifies it via
//     Engine.VerifyAccessToken, and injects the claims into the request context.
//   - [RequireRole] — layers a role check on claims placed by RequireAccess.
//
// The package translates HTTP semantics into engine calls and nothing more:
// it never parses tokens itself and never touches storage.
package middleware
