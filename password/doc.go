// Package password implements password hashing and verification with Argon2id
// defaults.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification is constant-time and never fails on a mere mismatch: a wrong
// password yields (false, nil). Errors are reserved for malformed stored
// hashes and over-long input.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length
// bounds, character classes) is enforced by the Engine before hashing.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive
//     hashes.
//   - Import any other authcore package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
