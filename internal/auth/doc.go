// Package auth issues and verifies the bearer tokens that guard the admin API.
//
// Tokens are HS256-signed JWTs carrying a subject and one of two roles:
//   - viewer may read rules, values and pending triggers
//   - admin may also add and remove rules
//
// Validation is signature-only; there is no token store. Rotating the
// configured secret invalidates every outstanding token.
package auth
