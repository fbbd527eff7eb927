// Package auth holds the credential and token primitives behind account
// access: Argon2id password hashing (with bcrypt verification for imported
// legacy hashes), HS256 session tokens with a fixed expiry horizon, opaque
// recovery tokens, and role-permission evaluation.
//
// Nothing here touches storage. Configuration (signing key, work factor,
// clock) is passed in at construction.
package auth
