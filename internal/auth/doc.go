// Package auth provides user accounts, password hashing, and access tokens.
//
// The registry core treats authentication as an external collaborator: it
// consumes only an identity.Principal. This package is the thin concrete
// collaborator behind the API's login endpoint: Argon2id password storage,
// HS256 JWT access tokens, and first-boot staff seeding.
package auth
