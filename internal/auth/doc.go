// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides the account and credential primitives for the
// accounts service.
//
// # Domain Types
//
//   - User - a stored account keyed by unique email and numeric id
//   - Identity - the claims a session token carries about a user
//   - PublicUser, Profile - projections that never expose the password hash
//
// Users should be created with NewUser, which validates the required fields
// before a repository assigns the id and timestamps.
//
// # Services
//
//   - Service - register, login and profile flows
//   - BcryptHasher - salted one-way password hashing
//   - JWTTokenService - HS256 session token issuance and verification
//
// Errors returned by this package wrap one of the sentinel kinds in errors.go
// and carry an oops code describing the failed operation.
package auth
