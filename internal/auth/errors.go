// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an entity collides with an existing one,
// such as a second account for the same email.
var ErrConflict = errors.New("conflict")

// ErrUnauthorized is returned when a caller cannot be authenticated.
var ErrUnauthorized = errors.New("unauthorized")

// ErrInvalidCredentials is returned by Login for an unknown email or a wrong
// password. It is indistinguishable between the two cases.
var ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
