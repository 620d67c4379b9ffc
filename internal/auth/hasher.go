// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultBcryptCost is the work factor used when none is configured.
const DefaultBcryptCost = 10

// bcryptMaxInput is the number of password bytes bcrypt reads. Longer
// passwords are cut to this length before hashing and verifying.
const bcryptMaxInput = 72

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	// Hash creates a salted one-way hash of the password.
	Hash(ctx context.Context, password string) (string, error)

	// Verify checks a password against a hash. A mismatch or an unreadable
	// hash reports false with a nil error.
	Verify(ctx context.Context, password, hash string) (bool, error)
}

// BcryptHasher implements PasswordHasher with bcrypt.
// Concurrent hash computations are bounded so a burst of logins cannot
// monopolize every CPU.
type BcryptHasher struct {
	cost   int
	slots  *semaphore.Weighted
	logger *slog.Logger
}

// BcryptOption configures a BcryptHasher.
type BcryptOption func(*BcryptHasher)

// WithMaxConcurrent sets how many hashes may run at once.
func WithMaxConcurrent(n int) BcryptOption {
	return func(h *BcryptHasher) {
		if n > 0 {
			h.slots = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithHasherLogger sets the logger used for malformed-hash diagnostics.
func WithHasherLogger(logger *slog.Logger) BcryptOption {
	return func(h *BcryptHasher) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewBcryptHasher creates a BcryptHasher with the given cost.
func NewBcryptHasher(cost int, opts ...BcryptOption) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, oops.Code("HASHER_INVALID_COST").
			With("cost", cost).
			Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	h := &BcryptHasher{
		cost:   cost,
		slots:  semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Hash creates a bcrypt hash of the password.
func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", oops.Code("HASH_FAILED").Errorf("password cannot be empty")
	}
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", oops.Code("HASH_FAILED").Wrap(err)
	}
	defer h.slots.Release(1)

	hash, err := bcrypt.GenerateFromPassword(bcryptInput(password), h.cost)
	if err != nil {
		return "", oops.Code("HASH_FAILED").With("cost", h.cost).Wrap(err)
	}
	return string(hash), nil
}

// Verify checks a password against a bcrypt hash in constant time.
func (h *BcryptHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, oops.Code("VERIFY_FAILED").Wrap(err)
	}
	defer h.slots.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		h.logger.Debug("stored password hash is unreadable", "error", err)
		return false, nil
	}
}

// bcryptInput returns at most the first bcryptMaxInput bytes of password.
// The cut may fall inside a multibyte rune; Hash and Verify cut identically.
func bcryptInput(password string) []byte {
	b := []byte(password)
	if len(b) > bcryptMaxInput {
		b = b[:bcryptMaxInput]
	}
	return b
}

// Cost returns the configured work factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

var _ PasswordHasher = (*BcryptHasher)(nil)
