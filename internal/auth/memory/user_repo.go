// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory implements the auth repositories in process memory.
// Data does not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
)

// UserRepository implements auth.UserRepository with a mutex-guarded map.
type UserRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*auth.User
	byEmail map[string]int64
	now     func() time.Time
}

// NewUserRepository creates an empty UserRepository.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[int64]*auth.User),
		byEmail: make(map[string]int64),
		now:     time.Now,
	}
}

// Create stores a copy of the user and assigns its id and timestamps.
func (r *UserRepository) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[user.Email]; taken {
		return oops.Code("USER_EMAIL_TAKEN").With("email", user.Email).Wrap(auth.ErrConflict)
	}

	r.nextID++
	now := r.now().UTC()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.byID[stored.ID] = &stored
	r.byEmail[stored.Email] = stored.ID
	return nil
}

// GetByEmail returns a copy of the user with the given email.
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	user := *r.byID[id]
	return &user, nil
}

// GetByID returns a copy of the user with the given id.
func (r *UserRepository) GetByID(_ context.Context, id int64) (*auth.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").With("id", id).Wrap(auth.ErrNotFound)
	}
	user := *stored
	return &user, nil
}

// UpdateVerification stores a pending verification code.
func (r *UserRepository) UpdateVerification(_ context.Context, email, code string, expires time.Time) error {
	return r.update(email, func(u *auth.User) {
		u.VerificationCode = &code
		u.VerificationExpires = &expires
	})
}

// MarkVerified flags the account verified and clears the pending code.
func (r *UserRepository) MarkVerified(_ context.Context, email string) error {
	return r.update(email, func(u *auth.User) {
		u.IsVerified = true
		u.VerificationCode = nil
		u.VerificationExpires = nil
	})
}

func (r *UserRepository) update(email string, fn func(*auth.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byEmail[email]
	if !ok {
		return oops.Code("USER_NOT_FOUND").With("email", email).Wrap(auth.ErrNotFound)
	}
	user := r.byID[id]
	fn(user)
	user.UpdatedAt = r.now().UTC()
	return nil
}

var _ auth.UserRepository = (*UserRepository)(nil)
