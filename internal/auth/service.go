// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
)

// Service provides the account flows behind the HTTP surface.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenService
	logger *slog.Logger
}

// NewService creates a new Service.
func NewService(users UserRepository, hasher PasswordHasher, tokens TokenService) (*Service, error) {
	return NewServiceWithLogger(users, hasher, tokens, slog.Default())
}

// NewServiceWithLogger creates a new Service with a specific logger.
func NewServiceWithLogger(users UserRepository, hasher PasswordHasher, tokens TokenService, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_SERVICE").Errorf("token service is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}, nil
}

// dummyPasswordHash is verified when the email is unknown so that the
// response time matches a real verification at the default cost.
//
//nolint:gosec // G101: not a credential, matches no password.
const dummyPasswordHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3X1y5UdG0kU7pQZWfWW0N9C"

// RegisterInput holds the fields accepted at registration.
type RegisterInput struct {
	FullName     string
	Email        string
	Password     string
	MobileNumber *string
	Gender       *string
	DateOfBirth  *time.Time
}

// Register creates a new account. An existing email yields an error wrapping
// ErrConflict.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	_, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, oops.Code("AUTH_EMAIL_TAKEN").With("email", in.Email).Wrap(ErrConflict)
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(in.Email, in.FullName, hash)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").Wrap(err)
	}
	user.MobileNumber = in.MobileNumber
	user.Gender = in.Gender
	user.DateOfBirth = in.DateOfBirth
	// Accounts are usable immediately; no verification flow gates them.
	user.IsVerified = true

	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, ErrConflict) {
			return nil, oops.Code("AUTH_EMAIL_TAKEN").With("email", in.Email).Wrap(ErrConflict)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token string
	User  PublicUser
}

// Login checks the credentials and issues a session token.
// Unknown emails and wrong passwords both return ErrInvalidCredentials
// after the same amount of hashing work.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, lookupErr := s.users.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
	case !errors.Is(lookupErr, ErrNotFound):
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	valid, err := s.hasher.Verify(ctx, password, targetHash)
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(err)
	}
	if lookupErr != nil || !valid {
		return nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	token, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			With("user_id", user.ID).
			Wrap(err)
	}

	return &LoginResult{Token: token, User: user.Public()}, nil
}

// Authenticate verifies a session token and returns its identity.
func (s *Service) Authenticate(token string) (Identity, error) {
	if token == "" {
		return Identity{}, oops.Code("AUTH_NO_SESSION").Wrap(ErrUnauthorized)
	}
	return s.tokens.Verify(token)
}

// Profile returns the profile of the authenticated user. A user deleted
// after the token was issued is reported as ErrUnauthorized.
func (s *Service) Profile(ctx context.Context, identity Identity) (*Profile, error) {
	user, err := s.users.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_USER_GONE").With("user_id", identity.UserID).Wrap(ErrUnauthorized)
		}
		return nil, oops.Code("AUTH_PROFILE_FAILED").
			With("user_id", identity.UserID).
			Wrap(err)
	}
	profile := user.Profile()
	return &profile, nil
}
