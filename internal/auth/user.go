// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/samber/oops"
)

// User represents a stored account.
type User struct {
	ID           int64
	Email        string
	FullName     string
	PasswordHash string
	MobileNumber *string
	Gender       *string
	DateOfBirth  *time.Time
	IsVerified   bool

	// Reserved for an email verification flow. No flow reads or writes
	// these today apart from the repository methods that manage them.
	VerificationCode    *string
	VerificationExpires *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser validates the required fields and returns an unsaved User.
// The repository assigns ID, CreatedAt and UpdatedAt on Create.
func NewUser(email, fullName, passwordHash string) (*User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, oops.Code("USER_INVALID").Errorf("email is required")
	}
	if strings.TrimSpace(fullName) == "" {
		return nil, oops.Code("USER_INVALID").Errorf("full name is required")
	}
	if passwordHash == "" {
		return nil, oops.Code("USER_INVALID").Errorf("password hash is required")
	}
	return &User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
	}, nil
}

// Identity returns the claims a session token carries for this user.
func (u *User) Identity() Identity {
	return Identity{
		UserID:   u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		Gender:   u.Gender,
	}
}

// Public returns the login projection of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		FullName: u.FullName,
		Email:    u.Email,
		Gender:   u.Gender,
	}
}

// Profile returns the profile projection of the user.
func (u *User) Profile() Profile {
	return Profile{
		PublicUser:   u.Public(),
		MobileNumber: u.MobileNumber,
		DateOfBirth:  u.DateOfBirth,
	}
}

// Identity is the authenticated principal carried by a session token.
type Identity struct {
	UserID   int64
	Email    string
	FullName string
	Gender   *string
}

// PublicUser is the caller-visible part of a User returned on login.
type PublicUser struct {
	ID       int64   `json:"id"`
	FullName string  `json:"fullName"`
	Email    string  `json:"email"`
	Gender   *string `json:"gender"`
}

// Profile is the caller-visible part of a User returned by the profile endpoint.
type Profile struct {
	PublicUser
	MobileNumber *string    `json:"mobileNumber"`
	DateOfBirth  *time.Time `json:"dateOfBirth"`
}

// UserRepository manages user persistence.
type UserRepository interface {
	// GetByEmail retrieves a user by exact email. Returns ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID retrieves a user by id. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id int64) (*User, error)

	// Create stores a new user and assigns its ID and timestamps.
	// Returns an error wrapping ErrConflict when the email is taken.
	Create(ctx context.Context, user *User) error

	// UpdateVerification stores a verification code and its expiry.
	UpdateVerification(ctx context.Context, email, code string, expires time.Time) error

	// MarkVerified sets IsVerified and clears any pending verification code.
	MarkVerified(ctx context.Context, email string) error
}
