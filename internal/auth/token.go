// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/oops"
)

// DefaultTokenTTL is how long an issued session token remains valid.
const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenService issues and verifies signed session tokens.
type TokenService interface {
	// Issue returns a signed token carrying the identity.
	Issue(identity Identity) (string, error)

	// Verify checks the signature and expiry of a token and returns the
	// identity it carries. Failures wrap ErrUnauthorized.
	Verify(token string) (Identity, error)
}

type sessionClaims struct {
	Email    string  `json:"email"`
	FullName string  `json:"fullName"`
	Gender   *string `json:"gender"`
	jwt.RegisteredClaims
}

// JWTTokenService implements TokenService with HS256 JWTs.
type JWTTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption configures a JWTTokenService.
type TokenOption func(*JWTTokenService)

// WithClock overrides the time source used for iat, exp and validation.
func WithClock(now func() time.Time) TokenOption {
	return func(s *JWTTokenService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewJWTTokenService creates a token service signing with secret.
func NewJWTTokenService(secret []byte, ttl time.Duration, opts ...TokenOption) (*JWTTokenService, error) {
	if len(secret) == 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("signing secret cannot be empty")
	}
	if ttl <= 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").With("ttl", ttl).Errorf("token ttl must be positive")
	}
	s := &JWTTokenService{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of issued tokens.
func (s *JWTTokenService) TTL() time.Duration {
	return s.ttl
}

// Issue returns a signed HS256 token for the identity.
func (s *JWTTokenService) Issue(identity Identity) (string, error) {
	now := s.now()
	claims := sessionClaims{
		Email:    identity.Email,
		FullName: identity.FullName,
		Gender:   identity.Gender,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(identity.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code("TOKEN_ISSUE_FAILED").With("user_id", identity.UserID).Wrap(err)
	}
	return signed, nil
}

// Verify parses the token and returns its identity.
func (s *JWTTokenService) Verify(token string) (Identity, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, oops.Code("TOKEN_INVALID").With("reason", err.Error()).Wrap(ErrUnauthorized)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return Identity{}, oops.Code("TOKEN_INVALID").With("subject", claims.Subject).Wrap(ErrUnauthorized)
	}

	return Identity{
		UserID:   id,
		Email:    claims.Email,
		FullName: claims.FullName,
		Gender:   claims.Gender,
	}, nil
}

var _ TokenService = (*JWTTokenService)(nil)
