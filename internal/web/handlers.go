// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/observability"
)

// AccountService is the account flow surface the handlers call.
type AccountService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.User, error)
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
	Authenticate(token string) (auth.Identity, error)
	Profile(ctx context.Context, identity auth.Identity) (*auth.Profile, error)
}

// SessionTransport moves the session token between client and server.
type SessionTransport interface {
	Attach(w http.ResponseWriter, token string)
	Extract(r *http.Request) (string, bool)
	Clear(w http.ResponseWriter)
}

// Operation labels for auth outcome metrics.
const (
	opRegister = "register"
	opLogin    = "login"
)

// AuthHandler serves the /auth routes.
type AuthHandler struct {
	svc      AccountService
	sessions SessionTransport
	metrics  *observability.Metrics
	errs     *errorWriter
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.reject(c, opRegister, newInputError(err))
		return
	}
	in, err := req.input()
	if err != nil {
		h.reject(c, opRegister, err)
		return
	}

	if _, err := h.svc.Register(c.Request.Context(), in); err != nil {
		h.reject(c, opRegister, err)
		return
	}

	h.metrics.RecordAuth(opRegister, observability.ResultSuccess)
	c.JSON(http.StatusCreated, messageResponse{Message: "Registration successful."})
}

// Login handles POST /auth/login. On success the session cookie is set.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.reject(c, opLogin, newInputError(err))
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.reject(c, opLogin, err)
		return
	}

	h.sessions.Attach(c.Writer, result.Token)
	h.metrics.RecordAuth(opLogin, observability.ResultSuccess)
	c.JSON(http.StatusOK, loginResponse{Message: "Login successful", User: result.User})
}

// Profile handles GET /auth/profile behind requireSession.
func (h *AuthHandler) Profile(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		h.errs.write(c, oops.Code("SESSION_MISSING").Wrap(auth.ErrUnauthorized))
		return
	}

	profile, err := h.svc.Profile(c.Request.Context(), identity)
	if err != nil {
		h.errs.write(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Logout handles POST /auth/logout. It never fails.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.sessions.Clear(c.Writer)
	c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) reject(c *gin.Context, operation string, err error) {
	h.metrics.RecordAuth(operation, outcome(err))
	h.errs.write(c, err)
}

func outcome(err error) string {
	var inErr *inputError
	switch {
	case errors.As(err, &inErr):
		return observability.ResultInvalid
	case errors.Is(err, auth.ErrConflict):
		return observability.ResultConflict
	case errors.Is(err, auth.ErrUnauthorized):
		return observability.ResultDenied
	default:
		return observability.ResultError
	}
}
