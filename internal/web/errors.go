// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/pkg/errutil"
)

var errRouteNotFound = errors.New("route not found")

type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Error      string `json:"error"`
	Timestamp  string `json:"timestamp"`
}

// errorWriter renders failures as error bodies.
type errorWriter struct {
	logger *slog.Logger
	now    func() time.Time
}

// classify maps an error to its status code and client message.
func classify(err error) (int, string) {
	var inErr *inputError
	switch {
	case errors.As(err, &inErr):
		return http.StatusBadRequest, inErr.msg
	case errors.Is(err, auth.ErrConflict):
		return http.StatusBadRequest, "Email already registered"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, errRouteNotFound):
		return http.StatusNotFound, "Not Found"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (w *errorWriter) write(c *gin.Context, err error) {
	status, msg := classify(err)
	ctx := c.Request.Context()
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(ctx, w.logger, "request failed", err,
			"method", c.Request.Method,
			"path", c.Request.URL.Path)
	} else {
		w.logger.DebugContext(ctx, "request rejected", "status", status, "error", err.Error())
	}
	c.JSON(status, errorBody{
		StatusCode: status,
		Error:      msg,
		Timestamp:  w.now().UTC().Format(time.RFC3339),
	})
}

func (w *errorWriter) abort(c *gin.Context, err error) {
	w.write(c, err)
	c.Abort()
}
