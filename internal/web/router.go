// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/samber/oops"

	"github.com/holomush/accounts/internal/observability"
)

// Options configures the HTTP surface.
type Options struct {
	Service  AccountService
	Sessions SessionTransport
	// Metrics may be nil.
	Metrics *observability.Metrics
	Logger  *slog.Logger
	// CORSOrigins lists origins allowed to make credentialed requests.
	// Empty disables CORS handling.
	CORSOrigins []string
	// Now stamps error bodies. Defaults to time.Now.
	Now func() time.Time
}

// NewRouter builds the gin engine serving the /auth routes.
func NewRouter(opts Options) (*gin.Engine, error) {
	if opts.Service == nil {
		return nil, oops.Code("WEB_INVALID_OPTIONS").Errorf("account service is required")
	}
	if opts.Sessions == nil {
		return nil, oops.Code("WEB_INVALID_OPTIONS").Errorf("session transport is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if err := RegisterValidators(); err != nil {
		return nil, err
	}

	errs := &errorWriter{logger: opts.Logger, now: opts.Now}

	r := gin.New()
	r.Use(
		requestID(),
		accessLog(opts.Logger),
		instrument(opts.Metrics),
		gin.CustomRecovery(func(c *gin.Context, recovered any) {
			errs.abort(c, oops.Code("HTTP_PANIC").With("panic", recovered).Errorf("handler panicked"))
		}),
	)
	if len(opts.CORSOrigins) > 0 {
		handler, err := corsHandler(opts.CORSOrigins)
		if err != nil {
			return nil, err
		}
		r.Use(handler)
	}

	h := &AuthHandler{
		svc:      opts.Service,
		sessions: opts.Sessions,
		metrics:  opts.Metrics,
		errs:     errs,
	}

	group := r.Group("/auth")
	group.POST("/register", h.Register)
	group.POST("/login", h.Login)
	group.GET("/profile", requireSession(opts.Service, opts.Sessions, errs), h.Profile)
	group.POST("/logout", h.Logout)

	r.NoRoute(func(c *gin.Context) {
		errs.abort(c, errRouteNotFound)
	})

	return r, nil
}

func corsHandler(origins []string) (gin.HandlerFunc, error) {
	// Browsers refuse a wildcard origin on credentialed responses.
	if slices.Contains(origins, "*") {
		return nil, oops.Code("WEB_INVALID_OPTIONS").
			With("cors_origins", origins).
			Errorf("wildcard origin cannot be combined with cookie credentials")
	}
	cfg := cors.Config{
		AllowOrigins:     slices.Clone(origins),
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders:    []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if err := cfg.Validate(); err != nil {
		return nil, oops.Code("WEB_INVALID_OPTIONS").With("cors_origins", origins).Wrap(err)
	}
	return cors.New(cfg), nil
}
