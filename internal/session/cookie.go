// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package session binds session tokens to HTTP cookies.
package session

import (
	"net/http"
	"time"

	"github.com/samber/oops"
)

// DefaultCookieName is the cookie carrying the session token.
const DefaultCookieName = "auth_token"

// DefaultMaxAge is the session cookie lifetime. It does not follow the token
// TTL; an expired token in a live cookie is rejected on use.
const DefaultMaxAge = 7 * 24 * time.Hour

// CookieConfig configures a CookieTransport.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// CookieTransport attaches, extracts and clears the session cookie.
type CookieTransport struct {
	name   string
	secure bool
	maxAge time.Duration
}

// NewCookieTransport creates a CookieTransport. An empty name falls back to
// DefaultCookieName and a zero MaxAge to DefaultMaxAge.
func NewCookieTransport(cfg CookieConfig) (*CookieTransport, error) {
	if cfg.Name == "" {
		cfg.Name = DefaultCookieName
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.MaxAge < time.Second {
		return nil, oops.Code("COOKIE_CONFIG_INVALID").
			With("max_age", cfg.MaxAge).
			Errorf("cookie max age must be at least one second")
	}
	// Cookie names are HTTP tokens; http.Cookie.String silently drops invalid ones.
	if err := (&http.Cookie{Name: cfg.Name}).Valid(); err != nil {
		return nil, oops.Code("COOKIE_CONFIG_INVALID").With("name", cfg.Name).Wrap(err)
	}
	return &CookieTransport{
		name:   cfg.Name,
		secure: cfg.Secure,
		maxAge: cfg.MaxAge,
	}, nil
}

// Name returns the cookie name.
func (c *CookieTransport) Name() string {
	return c.name
}

// Attach sets the session cookie on the response.
func (c *CookieTransport) Attach(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(token, int(c.maxAge/time.Second)))
}

// Extract returns the session token from the request, if present.
func (c *CookieTransport) Extract(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// Clear expires the session cookie on the client.
func (c *CookieTransport) Clear(w http.ResponseWriter) {
	cookie := c.cookie("", -1)
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}

func (c *CookieTransport) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
