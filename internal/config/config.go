// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads the accounts service configuration.
//
// Values are layered, lowest precedence first:
//
//  1. flag defaults
//  2. the YAML file named by --config
//  3. environment variables (a .env file is read into the environment first)
//  4. flags set on the command line
package config

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// InsecureDefaultSecret is the development signing secret. It is rejected in
// production mode.
//
//nolint:gosec // G101: published development default, not a credential.
const InsecureDefaultSecret = "dev_jwt_secret_change_me"

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

const redacted = "[REDACTED]"

// Config is the complete service configuration.
type Config struct {
	Production bool           `koanf:"production" yaml:"production"`
	Server     ServerConfig   `koanf:"server" yaml:"server"`
	Metrics    MetricsConfig  `koanf:"metrics" yaml:"metrics"`
	Database   DatabaseConfig `koanf:"database" yaml:"database"`
	Auth       AuthConfig     `koanf:"auth" yaml:"auth"`
	Cookie     CookieConfig   `koanf:"cookie" yaml:"cookie"`
	Log        LogConfig      `koanf:"log" yaml:"log"`
}

// ServerConfig configures the public HTTP listener.
type ServerConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// MarshalYAML renders durations in their string form.
func (s ServerConfig) MarshalYAML() (any, error) {
	return struct {
		Addr              string   `yaml:"addr"`
		ReadHeaderTimeout string   `yaml:"read_header_timeout"`
		ReadTimeout       string   `yaml:"read_timeout"`
		WriteTimeout      string   `yaml:"write_timeout"`
		IdleTimeout       string   `yaml:"idle_timeout"`
		ShutdownTimeout   string   `yaml:"shutdown_timeout"`
		CORSOrigins       []string `yaml:"cors_origins"`
	}{
		Addr:              s.Addr,
		ReadHeaderTimeout: s.ReadHeaderTimeout.String(),
		ReadTimeout:       s.ReadTimeout.String(),
		WriteTimeout:      s.WriteTimeout.String(),
		IdleTimeout:       s.IdleTimeout.String(),
		ShutdownTimeout:   s.ShutdownTimeout.String(),
		CORSOrigins:       s.CORSOrigins,
	}, nil
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// DatabaseConfig selects and configures the user store.
type DatabaseConfig struct {
	Store           string `koanf:"store" yaml:"store"`
	URL             string `koanf:"url" yaml:"url"`
	AutoMigrate     bool   `koanf:"auto_migrate" yaml:"auto_migrate"`
	ConnectAttempts int    `koanf:"connect_attempts" yaml:"connect_attempts"`
}

// AuthConfig configures credentials and session tokens.
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret" yaml:"jwt_secret"`
	// TokenTTL accepts Go durations ("168h"), whole days ("7d") or seconds ("3600").
	TokenTTL        string `koanf:"token_ttl" yaml:"token_ttl"`
	BcryptCost      int    `koanf:"bcrypt_cost" yaml:"bcrypt_cost"`
	HashConcurrency int    `koanf:"hash_concurrency" yaml:"hash_concurrency"`
}

// CookieConfig configures the session cookie.
type CookieConfig struct {
	Name   string `koanf:"name" yaml:"name"`
	Secure bool   `koanf:"secure" yaml:"secure"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format"`
	Level  string `koanf:"level" yaml:"level"`
}

// TokenTTL returns the parsed token lifetime.
func (c *Config) TokenTTL() (time.Duration, error) {
	return ParseTTL(c.Auth.TokenTTL)
}

// InsecureSecret reports whether the signing secret is the published default.
func (c *Config) InsecureSecret() bool {
	return c.Auth.JWTSecret == InsecureDefaultSecret
}

// Validate checks the configuration for invalid or unsafe values.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return oops.Code("CONFIG_INVALID").With("field", "server.addr").Errorf("listen address is required")
	}
	if c.Metrics.Addr != "" && c.Metrics.Addr == c.Server.Addr {
		return oops.Code("CONFIG_INVALID").With("field", "metrics.addr").Errorf("metrics address must differ from server address")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return oops.Code("CONFIG_INVALID").With("field", "server.shutdown_timeout").Errorf("shutdown timeout must be positive")
	}

	switch c.Database.Store {
	case StorePostgres:
		if c.Database.URL == "" {
			return oops.Code("CONFIG_INVALID").With("field", "database.url").Errorf("database url is required for the postgres store")
		}
	case StoreMemory:
		if c.Production {
			return oops.Code("CONFIG_INVALID").With("field", "database.store").Errorf("memory store is not allowed in production")
		}
	default:
		return oops.Code("CONFIG_INVALID").
			With("field", "database.store").
			With("store", c.Database.Store).
			Errorf("store must be %q or %q", StorePostgres, StoreMemory)
	}

	if c.Auth.JWTSecret == "" {
		return oops.Code("CONFIG_INVALID").With("field", "auth.jwt_secret").Errorf("jwt secret is required")
	}
	if c.Production && c.InsecureSecret() {
		return oops.Code("CONFIG_INSECURE").With("field", "auth.jwt_secret").Errorf("the default jwt secret cannot be used in production")
	}
	if _, err := c.TokenTTL(); err != nil {
		return err
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return oops.Code("CONFIG_INVALID").
			With("field", "auth.bcrypt_cost").
			Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Auth.HashConcurrency < 0 {
		return oops.Code("CONFIG_INVALID").With("field", "auth.hash_concurrency").Errorf("hash concurrency cannot be negative")
	}
	if c.Cookie.Name == "" {
		return oops.Code("CONFIG_INVALID").With("field", "cookie.name").Errorf("cookie name is required")
	}
	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		return oops.Code("CONFIG_INVALID").With("field", "log.format").Errorf("log format must be json or text")
	}
	return nil
}

// Redacted returns a copy safe to print: the signing secret is hidden and
// any database password is masked.
func (c Config) Redacted() Config {
	out := c
	if out.Auth.JWTSecret != "" {
		out.Auth.JWTSecret = redacted
	}
	if u, err := url.Parse(out.Database.URL); err == nil && u.User != nil {
		out.Database.URL = u.Redacted()
	}
	out.Server.CORSOrigins = slices.Clone(c.Server.CORSOrigins)
	return out
}

// ParseTTL parses a token lifetime. It accepts Go durations ("168h"),
// whole days ("7d") and bare seconds ("604800").
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var (
		ttl time.Duration
		err error
	)
	switch {
	case s == "":
		err = oops.Errorf("token ttl is empty")
	case strings.HasSuffix(s, "d"):
		var days int
		days, err = strconv.Atoi(strings.TrimSuffix(s, "d"))
		ttl = time.Duration(days) * 24 * time.Hour
	case strings.Trim(s, "0123456789") == "":
		var secs int
		secs, err = strconv.Atoi(s)
		ttl = time.Duration(secs) * time.Second
	default:
		ttl, err = time.ParseDuration(s)
	}
	if err != nil {
		return 0, oops.Code("CONFIG_INVALID").With("field", "auth.token_ttl").With("value", s).Wrap(err)
	}
	if ttl <= 0 {
		return 0, oops.Code("CONFIG_INVALID").With("field", "auth.token_ttl").With("value", s).Errorf("token ttl must be positive")
	}
	return ttl, nil
}
