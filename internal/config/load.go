// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"errors"
	"io/fs"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Defaults.
const (
	DefaultAddr              = ":3000"
	DefaultMetricsAddr       = "127.0.0.1:9100"
	DefaultTokenTTL          = "7d"
	DefaultCookieName        = "auth_token"
	DefaultBcryptCost        = 10
	DefaultConnectAttempts   = 5
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 15 * time.Second
	DefaultWriteTimeout      = 15 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultShutdownTimeout   = 10 * time.Second
)

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"production":          "production",
	"addr":                "server.addr",
	"read-header-timeout": "server.read_header_timeout",
	"read-timeout":        "server.read_timeout",
	"write-timeout":       "server.write_timeout",
	"idle-timeout":        "server.idle_timeout",
	"shutdown-timeout":    "server.shutdown_timeout",
	"cors-origin":         "server.cors_origins",
	"metrics-addr":        "metrics.addr",
	"store":               "database.store",
	"database-url":        "database.url",
	"auto-migrate":        "database.auto_migrate",
	"db-connect-attempts": "database.connect_attempts",
	"jwt-secret":          "auth.jwt_secret",
	"token-ttl":           "auth.token_ttl",
	"bcrypt-cost":         "auth.bcrypt_cost",
	"hash-concurrency":    "auth.hash_concurrency",
	"cookie-name":         "cookie.name",
	"cookie-secure":       "cookie.secure",
	"log-format":          "log.format",
	"log-level":           "log.level",
}

// envKeys maps environment variables to configuration keys.
var envKeys = map[string]string{
	"ACCOUNTS_PRODUCTION": "production",
	"ACCOUNTS_ADDR":       "server.addr",
	"CORS_ORIGINS":        "server.cors_origins",
	"METRICS_ADDR":        "metrics.addr",
	"ACCOUNTS_STORE":      "database.store",
	"DATABASE_URL":        "database.url",
	"AUTO_MIGRATE":        "database.auto_migrate",
	"JWT_SECRET":          "auth.jwt_secret",
	"JWT_EXPIRES_IN":      "auth.token_ttl",
	"BCRYPT_COST":         "auth.bcrypt_cost",
	"APP_COOKIE_NAME":     "cookie.name",
	"APP_COOKIE_SECURE":   "cookie.secure",
	"LOG_FORMAT":          "log.format",
	"LOG_LEVEL":           "log.level",
}

// RegisterFlags adds the configuration flags and their defaults to flagSet.
func RegisterFlags(flagSet *pflag.FlagSet) {
	flagSet.Bool("production", false, "reject insecure development defaults")
	flagSet.String("addr", DefaultAddr, "HTTP listen address")
	flagSet.Duration("read-header-timeout", DefaultReadHeaderTimeout, "HTTP read header timeout")
	flagSet.Duration("read-timeout", DefaultReadTimeout, "HTTP read timeout")
	flagSet.Duration("write-timeout", DefaultWriteTimeout, "HTTP write timeout")
	flagSet.Duration("idle-timeout", DefaultIdleTimeout, "HTTP keep-alive idle timeout")
	flagSet.Duration("shutdown-timeout", DefaultShutdownTimeout, "graceful shutdown timeout")
	flagSet.StringSlice("cors-origin", nil, "origin allowed to make credentialed cross-origin requests (repeatable)")
	flagSet.String("metrics-addr", DefaultMetricsAddr, "metrics and health listen address (empty disables)")
	flagSet.String("store", StorePostgres, "user store backend: postgres or memory")
	flagSet.String("database-url", "", "PostgreSQL connection URL")
	flagSet.Bool("auto-migrate", false, "apply database migrations on startup")
	flagSet.Int("db-connect-attempts", DefaultConnectAttempts, "database connection attempts at startup")
	flagSet.String("jwt-secret", InsecureDefaultSecret, "HS256 session token signing secret")
	flagSet.String("token-ttl", DefaultTokenTTL, "session token lifetime, e.g. 7d or 168h")
	flagSet.Int("bcrypt-cost", DefaultBcryptCost, "bcrypt work factor")
	flagSet.Int("hash-concurrency", runtime.GOMAXPROCS(0), "maximum concurrent password hash operations")
	flagSet.String("cookie-name", DefaultCookieName, "session cookie name")
	flagSet.Bool("cookie-secure", false, "mark the session cookie Secure")
	flagSet.String("log-format", "json", "log format: json or text")
	flagSet.String("log-level", "info", "log level: debug, info, warn or error")
}

// Sources names the optional files Load reads.
type Sources struct {
	// ConfigFile is a YAML file. Empty skips it; a missing named file is an error.
	ConfigFile string
	// EnvFile is a dotenv file loaded into the process environment. A missing
	// file is ignored. Variables already set are not overridden.
	EnvFile string
}

// Load builds a Config from the layered sources and the flags registered by
// RegisterFlags on flagSet. The result is not validated.
func Load(flagSet *pflag.FlagSet, src Sources) (*Config, error) {
	if src.EnvFile != "" {
		if err := godotenv.Load(src.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("env_file", src.EnvFile).Wrap(err)
		}
	}

	k := koanf.New(".")

	if src.ConfigFile != "" {
		if err := k.Load(file.Provider(src.ConfigFile), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("config_file", src.ConfigFile).Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "environment").Wrap(err)
	}

	// Unchanged flags only fill keys no earlier layer set.
	flags := posflag.ProviderWithFlag(flagSet, ".", k, func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(flagSet, f)
	})
	if err := k.Load(flags, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	return &cfg, nil
}

func envValue(name, value string) (string, any) {
	if value == "" {
		return "", nil
	}
	if name == "PORT" {
		return "server.addr", ":" + value
	}
	key, ok := envKeys[name]
	if !ok {
		return "", nil
	}
	return key, value
}
