// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store owns the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ConnectOptions controls how Connect retries an unavailable database.
type ConnectOptions struct {
	// MaxAttempts is the total number of connection attempts, including the first.
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Logger         *slog.Logger
}

// DefaultConnectOptions returns the startup retry policy.
func DefaultConnectOptions() ConnectOptions {
	return ConnectOptions{
		MaxAttempts:    5,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Logger:         slog.Default(),
	}
}

func (o ConnectOptions) backoff() retry.Backoff {
	attempts := o.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	initial := o.InitialBackoff
	if initial <= 0 {
		initial = time.Millisecond
	}
	b := retry.NewExponential(initial)
	if o.MaxBackoff > 0 {
		b = retry.WithCappedDuration(o.MaxBackoff, b)
	}
	return retry.WithMaxRetries(uint64(attempts-1), b) //nolint:gosec // attempts >= 1
}

// Connect opens a pgx pool and pings it, retrying with exponential backoff
// while the database is unreachable. It is meant for process startup only.
func Connect(ctx context.Context, databaseURL string, opts ConnectOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}

	pool, err := withRetry(ctx, opts, func(ctx context.Context) (*pgxpool.Pool, error) {
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped once retries are exhausted
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, err //nolint:wrapcheck // wrapped once retries are exhausted
		}
		return pool, nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("host", cfg.ConnConfig.Host).
			With("database", cfg.ConnConfig.Database).
			Wrap(err)
	}
	return pool, nil
}

func withRetry[T any](ctx context.Context, opts ConnectOptions, op func(context.Context) (T, error)) (T, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var result T
	attempt := 0
	err := retry.Do(ctx, opts.backoff(), func(ctx context.Context) error {
		attempt++
		v, err := op(ctx)
		if err != nil {
			logger.Warn("database not reachable", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		result = v
		return nil
	})
	return result, err //nolint:wrapcheck // callers attach their own code
}

// Readiness reports whether the pool can reach the database within timeout.
func Readiness(pool *pgxpool.Pool, timeout time.Duration) func() bool {
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return pool.Ping(ctx) == nil
	}
}
