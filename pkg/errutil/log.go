// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package errutil bridges oops errors into logs and test assertions.
package errutil

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
)

// LogError logs err at error level. Oops errors contribute their code and
// context as separate attributes; other errors are logged as a string.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	LogErrorContext(context.Background(), logger, msg, err, attrs...)
}

// LogErrorContext is LogError with a context, so handlers that read request
// or trace values from ctx can decorate the record.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error, attrs ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	all := make([]any, 0, len(attrs)+6)
	all = append(all, attrs...)

	if oopsErr, ok := oops.AsOops(err); ok {
		all = append(all, "error", oopsErr.Error())
		if code := oopsErr.Code(); code != nil && code != "" {
			all = append(all, "code", code)
		}
		if errCtx := oopsErr.Context(); len(errCtx) > 0 {
			all = append(all, "context", errCtx)
		}
	} else {
		all = append(all, "error", err)
	}
	logger.ErrorContext(ctx, msg, all...)
}
