// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

var mobilePattern = regexp.MustCompile(`^[0-9+\-()\s]*$`)

// isoDateLayouts are tried in order when parsing a date of birth.
var isoDateLayouts = []string{time.DateOnly, time.RFC3339}

var (
	validatorsOnce sync.Once
	validatorsErr  error
)

// RegisterValidators installs the custom binding rules on gin's validator.
// It is safe to call more than once.
func RegisterValidators() error {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			validatorsErr = oops.Code("VALIDATOR_UNAVAILABLE").
				Errorf("unsupported binding validator %T", binding.Validator.Engine())
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		for tag, fn := range map[string]validator.Func{
			"mobile":   validateMobile,
			"isodate":  validateISODate,
			"nonblank": validateNonBlank,
		} {
			if err := v.RegisterValidation(tag, fn); err != nil {
				validatorsErr = oops.Code("VALIDATOR_UNAVAILABLE").With("tag", tag).Wrap(err)
				return
			}
		}
	})
	return validatorsErr
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func validateMobile(fl validator.FieldLevel) bool {
	return mobilePattern.MatchString(fl.Field().String())
}

func validateISODate(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := parseISODate(s)
	return err == nil
}

func validateNonBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// parseISODate returns the UTC calendar date of s at midnight. Any time of
// day is dropped so every store keeps the same value.
func parseISODate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range isoDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			y, m, d := t.UTC().Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// inputError is a request body that failed binding or validation.
type inputError struct {
	msg string
	err error
}

func newInputError(err error) *inputError {
	return &inputError{msg: describeBindingError(err), err: err}
}

func (e *inputError) Error() string { return e.msg }

func (e *inputError) Unwrap() error { return e.err }

func describeBindingError(err error) string {
	var (
		fieldErrs validator.ValidationErrors
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &fieldErrs):
		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, describeFieldError(fe))
		}
		return strings.Join(msgs, "; ")
	case errors.Is(err, io.EOF):
		return "request body is required"
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return "request body is not valid JSON"
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return typeErr.Field + " must be a " + typeErr.Type.String()
		}
		return "request body has the wrong shape"
	default:
		return "invalid request body"
	}
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "nonblank":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "mobile":
		return field + " may only contain digits, spaces, parentheses, + and -"
	case "isodate":
		return field + " must be an ISO 8601 date"
	default:
		return field + " is invalid"
	}
}
