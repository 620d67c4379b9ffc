// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"strings"

	"github.com/holomush/accounts/internal/auth"
)

type registerRequest struct {
	FullName     string  `json:"fullName" binding:"required,nonblank"`
	Email        string  `json:"email" binding:"required,email"`
	Password     string  `json:"password" binding:"required,min=8,max=64"`
	MobileNumber *string `json:"mobileNumber" binding:"omitempty,mobile"`
	Gender       *string `json:"gender"`
	DateOfBirth  *string `json:"dateOfBirth" binding:"omitempty,isodate"`
}

func (r registerRequest) input() (auth.RegisterInput, error) {
	in := auth.RegisterInput{
		FullName:     strings.TrimSpace(r.FullName),
		Email:        r.Email,
		Password:     r.Password,
		MobileNumber: optional(r.MobileNumber),
		Gender:       optional(r.Gender),
	}
	if dob := optional(r.DateOfBirth); dob != nil {
		t, err := parseISODate(*dob)
		if err != nil {
			return auth.RegisterInput{}, &inputError{msg: "dateOfBirth must be an ISO 8601 date", err: err}
		}
		in.DateOfBirth = &t
	}
	return in, nil
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type loginResponse struct {
	Message string          `json:"message"`
	User    auth.PublicUser `json:"user"`
}

// optional drops absent and blank values.
func optional(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

