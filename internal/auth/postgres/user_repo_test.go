// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/auth/postgres"
	"github.com/holomush/accounts/pkg/errutil"
)

var userCols = []string{
	"id", "email", "full_name", "password_hash", "mobile_number", "gender",
	"date_of_birth", "is_verified", "verification_code", "verification_expires",
	"created_at", "updated_at",
}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *postgres.UserRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(mock.Close)
	return mock, postgres.NewUserRepository(mock)
}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	newUser := func() *auth.User {
		gender := "male"
		return &auth.User{
			Email:        "alan@example.com",
			FullName:     "Alan Turing",
			PasswordHash: "$2a$10$hash",
			Gender:       &gender,
			IsVerified:   true,
		}
	}

	t.Run("assigns id and timestamps", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs("alan@example.com", "Alan Turing", "$2a$10$hash",
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				true, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
				AddRow(int64(5), created, created))

		user := newUser()
		require.NoError(t, repo.Create(ctx, user))
		assert.Equal(t, int64(5), user.ID)
		assert.Equal(t, created, user.CreatedAt)
		assert.Equal(t, created, user.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation wraps conflict", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "users_email_key",
			})

		err := repo.Create(ctx, newUser())
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrConflict)
		errutil.AssertErrorCode(t, err, "USER_EMAIL_TAKEN")
		errutil.AssertErrorContext(t, err, "constraint", "users_email_key")
	})

	t.Run("other database errors are not conflicts", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.NotNullViolation})

		err := repo.Create(ctx, newUser())
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrConflict)
		errutil.AssertErrorCode(t, err, "USER_CREATE_FAILED")
	})
}

func TestUserRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mobile := "+1 (555) 0100"
	dob := time.Date(1912, 6, 23, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		check     func(t *testing.T, user *auth.User, err error)
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
					WithArgs("alan@example.com").
					WillReturnRows(pgxmock.NewRows(userCols).AddRow(
						int64(5), "alan@example.com", "Alan Turing", "$2a$10$hash",
						&mobile, nil, &dob, true, nil, nil, created, created))
			},
			check: func(t *testing.T, user *auth.User, err error) {
				require.NoError(t, err)
				assert.Equal(t, int64(5), user.ID)
				assert.Equal(t, "Alan Turing", user.FullName)
				require.NotNil(t, user.MobileNumber)
				assert.Equal(t, mobile, *user.MobileNumber)
				assert.Nil(t, user.Gender)
				require.NotNil(t, user.DateOfBirth)
				assert.True(t, dob.Equal(*user.DateOfBirth))
				assert.True(t, user.IsVerified)
			},
		},
		{
			name: "not found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
					WithArgs("alan@example.com").
					WillReturnRows(pgxmock.NewRows(userCols))
			},
			check: func(t *testing.T, user *auth.User, err error) {
				require.Error(t, err)
				assert.Nil(t, user)
				assert.ErrorIs(t, err, auth.ErrNotFound)
				errutil.AssertErrorCode(t, err, "USER_NOT_FOUND")
			},
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
					WillReturnError(errors.New("connection refused"))
			},
			check: func(t *testing.T, user *auth.User, err error) {
				require.Error(t, err)
				assert.NotErrorIs(t, err, auth.ErrNotFound)
				assert.Contains(t, err.Error(), "connection refused")
				errutil.AssertErrorCode(t, err, "USER_GET_BY_EMAIL_FAILED")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMockRepo(t)
			tt.setupMock(mock)

			user, err := repo.GetByEmail(ctx, "alan@example.com")
			tt.check(t, user, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
			WithArgs(int64(5)).
			WillReturnRows(pgxmock.NewRows(userCols).AddRow(
				int64(5), "alan@example.com", "Alan Turing", "$2a$10$hash",
				nil, nil, nil, true, nil, nil, created, created))

		user, err := repo.GetByID(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, "alan@example.com", user.Email)
		assert.Nil(t, user.MobileNumber)
		assert.Nil(t, user.DateOfBirth)
	})

	t.Run("not found", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE id = \$1`).
			WithArgs(int64(9)).
			WillReturnRows(pgxmock.NewRows(userCols))

		_, err := repo.GetByID(ctx, 9)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		errutil.AssertErrorContext(t, err, "id", int64(9))
	})
}

func TestUserRepository_Verification(t *testing.T) {
	ctx := context.Background()
	expires := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)

	t.Run("update verification stores code", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec(`UPDATE users\s+SET verification_code = \$2`).
			WithArgs("alan@example.com", "123456", expires).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.UpdateVerification(ctx, "alan@example.com", "123456", expires))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("update verification for unknown email", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec(`UPDATE users`).
			WithArgs("nobody@example.com", "123456", expires).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateVerification(ctx, "nobody@example.com", "123456", expires)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("mark verified clears code", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec(`UPDATE users\s+SET is_verified = TRUE, verification_code = NULL`).
			WithArgs("alan@example.com").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		require.NoError(t, repo.MarkVerified(ctx, "alan@example.com"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mark verified for unknown email", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec(`UPDATE users`).
			WithArgs("nobody@example.com").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.MarkVerified(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("exec failure", func(t *testing.T) {
		mock, repo := newMockRepo(t)
		mock.ExpectExec(`UPDATE users`).
			WillReturnError(errors.New("deadlock"))

		err := repo.MarkVerified(ctx, "alan@example.com")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "USER_UPDATE_FAILED")
	})
}
