// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package accounts_test

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/accounts/internal/auth"
	"github.com/holomush/accounts/internal/auth/postgres"
)

func newUser(email string) *auth.User {
	user, err := auth.NewUser(email, "Test User", "$2a$04$abcdefghijklmnopqrstuuJ4x1ZkYq7u8hUdmvVJbKjcx3qjYI4xa")
	Expect(err).NotTo(HaveOccurred())
	return user
}

var _ = Describe("UserRepository", func() {
	var (
		ctx   context.Context
		users *postgres.UserRepository
	)

	BeforeEach(func() {
		ctx = context.Background()
		truncateUsers(ctx)
		users = postgres.NewUserRepository(env.pool)
	})

	Describe("Create", func() {
		It("assigns an id and timestamps", func() {
			before := time.Now().Add(-time.Minute)
			user := newUser("ada@example.com")

			Expect(users.Create(ctx, user)).To(Succeed())
			Expect(user.ID).To(BeNumerically(">", 0))
			Expect(user.CreatedAt).To(BeTemporally(">", before))
			Expect(user.UpdatedAt).To(BeTemporally(">", before))
		})

		It("round-trips optional fields", func() {
			mobile := "+44 20 7946"
			gender := "female"
			dob := time.Date(1815, 12, 10, 0, 0, 0, 0, time.UTC)
			user := newUser("ada@example.com")
			user.MobileNumber = &mobile
			user.Gender = &gender
			user.DateOfBirth = &dob
			user.IsVerified = true

			Expect(users.Create(ctx, user)).To(Succeed())

			got, err := users.GetByID(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Email).To(Equal("ada@example.com"))
			Expect(got.MobileNumber).To(HaveValue(Equal(mobile)))
			Expect(got.Gender).To(HaveValue(Equal(gender)))
			Expect(got.DateOfBirth).NotTo(BeNil())
			Expect(got.DateOfBirth.Equal(dob)).To(BeTrue())
			Expect(got.IsVerified).To(BeTrue())
			Expect(got.VerificationCode).To(BeNil())
		})

		It("rejects a duplicate email with ErrConflict", func() {
			Expect(users.Create(ctx, newUser("ada@example.com"))).To(Succeed())

			err := users.Create(ctx, newUser("ada@example.com"))
			Expect(err).To(MatchError(auth.ErrConflict))
		})

		It("treats emails differing only in case as distinct", func() {
			Expect(users.Create(ctx, newUser("ada@example.com"))).To(Succeed())
			Expect(users.Create(ctx, newUser("Ada@example.com"))).To(Succeed())
		})

		It("lets exactly one concurrent registration win", func() {
			const workers = 8
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				created   int
				conflicts int
			)
			for range workers {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					err := users.Create(ctx, newUser("race@example.com"))
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						created++
						return
					}
					Expect(err).To(MatchError(auth.ErrConflict))
					conflicts++
				}()
			}
			wg.Wait()

			Expect(created).To(Equal(1))
			Expect(conflicts).To(Equal(workers - 1))
		})
	})

	Describe("lookups", func() {
		It("returns ErrNotFound for unknown users", func() {
			_, err := users.GetByEmail(ctx, "nobody@example.com")
			Expect(err).To(MatchError(auth.ErrNotFound))

			_, err = users.GetByID(ctx, 4242)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})

		It("finds a user by email and by id", func() {
			user := newUser("grace@example.com")
			Expect(users.Create(ctx, user)).To(Succeed())

			byEmail, err := users.GetByEmail(ctx, "grace@example.com")
			Expect(err).NotTo(HaveOccurred())
			byID, err := users.GetByID(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byEmail.ID).To(Equal(byID.ID))
			Expect(byEmail.PasswordHash).To(Equal(user.PasswordHash))
		})
	})

	Describe("verification fields", func() {
		It("stores a code and then marks the user verified", func() {
			user := newUser("alan@example.com")
			Expect(users.Create(ctx, user)).To(Succeed())

			expires := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)
			Expect(users.UpdateVerification(ctx, "alan@example.com", "123456", expires)).To(Succeed())

			got, err := users.GetByID(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.VerificationCode).To(HaveValue(Equal("123456")))
			Expect(got.VerificationExpires).NotTo(BeNil())
			Expect(got.VerificationExpires.Equal(expires)).To(BeTrue())

			Expect(users.MarkVerified(ctx, "alan@example.com")).To(Succeed())
			got, err = users.GetByID(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.IsVerified).To(BeTrue())
			Expect(got.VerificationCode).To(BeNil())
		})

		It("reports unknown emails", func() {
			err := users.MarkVerified(ctx, "nobody@example.com")
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})
})
