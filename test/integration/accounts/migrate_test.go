// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package accounts_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/accounts/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var migrator *store.Migrator

	BeforeAll(func() {
		var err error
		migrator, err = store.NewMigrator(env.connStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() {
			// Leave the schema applied for the other specs.
			Expect(migrator.Up()).To(Succeed())
			Expect(migrator.Close()).To(Succeed())
		})
	})

	It("reports the applied version with nothing pending", func() {
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeNumerically("==", 1))
		Expect(dirty).To(BeFalse())

		pending, err := migrator.Pending()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeEmpty())
	})

	It("treats a repeated up as a no-op", func() {
		Expect(migrator.Up()).To(Succeed())
	})

	It("rolls back to an empty schema and re-applies", func() {
		Expect(migrator.Down()).To(Succeed())

		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())

		pending, err := migrator.Pending()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(ConsistOf(uint(1)))

		var exists bool
		Expect(env.pool.QueryRow(context.Background(),
			"SELECT to_regclass('public.users') IS NOT NULL").Scan(&exists)).To(Succeed())
		Expect(exists).To(BeFalse())

		Expect(migrator.Up()).To(Succeed())
		Expect(env.pool.QueryRow(context.Background(),
			"SELECT to_regclass('public.users') IS NOT NULL").Scan(&exists)).To(Succeed())
		Expect(exists).To(BeTrue())
	})
})
