// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Deckhall Contributors

//go:build integration

package store_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/deckhall/deckhall/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var migrator *store.Migrator

	BeforeAll(func() {
		var err error
		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { Expect(migrator.Close()).To(Succeed()) })
	})

	It("starts with every migration pending", func() {
		status, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Version).To(BeZero())
		Expect(status.Pending).To(Equal([]uint{1, 2}))
	})

	It("applies every migration and is idempotent", func() {
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Up()).To(Succeed())

		status, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Version).To(Equal(uint(2)))
		Expect(status.Dirty).To(BeFalse())
		Expect(status.Pending).To(BeEmpty())
	})

	It("creates the tables the repositories use", func() {
		pool, err := store.Connect(suiteCtx, connStr, store.ConnectOptions{})
		Expect(err).NotTo(HaveOccurred())
		defer pool.Close()

		for _, table := range []string{"users", "sessions", "decks", "games"} {
			var exists bool
			err := pool.QueryRow(suiteCtx,
				`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, table,
			).Scan(&exists)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue(), table)
		}
	})

	It("rolls everything back and re-applies", func() {
		Expect(migrator.Down()).To(Succeed())
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())

		Expect(migrator.Up()).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
	})

	It("forces a version without running SQL", func() {
		Expect(migrator.Force(1)).To(Succeed())
		status, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Version).To(Equal(uint(1)))
		Expect(status.Pending).To(Equal([]uint{2}))

		Expect(migrator.Force(2)).To(Succeed())
	})
})

var _ = Describe("Connect", func() {
	It("gives up on an unreachable database", func() {
		_, err := store.Connect(suiteCtx, "postgres://deckhall@127.0.0.1:1/deckhall?connect_timeout=1", store.ConnectOptions{
			Attempts: 2,
			Backoff:  10 * time.Millisecond,
		})
		Expect(err).To(HaveOccurred())
	})
})
