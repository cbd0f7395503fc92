// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/wardenauth/warden/internal/store"
)

var _ = Describe("Schema", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		connStr   string
		migrator  *store.Migrator
	)

	BeforeAll(func() {
		ctx = context.Background()

		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("warden_test"),
			postgres.WithUsername("warden"),
			postgres.WithPassword("warden"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterAll(func() {
		if migrator != nil {
			Expect(migrator.Close()).To(Succeed())
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	It("starts at version zero", func() {
		status, err := migrator.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Version).To(BeZero())
		Expect(status.Pending).To(Equal([]uint{1, 2}))
	})

	It("applies every migration", func() {
		Expect(migrator.Up()).To(Succeed())

		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
		Expect(dirty).To(BeFalse())
	})

	It("is idempotent", func() {
		Expect(migrator.Up()).To(Succeed())
	})

	It("steps down and up again", func() {
		Expect(migrator.Steps(-1)).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(1)))

		Expect(migrator.Steps(1)).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(Equal(uint(2)))
	})

	Context("with an open pool", func() {
		var pool *pgxpool.Pool

		BeforeAll(func() {
			var err error
			pool, err = store.OpenPool(ctx, store.PoolConfig{URL: connStr, MaxConns: 4})
			Expect(err).NotTo(HaveOccurred())
		})

		AfterAll(func() {
			pool.Close()
		})

		It("enforces the minimum username length", func() {
			_, err := pool.Exec(ctx,
				`INSERT INTO users (id, username, password_hash) VALUES ('01J0000000000000000000000A', 'ab', 'x')`)
			Expect(sqlState(err)).To(Equal(pgerrcode.CheckViolation))
		})

		It("rejects reset codes for unknown users", func() {
			_, err := pool.Exec(ctx,
				`INSERT INTO reset_password_codes (username, code_hash, expires_at) VALUES ('ghost', 'h', now())`)
			Expect(sqlState(err)).To(Equal(pgerrcode.ForeignKeyViolation))
		})
	})

	It("rolls everything back", func() {
		Expect(migrator.Down()).To(Succeed())
		version, _, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
	})
})

var _ = Describe("OpenPool", func() {
	It("rejects an unparseable URL", func() {
		_, err := store.OpenPool(context.Background(), store.PoolConfig{URL: "://nope"})
		Expect(err).To(MatchError(ContainSubstring("cannot parse")))
	})
})

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
