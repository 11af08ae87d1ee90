// SPDX-License-Identifier: Apache-2.0

// Package pgtest starts a shared postgres testcontainer for integration
// tests that need a real server, the way pgroll's pkg/testutils does.
// Tests that want one call TestMain(m) -> pgtest.SharedTestMain(m),
// then create their own isolated database per test, named with
// pgtest.RandomDatabaseName and reached through pgtest.URL.
package pgtest

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultPostgresVersion = "16.3"

var baseConnStr string

// SharedTestMain starts one postgres container for every test in the
// calling package and tears it down after m.Run completes. Skips
// entirely (leaving baseConnStr empty) when QAIL_SKIP_CONTAINER_TESTS
// is set, so integration suites stay runnable on machines without a
// container runtime.
func SharedTestMain(m *testing.M) {
	if os.Getenv("QAIL_SKIP_CONTAINER_TESTS") != "" {
		os.Exit(m.Run())
	}

	ctx := context.Background()

	version := os.Getenv("POSTGRES_VERSION")
	if version == "" {
		version = defaultPostgresVersion
	}

	ctr, err := postgres.Run(ctx, "postgres:"+version,
		postgres.WithDatabase("qail_test"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pgtest: starting container:", err)
		os.Exit(1)
	}

	baseConnStr, err = ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		fmt.Fprintln(os.Stderr, "pgtest: connection string:", err)
		os.Exit(1)
	}

	code := m.Run()

	if err := ctr.Terminate(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "pgtest: terminating container:", err)
	}
	os.Exit(code)
}

// Available reports whether SharedTestMain actually started a
// container in this process.
func Available() bool {
	return baseConnStr != ""
}

// URL returns the container's postgres:// connection string, pointed
// at dbName instead of whatever database SharedTestMain created.
func URL(dbName string) string {
	u, err := url.Parse(baseConnStr)
	if err != nil {
		panic(err)
	}
	u.Path = "/" + dbName
	return u.String()
}

// RandomDatabaseName returns a name unlikely to collide across
// parallel tests in the same container.
func RandomDatabaseName() string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	b := make([]byte, 12)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return "t_" + string(b)
}
