// SPDX-License-Identifier: Apache-2.0

// Package connstr parses and rewrites PostgreSQL connection URLs
// (`postgres://[user[:password]@]host[:port]/database`), defaulting to
// port 5432, user "postgres", database "postgres" when a URL omits
// them. pkg/shadow uses WithDatabase to derive a shadow database's URL
// from its primary by substituting only the database component.
package connstr

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/qail-io/qail/internal/pgconn"
)

const (
	DefaultPort     = 5432
	DefaultUser     = "postgres"
	DefaultDatabase = "postgres"
)

// Parse decodes a postgres:// URL into a pgconn.Config, applying
// defaults for any component the URL omits.
func Parse(raw string) (pgconn.Config, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return pgconn.Config{}, fmt.Errorf("connstr: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return pgconn.Config{}, fmt.Errorf("connstr: unsupported scheme %q, want postgres://", u.Scheme)
	}

	cfg := pgconn.Config{
		Host:     u.Hostname(),
		Port:     DefaultPort,
		User:     DefaultUser,
		Database: DefaultDatabase,
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return pgconn.Config{}, fmt.Errorf("connstr: invalid port %q: %w", p, err)
		}
		cfg.Port = port
	}
	if u.User != nil {
		if name := u.User.Username(); name != "" {
			cfg.User = name
		}
		if pw, ok := u.User.Password(); ok {
			cfg.Password = pw
		}
	}
	if db := trimLeadingSlash(u.Path); db != "" {
		cfg.Database = db
	}
	return cfg, nil
}

// DatabaseName returns just the database component a URL names,
// applying the same "postgres" default as Parse.
func DatabaseName(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("connstr: %w", err)
	}
	if db := trimLeadingSlash(u.Path); db != "" {
		return db, nil
	}
	return DefaultDatabase, nil
}

// WithDatabase returns raw with its database path component replaced by
// db, leaving user/password/host/port/query untouched.
func WithDatabase(raw, db string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("connstr: %w", err)
	}
	u.Path = "/" + db
	return u.String(), nil
}

func trimLeadingSlash(p string) string {
	if len(p) > 0 && p[0] == '/' {
		return p[1:]
	}
	return p
}
