// SPDX-License-Identifier: Apache-2.0

package pgpool

import (
	"context"

	"github.com/qail-io/qail/internal/pgconn"
)

// Connect builds a Pool of real Postgres connections, dialing through
// internal/pgconn.Connect and, when Config.TestOnAcquire is set,
// health-checking idle connections with a trivial SELECT 1 before
// handing them to a caller.
func Connect(ctx context.Context, connCfg pgconn.Config, poolCfg Config) (*Pool[*pgconn.Conn], error) {
	factory := func(ctx context.Context) (*pgconn.Conn, error) {
		return pgconn.Connect(ctx, connCfg)
	}
	ping := func(ctx context.Context, c *pgconn.Conn) error {
		_, err := c.SimpleQuery(ctx, "SELECT 1")
		return err
	}
	return New[*pgconn.Conn](ctx, poolCfg, factory, ping)
}
