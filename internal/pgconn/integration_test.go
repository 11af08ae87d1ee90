// SPDX-License-Identifier: Apache-2.0

package pgconn

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail/internal/pgtest"
)

func TestMain(m *testing.M) {
	pgtest.SharedTestMain(m)
}

func connectTestDatabase(t *testing.T) *Conn {
	t.Helper()
	if !pgtest.Available() {
		t.Skip("no postgres container available (set QAIL_SKIP_CONTAINER_TESTS to suppress)")
	}
	ctx := context.Background()

	admin, err := dial(ctx, pgtest.URL("postgres"))
	require.NoError(t, err)
	defer admin.Close()

	dbName := pgtest.RandomDatabaseName()
	_, err = admin.SimpleQuery(ctx, fmt.Sprintf("CREATE DATABASE %s", dbName))
	require.NoError(t, err)
	t.Cleanup(func() {
		cleanup, err := dial(ctx, pgtest.URL("postgres"))
		if err == nil {
			defer cleanup.Close()
			cleanup.SimpleQuery(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName))
		}
	})

	conn, err := dial(ctx, pgtest.URL(dbName))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func dial(ctx context.Context, rawURL string) (*Conn, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	port := 5432
	if p := u.Port(); p != "" {
		port, _ = strconv.Atoi(p)
	}
	password, _ := u.User.Password()
	cfg := Config{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		Database: u.Path[1:],
	}
	return Connect(ctx, cfg)
}

func TestIntegration_ExecAndSimpleQuery(t *testing.T) {
	t.Parallel()
	conn := connectTestDatabase(t)
	ctx := context.Background()

	_, err := conn.SimpleQuery(ctx, `CREATE TABLE widgets (id serial PRIMARY KEY, name text NOT NULL)`)
	require.NoError(t, err)

	_, err = conn.Exec(ctx, `INSERT INTO widgets (name) VALUES ($1)`, [][]byte{[]byte("sprocket")})
	require.NoError(t, err)

	res, err := conn.Exec(ctx, `SELECT name FROM widgets WHERE name = $1`, [][]byte{[]byte("sprocket")})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	name, ok := res.Rows[0].String(0)
	require.True(t, ok)
	require.Equal(t, "sprocket", name)
}

func TestIntegration_ExecReportsRowsAffected(t *testing.T) {
	t.Parallel()
	conn := connectTestDatabase(t)
	ctx := context.Background()

	_, err := conn.SimpleQuery(ctx, `CREATE TABLE counters (id int PRIMARY KEY, n int NOT NULL)`)
	require.NoError(t, err)

	_, err = conn.Exec(ctx, `INSERT INTO counters (id, n) VALUES (1, 1), (2, 2), (3, 3)`, nil)
	require.NoError(t, err)

	res, err := conn.Exec(ctx, `UPDATE counters SET n = n + 1 WHERE id IN (1, 2)`, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(2), res.RowsAffected)
}

func seedHarbors(t *testing.T, conn *Conn, ctx context.Context) {
	t.Helper()
	_, err := conn.SimpleQuery(ctx, `CREATE TABLE harbors (id int PRIMARY KEY, name text NOT NULL)`)
	require.NoError(t, err)
	_, err = conn.Exec(ctx, `INSERT INTO harbors (id, name) VALUES (1, 'a'), (2, 'b'), (3, 'c')`, nil)
	require.NoError(t, err)
}

func harborBatch(n int) []Command {
	cmds := make([]Command, n)
	for i := range cmds {
		id := fmt.Sprintf("%d", i%3+1)
		cmds[i] = Command{SQL: `SELECT id, name FROM harbors WHERE id = $1`, Params: [][]byte{[]byte(id)}}
	}
	return cmds
}

func TestIntegration_ExecPipelineFast_CompletesEveryCommand(t *testing.T) {
	t.Parallel()
	conn := connectTestDatabase(t)
	ctx := context.Background()
	seedHarbors(t, conn, ctx)

	n, err := conn.ExecPipelineFast(ctx, harborBatch(1000))
	require.NoError(t, err)
	require.Equal(t, 1000, n)
}

func TestIntegration_ExecPipelineResults_ReturnsOneResultPerCommand(t *testing.T) {
	t.Parallel()
	conn := connectTestDatabase(t)
	ctx := context.Background()
	seedHarbors(t, conn, ctx)

	results, err := conn.ExecPipelineResults(ctx, harborBatch(50))
	require.NoError(t, err)
	require.Len(t, results, 50)
	for _, res := range results {
		require.Len(t, res.Rows, 1)
	}
}

func TestIntegration_ExecPipelineZeroCopy_ReturnsOneResultPerCommandAndReleases(t *testing.T) {
	t.Parallel()
	conn := connectTestDatabase(t)
	ctx := context.Background()
	seedHarbors(t, conn, ctx)

	results, err := conn.ExecPipelineZeroCopy(ctx, harborBatch(50))
	require.NoError(t, err)
	require.Len(t, results, 50)
	for _, res := range results {
		require.Len(t, res.Rows, 1)
		name, ok := string(res.Rows[0].Cols[1].Bytes), res.Rows[0].Cols[1].Bytes != nil
		require.True(t, ok)
		require.Contains(t, []string{"a", "b", "c"}, name)
		res.Release()
	}
}

func TestIntegration_ExecPipelineFast_StopsAfterMidBatchError(t *testing.T) {
	t.Parallel()
	conn := connectTestDatabase(t)
	ctx := context.Background()
	seedHarbors(t, conn, ctx)

	cmds := []Command{
		{SQL: `SELECT id FROM harbors WHERE id = $1`, Params: [][]byte{[]byte("1")}},
		{SQL: `SELECT id FROM nonexistent_table WHERE id = $1`, Params: [][]byte{[]byte("1")}},
		{SQL: `SELECT id FROM harbors WHERE id = $1`, Params: [][]byte{[]byte("2")}},
	}
	_, err := conn.ExecPipelineFast(ctx, cmds)
	require.Error(t, err)
}
