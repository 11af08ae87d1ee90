// SPDX-License-Identifier: Apache-2.0

// Package shadow implements the blue-green shadow-database migration
// orchestrator: create a parallel database, apply the base schema plus
// the differ's ordered operations, stream the primary's data across,
// then promote (cut the primary over) or abort (drop the shadow) based
// on a single persisted _qail_shadow_state row.
//
// Grounded on cli/src/shadow.rs's state machine, replacing its
// string-interpolated SQL with parameterized queries run through
// pkg/qexec and internal/pgconn.
package shadow

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudflare/backoff"

	"github.com/qail-io/qail/internal/pgconn"
	"github.com/qail-io/qail/pkg/ast"
	"github.com/qail-io/qail/pkg/connstr"
	"github.com/qail-io/qail/pkg/qaillog"
	"github.com/qail-io/qail/pkg/qexec"
	"github.com/qail-io/qail/pkg/schema"
	"github.com/qail-io/qail/pkg/transpile"
)

const (
	stateTable        = "_qail_shadow_state"
	maxSyncBackoff    = 30 * time.Second
	syncBackoffUnit   = 500 * time.Millisecond
	excludedPrefix    = "_qail"
)

// Orchestrator drives one primary database's shadow migrations.
type Orchestrator struct {
	primaryURL string
	log        qaillog.Logger
	connectFn  func(ctx context.Context, url string) (*pgconn.Conn, error)
}

// Option configures an Orchestrator, following pgroll's functional-
// options habit (pkg/roll's `Option func(*options)`).
type Option func(*Orchestrator)

// WithLogger overrides the default no-op logger.
func WithLogger(l qaillog.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// New builds an Orchestrator for the given primary connection URL.
func New(primaryURL string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		primaryURL: primaryURL,
		log:        qaillog.NewNoop(),
	}
	o.connectFn = func(ctx context.Context, url string) (*pgconn.Conn, error) {
		cfg, err := connstr.Parse(url)
		if err != nil {
			return nil, err
		}
		return pgconn.Connect(ctx, cfg)
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ShadowName is "{primary_db}_shadow".
func (o *Orchestrator) ShadowName() (string, error) {
	db, err := connstr.DatabaseName(o.primaryURL)
	if err != nil {
		return "", err
	}
	return db + "_shadow", nil
}

// ShadowURL is the primary's URL with only the database component
// substituted for ShadowName.
func (o *Orchestrator) ShadowURL() (string, error) {
	name, err := o.ShadowName()
	if err != nil {
		return "", err
	}
	return connstr.WithDatabase(o.primaryURL, name)
}

func (o *Orchestrator) connectAdmin(ctx context.Context) (*pgconn.Conn, error) {
	adminURL, err := connstr.WithDatabase(o.primaryURL, "postgres")
	if err != nil {
		return nil, err
	}
	return o.connectFn(ctx, adminURL)
}

func (o *Orchestrator) connectPrimary(ctx context.Context) (*pgconn.Conn, error) {
	return o.connectFn(ctx, o.primaryURL)
}

func (o *Orchestrator) connectShadow(ctx context.Context) (*pgconn.Conn, error) {
	url, err := o.ShadowURL()
	if err != nil {
		return nil, err
	}
	return o.connectFn(ctx, url)
}

// Create issues CREATE DATABASE for the shadow, through an admin
// connection to the "postgres" maintenance database.
func (o *Orchestrator) Create(ctx context.Context) error {
	name, err := o.ShadowName()
	if err != nil {
		return err
	}
	conn, err := o.connectAdmin(ctx)
	if err != nil {
		return fmt.Errorf("shadow: connecting to admin database: %w", err)
	}
	defer conn.Close()

	o.log.Info("creating shadow database", "name", name)
	_, err = conn.SimpleQuery(ctx, fmt.Sprintf(`CREATE DATABASE %s`, quoteDatabaseName(name)))
	if err != nil {
		return fmt.Errorf("shadow: creating database %q: %w", name, err)
	}
	return nil
}

// ApplyBaseSchema runs base's tables (as Action::Make commands) against
// the shadow database.
func (o *Orchestrator) ApplyBaseSchema(ctx context.Context, base *schema.Schema) error {
	conn, err := o.connectShadow(ctx)
	if err != nil {
		return fmt.Errorf("shadow: connecting to shadow database: %w", err)
	}
	defer conn.Close()

	for _, name := range base.OrderedTableNames() {
		t := base.Tables[name]
		if t.Deleted {
			continue
		}
		q := makeTableQail(name, t)
		if _, err := qexec.Run(ctx, conn, transpile.Postgres, q); err != nil {
			return fmt.Errorf("shadow: applying base table %q: %w", name, err)
		}
	}
	return nil
}

// ApplyDiff runs the differ's ordered commands against the shadow
// database (during the build phase) or the primary (on promote).
func (o *Orchestrator) ApplyDiff(ctx context.Context, conn *pgconn.Conn, cmds []*ast.Qail) error {
	for i, q := range cmds {
		if _, err := qexec.Run(ctx, conn, transpile.Postgres, q); err != nil {
			return fmt.Errorf("shadow: applying diff command %d (%s %s): %w", i, q.Action, q.Table, err)
		}
	}
	return nil
}

// SyncResult reports how many rows were streamed per table.
type SyncResult struct {
	RowsByTable map[string]int64
}

// SyncData streams every table's data from the primary to the shadow
// using COPY ... TO STDOUT / COPY ... FROM STDIN, restricted to the
// intersection of column names so dropped or type-changed columns are
// excluded automatically. Concurrent writes to the primary during sync
// can make the later Promote drift from what was copied; this is
// surfaced as a warning log, not locked against — the caller decides
// whether to retry or proceed.
func (o *Orchestrator) SyncData(ctx context.Context) (*SyncResult, error) {
	primary, err := o.connectPrimary(ctx)
	if err != nil {
		return nil, fmt.Errorf("shadow: connecting to primary: %w", err)
	}
	defer primary.Close()

	shadowConn, err := o.connectShadow(ctx)
	if err != nil {
		return nil, fmt.Errorf("shadow: connecting to shadow: %w", err)
	}
	defer shadowConn.Close()

	tables, err := shadowTableNames(ctx, shadowConn)
	if err != nil {
		return nil, err
	}

	o.log.Warn("syncing data from primary to shadow without locking; concurrent writes to the primary may cause promote to drift")

	result := &SyncResult{RowsByTable: map[string]int64{}}
	for _, table := range tables {
		cols, err := commonColumns(ctx, primary, shadowConn, table)
		if err != nil {
			return nil, err
		}
		if len(cols) == 0 {
			o.log.Info("skipping table with no common columns", "table", table)
			continue
		}

		rows, err := o.syncTable(ctx, primary, shadowConn, table, cols)
		if err != nil {
			return nil, err
		}
		result.RowsByTable[table] = rows
	}
	return result, nil
}

func (o *Orchestrator) syncTable(ctx context.Context, primary, shadow *pgconn.Conn, table string, cols []string) (int64, error) {
	colList := quoteIdentList(cols)
	toSQL := fmt.Sprintf(`COPY %s(%s) TO STDOUT`, quoteDatabaseName(table), colList)
	fromSQL := fmt.Sprintf(`COPY %s(%s) FROM STDIN`, quoteDatabaseName(table), colList)

	b := backoff.New(maxSyncBackoff, syncBackoffUnit)
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		pr, pw := io.Pipe()
		errCh := make(chan error, 1)
		go func() {
			errCh <- primary.CopyTo(ctx, toSQL, pw)
			pw.Close()
		}()

		n, err := shadow.CopyFrom(ctx, fromSQL, pr)
		copyToErr := <-errCh
		if err == nil && copyToErr == nil {
			return int64(n), nil
		}
		lastErr = firstNonNil(err, copyToErr)
		if sleepErr := sleepCtx(ctx, b.Duration()); sleepErr != nil {
			return 0, sleepErr
		}
	}
	return 0, fmt.Errorf("shadow: syncing table %q: %w", table, lastErr)
}

func firstNonNil(a, b error) error {
	if a != nil {
		return a
	}
	return b
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func shadowTableNames(ctx context.Context, conn *pgconn.Conn) ([]string, error) {
	res, err := conn.SimpleQuery(ctx, `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("shadow: listing shadow tables: %w", err)
	}
	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		s, ok := row.String(0)
		if !ok || strings.HasPrefix(s, excludedPrefix) {
			continue
		}
		names = append(names, s)
	}
	return names, nil
}

func commonColumns(ctx context.Context, primary, shadow *pgconn.Conn, table string) ([]string, error) {
	primaryCols, err := tableColumns(ctx, primary, table)
	if err != nil {
		return nil, err
	}
	shadowCols, err := tableColumns(ctx, shadow, table)
	if err != nil {
		return nil, err
	}
	shadowSet := make(map[string]bool, len(shadowCols))
	for _, c := range shadowCols {
		shadowSet[c] = true
	}
	var common []string
	for _, c := range primaryCols {
		if shadowSet[c] {
			common = append(common, c)
		}
	}
	return common, nil
}

func tableColumns(ctx context.Context, conn *pgconn.Conn, table string) ([]string, error) {
	res, err := conn.Exec(ctx, `SELECT column_name FROM information_schema.columns WHERE table_schema = 'public' AND table_name = $1 ORDER BY ordinal_position`, [][]byte{[]byte(table)})
	if err != nil {
		return nil, fmt.Errorf("shadow: listing columns of %q: %w", table, err)
	}
	cols := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if s, ok := row.String(0); ok {
			cols = append(cols, s)
		}
	}
	return cols, nil
}

func quoteDatabaseName(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteIdentList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteDatabaseName(c)
	}
	return strings.Join(quoted, ", ")
}

func makeTableQail(name string, t *schema.Table) *ast.Qail {
	cols := make([]ast.Expr, 0, len(t.Columns))
	for _, colName := range t.OrderedColumnNames() {
		col := t.Columns[colName]
		if col.Deleted {
			continue
		}
		var constraints []ast.Constraint
		for _, pk := range t.PrimaryKey {
			if pk == col.Name {
				constraints = append(constraints, ast.ConstraintPrimaryKey{})
			}
		}
		if col.Nullable {
			constraints = append(constraints, ast.ConstraintNullable{})
		}
		if col.Unique {
			constraints = append(constraints, ast.ConstraintUnique{})
		}
		if expr, ok := col.DefaultExpr(); ok {
			constraints = append(constraints, ast.ConstraintDefault{Expr: expr})
		}
		cols = append(cols, ast.ExprDef{Name: col.Name, DataType: col.ColType.ToPgType(), Constraints: constraints})
	}
	return &ast.Qail{Action: ast.ActionMake, Table: name, Columns: cols}
}
