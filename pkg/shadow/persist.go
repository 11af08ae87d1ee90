// SPDX-License-Identifier: Apache-2.0

package shadow

import (
	"context"
	"fmt"

	"github.com/qail-io/qail/internal/pgconn"
	"github.com/qail-io/qail/pkg/ast"
)

const createStateTableSQL = `CREATE TABLE IF NOT EXISTS ` + stateTable + ` (
	id bigserial PRIMARY KEY,
	shadow_name text NOT NULL,
	primary_url text NOT NULL,
	diff_cmds text NOT NULL,
	old_schema_path text,
	new_schema_path text,
	created_at timestamptz NOT NULL DEFAULT now(),
	status text NOT NULL DEFAULT 'pending',
	created_by_version text NOT NULL DEFAULT 'development'
)`

// SaveState ensures _qail_shadow_state exists, clears any prior pending
// row, and persists cmds plus the schema document paths as the new
// pending row. version is the qail binary's own version string,
// recorded so a later promote/abort from a different binary can warn
// on a version mismatch; see checkVersionCompatibility.
func (o *Orchestrator) SaveState(ctx context.Context, cmds []*ast.Qail, oldSchemaPath, newSchemaPath, version string) error {
	conn, err := o.connectPrimary(ctx)
	if err != nil {
		return fmt.Errorf("shadow: connecting to primary: %w", err)
	}
	defer conn.Close()

	if _, err := conn.SimpleQuery(ctx, createStateTableSQL); err != nil {
		return fmt.Errorf("shadow: ensuring %s exists: %w", stateTable, err)
	}

	if _, err := conn.Exec(ctx, `DELETE FROM `+stateTable+` WHERE status = $1`, [][]byte{[]byte(StatusPending)}); err != nil {
		return fmt.Errorf("shadow: clearing prior pending state: %w", err)
	}

	name, err := o.ShadowName()
	if err != nil {
		return err
	}
	encoded, err := encodeDiffCmds(cmds)
	if err != nil {
		return err
	}

	if version == "" {
		version = "development"
	}
	params := [][]byte{
		[]byte(name),
		[]byte(o.primaryURL),
		[]byte(encoded),
		nullableBytes(oldSchemaPath),
		nullableBytes(newSchemaPath),
		[]byte(version),
	}
	_, err = conn.Exec(ctx, `INSERT INTO `+stateTable+
		` (shadow_name, primary_url, diff_cmds, old_schema_path, new_schema_path, status, created_by_version)
		  VALUES ($1, $2, $3, $4, $5, 'pending', $6)`, params)
	if err != nil {
		return fmt.Errorf("shadow: inserting pending state: %w", err)
	}
	return nil
}

func nullableBytes(s string) []byte {
	if s == "" {
		return nil
	}
	return []byte(s)
}

// loadPendingState reads the single pending row, if any.
func (o *Orchestrator) loadPendingState(ctx context.Context, conn *pgconn.Conn) (*State, error) {
	res, err := conn.Exec(ctx, `SELECT id, shadow_name, primary_url, diff_cmds, old_schema_path, new_schema_path, created_at, created_by_version
		FROM `+stateTable+` WHERE status = $1 ORDER BY id DESC LIMIT 1`, [][]byte{[]byte(StatusPending)})
	if err != nil {
		return nil, fmt.Errorf("shadow: loading pending state: %w", err)
	}
	if len(res.Rows) == 0 {
		return nil, fmt.Errorf("no pending shadow migration found")
	}
	row := res.Rows[0]

	id, _, err := row.Int64(0)
	if err != nil {
		return nil, fmt.Errorf("shadow: decoding state id: %w", err)
	}
	shadowName, _ := row.String(1)
	primaryURL, _ := row.String(2)
	diffCmdsRaw, _ := row.String(3)
	oldPath, _ := row.String(4)
	newPath, _ := row.String(5)
	createdByVersion, _ := row.String(7)

	cmds, err := decodeDiffCmds(diffCmdsRaw)
	if err != nil {
		return nil, err
	}

	return &State{
		ID:               id,
		ShadowName:       shadowName,
		PrimaryURL:       primaryURL,
		DiffCmds:         cmds,
		OldSchemaPath:    oldPath,
		NewSchemaPath:    newPath,
		Status:           StatusPending,
		CreatedByVersion: createdByVersion,
	}, nil
}

func (o *Orchestrator) markStatus(ctx context.Context, conn *pgconn.Conn, id int64, status string) error {
	idBytes := []byte(fmt.Sprintf("%d", id))
	_, err := conn.Exec(ctx, `UPDATE `+stateTable+` SET status = $1 WHERE id = $2`, [][]byte{[]byte(status), idBytes})
	if err != nil {
		return fmt.Errorf("shadow: updating state %d to %q: %w", id, status, err)
	}
	return nil
}

// Promote loads the pending shadow state, applies its diff commands to
// the primary, drops the shadow database, and marks the state row
// promoted. It fails with a clear "no pending shadow migration found"
// error if SaveState was never called (or the prior one was already
// promoted/aborted). binaryVersion is compared against the version
// that ran SaveState; an older binary promoting a newer state only
// warns, it does not block the promote.
func (o *Orchestrator) Promote(ctx context.Context, binaryVersion string) error {
	conn, err := o.connectPrimary(ctx)
	if err != nil {
		return fmt.Errorf("shadow: connecting to primary: %w", err)
	}
	defer conn.Close()

	state, err := o.loadPendingState(ctx, conn)
	if err != nil {
		return err
	}

	if checkVersionCompatibility(binaryVersion, state.CreatedByVersion) == VersionCompatOlder {
		o.log.Warn("promoting with an older qail binary than the one that created this pending migration",
			"binary_version", binaryVersion, "created_by_version", state.CreatedByVersion)
	}

	if err := o.ApplyDiff(ctx, conn, state.DiffCmds); err != nil {
		return fmt.Errorf("shadow: applying diff to primary on promote: %w", err)
	}

	if err := o.dropShadowDatabase(ctx, state.ShadowName); err != nil {
		return err
	}

	return o.markStatus(ctx, conn, state.ID, StatusPromoted)
}

// Abort drops the shadow database and marks the pending state row
// aborted, discarding its diff commands without touching the primary.
func (o *Orchestrator) Abort(ctx context.Context) error {
	conn, err := o.connectPrimary(ctx)
	if err != nil {
		return fmt.Errorf("shadow: connecting to primary: %w", err)
	}
	defer conn.Close()

	state, err := o.loadPendingState(ctx, conn)
	if err != nil {
		return err
	}

	if err := o.dropShadowDatabase(ctx, state.ShadowName); err != nil {
		return err
	}

	return o.markStatus(ctx, conn, state.ID, StatusAborted)
}

func (o *Orchestrator) dropShadowDatabase(ctx context.Context, name string) error {
	admin, err := o.connectAdmin(ctx)
	if err != nil {
		return fmt.Errorf("shadow: connecting to admin database: %w", err)
	}
	defer admin.Close()

	_, err = admin.SimpleQuery(ctx, fmt.Sprintf(`DROP DATABASE IF EXISTS %s`, quoteDatabaseName(name)))
	if err != nil {
		return fmt.Errorf("shadow: dropping shadow database %q: %w", name, err)
	}
	return nil
}
