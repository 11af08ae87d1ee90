// SPDX-License-Identifier: Apache-2.0

package outbox

import (
	"encoding/json"
	"fmt"

	"context"

	"github.com/qail-io/qail/internal/pgconn"
)

// claimBatch atomically moves up to limit pending rows to processing
// and returns them, skipping rows another worker already holds locked.
func claimBatch(ctx context.Context, conn *pgconn.Conn, limit int) ([]QueueItem, error) {
	sql := `UPDATE ` + queueTable + ` SET status = $1, processed_at = now()
		WHERE id IN (
			SELECT id FROM ` + queueTable + `
			WHERE status = $2
			ORDER BY id ASC
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, operation, ref_table, ref_id, payload, retry_count`

	params := [][]byte{
		[]byte(StatusProcessing),
		[]byte(StatusPending),
		[]byte(fmt.Sprintf("%d", limit)),
	}
	res, err := conn.Exec(ctx, sql, params)
	if err != nil {
		return nil, err
	}

	items := make([]QueueItem, 0, len(res.Rows))
	for _, row := range res.Rows {
		id, _, err := row.Int64(0)
		if err != nil {
			return nil, fmt.Errorf("decoding queue row id: %w", err)
		}
		op, _ := row.String(1)
		table, _ := row.String(2)
		refID, _ := row.String(3)
		payloadRaw, hasPayload := row.String(4)
		retryCount, _, err := row.Int64(5)
		if err != nil {
			return nil, fmt.Errorf("decoding queue row retry_count: %w", err)
		}

		payload := map[string]any{}
		if hasPayload && payloadRaw != "" {
			if err := json.Unmarshal([]byte(payloadRaw), &payload); err != nil {
				return nil, fmt.Errorf("decoding queue row %d payload: %w", id, err)
			}
		}

		items = append(items, QueueItem{
			ID:         id,
			Operation:  Operation(op),
			RefTable:   table,
			RefID:      refID,
			Payload:    payload,
			RetryCount: int(retryCount),
		})
	}
	return items, nil
}

func markProcessed(ctx context.Context, conn *pgconn.Conn, id int64) error {
	_, err := conn.Exec(ctx, `UPDATE `+queueTable+` SET status = $1 WHERE id = $2`,
		[][]byte{[]byte(StatusProcessed), []byte(fmt.Sprintf("%d", id))})
	if err != nil {
		return fmt.Errorf("marking queue row %d processed: %w", id, err)
	}
	return nil
}

func markFailed(ctx context.Context, conn *pgconn.Conn, id int64, cause error) error {
	sql := `UPDATE ` + queueTable + ` SET status = $1, retry_count = retry_count + 1, error_message = $2 WHERE id = $3`
	params := [][]byte{
		[]byte(StatusFailed),
		[]byte(cause.Error()),
		[]byte(fmt.Sprintf("%d", id)),
	}
	if _, err := conn.Exec(ctx, sql, params); err != nil {
		return fmt.Errorf("marking queue row %d failed: %w", id, err)
	}
	return nil
}

// Enqueue inserts a new pending row, used by callers (triggers, the
// impact scanner's own test fixtures, or application code) that want
// to push a change onto the queue directly rather than through a
// database trigger.
func Enqueue(ctx context.Context, conn *pgconn.Conn, op Operation, refTable, refID string, payload map[string]any) error {
	var payloadRaw []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling payload: %w", err)
		}
		payloadRaw = b
	}

	sql := `INSERT INTO ` + queueTable + ` (operation, ref_table, ref_id, payload, status)
		VALUES ($1, $2, $3, $4, $5)`
	params := [][]byte{
		[]byte(op),
		[]byte(refTable),
		[]byte(refID),
		payloadRaw,
		[]byte(StatusPending),
	}
	if _, err := conn.Exec(ctx, sql, params); err != nil {
		return fmt.Errorf("enqueuing %s on %s: %w", op, refTable, err)
	}
	return nil
}
