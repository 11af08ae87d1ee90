// SPDX-License-Identifier: Apache-2.0

// Package outbox drives the transactional outbox worker: it polls
// _qail_queue for rows enqueued by triggers on synced tables, embeds
// or deletes the referenced vector, and acknowledges the row. Rows are
// claimed with SELECT ... FOR UPDATE SKIP LOCKED so multiple worker
// processes can run against the same queue without double-processing
// a row.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudflare/backoff"

	"github.com/qail-io/qail/internal/pgconn"
	"github.com/qail-io/qail/pkg/config"
	"github.com/qail-io/qail/pkg/connstr"
	"github.com/qail-io/qail/pkg/qaillog"
)

const queueTable = "_qail_queue"

// Operation is the kind of change a queue row records.
type Operation string

const (
	OpUpsert Operation = "upsert"
	OpDelete Operation = "delete"
)

// Row status values.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

const (
	reconnectInitial    = 500 * time.Millisecond
	reconnectMax        = 30 * time.Second
	reconnectMaxRetries = 10
	circuitBreakerLimit = 5
)

// QueueItem is one claimed row from _qail_queue.
type QueueItem struct {
	ID         int64
	Operation  Operation
	RefTable   string
	RefID      string
	Payload    map[string]any
	RetryCount int
}

// Worker polls _qail_queue and dispatches each claimed row to the
// vector store named by the sync rule matching its source table.
type Worker struct {
	primaryURL string
	rules      map[string]config.SyncRule // keyed by SourceTable
	store      VectorStore
	embedder   EmbeddingProvider
	logger     qaillog.Logger

	pollInterval time.Duration
	batchSize    int

	consecutiveErrors int
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger overrides the default no-op logger.
func WithLogger(l qaillog.Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// WithPollInterval overrides the default poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) { w.pollInterval = d }
}

// WithBatchSize overrides how many rows are claimed per poll.
func WithBatchSize(n int) Option {
	return func(w *Worker) { w.batchSize = n }
}

// New builds a Worker against primaryURL, dispatching to store and
// embedding text through embedder according to rules (one per synced
// source table).
func New(primaryURL string, rules []config.SyncRule, store VectorStore, embedder EmbeddingProvider, opts ...Option) *Worker {
	byTable := make(map[string]config.SyncRule, len(rules))
	for _, r := range rules {
		byTable[r.SourceTable] = r
	}
	w := &Worker{
		primaryURL:   primaryURL,
		rules:        byTable,
		store:        store,
		embedder:     embedder,
		logger:       qaillog.NewNoop(),
		pollInterval: 2 * time.Second,
		batchSize:    25,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// connectPrimary dials Postgres with exponential backoff, matching the
// worker's own reconnect parameters rather than pkg/shadow's.
func (w *Worker) connectPrimary(ctx context.Context) (*pgconn.Conn, error) {
	cfg, err := connstr.Parse(w.primaryURL)
	if err != nil {
		return nil, fmt.Errorf("outbox: parsing primary url: %w", err)
	}

	b := backoff.New(reconnectMax, reconnectInitial)
	var lastErr error
	for attempt := 0; attempt < reconnectMaxRetries; attempt++ {
		conn, err := pgconn.Connect(ctx, cfg)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		w.logger.Warn(fmt.Sprintf("outbox: connect attempt %d/%d failed: %v", attempt+1, reconnectMaxRetries, err))
		if !sleepCtx(ctx, b.Duration()) {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("outbox: exhausted %d connect attempts: %w", reconnectMaxRetries, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// EnsureSchema creates _qail_queue if it does not already exist.
func (w *Worker) EnsureSchema(ctx context.Context) error {
	conn, err := w.connectPrimary(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.SimpleQuery(ctx, createQueueTableSQL)
	if err != nil {
		return fmt.Errorf("outbox: ensuring %s exists: %w", queueTable, err)
	}
	return nil
}

const createQueueTableSQL = `CREATE TABLE IF NOT EXISTS ` + queueTable + ` (
	id bigserial PRIMARY KEY,
	ref_table text NOT NULL,
	ref_id text NOT NULL,
	operation text NOT NULL,
	payload jsonb,
	status text NOT NULL DEFAULT 'pending',
	retry_count integer NOT NULL DEFAULT 0,
	error_message text,
	processed_at timestamptz
)`

// Run polls _qail_queue until ctx is canceled. Each poll claims up to
// BatchSize pending rows with SKIP LOCKED, processes them one at a
// time, and sleeps PollInterval before the next poll. After
// circuitBreakerLimit consecutive poll errors (a failed claim or status
// update; a row whose processing fails is marked failed and does not
// count) it drops and re-dials the connection rather than spinning
// against a dead socket.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := w.store.Ping(ctx); err != nil {
		return fmt.Errorf("outbox: vector store unreachable at startup: %w", err)
	}

	conn, err := w.connectPrimary(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := w.pollOnce(ctx, conn); err != nil {
			w.consecutiveErrors++
			w.logger.Warn(fmt.Sprintf("outbox: poll failed (%d/%d consecutive): %v", w.consecutiveErrors, circuitBreakerLimit, err))

			if w.consecutiveErrors >= circuitBreakerLimit {
				w.logger.Warn("outbox: circuit breaker tripped, reconnecting")
				conn.Close()
				conn, err = w.connectPrimary(ctx)
				if err != nil {
					return fmt.Errorf("outbox: reconnect after circuit breaker: %w", err)
				}
				w.consecutiveErrors = 0
			}
			continue
		}
		w.consecutiveErrors = 0
	}
}

func (w *Worker) pollOnce(ctx context.Context, conn *pgconn.Conn) error {
	items, err := claimBatch(ctx, conn, w.batchSize)
	if err != nil {
		return fmt.Errorf("claiming batch: %w", err)
	}
	for _, item := range items {
		if err := w.process(ctx, conn, item); err != nil {
			w.logger.Warn(fmt.Sprintf("outbox: item %d failed: %v", item.ID, err))
			if markErr := markFailed(ctx, conn, item.ID, err); markErr != nil {
				return markErr
			}
		}
	}
	return nil
}

// process dispatches one claimed item to the vector store named by its
// ref table's sync rule, then marks the row processed.
func (w *Worker) process(ctx context.Context, conn *pgconn.Conn, item QueueItem) error {
	rule, ok := w.rules[item.RefTable]
	if !ok {
		return markProcessed(ctx, conn, item.ID) // no rule for this table anymore: drain silently
	}

	switch item.Operation {
	case OpDelete:
		if err := w.store.Delete(ctx, rule.TargetCollection, item.RefID); err != nil {
			return fmt.Errorf("deleting from %s: %w", rule.TargetCollection, err)
		}
	case OpUpsert:
		text, err := embeddingSource(item.Payload, rule.TriggerColumn)
		if err != nil {
			return err
		}
		vector, err := w.embedder.Embed(ctx, rule.EmbeddingModel, text)
		if err != nil {
			return fmt.Errorf("embedding via %s: %w", rule.EmbeddingModel, err)
		}
		if err := w.store.Upsert(ctx, rule.TargetCollection, item.RefID, vector, item.Payload); err != nil {
			return fmt.Errorf("upserting into %s: %w", rule.TargetCollection, err)
		}
	default:
		return fmt.Errorf("unknown operation %q", item.Operation)
	}

	return markProcessed(ctx, conn, item.ID)
}

func embeddingSource(payload map[string]any, triggerColumn string) (string, error) {
	if triggerColumn == "" {
		b, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("serializing payload for embedding: %w", err)
		}
		return string(b), nil
	}
	v, ok := payload[triggerColumn]
	if !ok {
		return "", fmt.Errorf("trigger column %q not present in payload", triggerColumn)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("trigger column %q is not a string", triggerColumn)
	}
	return s, nil
}
