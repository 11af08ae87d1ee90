// SPDX-License-Identifier: Apache-2.0

package pgconn

import (
	"context"
	"fmt"

	"github.com/qail-io/qail/internal/pgwire"
)

// Command is one parameterized statement to run as part of a pipelined
// batch; SQL is already transpiled and Params are text-encoded (nil
// entries mean SQL NULL), exactly like Exec's arguments.
type Command struct {
	SQL    string
	Params [][]byte
}

// writePipeline writes every command's Parse (skipped when the
// statement is already cached on this connection)/Bind/Execute bytes
// back-to-back into one buffer using the append-style encoders, then a
// single trailing Sync, and sends it as one write — the batched
// pipelining the extended query protocol allows.
func (c *Conn) writePipeline(cmds []Command) error {
	out := make([]byte, 0, 64*len(cmds))
	for _, cmd := range cmds {
		name, cached := c.stmts.nameFor(cmd.SQL)
		if !cached {
			out = pgwire.AppendParse(out, name, cmd.SQL, nil)
		}
		var err error
		out, err = pgwire.AppendBind(out, "", name, cmd.Params)
		if err != nil {
			return err
		}
		out = pgwire.AppendExecute(out)
	}
	out = pgwire.AppendSync(out)
	return c.send(out)
}

// readMessageZeroCopy is readMessage's counterpart for the zero-copy
// pipeline variant: DataRow column bytes alias c.buf instead of being
// copied out.
func (c *Conn) readMessageZeroCopy() (*pgwire.Message, error) {
	for {
		msg, n, err := pgwire.DecodeZeroCopy(c.buf)
		if err != nil {
			return nil, fmt.Errorf("pgconn: decode: %w", err)
		}
		if msg != nil {
			c.buf = c.buf[n:]
			return msg, nil
		}

		chunk := make([]byte, readChunkSize)
		k, err := c.nc.Read(chunk)
		if err != nil {
			return nil, fmt.Errorf("pgconn: read: %w", err)
		}
		c.buf = append(c.buf, chunk[:k]...)
	}
}

// drainToReady consumes messages until ReadyForQuery, updating
// txStatus; used once a pipeline's result-counting loop has seen as
// many CommandComplete/NoData messages as the batch held.
func (c *Conn) drainToReady(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg, err := c.readMessage()
		if err != nil {
			return err
		}
		if msg.Kind == pgwire.KindReadyForQuery {
			c.txStatus = msg.TxStatus
			return nil
		}
	}
}

// ExecPipelineFast runs cmds as a single pipelined batch and reports
// how many commands completed, without materializing any row data —
// the "fast" variant, which parses only message type bytes off the
// wire. Completion is detected by counting CommandComplete/NoData
// messages until the count equals len(cmds), matching the property
// that a pipelined batch of size K returns K result lists.
func (c *Conn) ExecPipelineFast(ctx context.Context, cmds []Command) (int, error) {
	if len(cmds) == 0 {
		return 0, nil
	}
	if err := c.writePipeline(cmds); err != nil {
		return 0, err
	}

	completed := 0
	var firstErr error
	for completed < len(cmds) {
		if err := ctx.Err(); err != nil {
			return completed, err
		}
		msg, err := c.readMessage()
		if err != nil {
			return completed, err
		}
		switch msg.Kind {
		case pgwire.KindCommandComplete, pgwire.KindNoData:
			completed++
		case pgwire.KindErrorResponse:
			// Once an error occurs mid-pipeline, Postgres discards the
			// remaining Bind/Execute messages and jumps straight to
			// ReadyForQuery instead of replying to each one: stop
			// counting and drain rather than waiting for completions
			// that will never arrive.
			firstErr = msg.Error
			if err := c.drainToReady(ctx); err != nil {
				return completed, err
			}
			return completed, firstErr
		}
	}
	if err := c.drainToReady(ctx); err != nil {
		return completed, err
	}
	return completed, firstErr
}

// ExecPipelineResults runs cmds as a single pipelined batch and returns
// one *Result per command, in order — the "results" variant, which
// copies row data out of the read buffer the same way Exec does.
func (c *Conn) ExecPipelineResults(ctx context.Context, cmds []Command) ([]*Result, error) {
	if len(cmds) == 0 {
		return nil, nil
	}
	if err := c.writePipeline(cmds); err != nil {
		return nil, err
	}

	results := make([]*Result, 0, len(cmds))
	cur := &Result{}
	var firstErr error
	for len(results) < len(cmds) {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		msg, err := c.readMessage()
		if err != nil {
			return results, err
		}
		switch msg.Kind {
		case pgwire.KindRowDescription:
			cur.Fields = msg.Fields
		case pgwire.KindDataRow:
			cur.Rows = append(cur.Rows, &Row{Fields: cur.Fields, Cols: msg.Row})
		case pgwire.KindCommandComplete:
			cur.CommandTag = msg.CommandTag
			cur.RowsAffected = parseAffectedRows(msg.CommandTag)
			results = append(results, cur)
			cur = &Result{}
		case pgwire.KindNoData:
			results = append(results, cur)
			cur = &Result{}
		case pgwire.KindErrorResponse:
			firstErr = msg.Error
			if err := c.drainToReady(ctx); err != nil {
				return results, err
			}
			return results, firstErr
		}
	}
	if err := c.drainToReady(ctx); err != nil {
		return results, err
	}
	return results, firstErr
}

// ExecPipelineZeroCopy runs cmds as a single pipelined batch and
// returns one *ChunkResult per command — the "zero-copy" variant, whose
// row columns are Chunks aliasing the connection's read buffer rather
// than copied out. Every Chunk in the batch shares one refcount;
// callers should call ChunkResult.Release on each result once done
// reading it.
func (c *Conn) ExecPipelineZeroCopy(ctx context.Context, cmds []Command) ([]*ChunkResult, error) {
	if len(cmds) == 0 {
		return nil, nil
	}
	if err := c.writePipeline(cmds); err != nil {
		return nil, err
	}

	ref := &refcount{}
	results := make([]*ChunkResult, 0, len(cmds))
	cur := &ChunkResult{}
	var firstErr error
	for len(results) < len(cmds) {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		msg, err := c.readMessageZeroCopy()
		if err != nil {
			return results, err
		}
		switch msg.Kind {
		case pgwire.KindRowDescription:
			cur.Fields = msg.Fields
		case pgwire.KindDataRow:
			row := ChunkRow{Fields: cur.Fields, Cols: make([]Chunk, len(msg.Row))}
			for i, b := range msg.Row {
				if b == nil {
					continue
				}
				ref.retain()
				row.Cols[i] = Chunk{Bytes: b, ref: ref}
			}
			cur.Rows = append(cur.Rows, row)
		case pgwire.KindCommandComplete:
			cur.CommandTag = msg.CommandTag
			cur.RowsAffected = parseAffectedRows(msg.CommandTag)
			results = append(results, cur)
			cur = &ChunkResult{}
		case pgwire.KindNoData:
			results = append(results, cur)
			cur = &ChunkResult{}
		case pgwire.KindErrorResponse:
			firstErr = msg.Error
			if err := c.drainToReady(ctx); err != nil {
				return results, err
			}
			return results, firstErr
		}
	}
	if err := c.drainToReady(ctx); err != nil {
		return results, err
	}
	return results, firstErr
}
