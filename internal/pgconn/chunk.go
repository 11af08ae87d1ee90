// SPDX-License-Identifier: Apache-2.0

package pgconn

import (
	"sync/atomic"

	"github.com/qail-io/qail/internal/pgwire"
)

// refcount is shared by every Chunk decoded from the same pipelined
// batch's read-buffer snapshot. It exists so the zero-copy API can
// express the contract design note 9 describes: the connection's read
// buffer backing a Chunk must not be assumed reusable until the caller
// has released every Chunk pointing into it.
type refcount struct {
	n int32
}

func (r *refcount) retain() { atomic.AddInt32(&r.n, 1) }

func (r *refcount) release() int32 { return atomic.AddInt32(&r.n, -1) }

// Chunk is a zero-copy view into a connection's read buffer: a byte
// slice plus the refcount it shares with every other Chunk from the
// same batch. Bytes aliases the connection's internal buffer directly,
// so it must not be retained past Release, and must not be mutated.
type Chunk struct {
	Bytes []byte
	ref   *refcount
}

// Release signals this Chunk's view of the read buffer is no longer
// needed. Safe to call on a NULL column's zero-value Chunk.
func (c Chunk) Release() {
	if c.ref != nil {
		c.ref.release()
	}
}

// ChunkRow is one result row under the zero-copy pipeline API: each
// non-NULL column is a Chunk aliasing the connection's read buffer; a
// NULL column is the zero Chunk.
type ChunkRow struct {
	Fields []pgwire.FieldDescription
	Cols   []Chunk
}

// Release releases every Chunk in the row.
func (r ChunkRow) Release() {
	for _, c := range r.Cols {
		c.Release()
	}
}

// ChunkResult is one pipelined command's outcome under the zero-copy
// API: row data stays as reference-counted slices into the read buffer
// instead of being copied out, the way Result's rows are.
type ChunkResult struct {
	Fields       []pgwire.FieldDescription
	Rows         []ChunkRow
	CommandTag   string
	RowsAffected uint64
}

// Release releases every Chunk across every row of the result.
func (r *ChunkResult) Release() {
	for _, row := range r.Rows {
		row.Release()
	}
}
