// SPDX-License-Identifier: Apache-2.0

package pgconn

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkReleaseIsNoOpOnZeroValue(t *testing.T) {
	var c Chunk
	assert.NotPanics(t, func() { c.Release() })
}

func TestRefcountTracksOutstandingChunks(t *testing.T) {
	ref := &refcount{}
	ref.retain()
	ref.retain()
	ref.retain()

	assert.EqualValues(t, 2, ref.release())
	assert.EqualValues(t, 1, ref.release())
	assert.EqualValues(t, 0, ref.release())
}

func TestChunkRowReleaseReleasesEveryColumn(t *testing.T) {
	ref := &refcount{}
	ref.retain()
	row := ChunkRow{Cols: []Chunk{
		{Bytes: []byte("a"), ref: ref},
		{}, // NULL column
	}}
	row.Release()
	assert.EqualValues(t, 0, ref.n)
}

func TestChunkResultReleaseWalksAllRows(t *testing.T) {
	ref := &refcount{}
	ref.retain()
	ref.retain()
	res := &ChunkResult{Rows: []ChunkRow{
		{Cols: []Chunk{{Bytes: []byte("a"), ref: ref}}},
		{Cols: []Chunk{{Bytes: []byte("b"), ref: ref}}},
	}}
	res.Release()
	assert.EqualValues(t, 0, ref.n)
}
