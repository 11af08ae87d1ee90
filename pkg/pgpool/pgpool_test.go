// SPDX-License-Identifier: Apache-2.0

package pgpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a lightweight io.Closer standing in for *pgconn.Conn so
// these tests never touch the network.
type fakeConn struct {
	id     int
	closed bool
	mu     sync.Mutex
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func newFakeFactory() (func(context.Context) (*fakeConn, error), *int32) {
	var counter int32
	return func(ctx context.Context) (*fakeConn, error) {
		id := atomic.AddInt32(&counter, 1)
		return &fakeConn{id: int(id)}, nil
	}, &counter
}

func TestNewEagerlyCreatesMinConns(t *testing.T) {
	factory, counter := newFakeFactory()
	cfg := DefaultConfig()
	cfg.MinConns = 3
	cfg.MaxConns = 5

	p, err := New[*fakeConn](context.Background(), cfg, factory, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(counter))
	assert.Equal(t, 3, p.IdleCount())
	assert.Equal(t, 3, p.Stats().TotalCreated)
}

func TestAcquireReusesIdleConnectionLIFO(t *testing.T) {
	factory, counter := newFakeFactory()
	cfg := DefaultConfig()
	cfg.MinConns = 1
	cfg.MaxConns = 2

	p, err := New[*fakeConn](context.Background(), cfg, factory, nil)
	require.NoError(t, err)

	pc, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(counter))
	pc.Release()

	pc2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(counter), "should reuse the released connection, not create a new one")
	assert.Equal(t, pc.Conn(), pc2.Conn())
}

func TestAcquireBlocksUntilReleaseWhenAtCapacity(t *testing.T) {
	factory, _ := newFakeFactory()
	cfg := DefaultConfig()
	cfg.MinConns = 0
	cfg.MaxConns = 1
	cfg.AcquireTimeout = 2 * time.Second

	p, err := New[*fakeConn](context.Background(), cfg, factory, nil)
	require.NoError(t, err)

	pc1, err := p.Acquire(context.Background())
	require.NoError(t, err)

	released := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		pc1.Release()
		close(released)
	}()

	pc2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	<-released
	assert.NotNil(t, pc2)
}

func TestAcquireTimesOutWhenPoolExhausted(t *testing.T) {
	factory, _ := newFakeFactory()
	cfg := DefaultConfig()
	cfg.MinConns = 0
	cfg.MaxConns = 1
	cfg.AcquireTimeout = 30 * time.Millisecond

	p, err := New[*fakeConn](context.Background(), cfg, factory, nil)
	require.NoError(t, err)

	_, err = p.Acquire(context.Background())
	require.NoError(t, err)

	_, err = p.Acquire(context.Background())
	assert.Error(t, err)
}

func TestAcquireEvictsConnectionsPastIdleTimeout(t *testing.T) {
	factory, counter := newFakeFactory()
	cfg := DefaultConfig()
	cfg.MinConns = 1
	cfg.MaxConns = 2
	cfg.IdleTimeout = 10 * time.Millisecond

	p, err := New[*fakeConn](context.Background(), cfg, factory, nil)
	require.NoError(t, err)

	stale := p.idle[0].conn
	time.Sleep(20 * time.Millisecond)

	pc, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(counter), "stale idle connection should be discarded and a fresh one created")
	assert.True(t, stale.isClosed())
	assert.NotEqual(t, stale, pc.Conn())
}

func TestAcquireEvictsConnectionsPastMaxLifetime(t *testing.T) {
	factory, counter := newFakeFactory()
	cfg := DefaultConfig()
	cfg.MinConns = 1
	cfg.MaxConns = 2
	cfg.IdleTimeout = time.Hour
	cfg.MaxLifetime = 10 * time.Millisecond

	p, err := New[*fakeConn](context.Background(), cfg, factory, nil)
	require.NoError(t, err)

	stale := p.idle[0].conn
	time.Sleep(20 * time.Millisecond)

	pc, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(counter))
	assert.True(t, stale.isClosed())
	assert.NotEqual(t, stale, pc.Conn())
}

func TestStatsReflectsOccupancy(t *testing.T) {
	factory, _ := newFakeFactory()
	cfg := DefaultConfig()
	cfg.MinConns = 0
	cfg.MaxConns = 3

	p, err := New[*fakeConn](context.Background(), cfg, factory, nil)
	require.NoError(t, err)

	pc1, err := p.Acquire(context.Background())
	require.NoError(t, err)
	pc2, err := p.Acquire(context.Background())
	require.NoError(t, err)

	stats := p.Stats()
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 0, stats.Idle)
	assert.Equal(t, 3, stats.MaxSize)

	pc1.Release()
	stats = p.Stats()
	assert.Equal(t, 1, stats.Active)
	assert.Equal(t, 1, stats.Idle)

	pc2.Release()
}

func TestTestOnAcquirePingReplacesDeadConnection(t *testing.T) {
	factory, counter := newFakeFactory()
	cfg := DefaultConfig()
	cfg.MinConns = 1
	cfg.MaxConns = 2
	cfg.TestOnAcquire = true

	ping := func(ctx context.Context, c *fakeConn) error {
		if c.id == 1 {
			return assert.AnError
		}
		return nil
	}

	p, err := New[*fakeConn](context.Background(), cfg, factory, ping)
	require.NoError(t, err)

	pc, err := p.Acquire(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(counter))
	assert.Equal(t, 2, pc.Conn().id)
}

func TestCloseClosesIdleConnectionsAndRejectsAcquire(t *testing.T) {
	factory, _ := newFakeFactory()
	cfg := DefaultConfig()
	cfg.MinConns = 2
	cfg.MaxConns = 3

	p, err := New[*fakeConn](context.Background(), cfg, factory, nil)
	require.NoError(t, err)

	idleConns := make([]*fakeConn, len(p.idle))
	for i, pc := range p.idle {
		idleConns[i] = pc.conn
	}

	require.NoError(t, p.Close())
	for _, c := range idleConns {
		assert.True(t, c.isClosed())
	}
	assert.True(t, p.IsClosed())

	_, err = p.Acquire(context.Background())
	assert.Error(t, err)
}

func TestReleaseAfterCloseClosesConnectionInstead(t *testing.T) {
	factory, _ := newFakeFactory()
	cfg := DefaultConfig()
	cfg.MinConns = 0
	cfg.MaxConns = 2

	p, err := New[*fakeConn](context.Background(), cfg, factory, nil)
	require.NoError(t, err)

	pc, err := p.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, p.Close())
	pc.Release()

	assert.True(t, pc.Conn().isClosed())
}

func TestDoubleReleaseIsSafe(t *testing.T) {
	factory, _ := newFakeFactory()
	cfg := DefaultConfig()
	cfg.MinConns = 0
	cfg.MaxConns = 1

	p, err := New[*fakeConn](context.Background(), cfg, factory, nil)
	require.NoError(t, err)

	pc, err := p.Acquire(context.Background())
	require.NoError(t, err)
	pc.Release()
	pc.Release()

	assert.Equal(t, 1, p.IdleCount())
}
