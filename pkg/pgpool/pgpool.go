// SPDX-License-Identifier: Apache-2.0

// Package pgpool provides a bounded pool of reusable connections.
// It is generic over the pooled connection type so it can be driven
// by internal/pgconn.Conn in production and by a lightweight fake in
// tests, without either depending on the other's internals.
package pgpool

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Config bounds and times the pool's behavior.
type Config struct {
	MaxConns       int
	MinConns       int
	IdleTimeout    time.Duration
	AcquireTimeout time.Duration
	ConnectTimeout time.Duration
	MaxLifetime    time.Duration // 0 = unlimited
	TestOnAcquire  bool
}

// DefaultConfig mirrors the original driver's PoolConfig::new defaults.
func DefaultConfig() Config {
	return Config{
		MaxConns:       10,
		MinConns:       1,
		IdleTimeout:    10 * time.Minute,
		AcquireTimeout: 30 * time.Second,
		ConnectTimeout: 10 * time.Second,
		MaxLifetime:    0,
		TestOnAcquire:  false,
	}
}

// Stats is a snapshot of pool occupancy for monitoring.
type Stats struct {
	Active       int
	Idle         int
	Pending      int
	MaxSize      int
	TotalCreated int
}

// Pool is a bounded pool of connections of type C. Acquire blocks (up
// to Config.AcquireTimeout) until a permit is free, then returns an
// idle connection or creates a new one.
type Pool[C io.Closer] struct {
	cfg     Config
	factory func(context.Context) (C, error)
	ping    func(context.Context, C) error

	sem chan struct{}

	mu           sync.Mutex
	idle         []pooledConn[C]
	closed       bool
	activeCount  int
	totalCreated int
}

type pooledConn[C io.Closer] struct {
	conn      C
	createdAt time.Time
	lastUsed  time.Time
}

// New builds a pool and eagerly dials Config.MinConns connections
// through factory. ping, if non-nil, is invoked on every acquire when
// Config.TestOnAcquire is set, to discard dead connections before
// handing them to a caller.
func New[C io.Closer](ctx context.Context, cfg Config, factory func(context.Context) (C, error), ping func(context.Context, C) error) (*Pool[C], error) {
	if cfg.MaxConns <= 0 {
		return nil, fmt.Errorf("pgpool: MaxConns must be positive, got %d", cfg.MaxConns)
	}

	p := &Pool[C]{
		cfg:     cfg,
		factory: factory,
		ping:    ping,
		sem:     make(chan struct{}, cfg.MaxConns),
	}
	for i := 0; i < cfg.MaxConns; i++ {
		p.sem <- struct{}{}
	}

	for i := 0; i < cfg.MinConns; i++ {
		conn, err := factory(ctx)
		if err != nil {
			return nil, fmt.Errorf("pgpool: creating initial connection: %w", err)
		}
		now := time.Now()
		p.idle = append(p.idle, pooledConn[C]{conn: conn, createdAt: now, lastUsed: now})
	}
	p.totalCreated = len(p.idle)

	return p, nil
}

// Acquire waits for a free slot and returns a connection, reusing an
// idle one that is neither past IdleTimeout nor past MaxLifetime, or
// dialing a new one otherwise.
func (p *Pool[C]) Acquire(ctx context.Context) (*PooledConn[C], error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("pgpool: pool is closed")
	}

	acquireCtx := ctx
	var cancel context.CancelFunc
	if p.cfg.AcquireTimeout > 0 {
		acquireCtx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	select {
	case <-p.sem:
	case <-acquireCtx.Done():
		return nil, fmt.Errorf("pgpool: timed out waiting for connection (%s)", p.cfg.AcquireTimeout)
	}

	conn, created, err := p.takeOrCreate(ctx)
	if err != nil {
		p.sem <- struct{}{}
		return nil, err
	}

	if p.cfg.TestOnAcquire && p.ping != nil {
		if perr := p.ping(ctx, conn); perr != nil {
			_ = conn.Close()
			conn, err = p.factory(ctx)
			if err != nil {
				p.sem <- struct{}{}
				return nil, fmt.Errorf("pgpool: replacing failed connection: %w", err)
			}
			created = true
		}
	}

	p.mu.Lock()
	if created {
		p.totalCreated++
	}
	p.activeCount++
	p.mu.Unlock()

	return &PooledConn[C]{conn: conn, pool: p}, nil
}

func (p *Pool[C]) takeOrCreate(ctx context.Context) (conn C, created bool, err error) {
	p.mu.Lock()
	for len(p.idle) > 0 {
		last := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]

		if p.cfg.IdleTimeout > 0 && time.Since(last.lastUsed) > p.cfg.IdleTimeout {
			p.mu.Unlock()
			_ = last.conn.Close()
			p.mu.Lock()
			continue
		}
		if p.cfg.MaxLifetime > 0 && time.Since(last.createdAt) > p.cfg.MaxLifetime {
			p.mu.Unlock()
			_ = last.conn.Close()
			p.mu.Lock()
			continue
		}
		p.mu.Unlock()
		return last.conn, false, nil
	}
	p.mu.Unlock()

	conn, err = p.factory(ctx)
	return conn, true, err
}

// release returns conn to the idle stack, or closes it outright if the
// pool is closed or already at capacity.
func (p *Pool[C]) release(conn C) {
	p.mu.Lock()
	p.activeCount--
	closed := p.closed
	full := len(p.idle) >= p.cfg.MaxConns
	if !closed && !full {
		p.idle = append(p.idle, pooledConn[C]{conn: conn, createdAt: time.Now(), lastUsed: time.Now()})
	}
	p.mu.Unlock()

	if closed || full {
		_ = conn.Close()
	}
	p.sem <- struct{}{}
}

// IdleCount returns the number of connections sitting idle in the pool.
func (p *Pool[C]) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// ActiveCount returns the number of connections currently checked out.
func (p *Pool[C]) ActiveCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeCount
}

// IsClosed reports whether Close has been called.
func (p *Pool[C]) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Stats returns a snapshot of pool occupancy.
func (p *Pool[C]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Active:       p.activeCount,
		Idle:         len(p.idle),
		Pending:      p.cfg.MaxConns - len(p.sem) - p.activeCount,
		MaxSize:      p.cfg.MaxConns,
		TotalCreated: p.totalCreated,
	}
}

// Close marks the pool closed and closes every idle connection.
// In-flight PooledConns close on Release rather than returning.
func (p *Pool[C]) Close() error {
	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var firstErr error
	for _, pc := range idle {
		if err := pc.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PooledConn is a connection checked out of a Pool. Callers must call
// Release exactly once to return it (or let it be closed, if the pool
// was closed meanwhile).
type PooledConn[C io.Closer] struct {
	conn     C
	pool     *Pool[C]
	released bool
}

// Conn returns the underlying pooled connection.
func (pc *PooledConn[C]) Conn() C { return pc.conn }

// Release returns the connection to its pool.
func (pc *PooledConn[C]) Release() {
	if pc.released {
		return
	}
	pc.released = true
	pc.pool.release(pc.conn)
}
