package ledger

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Pool keeps warm ledger sessions keyed by acting identity so each request
// does not pay the bridge handshake. Leases follow acquire/return semantics;
// WithConnection is the scoped form that guarantees return on every exit path.
type Pool struct {
	connector Connector
	maxIdle   int
	logger    *zap.Logger

	mu     sync.Mutex
	idle   map[string][]*Connection
	closed bool
}

// NewPool builds a pool on top of a session connector.
func NewPool(connector Connector, maxIdle int, logger *zap.Logger) *Pool {
	if maxIdle <= 0 {
		maxIdle = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		connector: connector,
		maxIdle:   maxIdle,
		logger:    logger,
		idle:      make(map[string][]*Connection),
	}
}

// Acquire leases a session for the identity, reusing an idle one when
// available.
func (p *Pool) Acquire(ctx context.Context, identity Identity) (*Connection, error) {
	p.mu.Lock()
	if conns := p.idle[identity.Key()]; len(conns) > 0 {
		conn := conns[len(conns)-1]
		p.idle[identity.Key()] = conns[:len(conns)-1]
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()

	return p.connector.Connect(ctx, identity)
}

// Release returns a leased session. Sessions beyond the idle cap are closed.
func (p *Pool) Release(identity Identity, conn *Connection) {
	if conn == nil {
		return
	}
	p.mu.Lock()
	if !p.closed && len(p.idle[identity.Key()]) < p.maxIdle {
		p.idle[identity.Key()] = append(p.idle[identity.Key()], conn)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	if err := conn.Close(); err != nil {
		p.logger.Warn("close surplus ledger session", zap.Error(err))
	}
}

// WithConnection leases a session, runs fn, and returns the session whether
// fn succeeds or fails.
func (p *Pool) WithConnection(ctx context.Context, identity Identity, fn func(Conn) error) error {
	conn, err := p.Acquire(ctx, identity)
	if err != nil {
		return err
	}
	defer p.Release(identity, conn)
	return fn(conn)
}

// Invalidate drops all idle sessions for an identity. Used when the
// identity's enrolment material changes.
func (p *Pool) Invalidate(identity Identity) {
	p.mu.Lock()
	conns := p.idle[identity.Key()]
	delete(p.idle, identity.Key())
	p.mu.Unlock()
	for _, conn := range conns {
		_ = conn.Close()
	}
}

// Close drains every idle session. Leased sessions are closed on release.
func (p *Pool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = make(map[string][]*Connection)
	p.closed = true
	p.mu.Unlock()
	for _, conns := range idle {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}
}
