package heapd

import (
	"context"
	"sync/atomic"

	"github.com/jackc/puddle/v2"
)

// pool holds the connections to one server.
type pool struct {
	pool           *puddle.Pool[*Connection]
	createdConns   atomic.Uint64
	destroyedConns atomic.Uint64
}

func newPool(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (*pool, error) {
	p := &pool{}

	cfg := &puddle.Config[*Connection]{
		Constructor: func(ctx context.Context) (*Connection, error) {
			conn, err := constructor(ctx)
			if err == nil {
				p.createdConns.Add(1)
			}
			return conn, err
		},
		Destructor: func(c *Connection) {
			p.destroyedConns.Add(1)
			_ = c.Close()
		},
		MaxSize: maxSize,
	}

	inner, err := puddle.NewPool(cfg)
	if err != nil {
		return nil, err
	}
	p.pool = inner
	return p, nil
}

func (p *pool) Acquire(ctx context.Context) (*puddle.Resource[*Connection], error) {
	return p.pool.Acquire(ctx)
}

func (p *pool) AcquireAllIdle() []*puddle.Resource[*Connection] {
	return p.pool.AcquireAllIdle()
}

func (p *pool) Close() {
	p.pool.Close()
}

func (p *pool) Stats() PoolStats {
	s := p.pool.Stat()
	return PoolStats{
		TotalConns:        s.TotalResources(),
		IdleConns:         s.IdleResources(),
		ActiveConns:       s.AcquiredResources(),
		AcquireCount:      uint64(s.AcquireCount()),
		AcquireWaitCount:  uint64(s.EmptyAcquireCount()),
		CreatedConns:      p.createdConns.Load(),
		DestroyedConns:    p.destroyedConns.Load(),
		AcquireErrors:     uint64(s.CanceledAcquireCount()),
		AcquireWaitTimeNs: uint64(s.EmptyAcquireWaitTime().Nanoseconds()),
	}
}
