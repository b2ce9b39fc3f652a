// Package heapd is a client for the heapd allocation service.
//
// Allocations are spread over one or more servers by name. Each server gets
// its own connection pool and, optionally, its own circuit breaker. A heapd
// server runs one session at a time, so a pooled connection keeps other
// clients waiting until it is closed; MaxConnIdleTime or Close releases it.
package heapd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/puddle/v2"

	"github.com/pior/heapd/b64"
	"github.com/pior/heapd/wire"
)

// Errors returned for ERR replies. Match them with errors.Is.
var (
	ErrAlreadyExists = wire.ErrAlreadyExists
	ErrNoMemory      = wire.ErrNoMemory
	ErrNotFound      = wire.ErrNotFound
	ErrBadBase64     = wire.ErrBadBase64
	ErrOutOfBounds   = wire.ErrOutOfBounds
)

var (
	ErrClientClosed = errors.New("heapd: client closed")

	// ErrEmptyWrite is returned by Write for an empty payload, which the
	// protocol cannot express.
	ErrEmptyWrite = errors.New("heapd: empty write")
)

const (
	DefaultMaxSize     = 1
	DefaultDialTimeout = 5 * time.Second
)

// Config holds configuration for the heapd client.
type Config struct {
	// MaxSize is the maximum number of connections per server.
	// Zero means DefaultMaxSize.
	MaxSize int32

	// DialTimeout bounds connection establishment when Dialer is nil.
	// Zero means DefaultDialTimeout.
	DialTimeout time.Duration

	// Dialer is used to create new connections.
	Dialer *net.Dialer

	// MaxConnIdleTime closes idle connections older than this, handing the
	// server over to other clients. Zero keeps them until Close.
	MaxConnIdleTime time.Duration

	// SelectServer picks which server owns an allocation name.
	// If nil, uses DefaultSelectServer.
	SelectServer SelectServerFunc

	// NewCircuitBreaker creates a circuit breaker for a server.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(serverAddr string) CircuitBreaker
}

// Allocation is one entry of a LIST reply.
type Allocation struct {
	Server string
	Name   string
	Size   uint64
}

type serverPool struct {
	addr           string
	pool           *pool
	circuitBreaker CircuitBreaker // nil if not configured
}

// Client talks to a set of heapd servers. It is safe for concurrent use.
type Client struct {
	servers      Servers
	selectServer SelectServerFunc
	config       Config

	mu     sync.RWMutex
	pools  map[string]*serverPool
	closed bool

	stopIdleCheck chan struct{}
	stats         *clientStatsCollector
}

// NewClient creates a client for servers. No connection is made until the
// first request.
func NewClient(servers Servers, config Config) (*Client, error) {
	if len(servers.List()) == 0 {
		return nil, ErrNoServers
	}

	if config.MaxSize <= 0 {
		config.MaxSize = DefaultMaxSize
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = DefaultDialTimeout
	}
	if config.Dialer == nil {
		config.Dialer = &net.Dialer{Timeout: config.DialTimeout}
	}
	selectServer := config.SelectServer
	if selectServer == nil {
		selectServer = DefaultSelectServer
	}

	c := &Client{
		servers:       servers,
		selectServer:  selectServer,
		config:        config,
		pools:         make(map[string]*serverPool),
		stopIdleCheck: make(chan struct{}),
		stats:         newClientStatsCollector(),
	}

	if config.MaxConnIdleTime > 0 {
		go c.idleCheckLoop(config.MaxConnIdleTime)
	}

	return c, nil
}

// Close destroys all pooled connections. Requests in progress finish first.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.stopIdleCheck)

	for _, sp := range c.pools {
		sp.pool.Close()
	}
}

// Stats returns a snapshot of the client counters.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// PoolStats returns the pool statistics of every server contacted so far.
func (c *Client) PoolStats() map[string]PoolStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]PoolStats, len(c.pools))
	for addr, sp := range c.pools {
		out[addr] = sp.pool.Stats()
	}
	return out
}

func (c *Client) poolForName(name string) (*serverPool, error) {
	addr, err := c.selectServer(name, c.servers.List())
	if err != nil {
		return nil, err
	}
	return c.getOrCreatePool(addr)
}

func (c *Client) getOrCreatePool(addr string) (*serverPool, error) {
	c.mu.RLock()
	sp, exists := c.pools[addr]
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClientClosed
	}
	if exists {
		return sp, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClientClosed
	}
	if sp, exists := c.pools[addr]; exists {
		return sp, nil
	}

	p, err := newPool(func(ctx context.Context) (*Connection, error) {
		netConn, err := c.config.Dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return NewConnection(netConn), nil
	}, c.config.MaxSize)
	if err != nil {
		return nil, err
	}

	sp = &serverPool{addr: addr, pool: p}
	if c.config.NewCircuitBreaker != nil {
		sp.circuitBreaker = c.config.NewCircuitBreaker(addr)
	}
	c.pools[addr] = sp
	return sp, nil
}

func (c *Client) idleCheckLoop(maxIdle time.Duration) {
	ticker := time.NewTicker(max(maxIdle/2, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-c.stopIdleCheck:
			return
		case <-ticker.C:
			c.releaseIdle(maxIdle)
		}
	}
}

func (c *Client) releaseIdle(maxIdle time.Duration) {
	c.mu.RLock()
	pools := make([]*serverPool, 0, len(c.pools))
	for _, sp := range c.pools {
		pools = append(pools, sp)
	}
	c.mu.RUnlock()

	for _, sp := range pools {
		for _, res := range sp.pool.AcquireAllIdle() {
			if res.IdleDuration() > maxIdle {
				res.Destroy()
				continue
			}
			res.ReleaseUnused()
		}
	}
}

// execRequest runs req on a connection from sp, through the circuit breaker
// when one is configured. The reply's ERR status is not converted.
func (c *Client) execRequest(ctx context.Context, sp *serverPool, req *wire.Request) (*wire.Response, error) {
	if sp.circuitBreaker != nil {
		return sp.circuitBreaker.Execute(func() (*wire.Response, error) {
			return c.execRequestDirect(ctx, sp.pool, req)
		})
	}
	return c.execRequestDirect(ctx, sp.pool, req)
}

func (c *Client) execRequestDirect(ctx context.Context, p *pool, req *wire.Request) (*wire.Response, error) {
	res, err := p.Acquire(ctx)
	if err != nil {
		if errors.Is(err, puddle.ErrClosedPool) {
			return nil, ErrClientClosed
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &wire.ConnectionError{Op: "connect", Err: err}
	}

	resp, err := res.Value().Execute(ctx, req)
	switch {
	case err != nil && wire.ShouldCloseConnection(err):
		res.Destroy()
	case req.Command == wire.CmdExit:
		// the server ends the session after EXIT
		res.Destroy()
	default:
		res.Release()
	}
	return resp, err
}

// do executes req on the server owning name and converts ERR replies to
// errors.
func (c *Client) do(ctx context.Context, name string, req *wire.Request) (*wire.Response, error) {
	sp, err := c.poolForName(name)
	if err != nil {
		c.stats.recordError()
		return nil, err
	}

	resp, err := c.execRequest(ctx, sp, req)
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		c.stats.recordError()
		return nil, err
	}
	return resp, nil
}

// Do sends a raw request to the server owning its first argument, or to the
// first server for commands without arguments. ERR replies are returned as
// a Response, not as an error.
func (c *Client) Do(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	var sp *serverPool
	var err error
	if len(req.Args) > 0 {
		sp, err = c.poolForName(req.Args[0])
	} else {
		sp, err = c.getOrCreatePool(c.servers.List()[0])
	}
	if err != nil {
		return nil, err
	}
	return c.execRequest(ctx, sp, req)
}

// Alloc creates an allocation of size bytes.
func (c *Client) Alloc(ctx context.Context, name string, size uint64) error {
	req := wire.NewRequest(wire.CmdAlloc, name, strconv.FormatUint(size, 10))
	if _, err := c.do(ctx, name, req); err != nil {
		return err
	}
	c.stats.recordAlloc()
	return nil
}

// Write copies data into the allocation at offset.
func (c *Client) Write(ctx context.Context, name string, offset uint64, data []byte) error {
	if len(data) == 0 {
		c.stats.recordError()
		return ErrEmptyWrite
	}

	req := wire.NewRequest(wire.CmdWrite, name, strconv.FormatUint(offset, 10), b64.Encode(data))
	if _, err := c.do(ctx, name, req); err != nil {
		return err
	}
	c.stats.recordWrite()
	return nil
}

// Read returns length bytes of the allocation starting at offset.
func (c *Client) Read(ctx context.Context, name string, offset, length uint64) ([]byte, error) {
	req := wire.NewRequest(wire.CmdRead, name, strconv.FormatUint(offset, 10), strconv.FormatUint(length, 10))
	resp, err := c.do(ctx, name, req)
	if err != nil {
		return nil, err
	}

	data, err := b64.Decode(resp.Payload, b64.Strict)
	if err != nil {
		c.stats.recordError()
		return nil, &wire.ParseError{Message: "invalid READ payload", Err: err}
	}
	c.stats.recordRead()
	return data, nil
}

// Free releases the allocation.
func (c *Client) Free(ctx context.Context, name string) error {
	req := wire.NewRequest(wire.CmdFree, name)
	if _, err := c.do(ctx, name, req); err != nil {
		return err
	}
	c.stats.recordFree()
	return nil
}

// List returns the allocations of every server, in server order and newest
// first within a server.
func (c *Client) List(ctx context.Context) ([]Allocation, error) {
	var out []Allocation
	for _, addr := range c.servers.List() {
		sp, err := c.getOrCreatePool(addr)
		if err != nil {
			c.stats.recordError()
			return nil, err
		}

		resp, err := c.execRequest(ctx, sp, wire.NewRequest(wire.CmdList))
		if err == nil {
			err = resp.Err()
		}
		if err == nil {
			out, err = appendListing(out, addr, resp.Payload)
		}
		if err != nil {
			c.stats.recordError()
			return nil, fmt.Errorf("list %s: %w", addr, err)
		}
		c.stats.recordList()
	}
	return out, nil
}

// appendListing parses a "name:size;name:size;" payload. Names may contain
// ':' so the size is taken after the last one.
func appendListing(dst []Allocation, server, payload string) ([]Allocation, error) {
	for entry := range strings.SplitSeq(payload, wire.ListPairSeparator) {
		if entry == "" {
			continue
		}
		i := strings.LastIndex(entry, wire.ListSizeSeparator)
		if i <= 0 {
			return nil, &wire.ParseError{Message: "invalid LIST entry " + strconv.Quote(entry)}
		}
		size, err := strconv.ParseUint(entry[i+1:], 10, 64)
		if err != nil {
			return nil, &wire.ParseError{Message: "invalid LIST size", Err: err}
		}
		dst = append(dst, Allocation{Server: server, Name: entry[:i], Size: size})
	}
	return dst, nil
}
