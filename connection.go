package heapd

import (
	"bufio"
	"context"
	"errors"
	"net"
	"time"

	"github.com/pior/heapd/wire"
)

// Connection is a single session with a heapd server. It is not safe for
// concurrent use; the pool hands it to one caller at a time.
type Connection struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
}

// NewConnection wraps an established connection.
func NewConnection(conn net.Conn) *Connection {
	return &Connection{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
	}
}

// Execute sends req and reads its reply. ERR replies are returned as a
// Response. The returned error is the bare context error when ctx is done
// before any I/O, a *wire.InvalidTokenError when req cannot be encoded, and
// a *wire.ConnectionError or *wire.ParseError when the connection must be
// discarded.
func (c *Connection) Execute(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The zero deadline clears any previous one.
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, &wire.ConnectionError{Op: "set deadline", Err: err}
	}
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := wire.WriteRequest(c.writer, req); err != nil {
		var tokenErr *wire.InvalidTokenError
		if errors.As(err, &tokenErr) {
			return nil, err
		}
		return nil, c.connectionError(ctx, "write", err)
	}

	resp, err := wire.ReadResponse(c.reader)
	if err != nil {
		var parseErr *wire.ParseError
		if errors.As(err, &parseErr) {
			return nil, err
		}
		return nil, c.connectionError(ctx, "read", err)
	}
	return resp, nil
}

// connectionError reports the context error when the context caused the
// I/O failure. The socket deadline can fire before the context's own timer.
func (c *Connection) connectionError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	} else if deadline, ok := ctx.Deadline(); ok && !time.Now().Before(deadline) {
		err = context.DeadlineExceeded
	}
	return &wire.ConnectionError{Op: op, Err: err}
}

// Close closes the underlying connection.
func (c *Connection) Close() error {
	return c.conn.Close()
}
