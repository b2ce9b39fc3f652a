package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/pior/heapd/b64"
	"github.com/pior/heapd/registry"
	"github.com/pior/heapd/wire"
)

// DispatchOptions selects the validation policies of a Dispatcher.
type DispatchOptions struct {
	// Base64Policy is applied to WRITE payloads.
	Base64Policy b64.Policy

	// StrictNumbers rejects numeric tokens that are not plain unsigned
	// decimals with a usage error. When false, tokens are read the way C
	// strtoull does and garbage becomes 0.
	StrictNumbers bool
}

// Dispatcher turns one request line into exactly one reply.
type Dispatcher struct {
	reg   *registry.Registry
	opts  DispatchOptions
	stats *statsCollector
}

// NewDispatcher creates a dispatcher operating on reg.
func NewDispatcher(reg *registry.Registry, opts DispatchOptions) *Dispatcher {
	return &Dispatcher{
		reg:   reg,
		opts:  opts,
		stats: newStatsCollector(),
	}
}

// Dispatch executes line (without its terminator). exit is true when the
// session should end after the reply is sent.
func (d *Dispatcher) Dispatch(line []byte) (resp *wire.Response, exit bool) {
	resp, exit = d.dispatch(line)
	if !resp.IsOK() {
		d.stats.recordError(resp.Reason)
	}
	return resp, exit
}

func (d *Dispatcher) dispatch(line []byte) (*wire.Response, bool) {
	req, err := wire.ParseRequest(line)
	if err != nil {
		return wire.NewErr(wire.ReasonEmpty), false
	}

	arity, known := req.Command.Arity()
	if !known {
		d.stats.recordCommand("")
		return wire.NewErr(wire.ReasonUnknownCommand), false
	}
	d.stats.recordCommand(req.Command)
	if len(req.Args) != arity {
		return wire.NewUsage(req.Command), false
	}

	switch req.Command {
	case wire.CmdAlloc:
		return d.alloc(req), false
	case wire.CmdWrite:
		return d.write(req), false
	case wire.CmdRead:
		return d.read(req), false
	case wire.CmdFree:
		return d.free(req), false
	case wire.CmdList:
		return d.list(), false
	default: // wire.CmdExit
		return wire.NewOKPayload(wire.PayloadBye), true
	}
}

func (d *Dispatcher) number(tok string) (uint64, bool) {
	if !d.opts.StrictNumbers {
		return wire.ParseUintLenient(tok), true
	}
	n, err := wire.ParseUint(tok)
	return n, err == nil
}

func (d *Dispatcher) alloc(req *wire.Request) *wire.Response {
	size, ok := d.number(req.Arg(1))
	if !ok {
		return wire.NewUsage(req.Command)
	}
	if err := d.reg.Create(req.Arg(0), size); err != nil {
		return errorResponse(err)
	}
	return wire.NewOK()
}

// write checks the name before decoding so that a missing allocation wins
// over a bad payload.
func (d *Dispatcher) write(req *wire.Request) *wire.Response {
	name := req.Arg(0)
	offset, ok := d.number(req.Arg(1))
	if !ok {
		return wire.NewUsage(req.Command)
	}
	if _, err := d.reg.Find(name); err != nil {
		return errorResponse(err)
	}

	data, err := b64.Decode(req.Arg(2), d.opts.Base64Policy)
	if err != nil {
		return wire.NewErr(wire.ReasonBadBase64)
	}
	if err := d.reg.Write(name, offset, data); err != nil {
		return errorResponse(err)
	}
	return wire.NewOK()
}

func (d *Dispatcher) read(req *wire.Request) *wire.Response {
	offset, ok := d.number(req.Arg(1))
	if !ok {
		return wire.NewUsage(req.Command)
	}
	length, ok := d.number(req.Arg(2))
	if !ok {
		return wire.NewUsage(req.Command)
	}

	data, err := d.reg.Read(req.Arg(0), offset, length)
	if err != nil {
		return errorResponse(err)
	}
	return wire.NewOKPayload(b64.Encode(data))
}

func (d *Dispatcher) free(req *wire.Request) *wire.Response {
	if err := d.reg.Remove(req.Arg(0)); err != nil {
		return errorResponse(err)
	}
	return wire.NewOK()
}

func (d *Dispatcher) list() *wire.Response {
	var sb strings.Builder
	for name, size := range d.reg.List() {
		sb.WriteString(name)
		sb.WriteString(wire.ListSizeSeparator)
		sb.WriteString(strconv.FormatUint(size, 10))
		sb.WriteString(wire.ListPairSeparator)
	}
	return wire.NewOKPayload(sb.String())
}

func errorResponse(err error) *wire.Response {
	return wire.NewErr(reasonFor(err))
}

// reasonFor maps registry errors to reply reasons. Anything unexpected is a
// host-level allocation failure.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, registry.ErrAlreadyExists):
		return wire.ReasonAlreadyExists
	case errors.Is(err, registry.ErrNotFound):
		return wire.ReasonNotFound
	case errors.Is(err, registry.ErrOutOfBounds):
		return wire.ReasonOutOfBounds
	default:
		return wire.ReasonNoMemory
	}
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	return d.stats.snapshot()
}
