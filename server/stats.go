package server

import (
	"strings"
	"sync/atomic"

	"github.com/pior/heapd/wire"
)

// Stats contains server counters. All fields are snapshots.
//
// For Prometheus integration, expose these as:
//   - Counters: Sessions, Commands (command label), Errors (reason label)
//   - Gauge: ActiveSessions
type Stats struct {
	Sessions       uint64 // Connections accepted and served
	ActiveSessions int64  // Sessions in progress (0 or 1)

	// Commands counts requests by command. Unrecognized commands are
	// counted under CommandUnknown.
	Commands map[wire.CmdType]uint64

	// Errors counts ERR replies by reason. Usage errors share the
	// ReasonUsage key.
	Errors map[string]uint64
}

// CommandUnknown is the Stats.Commands key for unrecognized commands.
const CommandUnknown wire.CmdType = "unknown"

// ReasonUsage is the Stats.Errors key for argument-count errors.
const ReasonUsage = wire.UsageSuffix

var (
	statCommands = []wire.CmdType{
		wire.CmdAlloc, wire.CmdWrite, wire.CmdRead, wire.CmdFree, wire.CmdList, wire.CmdExit, CommandUnknown,
	}
	statReasons = []string{
		wire.ReasonAlreadyExists, wire.ReasonNoMemory, wire.ReasonNotFound, wire.ReasonBadBase64,
		wire.ReasonOutOfBounds, wire.ReasonUnknownCommand, wire.ReasonEmpty, ReasonUsage,
	}
)

// statsCollector maps are filled once and only read afterwards, so the
// counters can be updated without a lock.
type statsCollector struct {
	sessions       atomic.Uint64
	activeSessions atomic.Int64
	commands       map[wire.CmdType]*atomic.Uint64
	errors         map[string]*atomic.Uint64
}

func newStatsCollector() *statsCollector {
	c := &statsCollector{
		commands: make(map[wire.CmdType]*atomic.Uint64, len(statCommands)),
		errors:   make(map[string]*atomic.Uint64, len(statReasons)),
	}
	for _, cmd := range statCommands {
		c.commands[cmd] = new(atomic.Uint64)
	}
	for _, reason := range statReasons {
		c.errors[reason] = new(atomic.Uint64)
	}
	return c
}

func (c *statsCollector) recordSessionStart() {
	c.sessions.Add(1)
	c.activeSessions.Add(1)
}

func (c *statsCollector) recordSessionEnd() {
	c.activeSessions.Add(-1)
}

func (c *statsCollector) recordCommand(cmd wire.CmdType) {
	counter, ok := c.commands[cmd]
	if !ok {
		counter = c.commands[CommandUnknown]
	}
	counter.Add(1)
}

func (c *statsCollector) recordError(reason string) {
	if strings.HasSuffix(reason, wire.Space+wire.UsageSuffix) {
		reason = ReasonUsage
	}
	if counter, ok := c.errors[reason]; ok {
		counter.Add(1)
	}
}

func (c *statsCollector) snapshot() Stats {
	s := Stats{
		Sessions:       c.sessions.Load(),
		ActiveSessions: c.activeSessions.Load(),
		Commands:       make(map[wire.CmdType]uint64, len(c.commands)),
		Errors:         make(map[string]uint64, len(c.errors)),
	}
	for cmd, counter := range c.commands {
		s.Commands[cmd] = counter.Load()
	}
	for reason, counter := range c.errors {
		s.Errors[reason] = counter.Load()
	}
	return s
}
