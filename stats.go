package heapd

import (
	"sync/atomic"
)

// PoolStats contains statistics about the connection pool of one server.
//
// For Prometheus integration, expose these as:
//   - Gauges: TotalConns, IdleConns, ActiveConns
//   - Counters: AcquireCount, AcquireWaitCount, CreatedConns, DestroyedConns, AcquireErrors
type PoolStats struct {
	AcquireCount      uint64 // Total acquire attempts
	AcquireWaitCount  uint64 // Acquires that had to wait
	CreatedConns      uint64 // Total connections created
	DestroyedConns    uint64 // Total connections destroyed
	AcquireErrors     uint64 // Canceled acquire attempts
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	TotalConns  int32 // Connections in pool (active + idle)
	IdleConns   int32 // Idle connections available
	ActiveConns int32 // Connections currently in use
}

// ClientStats contains statistics about client operations.
//
// For Prometheus integration, expose these as counters with an operation
// label.
type ClientStats struct {
	Allocs uint64 // Successful Alloc calls
	Writes uint64 // Successful Write calls
	Reads  uint64 // Successful Read calls
	Frees  uint64 // Successful Free calls
	Lists  uint64 // Successful per-server LIST requests
	Errors uint64 // Calls that returned an error, ERR replies included
}

type clientStatsCollector struct {
	allocs atomic.Uint64
	writes atomic.Uint64
	reads  atomic.Uint64
	frees  atomic.Uint64
	lists  atomic.Uint64
	errors atomic.Uint64
}

func newClientStatsCollector() *clientStatsCollector {
	return &clientStatsCollector{}
}

func (c *clientStatsCollector) recordAlloc() { c.allocs.Add(1) }
func (c *clientStatsCollector) recordWrite() { c.writes.Add(1) }
func (c *clientStatsCollector) recordRead()  { c.reads.Add(1) }
func (c *clientStatsCollector) recordFree()  { c.frees.Add(1) }
func (c *clientStatsCollector) recordList()  { c.lists.Add(1) }
func (c *clientStatsCollector) recordError() { c.errors.Add(1) }

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Allocs: c.allocs.Load(),
		Writes: c.writes.Load(),
		Reads:  c.reads.Load(),
		Frees:  c.frees.Load(),
		Lists:  c.lists.Load(),
		Errors: c.errors.Load(),
	}
}
