package registry

import (
	"sync/atomic"
)

// Stats contains registry counters. Lifetime counters only grow; LiveAllocs
// and LiveBytes track the current state.
//
// For Prometheus integration, expose these as:
//   - Counters: Creates, Frees, Writes, Reads, BytesWritten, BytesRead, Failures
//   - Gauges: LiveAllocs, LiveBytes
type Stats struct {
	Creates      uint64 // Successful Create calls
	Frees        uint64 // Successful Remove calls
	Writes       uint64 // Successful Write calls
	Reads        uint64 // Successful Read calls
	BytesWritten uint64 // Bytes copied in by Write
	BytesRead    uint64 // Bytes copied out by Read
	Failures     uint64 // Operations rejected with an error
	LiveAllocs   int64  // Current number of allocations
	LiveBytes    uint64 // Current sum of allocation sizes
}

// statsCollector is updated under the registry lock and read without it.
type statsCollector struct {
	creates      atomic.Uint64
	frees        atomic.Uint64
	writes       atomic.Uint64
	reads        atomic.Uint64
	bytesWritten atomic.Uint64
	bytesRead    atomic.Uint64
	failures     atomic.Uint64
	liveAllocs   atomic.Int64
	liveBytes    atomic.Uint64
}

func newStatsCollector() *statsCollector {
	return &statsCollector{}
}

func (c *statsCollector) recordCreate(size uint64) {
	c.creates.Add(1)
	c.liveAllocs.Add(1)
	c.liveBytes.Add(size)
}

func (c *statsCollector) recordFree(size uint64) {
	c.frees.Add(1)
	c.liveAllocs.Add(-1)
	c.liveBytes.Add(^(size - 1))
}

func (c *statsCollector) recordWrite(n int) {
	c.writes.Add(1)
	c.bytesWritten.Add(uint64(n))
}

func (c *statsCollector) recordRead(n int) {
	c.reads.Add(1)
	c.bytesRead.Add(uint64(n))
}

func (c *statsCollector) recordFailure() {
	c.failures.Add(1)
}

func (c *statsCollector) snapshot() Stats {
	return Stats{
		Creates:      c.creates.Load(),
		Frees:        c.frees.Load(),
		Writes:       c.writes.Load(),
		Reads:        c.reads.Load(),
		BytesWritten: c.bytesWritten.Load(),
		BytesRead:    c.bytesRead.Load(),
		Failures:     c.failures.Load(),
		LiveAllocs:   c.liveAllocs.Load(),
		LiveBytes:    c.liveBytes.Load(),
	}
}
