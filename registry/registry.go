// Package registry tracks named, fixed-size byte regions.
//
// A Registry enforces name uniqueness among live allocations, bounds-checks
// every access, and never lets callers alias an allocation's buffer: Write
// copies in and Read copies out. All methods are safe for concurrent use.
package registry

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"sync"
)

var (
	ErrAlreadyExists = errors.New("registry: allocation already exists")
	ErrNotFound      = errors.New("registry: allocation not found")
	ErrOutOfBounds   = errors.New("registry: range out of bounds")
	ErrNoMemory      = errors.New("registry: cannot allocate memory")
)

const (
	// DefaultMaxAllocSize caps a single allocation.
	DefaultMaxAllocSize = 256 << 20

	// DefaultMaxTotalBytes caps the sum of live allocation sizes.
	DefaultMaxTotalBytes = 1 << 30

	// fallbackHostMemory bounds unlimited registries where the physical
	// memory size is unknown.
	fallbackHostMemory = 4 << 30
)

// Config holds the memory limits of a Registry.
// A zero field means no configured limit. The live total is still capped at
// the host's physical memory, since the Go runtime aborts the process
// instead of failing an allocation it cannot back.
type Config struct {
	// MaxAllocSize is the largest size Create accepts.
	MaxAllocSize uint64

	// MaxTotalBytes is the largest sum of live allocation sizes.
	MaxTotalBytes uint64
}

// DefaultConfig returns the limits used by the heapd binary.
func DefaultConfig() Config {
	return Config{
		MaxAllocSize:  DefaultMaxAllocSize,
		MaxTotalBytes: DefaultMaxTotalBytes,
	}
}

// Info describes a live allocation.
type Info struct {
	Name string
	Size uint64
}

// allocation owns its buffer. newer/older link allocations in creation
// order, newest at the head.
type allocation struct {
	name  string
	buf   []byte
	newer *allocation
	older *allocation
}

// Registry maps allocation names to regions.
type Registry struct {
	cfg       Config
	hostLimit uint64

	mu      sync.Mutex
	entries map[string]*allocation
	newest  *allocation
	bytes   uint64

	stats *statsCollector
}

// New creates an empty registry with the given limits.
func New(cfg Config) *Registry {
	return &Registry{
		cfg:       cfg,
		hostLimit: hostMemory(),
		entries:   make(map[string]*allocation),
		stats:   newStatsCollector(),
	}
}

// Create allocates a region of size bytes under name. The region's content
// is unspecified until written. A size of 0 is valid.
func (r *Registry) Create(name string, size uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[name]; ok {
		r.stats.recordFailure()
		return ErrAlreadyExists
	}
	if !r.fits(size) {
		r.stats.recordFailure()
		return fmt.Errorf("%w: %d bytes", ErrNoMemory, size)
	}

	buf, err := makeBuffer(size)
	if err != nil {
		r.stats.recordFailure()
		return err
	}

	a := &allocation{name: name, buf: buf, older: r.newest}
	if r.newest != nil {
		r.newest.newer = a
	}
	r.newest = a
	r.entries[name] = a
	r.bytes += size

	r.stats.recordCreate(size)
	return nil
}

func (r *Registry) fits(size uint64) bool {
	if size > math.MaxInt {
		return false
	}
	if r.cfg.MaxAllocSize > 0 && size > r.cfg.MaxAllocSize {
		return false
	}
	return fitsTotal(r.bytes, size, r.cfg.MaxTotalBytes) && fitsTotal(r.bytes, size, r.hostLimit)
}

// fitsTotal reports whether size more bytes keep used within limit.
// A zero limit is unbounded.
func fitsTotal(used, size, limit uint64) bool {
	return limit == 0 || (size <= limit && used <= limit-size)
}

// makeBuffer backs every region with at least one byte so that zero-sized
// regions still own storage.
func makeBuffer(size uint64) (buf []byte, err error) {
	defer func() {
		if recover() != nil {
			buf, err = nil, fmt.Errorf("%w: %d bytes", ErrNoMemory, size)
		}
	}()
	return make([]byte, max(size, 1))[:size], nil
}

// Find returns the live allocation called name.
func (r *Registry) Find(name string) (Info, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.entries[name]
	if !ok {
		return Info{}, ErrNotFound
	}
	return Info{Name: a.name, Size: uint64(len(a.buf))}, nil
}

// inBounds reports whether [offset, offset+length) lies within size without
// computing a sum that could wrap.
func inBounds(offset, length, size uint64) bool {
	return offset <= size && length <= size-offset
}

// Write copies data into the allocation at offset. Nothing is written when
// the range does not fit.
func (r *Registry) Write(name string, offset uint64, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.entries[name]
	if !ok {
		r.stats.recordFailure()
		return ErrNotFound
	}
	if !inBounds(offset, uint64(len(data)), uint64(len(a.buf))) {
		r.stats.recordFailure()
		return ErrOutOfBounds
	}

	copy(a.buf[offset:], data)
	r.stats.recordWrite(len(data))
	return nil
}

// Read returns a copy of length bytes starting at offset.
func (r *Registry) Read(name string, offset, length uint64) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.entries[name]
	if !ok {
		r.stats.recordFailure()
		return nil, ErrNotFound
	}
	if !inBounds(offset, length, uint64(len(a.buf))) {
		r.stats.recordFailure()
		return nil, ErrOutOfBounds
	}

	out := make([]byte, length)
	copy(out, a.buf[offset:])
	r.stats.recordRead(len(out))
	return out, nil
}

// Remove releases the allocation called name.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.entries[name]
	if !ok {
		r.stats.recordFailure()
		return ErrNotFound
	}

	if a.newer != nil {
		a.newer.older = a.older
	} else {
		r.newest = a.older
	}
	if a.older != nil {
		a.older.newer = a.newer
	}
	delete(r.entries, name)

	size := uint64(len(a.buf))
	r.bytes -= size
	a.buf, a.newer, a.older = nil, nil, nil

	r.stats.recordFree(size)
	return nil
}

// List yields the name and size of every allocation live at the time of the
// call, newest first. The registry is not locked while the caller iterates,
// so the loop body may call back into it.
func (r *Registry) List() iter.Seq2[string, uint64] {
	r.mu.Lock()
	snapshot := make([]Info, 0, len(r.entries))
	for a := r.newest; a != nil; a = a.older {
		snapshot = append(snapshot, Info{Name: a.name, Size: uint64(len(a.buf))})
	}
	r.mu.Unlock()

	return func(yield func(string, uint64) bool) {
		for _, info := range snapshot {
			if !yield(info.Name, info.Size) {
				return
			}
		}
	}
}

// Len returns the number of live allocations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Bytes returns the sum of live allocation sizes.
func (r *Registry) Bytes() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bytes
}

// Stats returns a snapshot of the registry counters.
func (r *Registry) Stats() Stats {
	return r.stats.snapshot()
}
