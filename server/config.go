package server

import (
	"log/slog"
	"net"
	"strconv"

	"github.com/pior/heapd/b64"
	"github.com/pior/heapd/internal/listener"
	"github.com/pior/heapd/registry"
	"github.com/pior/heapd/wire"
)

// DefaultAddr binds the default port on all IPv4 interfaces.
var DefaultAddr = net.JoinHostPort("", strconv.Itoa(wire.DefaultPort))

// Config holds the configuration of a Server.
type Config struct {
	// Addr is the IPv4 "host:port" to listen on. Empty means DefaultAddr.
	Addr string

	// Backlog is the listen queue length. Zero means 5.
	Backlog int

	// Base64Policy is applied to WRITE payloads. The zero value is b64.Strict.
	Base64Policy b64.Policy

	// StrictNumbers rejects malformed numeric tokens instead of reading
	// them as C strtoull would.
	StrictNumbers bool

	// MaxLineLength closes a session whose request line exceeds it.
	// Zero means unbounded.
	MaxLineLength int

	// Registry sets the allocation limits.
	Registry registry.Config

	// Logger receives session and accept events. Nil discards them.
	Logger *slog.Logger
}

// DefaultConfig returns the configuration used by the heapd binary.
func DefaultConfig() Config {
	return Config{
		Addr:     DefaultAddr,
		Backlog:  listener.DefaultBacklog,
		Registry: registry.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.Backlog <= 0 {
		c.Backlog = listener.DefaultBacklog
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}
