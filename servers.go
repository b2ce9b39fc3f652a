package heapd

import (
	"errors"

	"github.com/zeebo/xxh3"

	"github.com/pior/heapd/internal"
)

var ErrNoServers = errors.New("heapd: no servers available")

// Servers provides the list of heapd server addresses.
type Servers interface {
	List() []string
}

type staticServers struct {
	addrs []string
}

// NewStaticServers creates a fixed server list.
func NewStaticServers(addrs ...string) Servers {
	return &staticServers{addrs: append([]string(nil), addrs...)}
}

func (s *staticServers) List() []string {
	return s.addrs
}

// SelectServerFunc picks the server owning an allocation name.
// It receives the name and the current list from Servers.List().
type SelectServerFunc func(name string, servers []string) (string, error)

// DefaultSelectServer maps a name to a server with xxh3 and Jump Hash, so
// that adding a server moves as few names as possible.
func DefaultSelectServer(name string, servers []string) (string, error) {
	switch len(servers) {
	case 0:
		return "", ErrNoServers
	case 1:
		return servers[0], nil
	}
	return servers[internal.JumpHash(xxh3.HashString(name), len(servers))], nil
}
