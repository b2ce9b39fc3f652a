// Package listener opens the IPv4 TCP listener used by heapd.
package listener

import (
	"net"
)

// DefaultBacklog is the pending-connection queue length requested from the
// kernel.
const DefaultBacklog = 5

// Listen listens on the IPv4 TCP address addr ("host:port", empty host for
// all interfaces) with SO_REUSEADDR set and the given backlog. Platforms
// without a raw socket path fall back to net.Listen and the system backlog.
func Listen(addr string, backlog int) (net.Listener, error) {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	tcpAddr, err := net.ResolveTCPAddr("tcp4", addr)
	if err != nil {
		return nil, err
	}
	return listen(tcpAddr, backlog)
}
