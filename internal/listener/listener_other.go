//go:build !linux

package listener

import (
	"net"
)

func listen(addr *net.TCPAddr, _ int) (net.Listener, error) {
	return net.ListenTCP("tcp4", addr)
}
