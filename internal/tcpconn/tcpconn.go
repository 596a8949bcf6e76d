// Package tcpconn is the TCP transport shim spec.md scopes as "contract
// only": it owns no socket options, dialing, pooling, or retry logic (those
// live in internal/endpoint) and implements no framing of its own (that's
// internal/wire). It contributes exactly the one capability the rest of the
// library needs beyond io.ReadWriter — extracting the raw,
// poll()-registerable file descriptor from a net.Conn — grounded on the
// teacher's internal/transport/transport_linux.go raw-fd plumbing and the
// pack's pkg/exporter/exporter.go use of github.com/higebu/netfd.
package tcpconn

import (
	"net"

	"github.com/higebu/netfd"
)

// RawFD returns conn's underlying file descriptor, or -1 if conn is nil or
// its descriptor can't be extracted (e.g. a non-TCP net.Conn in tests).
// Both the C4 endpoint registry's telemetry collector and the C9 receive
// thread's epoll poller go through this single extraction point.
func RawFD(conn net.Conn) int {
	if conn == nil {
		return -1
	}
	return netfd.GetFdFromConn(conn)
}
