// Package endpoint implements component C4: endpoint and session
// management. An Endpoint is identified by a "name:port" string used as a
// route-table target; Registry demand-dials connections to an Endpoint the
// first time a route needs it and reuses the connection afterward.
//
// Grounded on the teacher's internal/transport/transport_linux.go (raw
// non-blocking socket creation, TCP_NODELAY tuning, SendmsgBuffers-style
// batch send) and internal/session/session.go + store.go (sharded registry,
// per-entry mutex, connect-state tracking). Raw fd extraction for the
// telemetry TCPInfo collector goes through internal/tcpconn, the library's
// TCP transport shim.
package endpoint

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/tcpconn"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/telemetry"
)

// Failure is the C4 send/connect failure taxonomy (spec §4.4).
type Failure int

const (
	FailNone Failure = iota
	FailRetry
	FailSendErr
	FailNoEndpoint
	FailNoHdr
	FailInval
)

var ErrNoEndpoint = errors.New("endpoint: no such endpoint")

// Endpoint is one demand-dialed destination, keyed by "host:port".
type Endpoint struct {
	Name string

	mu        sync.Mutex
	conn      net.Conn
	connected bool
	connecting bool

	metrics *telemetry.Registry
}

func newEndpoint(name string, metrics *telemetry.Registry) *Endpoint {
	return &Endpoint{Name: name, metrics: metrics}
}

// ensureConnected demand-dials the endpoint if not already connected,
// collapsing concurrent callers onto a single in-flight dial (the connect
// gate): only the first caller actually dials; the rest wait on the mutex
// and observe the result.
func (e *Endpoint) ensureConnected(dialTimeout time.Duration) (net.Conn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.connected && e.conn != nil {
		return e.conn, nil
	}

	conn, err := net.DialTimeout("tcp", e.Name, dialTimeout)
	if err != nil {
		if e.metrics != nil {
			e.metrics.SendFail.WithLabelValues(e.Name, "connect").Inc()
		}
		return nil, err
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true)
	}
	e.conn = conn
	e.connected = true
	if e.metrics != nil {
		e.metrics.Connects.WithLabelValues(e.Name).Inc()
	}
	return conn, nil
}

// drop marks the endpoint disconnected after an I/O error, so the
// next send re-dials rather than reusing a dead socket.
func (e *Endpoint) drop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn != nil {
		e.conn.Close()
	}
	e.conn = nil
	e.connected = false
	if e.metrics != nil {
		e.metrics.Disconnects.WithLabelValues(e.Name).Inc()
	}
}

// RawFD returns the underlying socket fd for telemetry collectors that want
// raw TCP_INFO (e.g. a prometheus Collector keyed by fd). Returns -1 if not
// connected or not a TCP connection.
func (e *Endpoint) RawFD() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return -1
	}
	return tcpconn.RawFD(e.conn)
}

// Send writes a single already-framed buffer to the endpoint, demand-dialing
// as needed. Returns a Failure classification on error.
func (e *Endpoint) Send(frame []byte, dialTimeout time.Duration) Failure {
	conn, err := e.ensureConnected(dialTimeout)
	if err != nil {
		return FailRetry
	}
	if _, err := conn.Write(frame); err != nil {
		e.drop()
		if e.metrics != nil {
			e.metrics.SendFail.WithLabelValues(e.Name, "write").Inc()
		}
		return FailSendErr
	}
	if e.metrics != nil {
		e.metrics.SendOK.WithLabelValues(e.Name).Inc()
	}
	return FailNone
}

// Registry is the C4 endpoint table, keyed by "host:port". It also serves
// as the return-to-sender (rts) lookup: the receive thread records the peer
// address a message's source header claims, and RtsMsg looks the Endpoint
// back up by that same name.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string]*Endpoint
	metrics   *telemetry.Registry

	DialTimeout time.Duration
}

// NewRegistry creates an empty endpoint registry.
func NewRegistry(metrics *telemetry.Registry) *Registry {
	return &Registry{
		endpoints:   make(map[string]*Endpoint),
		metrics:     metrics,
		DialTimeout: 2 * time.Second,
	}
}

// Get returns the Endpoint for name, creating it (not yet connected) if this
// is the first reference — mirrors the C library's lazy endpoint creation
// on first route-table reference or rts lookup.
func (r *Registry) Get(name string) *Endpoint {
	r.mu.RLock()
	ep, ok := r.endpoints[name]
	r.mu.RUnlock()
	if ok {
		return ep
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ep, ok := r.endpoints[name]; ok {
		return ep
	}
	ep = newEndpoint(name, r.metrics)
	r.endpoints[name] = ep
	return ep
}

// Lookup returns the Endpoint for name only if it already exists, without
// creating one — used by rts, where an unknown source endpoint is an error
// rather than something to demand-dial blind.
func (r *Registry) Lookup(name string) (*Endpoint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.endpoints[name]
	return ep, ok
}

// Send resolves name to an Endpoint (creating it if needed) and sends frame.
func (r *Registry) Send(name string, frame []byte) Failure {
	if name == "" {
		return FailNoEndpoint
	}
	ep := r.Get(name)
	return ep.Send(frame, r.DialTimeout)
}

// CloseAll tears down every connected endpoint; used on library Close.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ep := range r.endpoints {
		ep.drop()
	}
}

// Names returns every endpoint name currently registered, for diagnostics.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.endpoints))
	for n := range r.endpoints {
		out = append(out, n)
	}
	return out
}
