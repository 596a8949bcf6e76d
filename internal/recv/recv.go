// Package recv implements component C9: the receive thread. It multiplexes
// every open session fd (Linux epoll, grounded on the teacher's
// reactor/epoll_reactor.go fd->callback dispatch), reassembles frames
// across partial reads, and routes each completed frame either to a
// waiting chute (mt_call reply match) or to the application-visible ring
// (C1).
package recv

import (
	"net"
	"sync"

	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/chute"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/mbuf"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/ring"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/telemetry"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/wire"
)

// reassembly accumulates partial reads for one fd until a complete frame
// is available, mirroring spec §4.9 step 2: "a frame may span several
// read() calls".
type reassembly struct {
	buf []byte // bytes accumulated so far
	need int   // total frame length once the header is known, 0 if unknown
}

func (r *reassembly) feed(chunk []byte) {
	r.buf = append(r.buf, chunk...)
	if r.need == 0 && len(r.buf) >= 12 {
		if h, err := wire.Decode(r.buf); err == nil {
			r.need = h.FrameLen()
		}
	}
}

// ready reports whether a complete frame is buffered, returning it and
// resetting the reassembly state for whatever bytes remain (pipelined
// frames from the same read()).
func (r *reassembly) ready() ([]byte, bool) {
	if r.need == 0 || len(r.buf) < r.need {
		return nil, false
	}
	frame := make([]byte, r.need)
	copy(frame, r.buf[:r.need])
	rest := r.buf[r.need:]
	r.buf = append([]byte(nil), rest...)
	r.need = 0
	if len(r.buf) >= 12 {
		if h, err := wire.Decode(r.buf); err == nil {
			r.need = h.FrameLen()
		}
	}
	return frame, true
}

// Receiver owns the set of active connections, reassembly state, and the
// chute table/ring it dispatches completed frames to.
type Receiver struct {
	mu      sync.Mutex
	conns   map[net.Conn]*reassembly

	chutes  *chute.Table
	c1      ring.Interface
	metrics *telemetry.Registry
}

// New creates a Receiver. chutes may be nil if multi-threaded call support
// is disabled (NOTHREAD/no MTCALL flag); frames are then always pushed to c1.
// c1 accepts either ring variant (internal/ring.Interface).
func New(chutes *chute.Table, c1 ring.Interface, metrics *telemetry.Registry) *Receiver {
	return &Receiver{
		conns:   make(map[net.Conn]*reassembly),
		chutes:  chutes,
		c1:      c1,
		metrics: metrics,
	}
}

// AddConn registers conn for receive-side multiplexing.
func (r *Receiver) AddConn(conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn] = &reassembly{}
}

// RemoveConn drops conn from the receive set (e.g. after an I/O error).
func (r *Receiver) RemoveConn(conn net.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, conn)
}

// feed is called by the platform-specific poll loop with newly read bytes
// for conn. It implements spec §4.9 steps 2-5: reassemble, deframe, dispatch
// to chute on CALL_MSG match else push to ring C1, dropping on a full ring.
func (r *Receiver) feed(conn net.Conn, chunk []byte) {
	r.mu.Lock()
	ra, ok := r.conns[conn]
	if !ok {
		r.mu.Unlock()
		return
	}
	ra.feed(chunk)
	var frames [][]byte
	for {
		f, ok := ra.ready()
		if !ok {
			break
		}
		frames = append(frames, f)
	}
	r.mu.Unlock()

	for _, f := range frames {
		r.dispatch(conn, f)
	}
}

func (r *Receiver) dispatch(conn net.Conn, raw []byte) {
	h, err := wire.Decode(raw)
	if err != nil {
		if r.metrics != nil {
			r.metrics.RecvFail.WithLabelValues(remoteAddr(conn), "decode").Inc()
		}
		return
	}
	m := mbuf.FromWire(raw, h)

	if r.metrics != nil {
		r.metrics.RecvOK.WithLabelValues(remoteAddr(conn)).Inc()
	}

	if r.chutes != nil {
		if h.Flags&wire.FlagCallMsg != 0 {
			d1 := m.D1Region()
			if len(d1) >= 1 {
				callID := int(d1[0])
				if r.chutes.Deliver(callID, h.Xid, m) {
					return
				}
			}
		}
		// rcv_specific (spec §4.8) matches purely on transaction id, so any
		// frame not claimed by a CALL_MSG chute above is still offered to the
		// dedicated chute before falling through to the ring.
		if r.chutes.DeliverSpecific(h.Xid, m) {
			return
		}
	}

	if r.c1 == nil {
		return
	}
	if !r.c1.Insert(m) {
		if r.metrics != nil {
			r.metrics.RecvFail.WithLabelValues(remoteAddr(conn), "ring_full").Inc()
		}
	}
}

func remoteAddr(conn net.Conn) string {
	if conn == nil {
		return "unknown"
	}
	if a := conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return "unknown"
}
