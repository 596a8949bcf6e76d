// Package mbuf implements the C3 message buffer: the caller-visible handle
// wrapping a transport buffer, its parsed header, and the payload slice the
// application reads and writes. Allocation is pool-backed (internal/bufpool,
// itself adapted from the teacher's pool.BytePool) so repeated send/receive
// cycles don't churn the allocator; the framing layout itself comes from
// internal/wire.
package mbuf

import (
	"github.com/rs/xid"

	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/bufpool"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/errno"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/wire"
)

// Mbuf is the library's message buffer handle. It owns a raw transport
// buffer (Header + optional trace/d1/d2 + payload, contiguous) and exposes
// the payload as a slice sharing that buffer's backing array — the Go
// equivalent of the C library's "payload pointer into the framed buffer".
type Mbuf struct {
	State   errno.Errno
	TpState error // preserved transport-level error (the C library's tp_state/errno)
	Mtype   int32
	SubID   int32
	Len     int   // payload bytes in use
	Xaction [32]byte

	Header *wire.Header
	raw     []byte // full transport buffer: header + trace + d1 + d2 + payload
	pool    *bufpool.Pool
	fromPool bool
}

// Allocator owns the byte pool mbufs are allocated from; one per context.
type Allocator struct {
	pool          *bufpool.Pool
	defaultTraceLen int
}

// NewAllocator creates an mbuf allocator. defaultTraceLen is the trace
// region size new allocations reserve unless tralloc overrides it.
func NewAllocator(defaultTraceLen int) *Allocator {
	return &Allocator{pool: bufpool.New(), defaultTraceLen: defaultTraceLen}
}

// Alloc returns an Mbuf whose payload capacity is at least size, with the
// allocator's default trace region reserved.
func (a *Allocator) Alloc(size int) *Mbuf {
	return a.Tralloc(size, a.defaultTraceLen)
}

// Tralloc allocates an Mbuf forcing a specific trace region size.
func (a *Allocator) Tralloc(size, traceLen int) *Mbuf {
	return a.trallocRegions(size, traceLen, 0, 0)
}

// trallocRegions is Tralloc generalized to also reserve d1Len/d2Len bytes
// up front, so offsets computed from len0..len3 are final as soon as the
// Mbuf exists — no region can grow later and shift bytes the caller already
// wrote into the payload. ReserveD1 uses this to carve out mt_call's call-id
// byte without corrupting an already-populated payload.
func (a *Allocator) trallocRegions(size, traceLen, d1Len, d2Len int) *Mbuf {
	if size < 0 {
		size = 0
	}
	if traceLen < 0 {
		traceLen = 0
	}
	if d1Len < 0 {
		d1Len = 0
	}
	if d2Len < 0 {
		d2Len = 0
	}
	total := wire.HeaderV3Size + traceLen + d1Len + d2Len + size
	raw := a.pool.Get(total)

	h := wire.NewHeader()
	h.Len1 = uint32(traceLen)
	h.Len2 = uint32(d1Len)
	h.Len3 = uint32(d2Len)
	if traceLen > 0 {
		h.Flags |= wire.FlagHasTrace
	}

	m := &Mbuf{
		State:    errno.OK,
		Header:   h,
		raw:      raw,
		pool:     a.pool,
		fromPool: true,
	}
	id := xid.New()
	copy(m.Xaction[:], id.String())
	wire.SetString(h.Xid[:], id.String())
	return m
}

// ReserveD1 returns an Mbuf (possibly the same one) with at least d1Len
// bytes of d1 region available, preserving header metadata, trace region,
// and payload bytes. Used by mt_call to carve out the call-id byte: because
// d1/d2 are reserved at allocation time (trallocRegions), growing the d1
// region after the caller has already written a payload requires moving the
// payload to a fresh buffer rather than shifting it in place.
func (a *Allocator) ReserveD1(m *Mbuf, d1Len int) *Mbuf {
	if m == nil {
		return a.trallocRegions(0, 0, d1Len, 0)
	}
	if int(m.Header.Len2) >= d1Len {
		return m
	}
	traceLen := int(m.Header.Len1)
	d2Len := int(m.Header.Len3)
	payload := append([]byte(nil), m.Payload()...)

	nm := a.trallocRegions(len(payload), traceLen, d1Len, d2Len)
	srcHeader := *m.Header
	*nm.Header = srcHeader
	nm.Header.Len0 = wire.HeaderV3Size
	nm.Header.Len1 = uint32(traceLen)
	nm.Header.Len2 = uint32(d1Len)
	nm.Header.Len3 = uint32(d2Len)
	copy(nm.TraceRegion(), m.TraceRegion())
	copy(nm.D2Region(), m.D2Region())
	n := copy(nm.PayloadBuf(), payload)
	nm.Len = n
	nm.Header.Plen = int32(n)
	nm.Mtype = m.Mtype
	nm.SubID = m.SubID
	nm.Xaction = m.Xaction
	nm.State = m.State
	a.Free(m)
	return nm
}

// Realloc returns an Mbuf (possibly the same one) whose payload capacity is
// at least needed, preserving header metadata and any bytes already in the
// payload region.
func (a *Allocator) Realloc(m *Mbuf, needed int) *Mbuf {
	if m == nil {
		return a.Alloc(needed)
	}
	if m.PayloadCap() >= needed {
		return m
	}
	traceLen := int(m.Header.Len1)
	nm := a.Tralloc(needed, traceLen)
	*nm.Header = *m.Header
	nm.Header.Len1 = uint32(traceLen)
	copy(nm.TraceRegion(), m.TraceRegion())
	n := copy(nm.PayloadBuf(), m.Payload())
	nm.Len = n
	nm.Mtype = m.Mtype
	nm.SubID = m.SubID
	nm.Xaction = m.Xaction
	nm.State = m.State
	a.Free(m)
	return nm
}

// Clone duplicates header and payload into a freshly allocated Mbuf.
func (a *Allocator) Clone(m *Mbuf) *Mbuf {
	nm := a.Tralloc(len(m.Payload()), int(m.Header.Len1))
	*nm.Header = *m.Header
	copy(nm.TraceRegion(), m.TraceRegion())
	n := copy(nm.PayloadBuf(), m.Payload())
	nm.Len = n
	nm.Mtype = m.Mtype
	nm.SubID = m.SubID
	nm.Xaction = m.Xaction
	nm.State = m.State
	return nm
}

// Free returns the Mbuf's backing buffer to the pool. The Mbuf must not be
// used after Free.
func (a *Allocator) Free(m *Mbuf) {
	if m == nil || !m.fromPool || m.raw == nil {
		return
	}
	a.pool.Put(m.raw)
	m.raw = nil
}

// wrapReceived builds an Mbuf around a buffer that was not pool-allocated
// (e.g. read directly off a socket by the receive thread), so Free becomes
// a no-op rather than returning someone else's memory to our pool.
func wrapReceived(raw []byte, h *wire.Header) *Mbuf {
	return &Mbuf{
		State:  errno.OK,
		Header: h,
		raw:    raw,
	}
}

// FromWire builds a receive-side Mbuf from a fully-read frame buffer and
// its already-decoded header. It points into buf without copying.
func FromWire(buf []byte, h *wire.Header) *Mbuf {
	m := wrapReceived(buf, h)
	m.Mtype = h.Mtype
	m.SubID = h.SubID
	m.Len = int(h.Plen)
	m.Xaction = h.Xid
	return m
}

// Payload returns the slice of the transport buffer currently populated
// with application data (length Len, capacity up to PayloadCap).
func (m *Mbuf) Payload() []byte {
	off := m.Header.PayloadOffset()
	end := off + m.Len
	if end > len(m.raw) {
		end = len(m.raw)
	}
	if off > len(m.raw) {
		return nil
	}
	return m.raw[off:end]
}

// PayloadBuf returns the full writable payload region (capacity), ignoring
// Len — used by callers filling a freshly allocated Mbuf.
func (m *Mbuf) PayloadBuf() []byte {
	off := m.Header.PayloadOffset()
	if off > len(m.raw) {
		return nil
	}
	return m.raw[off:]
}

// PayloadCap returns the writable payload capacity.
func (m *Mbuf) PayloadCap() int {
	off := m.Header.PayloadOffset()
	if off > len(m.raw) {
		return 0
	}
	return len(m.raw) - off
}

// TraceRegion returns the trace-data slice (between the header and d1).
func (m *Mbuf) TraceRegion() []byte {
	start, end := m.Header.TraceOffset(), m.Header.D1Offset()
	if end > len(m.raw) {
		end = len(m.raw)
	}
	if start > end {
		return nil
	}
	return m.raw[start:end]
}

// D1Region returns the d1 region (call-id byte for mt_call lives at index 0).
func (m *Mbuf) D1Region() []byte {
	start, end := m.Header.D1Offset(), m.Header.D2Offset()
	if end > len(m.raw) {
		end = len(m.raw)
	}
	if start > end {
		return nil
	}
	return m.raw[start:end]
}

// D2Region returns the d2 region.
func (m *Mbuf) D2Region() []byte {
	start, end := m.Header.D2Offset(), m.Header.PayloadOffset()
	if end > len(m.raw) {
		end = len(m.raw)
	}
	if start > end {
		return nil
	}
	return m.raw[start:end]
}

// SetPayload copies data into the payload region and updates Len and Plen.
// It fails (returns false) if the Mbuf's capacity is insufficient; callers
// should realloc first.
func (m *Mbuf) SetPayload(data []byte) bool {
	if len(data) > m.PayloadCap() {
		return false
	}
	n := copy(m.PayloadBuf(), data)
	m.Len = n
	m.Header.Plen = int32(n)
	return true
}

// SetTrace copies data into the trace region; it must fit within the space
// reserved at allocation time (tralloc).
func (m *Mbuf) SetTrace(data []byte) bool {
	tr := m.TraceRegion()
	if len(data) > len(tr) {
		return false
	}
	copy(tr, data)
	return true
}

// GetTrace returns a copy of the trace region's current contents.
func (m *Mbuf) GetTrace() []byte {
	tr := m.TraceRegion()
	out := make([]byte, len(tr))
	copy(out, tr)
	return out
}

// RawForSend returns the full framed buffer (header..payload) ready to be
// written to a socket. Callers must call SetPayload (and any trace/d1/d2
// writes) before calling this, and must re-Encode the header first via
// EncodeHeader.
func (m *Mbuf) RawForSend() []byte {
	end := m.Header.PayloadOffset() + m.Len
	if end > len(m.raw) {
		end = len(m.raw)
	}
	return m.raw[:end]
}

// EncodeHeader serializes m.Header into the buffer's header prefix in place,
// converting multi-byte fields to network byte order.
func (m *Mbuf) EncodeHeader() error {
	_, err := wire.Encode(m.raw, m.Header, m.TraceRegion(), m.D1Region(), m.D2Region(), m.Payload())
	return err
}
