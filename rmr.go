// Package rmr is the public API of the RIC Message Router library: an
// embeddable, in-process messaging library that routes application payloads
// over TCP by message type (plus optional subscription id) instead of by
// endpoint address.
//
// Construction follows the teacher's facade.Config/DefaultConfig/New
// orchestration shape (facade/hioload.go): a single Config struct with a
// DefaultConfig constructor, and an Init that wires every subsystem
// (symtab-backed route table -> endpoint registry -> wormholes -> ring ->
// chutes -> RTC thread -> receive thread) in a fixed order.
package rmr

import (
	"net"
	"sync"
	"time"

	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/chute"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/endpoint"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/errno"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/mbuf"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/recv"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/ring"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/rlog"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/routetable"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/rtc"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/telemetry"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/wire"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/wormhole"
)

// Errno re-exports the shared error/state code so callers need only import
// this package.
type Errno = errno.Errno

const (
	OK         = errno.OK
	BADARG     = errno.BADARG
	NOENDPT    = errno.NOENDPT
	EMPTY      = errno.EMPTY
	NOHDR      = errno.NOHDR
	SENDFAILED = errno.SENDFAILED
	CALLFAILED = errno.CALLFAILED
	NOWHOPEN   = errno.NOWHOPEN
	WHID       = errno.WHID
	OVERFLOW   = errno.OVERFLOW
	RETRY      = errno.RETRY
	RCVFAILED  = errno.RCVFAILED
	TIMEOUT    = errno.TIMEOUT
	UNSET      = errno.UNSET
	TRUNC      = errno.TRUNC
	INITFAILED = errno.INITFAILED
	NOTSUPP    = errno.NOTSUPP
)

// Init flags, spec §6.
const (
	FlagNone     = 0
	FlagNoThread = 1 << 0 // no receive thread: inbound connections are not accepted, so RcvMsg/TorcvMsg receive nothing
	FlagMTCall   = 1 << 1 // enable the chute table for mt_call/rcv_specific
	FlagNameOnly = 1 << 2 // accepted but not consulted: stampSrc always writes ListenAddr as configured
)

// Reserved control message types, spec §6.
const (
	MtyTableData  int32 = 20
	MtyReqTable   int32 = 21
	MtyTableState int32 = 22
)

// Msg is the caller-visible message handle (the C library's rmr_mbuf_t).
type Msg struct {
	State   Errno
	Mtype   int32
	SubID   int32
	Len     int
	Payload []byte

	inner *mbuf.Mbuf
}

func wrapOK(m *mbuf.Mbuf) *Msg {
	return &Msg{
		State:   OK,
		Mtype:   m.Mtype,
		SubID:   m.SubID,
		Len:     m.Len,
		Payload: m.Payload(),
		inner:   m,
	}
}

func wrapErr(state Errno) *Msg {
	return &Msg{State: state}
}

// SetPayload copies data into m's backing buffer and updates Len/Payload.
// It returns false if m's capacity is too small; callers should realloc via
// Context.ReallocMsg first.
func (m *Msg) SetPayload(data []byte) bool {
	if m.inner == nil || !m.inner.SetPayload(data) {
		return false
	}
	m.Len = m.inner.Len
	m.Payload = m.inner.Payload()
	return true
}

// Config exposes every configurable parameter, mirroring the teacher's
// Config/DefaultConfig shape.
type Config struct {
	ListenAddr     string
	MaxMsgSize     int
	Flags          int
	TraceDataLen   int
	RingCapacity   int
	SendRetries    int
	RecvRetries    int
	DialTimeout    time.Duration
	MultiConsumer  bool // use the mutex-guarded ring so multiple goroutines may call RcvMsg/TorcvMsg concurrently
}

// DefaultConfig returns sane defaults; callers override fields before Init.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:   ":4560",
		MaxMsgSize:   4096,
		Flags:        FlagNone,
		TraceDataLen: 0,
		RingCapacity: 2048,
		SendRetries:  1,
		RecvRetries:  1,
		DialTimeout:  2 * time.Second,
		MultiConsumer: false,
	}
}

// Context is a single RMR library instance: one listener, one route table,
// one endpoint registry, and (depending on flags) one chute table and
// receive thread. Mirrors facade.HioloadWS as the orchestration root.
type Context struct {
	cfg *Config

	metrics  *telemetry.Registry
	alloc    *mbuf.Allocator
	active   *routetable.Active
	endpoints *endpoint.Registry
	wormholes *wormhole.Table
	chutes   *chute.Table
	c1       ring.Interface
	receiver *recv.Receiver
	poller   *recv.Poller
	collector *rtc.Collector

	listener net.Listener

	mu      sync.Mutex
	ready   bool
	closed  bool
	stimeout int
	rtimeout int
}

// Init constructs and starts an RMR context: listens on addr, wires every
// subsystem, loads any seed route table, and (unless FlagNoThread is set)
// starts the receive thread. Returns INITFAILED on unrecoverable setup
// errors (e.g. the listen address is unusable).
func Init(cfg *Config) (*Context, Errno) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return nil, INITFAILED
	}

	metrics := telemetry.New()
	ctx := &Context{
		cfg:       cfg,
		metrics:   metrics,
		alloc:     mbuf.NewAllocator(cfg.TraceDataLen),
		active:    routetable.NewActive(),
		endpoints: endpoint.NewRegistry(metrics),
		listener:  ln,
		stimeout:  cfg.SendRetries,
		rtimeout:  cfg.RecvRetries,
	}
	ctx.endpoints.DialTimeout = cfg.DialTimeout
	ctx.wormholes = wormhole.NewTable(ctx.endpoints)
	if cfg.MultiConsumer {
		ctx.c1 = ring.NewLocked(cfg.RingCapacity)
	} else {
		ctx.c1 = ring.New(cfg.RingCapacity)
	}
	metrics.WatchRingDepth("c1", func() float64 { return float64(ctx.c1.Len()) })

	if cfg.Flags&FlagMTCall != 0 {
		ctx.chutes = chute.NewTable()
	}

	ctx.collector = rtc.New(ctx.active, metrics)
	ctx.collector.SetInstallHook(func() {
		ctx.mu.Lock()
		ctx.ready = true
		ctx.mu.Unlock()
	})
	ctx.collector.SetDumpHook(func() {
		rlog.Infof("rtc: dump: endpoints=%d c1_depth=%d", len(ctx.endpoints.Names()), ctx.c1.Len())
	})
	ctx.collector.LoadSeed()
	ctx.collector.Run()

	if cfg.Flags&FlagNoThread == 0 {
		ctx.receiver = recv.New(ctx.chutes, ctx.c1, metrics)
		p, err := recv.NewPoller()
		if err == nil {
			ctx.poller = p
			go ctx.acceptLoop()
			go ctx.poller.Run(ctx.receiver)
		}
	}

	return ctx, OK
}

// acceptLoop accepts inbound connections and hands them to the receiver and
// poller for multiplexing.
func (c *Context) acceptLoop() {
	for {
		conn, err := c.listener.Accept()
		if err != nil {
			return
		}
		c.receiver.AddConn(conn)
		if c.poller != nil {
			c.poller.Watch(conn)
		}
	}
}

// Ready reports whether the first full route table has been loaded.
func (c *Context) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ready
}

// SetStimeout sets how many extra send attempts are made when the endpoint
// cannot be connected (FailRetry). A write on an open connection blocks
// until it completes and is not retried; a failed write is SENDFAILED.
func (c *Context) SetStimeout(n int) { c.mu.Lock(); c.stimeout = n; c.mu.Unlock() }

// SetRtimeout sets the number of receive retries.
func (c *Context) SetRtimeout(n int) { c.mu.Lock(); c.rtimeout = n; c.mu.Unlock() }

// AllocMsg returns a Msg with payload capacity >= size.
func (c *Context) AllocMsg(size int) *Msg { return wrapOK(c.alloc.Alloc(size)) }

// TrallocMsg allocates forcing a specific trace region size.
func (c *Context) TrallocMsg(size, traceLen int) *Msg {
	return wrapOK(c.alloc.Tralloc(size, traceLen))
}

// ReallocMsg grows m's payload capacity to newSize, preserving header and
// payload bytes.
func (c *Context) ReallocMsg(m *Msg, newSize int) *Msg {
	if m == nil || m.inner == nil {
		return c.AllocMsg(newSize)
	}
	return wrapOK(c.alloc.Realloc(m.inner, newSize))
}

// FreeMsg releases m's backing buffer.
func (c *Context) FreeMsg(m *Msg) {
	if m == nil || m.inner == nil {
		return
	}
	c.alloc.Free(m.inner)
}

// stampHeaderFields copies the caller-visible mtype/sub_id onto the wire
// header fields EncodeHeader actually serializes, so a sent frame reflects
// what the application set rather than whatever the buffer's Header held
// from a prior receive or allocation.
func stampHeaderFields(inner *mbuf.Mbuf, mtype, subid int32) {
	inner.Mtype = mtype
	inner.SubID = subid
	inner.Header.Mtype = mtype
	inner.Header.SubID = subid
}

// stampSrc fills in src/srcip on m's header with this context's listen
// address, spec §4.4 step 5. srcip is the bare host: when ListenAddr is a
// wildcard (":4560") the configured string has no host, so it falls back to
// the address the listener actually bound.
func (c *Context) stampSrc(m *mbuf.Mbuf) {
	wire.SetString(m.Header.Src[:], c.cfg.ListenAddr)

	host, _, err := net.SplitHostPort(c.cfg.ListenAddr)
	if err != nil || host == "" {
		if a, ok := c.listener.Addr().(*net.TCPAddr); ok {
			host = a.IP.String()
		}
	}
	wire.SetString(m.Header.SrcIP[:], host)
}

// SendMsg implements send_msg: resolve (mtype, sub_id) via the active route
// table, pick a round-robin endpoint from group 0, frame and write. Returns
// a fresh empty Msg on success (cheap swap so the caller may reuse m), or m
// itself with State != OK on failure.
func (c *Context) SendMsg(m *Msg) *Msg {
	msg, _ := c.SendMsgGroup(m, 0)
	return msg
}

// SendMsgGroup is send_msg parameterized by the caller's group index (spec
// §4.4 step 3). more reports whether the resolved route has additional
// groups the caller may fan out to.
func (c *Context) SendMsgGroup(m *Msg, groupIdx int) (msg *Msg, more bool) {
	if m == nil || m.inner == nil || m.inner.Header == nil {
		return wrapErr(NOHDR), false
	}

	active := c.active.Current()
	rte := active.GetRTE(m.Mtype, m.SubID, true)
	if rte == nil {
		c.active.Release(active)
		m.State = NOENDPT
		return m, false
	}
	more = len(rte.Groups) > 1
	if groupIdx < 0 || groupIdx >= len(rte.Groups) {
		c.active.Release(active)
		m.State = NOENDPT
		return m, more
	}
	ep := rte.Groups[groupIdx].Next()
	if ep == "%meid" {
		meid := wire.GetString(m.inner.Header.Meid[:])
		resolved, ok := active.GetMEID(meid)
		c.active.Release(active)
		if !ok {
			m.State = NOENDPT
			return m, more
		}
		return c.sendToEndpoint(resolved, m), more
	}
	c.active.Release(active)
	if ep == "" {
		m.State = NOENDPT
		return m, more
	}

	return c.sendToEndpoint(ep, m), more
}

func (c *Context) sendToEndpoint(ep string, m *Msg) *Msg {
	stampHeaderFields(m.inner, m.Mtype, m.SubID)
	c.stampSrc(m.inner)
	if err := m.inner.EncodeHeader(); err != nil {
		m.State = NOHDR
		return m
	}

	retries := c.stimeout
	var fail endpoint.Failure
	for attempt := 0; attempt <= retries; attempt++ {
		fail = c.endpoints.Send(ep, m.inner.RawForSend())
		if fail != endpoint.FailRetry {
			break
		}
	}

	switch fail {
	case endpoint.FailNone:
		return c.AllocMsg(m.inner.PayloadCap())
	case endpoint.FailRetry:
		m.State = RETRY
		return m
	case endpoint.FailNoEndpoint:
		m.State = NOENDPT
		return m
	default:
		m.State = SENDFAILED
		return m
	}
}

// RtsMsg implements rts_msg: reply to the origin of a received message by
// looking up the endpoint named in its source header field.
func (c *Context) RtsMsg(m *Msg) *Msg {
	if m == nil || m.inner == nil || m.inner.Header == nil {
		return wrapErr(NOHDR)
	}
	src := wire.GetString(m.inner.Header.Src[:])
	if src == "" {
		m.State = NOENDPT
		return m
	}
	return c.sendToEndpoint(src, m)
}

// WhOpen implements wh_open: returns the wormhole id for addr, dialing on
// first send.
func (c *Context) WhOpen(addr string) int { return c.wormholes.Open(addr) }

// WhClose implements wh_close.
func (c *Context) WhClose(id int) { c.wormholes.Close(id) }

// WhState implements wh_state.
func (c *Context) WhState(id int) wormhole.State { return c.wormholes.State(id) }

// WhSendMsg implements wh_send_msg: identical to SendMsg except the
// endpoint is chosen by wormhole id rather than the route table.
func (c *Context) WhSendMsg(id int, m *Msg) *Msg {
	if m == nil || m.inner == nil || m.inner.Header == nil {
		return wrapErr(NOHDR)
	}
	stampHeaderFields(m.inner, m.Mtype, m.SubID)
	c.stampSrc(m.inner)
	if err := m.inner.EncodeHeader(); err != nil {
		m.State = NOHDR
		return m
	}
	fail, err := c.wormholes.Send(id, m.inner.RawForSend())
	if err != nil {
		m.State = WHID
		return m
	}
	if fail != endpoint.FailNone {
		m.State = SENDFAILED
		return m
	}
	return c.AllocMsg(m.inner.PayloadCap())
}

// RcvMsg blocks until a message is available on the application ring (C1).
func (c *Context) RcvMsg() *Msg {
	for {
		if v := c.c1.Extract(); v != nil {
			return wrapOK(v.(*mbuf.Mbuf))
		}
		time.Sleep(time.Millisecond)
	}
}

// TorcvMsg blocks at most ms milliseconds for a message.
func (c *Context) TorcvMsg(ms int) *Msg {
	deadline := time.Now().Add(time.Duration(ms) * time.Millisecond)
	for {
		if v := c.c1.Extract(); v != nil {
			return wrapOK(v.(*mbuf.Mbuf))
		}
		if time.Now().After(deadline) {
			return wrapErr(TIMEOUT)
		}
		time.Sleep(time.Millisecond)
	}
}

// Call implements the single-threaded blocking call: send, then block for
// a direct reply on the same session (modeled here as a bounded TorcvMsg
// following a successful SendMsg, since this context's transport is
// session-oriented rather than request/response-addressed).
func (c *Context) Call(m *Msg, timeoutMs int) *Msg {
	sent := c.SendMsg(m)
	if sent.State != OK {
		sent.State = CALLFAILED
		return sent
	}
	return c.TorcvMsg(timeoutMs)
}

// MtCall implements mt_call: arm a chute for call_id, stamp CALL_MSG +
// the call id into the d1 region, send, then wait on the chute.
func (c *Context) MtCall(m *Msg, callID int, timeoutMs int) *Msg {
	if c.chutes == nil {
		return wrapErr(NOTSUPP)
	}
	if callID < 1 || callID > chute.MaxCallID {
		return wrapErr(BADARG)
	}

	c.chutes.Arm(callID, m.inner.Xaction)
	m.inner = c.alloc.ReserveD1(m.inner, 1)
	m.Len = m.inner.Len
	m.Payload = m.inner.Payload()
	m.inner.Header.Flags |= wire.FlagCallMsg
	if d1 := m.inner.D1Region(); len(d1) >= 1 {
		d1[0] = byte(callID)
	}

	sent := c.SendMsg(m)
	if sent.State != OK {
		c.chutes.Disarm(callID)
		sent.State = CALLFAILED
		return sent
	}

	v, ok := c.chutes.Wait(callID, time.Duration(timeoutMs)*time.Millisecond)
	if !ok {
		return wrapErr(TIMEOUT)
	}
	return wrapOK(v.(*mbuf.Mbuf))
}

// RcvSpecific implements rcv_specific (spec §4.8): block for a reply whose
// transaction id matches sent's, independent of mt_call's CALL_MSG/call-id
// framing. sent is the Msg previously handed to SendMsg/WhSendMsg; its
// xaction is what the dedicated chute (chute 0) waits on.
func (c *Context) RcvSpecific(sent *Msg, timeoutMs int) *Msg {
	if c.chutes == nil {
		return wrapErr(NOTSUPP)
	}
	if sent == nil || sent.inner == nil {
		return wrapErr(BADARG)
	}

	c.chutes.ArmSpecific(sent.inner.Xaction)
	v, ok := c.chutes.WaitSpecific(time.Duration(timeoutMs) * time.Millisecond)
	if !ok {
		return wrapErr(TIMEOUT)
	}
	return wrapOK(v.(*mbuf.Mbuf))
}

// Close shuts down every background thread and session owned by this
// context.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.collector.Stop()
	if c.poller != nil {
		c.poller.Stop()
		c.poller.Close()
	}
	c.listener.Close()
	c.endpoints.CloseAll()
	c.c1.Close()
}
