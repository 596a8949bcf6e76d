package rmr

import (
	"net"
	"testing"
	"time"

	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/ring"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/routetable"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/wire"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/wormhole"
)

func echoListener(t *testing.T) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				buf := make([]byte, 4096)
				for {
					if _, err := c.Read(buf); err != nil {
						return
					}
				}
			}(c)
		}
	}()
	return ln.Addr().String(), func() { ln.Close() }
}

// recordingListener captures every frame written to it (rather than
// discarding the bytes) so tests can decode the wire header and assert on
// what was actually sent, not just that the write succeeded.
func recordingListener(t *testing.T) (addr string, frames chan []byte, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	frames = make(chan []byte, 8)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				buf := make([]byte, 4096)
				for {
					n, err := c.Read(buf)
					if n > 0 {
						frame := make([]byte, n)
						copy(frame, buf[:n])
						select {
						case frames <- frame:
						default:
						}
					}
					if err != nil {
						return
					}
				}
			}(c)
		}
	}()
	return ln.Addr().String(), frames, func() { ln.Close() }
}

func newTestContext(t *testing.T) *Context {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Flags = FlagNoThread
	ctx, errno := Init(cfg)
	if errno != OK {
		t.Fatalf("init failed: %v", errno)
	}
	t.Cleanup(ctx.Close)
	return ctx
}

func TestAllocMsgHasRequestedCapacity(t *testing.T) {
	ctx := newTestContext(t)
	m := ctx.AllocMsg(64)
	if m.State != OK {
		t.Fatalf("expected OK, got %v", m.State)
	}
	if cap(m.Payload) < 64 {
		t.Fatalf("expected payload capacity >= 64, got %d", cap(m.Payload))
	}
	if m.Len != 0 {
		t.Fatalf("expected fresh alloc len 0, got %d", m.Len)
	}
}

func TestSendMsgWithNoRouteReturnsNoEndpt(t *testing.T) {
	ctx := newTestContext(t)
	m := ctx.AllocMsg(16)
	m.Mtype = 999

	got := ctx.SendMsg(m)
	if got.State != NOENDPT {
		t.Fatalf("expected NOENDPT, got %v", got.State)
	}
}

func TestSendMsgDeliversToRoutedEndpoint(t *testing.T) {
	addr, frames, stop := recordingListener(t)
	defer stop()

	ctx := newTestContext(t)
	tbl := routetable.NewBuilder()
	tbl.PutRTE(5, -1, []*routetable.Group{{Endpoints: []string{addr}}})
	ctx.active.Swap(tbl)

	m := ctx.AllocMsg(16)
	m.Mtype = 5
	m.SubID = -1
	m.SetPayload([]byte("hello"))

	got := ctx.SendMsg(m)
	if got.State != OK {
		t.Fatalf("expected OK, got %v", got.State)
	}

	var frame []byte
	select {
	case frame = <-frames:
	case <-time.After(time.Second):
		t.Fatal("endpoint never received a frame")
	}

	h, err := wire.Decode(frame)
	if err != nil {
		t.Fatalf("decode received frame: %v", err)
	}
	if h.Mtype != 5 {
		t.Fatalf("expected mtype 5 on the wire, got %d", h.Mtype)
	}
	if h.SubID != -1 {
		t.Fatalf("expected sub_id -1 on the wire, got %d", h.SubID)
	}
	off := h.PayloadOffset()
	payload := frame[off : off+int(h.Plen)]
	if string(payload) != "hello" {
		t.Fatalf("expected payload %q on the wire, got %q", "hello", payload)
	}
}

func TestWormholeOpenCloseState(t *testing.T) {
	ctx := newTestContext(t)
	id := ctx.WhOpen("127.0.0.1:1")
	if ctx.WhState(id) != wormhole.StateOpen {
		t.Fatalf("expected StateOpen right after WhOpen, got %v", ctx.WhState(id))
	}
	ctx.WhClose(id)
	if ctx.WhState(id) != wormhole.StateClosed {
		t.Fatalf("expected StateClosed after WhClose, got %v", ctx.WhState(id))
	}
}

func TestMtCallWithoutFlagReturnsNotSupp(t *testing.T) {
	ctx := newTestContext(t)
	m := ctx.AllocMsg(16)
	got := ctx.MtCall(m, 1, 100)
	if got.State != NOTSUPP {
		t.Fatalf("expected NOTSUPP when MTCall flag unset, got %v", got.State)
	}
}

func TestMtCallSendsPayloadUncorrupted(t *testing.T) {
	addr, frames, stop := recordingListener(t)
	defer stop()

	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Flags = FlagNoThread | FlagMTCall
	ctx, errno := Init(cfg)
	if errno != OK {
		t.Fatalf("init failed: %v", errno)
	}
	t.Cleanup(ctx.Close)

	tbl := routetable.NewBuilder()
	tbl.PutRTE(8, -1, []*routetable.Group{{Endpoints: []string{addr}}})
	ctx.active.Swap(tbl)

	m := ctx.AllocMsg(16)
	m.Mtype = 8
	m.SubID = -1
	m.SetPayload([]byte("0123456789"))

	seen := make(chan []byte, 1)
	go func() {
		var frame []byte
		select {
		case frame = <-frames:
		case <-time.After(time.Second):
			return
		}
		seen <- frame
		h, err := wire.Decode(frame)
		if err != nil {
			return
		}
		reply := ctx.alloc.Alloc(4)
		reply.SetPayload([]byte("ack"))
		ctx.chutes.Deliver(1, h.Xid, reply)
	}()

	got := ctx.MtCall(m, 1, 500)
	if got.State != OK {
		t.Fatalf("expected OK, got %v", got.State)
	}
	if string(got.Payload) != "ack" {
		t.Fatalf("expected reply payload 'ack', got %q", got.Payload)
	}

	var frame []byte
	select {
	case frame = <-seen:
	case <-time.After(time.Second):
		t.Fatal("expected a frame to reach the endpoint")
	}
	h, err := wire.Decode(frame)
	if err != nil {
		t.Fatalf("decode received frame: %v", err)
	}
	off := h.PayloadOffset()
	payload := frame[off : off+int(h.Plen)]
	if string(payload) != "0123456789" {
		t.Fatalf("expected payload '0123456789' uncorrupted on the wire, got %q", payload)
	}
}

func TestTorcvMsgTimesOutWhenEmpty(t *testing.T) {
	ctx := newTestContext(t)
	start := time.Now()
	got := ctx.TorcvMsg(20)
	if got.State != TIMEOUT {
		t.Fatalf("expected TIMEOUT, got %v", got.State)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatal("expected TorcvMsg to actually wait close to the timeout")
	}
}

func TestReadyFalseBeforeAnyTableInstall(t *testing.T) {
	ctx := newTestContext(t)
	if ctx.Ready() {
		t.Fatal("expected Ready() to be false with no seed and no RTC install")
	}
}

func TestMultiConsumerConfigSelectsLockedRing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Flags = FlagNoThread
	cfg.MultiConsumer = true
	ctx, errno := Init(cfg)
	if errno != OK {
		t.Fatalf("init failed: %v", errno)
	}
	defer ctx.Close()

	if _, ok := ctx.c1.(*ring.LockedRing); !ok {
		t.Fatalf("expected MultiConsumer to select a *ring.LockedRing, got %T", ctx.c1)
	}
}

func TestDefaultConfigSelectsLockFreeRing(t *testing.T) {
	ctx := newTestContext(t)
	if _, ok := ctx.c1.(*ring.Ring); !ok {
		t.Fatalf("expected default config to select a *ring.Ring, got %T", ctx.c1)
	}
}
