package wormhole

import (
	"net"
	"testing"

	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/endpoint"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/telemetry"
)

func listener(t *testing.T) (addr string, stop func()) {
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

func TestOpenReturnsSameIDForSameAddr(t *testing.T) {
	tbl := NewTable(endpoint.NewRegistry(telemetry.New()))
	id1 := tbl.Open("h:1")
	id2 := tbl.Open("h:1")
	if id1 != id2 {
		t.Fatalf("expected same id for repeated open, got %d vs %d", id1, id2)
	}
}

func TestCloseReusesHole(t *testing.T) {
	tbl := NewTable(endpoint.NewRegistry(telemetry.New()))
	id1 := tbl.Open("h:1")
	tbl.Close(id1)
	if tbl.State(id1) != StateClosed {
		t.Fatalf("expected closed state after Close")
	}
	id2 := tbl.Open("h:2")
	if id2 != id1 {
		t.Fatalf("expected hole reuse, got new id %d instead of %d", id2, id1)
	}
}

func TestStateUnknownForOutOfRangeID(t *testing.T) {
	tbl := NewTable(endpoint.NewRegistry(telemetry.New()))
	if tbl.State(42) != StateUnknown {
		t.Fatalf("expected unknown state for out-of-range id")
	}
}

func TestSendOnClosedIDFails(t *testing.T) {
	tbl := NewTable(endpoint.NewRegistry(telemetry.New()))
	id := tbl.Open("h:1")
	tbl.Close(id)
	if _, err := tbl.Send(id, []byte("x")); err != ErrBadID {
		t.Fatalf("expected ErrBadID, got %v", err)
	}
}

func TestSendDeliversOverOpenWormhole(t *testing.T) {
	addr, stop := listener(t)
	defer stop()

	reg := endpoint.NewRegistry(telemetry.New())
	tbl := NewTable(reg)
	id := tbl.Open(addr)

	fail, err := tbl.Send(id, []byte("wormhole-frame"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fail != endpoint.FailNone {
		t.Fatalf("expected FailNone, got %v", fail)
	}
}
