package endpoint

import (
	"net"
	"testing"
	"time"

	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/telemetry"
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
					n, err := c.Read(buf)
					if err != nil {
						return
					}
					_ = n
				}
			}(c)
		}
	}()
	return ln.Addr().String(), func() { ln.Close() }
}

func TestRegistryGetCreatesOnDemand(t *testing.T) {
	r := NewRegistry(telemetry.New())
	ep := r.Get("127.0.0.1:9999")
	if ep == nil {
		t.Fatal("expected non-nil endpoint")
	}
	if _, ok := r.Lookup("127.0.0.1:9999"); !ok {
		t.Fatal("expected endpoint to be registered after Get")
	}
}

func TestLookupMissingReturnsFalse(t *testing.T) {
	r := NewRegistry(telemetry.New())
	if _, ok := r.Lookup("127.0.0.1:1"); ok {
		t.Fatal("expected lookup of unknown endpoint to fail")
	}
}

func TestSendDemandDialsAndDelivers(t *testing.T) {
	addr, stop := echoListener(t)
	defer stop()

	r := NewRegistry(telemetry.New())
	r.DialTimeout = time.Second
	fail := r.Send(addr, []byte("hello-frame"))
	if fail != FailNone {
		t.Fatalf("expected FailNone, got %v", fail)
	}
}

func TestSendToUnreachableEndpointReturnsRetry(t *testing.T) {
	r := NewRegistry(telemetry.New())
	r.DialTimeout = 50 * time.Millisecond
	fail := r.Send("127.0.0.1:1", []byte("x"))
	if fail != FailRetry {
		t.Fatalf("expected FailRetry for unreachable endpoint, got %v", fail)
	}
}

func TestSendWithEmptyNameIsNoEndpoint(t *testing.T) {
	r := NewRegistry(telemetry.New())
	if fail := r.Send("", []byte("x")); fail != FailNoEndpoint {
		t.Fatalf("expected FailNoEndpoint, got %v", fail)
	}
}
