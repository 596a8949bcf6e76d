// Command rmr-echo is a minimal RMR echo server: it receives every message
// routed to it and sends the payload straight back to the sender via
// rts_msg, bouncing mtype+1 so a paired rmr-sender can tell replies apart
// from its own traffic.
//
// Mirrors the teacher's examples/lowlevel/echo shape (flag-parsed listen
// address, periodic stats ticker, signal-driven shutdown) translated from
// the WebSocket facade to the rmr package.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001"
)

func main() {
	addr := flag.String("addr", ":4560", "listen address")
	ringCap := flag.Int("ring", 2048, "application ring (C1) capacity")
	flag.Parse()

	cfg := rmr.DefaultConfig()
	cfg.ListenAddr = *addr
	cfg.RingCapacity = *ringCap

	ctx, state := rmr.Init(cfg)
	if state != rmr.OK {
		fmt.Fprintf(os.Stderr, "rmr.Init error: %v\n", state)
		os.Exit(1)
	}
	defer ctx.Close()

	fmt.Println("rmr-echo listening on", *addr)

	var received, replied int64

	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			fmt.Printf("[%s] received=%d replied=%d ready=%v\n",
				time.Now().Format(time.Stamp),
				atomic.LoadInt64(&received),
				atomic.LoadInt64(&replied),
				ctx.Ready())
		}
	}()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
			}
			m := ctx.TorcvMsg(1000)
			if m.State == rmr.TIMEOUT {
				continue
			}
			if m.State != rmr.OK {
				continue
			}
			atomic.AddInt64(&received, 1)

			m.Mtype++
			reply := ctx.RtsMsg(m)
			if reply.State == rmr.OK {
				atomic.AddInt64(&replied, 1)
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	close(done)
	fmt.Println("rmr-echo shutting down")
}
