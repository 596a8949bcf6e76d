// Command rmr-receiver listens on its address and prints every message it
// receives, whatever its type: mtype, sub_id, length and payload.
// Unlike rmr-echo it never replies, making it useful for fan-out/broadcast
// testing against the teacher's examples/broadcast shape.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001"
)

func main() {
	addr := flag.String("addr", ":4560", "listen address")
	flag.Parse()

	cfg := rmr.DefaultConfig()
	cfg.ListenAddr = *addr

	ctx, state := rmr.Init(cfg)
	if state != rmr.OK {
		fmt.Fprintf(os.Stderr, "rmr.Init error: %v\n", state)
		os.Exit(1)
	}
	defer ctx.Close()

	fmt.Println("rmr-receiver listening on", *addr)

	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		close(done)
	}()

	for {
		select {
		case <-done:
			fmt.Println("rmr-receiver shutting down")
			return
		default:
		}

		m := ctx.TorcvMsg(1000)
		if m.State == rmr.TIMEOUT {
			continue
		}
		if m.State != rmr.OK {
			fmt.Printf("[%s] recv error state=%v\n", time.Now().Format(time.Stamp), m.State)
			continue
		}
		fmt.Printf("[%s] mtype=%d subid=%d len=%d payload=%q\n",
			time.Now().Format(time.Stamp), m.Mtype, m.SubID, m.Len, string(m.Payload))
	}
}
