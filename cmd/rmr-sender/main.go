// Command rmr-sender sends a payload to a message type at a fixed interval
// and reports send_msg outcomes, exercising the route table against
// whatever RMR_SEED_RT / RMR_RTG_SVC / RMR_CTL_PORT the operator configures
// for this process (see internal/rtc).
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
	addr := flag.String("addr", ":0", "local listen address (ephemeral by default)")
	mtype := flag.Int("mtype", 100, "message type to send")
	subID := flag.Int("subid", -1, "subscription id (-1 for wildcard/unset)")
	payload := flag.String("payload", "hello from rmr-sender", "payload text")
	interval := flag.Duration("interval", time.Second, "send interval")
	flag.Parse()

	cfg := rmr.DefaultConfig()
	cfg.ListenAddr = *addr
	cfg.Flags = rmr.FlagNoThread

	ctx, state := rmr.Init(cfg)
	if state != rmr.OK {
		fmt.Fprintf(os.Stderr, "rmr.Init error: %v\n", state)
		os.Exit(1)
	}
	defer ctx.Close()

	fmt.Println("rmr-sender waiting for a route table...")
	for !ctx.Ready() {
		time.Sleep(100 * time.Millisecond)
	}
	fmt.Println("rmr-sender ready, sending mtype", *mtype)

	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		close(done)
	}()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			fmt.Println("rmr-sender shutting down")
			return
		case <-ticker.C:
			m := ctx.AllocMsg(len(*payload))
			m.Mtype = int32(*mtype)
			m.SubID = int32(*subID)
			m.SetPayload([]byte(*payload))

			sent := ctx.SendMsg(m)
			fmt.Printf("[%s] send mtype=%d state=%v\n", time.Now().Format(time.Stamp), *mtype, sent.State)
		}
	}
}
