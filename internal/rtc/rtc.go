// Package rtc implements component C6: the route-table collector thread.
// It is parameterized entirely by environment variables (RMR_SEED_RT,
// RMR_RTG_SVC, RMR_CTL_PORT, RMR_VCTL_FILE, RMR_RTREQ_FREQ), reads a
// static seed table at startup if configured, then runs in either active
// mode (dial the route manager, request a table on each session) or passive
// mode (listen for pushes), applying newline-delimited route-table text to
// internal/routetable.BuildState as it arrives.
//
// Grounded on the teacher's control/hotreload.go background-dispatch shape
// and protocol/frame_codec.go's incomplete-data accumulation pattern,
// applied here to a line-oriented rather than length-prefixed protocol.
package rtc

import (
	"bufio"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue"

	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/rlog"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/routetable"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/telemetry"
)

// Env names the environment variables this thread is driven by (spec §4.6).
const (
	EnvSeedRT    = "RMR_SEED_RT"
	EnvRTGSvc    = "RMR_RTG_SVC"
	EnvCtlPort   = "RMR_CTL_PORT"
	EnvVctlFile  = "RMR_VCTL_FILE"
	EnvReqFreq   = "RMR_RTREQ_FREQ"

	defaultReqFreqSeconds = 5
	minReqFreqSeconds     = 1
	maxReqFreqSeconds     = 300

	dumpIntervalInitial = 30 * time.Second
	dumpIntervalMax     = 300 * time.Second
)

// Collector runs the route-table collector thread loop.
type Collector struct {
	active *routetable.Active
	metrics *telemetry.Registry

	reqFreq time.Duration
	vctlFile string
	seedPath string
	rtgSvc   string
	ctlPort  string

	stop chan struct{}
	wg   sync.WaitGroup

	dumpCounters func() // invoked on each periodic dump tick; set by the owner
	onInstall    func() // invoked after every successful table install

	verbosity atomic.Int32
}

// New reads the RTC's environment configuration and returns an idle
// Collector wired to active's atomic table holder.
func New(active *routetable.Active, metrics *telemetry.Registry) *Collector {
	freq := defaultReqFreqSeconds
	if v := os.Getenv(EnvReqFreq); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= minReqFreqSeconds && n <= maxReqFreqSeconds {
			freq = n
		}
	}
	return &Collector{
		active:   active,
		metrics:  metrics,
		reqFreq:  time.Duration(freq) * time.Second,
		vctlFile: os.Getenv(EnvVctlFile),
		seedPath: os.Getenv(EnvSeedRT),
		rtgSvc:   os.Getenv(EnvRTGSvc),
		ctlPort:  os.Getenv(EnvCtlPort),
		stop:     make(chan struct{}),
	}
}

// IsActiveMode reports whether the RTC should dial out for its table
// (RMR_RTG_SVC holding a host:port, or RMR_CTL_PORT being set) rather than
// listen passively.
func (c *Collector) IsActiveMode() bool {
	if c.ctlPort != "" {
		return true
	}
	return strings.Contains(c.rtgSvc, ":")
}

// LoadSeed applies the static seed table at path, if RMR_SEED_RT was set.
// Parse failures here are fatal to startup seeding only — the active table
// then simply stays empty until a dynamic update arrives.
func (c *Collector) LoadSeed() error {
	if c.seedPath == "" {
		return nil
	}
	f, err := os.Open(c.seedPath)
	if err != nil {
		return err
	}
	defer f.Close()

	b := routetable.NewBuildState()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		tbl, err := b.Apply(line, nil)
		if err != nil {
			if c.metrics != nil {
				c.metrics.RTParseFail.Inc()
			}
			rlog.Warnf("rtc: seed %s: rejected record %q: %v", c.seedPath, line, err)
			continue
		}
		if tbl != nil {
			c.install(tbl)
		}
	}
	return sc.Err()
}

func (c *Collector) install(tbl *routetable.Table) {
	c.active.Swap(tbl)
	if c.metrics != nil {
		c.metrics.RTSwaps.Inc()
	}
	if c.onInstall != nil {
		c.onInstall()
	}
}

// SetInstallHook installs the callback invoked after every successful
// route-table install (seed load or dynamic update) — the public API uses
// this to implement ready().
func (c *Collector) SetInstallHook(fn func()) { c.onInstall = fn }

// Run starts the background goroutines: the active-mode request loop (if
// applicable), the counter-dump loop, and (in passive mode) the listener.
// It returns immediately; call Stop to shut down.
func (c *Collector) Run() {
	if c.IsActiveMode() && strings.Contains(c.rtgSvc, ":") {
		c.wg.Add(1)
		go c.runActive()
	} else if c.ctlPort != "" {
		c.wg.Add(1)
		go c.runPassive(c.ctlPort)
	} else if c.rtgSvc != "" {
		c.wg.Add(1)
		go c.runPassive(c.rtgSvc)
	}
	c.wg.Add(1)
	go c.runDumpLoop()

	if c.vctlFile != "" {
		c.verbosity.Store(int32(Verbosity(c.vctlFile)))
		c.wg.Add(1)
		go c.runVerbosityLoop()
	}
}

// Stop signals every RTC goroutine to exit at its next poll wake and waits
// for them to finish.
func (c *Collector) Stop() {
	close(c.stop)
	c.wg.Wait()
}

// runActive dials RMR_RTG_SVC, sends REQ_TABLE once on each session it
// opens, then reads and installs updates off that session for as long as it
// stays up. REQ_TABLE is not re-sent on an open session. After a failed dial
// it waits RMR_RTREQ_FREQ before dialing again; after a session ends it
// re-dials at once.
func (c *Collector) runActive() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stop:
			return
		default:
		}
		conn, err := net.DialTimeout("tcp", c.rtgSvc, 2*time.Second)
		if err != nil {
			select {
			case <-c.stop:
				return
			case <-time.After(c.reqFreq):
			}
			continue
		}
		c.serveSession(conn, true)
	}
}

// runPassive listens on port (RMR_CTL_PORT, or the port-only RMR_RTG_SVC in
// passive mode) and applies pushed updates from whichever route manager
// connects.
func (c *Collector) runPassive(port string) {
	defer c.wg.Done()
	addr := port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return
	}
	defer ln.Close()
	go func() {
		<-c.stop
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		go c.serveSession(conn, false)
	}
}

// serveSession reads newline-delimited route table records from conn,
// applying them to a BuildState with an expanding reassembly buffer
// (bufio.Scanner already grows its buffer across partial reads); each
// completed batch is installed and acked back on the same session.
func (c *Collector) serveSession(conn net.Conn, requestFirst bool) {
	defer conn.Close()

	if requestFirst {
		conn.Write([]byte("REQ_TABLE\n"))
	}

	b := routetable.NewBuildState()
	applyQueue := queue.New()

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 4096), 1<<20)
	for sc.Scan() {
		select {
		case <-c.stop:
			return
		default:
		}
		line := sc.Text()
		applyQueue.Add(line)
		for applyQueue.Length() > 0 {
			l := applyQueue.Peek().(string)
			applyQueue.Remove()
			active := c.active.Current()
			tbl, err := b.Apply(l, active)
			c.active.Release(active)
			if err != nil {
				if c.metrics != nil {
					c.metrics.RTParseFail.Inc()
				}
				rlog.Warnf("rtc: %s: rejected record %q: %v", conn.RemoteAddr(), l, err)
				continue
			}
			if tbl != nil {
				c.install(tbl)
				conn.Write([]byte("ACK\n"))
			}
		}
	}
}

// runDumpLoop periodically invokes dumpCounters (if set), backing off from
// a 30s interval to 300s as the process stays up, per spec §4.6.
func (c *Collector) runDumpLoop() {
	defer c.wg.Done()
	interval := dumpIntervalInitial
	t := time.NewTimer(interval)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			if c.dumpCounters != nil {
				c.dumpCounters()
			}
			if interval < dumpIntervalMax {
				interval *= 2
				if interval > dumpIntervalMax {
					interval = dumpIntervalMax
				}
			}
			t.Reset(interval)
		}
	}
}

// SetDumpHook installs the callback invoked on every periodic counter dump
// tick; the public API wires this to an rlog line reporting the endpoint
// count and C1 ring depth.
func (c *Collector) SetDumpHook(fn func()) { c.dumpCounters = fn }

// runVerbosityLoop polls RMR_VCTL_FILE once a second and logs a line when
// the digit found there changes, per spec §4.6's verbosity-file polling.
func (c *Collector) runVerbosityLoop() {
	defer c.wg.Done()
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			v := int32(Verbosity(c.vctlFile))
			if old := c.verbosity.Swap(v); old != v {
				rlog.Infof("rtc: verbosity changed %d -> %d", old, v)
			}
		}
	}
}

// Verbosity returns the most recently polled RMR_VCTL_FILE digit (0 if
// unset or never polled).
func (c *Collector) Verbosity() int { return int(c.verbosity.Load()) }

// Verbosity polls RMR_VCTL_FILE (if set) and returns the digit found there,
// or 0 if unset/unreadable. The RTC consults this on each loop iteration;
// callers driving their own log level should poll it the same way.
func Verbosity(path string) int {
	if path == "" {
		return 0
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s[:1])
	if err != nil {
		return 0
	}
	return n
}
