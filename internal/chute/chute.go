// Package chute implements component C8: the fixed array of wakeable
// slots used to correlate an mt_call/rcv_specific caller with the reply
// the receive thread eventually sees. Chute 0 is reserved; chutes
// 1..MaxCallID are available for mt_call, matching the upstream library's
// convention.
//
// Grounded on the teacher's internal/session package "done chan
// struct{}/sync.Once" signaling idiom (session.go, context_store.go),
// adapted here from "cancel a session" to "wake exactly one blocked
// caller with a delivered value".
package chute

import (
	"sync"
	"time"
)

// MaxCallID is the largest usable call id; chute 0 is reserved, so valid
// ids are 1..MaxCallID inclusive.
const MaxCallID = 255

// Chute is one wakeable slot. Arm records what transaction id a future
// frame must carry to be routed here; Deliver hands over the payload and
// wakes the waiter; Wait blocks the caller until Signal or a timeout.
type Chute struct {
	mu      sync.Mutex
	armed   bool
	expect  [32]byte
	ch      chan any
}

func newChute() *Chute {
	return &Chute{ch: make(chan any, 1)}
}

// Table is the fixed chute array for one context.
type Table struct {
	chutes [MaxCallID + 1]*Chute
}

// NewTable allocates and initializes every chute slot up front, mirroring
// the C library's fixed-size array-at-init-time allocation.
func NewTable() *Table {
	t := &Table{}
	for i := range t.chutes {
		t.chutes[i] = newChute()
	}
	return t
}

// Arm records the expected transaction id for call_id and clears any stale
// payload, preparing the chute to receive exactly one matching reply.
// call_id must be in [1, MaxCallID]; 0 is reserved and always returns false.
func (t *Table) Arm(callID int, xaction [32]byte) bool {
	if callID < 1 || callID > MaxCallID {
		return false
	}
	c := t.chutes[callID]
	c.mu.Lock()
	defer c.mu.Unlock()
	// drain any stale value from a previous, abandoned wait
	select {
	case <-c.ch:
	default:
	}
	c.expect = xaction
	c.armed = true
	return true
}

// Disarm clears call_id's armed state without waiting, used when a send
// fails before the wait begins (spec §4.8 step 4).
func (t *Table) Disarm(callID int) {
	if callID < 1 || callID > MaxCallID {
		return
	}
	c := t.chutes[callID]
	c.mu.Lock()
	c.armed = false
	c.mu.Unlock()
}

// Deliver routes value to the chute expecting xaction, if call_id is armed
// and the expectation matches. Returns true if delivered. Used by the
// receive thread (C9) when a frame's CALL_MSG flag and d1 call-id index a
// matching chute.
func (t *Table) Deliver(callID int, xaction [32]byte, value any) bool {
	if callID < 1 || callID > MaxCallID {
		return false
	}
	c := t.chutes[callID]
	c.mu.Lock()
	if !c.armed || c.expect != xaction {
		c.mu.Unlock()
		return false
	}
	c.armed = false
	c.mu.Unlock()

	select {
	case c.ch <- value:
		return true
	default:
		return false // already has an undelivered value; should not happen if Arm drained first
	}
}

// Wait blocks until call_id's chute is signaled or timeout elapses. Returns
// the delivered value and true, or nil and false on timeout.
func (t *Table) Wait(callID int, timeout time.Duration) (any, bool) {
	if callID < 1 || callID > MaxCallID {
		return nil, false
	}
	c := t.chutes[callID]
	select {
	case v := <-c.ch:
		return v, true
	case <-time.After(timeout):
		t.Disarm(callID)
		return nil, false
	}
}

// rcv_specific (spec §4.8) reuses chute 0 — reserved and untouched by
// mt_call's 1..MaxCallID range — as a dedicated slot matching purely on
// transaction id, independent of the CALL_MSG flag and d1 call-id byte
// mt_call's Deliver path keys on.

// ArmSpecific records the xaction a future frame must carry to satisfy a
// pending rcv_specific wait.
func (t *Table) ArmSpecific(xaction [32]byte) {
	c := t.chutes[0]
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.ch:
	default:
	}
	c.expect = xaction
	c.armed = true
}

// DisarmSpecific clears the dedicated chute's armed state without waiting.
func (t *Table) DisarmSpecific() {
	c := t.chutes[0]
	c.mu.Lock()
	c.armed = false
	c.mu.Unlock()
}

// DeliverSpecific routes value to the dedicated chute if it is armed and
// expecting xaction, regardless of CALL_MSG/call-id framing. Used by the
// receive thread for frames that aren't mt_call replies.
func (t *Table) DeliverSpecific(xaction [32]byte, value any) bool {
	c := t.chutes[0]
	c.mu.Lock()
	if !c.armed || c.expect != xaction {
		c.mu.Unlock()
		return false
	}
	c.armed = false
	c.mu.Unlock()

	select {
	case c.ch <- value:
		return true
	default:
		return false
	}
}

// WaitSpecific blocks until the dedicated chute is signaled or timeout
// elapses.
func (t *Table) WaitSpecific(timeout time.Duration) (any, bool) {
	c := t.chutes[0]
	select {
	case v := <-c.ch:
		return v, true
	case <-time.After(timeout):
		t.DisarmSpecific()
		return nil, false
	}
}
