package chute

import (
	"testing"
	"time"
)

func TestArmRejectsReservedAndOutOfRange(t *testing.T) {
	tbl := NewTable()
	if tbl.Arm(0, [32]byte{}) {
		t.Fatal("expected chute 0 to be reserved and unarmable")
	}
	if tbl.Arm(MaxCallID+1, [32]byte{}) {
		t.Fatal("expected out-of-range call id to be rejected")
	}
}

func TestDeliverOnlyMatchingExpectation(t *testing.T) {
	tbl := NewTable()
	var xid [32]byte
	copy(xid[:], "txn-1")
	tbl.Arm(1, xid)

	var wrong [32]byte
	copy(wrong[:], "txn-2")
	if tbl.Deliver(1, wrong, "payload") {
		t.Fatal("expected mismatched xaction not to deliver")
	}
	if !tbl.Deliver(1, xid, "payload") {
		t.Fatal("expected matching xaction to deliver")
	}
}

func TestWaitReceivesDeliveredValue(t *testing.T) {
	tbl := NewTable()
	var xid [32]byte
	copy(xid[:], "txn-3")
	tbl.Arm(2, xid)

	go func() {
		time.Sleep(5 * time.Millisecond)
		tbl.Deliver(2, xid, "reply")
	}()

	v, ok := tbl.Wait(2, time.Second)
	if !ok || v != "reply" {
		t.Fatalf("expected reply delivered, got v=%v ok=%v", v, ok)
	}
}

func TestWaitTimesOutAndDisarms(t *testing.T) {
	tbl := NewTable()
	var xid [32]byte
	copy(xid[:], "txn-4")
	tbl.Arm(3, xid)

	_, ok := tbl.Wait(3, 10*time.Millisecond)
	if ok {
		t.Fatal("expected timeout")
	}
	// a late delivery after timeout should now fail since Wait disarmed it.
	if tbl.Deliver(3, xid, "late") {
		t.Fatal("expected post-timeout delivery to be rejected")
	}
}

func TestDeliverSpecificMatchesOnXactionOnly(t *testing.T) {
	tbl := NewTable()
	var xid [32]byte
	copy(xid[:], "txn-specific")
	tbl.ArmSpecific(xid)

	var wrong [32]byte
	copy(wrong[:], "txn-other")
	if tbl.DeliverSpecific(wrong, "payload") {
		t.Fatal("expected mismatched xaction not to deliver on the dedicated chute")
	}
	if !tbl.DeliverSpecific(xid, "payload") {
		t.Fatal("expected matching xaction to deliver on the dedicated chute")
	}
}

func TestWaitSpecificReceivesDeliveredValue(t *testing.T) {
	tbl := NewTable()
	var xid [32]byte
	copy(xid[:], "txn-specific-2")
	tbl.ArmSpecific(xid)

	go func() {
		time.Sleep(5 * time.Millisecond)
		tbl.DeliverSpecific(xid, "reply")
	}()

	v, ok := tbl.WaitSpecific(time.Second)
	if !ok || v != "reply" {
		t.Fatalf("expected reply delivered, got v=%v ok=%v", v, ok)
	}
}

func TestWaitSpecificTimesOutAndDisarms(t *testing.T) {
	tbl := NewTable()
	var xid [32]byte
	copy(xid[:], "txn-specific-3")
	tbl.ArmSpecific(xid)

	_, ok := tbl.WaitSpecific(10 * time.Millisecond)
	if ok {
		t.Fatal("expected timeout")
	}
	if tbl.DeliverSpecific(xid, "late") {
		t.Fatal("expected post-timeout delivery to be rejected")
	}
}
