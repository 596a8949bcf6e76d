package ring

import "testing"

func TestInsertExtractOrder(t *testing.T) {
	r := New(4)
	defer r.Close()

	if !r.Insert(1) || !r.Insert(2) || !r.Insert(3) {
		t.Fatal("expected inserts to succeed under capacity")
	}

	if got := r.Extract(); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
	if got := r.Extract(); got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
}

func TestFullReturnsFalse(t *testing.T) {
	r := New(2) // rounds up to 2
	defer r.Close()

	ok := true
	count := 0
	for ok {
		ok = r.Insert(count)
		if ok {
			count++
		}
	}
	if count != r.Cap() {
		t.Fatalf("expected to fill exactly %d slots, filled %d", r.Cap(), count)
	}
	if r.Insert(99) {
		t.Fatal("expected ring to reject insert when full")
	}
}

func TestEmptyReturnsNil(t *testing.T) {
	r := New(4)
	defer r.Close()
	if v := r.Extract(); v != nil {
		t.Fatalf("expected nil on empty ring, got %v", v)
	}
}

func TestLenTracksHeadTail(t *testing.T) {
	r := New(8)
	defer r.Close()

	for i := 0; i < 5; i++ {
		r.Insert(i)
	}
	if r.Len() != 5 {
		t.Fatalf("expected len 5, got %d", r.Len())
	}
	r.Extract()
	r.Extract()
	if r.Len() != 3 {
		t.Fatalf("expected len 3, got %d", r.Len())
	}
}

func TestLockedRingBasic(t *testing.T) {
	r := NewLocked(2)
	defer r.Close()

	if !r.Insert("a") || !r.Insert("b") {
		t.Fatal("expected inserts under capacity to succeed")
	}
	if r.Insert("c") {
		t.Fatal("expected insert beyond capacity to fail")
	}
	if v := r.Extract(); v != "a" {
		t.Fatalf("expected FIFO order, got %v", v)
	}
}
