package wire

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	h := NewHeader()
	h.Mtype = 42
	h.SubID = 7
	SetString(h.Src[:], "node-a:4560")
	SetString(h.Xid[:], "txn-1234")

	payload := []byte("hello world")
	buf := make([]byte, HeaderV3Size+len(payload))

	n, err := Encode(buf, h, nil, nil, nil, payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("expected to write %d bytes, wrote %d", len(buf), n)
	}

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Mtype != 42 {
		t.Fatalf("expected mtype 42, got %d", got.Mtype)
	}
	if got.SubID != 7 {
		t.Fatalf("expected sub_id 7, got %d", got.SubID)
	}
	if GetString(got.Src[:]) != "node-a:4560" {
		t.Fatalf("expected src round trip, got %q", GetString(got.Src[:]))
	}
	if GetString(got.Xid[:]) != "txn-1234" {
		t.Fatalf("expected xid round trip, got %q", GetString(got.Xid[:]))
	}
	if int(got.Plen) != len(payload) {
		t.Fatalf("expected plen %d, got %d", len(payload), got.Plen)
	}
	gotPayload := buf[got.PayloadOffset() : got.PayloadOffset()+int(got.Plen)]
	if string(gotPayload) != string(payload) {
		t.Fatalf("expected payload %q, got %q", payload, gotPayload)
	}
}

func TestEncodeDecodeWithRegions(t *testing.T) {
	h := NewHeader()
	h.Mtype = 1
	trace := []byte("trace-data")
	d1 := []byte{5} // call-id byte for mt_call
	d2 := []byte("d2-region")
	payload := []byte("payload-bytes")

	buf := make([]byte, HeaderV3Size+len(trace)+len(d1)+len(d2)+len(payload))
	if _, err := Encode(buf, h, trace, d1, d2, payload); err != nil {
		t.Fatalf("encode: %v", err)
	}

	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	gotTrace := buf[got.TraceOffset():got.D1Offset()]
	gotD1 := buf[got.D1Offset():got.D2Offset()]
	gotD2 := buf[got.D2Offset():got.PayloadOffset()]

	if string(gotTrace) != string(trace) {
		t.Fatalf("trace mismatch: %q vs %q", gotTrace, trace)
	}
	if string(gotD1) != string(d1) {
		t.Fatalf("d1 mismatch: %q vs %q", gotD1, d1)
	}
	if string(gotD2) != string(d2) {
		t.Fatalf("d2 mismatch: %q vs %q", gotD2, d2)
	}
}

func TestDecodeIncomplete(t *testing.T) {
	buf := make([]byte, 4)
	if _, err := Decode(buf); err != ErrIncomplete {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
}

func TestDecodeLegacyV1(t *testing.T) {
	buf := make([]byte, HeaderV1Size)
	putI32(buf[0:], 9)          // mtype
	putI32(buf[4:], 3)          // plen
	putI32(buf[8:], VersionLegacy)
	copy(buf[12+xidLen+sidLen:], []byte("shortsrc"))

	h, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode v1: %v", err)
	}
	if h.Mtype != 9 || h.Ver != VersionLegacy {
		t.Fatalf("unexpected v1 header: %+v", h)
	}
	if h.SubID != -1 {
		t.Fatalf("expected sub_id -1 sentinel on v1, got %d", h.SubID)
	}
}

func TestDecodeBadVersion(t *testing.T) {
	buf := make([]byte, HeaderV3Size)
	putI32(buf[8:], 99)
	if _, err := Decode(buf); err != ErrBadVersion {
		t.Fatalf("expected ErrBadVersion, got %v", err)
	}
}
