// Package wire implements the RMR v3 framed message header: a fixed prefix
// followed by optional trace/d1/d2 regions whose sizes and offsets are
// carried in the header itself rather than fixed at compile time. This is
// component C3's framing half (the mbuf/allocation half lives in
// internal/mbuf, which embeds a *Header produced by this package).
//
// Encoding follows the teacher's protocol/frame_codec.go approach: a fixed
// scratch array for the prefix, binary.BigEndian for multi-byte fields, and
// explicit incomplete-vs-error distinction on decode.
package wire

import (
	"encoding/binary"
	"errors"
)

// Version identifies the wire format a header was encoded with.
const (
	VersionLegacy = 1 // 16-byte src, no trace/d1/d2 extensions; accepted on receive, never generated
	Version       = 3 // current: 64-byte src, variable trace/d1/d2 regions
)

// Flag bits carried in Header.Flags.
const (
	FlagHasTrace uint32 = 1 << 0
	FlagHasSubID uint32 = 1 << 1
	FlagCallMsg  uint32 = 1 << 2
)

// Field widths, in bytes, of the fixed v3 prefix.
const (
	xidLen   = 32
	sidLen   = 32
	srcLen   = 64
	meidLen  = 32
	tsLen    = 16
	srcipLen = 64

	v1SrcLen = 16
)

// HeaderV3Size is the on-wire size of the fixed v3 prefix (before the
// trace/d1/d2/payload regions).
const HeaderV3Size = 4 + 4 + 4 + xidLen + sidLen + srcLen + meidLen + tsLen + 4 + 4 + 4 + 4 + 4 + 4 + srcipLen

// HeaderV1Size is the on-wire size of the legacy v1 prefix: mtype, plen,
// rmr_ver, xid, sid, and a 16-byte src, with no trailing extension regions.
const HeaderV1Size = 4 + 4 + 4 + xidLen + sidLen + v1SrcLen

var (
	// ErrIncomplete indicates the supplied buffer does not yet contain a
	// full header; the caller should read more bytes and retry.
	ErrIncomplete = errors.New("wire: incomplete header")
	// ErrBadVersion indicates an rmr_ver field this library does not understand.
	ErrBadVersion = errors.New("wire: unsupported rmr_ver")
)

// Header is the decoded form of an RMR wire header. Multi-byte fields are
// stored host-endian; Encode/Decode handle the network-order conversion.
type Header struct {
	Mtype int32
	Plen  int32
	Ver   int32
	Xid   [xidLen]byte
	Sid   [sidLen]byte
	Src   [srcLen]byte // "name:port" of sender; v1 only populates the first 16 bytes
	Meid  [meidLen]byte
	Ts    [tsLen]byte
	Flags uint32
	Len0  uint32 // size of the fixed header on the wire
	Len1  uint32 // trace region length
	Len2  uint32 // d1 region length
	Len3  uint32 // d2 region length
	SubID int32
	SrcIP [srcipLen]byte
}

// NewHeader returns a zero-initialized v3 header with rmr_ver, len0, and
// sub_id set per the allocation contract (sub_id defaults to "none").
func NewHeader() *Header {
	return &Header{
		Ver:   Version,
		Len0:  HeaderV3Size,
		SubID: -1,
	}
}

// TraceOffset, D1Offset, D2Offset, PayloadOffset return byte offsets from
// the start of the framed buffer, computed from Len0..Len3 at call time —
// never assumed to be compile-time constants, per the design's invariant
// that every offset is derived from the header's own length fields.
func (h *Header) TraceOffset() int   { return int(h.Len0) }
func (h *Header) D1Offset() int      { return int(h.Len0) + int(h.Len1) }
func (h *Header) D2Offset() int      { return int(h.Len0) + int(h.Len1) + int(h.Len2) }
func (h *Header) PayloadOffset() int { return int(h.Len0) + int(h.Len1) + int(h.Len2) + int(h.Len3) }

// FrameLen returns the total on-wire length of header + all regions +
// payload for this header.
func (h *Header) FrameLen() int { return h.PayloadOffset() + int(h.Plen) }

// Encode writes the full frame (header + trace + d1 + d2 + payload) into
// dst, which must be at least HeaderV3Size+len(trace)+len(d1)+len(d2)+len(payload)
// bytes. Always produces a v3 frame; legacy v1 frames are never generated,
// per spec.
func Encode(dst []byte, h *Header, trace, d1, d2, payload []byte) (int, error) {
	h.Ver = Version
	h.Len0 = HeaderV3Size
	h.Len1 = uint32(len(trace))
	h.Len2 = uint32(len(d1))
	h.Len3 = uint32(len(d2))
	h.Plen = int32(len(payload))
	if len(trace) > 0 {
		h.Flags |= FlagHasTrace
	}
	if h.SubID != -1 {
		h.Flags |= FlagHasSubID
	}

	need := h.FrameLen()
	if len(dst) < need {
		return 0, ErrIncomplete
	}

	o := 0
	putI32(dst[o:], h.Mtype)
	o += 4
	putI32(dst[o:], h.Plen)
	o += 4
	putI32(dst[o:], h.Ver)
	o += 4
	copy(dst[o:o+xidLen], h.Xid[:])
	o += xidLen
	copy(dst[o:o+sidLen], h.Sid[:])
	o += sidLen
	copy(dst[o:o+srcLen], h.Src[:])
	o += srcLen
	copy(dst[o:o+meidLen], h.Meid[:])
	o += meidLen
	copy(dst[o:o+tsLen], h.Ts[:])
	o += tsLen
	putU32(dst[o:], h.Flags)
	o += 4
	putU32(dst[o:], h.Len0)
	o += 4
	putU32(dst[o:], h.Len1)
	o += 4
	putU32(dst[o:], h.Len2)
	o += 4
	putU32(dst[o:], h.Len3)
	o += 4
	putI32(dst[o:], h.SubID)
	o += 4
	copy(dst[o:o+srcipLen], h.SrcIP[:])
	o += srcipLen

	o += copy(dst[o:], trace)
	o += copy(dst[o:], d1)
	o += copy(dst[o:], d2)
	o += copy(dst[o:], payload)

	return o, nil
}

// Decode parses a header prefix out of buf. It first peeks rmr_ver to
// distinguish v1 from v3 framing, then validates that the full fixed prefix
// is present. It does not require trace/d1/d2/payload to be present yet;
// callers use the returned header's FrameLen() to know how many more bytes
// to read before taking the regions and payload out of the buffer.
func Decode(buf []byte) (*Header, error) {
	if len(buf) < 12 {
		return nil, ErrIncomplete
	}
	ver := getI32(buf[8:12])

	h := &Header{}
	switch ver {
	case VersionLegacy:
		if len(buf) < HeaderV1Size {
			return nil, ErrIncomplete
		}
		o := 0
		h.Mtype = getI32(buf[o:])
		o += 4
		h.Plen = getI32(buf[o:])
		o += 4
		h.Ver = getI32(buf[o:])
		o += 4
		copy(h.Xid[:], buf[o:o+xidLen])
		o += xidLen
		copy(h.Sid[:], buf[o:o+sidLen])
		o += sidLen
		copy(h.Src[:v1SrcLen], buf[o:o+v1SrcLen])
		o += v1SrcLen
		h.SubID = -1
		h.Len0 = uint32(o)
		return h, nil
	case Version:
		if len(buf) < HeaderV3Size {
			return nil, ErrIncomplete
		}
		o := 0
		h.Mtype = getI32(buf[o:])
		o += 4
		h.Plen = getI32(buf[o:])
		o += 4
		h.Ver = getI32(buf[o:])
		o += 4
		copy(h.Xid[:], buf[o:o+xidLen])
		o += xidLen
		copy(h.Sid[:], buf[o:o+sidLen])
		o += sidLen
		copy(h.Src[:], buf[o:o+srcLen])
		o += srcLen
		copy(h.Meid[:], buf[o:o+meidLen])
		o += meidLen
		copy(h.Ts[:], buf[o:o+tsLen])
		o += tsLen
		h.Flags = getU32(buf[o:])
		o += 4
		h.Len0 = getU32(buf[o:])
		o += 4
		h.Len1 = getU32(buf[o:])
		o += 4
		h.Len2 = getU32(buf[o:])
		o += 4
		h.Len3 = getU32(buf[o:])
		o += 4
		h.SubID = getI32(buf[o:])
		o += 4
		copy(h.SrcIP[:], buf[o:o+srcipLen])
		return h, nil
	default:
		return nil, ErrBadVersion
	}
}

func putI32(b []byte, v int32) { binary.BigEndian.PutUint32(b, uint32(v)) }
func putU32(b []byte, v uint32) { binary.BigEndian.PutUint32(b, v) }
func getI32(b []byte) int32    { return int32(binary.BigEndian.Uint32(b)) }
func getU32(b []byte) uint32   { return binary.BigEndian.Uint32(b) }

// SetString copies s (truncated if necessary) into a fixed-size field array.
func SetString(dst []byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, s)
}

// GetString returns the NUL-terminated prefix of a fixed-size field array
// as a string.
func GetString(src []byte) string {
	for i, b := range src {
		if b == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}
