// Package errno defines the mbuf State codes shared by every internal
// package and re-exported at the public API boundary (rmr.Errno). Keeping
// this in its own leaf package avoids an import cycle between internal/mbuf
// and the public rmr package, mirroring the teacher's api.ErrorCode
// (api/errors.go) living below every package that returns one.
package errno

// Errno is the result of the last operation performed on an mbuf, and the
// uniform return-channel for every RMR operation — errors never unwind,
// they come back as a State on the returned mbuf.
type Errno int

const (
	OK Errno = iota
	BADARG
	NOENDPT
	EMPTY
	NOHDR
	SENDFAILED
	CALLFAILED
	NOWHOPEN
	WHID
	OVERFLOW
	RETRY
	RCVFAILED
	TIMEOUT
	UNSET
	TRUNC
	INITFAILED
	NOTSUPP
)

func (e Errno) String() string {
	switch e {
	case OK:
		return "OK"
	case BADARG:
		return "BADARG"
	case NOENDPT:
		return "NOENDPT"
	case EMPTY:
		return "EMPTY"
	case NOHDR:
		return "NOHDR"
	case SENDFAILED:
		return "SENDFAILED"
	case CALLFAILED:
		return "CALLFAILED"
	case NOWHOPEN:
		return "NOWHOPEN"
	case WHID:
		return "WHID"
	case OVERFLOW:
		return "OVERFLOW"
	case RETRY:
		return "RETRY"
	case RCVFAILED:
		return "RCVFAILED"
	case TIMEOUT:
		return "TIMEOUT"
	case UNSET:
		return "UNSET"
	case TRUNC:
		return "TRUNC"
	case INITFAILED:
		return "INITFAILED"
	case NOTSUPP:
		return "NOTSUPP"
	default:
		return "UNKNOWN"
	}
}

func (e Errno) Error() string { return e.String() }
