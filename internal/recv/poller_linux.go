//go:build linux

package recv

import (
	"net"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/tcpconn"
)

// Poller is the Linux epoll-backed fd multiplexer driving Receiver.feed,
// grounded directly on reactor/epoll_reactor.go's fd->callback dispatch
// (EpollCreate1/EpollCtl/EpollWait), re-implemented against
// golang.org/x/sys/unix instead of the deprecated syscall package, matching
// the teacher's own choice of x/sys/unix in internal/transport/transport_linux.go.
type Poller struct {
	epfd int

	mu    sync.Mutex
	conns map[int]net.Conn

	stop chan struct{}
}

// NewPoller creates an epoll instance.
func NewPoller() (*Poller, error) {
	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		return nil, err
	}
	return &Poller{
		epfd:  epfd,
		conns: make(map[int]net.Conn),
		stop:  make(chan struct{}),
	}, nil
}

// Watch registers conn's raw fd for readability events.
func (p *Poller) Watch(conn net.Conn) error {
	fd := rawFD(conn)
	if fd < 0 {
		return unix.EBADF
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return err
	}
	p.mu.Lock()
	p.conns[fd] = conn
	p.mu.Unlock()
	return nil
}

// Unwatch removes conn's fd from the epoll set.
func (p *Poller) Unwatch(conn net.Conn) {
	fd := rawFD(conn)
	if fd < 0 {
		return
	}
	unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	p.mu.Lock()
	delete(p.conns, fd)
	p.mu.Unlock()
}

func rawFD(conn net.Conn) int {
	return tcpconn.RawFD(conn)
}

// Run drives the epoll wait loop, feeding bytes read off ready fds into
// recv. It blocks until Stop is called.
func (p *Poller) Run(recv *Receiver) {
	var events [128]unix.EpollEvent
	buf := make([]byte, 65536)
	for {
		select {
		case <-p.stop:
			return
		default:
		}

		n, err := unix.EpollWait(p.epfd, events[:], 250)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			p.mu.Lock()
			conn, ok := p.conns[fd]
			p.mu.Unlock()
			if !ok {
				continue
			}
			nr, err := unix.Read(fd, buf)
			if err != nil || nr == 0 {
				p.Unwatch(conn)
				recv.RemoveConn(conn)
				conn.Close()
				continue
			}
			recv.feed(conn, buf[:nr])
		}
	}
}

// Stop ends the Run loop at its next wakeup.
func (p *Poller) Stop() { close(p.stop) }

// Close releases the epoll fd.
func (p *Poller) Close() error { return unix.Close(p.epfd) }
