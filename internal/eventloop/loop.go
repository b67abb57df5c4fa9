// Package eventloop is the single-threaded multiplexer spec §4.7
// describes: one goroutine, one epoll set, drain/dispatch/flush every
// iteration. It owns no protocol knowledge of its own; it just polls
// whatever fds the rest of the bridge registers and calls back into
// them, in the same golang.org/x/sys/unix vein internal/wire already
// uses for the raw socket plumbing.
package eventloop

import (
	"fmt"

	"github.com/bnema/xwsatellite/internal/xlog"
	"golang.org/x/sys/unix"
)

// Handler is called when its fd becomes readable. Returning an error
// unregisters it and logs; a closed connection is reported this way
// rather than panicking the loop.
type Handler func() error

// Flusher is called once per iteration after every ready fd has been
// drained, regardless of which fds fired (spec §4.7 "flush" step).
type Flusher func() error

type registration struct {
	fd      int
	handler Handler
}

// Loop is the epoll-based multiplexer. Not safe for concurrent use;
// it's meant to run on exactly one goroutine, per spec §9's
// single-threaded model.
type Loop struct {
	epfd     int
	regs     map[int]*registration
	flushers []Flusher
	closed   bool
}

// New creates an empty loop with a fresh epoll instance.
func New() (*Loop, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("epoll_create1: %w", err)
	}
	return &Loop{epfd: epfd, regs: make(map[int]*registration)}, nil
}

// Add registers fd for read-readiness, invoking handler each time it
// fires.
func (l *Loop) Add(fd int, handler Handler) error {
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
	if err := unix.EpollCtl(l.epfd, unix.EPOLL_CTL_ADD, fd, &ev); err != nil {
		return fmt.Errorf("epoll_ctl(add, %d): %w", fd, err)
	}
	l.regs[fd] = &registration{fd: fd, handler: handler}
	return nil
}

// Remove unregisters fd; safe to call even if fd was never added.
func (l *Loop) Remove(fd int) {
	if _, ok := l.regs[fd]; !ok {
		return
	}
	_ = unix.EpollCtl(l.epfd, unix.EPOLL_CTL_DEL, fd, nil)
	delete(l.regs, fd)
}

// AddFlusher registers a callback run at the end of every iteration,
// after all ready fds this round have been drained (spec §4.7's
// drain/dispatch/flush cycle's last step — e.g. hostclient.Client.Flush
// and wire.Conn writers that buffer rather than write-through).
func (l *Loop) AddFlusher(f Flusher) {
	l.flushers = append(l.flushers, f)
}

// Run blocks, servicing ready fds until Stop is called; it returns an
// error only when epoll_wait itself fails. A handler error does not end
// Run: the fd is unregistered and the error logged.
func (l *Loop) Run() error {
	const maxEvents = 64
	events := make([]unix.EpollEvent, maxEvents)

	for !l.closed {
		n, err := unix.EpollWait(l.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			reg, ok := l.regs[fd]
			if !ok {
				continue
			}
			if err := reg.handler(); err != nil {
				xlog.L.Warn("event loop handler failed, unregistering fd", "fd", fd, "err", err)
				l.Remove(fd)
			}
		}

		for _, f := range l.flushers {
			if err := f(); err != nil {
				xlog.L.Warn("event loop flush failed", "err", err)
			}
		}
	}
	return nil
}

// Stop breaks out of Run after the current iteration completes.
func (l *Loop) Stop() { l.closed = true }

// Close releases the epoll fd.
func (l *Loop) Close() error {
	return unix.Close(l.epfd)
}
