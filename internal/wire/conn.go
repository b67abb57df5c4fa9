package wire

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Conn is one accepted Xwayland-facing connection: a unix socket plus
// the SCM_RIGHTS bookkeeping Wayland's wire format requires for
// fd-carrying arguments (spec §4.3: shm/dmabuf/keymap fds).
type Conn struct {
	fd int

	readBuf    []byte
	readFill   int
	pendingFDs []int
}

// NewConn wraps an already-connected/accepted unix socket fd.
func NewConn(fd int) *Conn {
	return &Conn{fd: fd, readBuf: make([]byte, 1<<16)}
}

// ListenAt creates and listens on a Wayland-style unix socket at path,
// used for the Xwayland-server role (spec §4.3) when no pre-opened
// -listenfd was supplied on the command line.
func ListenAt(path string) (int, error) {
	_ = os.Remove(path)
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}
	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("bind %s: %w", path, err)
	}
	if err := unix.Listen(fd, 16); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("listen %s: %w", path, err)
	}
	return fd, nil
}

// Accept accepts one connection on a listening socket fd.
func Accept(listenFD int) (*Conn, error) {
	nfd, _, err := unix.Accept(listenFD)
	if err != nil {
		return nil, fmt.Errorf("accept: %w", err)
	}
	return NewConn(nfd), nil
}

// FD exposes the raw fd for the event loop's poll set.
func (c *Conn) FD() int { return c.fd }

// WriteMessage sends a fully framed message, passing any fds via
// SCM_RIGHTS alongside the final byte of the message the way
// libwayland does (spec §4.3).
func (c *Conn) WriteMessage(msg []byte, fds []int) error {
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	n, _, err := unix.SendmsgN(c.fd, msg, oob, nil, 0)
	if err != nil {
		return fmt.Errorf("sendmsg: %w", err)
	}
	if n != len(msg) {
		return fmt.Errorf("sendmsg: short write %d/%d", n, len(msg))
	}
	return nil
}

// ReadMessage reads one complete message (header + body) plus any fds
// that arrived alongside it, buffering partial reads across calls.
func (c *Conn) ReadMessage() (Header, []byte, []int, error) {
	for c.readFill < HeaderLen {
		if err := c.fill(); err != nil {
			return Header{}, nil, nil, err
		}
	}
	h := UnmarshalHeader(c.readBuf[:HeaderLen])
	for c.readFill < int(h.Size) {
		if err := c.fill(); err != nil {
			return Header{}, nil, nil, err
		}
	}

	body := append([]byte(nil), c.readBuf[HeaderLen:h.Size]...)
	fds := c.pendingFDs
	c.pendingFDs = nil

	copy(c.readBuf, c.readBuf[h.Size:c.readFill])
	c.readFill -= int(h.Size)

	return h, body, fds, nil
}

// fill performs one Recvmsg call, growing readFill and collecting any
// SCM_RIGHTS fds into pendingFDs.
func (c *Conn) fill() error {
	oob := make([]byte, unix.CmsgSpace(16*4))
	n, oobn, _, _, err := unix.Recvmsg(c.fd, c.readBuf[c.readFill:], oob, 0)
	if err != nil {
		return fmt.Errorf("recvmsg: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("recvmsg: connection closed")
	}
	c.readFill += n

	if oobn > 0 {
		cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err == nil {
			for _, cmsg := range cmsgs {
				fds, err := unix.ParseUnixRights(&cmsg)
				if err == nil {
					c.pendingFDs = append(c.pendingFDs, fds...)
				}
			}
		}
	}
	return nil
}

// Close closes the underlying socket.
func (c *Conn) Close() error { return unix.Close(c.fd) }
