package hostclient

import (
	"io"

	"golang.org/x/sys/unix"
)

// pipe2 opens a CLOEXEC pipe for handing the write end to the host
// compositor over wl_data_offer.receive/wl_data_source.send (spec §4.6
// data transfer uses an anonymous pipe per the core wl_data_device
// protocol, the same pattern internal/wire uses for socket fd passing).
func pipe2() (r, w int, err error) {
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_CLOEXEC); err != nil {
		return 0, 0, err
	}
	return fds[0], fds[1], nil
}

func closeFD(fd int) {
	_ = unix.Close(fd)
}

// fdReadCloser adapts a raw fd to io.ReadCloser without pulling in
// os.File's extra bookkeeping, since the fd is already known-owned
// here.
type fdReadCloser struct {
	fd int
}

func (f fdReadCloser) Read(p []byte) (int, error) {
	n, err := unix.Read(f.fd, p)
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

func (f fdReadCloser) Close() error {
	return unix.Close(f.fd)
}
