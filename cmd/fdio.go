package cmd

import "golang.org/x/sys/unix"

// fdWriteCloser adapts a raw fd (the write end of a data_source.send
// pipe) to io.WriteCloser so clipboard.Bridge's generic Transfer can
// stream into it like any other destination.
type fdWriteCloser struct {
	fd int
}

func (f fdWriteCloser) Write(p []byte) (int, error) {
	return unix.Write(f.fd, p)
}

func (f fdWriteCloser) Close() error {
	return unix.Close(f.fd)
}

func unixClose(fd int) {
	_ = unix.Close(fd)
}
