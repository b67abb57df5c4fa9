package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func socketPair(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	return NewConn(fds[0]), NewConn(fds[1])
}

func TestConnWriteReadMessage(t *testing.T) {
	a, b := socketPair(t)
	defer a.Close()
	defer b.Close()

	w := NewWriter()
	w.Uint32(99).String("ping")
	msg, fds := w.Finish(3, 1)

	require.NoError(t, a.WriteMessage(msg, fds))

	h, body, gotFDs, err := b.ReadMessage()
	require.NoError(t, err)
	require.Empty(t, gotFDs)
	require.Equal(t, uint32(3), h.Sender)
	require.Equal(t, uint16(1), h.Opcode)

	r := NewReader(body, nil)
	u, err := r.Uint32()
	require.NoError(t, err)
	require.Equal(t, uint32(99), u)
}

func TestConnPassesFD(t *testing.T) {
	a, b := socketPair(t)
	defer a.Close()
	defer b.Close()

	pr, pw, err := unixPipe(t)
	require.NoError(t, err)
	defer unix.Close(pr)
	defer unix.Close(pw)

	w := NewWriter()
	w.FD(pr)
	msg, fds := w.Finish(1, 0)
	require.NoError(t, a.WriteMessage(msg, fds))

	_, _, gotFDs, err := b.ReadMessage()
	require.NoError(t, err)
	require.Len(t, gotFDs, 1)
	unix.Close(gotFDs[0])
}

func unixPipe(t *testing.T) (int, int, error) {
	t.Helper()
	fds := make([]int, 2)
	err := unix.Pipe(fds)
	return fds[0], fds[1], err
}
