package eventloop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestAddFiresHandlerOnReadable(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})

	loop, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { loop.Close() })

	fired := make(chan struct{}, 1)
	require.NoError(t, loop.Add(fds[0], func() error {
		buf := make([]byte, 8)
		unix.Read(fds[0], buf)
		fired <- struct{}{}
		loop.Stop()
		return nil
	}))

	go func() { _ = loop.Run() }()

	_, err = unix.Write(fds[1], []byte("hi"))
	require.NoError(t, err)

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never fired")
	}
}

func TestRemoveStopsDelivery(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})

	loop, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { loop.Close() })

	calls := 0
	require.NoError(t, loop.Add(fds[0], func() error {
		calls++
		return nil
	}))
	loop.Remove(fds[0])

	require.NotContains(t, loop.regs, fds[0])
}

func TestAddFlusherRunsEveryIteration(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})

	loop, err := New()
	require.NoError(t, err)
	t.Cleanup(func() { loop.Close() })

	flushed := make(chan struct{}, 1)
	require.NoError(t, loop.Add(fds[0], func() error {
		buf := make([]byte, 8)
		unix.Read(fds[0], buf)
		return nil
	}))
	loop.AddFlusher(func() error {
		select {
		case flushed <- struct{}{}:
		default:
		}
		loop.Stop()
		return nil
	})

	go func() { _ = loop.Run() }()
	_, err = unix.Write(fds[1], []byte("x"))
	require.NoError(t, err)

	select {
	case <-flushed:
	case <-time.After(2 * time.Second):
		t.Fatal("flusher never ran")
	}
}
