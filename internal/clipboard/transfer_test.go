package clipboard

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCloser struct{ io.Reader }

func (nopCloser) Close() error { return nil }

type bufWriteCloser struct {
	strings.Builder
	closed bool
}

func (b *bufWriteCloser) Close() error { b.closed = true; return nil }

func TestTransferRoundTripsBytes(t *testing.T) {
	reg := registry.New()
	gen := reg.SetSelectionOwner(registry.SelectionClipboard, registry.OwnerX11, []string{"UTF8_STRING"})

	open := func(mime string) (io.ReadCloser, error) {
		return nopCloser{strings.NewReader("hello")}, nil
	}
	dst := &bufWriteCloser{}

	Transfer(context.Background(), reg, registry.SelectionClipboard, gen, "text/plain;charset=utf-8", open, dst, time.Second)

	assert.Equal(t, "hello", dst.String())
	assert.True(t, dst.closed)
}

func TestTransferAbortsOnOwnerChange(t *testing.T) {
	reg := registry.New()
	gen := reg.SetSelectionOwner(registry.SelectionClipboard, registry.OwnerX11, nil)

	pr, pw := io.Pipe()
	open := func(mime string) (io.ReadCloser, error) { return pr, nil }
	dst := &bufWriteCloser{}

	done := make(chan struct{})
	go func() {
		Transfer(context.Background(), reg, registry.SelectionClipboard, gen, "UTF8_STRING", open, dst, 5*time.Second)
		close(done)
	}()

	pw.Write([]byte("partial"))
	reg.SetSelectionOwner(registry.SelectionClipboard, registry.OwnerWayland, nil)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("transfer did not abort after owner change")
	}
	require.True(t, dst.closed)
}

func TestTransferTimesOut(t *testing.T) {
	reg := registry.New()
	gen := reg.SetSelectionOwner(registry.SelectionClipboard, registry.OwnerX11, nil)

	pr, _ := io.Pipe() // never written to, never closed
	open := func(mime string) (io.ReadCloser, error) { return pr, nil }
	dst := &bufWriteCloser{}

	start := time.Now()
	Transfer(context.Background(), reg, registry.SelectionClipboard, gen, "UTF8_STRING", open, dst, 50*time.Millisecond)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, dst.closed)
}
