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

type fakeX struct {
	claimed   registry.SelectionName
	claimedMT []string
	released  bool
}

func (f *fakeX) ClaimSelection(name registry.SelectionName, mimeTypes []string) error {
	f.claimed = name
	f.claimedMT = mimeTypes
	return nil
}
func (f *fakeX) ReleaseSelection(name registry.SelectionName) { f.released = true }
func (f *fakeX) OpenXSelectionReader(name registry.SelectionName, atom string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("hello")), nil
}

type fakeWL struct {
	requested   registry.SelectionName
	requestedMT []string
}

func (f *fakeWL) RequestSelectionOffer(name registry.SelectionName, mimeTypes []string) error {
	f.requested = name
	f.requestedMT = mimeTypes
	return nil
}
func (f *fakeWL) OpenWaylandOfferReader(name registry.SelectionName, mime string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("hello")), nil
}

func TestBridgeWaylandOfferClaimsX(t *testing.T) {
	reg := registry.New()
	x := &fakeX{}
	wl := &fakeWL{}
	b := New(reg, x, wl, time.Second)

	require.NoError(t, b.OnWaylandOfferChanged(registry.SelectionClipboard, []string{"text/plain;charset=utf-8"}))
	assert.Equal(t, registry.SelectionClipboard, x.claimed)
	assert.Equal(t, registry.OwnerWayland, reg.Selection(registry.SelectionClipboard).Owner)
}

func TestBridgeXOwnerRequestsWaylandOffer(t *testing.T) {
	reg := registry.New()
	x := &fakeX{}
	wl := &fakeWL{}
	b := New(reg, x, wl, time.Second)

	require.NoError(t, b.OnXSelectionOwnerChanged(registry.SelectionPrimary, []string{"UTF8_STRING"}))
	assert.Equal(t, registry.SelectionPrimary, wl.requested)
	assert.Equal(t, registry.OwnerX11, reg.Selection(registry.SelectionPrimary).Owner)
}

type collectingWriteCloser struct {
	strings.Builder
}

func (c *collectingWriteCloser) Close() error { return nil }

func TestServeXRequestScenario3(t *testing.T) {
	reg := registry.New()
	x := &fakeX{}
	wl := &fakeWL{}
	b := New(reg, x, wl, time.Second)
	require.NoError(t, b.OnXSelectionOwnerChanged(registry.SelectionClipboard, []string{"UTF8_STRING"}))

	// Wayland client requests text/plain;charset=utf-8; bridge serves
	// from X side (scenario 3 of spec §8: 5 bytes "hello", no NUL).
	dst := &collectingWriteCloser{}
	b.ServeWaylandRequest(context.Background(), registry.SelectionClipboard, "text/plain;charset=utf-8", dst)
	assert.Equal(t, "hello", dst.String())
	assert.Len(t, dst.String(), 5)
}
