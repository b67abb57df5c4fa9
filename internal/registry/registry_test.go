package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssociateLinksBothSides(t *testing.T) {
	r := New()
	r.PutWindow(&XWindow{ID: 1})
	r.PutSurface(&ServerSurface{ID: 100})

	r.Associate(Association{XWindow: 1, ServerSurface: 100, Role: KindToplevel})

	w, ok := r.Window(1)
	require.True(t, ok)
	assert.Equal(t, uint32(100), w.Surface)

	s, ok := r.Surface(100)
	require.True(t, ok)
	assert.Equal(t, uint32(1), s.XWindow)

	a, ok := r.AssociationByXID(1)
	require.True(t, ok)
	assert.Equal(t, uint32(100), a.ServerSurface)

	a2, ok := r.AssociationBySurface(100)
	require.True(t, ok)
	assert.Equal(t, uint32(1), a2.XWindow)
}

func TestDestroyWindowDetachesButPreservesSurface(t *testing.T) {
	r := New()
	r.PutWindow(&XWindow{ID: 1})
	r.PutSurface(&ServerSurface{ID: 100})
	r.Associate(Association{XWindow: 1, ServerSurface: 100})

	r.DestroyWindow(1)

	_, ok := r.Window(1)
	assert.False(t, ok)

	s, ok := r.Surface(100)
	require.True(t, ok, "surface side must survive the peer's destroy")
	assert.Equal(t, uint32(0), s.XWindow)

	_, ok = r.AssociationByXID(1)
	assert.False(t, ok)
	_, ok = r.AssociationBySurface(100)
	assert.False(t, ok)
}

func TestDestroySurfaceDetachesButPreservesWindow(t *testing.T) {
	r := New()
	r.PutWindow(&XWindow{ID: 1})
	r.PutSurface(&ServerSurface{ID: 100})
	r.Associate(Association{XWindow: 1, ServerSurface: 100})

	r.DestroySurface(100)

	w, ok := r.Window(1)
	require.True(t, ok)
	assert.Equal(t, uint32(0), w.Surface)
}

func TestPendingTablesEitherOrder(t *testing.T) {
	r := New()

	// Legacy half first, then surface side arrives.
	r.NotePendingLegacyXID(55, 7)
	xid, ok := r.TakePendingLegacyXID(55)
	require.True(t, ok)
	assert.Equal(t, uint32(7), xid)
	_, ok = r.TakePendingLegacyXID(55)
	assert.False(t, ok, "pending entry is consumed once")

	// Modern: serial registered on the X side before the Wayland
	// get_xwayland_surface request is seen.
	r.NotePendingSerialXID(0xabc, 9)
	r.NotePendingSerialSurface(0xabc, 200)
	gotXID, ok := r.TakePendingSerialXID(0xabc)
	require.True(t, ok)
	assert.Equal(t, uint32(9), gotXID)
	gotSurface, ok := r.TakePendingSerialSurface(0xabc)
	require.True(t, ok)
	assert.Equal(t, uint32(200), gotSurface)
}

func TestSelectionOwnerChangeBumpsGeneration(t *testing.T) {
	r := New()
	g1 := r.SetSelectionOwner(SelectionClipboard, OwnerX11, []string{"UTF8_STRING"})
	g2 := r.SetSelectionOwner(SelectionClipboard, OwnerWayland, []string{"text/plain;charset=utf-8"})
	assert.Less(t, g1, g2)

	sel := r.Selection(SelectionClipboard)
	assert.Equal(t, OwnerWayland, sel.Owner)
}
