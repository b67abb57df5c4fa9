package xwlserver

import (
	"testing"
	"time"

	"github.com/bnema/xwsatellite/internal/hostclient"
	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/bnema/xwsatellite/internal/wire"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// newTestServer accepts one in-process connection over a socketpair
// and drives its Dispatch loop in the background, the way the event
// loop would for a real Xwayland connection (spec §4.7), so tests can
// write requests and read replies synchronously.
func newTestServer(t *testing.T) (*Server, *Client, *wire.Conn) {
	t.Helper()
	reg := registry.New()
	s := New(reg, hostclient.New(reg, nil), nil)

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)

	serverSide := wire.NewConn(fds[0])
	xwaylandSide := wire.NewConn(fds[1])
	c := s.Accept(serverSide)

	go c.Dispatch()
	t.Cleanup(func() { xwaylandSide.Close() })

	return s, c, xwaylandSide
}

func TestDisplaySyncRepliesWithDone(t *testing.T) {
	_, _, xwayland := newTestServer(t)

	w := wire.NewWriter()
	w.Uint32(99)
	msg, _ := w.Finish(displayID, opcodeDisplaySync)
	require.NoError(t, xwayland.WriteMessage(msg, nil))

	h, _, _, err := xwayland.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, uint32(99), h.Sender)
	require.Equal(t, eventCallbackDone, h.Opcode)
}

func TestGetRegistryAdvertisesCompositor(t *testing.T) {
	_, _, xwayland := newTestServer(t)

	w := wire.NewWriter()
	w.Uint32(2) // new_id for wl_registry
	msg, _ := w.Finish(displayID, opcodeDisplayGetRegistry)
	require.NoError(t, xwayland.WriteMessage(msg, nil))

	syncW := wire.NewWriter()
	syncW.Uint32(99)
	syncMsg, _ := syncW.Finish(displayID, opcodeDisplaySync)
	require.NoError(t, xwayland.WriteMessage(syncMsg, nil))

	sawCompositor := false
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h, body, _, err := xwayland.ReadMessage()
		require.NoError(t, err)
		if h.Sender == 99 && h.Opcode == eventCallbackDone {
			break
		}
		if h.Opcode != eventRegistryGlobal {
			continue
		}
		r := wire.NewReader(body, nil)
		_, _ = r.Uint32()
		iface, _ := r.String()
		if iface == "wl_compositor" {
			sawCompositor = true
		}
	}
	require.True(t, sawCompositor)
}

func TestCreateSurfaceStartsInStateNew(t *testing.T) {
	s, _, xwayland := newTestServer(t)

	regW := wire.NewWriter()
	regW.Uint32(2)
	regMsg, _ := regW.Finish(displayID, opcodeDisplayGetRegistry)
	require.NoError(t, xwayland.WriteMessage(regMsg, nil))

	bindW := wire.NewWriter()
	bindW.Uint32(1).String("wl_compositor").Uint32(5).Uint32(10)
	bindMsg, _ := bindW.Finish(2, opcodeRegistryBind)
	require.NoError(t, xwayland.WriteMessage(bindMsg, nil))

	createW := wire.NewWriter()
	createW.Uint32(11)
	createMsg, _ := createW.Finish(10, opcodeCompositorCreateSurface)
	require.NoError(t, xwayland.WriteMessage(createMsg, nil))

	// Drain the registry-global events and the trailing sync's done
	// event, which together guarantee the create_surface request ahead
	// of the sync has already been handled (the dispatch loop processes
	// requests on this connection strictly in arrival order).
	syncW := wire.NewWriter()
	syncW.Uint32(77)
	syncMsg, _ := syncW.Finish(displayID, opcodeDisplaySync)
	require.NoError(t, xwayland.WriteMessage(syncMsg, nil))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h, _, _, err := xwayland.ReadMessage()
		require.NoError(t, err)
		if h.Sender == 77 && h.Opcode == eventCallbackDone {
			break
		}
	}

	surf, ok := s.reg.Surface(11)
	require.True(t, ok)
	require.Equal(t, registry.StateNew, surf.State)
}
