// Package xwm is the X11 window manager half of the bridge (spec §4.4):
// it owns the root window, claims the WM_Sn manager selection,
// classifies and positions mapped windows, tracks the ICCCM/EWMH
// properties the registry needs, and drives focus/stacking from both
// the X and host-compositor directions.
package xwm

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/bnema/xwsatellite/internal/xlog"
	"github.com/bnema/xwsatellite/internal/xwmerr"
	"golang.org/x/sys/unix"
)

// WM is the X11 window manager. It owns the xgb connection Xwayland's
// X server end accepted (spec §4.4); outside this package nobody talks
// to xgb directly.
type WM struct {
	conn *xgb.Conn
	root xproto.Window

	reg *registry.Registry

	atoms map[string]xproto.Atom

	wmCheckWindow   xproto.Window
	xsettingsWindow xproto.Window

	events    chan xgb.Event
	errs      chan xgb.Error
	wakeRead  int
	wakeWrite int

	clip *clipboardState

	iconMu sync.Mutex
	icons  map[uint32]*wmIcon

	// OnToplevelResize relays a toplevel's ConfigureRequest size to
	// the host role's xdg_toplevel via set_min_size/set_max_size hints;
	// wired by assoc.New (spec §4.4
	// "ConfigureRequest handling").
	OnToplevelResize func(xid uint32, w, h int32)

	// OnWindowMapped/OnWindowDestroyed let the association engine drive
	// host-surface creation and teardown off X11 map/destroy lifecycle
	// events without this package importing hostclient or assoc.
	OnWindowMapped    func(xid uint32)
	OnWindowDestroyed func(xid uint32)

	// OnSurfaceSerialProperty fires when Xwayland stamps WL_SURFACE_SERIAL
	// on an X window (spec §4.5's modern association path's X-side half).
	OnSurfaceSerialProperty func(xid uint32, serial uint64)

	// OnLegacyAssociation fires on the WL_SURFACE_ID ClientMessage (spec
	// §4.5's legacy association path's X-side half).
	OnLegacyAssociation func(surfaceID, xid uint32)

	// OnUrgencyHint fires when WM_HINTS' urgency bit is set on a window
	// (spec §4.4); wired by cmd/root.go to hostclient.Client.RequestActivation.
	OnUrgencyHint func(xid uint32)
}

// Connect opens the X11 connection to the Xwayland display number the
// satellite itself spawned (spec §4.4), selects SubstructureRedirect
// on the root window, and claims the WM_Sn manager selection. Fatal
// errors here (spec §4.6's startup-failure list) are wrapped in the
// xwmerr sentinels so main.go can decide to exit non-zero.
func Connect(displayName string, reg *registry.Registry) (*WM, error) {
	conn, err := xgb.NewConnDisplay(displayName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xwmerr.ErrCannotOpenDisplay, err)
	}

	setup := xproto.Setup(conn)
	screen := setup.DefaultScreen(conn)
	root := screen.Root

	w := &WM{conn: conn, root: root, reg: reg, atoms: make(map[string]xproto.Atom), clip: newClipboardState(), icons: make(map[uint32]*wmIcon)}

	mask := xproto.EventMaskSubstructureRedirect |
		xproto.EventMaskSubstructureNotify |
		xproto.EventMaskPropertyChange

	err = xproto.ChangeWindowAttributesChecked(conn, root, xproto.CwEventMask,
		[]uint32{uint32(mask)}).Check()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: another window manager is already running: %v", xwmerr.ErrCannotClaimWMSelection, err)
	}

	if err := w.claimWMSelection(screen.Root); err != nil {
		conn.Close()
		return nil, err
	}

	if err := w.publishSupportedHints(); err != nil {
		xlog.L.Warn("failed publishing EWMH hints", "err", err)
	}

	if err := w.startEventPump(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", xwmerr.ErrCannotOpenDisplay, err)
	}

	w.SetRootCursor()
	if err := w.claimXSettings(); err != nil {
		xlog.L.Warn("xsettings ownership not claimed", "err", err)
	}

	xlog.L.Info("xwm connected", "display", displayName, "root", root)
	return w, nil
}

// startEventPump runs xgb's blocking WaitForEvent in a goroutine (xgb
// has no raw fd to hand the epoll-based event loop) and wakes a
// self-pipe whose read end the event loop does add to its poll set,
// the conventional way to fold a channel-oriented source into a single
// epoll wait (spec §4.7: "drain/dispatch/flush" still applies, it just
// drains this channel instead of reading the socket directly).
func (w *WM) startEventPump() error {
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return err
	}
	w.wakeRead, w.wakeWrite = fds[0], fds[1]
	w.events = make(chan xgb.Event, 64)
	w.errs = make(chan xgb.Error, 16)

	go func() {
		for {
			ev, xerr := w.conn.WaitForEvent()
			if ev == nil && xerr == nil {
				close(w.events)
				return
			}
			if ev != nil {
				w.events <- ev
			}
			if xerr != nil {
				w.errs <- xerr
			}
			unix.Write(w.wakeWrite, []byte{0})
		}
	}()
	return nil
}

// WakeFD is the self-pipe read end the event loop polls; readability
// means Drain has buffered events worth dispatching.
func (w *WM) WakeFD() int { return w.wakeRead }

// claimWMSelection implements the ICCCM WM_Sn manager-selection
// protocol: create a withdrawn check window, set it as the selection
// owner, and announce the takeover with a MANAGER ClientMessage on the
// root window (spec §4.6 "Cannot claim the WM_Sn selection").
func (w *WM) claimWMSelection(root xproto.Window) error {
	screenNum := 0 // single X screen per satellite instance (spec §4.3)
	selAtomName := fmt.Sprintf("WM_S%d", screenNum)
	selAtom, err := w.internAtom(selAtomName)
	if err != nil {
		return fmt.Errorf("%w: %v", xwmerr.ErrCannotClaimWMSelection, err)
	}

	checkWin, err := xproto.NewWindowId(w.conn)
	if err != nil {
		return fmt.Errorf("%w: %v", xwmerr.ErrCannotClaimWMSelection, err)
	}
	err = xproto.CreateWindowChecked(w.conn, xproto.WindowClassCopyFromParent, checkWin, root,
		-1, -1, 1, 1, 0, xproto.WindowClassInputOutput, 0, 0, nil).Check()
	if err != nil {
		return fmt.Errorf("%w: %v", xwmerr.ErrCannotClaimWMSelection, err)
	}
	w.wmCheckWindow = checkWin

	err = xproto.SetSelectionOwnerChecked(w.conn, checkWin, selAtom, xproto.TimeCurrentTime).Check()
	if err != nil {
		return fmt.Errorf("%w: %v", xwmerr.ErrCannotClaimWMSelection, err)
	}

	managerAtom, err := w.internAtom("MANAGER")
	if err != nil {
		return fmt.Errorf("%w: %v", xwmerr.ErrCannotClaimWMSelection, err)
	}
	cm := xproto.ClientMessageEvent{
		Format: 32,
		Window: root,
		Type:   managerAtom,
		Data: xproto.ClientMessageDataUnion{
			Data32: [5]uint32{uint32(xproto.TimeCurrentTime), uint32(selAtom), uint32(checkWin), 0, 0},
		},
	}
	xproto.SendEvent(w.conn, false, root, xproto.EventMaskStructureNotify, string(cm.Bytes()))
	return nil
}

func (w *WM) internAtom(name string) (xproto.Atom, error) {
	if a, ok := w.atoms[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(w.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	w.atoms[name] = reply.Atom
	return reply.Atom, nil
}

// Close tears down the X11 connection and stops the event-forwarding
// goroutine started by startEventPump.
func (w *WM) Close() {
	if w.wmCheckWindow != 0 {
		xproto.DestroyWindow(w.conn, w.wmCheckWindow)
	}
	if w.xsettingsWindow != 0 {
		xproto.DestroyWindow(w.conn, w.xsettingsWindow)
	}
	w.conn.Close()
	if w.wakeWrite != 0 {
		unix.Close(w.wakeWrite)
	}
}

// Root returns the X11 root window id.
func (w *WM) Root() xproto.Window { return w.root }

// Registry exposes the shared registry for sibling packages (assoc,
// eventloop) wiring this WM into the rest of the bridge.
func (w *WM) Registry() *registry.Registry { return w.reg }
