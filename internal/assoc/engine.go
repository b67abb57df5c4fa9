// Package assoc implements the surface-association engine (spec §4.5):
// it matches the legacy WL_SURFACE_ID and modern xwayland_shell_v1
// association paths, enforces the ordering invariant that a host role
// is never installed before the X window is mapped, and drives host
// surface/role creation once both halves of an association are known.
package assoc

import (
	"sync"

	"github.com/bnema/xwsatellite/internal/hostclient"
	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/bnema/xwsatellite/internal/xlog"
	"github.com/bnema/xwsatellite/internal/xwlserver"
	"github.com/bnema/xwsatellite/internal/xwm"
)

// Engine owns no wire state of its own beyond what the registry
// already tracks; it's the policy layer sitting on top of the pending
// tables, wired to the WM and server via callback fields rather than
// an event bus (matching the rest of this codebase's style).
type Engine struct {
	reg  *registry.Registry
	wm   *xwm.WM
	host *hostclient.Client

	mu sync.Mutex
	// readySurfaceByXID holds a matched-but-not-yet-mapped association:
	// both association halves agreed on a server surface for this xid,
	// but the X window hasn't been through MapRequest yet (spec §4.5
	// "role-install never before X-window mapped").
	readySurfaceByXID map[uint32]uint32

	// hostSurfaceByXID remembers the host surface id a live association
	// installed, since by the time OnWindowDestroyed fires the registry
	// has already unlinked the Association (spec §4.1 teardown order).
	hostSurfaceByXID map[uint32]uint32
}

// New creates the engine and wires it into wm and server's callback
// hooks; call this once, after all three are constructed, from
// cmd/root.go.
func New(reg *registry.Registry, wm *xwm.WM, server *xwlserver.Server, host *hostclient.Client) *Engine {
	e := &Engine{
		reg:               reg,
		wm:                wm,
		host:              host,
		readySurfaceByXID: make(map[uint32]uint32),
		hostSurfaceByXID:  make(map[uint32]uint32),
	}

	wm.OnLegacyAssociation = e.onLegacyAssociation
	wm.OnSurfaceSerialProperty = e.onSurfaceSerialProperty
	wm.OnWindowMapped = e.onWindowMapped
	wm.OnWindowDestroyed = e.onWindowDestroyed
	wm.OnToplevelResize = e.onToplevelResize

	server.OnSurfaceCreated = e.onSurfaceCreated
	server.OnSerialSurface = e.onSerialSurface

	return e
}

// onLegacyAssociation is the X-side half of the legacy path: Xwayland
// sent WL_SURFACE_ID(surfaceID) to the window it mapped.
func (e *Engine) onLegacyAssociation(surfaceID, xid uint32) {
	if surf, ok := e.reg.Surface(surfaceID); ok {
		e.associate(xid, surf)
		return
	}
	e.reg.NotePendingLegacyXID(surfaceID, xid)
}

// onSurfaceCreated is the Wayland-side half of the legacy path: the
// server just created surfaceID; check if an X window already claimed
// it.
func (e *Engine) onSurfaceCreated(surfaceID uint32) {
	xid, ok := e.reg.TakePendingLegacyXID(surfaceID)
	if !ok {
		return
	}
	surf, ok := e.reg.Surface(surfaceID)
	if !ok {
		return
	}
	e.associate(xid, surf)
}

// onSurfaceSerialProperty is the X-side half of the modern path:
// Xwayland stamped WL_SURFACE_SERIAL(serial) on xid.
func (e *Engine) onSurfaceSerialProperty(xid uint32, serial uint64) {
	if surfaceID, ok := e.reg.TakePendingSerialSurface(serial); ok {
		if surf, ok := e.reg.Surface(surfaceID); ok {
			e.associate(xid, surf)
			return
		}
	}
	e.reg.NotePendingSerialXID(serial, xid)
}

// onSerialSurface is the Wayland-side half of the modern path:
// xwayland_shell_v1.get_xwayland_surface(surface, serial) arrived.
func (e *Engine) onSerialSurface(serial uint64, surfaceID uint32) {
	if xid, ok := e.reg.TakePendingSerialXID(serial); ok {
		if surf, ok := e.reg.Surface(surfaceID); ok {
			e.associate(xid, surf)
			return
		}
	}
	e.reg.NotePendingSerialSurface(serial, surfaceID)
}

// associate has matched both halves; it still has to wait for the X
// window to be mapped before a host role can be installed (spec §4.5
// ordering invariant), since classify() only runs at MapRequest time.
func (e *Engine) associate(xid uint32, surf *registry.ServerSurface) {
	xwindow, ok := e.reg.Window(xid)
	if ok && xwindow.Mapped {
		e.finishAssociation(xwindow, surf)
		return
	}
	e.mu.Lock()
	e.readySurfaceByXID[xid] = surf.ID
	e.mu.Unlock()
}

// onWindowMapped drains a ready-but-unmapped association now that the
// window exists and classify() has run.
func (e *Engine) onWindowMapped(xid uint32) {
	e.mu.Lock()
	surfaceID, ok := e.readySurfaceByXID[xid]
	if ok {
		delete(e.readySurfaceByXID, xid)
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	xwindow, ok := e.reg.Window(xid)
	if !ok {
		return
	}
	surf, ok := e.reg.Surface(surfaceID)
	if !ok {
		return
	}
	e.finishAssociation(xwindow, surf)
}

// finishAssociation implements spec §4.4 step 3's orphan-popup
// fallback, records the Association, and installs the host role.
func (e *Engine) finishAssociation(xwindow *registry.XWindow, surf *registry.ServerSurface) {
	if xwindow.Kind == registry.KindPopup && e.isOrphanPopup(xwindow) {
		e.wm.PromoteOrphanPopup(xwindow.ID)
		xwindow.Kind = registry.KindToplevel
	}

	e.reg.Associate(registry.Association{
		XWindow:       xwindow.ID,
		ServerSurface: surf.ID,
		Role:          xwindow.Kind,
	})

	hostID, err := e.host.CreateHostSurface()
	if err != nil {
		xlog.L.Error("create_host_surface failed", "xid", xwindow.ID, "err", err)
		return
	}
	surf.HostSurface = hostID
	surf.Role = xwindow.Kind
	e.reg.PutSurface(surf)

	e.mu.Lock()
	e.hostSurfaceByXID[xwindow.ID] = hostID
	e.mu.Unlock()

	switch xwindow.Kind {
	case registry.KindToplevel:
		e.installToplevel(xwindow, hostID)
	case registry.KindPopup, registry.KindOverrideRedirect:
		e.installPopup(xwindow, hostID)
	}
}

// isOrphanPopup walks the WM_TRANSIENT_FOR chain looking for a mapped
// toplevel ancestor; a popup with no such ancestor (or whose chain
// loops/terminates in an unmapped window) is promoted (spec §4.4 step
// 3).
func (e *Engine) isOrphanPopup(xwindow *registry.XWindow) bool {
	if xwindow.TransientFor == 0 {
		return true
	}
	seen := make(map[uint32]bool)
	cur := xwindow.TransientFor
	for cur != 0 && !seen[cur] {
		seen[cur] = true
		parent, ok := e.reg.Window(cur)
		if !ok {
			return true
		}
		if parent.Kind == registry.KindToplevel && parent.Mapped {
			return false
		}
		cur = parent.TransientFor
	}
	return true
}

func (e *Engine) installToplevel(xwindow *registry.XWindow, hostID uint32) {
	var parentHost *uint32
	if xwindow.TransientFor != 0 {
		if passoc, ok := e.reg.AssociationByXID(xwindow.TransientFor); ok {
			if psurf, ok := e.reg.Surface(passoc.ServerSurface); ok && psurf.HostSurface != 0 {
				id := psurf.HostSurface
				parentHost = &id
			}
		}
	}

	xid := xwindow.ID
	err := e.host.InstallToplevel(hostID, xwindow.WMName, xwindow.WMClass, parentHost, hostclient.ToplevelCallbacks{
		OnConfigure: func(width, height int32, states []uint32) {
			// Host-driven resize isn't propagated back to X in this
			// direction; spec §4.4 has X ConfigureRequest drive host
			// size, not the reverse, so this is advisory only for now.
		},
		OnClose: func() {
			e.wm.RequestClose(xid)
		},
	})
	if err != nil {
		xlog.L.Error("install_toplevel failed", "xid", xid, "err", err)
	}
}

func (e *Engine) installPopup(xwindow *registry.XWindow, hostID uint32) {
	parentXID := xwindow.TransientFor
	var parentHostID uint32
	if parentXID != 0 {
		if passoc, ok := e.reg.AssociationByXID(parentXID); ok {
			if psurf, ok := e.reg.Surface(passoc.ServerSurface); ok {
				parentHostID = psurf.HostSurface
			}
		}
	}
	if parentHostID == 0 {
		xlog.L.Warn("popup has no associated host parent surface, skipping role install", "xid", xwindow.ID)
		return
	}

	var parentGeom struct{ X, Y int32 }
	if parent, ok := e.reg.Window(parentXID); ok {
		parentGeom.X, parentGeom.Y = parent.Geometry.X, parent.Geometry.Y
	}
	anchorX := xwindow.Geometry.X - parentGeom.X
	anchorY := xwindow.Geometry.Y - parentGeom.Y

	xid := xwindow.ID
	err := e.host.InstallPopup(hostID, parentHostID, anchorX, anchorY, xwindow.Geometry.W, xwindow.Geometry.H, 0, 0, hostclient.PopupCallbacks{
		OnDismiss: func() {
			e.wm.RequestClose(xid)
		},
	})
	if err != nil {
		xlog.L.Error("install_popup failed", "xid", xid, "err", err)
	}
}

// onToplevelResize relays an X ConfigureRequest's size to the host
// toplevel via set_*_size hints (spec §4.4).
func (e *Engine) onToplevelResize(xid uint32, w, h int32) {
	assoc, ok := e.reg.AssociationByXID(xid)
	if !ok {
		return
	}
	surf, ok := e.reg.Surface(assoc.ServerSurface)
	if !ok || surf.HostSurface == 0 {
		return
	}
	if err := e.host.SetToplevelSizeHint(surf.HostSurface, w, h); err != nil {
		xlog.L.Debug("set_toplevel_size_hint failed", "xid", xid, "err", err)
	}
}

// onWindowDestroyed tears down the host-side surface once the X
// window (and, by then, the registry's Association) is gone (spec
// §4.1 lifecycle).
func (e *Engine) onWindowDestroyed(xid uint32) {
	e.mu.Lock()
	delete(e.readySurfaceByXID, xid)
	hostID, ok := e.hostSurfaceByXID[xid]
	if ok {
		delete(e.hostSurfaceByXID, xid)
	}
	e.mu.Unlock()
	if ok {
		e.host.DestroyHostSurface(hostID)
	}
}
