package xwm

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bnema/xwsatellite/internal/geometry"
	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/bnema/xwsatellite/internal/xlog"
)

// popupWindowTypes are the _NET_WM_WINDOW_TYPE values spec §4.4
// classifies as popups regardless of transient-for.
var popupWindowTypes = map[string]bool{
	"_NET_WM_WINDOW_TYPE_MENU":     true,
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU": true,
	"_NET_WM_WINDOW_TYPE_POPUP_MENU":    true,
	"_NET_WM_WINDOW_TYPE_TOOLTIP": true,
	"_NET_WM_WINDOW_TYPE_COMBO":   true,
}

// handleMapRequest implements spec §4.4's map policy: read the
// classifying properties, decide toplevel vs. popup (promoting an
// orphan popup to toplevel), record the window, and ask the
// association engine (via the registry's window record) to proceed
// once a server surface arrives.
func (w *WM) handleMapRequest(e xproto.MapRequestEvent) {
	attrs, err := xproto.GetWindowAttributes(w.conn, e.Window).Reply()
	overrideRedirect := err == nil && attrs.OverrideRedirect

	geom, err := xproto.GetGeometry(w.conn, xproto.Drawable(e.Window)).Reply()
	var rect geometry.Rect
	if err == nil {
		rect = geometry.Rect{X: int32(geom.X), Y: int32(geom.Y), W: int32(geom.Width), H: int32(geom.Height)}
	}

	xwindow := &registry.XWindow{
		ID:               uint32(e.Window),
		Geometry:         rect,
		OverrideRedirect: overrideRedirect,
		WMClass:          w.getWMClass(e.Window),
		WMName:           w.getWMName(e.Window),
		WMProtocols:      w.getWMProtocols(e.Window),
		TransientFor:     w.getTransientFor(e.Window),
		WindowType:       w.getWindowType(e.Window),
		NetWMState:       w.getNetWMState(e.Window),
		PID:              w.getPID(e.Window),
		Mapped:           true,
	}
	xwindow.Kind = classify(xwindow)

	w.reg.PutWindow(xwindow)

	if err := xproto.MapWindowChecked(w.conn, e.Window).Check(); err != nil {
		xlog.L.Error("map_window failed", "window", e.Window, "err", err)
		return
	}

	xlog.L.Info("mapped X window", "id", e.Window, "kind", kindLabel(xwindow.Kind), "class", xwindow.WMClass)
	if w.OnWindowMapped != nil {
		w.OnWindowMapped(uint32(e.Window))
	}
}

// classify applies spec §4.4 step 2-3: override-redirect and
// popup-typed/transient windows are popups, unless the claimed
// transient parent isn't actually mapped as a toplevel, in which case
// the window is promoted to toplevel (the fallback rule) — that
// promotion is finished by the caller once the parent's state is known
// (assoc package), classify only records the provisional kind.
func classify(xw *registry.XWindow) registry.Kind {
	if xw.OverrideRedirect {
		return registry.KindOverrideRedirect
	}
	if popupWindowTypes[xw.WindowType] {
		return registry.KindPopup
	}
	if xw.TransientFor != 0 {
		return registry.KindPopup
	}
	return registry.KindToplevel
}

func kindLabel(k registry.Kind) string {
	switch k {
	case registry.KindToplevel:
		return "toplevel"
	case registry.KindPopup:
		return "popup"
	case registry.KindOverrideRedirect:
		return "override-redirect"
	default:
		return "unknown"
	}
}

// PromoteOrphanPopup implements spec §4.4 step 3: a popup whose
// transient-for ancestor chain has no mapped toplevel is promoted. The
// association engine calls this once it has resolved the ancestor
// chain through the registry.
func (w *WM) PromoteOrphanPopup(xid uint32) {
	xwindow, ok := w.reg.Window(xid)
	if !ok || xwindow.Kind != registry.KindPopup {
		return
	}
	xwindow.Kind = registry.KindToplevel
	w.reg.PutWindow(xwindow)
	xlog.L.Info("promoted orphan popup to toplevel", "id", xid)
}

// handleConfigureRequest honors geometry changes for popups and
// propagates size-only to the host for toplevels, ignoring requested
// position the host compositor owns (spec §4.4 "ConfigureRequest
// handling").
func (w *WM) handleConfigureRequest(e xproto.ConfigureRequestEvent) {
	xwindow, ok := w.reg.Window(uint32(e.Window))
	if !ok {
		// Unknown window (not yet mapped/tracked): honor verbatim so X
		// clients configuring before MapRequest aren't stuck.
		w.configureVerbatim(e)
		return
	}

	switch xwindow.Kind {
	case registry.KindPopup, registry.KindOverrideRedirect:
		w.configureVerbatim(e)
	case registry.KindToplevel:
		// Acknowledge the request at the window's current geometry (the
		// host compositor, not the X client, owns placement); size
		// changes are forwarded by the caller via the host role's
		// set_*_size hints once it knows the associated host surface.
		values := []uint32{uint32(xwindow.Geometry.X), uint32(xwindow.Geometry.Y),
			uint32(e.Width), uint32(e.Height), uint32(e.BorderWidth)}
		mask := xproto.ConfigWindowX | xproto.ConfigWindowY |
			xproto.ConfigWindowWidth | xproto.ConfigWindowHeight | xproto.ConfigWindowBorderWidth
		xproto.ConfigureWindow(w.conn, e.Window, uint16(mask), values)
		xwindow.Geometry.W = int32(e.Width)
		xwindow.Geometry.H = int32(e.Height)
		w.reg.PutWindow(xwindow)
		if w.OnToplevelResize != nil {
			w.OnToplevelResize(xwindow.ID, int32(e.Width), int32(e.Height))
		}
	}
}

func (w *WM) configureVerbatim(e xproto.ConfigureRequestEvent) {
	var values []uint32
	var mask uint16
	if e.ValueMask&xproto.ConfigWindowX != 0 {
		values = append(values, uint32(e.X))
		mask |= xproto.ConfigWindowX
	}
	if e.ValueMask&xproto.ConfigWindowY != 0 {
		values = append(values, uint32(e.Y))
		mask |= xproto.ConfigWindowY
	}
	if e.ValueMask&xproto.ConfigWindowWidth != 0 {
		values = append(values, uint32(e.Width))
		mask |= xproto.ConfigWindowWidth
	}
	if e.ValueMask&xproto.ConfigWindowHeight != 0 {
		values = append(values, uint32(e.Height))
		mask |= xproto.ConfigWindowHeight
	}
	if e.ValueMask&xproto.ConfigWindowBorderWidth != 0 {
		values = append(values, uint32(e.BorderWidth))
		mask |= xproto.ConfigWindowBorderWidth
	}
	if e.ValueMask&xproto.ConfigWindowStackMode != 0 {
		values = append(values, uint32(e.StackMode))
		mask |= xproto.ConfigWindowStackMode
	}
	xproto.ConfigureWindow(w.conn, e.Window, mask, values)
}

func (w *WM) handlePropertyNotify(e xproto.PropertyNotifyEvent) {
	xwindow, ok := w.reg.Window(uint32(e.Window))
	if !ok {
		return
	}
	name := w.atomName(e.Atom)
	switch name {
	case "WM_NAME", "_NET_WM_NAME":
		xwindow.WMName = w.getWMName(e.Window)
	case "WM_CLASS":
		xwindow.WMClass = w.getWMClass(e.Window)
	case "_NET_WM_STATE":
		xwindow.NetWMState = w.getNetWMState(e.Window)
	case "WM_TRANSIENT_FOR":
		xwindow.TransientFor = w.getTransientFor(e.Window)
	case "WL_SURFACE_SERIAL":
		if serial, ok := w.getSurfaceSerial(e.Window); ok && w.OnSurfaceSerialProperty != nil {
			w.OnSurfaceSerialProperty(uint32(e.Window), serial)
		}
	case "WM_HINTS":
		if w.getWMHintsUrgent(e.Window) && w.OnUrgencyHint != nil {
			w.OnUrgencyHint(uint32(e.Window))
		}
	case "_NET_WM_ICON":
		w.cacheIcon(e.Window)
	}
	w.reg.PutWindow(xwindow)
}

func (w *WM) handleUnmapNotify(e xproto.UnmapNotifyEvent) {
	if xwindow, ok := w.reg.Window(uint32(e.Window)); ok {
		xwindow.Mapped = false
		w.reg.PutWindow(xwindow)
	}
}

func (w *WM) handleDestroyNotify(e xproto.DestroyNotifyEvent) {
	w.reg.DestroyWindow(uint32(e.Window))
	w.iconMu.Lock()
	delete(w.icons, uint32(e.Window))
	w.iconMu.Unlock()
	if w.OnWindowDestroyed != nil {
		w.OnWindowDestroyed(uint32(e.Window))
	}
}
