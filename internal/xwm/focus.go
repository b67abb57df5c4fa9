package xwm

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bnema/xwsatellite/internal/xlog"
)

// handleEnterNotify raises the window under the pointer to the top of
// the X stack (spec §4.4 "Stacking").
func (w *WM) handleEnterNotify(e xproto.EnterNotifyEvent) {
	if _, ok := w.reg.Window(uint32(e.Event)); !ok {
		return
	}
	values := []uint32{uint32(xproto.StackModeAbove)}
	xproto.ConfigureWindow(w.conn, e.Event, xproto.ConfigWindowStackMode, values)
}

// PushFocus sends focus to xid, preferring WM_TAKE_FOCUS when the
// client advertises it and falling back to XSetInputFocus with
// RevertToPointerRoot otherwise (spec §4.4 "Focus on Wayland
// key-focus events is pushed to X via WM_TAKE_FOCUS when supported
// else by XSetInputFocus(RevertToPointerRoot)").
func (w *WM) PushFocus(xid uint32, timestamp xproto.Timestamp) {
	xwindow, ok := w.reg.Window(xid)
	if !ok {
		return
	}
	if xwindow.WMProtocols["WM_TAKE_FOCUS"] {
		if err := w.sendTakeFocus(xproto.Window(xid), timestamp); err == nil {
			_ = w.SetActiveWindow(xid)
			return
		}
	}
	err := xproto.SetInputFocusChecked(w.conn, xproto.InputFocusPointerRoot,
		xproto.Window(xid), timestamp).Check()
	if err != nil {
		xlog.L.Warn("set_input_focus failed", "window", xid, "err", err)
		return
	}
	_ = w.SetActiveWindow(xid)
}

func (w *WM) sendTakeFocus(win xproto.Window, timestamp xproto.Timestamp) error {
	wmProtocols, err := w.internAtom("WM_PROTOCOLS")
	if err != nil {
		return err
	}
	takeFocus, err := w.internAtom("WM_TAKE_FOCUS")
	if err != nil {
		return err
	}
	cm := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   wmProtocols,
		Data: xproto.ClientMessageDataUnion{
			Data32: [5]uint32{uint32(takeFocus), uint32(timestamp), 0, 0, 0},
		},
	}
	return xproto.SendEventChecked(w.conn, false, win, xproto.EventMaskNoEvent, string(cm.Bytes())).Check()
}

// handleClientMessage recognizes the legacy WL_SURFACE_ID association
// path (spec §4.5): Xwayland sends this ClientMessage to the X window
// once it has created the corresponding wl_surface.
func (w *WM) handleClientMessage(e xproto.ClientMessageEvent) {
	name := w.atomName(e.Type)
	if name != "WL_SURFACE_ID" {
		return
	}
	surfaceID := e.Data.Data32[0]
	if w.OnLegacyAssociation != nil {
		w.OnLegacyAssociation(surfaceID, uint32(e.Window))
	} else {
		w.reg.NotePendingLegacyXID(surfaceID, uint32(e.Window))
	}
}
