package xwm

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bnema/xwsatellite/internal/xlog"
)

// RequestClose asks an X client to close, preferring the polite
// WM_DELETE_WINDOW protocol and falling back to a forced kill when the
// client never opted in (spec §4.2 "request_activation"'s sibling
// lifecycle op: the host's xdg_toplevel close event has to turn into
// something on the X side).
func (w *WM) RequestClose(xid uint32) {
	xwindow, ok := w.reg.Window(xid)
	if !ok {
		return
	}
	win := xproto.Window(xid)
	if xwindow.WMProtocols["WM_DELETE_WINDOW"] {
		wmProtocols, err := w.internAtom("WM_PROTOCOLS")
		if err != nil {
			return
		}
		deleteAtom, err := w.internAtom("WM_DELETE_WINDOW")
		if err != nil {
			return
		}
		cm := xproto.ClientMessageEvent{
			Format: 32,
			Window: win,
			Type:   wmProtocols,
			Data: xproto.ClientMessageDataUnion{
				Data32: [5]uint32{uint32(deleteAtom), uint32(xproto.TimeCurrentTime), 0, 0, 0},
			},
		}
		err = xproto.SendEventChecked(w.conn, false, win, xproto.EventMaskNoEvent, string(cm.Bytes())).Check()
		if err == nil {
			return
		}
		xlog.L.Warn("WM_DELETE_WINDOW delivery failed, killing client", "window", xid, "err", err)
	}
	xproto.KillClient(w.conn, uint32(win))
}
