package xwm

import "github.com/BurntSushi/xgb/xproto"

// supportedHints is the _NET_SUPPORTED roster this window manager
// claims (spec §4.4 "maintains EWMH/ICCCM"). _NET_CLIENT_LIST and the
// _NET_WM_STATE fullscreen/maximized entries are advertised here, but
// xwm neither writes _NET_CLIENT_LIST nor acts on those state atoms.
var supportedHints = []string{
	"_NET_SUPPORTED",
	"_NET_SUPPORTING_WM_CHECK",
	"_NET_WM_NAME",
	"_NET_WM_STATE",
	"_NET_WM_STATE_FULLSCREEN",
	"_NET_WM_STATE_MAXIMIZED_HORZ",
	"_NET_WM_STATE_MAXIMIZED_VERT",
	"_NET_WM_WINDOW_TYPE",
	"_NET_WM_WINDOW_TYPE_MENU",
	"_NET_WM_WINDOW_TYPE_DROPDOWN_MENU",
	"_NET_WM_WINDOW_TYPE_POPUP_MENU",
	"_NET_WM_WINDOW_TYPE_TOOLTIP",
	"_NET_WM_WINDOW_TYPE_COMBO",
	"_NET_WM_PID",
	"_NET_ACTIVE_WINDOW",
	"_NET_CLIENT_LIST",
}

// publishSupportedHints sets _NET_SUPPORTED and _NET_SUPPORTING_WM_CHECK
// on the root window, the way any EWMH-compliant window manager
// announces itself at startup.
func (w *WM) publishSupportedHints() error {
	atoms := make([]uint32, 0, len(supportedHints))
	for _, name := range supportedHints {
		atom, err := w.internAtom(name)
		if err != nil {
			return err
		}
		atoms = append(atoms, uint32(atom))
	}
	netSupported, err := w.internAtom("_NET_SUPPORTED")
	if err != nil {
		return err
	}
	if err := xproto.ChangePropertyChecked(w.conn, xproto.PropModeReplace, w.root,
		netSupported, xproto.AtomAtom, 32, uint32(len(atoms)), uint32sToBytes(atoms)).Check(); err != nil {
		return err
	}

	checkAtom, err := w.internAtom("_NET_SUPPORTING_WM_CHECK")
	if err != nil {
		return err
	}
	windowIDs := uint32sToBytes([]uint32{uint32(w.wmCheckWindow)})
	if err := xproto.ChangePropertyChecked(w.conn, xproto.PropModeReplace, w.root,
		checkAtom, xproto.AtomWindow, 32, 1, windowIDs).Check(); err != nil {
		return err
	}
	if err := xproto.ChangePropertyChecked(w.conn, xproto.PropModeReplace, w.wmCheckWindow,
		checkAtom, xproto.AtomWindow, 32, 1, windowIDs).Check(); err != nil {
		return err
	}

	netWMName, err := w.internAtom("_NET_WM_NAME")
	if err != nil {
		return err
	}
	name := "xwsatellite"
	return xproto.ChangePropertyChecked(w.conn, xproto.PropModeReplace, w.wmCheckWindow,
		netWMName, w.utf8StringAtom(), 8, uint32(len(name)), []byte(name)).Check()
}

func uint32sToBytes(vals []uint32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		buf[i*4+0] = byte(v)
		buf[i*4+1] = byte(v >> 8)
		buf[i*4+2] = byte(v >> 16)
		buf[i*4+3] = byte(v >> 24)
	}
	return buf
}

// SetActiveWindow publishes _NET_ACTIVE_WINDOW, called whenever focus
// changes hands (spec §4.4 stacking/focus).
func (w *WM) SetActiveWindow(xid uint32) error {
	atom, err := w.internAtom("_NET_ACTIVE_WINDOW")
	if err != nil {
		return err
	}
	return xproto.ChangePropertyChecked(w.conn, xproto.PropModeReplace, w.root,
		atom, xproto.AtomWindow, 32, 1, uint32sToBytes([]uint32{xid})).Check()
}
