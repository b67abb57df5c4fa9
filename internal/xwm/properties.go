package xwm

import (
	"strings"

	"github.com/BurntSushi/xgb/xproto"
)

// getProperty is the shared GetProperty helper used by the typed
// accessors below; it never errors out to callers since a missing
// property is a normal, expected case for most of these (spec §4.4
// reads WM_CLASS/WM_NAME/etc. opportunistically).
func (w *WM) getProperty(win xproto.Window, atomName string, propType uint32) *xproto.GetPropertyReply {
	atom, err := w.internAtom(atomName)
	if err != nil {
		return nil
	}
	reply, err := xproto.GetProperty(w.conn, false, win, atom, propType, 0, (1<<32)-1).Reply()
	if err != nil {
		return nil
	}
	return reply
}

func (w *WM) atomName(atom xproto.Atom) string {
	reply, err := xproto.GetAtomName(w.conn, atom).Reply()
	if err != nil {
		return ""
	}
	return reply.Name
}

// getWMClass reads WM_CLASS's second (class) component, used as the
// host xdg_toplevel app_id (spec §4.4).
func (w *WM) getWMClass(win xproto.Window) string {
	reply := w.getProperty(win, "WM_CLASS", xproto.AtomString)
	if reply == nil || reply.ValueLen == 0 {
		return ""
	}
	parts := strings.Split(string(reply.Value), "\x00")
	if len(parts) >= 2 && parts[1] != "" {
		return parts[1]
	}
	if len(parts) >= 1 {
		return parts[0]
	}
	return ""
}

// getSurfaceSerial reads WL_SURFACE_SERIAL, the property Xwayland
// stamps on the X window carrying the xwayland_shell_v1 serial that
// matches it to a server surface (spec §4.5 modern association path).
func (w *WM) getSurfaceSerial(win xproto.Window) (uint64, bool) {
	reply := w.getProperty(win, "WL_SURFACE_SERIAL", xproto.AtomCardinal)
	if reply == nil || reply.ValueLen == 0 {
		return 0, false
	}
	v := reply.Value
	switch {
	case len(v) >= 8:
		lo := uint64(v[0]) | uint64(v[1])<<8 | uint64(v[2])<<16 | uint64(v[3])<<24
		hi := uint64(v[4]) | uint64(v[5])<<8 | uint64(v[6])<<16 | uint64(v[7])<<24
		return lo | hi<<32, true
	case len(v) >= 4:
		return uint64(v[0]) | uint64(v[1])<<8 | uint64(v[2])<<16 | uint64(v[3])<<24, true
	default:
		return 0, false
	}
}

// getWMName prefers _NET_WM_NAME (UTF8_STRING) over legacy WM_NAME.
func (w *WM) getWMName(win xproto.Window) string {
	if reply := w.getProperty(win, "_NET_WM_NAME", w.utf8StringAtom()); reply != nil && reply.ValueLen > 0 {
		return string(reply.Value)
	}
	if reply := w.getProperty(win, "WM_NAME", xproto.AtomString); reply != nil && reply.ValueLen > 0 {
		return string(reply.Value)
	}
	return ""
}

func (w *WM) utf8StringAtom() uint32 {
	atom, err := w.internAtom("UTF8_STRING")
	if err != nil {
		return uint32(xproto.AtomString)
	}
	return uint32(atom)
}

func (w *WM) getWMProtocols(win xproto.Window) map[string]bool {
	reply := w.getProperty(win, "WM_PROTOCOLS", uint32(xproto.AtomAtom))
	protocols := make(map[string]bool)
	if reply == nil {
		return protocols
	}
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		atom := xproto.Atom(uint32(reply.Value[i]) | uint32(reply.Value[i+1])<<8 |
			uint32(reply.Value[i+2])<<16 | uint32(reply.Value[i+3])<<24)
		protocols[w.atomName(atom)] = true
	}
	return protocols
}

func (w *WM) getTransientFor(win xproto.Window) uint32 {
	reply := w.getProperty(win, "WM_TRANSIENT_FOR", uint32(xproto.AtomWindow))
	if reply == nil || len(reply.Value) < 4 {
		return 0
	}
	return uint32(reply.Value[0]) | uint32(reply.Value[1])<<8 |
		uint32(reply.Value[2])<<16 | uint32(reply.Value[3])<<24
}

func (w *WM) getWindowType(win xproto.Window) string {
	reply := w.getProperty(win, "_NET_WM_WINDOW_TYPE", uint32(xproto.AtomAtom))
	if reply == nil || len(reply.Value) < 4 {
		return ""
	}
	atom := xproto.Atom(uint32(reply.Value[0]) | uint32(reply.Value[1])<<8 |
		uint32(reply.Value[2])<<16 | uint32(reply.Value[3])<<24)
	return w.atomName(atom)
}

func (w *WM) getNetWMState(win xproto.Window) map[string]bool {
	reply := w.getProperty(win, "_NET_WM_STATE", uint32(xproto.AtomAtom))
	states := make(map[string]bool)
	if reply == nil {
		return states
	}
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		atom := xproto.Atom(uint32(reply.Value[i]) | uint32(reply.Value[i+1])<<8 |
			uint32(reply.Value[i+2])<<16 | uint32(reply.Value[i+3])<<24)
		states[w.atomName(atom)] = true
	}
	return states
}

func (w *WM) getPID(win xproto.Window) uint32 {
	reply := w.getProperty(win, "_NET_WM_PID", uint32(xproto.AtomCardinal))
	if reply == nil || len(reply.Value) < 4 {
		return 0
	}
	return uint32(reply.Value[0]) | uint32(reply.Value[1])<<8 |
		uint32(reply.Value[2])<<16 | uint32(reply.Value[3])<<24
}
