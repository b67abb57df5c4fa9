package xwm

import "github.com/BurntSushi/xgb/xproto"

// wmHintsUrgency is WM_HINTS' UrgencyHint flag bit (ICCCM §4.1.2.4).
const wmHintsUrgency = 1 << 8

// getWMHintsUrgent reports WM_HINTS' urgency bit (spec §4.4 "WM_HINTS
// urgency ... propagated when representable"); handlePropertyNotify
// forwards a set bit to OnUrgencyHint for host-side attention.
func (w *WM) getWMHintsUrgent(win xproto.Window) bool {
	reply := w.getProperty(win, "WM_HINTS", xproto.AtomWmHints)
	if reply == nil || reply.ValueLen == 0 || len(reply.Value) < 4 {
		return false
	}
	flags := uint32(reply.Value[0]) | uint32(reply.Value[1])<<8 |
		uint32(reply.Value[2])<<16 | uint32(reply.Value[3])<<24
	return flags&wmHintsUrgency != 0
}

// getWMIcon reads _NET_WM_ICON's first CARDINAL-encoded ARGB image
// (width, height, then width*height packed pixels), best effort only;
// malformed or missing properties are silently ignored. Caching is
// done by cacheIcon.
func (w *WM) getWMIcon(win xproto.Window) (*wmIcon, bool) {
	reply := w.getProperty(win, "_NET_WM_ICON", xproto.AtomCardinal)
	if reply == nil || len(reply.Value) < 8 {
		return nil, false
	}
	v := reply.Value
	width := uint32(v[0]) | uint32(v[1])<<8 | uint32(v[2])<<16 | uint32(v[3])<<24
	height := uint32(v[4]) | uint32(v[5])<<8 | uint32(v[6])<<16 | uint32(v[7])<<24
	need := 8 + int(width)*int(height)*4
	if width == 0 || height == 0 || need > len(v) {
		return nil, false
	}
	pixels := append([]byte(nil), v[8:need]...)
	return &wmIcon{Width: width, Height: height, ARGB: pixels}, true
}

// wmIcon is one _NET_WM_ICON entry, premultiplied ARGB32 as the
// property encodes it.
type wmIcon struct {
	Width, Height uint32
	ARGB          []byte
}

// Icon returns the most recently cached _NET_WM_ICON for xid, if any.
func (w *WM) Icon(xid uint32) (*wmIcon, bool) {
	w.iconMu.Lock()
	defer w.iconMu.Unlock()
	icon, ok := w.icons[xid]
	return icon, ok
}

func (w *WM) cacheIcon(win xproto.Window) {
	icon, ok := w.getWMIcon(win)
	if !ok {
		return
	}
	w.iconMu.Lock()
	w.icons[uint32(win)] = icon
	w.iconMu.Unlock()
}
