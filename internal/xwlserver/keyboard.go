package xwlserver

import (
	"github.com/bnema/xwsatellite/internal/wire"
)

const (
	eventKeyboardKeymap    uint16 = 0
	eventKeyboardEnter     uint16 = 1
	eventKeyboardLeave     uint16 = 2
	eventKeyboardKey       uint16 = 3
	eventKeyboardModifiers uint16 = 4

	keyboardKeymapFormatXKBv1 uint32 = 1
)

// EmitKeyboardKeymap forwards the host-captured XKB keymap fd to
// Xwayland the first time its wl_keyboard is bound (spec §4.3 input
// routing: the intercepted keyboard needs the same keymap the host
// compositor handed its own client, not a synthesized one).
func (c *Client) EmitKeyboardKeymap(keyboardObjectID uint32, fd int, size uint32) error {
	w := wire.NewWriter()
	w.Uint32(keyboardKeymapFormatXKBv1).FD(fd).Uint32(size)
	msg, fds := w.Finish(keyboardObjectID, eventKeyboardKeymap)
	return c.SendEvent(msg, fds)
}

// EmitKeyboardEnter announces keyboard focus entering serverSurfaceID.
func (c *Client) EmitKeyboardEnter(keyboardObjectID, serial, serverSurfaceID uint32) error {
	w := wire.NewWriter()
	w.Uint32(serial).Uint32(serverSurfaceID).Array(nil)
	msg, _ := w.Finish(keyboardObjectID, eventKeyboardEnter)
	return c.SendEvent(msg, nil)
}

func (c *Client) EmitKeyboardLeave(keyboardObjectID, serial, serverSurfaceID uint32) error {
	w := wire.NewWriter()
	w.Uint32(serial).Uint32(serverSurfaceID)
	msg, _ := w.Finish(keyboardObjectID, eventKeyboardLeave)
	return c.SendEvent(msg, nil)
}

// EmitKeyboardKey forwards one key press/release. key is the evdev
// keycode the host wl_keyboard reported (already offset -8 from the
// X11 keycode convention, matching wl_keyboard's own wire format).
func (c *Client) EmitKeyboardKey(keyboardObjectID, serial, time, key, state uint32) error {
	w := wire.NewWriter()
	w.Uint32(serial).Uint32(time).Uint32(key).Uint32(state)
	msg, _ := w.Finish(keyboardObjectID, eventKeyboardKey)
	return c.SendEvent(msg, nil)
}

func (c *Client) EmitKeyboardModifiers(keyboardObjectID, serial, depressed, latched, locked, group uint32) error {
	w := wire.NewWriter()
	w.Uint32(serial).Uint32(depressed).Uint32(latched).Uint32(locked).Uint32(group)
	msg, _ := w.Finish(keyboardObjectID, eventKeyboardModifiers)
	return c.SendEvent(msg, nil)
}
