package hostclient

import (
	"github.com/bnema/xwsatellite/internal/geometry"
	"github.com/bnema/xwsatellite/internal/wire"
	"github.com/bnema/xwsatellite/internal/xlog"
)

// Raw opcodes for the host-facing wl_seat/wl_pointer/wl_keyboard/
// wl_touch objects this package binds on the shared raw connection
// (spec §4.3 input routing), grounded on the same stable core-protocol
// ordering as wireops.go.
const (
	eventSeatCapabilities uint16 = 0
	eventSeatName         uint16 = 1

	opcodeSeatGetPointer  uint16 = 0
	opcodeSeatGetKeyboard uint16 = 1
	opcodeSeatGetTouch    uint16 = 2

	seatCapabilityPointer  uint32 = 1
	seatCapabilityKeyboard uint32 = 2
	seatCapabilityTouch    uint32 = 4

	eventPointerEnter  uint16 = 0
	eventPointerLeave  uint16 = 1
	eventPointerMotion uint16 = 2
	eventPointerButton uint16 = 3
	eventPointerAxis   uint16 = 4

	eventKeyboardKeymap    uint16 = 0
	eventKeyboardEnter     uint16 = 1
	eventKeyboardLeave     uint16 = 2
	eventKeyboardKey       uint16 = 3
	eventKeyboardModifiers uint16 = 4

	eventTouchDown   uint16 = 0
	eventTouchUp     uint16 = 1
	eventTouchMotion uint16 = 2
)

// HostInputSink is implemented by xwlserver.Client: the target for
// host pointer/keyboard/touch events translated and replayed onto
// Xwayland's intercepted seat objects (spec §4.3). Defined here, not
// there, because xwlserver already imports hostclient and a direct
// field would cycle; HostInputSink lets hostclient depend only on the
// shape it needs.
type HostInputSink interface {
	SeatPointerID() uint32
	SeatKeyboardID() uint32
	SeatTouchID() uint32

	EmitPointerEnter(pointerObjectID, serial, serverSurfaceID uint32, out geometry.OutputPlacement, local geometry.LogicalPoint) error
	EmitPointerLeave(pointerObjectID, serial, serverSurfaceID uint32) error
	EmitPointerMotion(pointerObjectID uint32, out geometry.OutputPlacement, local geometry.LogicalPoint, time uint32) error
	EmitPointerButton(pointerObjectID, serial, time, button, state uint32) error

	EmitKeyboardKeymap(keyboardObjectID uint32, fd int, size uint32) error
	EmitKeyboardEnter(keyboardObjectID, serial, serverSurfaceID uint32) error
	EmitKeyboardLeave(keyboardObjectID, serial, serverSurfaceID uint32) error
	EmitKeyboardKey(keyboardObjectID, serial, time, key, state uint32) error
	EmitKeyboardModifiers(keyboardObjectID, serial, depressed, latched, locked, group uint32) error

	EmitTouchDown(touchObjectID, serial, time, id uint32, serverSurfaceID uint32, out geometry.OutputPlacement, local geometry.LogicalPoint) error
	EmitTouchUp(touchObjectID, serial, time, id uint32) error
	EmitTouchMotion(touchObjectID, time, id uint32, out geometry.OutputPlacement, local geometry.LogicalPoint) error
}

// SetInputSink wires the Xwayland-facing seat objects that host input
// gets replayed onto; cmd/root.go calls this for each accepted Xwayland
// connection, replacing any previous sink (spec §4.3; DESIGN.md's
// "single active sink" decision: one Xwayland connection per satellite
// instance, so one sink suffices).
func (c *Client) SetInputSink(sink HostInputSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = sink
}

// bindSeatAndInput binds the host wl_seat on the shared raw connection
// and wires capability-driven get_pointer/get_keyboard/get_touch, so
// every host input event reaches Xwayland via c.input (spec §4.3).
func (c *Client) bindSeatAndInput() {
	if c.raw == nil {
		return
	}
	id, ok := c.raw.Bind("wl_seat", 7)
	if !ok {
		xlog.L.Warn("host did not advertise wl_seat; input routing disabled")
		return
	}
	c.rawSeatID = id
	c.raw.On(id, c.onSeatEvent)
}

func (c *Client) onSeatEvent(opcode uint16, body []byte, fds []int) {
	if opcode != eventSeatCapabilities {
		return
	}
	r := wire.NewReader(body, fds)
	caps, err := r.Uint32()
	if err != nil {
		return
	}
	if caps&seatCapabilityPointer != 0 {
		c.bindHostPointer()
	}
	if caps&seatCapabilityKeyboard != 0 {
		c.bindHostKeyboard()
	}
	if caps&seatCapabilityTouch != 0 {
		c.bindHostTouch()
	}
}

func (c *Client) bindHostPointer() {
	id := c.raw.NewID()
	w := wire.NewWriter()
	w.Uint32(id)
	msg, _ := w.Finish(c.rawSeatID, opcodeSeatGetPointer)
	if err := c.raw.Send(msg, nil); err != nil {
		xlog.L.Warn("get_pointer failed", "err", err)
		return
	}
	c.raw.On(id, c.onPointerEvent)
}

func (c *Client) bindHostKeyboard() {
	id := c.raw.NewID()
	w := wire.NewWriter()
	w.Uint32(id)
	msg, _ := w.Finish(c.rawSeatID, opcodeSeatGetKeyboard)
	if err := c.raw.Send(msg, nil); err != nil {
		xlog.L.Warn("get_keyboard failed", "err", err)
		return
	}
	c.raw.On(id, c.onKeyboardEvent)
}

func (c *Client) bindHostTouch() {
	id := c.raw.NewID()
	w := wire.NewWriter()
	w.Uint32(id)
	msg, _ := w.Finish(c.rawSeatID, opcodeSeatGetTouch)
	if err := c.raw.Send(msg, nil); err != nil {
		xlog.L.Warn("get_touch failed", "err", err)
		return
	}
	c.raw.On(id, c.onTouchEvent)
}

// placement returns the current X-screen output's placement, the
// frame every translated input coordinate is expressed in (spec §4.3).
func (c *Client) placement() geometry.OutputPlacement {
	if out, ok := c.outputs.XScreenOutput(); ok {
		return out.Placement
	}
	return geometry.OutputPlacement{Scale: 1, LogicalSize: geometry.Size{W: 1, H: 1}}
}

func (c *Client) onPointerEvent(opcode uint16, body []byte, fds []int) {
	c.mu.Lock()
	sink := c.input
	c.mu.Unlock()
	if sink == nil {
		return
	}
	pointerID := sink.SeatPointerID()
	if pointerID == 0 {
		return
	}
	r := wire.NewReader(body, fds)
	switch opcode {
	case eventPointerEnter:
		serial, _ := r.Uint32()
		rawSurface, _ := r.Uint32()
		x, _ := r.Fixed()
		y, _ := r.Fixed()
		hostSurfaceID, ok := c.HostSurfaceForRawSurface(rawSurface)
		if !ok {
			return
		}
		serverSurf, ok := c.reg.SurfaceByHostSurface(hostSurfaceID)
		if !ok {
			return
		}
		_ = sink.EmitPointerEnter(pointerID, serial, serverSurf.ID, c.placement(), geometry.LogicalPoint{X: x, Y: y})
	case eventPointerLeave:
		serial, _ := r.Uint32()
		rawSurface, _ := r.Uint32()
		hostSurfaceID, ok := c.HostSurfaceForRawSurface(rawSurface)
		if !ok {
			return
		}
		serverSurf, ok := c.reg.SurfaceByHostSurface(hostSurfaceID)
		if !ok {
			return
		}
		_ = sink.EmitPointerLeave(pointerID, serial, serverSurf.ID)
	case eventPointerMotion:
		time, _ := r.Uint32()
		x, _ := r.Fixed()
		y, _ := r.Fixed()
		_ = sink.EmitPointerMotion(pointerID, c.placement(), geometry.LogicalPoint{X: x, Y: y}, time)
	case eventPointerButton:
		serial, _ := r.Uint32()
		time, _ := r.Uint32()
		button, _ := r.Uint32()
		state, _ := r.Uint32()
		_ = sink.EmitPointerButton(pointerID, serial, time, button, state)
	case eventPointerAxis:
		// Scroll is not part of the spec's interception surface; dropped
		// rather than forwarded through an EmitPointerAxis this package
		// doesn't define yet.
	}
}

func (c *Client) onKeyboardEvent(opcode uint16, body []byte, fds []int) {
	r := wire.NewReader(body, fds)
	if opcode == eventKeyboardKeymap {
		// Cached regardless of whether Xwayland has bound wl_keyboard
		// yet (ReplayLastKeymap covers that race via OnKeyboardBound).
		_, _ = r.Uint32() // format
		fd, err := r.FD()
		if err != nil {
			return
		}
		size, _ := r.Uint32()
		c.mu.Lock()
		c.haveKeymap = true
		c.lastKeymapFD = fd
		c.lastKeymapSize = size
		sink := c.input
		c.mu.Unlock()
		if sink != nil {
			if keyboardID := sink.SeatKeyboardID(); keyboardID != 0 {
				_ = sink.EmitKeyboardKeymap(keyboardID, fd, size)
			}
		}
		return
	}

	c.mu.Lock()
	sink := c.input
	c.mu.Unlock()
	if sink == nil {
		return
	}
	keyboardID := sink.SeatKeyboardID()
	if keyboardID == 0 {
		return
	}
	switch opcode {
	case eventKeyboardEnter:
		serial, _ := r.Uint32()
		rawSurface, _ := r.Uint32()
		hostSurfaceID, ok := c.HostSurfaceForRawSurface(rawSurface)
		if !ok {
			return
		}
		serverSurf, ok := c.reg.SurfaceByHostSurface(hostSurfaceID)
		if !ok {
			return
		}
		_ = sink.EmitKeyboardEnter(keyboardID, serial, serverSurf.ID)
	case eventKeyboardLeave:
		serial, _ := r.Uint32()
		rawSurface, _ := r.Uint32()
		hostSurfaceID, ok := c.HostSurfaceForRawSurface(rawSurface)
		if !ok {
			return
		}
		serverSurf, ok := c.reg.SurfaceByHostSurface(hostSurfaceID)
		if !ok {
			return
		}
		_ = sink.EmitKeyboardLeave(keyboardID, serial, serverSurf.ID)
	case eventKeyboardKey:
		serial, _ := r.Uint32()
		time, _ := r.Uint32()
		key, _ := r.Uint32()
		state, _ := r.Uint32()
		_ = sink.EmitKeyboardKey(keyboardID, serial, time, key, state)
	case eventKeyboardModifiers:
		serial, _ := r.Uint32()
		depressed, _ := r.Uint32()
		latched, _ := r.Uint32()
		locked, _ := r.Uint32()
		group, _ := r.Uint32()
		_ = sink.EmitKeyboardModifiers(keyboardID, serial, depressed, latched, locked, group)
	}
}

// ReplayLastKeymap resends the most recently captured host keymap to
// sink's now-bound wl_keyboard, for the common case where the host
// handed us the keymap before Xwayland requested wl_keyboard
// (cmd/root.go wires this to xwlserver's Client.OnKeyboardBound).
func (c *Client) ReplayLastKeymap() {
	c.mu.Lock()
	sink := c.input
	have := c.haveKeymap
	fd := c.lastKeymapFD
	size := c.lastKeymapSize
	c.mu.Unlock()
	if !have || sink == nil {
		return
	}
	keyboardID := sink.SeatKeyboardID()
	if keyboardID == 0 {
		return
	}
	_ = sink.EmitKeyboardKeymap(keyboardID, fd, size)
}

func (c *Client) onTouchEvent(opcode uint16, body []byte, fds []int) {
	c.mu.Lock()
	sink := c.input
	c.mu.Unlock()
	if sink == nil {
		return
	}
	touchID := sink.SeatTouchID()
	if touchID == 0 {
		return
	}
	r := wire.NewReader(body, fds)
	switch opcode {
	case eventTouchDown:
		serial, _ := r.Uint32()
		time, _ := r.Uint32()
		rawSurface, _ := r.Uint32()
		id, _ := r.Int32()
		x, _ := r.Fixed()
		y, _ := r.Fixed()
		hostSurfaceID, ok := c.HostSurfaceForRawSurface(rawSurface)
		if !ok {
			return
		}
		serverSurf, ok := c.reg.SurfaceByHostSurface(hostSurfaceID)
		if !ok {
			return
		}
		_ = sink.EmitTouchDown(touchID, serial, time, uint32(id), serverSurf.ID, c.placement(), geometry.LogicalPoint{X: x, Y: y})
	case eventTouchUp:
		serial, _ := r.Uint32()
		time, _ := r.Uint32()
		id, _ := r.Int32()
		_ = sink.EmitTouchUp(touchID, serial, time, uint32(id))
	case eventTouchMotion:
		time, _ := r.Uint32()
		id, _ := r.Int32()
		x, _ := r.Fixed()
		y, _ := r.Fixed()
		_ = sink.EmitTouchMotion(touchID, time, uint32(id), c.placement(), geometry.LogicalPoint{X: x, Y: y})
	}
}
