package hostclient

import (
	"fmt"

	"github.com/bnema/xwsatellite/internal/geometry"
	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/bnema/xwsatellite/internal/wire"
	"github.com/bnema/xwsatellite/internal/xwmerr"
)

// hostSurfaceHandle records the raw host-side object ids backing one
// X window's host surface (spec §4.2), all minted on the shared raw
// connection so xwlserver can reference the same surface/buffer ids
// when it forwards attach/damage/commit (spec §4.3).
type hostSurfaceHandle struct {
	surfaceID    uint32
	xdgSurfaceID uint32
	viewportID   uint32
	toplevelID   uint32
	popupID      uint32

	lastBufferID uint32
	lastBufferW  int32
	lastBufferH  int32
}

// CreateHostSurface allocates a bare host wl_surface plus its
// wp_viewport (spec §4.2 "create_host_surface()"); the role is
// installed separately once the X window's kind is known.
func (c *Client) CreateHostSurface() (uint32, error) {
	if c.rawCompositorID == 0 {
		return 0, fmt.Errorf("wl_compositor not bound: %w", xwmerr.ErrMissingRequiredGlobal)
	}
	surfaceID := c.raw.NewID()
	w := wire.NewWriter()
	w.Uint32(surfaceID)
	msg, _ := w.Finish(c.rawCompositorID, opcodeCompositorCreateSurface)
	if err := c.raw.Send(msg, nil); err != nil {
		return 0, fmt.Errorf("create_surface: %w", err)
	}

	viewportID := c.raw.NewID()
	w2 := wire.NewWriter()
	w2.Uint32(viewportID).Uint32(surfaceID)
	msg2, _ := w2.Finish(c.rawViewporterID, opcodeViewporterGetViewport)
	if err := c.raw.Send(msg2, nil); err != nil {
		return 0, fmt.Errorf("viewporter.get_viewport: %w", err)
	}

	id := c.allocateHostID()
	c.mu.Lock()
	c.surfaces[id] = &hostSurfaceHandle{surfaceID: surfaceID, viewportID: viewportID}
	if c.rawSurfaceToHost == nil {
		c.rawSurfaceToHost = make(map[uint32]uint32)
	}
	c.rawSurfaceToHost[surfaceID] = id
	c.mu.Unlock()

	c.reg.PutHostSurface(&registry.HostSurface{ID: id})
	return id, nil
}

// HostSurfaceForRawSurface resolves a raw host wl_surface id (as
// carried on wl_pointer/wl_keyboard/wl_touch enter events) back to the
// hostSurfaceID our registry tracks it under, for input routing (spec
// §4.3).
func (c *Client) HostSurfaceForRawSurface(rawSurfaceID uint32) (uint32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.rawSurfaceToHost[rawSurfaceID]
	return id, ok
}

// RawSurfaceID exposes the raw wl_surface id backing hostSurfaceID, so
// xwlserver can forward attach/damage/commit onto the exact object
// this package created (spec §4.3's interception path).
func (c *Client) RawSurfaceID(hostSurfaceID uint32) (uint32, bool) {
	h, ok := c.hostSurfaceHandle(hostSurfaceID)
	if !ok {
		return 0, false
	}
	return h.surfaceID, true
}

// AttachBuffer forwards a committed Xwayland buffer onto the host
// surface: attach, set the viewport's source to the full buffer rect
// and its destination to the buffer's logical size under the chosen
// X-screen output's scale (spec §4.3 "Viewport is installed
// unconditionally; source rect = (0,0,buffer_size), dest rect =
// logical_size"), then commit.
func (c *Client) AttachBuffer(hostSurfaceID, rawBufferID uint32, pixelW, pixelH int32) (geometry.Rect, geometry.Size, error) {
	h, ok := c.hostSurfaceHandle(hostSurfaceID)
	if !ok {
		return geometry.Rect{}, geometry.Size{}, fmt.Errorf("no host surface %d", hostSurfaceID)
	}

	scale := 1.0
	if out, ok := c.outputs.XScreenOutput(); ok && out.Placement.Scale > 0 {
		scale = out.Placement.Scale
	}
	src := geometry.Rect{X: 0, Y: 0, W: pixelW, H: pixelH}
	dest := geometry.SurfaceLogicalSize(geometry.Size{W: pixelW, H: pixelH}, scale)

	vw := wire.NewWriter()
	vw.Fixed(0).Fixed(0).Fixed(float64(pixelW)).Fixed(float64(pixelH))
	vmsg, _ := vw.Finish(h.viewportID, opcodeViewportSetSource)
	if err := c.raw.Send(vmsg, nil); err != nil {
		return geometry.Rect{}, geometry.Size{}, fmt.Errorf("viewport.set_source: %w", err)
	}

	dw := wire.NewWriter()
	dw.Int32(dest.W).Int32(dest.H)
	dmsg, _ := dw.Finish(h.viewportID, opcodeViewportSetDestination)
	if err := c.raw.Send(dmsg, nil); err != nil {
		return geometry.Rect{}, geometry.Size{}, fmt.Errorf("viewport.set_destination: %w", err)
	}

	aw := wire.NewWriter()
	aw.Uint32(rawBufferID).Int32(0).Int32(0)
	amsg, _ := aw.Finish(h.surfaceID, opcodeSurfaceAttach)
	if err := c.raw.Send(amsg, nil); err != nil {
		return geometry.Rect{}, geometry.Size{}, fmt.Errorf("surface.attach: %w", err)
	}

	cw := wire.NewWriter()
	cmsg, _ := cw.Finish(h.surfaceID, opcodeSurfaceCommit)
	if err := c.raw.Send(cmsg, nil); err != nil {
		return geometry.Rect{}, geometry.Size{}, fmt.Errorf("surface.commit: %w", err)
	}

	c.mu.Lock()
	h.lastBufferID, h.lastBufferW, h.lastBufferH = rawBufferID, pixelW, pixelH
	c.mu.Unlock()
	return src, dest, nil
}

// DamageSurface forwards Xwayland's wl_surface.damage onto the host
// surface, translating the rect from buffer (pixel) coordinates to
// surface (logical) coordinates by the same scale factor the viewport
// uses (spec §4.3 "Damage from Xwayland is translated ... by the same
// scale factor").
func (c *Client) DamageSurface(hostSurfaceID uint32, x, y, w, h int32) error {
	handle, ok := c.hostSurfaceHandle(hostSurfaceID)
	if !ok {
		return fmt.Errorf("no host surface %d", hostSurfaceID)
	}
	scale := 1.0
	if out, ok := c.outputs.XScreenOutput(); ok && out.Placement.Scale > 0 {
		scale = out.Placement.Scale
	}
	lx := geometry.Size{W: x, H: y}
	lx = geometry.SurfaceLogicalSize(lx, scale)
	lw := geometry.SurfaceLogicalSize(geometry.Size{W: w, H: h}, scale)

	dw := wire.NewWriter()
	dw.Int32(lx.W).Int32(lx.H).Int32(lw.W).Int32(lw.H)
	msg, _ := dw.Finish(handle.surfaceID, opcodeSurfaceDamage)
	return c.raw.Send(msg, nil)
}

// onWmBaseEvent answers xdg_wm_base pings; every host surface's
// xdg_surface lives under this one wm_base object.
func (c *Client) onWmBaseEvent(opcode uint16, body []byte, fds []int) {
	if opcode != eventWmBasePing {
		return
	}
	r := wire.NewReader(body, fds)
	serial, err := r.Uint32()
	if err != nil {
		return
	}
	w := wire.NewWriter()
	w.Uint32(serial)
	msg, _ := w.Finish(c.rawWmBaseID, opcodeWmBasePong)
	_ = c.raw.Send(msg, nil)
}

// InstallToplevel installs the xdg_toplevel role on a previously
// created host surface (spec §4.2 "install_toplevel(host_surface,
// props)"). title/appID/parent follow the X window's current WM_NAME,
// WM_CLASS, and WM_TRANSIENT_FOR at association time.
func (c *Client) InstallToplevel(hostSurfaceID uint32, title, appID string, parent *uint32, cb ToplevelCallbacks) error {
	h, ok := c.hostSurfaceHandle(hostSurfaceID)
	if !ok {
		return fmt.Errorf("no host surface %d", hostSurfaceID)
	}

	xdgSurfaceID := c.raw.NewID()
	w := wire.NewWriter()
	w.Uint32(xdgSurfaceID).Uint32(h.surfaceID)
	msg, _ := w.Finish(c.rawWmBaseID, opcodeWmBaseGetXdgSurface)
	if err := c.raw.Send(msg, nil); err != nil {
		return fmt.Errorf("get_xdg_surface: %w", err)
	}
	h.xdgSurfaceID = xdgSurfaceID
	c.raw.On(xdgSurfaceID, c.xdgSurfaceEventHandler(hostSurfaceID))

	toplevelID := c.raw.NewID()
	tw := wire.NewWriter()
	tw.Uint32(toplevelID)
	tmsg, _ := tw.Finish(xdgSurfaceID, opcodeXdgSurfaceGetToplevel)
	if err := c.raw.Send(tmsg, nil); err != nil {
		return fmt.Errorf("get_toplevel: %w", err)
	}
	h.toplevelID = toplevelID
	c.raw.On(toplevelID, c.toplevelEventHandler(cb))

	if title != "" {
		c.sendString(toplevelID, opcodeToplevelSetTitle, title)
	}
	if appID != "" {
		c.sendString(toplevelID, opcodeToplevelSetAppID, appID)
	}
	if parent != nil {
		if parentH, ok := c.hostSurfaceHandle(*parent); ok && parentH.toplevelID != 0 {
			pw := wire.NewWriter()
			pw.Uint32(parentH.toplevelID)
			pmsg, _ := pw.Finish(toplevelID, opcodeToplevelSetParent)
			_ = c.raw.Send(pmsg, nil)
		}
	}

	cw := wire.NewWriter()
	cmsg, _ := cw.Finish(h.surfaceID, opcodeSurfaceCommit)
	if err := c.raw.Send(cmsg, nil); err != nil {
		return err
	}

	if hs, ok := c.reg.HostSurface(hostSurfaceID); ok {
		hs.Role = registry.KindToplevel
		c.reg.PutHostSurface(hs)
	}
	return nil
}

func (c *Client) sendString(objectID uint32, opcode uint16, s string) {
	w := wire.NewWriter()
	w.String(s)
	msg, _ := w.Finish(objectID, opcode)
	_ = c.raw.Send(msg, nil)
}

// xdgSurfaceEventHandler acks configure and records the host role as
// configured (spec §4.3's deferred-commit rule waits on this).
func (c *Client) xdgSurfaceEventHandler(hostSurfaceID uint32) func(opcode uint16, body []byte, fds []int) {
	return func(opcode uint16, body []byte, fds []int) {
		if opcode != eventXdgSurfaceConfigure {
			return
		}
		r := wire.NewReader(body, fds)
		serial, err := r.Uint32()
		if err != nil {
			return
		}
		h, ok := c.hostSurfaceHandle(hostSurfaceID)
		if !ok {
			return
		}
		w := wire.NewWriter()
		w.Uint32(serial)
		msg, _ := w.Finish(h.xdgSurfaceID, opcodeXdgSurfaceAckConfigure)
		_ = c.raw.Send(msg, nil)

		if hs, ok := c.reg.HostSurface(hostSurfaceID); ok {
			hs.LastAckSerial = serial
			hs.Configured = true
			c.reg.PutHostSurface(hs)
		}
	}
}

func (c *Client) toplevelEventHandler(cb ToplevelCallbacks) func(opcode uint16, body []byte, fds []int) {
	return func(opcode uint16, body []byte, fds []int) {
		r := wire.NewReader(body, fds)
		switch opcode {
		case eventToplevelConfigure:
			width, _ := r.Int32()
			height, _ := r.Int32()
			states, _ := r.Array()
			if cb.OnConfigure != nil {
				cb.OnConfigure(width, height, decodeStates(states))
			}
		case eventToplevelClose:
			if cb.OnClose != nil {
				cb.OnClose()
			}
		case eventToplevelConfigureBounds:
			width, _ := r.Int32()
			height, _ := r.Int32()
			if cb.OnBounds != nil {
				cb.OnBounds(width, height)
			}
		}
	}
}

// InstallPopup installs the xdg_popup role, positioned by an
// xdg_positioner built from the caller's anchor rect and offset (spec
// §4.2 "install_popup(host_surface, parent, positioner)").
func (c *Client) InstallPopup(hostSurfaceID, parentID uint32, anchorX, anchorY, anchorW, anchorH, offsetX, offsetY int32, cb PopupCallbacks) error {
	h, ok := c.hostSurfaceHandle(hostSurfaceID)
	if !ok {
		return fmt.Errorf("no host surface %d", hostSurfaceID)
	}
	parentH, ok := c.hostSurfaceHandle(parentID)
	if !ok || parentH.xdgSurfaceID == 0 {
		return fmt.Errorf("popup parent %d has no xdg_surface", parentID)
	}

	positionerID := c.raw.NewID()
	pw := wire.NewWriter()
	pw.Uint32(positionerID)
	pmsg, _ := pw.Finish(c.rawWmBaseID, opcodeWmBaseCreatePositioner)
	if err := c.raw.Send(pmsg, nil); err != nil {
		return fmt.Errorf("create_positioner: %w", err)
	}
	if anchorW <= 0 {
		anchorW = 1
	}
	if anchorH <= 0 {
		anchorH = 1
	}
	c.sendInt2(positionerID, opcodePositionerSetSize, anchorW, anchorH)
	c.sendInt4(positionerID, opcodePositionerSetAnchorRect, anchorX, anchorY, anchorW, anchorH)
	c.sendUint1(positionerID, opcodePositionerSetAnchor, xdgPositionerAnchorTopLeft)
	c.sendUint1(positionerID, opcodePositionerSetGravity, xdgPositionerGravityBottomRight)
	c.sendInt2(positionerID, opcodePositionerSetOffset, offsetX, offsetY)

	xdgSurfaceID := c.raw.NewID()
	xw := wire.NewWriter()
	xw.Uint32(xdgSurfaceID).Uint32(h.surfaceID)
	xmsg, _ := xw.Finish(c.rawWmBaseID, opcodeWmBaseGetXdgSurface)
	if err := c.raw.Send(xmsg, nil); err != nil {
		return fmt.Errorf("get_xdg_surface: %w", err)
	}
	h.xdgSurfaceID = xdgSurfaceID
	c.raw.On(xdgSurfaceID, c.xdgSurfaceEventHandler(hostSurfaceID))

	popupID := c.raw.NewID()
	popW := wire.NewWriter()
	popW.Uint32(popupID).Uint32(parentH.xdgSurfaceID).Uint32(positionerID)
	popMsg, _ := popW.Finish(xdgSurfaceID, opcodeXdgSurfaceGetPopup)
	if err := c.raw.Send(popMsg, nil); err != nil {
		return fmt.Errorf("get_popup: %w", err)
	}
	h.popupID = popupID
	c.raw.On(popupID, c.popupEventHandler(cb))

	// destroy the positioner now that it's done its job (spec says
	// nothing requires keeping it alive past get_popup).
	destroyMsg, _ := wire.NewWriter().Finish(positionerID, opcodePositionerDestroy)
	_ = c.raw.Send(destroyMsg, nil)

	cw := wire.NewWriter()
	cmsg, _ := cw.Finish(h.surfaceID, opcodeSurfaceCommit)
	if err := c.raw.Send(cmsg, nil); err != nil {
		return err
	}

	if hs, ok := c.reg.HostSurface(hostSurfaceID); ok {
		hs.Role = registry.KindPopup
		c.reg.PutHostSurface(hs)
	}
	return nil
}

func (c *Client) popupEventHandler(cb PopupCallbacks) func(opcode uint16, body []byte, fds []int) {
	return func(opcode uint16, body []byte, fds []int) {
		r := wire.NewReader(body, fds)
		switch opcode {
		case eventPopupConfigure:
			x, _ := r.Int32()
			y, _ := r.Int32()
			width, _ := r.Int32()
			height, _ := r.Int32()
			if cb.OnConfigure != nil {
				cb.OnConfigure(x, y, width, height)
			}
		case eventPopupPopupDone:
			if cb.OnDismiss != nil {
				cb.OnDismiss()
			}
		}
	}
}

func (c *Client) sendInt2(objectID uint32, opcode uint16, a, b int32) {
	w := wire.NewWriter()
	w.Int32(a).Int32(b)
	msg, _ := w.Finish(objectID, opcode)
	_ = c.raw.Send(msg, nil)
}

func (c *Client) sendInt4(objectID uint32, opcode uint16, a, b, d, e int32) {
	w := wire.NewWriter()
	w.Int32(a).Int32(b).Int32(d).Int32(e)
	msg, _ := w.Finish(objectID, opcode)
	_ = c.raw.Send(msg, nil)
}

func (c *Client) sendUint1(objectID uint32, opcode uint16, v uint32) {
	w := wire.NewWriter()
	w.Uint32(v)
	msg, _ := w.Finish(objectID, opcode)
	_ = c.raw.Send(msg, nil)
}

// RequestActivation asks xdg_activation_v1 to raise/focus a surface on
// the caller's behalf (spec §4.2 "request_activation(token?, surface)").
// Absence of the optional global is not an error; the caller is
// expected to fall back to its own raise/focus heuristic.
func (c *Client) RequestActivation(hostSurfaceID uint32, token string) error {
	h, ok := c.hostSurfaceHandle(hostSurfaceID)
	if !ok {
		return fmt.Errorf("no host surface %d", hostSurfaceID)
	}
	if c.rawActivationID == 0 {
		return nil
	}
	tokenID := c.raw.NewID()
	w := wire.NewWriter()
	w.Uint32(tokenID)
	msg, _ := w.Finish(c.rawActivationID, opcodeActivationGetToken)
	if err := c.raw.Send(msg, nil); err != nil {
		return fmt.Errorf("get_activation_token: %w", err)
	}

	sw := wire.NewWriter()
	sw.Uint32(h.surfaceID)
	smsg, _ := sw.Finish(tokenID, opcodeActivationTokenSetSurface)
	_ = c.raw.Send(smsg, nil)

	c.raw.On(tokenID, func(opcode uint16, body []byte, fds []int) {
		if opcode != eventActivationTokenDone {
			return
		}
		r := wire.NewReader(body, fds)
		gotToken, err := r.String()
		if err != nil {
			return
		}
		aw := wire.NewWriter()
		aw.String(gotToken).Uint32(h.surfaceID)
		amsg, _ := aw.Finish(c.rawActivationID, opcodeActivationActivate)
		_ = c.raw.Send(amsg, nil)
		c.raw.Off(tokenID)
	})

	cmsg, _ := wire.NewWriter().Finish(tokenID, opcodeActivationTokenCommit)
	return c.raw.Send(cmsg, nil)
}

// SetToplevelSizeHint relays an X11 ConfigureRequest's size onto the
// host role via xdg_toplevel's min/max size hints, the only lever a
// toplevel has to request a specific size from the compositor (spec
// §4.4 "ConfigureRequest handling": propagated to host via xdg_toplevel
// set_*_size hints). Both min and max are pinned to the same value so
// the hint reads as a request rather than a soft suggestion.
func (c *Client) SetToplevelSizeHint(hostSurfaceID uint32, w, h int32) error {
	handle, ok := c.hostSurfaceHandle(hostSurfaceID)
	if !ok || handle.toplevelID == 0 {
		return fmt.Errorf("no toplevel for host surface %d", hostSurfaceID)
	}
	c.sendInt2(handle.toplevelID, opcodeToplevelSetMinSize, w, h)
	c.sendInt2(handle.toplevelID, opcodeToplevelSetMaxSize, w, h)
	cmsg, _ := wire.NewWriter().Finish(handle.surfaceID, opcodeSurfaceCommit)
	return c.raw.Send(cmsg, nil)
}

// DestroyHostSurface tears down a host surface's role and the surface
// itself, mirroring the X window/server-surface teardown the
// association engine drives on DestroyNotify.
func (c *Client) DestroyHostSurface(hostSurfaceID uint32) {
	c.mu.Lock()
	h, ok := c.surfaces[hostSurfaceID]
	if ok {
		delete(c.surfaces, hostSurfaceID)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	destroy := func(id uint32, opcode uint16) {
		if id == 0 {
			return
		}
		msg, _ := wire.NewWriter().Finish(id, opcode)
		_ = c.raw.Send(msg, nil)
		c.raw.Off(id)
	}
	destroy(h.toplevelID, opcodeToplevelDestroy)
	destroy(h.popupID, opcodePopupDestroy)
	destroy(h.xdgSurfaceID, opcodeXdgSurfaceDestroy)
	destroy(h.viewportID, opcodeViewportDestroy)
	destroy(h.surfaceID, opcodeSurfaceDestroy)
	c.reg.DestroyHostSurface(hostSurfaceID)
}

func (c *Client) hostSurfaceHandle(id uint32) (*hostSurfaceHandle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.surfaces[id]
	return h, ok
}

func decodeStates(raw []byte) []uint32 {
	states := make([]uint32, 0, len(raw)/4)
	for i := 0; i+4 <= len(raw); i += 4 {
		v := uint32(raw[i]) | uint32(raw[i+1])<<8 | uint32(raw[i+2])<<16 | uint32(raw[i+3])<<24
		states = append(states, v)
	}
	return states
}
