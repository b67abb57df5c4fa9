package xwlserver

import (
	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/bnema/xwsatellite/internal/wire"
	"github.com/bnema/xwsatellite/internal/xlog"
)

const (
	opcodeCompositorCreateSurface uint16 = 0

	opcodeSurfaceDestroy      uint16 = 0
	opcodeSurfaceAttach       uint16 = 1
	opcodeSurfaceDamage       uint16 = 2
	opcodeSurfaceFrame        uint16 = 3
	opcodeSurfaceSetOpaqueRegion uint16 = 4
	opcodeSurfaceSetInputRegion  uint16 = 5
	opcodeSurfaceCommit       uint16 = 6
	opcodeSurfaceSetBufferScale uint16 = 8

	opcodeXwaylandShellGetSurface uint16 = 0
	opcodeXwaylandSurfaceSetSerial uint16 = 0
)

func (c *Client) bindCompositor(newID uint32, version uint32) {
	c.Register(&Object{
		ID:        newID,
		Interface: "wl_compositor",
		Requests: map[uint16]RequestHandler{
			opcodeCompositorCreateSurface: handleCreateSurface,
		},
	})
}

func handleCreateSurface(c *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	surfaceID, err := r.Uint32()
	if err != nil {
		return err
	}

	c.reg.PutSurface(&registry.ServerSurface{ID: surfaceID, State: registry.StateNew})
	if c.OnSurfaceCreated != nil {
		c.OnSurfaceCreated(surfaceID)
	}

	c.Register(&Object{
		ID:        surfaceID,
		Interface: "wl_surface",
		Requests: map[uint16]RequestHandler{
			opcodeSurfaceDestroy:         handleSurfaceDestroy,
			opcodeSurfaceAttach:          handleSurfaceAttach,
			opcodeSurfaceDamage:          c.handleSurfaceDamage,
			opcodeSurfaceFrame:           handleSurfaceFrame,
			opcodeSurfaceSetOpaqueRegion: handleSurfaceNoop,
			opcodeSurfaceSetInputRegion:  handleSurfaceNoop,
			opcodeSurfaceCommit:          handleSurfaceCommit,
			opcodeSurfaceSetBufferScale:  handleSurfaceNoop,
		},
	})
	return nil
}

func handleSurfaceNoop(c *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	return nil
}

func handleSurfaceDestroy(c *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	c.reg.DestroySurface(sender)
	c.Unregister(sender)
	return nil
}

// handleSurfaceAttach records the attached buffer. Before the surface
// has a host role and its first ack_configure, the buffer is only
// queued (spec §4.3's deferred-commit rule); it is never forwarded to
// the host early, since the host role doesn't exist yet to receive it.
func handleSurfaceAttach(c *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	bufferID, err := r.Uint32()
	if err != nil {
		return err
	}
	_, _ = r.Int32() // x, always 0 post-v5
	_, _ = r.Int32() // y

	surf, ok := c.reg.Surface(sender)
	if !ok {
		return nil
	}
	surf.PendingBuffers = append(surf.PendingBuffers, bufferID)
	c.reg.PutSurface(surf)
	return nil
}

// handleSurfaceDamage translates wl_surface.damage from Xwayland's
// buffer (pixel) coordinates into the host surface's logical
// coordinates and re-emits it on the host surface (spec §4.3: damage
// is translated, not dropped). Damage arriving before a host surface
// exists is simply lost, the same as a real compositor losing damage
// for a surface it hasn't mapped yet; the next commit's full-buffer
// attach/commit repaints it anyway.
func (c *Client) handleSurfaceDamage(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	x, err := r.Int32()
	if err != nil {
		return err
	}
	y, err := r.Int32()
	if err != nil {
		return err
	}
	w, err := r.Int32()
	if err != nil {
		return err
	}
	h, err := r.Int32()
	if err != nil {
		return err
	}

	surf, ok := c.reg.Surface(sender)
	if !ok || surf.HostSurface == 0 || c.host == nil {
		return nil
	}
	if err := c.host.DamageSurface(surf.HostSurface, x, y, w, h); err != nil {
		xlog.L.Warn("forwarding surface damage failed", "surface", sender, "err", err)
	}
	return nil
}

func handleSurfaceFrame(c *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	callbackID, err := r.Uint32()
	if err != nil {
		return err
	}
	// A real compositor holds this until the next presented frame; the
	// satellite has no independent frame clock of its own; it fires
	// immediately so Xwayland's frame-pacing falls through to the host
	// compositor's own callback loop instead of stalling on this one.
	w := wire.NewWriter()
	w.Uint32(0)
	msg, _ := w.Finish(callbackID, eventCallbackDone)
	return c.SendEvent(msg, nil)
}

// handleSurfaceCommit applies the deferred-commit rule (spec §4.3,
// §9): commits before the surface has an installed host role and a
// first ack_configure are buffered, not dropped; once both conditions
// hold, the most recent pending buffer becomes current and the
// surface transitions to Live.
func handleSurfaceCommit(c *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	surf, ok := c.reg.Surface(sender)
	if !ok {
		return nil
	}
	if surf.HostSurface == 0 {
		surf.State = registry.StateAwaitingAssociation
		c.reg.PutSurface(surf)
		return nil
	}
	host, ok := c.reg.HostSurface(surf.HostSurface)
	if !ok || !host.Configured {
		surf.State = registry.StateAwaitingConfigure
		c.reg.PutSurface(surf)
		return nil
	}
	if len(surf.PendingBuffers) > 0 {
		surf.CurrentBuffer = surf.PendingBuffers[len(surf.PendingBuffers)-1]
		surf.PendingBuffers = nil
	}
	surf.State = registry.StateLive
	c.reg.PutSurface(surf)

	if surf.CurrentBuffer != 0 && c.host != nil {
		c.forwardCurrentBuffer(surf)
	}
	return nil
}

// forwardCurrentBuffer attaches surf's current buffer onto its host
// surface, installing the viewport's source/destination rects from the
// buffer's recorded pixel size (spec §4.3, closing the "buffer never
// reaches the host surface" gap between Xwayland's pass-through buffer
// namespace and the host client's own).
func (c *Client) forwardCurrentBuffer(surf *registry.ServerSurface) {
	bs, ok := c.getBufferSize(surf.CurrentBuffer)
	if !ok {
		xlog.L.Warn("committing buffer with unknown size", "buffer", surf.CurrentBuffer)
		return
	}
	c.mu.Lock()
	rawBufferID, ok := c.serverToRaw[surf.CurrentBuffer]
	c.mu.Unlock()
	if !ok {
		xlog.L.Warn("committing buffer with no raw host mapping", "buffer", surf.CurrentBuffer)
		return
	}
	src, dest, err := c.host.AttachBuffer(surf.HostSurface, rawBufferID, bs.w, bs.h)
	if err != nil {
		xlog.L.Error("attaching buffer to host surface failed", "surface", surf.ID, "err", err)
		return
	}
	surf.ViewportSrc = src
	surf.ViewportDest = dest
	c.reg.PutSurface(surf)
}

func (c *Client) bindXwaylandShell(newID uint32, version uint32) {
	c.Register(&Object{
		ID:        newID,
		Interface: "xwayland_shell_v1",
		Requests: map[uint16]RequestHandler{
			opcodeXwaylandShellGetSurface: c.handleGetXwaylandSurface,
		},
	})
}

// handleGetXwaylandSurface implements xwayland_shell_v1's
// get_xwayland_surface(surface, serial) — the modern association path
// (spec §4.5): the serial is recorded so the X side's matching
// WL_SURFACE_SERIAL property, once read, can resolve to this surface.
func (c *Client) handleGetXwaylandSurface(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	surfaceID, err := r.Uint32()
	if err != nil {
		return err
	}

	c.Register(&Object{
		ID:        newID,
		Interface: "xwayland_surface_v1",
		Requests: map[uint16]RequestHandler{
			opcodeXwaylandSurfaceSetSerial: c.handlerSetSerial(surfaceID),
		},
	})
	return nil
}

func (c *Client) handlerSetSerial(surfaceID uint32) RequestHandler {
	return func(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
		r := wire.NewReader(body, fds)
		lo, err := r.Uint32()
		if err != nil {
			return err
		}
		hi, err := r.Uint32()
		if err != nil {
			return err
		}
		serial := uint64(hi)<<32 | uint64(lo)
		if c.OnSerialSurface != nil {
			c.OnSerialSurface(serial, surfaceID)
		} else {
			c.reg.NotePendingSerialSurface(serial, surfaceID)
		}
		return nil
	}
}
