package xwlserver

import (
	"fmt"

	"github.com/bnema/xwsatellite/internal/wire"
	"github.com/bnema/xwsatellite/internal/xlog"
)

// Pass-through objects (spec §4.3) are globals the satellite doesn't
// need to understand the protocol of, only relay byte-for-byte onto
// the matching host global: Xwayland's requests to the server-side id
// are retransmitted verbatim (only the sender id is rewritten) to the
// raw host-side id on the shared hostwire.Conn, and that connection's
// event dispatch (registered per-id via registerPassthroughPair) does
// the mirror image for events.
//
// Limitation: only leaf interfaces whose requests/events carry no
// embedded new_id/object arguments forward correctly this way, since
// those would need per-argument remapping between the two id spaces.
// wl_shm is the one entry on passthroughInterfaces that would violate
// this (create_pool/create_buffer both mint new_id sub-objects), so
// it's intercepted specifically instead (shm.go) rather than listed
// there.

// bindGenericPassthrough creates a pass-through proxy object on the
// shared raw host connection.
func (c *Client) bindGenericPassthrough(iface string) func(newID uint32, version uint32) {
	return func(newID uint32, version uint32) {
		if c.raw == nil {
			xlog.L.Warn("pass-through requested with no raw host connection", "interface", iface)
			return
		}
		rawID, ok := c.raw.Bind(iface, 1)
		if !ok {
			xlog.L.Warn("host did not advertise pass-through global", "interface", iface)
			return
		}
		c.registerPassthroughPair(newID, rawID, iface)
	}
}

func (c *Client) bindPassthroughViewporter(newID uint32, version uint32) {
	c.bindGenericPassthrough("wp_viewporter")(newID, version)
}

// registerPassthroughPair records the id mapping both directions,
// installs a catch-all request handler that forwards verbatim up to
// the host, and subscribes to the raw id's events so they relay back
// down to Xwayland.
func (c *Client) registerPassthroughPair(serverSideID, rawSideID uint32, iface string) {
	c.mu.Lock()
	if c.serverToRaw == nil {
		c.serverToRaw = make(map[uint32]uint32)
		c.rawToServer = make(map[uint32]uint32)
	}
	c.serverToRaw[serverSideID] = rawSideID
	c.rawToServer[rawSideID] = serverSideID
	c.mu.Unlock()

	c.Register(&Object{
		ID:        serverSideID,
		Interface: iface,
		Requests:  map[uint16]RequestHandler{}, // populated lazily by forwardAnyRequest
	})

	if c.raw != nil {
		c.raw.On(rawSideID, func(opcode uint16, body []byte, fds []int) {
			w := wire.NewWriter()
			w.Raw(body)
			for _, fd := range fds {
				w.FD(fd)
			}
			msg, outFDs := w.Finish(serverSideID, opcode)
			if err := c.SendEvent(msg, outFDs); err != nil {
				xlog.L.Error("pass-through event relay failed", "interface", iface, "err", err)
			}
		})
	}
}

// unregisterPassthrough drops both id mappings and stops routing raw
// events to serverSideID, for an object torn down by request (a
// destroyed wl_buffer, say).
func (c *Client) unregisterPassthrough(serverSideID uint32) {
	c.mu.Lock()
	rawID, ok := c.serverToRaw[serverSideID]
	if ok {
		delete(c.serverToRaw, serverSideID)
		delete(c.rawToServer, rawID)
	}
	c.mu.Unlock()
	if ok && c.raw != nil {
		c.raw.Off(rawID)
	}
}

// forwardAnyRequest relays a request whose opcode wasn't in the
// object's table (meaning it's a pass-through object) straight to the
// mapped raw host-side object, rewriting only the sender id.
func (c *Client) forwardAnyRequest(serverSideID uint32, opcode uint16, body []byte, fds []int) error {
	c.mu.Lock()
	rawID, ok := c.serverToRaw[serverSideID]
	raw := c.raw
	c.mu.Unlock()
	if !ok || raw == nil {
		return fmt.Errorf("no pass-through mapping for object %d", serverSideID)
	}
	w := wire.NewWriter()
	w.Raw(body)
	for _, fd := range fds {
		w.FD(fd)
	}
	msg, outFDs := w.Finish(rawID, opcode)
	return raw.Send(msg, outFDs)
}
