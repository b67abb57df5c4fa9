package xwlserver

import (
	"github.com/bnema/xwsatellite/internal/wire"
	"github.com/bnema/xwsatellite/internal/xlog"
)

// wl_data_device_manager/wl_data_device/wl_data_source/wl_data_offer
// opcodes (spec §4.6's drag-and-drop extends the same XDND-termination
// model to selections). Xwayland itself already bridges X11's XDND
// protocol to wl_data_device internally (the same way a real
// compositor's wl_data_device_manager looks to any other Wayland
// client) — so unlike clipboard copy/paste, this package never touches
// XDND atoms directly; it only has to forward the resulting
// wl_data_device traffic through to the host compositor, remapping the
// new_id sub-objects (wl_data_source, wl_data_offer) a verbatim relay
// can't handle, the same shape of problem wl_shm's create_pool/
// create_buffer posed (shm.go).
const (
	opcodeDataDeviceManagerCreateDataSource uint16 = 0
	opcodeDataDeviceManagerGetDataDevice    uint16 = 1

	opcodeDataDeviceStartDrag    uint16 = 0
	opcodeDataDeviceSetSelection uint16 = 1
	opcodeDataDeviceRelease      uint16 = 2

	eventDataDeviceDataOffer uint16 = 0
	eventDataDeviceEnter     uint16 = 1
	eventDataDeviceLeave     uint16 = 2
	eventDataDeviceMotion    uint16 = 3
	eventDataDeviceDrop      uint16 = 4
	eventDataDeviceSelection uint16 = 5
)

// bindDataDeviceManager advertises wl_data_device_manager to Xwayland
// (spec §4.6); create_data_source needs no remapping beyond minting
// (handled like wl_shm_pool), get_data_device needs the custom event
// translation in onRawDataDeviceEvent below.
func (c *Client) bindDataDeviceManager(newID uint32, version uint32) {
	c.Register(&Object{
		ID:        newID,
		Interface: "wl_data_device_manager",
		Requests: map[uint16]RequestHandler{
			opcodeDataDeviceManagerCreateDataSource: c.handleCreateDataSource,
			opcodeDataDeviceManagerGetDataDevice:    c.handleGetDataDevice,
		},
	})
}

// rawDataDeviceManagerID lazily binds wl_data_device_manager on the
// shared raw connection; both create_data_source and get_data_device
// need it.
func (c *Client) rawDataDeviceManagerID() (uint32, bool) {
	if c.rawDataDeviceMgrID != 0 {
		return c.rawDataDeviceMgrID, true
	}
	id, ok := c.raw.Bind("wl_data_device_manager", 3)
	if !ok {
		xlog.L.Warn("host did not advertise wl_data_device_manager")
		return 0, false
	}
	c.rawDataDeviceMgrID = id
	return id, true
}

// handleCreateDataSource mints a raw wl_data_source and registers it
// as an ordinary pass-through pair: offer/destroy/set_actions requests
// and target/send/cancelled/dnd_drop_performed/dnd_finished/action
// events (including the fd "send" carries) all relay verbatim, since
// none of wl_data_source's messages carry a new_id of their own.
func (c *Client) handleCreateDataSource(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	mgrID, ok := c.rawDataDeviceManagerID()
	if !ok {
		return nil
	}
	rawSourceID := c.raw.NewID()
	w := wire.NewWriter()
	w.Uint32(rawSourceID)
	msg, _ := w.Finish(mgrID, opcodeDataDeviceManagerCreateDataSource)
	if err := c.raw.Send(msg, nil); err != nil {
		return err
	}
	c.registerPassthroughPair(newID, rawSourceID, "wl_data_source")
	return nil
}

// handleGetDataDevice mints a raw wl_data_device against the host seat
// input.go already bound, and registers a custom event handler instead
// of a generic pass-through pair, since data_offer/enter/selection
// events carry offer ids that must be remapped into freshly allocated
// server-side wl_data_offer objects Xwayland can reference.
func (c *Client) handleGetDataDevice(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	_, err = r.Uint32() // seat; this satellite advertises exactly one
	if err != nil {
		return err
	}
	mgrID, ok := c.rawDataDeviceManagerID()
	if !ok {
		return nil
	}
	if c.host == nil || c.host.RawSeatID() == 0 {
		xlog.L.Warn("no host seat bound; drag-and-drop disabled")
		return nil
	}
	rawDeviceID := c.raw.NewID()
	w := wire.NewWriter()
	w.Uint32(rawDeviceID).Uint32(c.host.RawSeatID())
	msg, _ := w.Finish(mgrID, opcodeDataDeviceManagerGetDataDevice)
	if err := c.raw.Send(msg, nil); err != nil {
		return err
	}

	c.mu.Lock()
	if c.serverToRaw == nil {
		c.serverToRaw = make(map[uint32]uint32)
		c.rawToServer = make(map[uint32]uint32)
	}
	c.serverToRaw[newID] = rawDeviceID
	c.rawToServer[rawDeviceID] = newID
	c.mu.Unlock()

	c.Register(&Object{
		ID:        newID,
		Interface: "wl_data_device",
		Requests: map[uint16]RequestHandler{
			opcodeDataDeviceStartDrag:    c.handleStartDrag,
			opcodeDataDeviceSetSelection: c.handleSetSelection,
			opcodeDataDeviceRelease:      handleSurfaceNoopForward(c),
		},
	})
	c.raw.On(rawDeviceID, c.onRawDataDeviceEvent(newID))
	return nil
}

// rawOriginSurface resolves an Xwayland wl_surface server id to the
// raw host-side surface id start_drag/set_selection must carry,
// looking through the registry's HostSurface indirection the same way
// forwardCurrentBuffer does (surface.go).
func (c *Client) rawOriginSurface(serverSurfaceID uint32) (uint32, bool) {
	if serverSurfaceID == 0 || c.host == nil {
		return 0, false
	}
	surf, ok := c.reg.Surface(serverSurfaceID)
	if !ok || surf.HostSurface == 0 {
		return 0, false
	}
	return c.host.RawSurfaceID(surf.HostSurface)
}

func (c *Client) handleStartDrag(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	sourceID, err := r.Uint32()
	if err != nil {
		return err
	}
	originID, err := r.Uint32()
	if err != nil {
		return err
	}
	iconID, err := r.Uint32()
	if err != nil {
		return err
	}
	serial, err := r.Uint32()
	if err != nil {
		return err
	}

	c.mu.Lock()
	rawDeviceID := c.serverToRaw[sender]
	var rawSource uint32
	if sourceID != 0 {
		rawSource = c.serverToRaw[sourceID]
	}
	var rawIcon uint32
	if iconID != 0 {
		rawIcon = c.serverToRaw[iconID]
	}
	c.mu.Unlock()

	rawOrigin, ok := c.rawOriginSurface(originID)
	if !ok {
		xlog.L.Warn("start_drag: origin surface has no host role", "surface", originID)
		return nil
	}

	w := wire.NewWriter()
	w.Uint32(rawSource).Uint32(rawOrigin).Uint32(rawIcon).Uint32(serial)
	msg, _ := w.Finish(rawDeviceID, opcodeDataDeviceStartDrag)
	return c.raw.Send(msg, nil)
}

func (c *Client) handleSetSelection(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	sourceID, err := r.Uint32()
	if err != nil {
		return err
	}
	serial, err := r.Uint32()
	if err != nil {
		return err
	}
	c.mu.Lock()
	rawDeviceID := c.serverToRaw[sender]
	var rawSource uint32
	if sourceID != 0 {
		rawSource = c.serverToRaw[sourceID]
	}
	c.mu.Unlock()

	w := wire.NewWriter()
	w.Uint32(rawSource).Uint32(serial)
	msg, _ := w.Finish(rawDeviceID, opcodeDataDeviceSetSelection)
	return c.raw.Send(msg, nil)
}

// onRawDataDeviceEvent translates host data_device events back onto
// Xwayland's data_device object, minting a server-side wl_data_offer
// the first time one is announced (spec §4.6).
func (c *Client) onRawDataDeviceEvent(serverDeviceID uint32) func(opcode uint16, body []byte, fds []int) {
	return func(opcode uint16, body []byte, fds []int) {
		r := wire.NewReader(body, fds)
		switch opcode {
		case eventDataDeviceDataOffer:
			rawOfferID, err := r.Uint32()
			if err != nil {
				return
			}
			serverOfferID := c.allocateServerID()
			c.registerDataOffer(serverOfferID, rawOfferID)
			w := wire.NewWriter()
			w.Uint32(serverOfferID)
			msg, _ := w.Finish(serverDeviceID, eventDataDeviceDataOffer)
			_ = c.SendEvent(msg, nil)

		case eventDataDeviceEnter:
			serial, _ := r.Uint32()
			rawSurface, _ := r.Uint32()
			x, _ := r.Fixed()
			y, _ := r.Fixed()
			rawOfferID, _ := r.Uint32()
			serverSurfaceID, ok := c.serverSurfaceForRaw(rawSurface)
			if !ok {
				return
			}
			c.mu.Lock()
			serverOfferID := c.rawToServer[rawOfferID]
			c.mu.Unlock()
			w := wire.NewWriter()
			w.Uint32(serial).Uint32(serverSurfaceID).Fixed(x).Fixed(y).Uint32(serverOfferID)
			msg, _ := w.Finish(serverDeviceID, eventDataDeviceEnter)
			_ = c.SendEvent(msg, nil)

		case eventDataDeviceLeave:
			msg, _ := wire.NewWriter().Finish(serverDeviceID, eventDataDeviceLeave)
			_ = c.SendEvent(msg, nil)

		case eventDataDeviceMotion:
			time, _ := r.Uint32()
			x, _ := r.Fixed()
			y, _ := r.Fixed()
			w := wire.NewWriter()
			w.Uint32(time).Fixed(x).Fixed(y)
			msg, _ := w.Finish(serverDeviceID, eventDataDeviceMotion)
			_ = c.SendEvent(msg, nil)

		case eventDataDeviceDrop:
			msg, _ := wire.NewWriter().Finish(serverDeviceID, eventDataDeviceDrop)
			_ = c.SendEvent(msg, nil)

		case eventDataDeviceSelection:
			rawOfferID, _ := r.Uint32()
			var serverOfferID uint32
			if rawOfferID != 0 {
				c.mu.Lock()
				serverOfferID = c.rawToServer[rawOfferID]
				c.mu.Unlock()
			}
			w := wire.NewWriter()
			w.Uint32(serverOfferID)
			msg, _ := w.Finish(serverDeviceID, eventDataDeviceSelection)
			_ = c.SendEvent(msg, nil)
		}
	}
}

// serverSurfaceForRaw resolves a raw host surface id carried on a
// data_device.enter event back to the Xwayland-facing server surface
// under the drag, mirroring hostclient's own HostSurfaceForRawSurface
// + SurfaceByHostSurface chain used for pointer/keyboard routing.
func (c *Client) serverSurfaceForRaw(rawSurfaceID uint32) (uint32, bool) {
	if c.host == nil {
		return 0, false
	}
	hostSurfaceID, ok := c.host.HostSurfaceForRawSurface(rawSurfaceID)
	if !ok {
		return 0, false
	}
	surf, ok := c.reg.SurfaceByHostSurface(hostSurfaceID)
	if !ok {
		return 0, false
	}
	return surf.ID, true
}

// registerDataOffer mints an Xwayland-facing wl_data_offer mirroring a
// host one: accept/receive/finish/set_actions/destroy requests and the
// offer/source_actions/action events relay verbatim since none carry a
// further new_id, so an ordinary pass-through pair suffices once the
// object exists.
func (c *Client) registerDataOffer(serverOfferID, rawOfferID uint32) {
	c.registerPassthroughPair(serverOfferID, rawOfferID, "wl_data_offer")
}
