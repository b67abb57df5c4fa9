package xwlserver

import (
	"github.com/bnema/xwsatellite/internal/wire"
	"github.com/bnema/xwsatellite/internal/xlog"
)

const (
	opcodeShmCreatePool uint16 = 0

	opcodeShmPoolCreateBuffer uint16 = 0
	opcodeShmPoolDestroy      uint16 = 1
	opcodeShmPoolResize       uint16 = 2

	opcodeBufferDestroy uint16 = 0
)

// bufferSize is the pixel geometry of a wl_buffer, recorded at
// create_buffer time so handleSurfaceCommit can compute the viewport
// destination rect (spec §4.3: "dest rect = logical_size", derived
// from the attached buffer's pixel size and the output scale) without
// having to decode the shm pool's pixel data itself.
type bufferSize struct{ w, h int32 }

// bindShm intercepts wl_shm specifically, rather than relaying it
// generically (passthrough.go), because create_pool/create_buffer
// mint new_id sub-objects a verbatim byte relay can't remap between
// the server and raw host id spaces. Each sub-object is registered as
// an ordinary pass-through pair afterward, so wl_buffer.release events
// still relay back to Xwayland for free via the existing mechanism.
func (c *Client) bindShm(newID uint32, version uint32) {
	if c.raw == nil {
		xlog.L.Warn("wl_shm requested with no raw host connection")
		return
	}
	rawID, ok := c.raw.Bind("wl_shm", 1)
	if !ok {
		xlog.L.Warn("host did not advertise wl_shm")
		return
	}
	c.registerPassthroughPair(newID, rawID, "wl_shm")
	c.Register(&Object{
		ID:        newID,
		Interface: "wl_shm",
		Requests: map[uint16]RequestHandler{
			opcodeShmCreatePool: c.handleShmCreatePool,
		},
	})
}

func (c *Client) handleShmCreatePool(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	size, err := r.Int32()
	if err != nil {
		return err
	}
	fd, err := r.FD()
	if err != nil {
		return err
	}

	c.mu.Lock()
	rawShmID := c.serverToRaw[sender]
	c.mu.Unlock()

	rawPoolID := c.raw.NewID()
	w := wire.NewWriter()
	w.Uint32(rawPoolID).FD(fd).Int32(size)
	msg, outFDs := w.Finish(rawShmID, opcodeShmCreatePool)
	if err := c.raw.Send(msg, outFDs); err != nil {
		return err
	}

	c.registerPassthroughPair(newID, rawPoolID, "wl_shm_pool")
	c.Register(&Object{
		ID:        newID,
		Interface: "wl_shm_pool",
		Requests: map[uint16]RequestHandler{
			opcodeShmPoolCreateBuffer: c.handleShmPoolCreateBuffer,
			opcodeShmPoolDestroy:      c.handleShmPoolDestroy,
			opcodeShmPoolResize:       handleSurfaceNoopForward(c),
		},
	})
	return nil
}

// handleSurfaceNoopForward relays set_size-style requests with no
// new_id arguments straight through via forwardAnyRequest's mechanism,
// reused here since wl_shm_pool.resize needs no remapping of its own.
func handleSurfaceNoopForward(c *Client) RequestHandler {
	return func(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
		return c.forwardAnyRequest(sender, opcode, body, fds)
	}
}

func (c *Client) handleShmPoolCreateBuffer(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	offset, err := r.Int32()
	if err != nil {
		return err
	}
	width, err := r.Int32()
	if err != nil {
		return err
	}
	height, err := r.Int32()
	if err != nil {
		return err
	}
	stride, err := r.Int32()
	if err != nil {
		return err
	}
	format, err := r.Int32()
	if err != nil {
		return err
	}

	c.mu.Lock()
	rawPoolID := c.serverToRaw[sender]
	c.mu.Unlock()

	rawBufferID := c.raw.NewID()
	w := wire.NewWriter()
	w.Uint32(rawBufferID).Int32(offset).Int32(width).Int32(height).Int32(stride).Int32(format)
	msg, _ := w.Finish(rawPoolID, opcodeShmPoolCreateBuffer)
	if err := c.raw.Send(msg, nil); err != nil {
		return err
	}

	c.registerPassthroughPair(newID, rawBufferID, "wl_buffer")
	c.setBufferSize(newID, width, height)
	c.Register(&Object{
		ID:        newID,
		Interface: "wl_buffer",
		Requests: map[uint16]RequestHandler{
			opcodeBufferDestroy: c.handleBufferDestroy,
		},
	})
	return nil
}

func (c *Client) handleShmPoolDestroy(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	if err := c.forwardAnyRequest(sender, opcode, body, fds); err != nil {
		return err
	}
	c.unregisterPassthrough(sender)
	c.Unregister(sender)
	return nil
}

func (c *Client) handleBufferDestroy(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	if err := c.forwardAnyRequest(sender, opcode, body, fds); err != nil {
		return err
	}
	c.unregisterPassthrough(sender)
	c.clearBufferSize(sender)
	c.Unregister(sender)
	return nil
}

func (c *Client) setBufferSize(bufferID uint32, w, h int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bufferSizes == nil {
		c.bufferSizes = make(map[uint32]bufferSize)
	}
	c.bufferSizes[bufferID] = bufferSize{w: w, h: h}
}

func (c *Client) clearBufferSize(bufferID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bufferSizes, bufferID)
}

func (c *Client) getBufferSize(bufferID uint32) (bufferSize, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bs, ok := c.bufferSizes[bufferID]
	return bs, ok
}
