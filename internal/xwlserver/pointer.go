package xwlserver

import (
	"github.com/bnema/xwsatellite/internal/geometry"
	"github.com/bnema/xwsatellite/internal/wire"
)

const (
	eventPointerEnter  uint16 = 0
	eventPointerLeave  uint16 = 1
	eventPointerMotion uint16 = 2
	eventPointerButton uint16 = 3
	eventPointerAxis   uint16 = 4
	eventPointerFrame  uint16 = 5
)

// EmitPointerMotion rewrites a host pointer position (logical,
// surface-local) into root coordinates via geometry.PointerToRoot and
// forwards it to Xwayland as wl_pointer.motion on the surface's
// associated server surface (spec §8 scenario 4: "floor(origin +
// local*scale + 0.5)").
func (c *Client) EmitPointerMotion(pointerObjectID uint32, out geometry.OutputPlacement, local geometry.LogicalPoint, time uint32) error {
	root := geometry.PointerToRoot(out, local)

	w := wire.NewWriter()
	w.Uint32(time).Fixed(float64(root.X)).Fixed(float64(root.Y))
	msg, _ := w.Finish(pointerObjectID, eventPointerMotion)
	if err := c.SendEvent(msg, nil); err != nil {
		return err
	}
	return c.emitFrame(pointerObjectID)
}

// EmitPointerEnter announces pointer entry onto serverSurfaceID at the
// translated root-space position.
func (c *Client) EmitPointerEnter(pointerObjectID uint32, serial uint32, serverSurfaceID uint32, out geometry.OutputPlacement, local geometry.LogicalPoint) error {
	root := geometry.PointerToRoot(out, local)
	w := wire.NewWriter()
	w.Uint32(serial).Uint32(serverSurfaceID).Fixed(float64(root.X)).Fixed(float64(root.Y))
	msg, _ := w.Finish(pointerObjectID, eventPointerEnter)
	if err := c.SendEvent(msg, nil); err != nil {
		return err
	}
	return c.emitFrame(pointerObjectID)
}

func (c *Client) EmitPointerLeave(pointerObjectID uint32, serial uint32, serverSurfaceID uint32) error {
	w := wire.NewWriter()
	w.Uint32(serial).Uint32(serverSurfaceID)
	msg, _ := w.Finish(pointerObjectID, eventPointerLeave)
	if err := c.SendEvent(msg, nil); err != nil {
		return err
	}
	return c.emitFrame(pointerObjectID)
}

func (c *Client) EmitPointerButton(pointerObjectID uint32, serial, time, button, state uint32) error {
	w := wire.NewWriter()
	w.Uint32(serial).Uint32(time).Uint32(button).Uint32(state)
	msg, _ := w.Finish(pointerObjectID, eventPointerButton)
	if err := c.SendEvent(msg, nil); err != nil {
		return err
	}
	return c.emitFrame(pointerObjectID)
}

func (c *Client) emitFrame(pointerObjectID uint32) error {
	w := wire.NewWriter()
	msg, _ := w.Finish(pointerObjectID, eventPointerFrame)
	return c.SendEvent(msg, nil)
}
