package xwlserver

import (
	"github.com/bnema/xwsatellite/internal/geometry"
	"github.com/bnema/xwsatellite/internal/wire"
)

const (
	eventTouchDown   uint16 = 0
	eventTouchUp     uint16 = 1
	eventTouchMotion uint16 = 2
	eventTouchFrame  uint16 = 3
	eventTouchCancel uint16 = 4
)

// EmitTouchDown forwards a new touch point, translated into root
// coordinates the same way pointer motion is (spec §4.3 input
// routing covers wl_touch alongside wl_pointer/wl_keyboard).
func (c *Client) EmitTouchDown(touchObjectID, serial, time, id uint32, serverSurfaceID uint32, out geometry.OutputPlacement, local geometry.LogicalPoint) error {
	root := geometry.PointerToRoot(out, local)
	w := wire.NewWriter()
	w.Uint32(serial).Uint32(time).Uint32(serverSurfaceID).Int32(int32(id)).Fixed(float64(root.X)).Fixed(float64(root.Y))
	msg, _ := w.Finish(touchObjectID, eventTouchDown)
	if err := c.SendEvent(msg, nil); err != nil {
		return err
	}
	return c.emitTouchFrame(touchObjectID)
}

func (c *Client) EmitTouchUp(touchObjectID, serial, time, id uint32) error {
	w := wire.NewWriter()
	w.Uint32(serial).Uint32(time).Int32(int32(id))
	msg, _ := w.Finish(touchObjectID, eventTouchUp)
	if err := c.SendEvent(msg, nil); err != nil {
		return err
	}
	return c.emitTouchFrame(touchObjectID)
}

func (c *Client) EmitTouchMotion(touchObjectID, time, id uint32, out geometry.OutputPlacement, local geometry.LogicalPoint) error {
	root := geometry.PointerToRoot(out, local)
	w := wire.NewWriter()
	w.Uint32(time).Int32(int32(id)).Fixed(float64(root.X)).Fixed(float64(root.Y))
	msg, _ := w.Finish(touchObjectID, eventTouchMotion)
	if err := c.SendEvent(msg, nil); err != nil {
		return err
	}
	return c.emitTouchFrame(touchObjectID)
}

func (c *Client) emitTouchFrame(touchObjectID uint32) error {
	w := wire.NewWriter()
	msg, _ := w.Finish(touchObjectID, eventTouchFrame)
	return c.SendEvent(msg, nil)
}
