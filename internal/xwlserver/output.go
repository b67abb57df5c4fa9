package xwlserver

import (
	"github.com/bnema/xwsatellite/internal/wire"
)

const (
	eventOutputGeometry uint16 = 0
	eventOutputMode     uint16 = 1
	eventOutputDone     uint16 = 2
	eventOutputScale    uint16 = 3
)

// bindOutputFor returns a bind handler advertising the named output to
// Xwayland at logical scale 1 with pixel-sized geometry (spec §4.3:
// "outputs are reported to Xwayland at scale=1 with geometry expressed
// in host pixels", so X's own DPI/scale model never double-applies the
// host's scale).
func (c *Client) bindOutputFor(name string) func(newID uint32, version uint32) {
	return func(newID uint32, version uint32) {
		out, ok := c.reg.Outputs()[name]
		if !ok {
			return
		}
		c.Register(&Object{ID: newID, Interface: "wl_output", Requests: map[uint16]RequestHandler{
			0: handleSurfaceNoop, // release (v3+): nothing to clean up beyond unregister
		}})

		pixel := out.Placement.PixelSize()

		geomW := wire.NewWriter()
		geomW.Int32(out.Placement.Origin.X).Int32(out.Placement.Origin.Y)
		geomW.Int32(0).Int32(0) // physical_width/height, unknown to the satellite
		geomW.Int32(0)          // subpixel: unknown
		geomW.String("xwsatellite")
		geomW.String(name)
		geomW.Int32(out.Transform)
		geomMsg, _ := geomW.Finish(newID, eventOutputGeometry)
		_ = c.SendEvent(geomMsg, nil)

		modeW := wire.NewWriter()
		modeW.Uint32(1). // current
			Int32(pixel.W).Int32(pixel.H).
			Int32(60000) // refresh: unknown, report a plausible default
		modeMsg, _ := modeW.Finish(newID, eventOutputMode)
		_ = c.SendEvent(modeMsg, nil)

		scaleW := wire.NewWriter()
		scaleW.Int32(1)
		scaleMsg, _ := scaleW.Finish(newID, eventOutputScale)
		_ = c.SendEvent(scaleMsg, nil)

		doneW := wire.NewWriter()
		doneMsg, _ := doneW.Finish(newID, eventOutputDone)
		_ = c.SendEvent(doneMsg, nil)
	}
}
