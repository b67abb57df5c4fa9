package hostclient

import (
	"github.com/bnema/xwsatellite/internal/geometry"
	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// onGlobal is the registry's global-announce handler. It binds the
// proxies we actually use and records every advertised name so Connect
// can check the required set; unrecognized globals are left unbound
// and simply noted as present for HasGlobal callers that only probe
// capability (spec §4.2 "the satellite never refuses to run solely
// because an optional global is absent").
func (c *Client) onGlobal(ev client.RegistryGlobalEvent) {
	c.mu.Lock()
	c.haveGlobal[ev.Interface] = true
	c.mu.Unlock()

	ctx := c.registry.Context()

	switch ev.Interface {
	case "wl_compositor":
		comp := client.NewCompositorId(ctx)
		_ = c.registry.Bind(ev.Name, ev.Interface, ev.Version, comp)
		c.compositor = comp
	case "wl_subcompositor":
		sub := client.NewSubcompositorId(ctx)
		_ = c.registry.Bind(ev.Name, ev.Interface, ev.Version, sub)
		c.subcompositor = sub
	case "wl_shm":
		shm := client.NewShmId(ctx)
		_ = c.registry.Bind(ev.Name, ev.Interface, ev.Version, shm)
		c.shm = shm
	case "wl_seat":
		seat := client.NewSeatId(ctx)
		_ = c.registry.Bind(ev.Name, ev.Interface, ev.Version, seat)
		c.onSeatBound(ev.Name, seat)
	case "wl_output":
		out := client.NewOutputId(ctx)
		_ = c.registry.Bind(ev.Name, ev.Interface, ev.Version, out)
		c.onOutputBound(ev.Name, out)
	case "xdg_wm_base":
		base := client.NewWmBaseId(ctx)
		_ = c.registry.Bind(ev.Name, ev.Interface, ev.Version, base)
		c.wmBase = base
		base.SetPingHandler(func(p client.WmBasePingEvent) {
			_ = base.Pong(p.Serial)
		})
	default:
		// Every other global only has its name recorded here. On this
		// connection, wl_data_device_manager (clipboard.go),
		// zwp_primary_selection_device_manager_v1 (primary.go) and
		// zxdg_exporter/importer_v2 (foreign.go) are bound lazily against
		// that name the first time a consumer needs them; wp_viewporter and
		// xdg_activation_v1 are bound on the shared raw connection instead
		// (client.go's bindRawGlobals). The rest are not bound by this
		// package.
		c.globalNames[ev.Interface] = ev.Name
	}
}

// onGlobalRemove drops bookkeeping for a global that has gone away
// (e.g. an unplugged output); a removed wl_output is also dropped from
// the output tracker (outputs.go), which repacks the remaining outputs.
func (c *Client) onGlobalRemove(ev client.RegistryGlobalRemoveEvent) {
	if label := outputLabel(ev.Name); c.reg.Outputs()[label] != nil {
		c.outputs.Remove(label)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for iface, name := range c.globalNames {
		if name == ev.Name {
			delete(c.globalNames, iface)
		}
	}
}

// onOutputBound wires an output's geometry/mode/scale/done events into
// the shared registry via the output tracker, translating the
// wl_output wire events into geometry.OutputPlacement (spec §4.2/§4.3).
func (c *Client) onOutputBound(name uint32, out *client.Output) {
	pending := &pendingOutput{name: out}
	out.SetGeometryHandler(func(ev client.OutputGeometryEvent) {
		pending.transform = int32(ev.Transform)
	})
	out.SetModeHandler(func(ev client.OutputModeEvent) {
		if ev.Flags&uint32(client.OutputModeFlagCurrent) != 0 {
			pending.pixelW, pending.pixelH = ev.Width, ev.Height
		}
	})
	out.SetScaleHandler(func(ev client.OutputScaleEvent) {
		pending.scale = float64(ev.Factor)
	})
	out.SetDoneHandler(func(client.OutputDoneEvent) {
		if pending.scale == 0 {
			pending.scale = 1
		}
		logicalW := int32(float64(pending.pixelW) / pending.scale)
		logicalH := int32(float64(pending.pixelH) / pending.scale)
		label := outputLabel(name)
		c.outputs.AddReal(label, geometry.OutputPlacement{
			Scale:       pending.scale,
			LogicalSize: geometry.Size{W: logicalW, H: logicalH},
		}, pending.transform)
	})
}

type pendingOutput struct {
	name           *client.Output
	pixelW, pixelH int32
	scale          float64
	transform      int32
}

func outputLabel(name uint32) string {
	return "wl-output-" + itoa(name)
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	buf := [10]byte{}
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func (c *Client) onSeatBound(name uint32, seat *client.Seat) {
	c.seats[name] = seat
}
