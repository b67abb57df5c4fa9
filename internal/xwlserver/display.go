package xwlserver

import (
	"github.com/bnema/xwsatellite/internal/wire"
)

const (
	displayID  uint32 = 1
	opcodeDisplaySync      uint16 = 0
	opcodeDisplayGetRegistry uint16 = 1

	opcodeRegistryBind uint16 = 0

	eventDisplayError       uint16 = 0
	eventDisplayDeleteID    uint16 = 1
	eventRegistryGlobal     uint16 = 0
	eventRegistryGlobalRemove uint16 = 1
	eventCallbackDone       uint16 = 0
)

// globalDesc is one entry Xwayland will see advertised on wl_registry
// (spec §4.3's pass-through/intercepted/synthesised roster).
type globalDesc struct {
	name      uint32
	interfaceName string
	version   uint32
	bind      func(newID uint32, version uint32)
}

// bootstrapDisplay registers object 1 (wl_display) and, once the
// client requests it, a wl_registry advertising every global this
// satellite presents to Xwayland.
func (c *Client) bootstrapDisplay() {
	c.displayID = displayID
	c.Register(&Object{
		ID:        displayID,
		Interface: "wl_display",
		Requests: map[uint16]RequestHandler{
			opcodeDisplaySync: handleDisplaySync,
			opcodeDisplayGetRegistry: handleGetRegistry,
		},
	})
}

func handleDisplaySync(c *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	callbackID, err := r.Uint32()
	if err != nil {
		return err
	}
	w := wire.NewWriter()
	w.Uint32(0) // serial; satellite doesn't need a meaningful one
	msg, _ := w.Finish(callbackID, eventCallbackDone)
	return c.SendEvent(msg, nil)
}

func handleGetRegistry(c *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	registryID, err := r.Uint32()
	if err != nil {
		return err
	}
	c.registryID = registryID
	c.Register(&Object{
		ID:        registryID,
		Interface: "wl_registry",
		Requests: map[uint16]RequestHandler{
			opcodeRegistryBind: handleRegistryBind,
		},
	})
	for _, g := range c.globals() {
		w := wire.NewWriter()
		w.Uint32(g.name).String(g.interfaceName).Uint32(g.version)
		msg, _ := w.Finish(registryID, eventRegistryGlobal)
		if err := c.SendEvent(msg, nil); err != nil {
			return err
		}
	}
	return nil
}

func handleRegistryBind(c *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	name, err := r.Uint32()
	if err != nil {
		return err
	}
	_, err = r.String() // interface string Xwayland asserts; trusted to match
	if err != nil {
		return err
	}
	version, err := r.Uint32()
	if err != nil {
		return err
	}
	newID, err := r.Uint32()
	if err != nil {
		return err
	}

	for _, g := range c.globals() {
		if g.name == name {
			g.bind(newID, version)
			return nil
		}
	}
	return nil
}

// globals is the fixed roster advertised to every Xwayland connection
// (spec §4.3): wl_compositor/wl_output/wl_seat/wl_shm and
// wl_data_device_manager are intercepted, xwayland_shell_v1 drives
// modern association, the rest are pass-through proxies onto the
// matching host global.
func (c *Client) globals() []globalDesc {
	list := []globalDesc{
		{name: 1, interfaceName: "wl_compositor", version: 5, bind: c.bindCompositor},
		{name: 2, interfaceName: "xwayland_shell_v1", version: 1, bind: c.bindXwaylandShell},
		{name: 3, interfaceName: "wp_viewporter", version: 1, bind: c.bindPassthroughViewporter},
		{name: 4, interfaceName: "wl_shm", version: 1, bind: c.bindShm},
		{name: 5, interfaceName: "wl_seat", version: 5, bind: c.bindSeat},
	}
	id := uint32(6)
	for name := range c.reg.Outputs() {
		list = append(list, globalDesc{name: id, interfaceName: "wl_output", version: 4, bind: c.bindOutputFor(name)})
		id++
	}
	if c.raw != nil {
		for _, iface := range passthroughInterfaces {
			if !c.raw.HasGlobal(iface) {
				continue
			}
			list = append(list, globalDesc{name: id, interfaceName: iface, version: 1, bind: c.bindGenericPassthrough(iface)})
			id++
		}
		if c.raw.HasGlobal("wl_data_device_manager") {
			list = append(list, globalDesc{name: id, interfaceName: "wl_data_device_manager", version: 3, bind: c.bindDataDeviceManager})
			id++
		}
	}
	return list
}

// passthroughInterfaces are forwarded opaquely onto the host global of
// the same name when the host advertises it (spec §4.3's pass-through
// roster: dmabuf, tablet, relative-pointer, pointer-constraints,
// activation, foreign, primary-selection managers). wl_shm and
// wl_data_device_manager are intercepted specifically instead (shm.go,
// dnd.go) since their requests mint new_id sub-objects a verbatim
// relay can't remap.
var passthroughInterfaces = []string{
	"zwp_linux_dmabuf_v1",
	"zwp_tablet_manager_v2",
	"zwp_relative_pointer_manager_v1",
	"zwp_pointer_constraints_v1",
	"xdg_activation_v1",
	"zxdg_exporter_v2",
	"zxdg_importer_v2",
	"zwp_primary_selection_device_manager_v1",
}
