// Package hostclient is the host-side Wayland client (spec §4.2): it
// discovers host globals, tracks outputs/seats, and creates host-side
// surfaces/roles on behalf of X windows. It's the one component that
// speaks to the host compositor as an ordinary client, the way
// bnema-waymon/internal/wayland.WaylandClient speaks to whatever
// compositor it's running under, adapted here from input capture to
// surface/role brokering.
package hostclient

import (
	"fmt"
	"sync"

	"github.com/bnema/xwsatellite/internal/hostwire"
	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/bnema/xwsatellite/internal/xlog"
	"github.com/bnema/xwsatellite/internal/xwmerr"
	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// requiredGlobals must be present or startup fails fatally (spec §4.2).
var requiredGlobals = []string{"xdg_wm_base", "wp_viewporter"}

// optionalGlobals are bound when advertised; their absence only
// disables the corresponding feature.
var optionalGlobals = []string{
	"wl_compositor", "wl_subcompositor", "wl_shm", "wl_seat", "wl_output",
	"zwp_linux_dmabuf_v1", "xdg_activation_v1", "zxdg_exporter_v2",
	"zxdg_importer_v2", "zwp_pointer_constraints_v1",
	"zwp_relative_pointer_manager_v1", "zwp_tablet_manager_v2",
	"wp_fractional_scale_manager_v1", "zwp_primary_selection_device_manager_v1",
	"wl_data_device_manager",
}

// RoleHandle is returned by InstallToplevel/InstallPopup; its events are
// routed back to the XWM via the callbacks supplied at install time.
type RoleHandle struct {
	HostSurfaceID uint32
	Kind          registry.Kind
}

// ToplevelCallbacks receives host xdg_toplevel events translated back
// to the XWM (spec §4.2).
type ToplevelCallbacks struct {
	OnConfigure func(width, height int32, states []uint32)
	OnClose     func()
	OnBounds    func(width, height int32)
}

// PopupCallbacks receives host xdg_popup events.
type PopupCallbacks struct {
	OnConfigure func(x, y, width, height int32)
	OnDismiss   func()
}

// Client is the host-side Wayland client.
type Client struct {
	mu sync.Mutex

	reg     *registry.Registry
	outputs *OutputTracker

	// raw is the shared hostwire connection (spec §4.3): every object
	// that must share an id namespace with surfaces/buffers forwarded
	// out of xwlserver is minted here instead of on display/registry
	// below, which remains the generated-binding connection used only
	// for output tracking and the clipboard selection bridge.
	raw              *hostwire.Conn
	rawCompositorID  uint32
	rawWmBaseID      uint32
	rawViewporterID  uint32
	rawActivationID  uint32
	rawSeatID        uint32

	rawSurfaceToHost map[uint32]uint32

	// lastKeymap caches the most recent host wl_keyboard.keymap event so
	// it can be replayed once Xwayland actually requests wl_keyboard
	// (OnKeyboardBound): the host seat listener binds immediately at
	// startup and routinely receives the keymap well before Xwayland
	// gets around to asking for one.
	haveKeymap     bool
	lastKeymapFD   int
	lastKeymapSize uint32

	// input is where translated host pointer/keyboard/touch events are
	// relayed (spec §4.3 input routing); set via SetInputSink once
	// xwlserver's Server/Client exists, since that package imports this
	// one and a direct field would cycle.
	input HostInputSink

	display  *client.Display
	registry *client.Registry

	compositor      *client.Compositor
	subcompositor   *client.Subcompositor
	shm             *client.Shm
	wmBase          *client.WmBase
	viewporterProxy *client.Viewporter
	activationProxy *client.XdgActivationV1
	exporterProxy   *client.ZxdgExporterV2
	importerProxy   *client.ZxdgImporterV2
	dataDeviceMgr   *client.DataDeviceManager
	dataDevices     map[uint32]*client.DataDevice // keyed by seat name
	seats           map[uint32]*client.Seat

	surfaces map[uint32]*hostSurfaceHandle

	haveGlobal  map[string]bool
	globalNames map[string]uint32

	clip    *clipboardState
	primary *primarySelection

	// onSelectionSend is invoked when a host client requests data from
	// a wl_data_source we created; wired by cmd/root.go to the clipboard
	// bridge's ServeWaylandRequest, streaming the write end of fd.
	onSelectionSend func(name registry.SelectionName, mime string, fd uintptr)

	// onOfferChanged is invoked once a host data_device's new offer has
	// announced all its mime types (or been cleared); wired by cmd/root.go
	// to the clipboard bridge's OnWaylandOfferChanged.
	onOfferChanged func(name registry.SelectionName, mimeTypes []string)

	nextHostID uint32
}

// New creates a Client bound to reg, driving surface/role/viewport
// requests over the shared raw connection (spec §4.3).
func New(reg *registry.Registry, raw *hostwire.Conn) *Client {
	return &Client{
		reg:         reg,
		outputs:     NewOutputTracker(reg),
		raw:         raw,
		seats:       make(map[uint32]*client.Seat),
		dataDevices: make(map[uint32]*client.DataDevice),
		clip:        newClipboardState(),
		surfaces:    make(map[uint32]*hostSurfaceHandle),
		haveGlobal:  make(map[string]bool),
		globalNames: make(map[string]uint32),
		nextHostID:  1,
	}
}

// Connect dials the host compositor's WAYLAND_DISPLAY socket and binds
// globals. Fatal if a required global never appears after the initial
// registry round trip.
func (c *Client) Connect() error {
	display, err := client.Connect("")
	if err != nil {
		return fmt.Errorf("connecting to host compositor: %w", err)
	}
	c.display = display

	reg, err := display.GetRegistry()
	if err != nil {
		display.Destroy()
		return fmt.Errorf("getting host registry: %w", err)
	}
	c.registry = reg

	// The generated client binding emits one RegistryGlobal event per
	// advertised name; we record presence here and perform the actual
	// Bind() calls from the matching typed handler in globals.go. Both
	// required and optional globals funnel through the same bookkeeping
	// so the required-globals check below can see which arrived.
	c.registry.SetGlobalHandler(c.onGlobal)
	c.registry.SetGlobalRemoveHandler(c.onGlobalRemove)

	// Round-trip so all initial globals have been advertised before we
	// validate the required set.
	if err := c.roundTrip(); err != nil {
		return fmt.Errorf("initial host registry round trip: %w", err)
	}

	for _, name := range requiredGlobals {
		if !c.haveGlobal[name] {
			return fmt.Errorf("host compositor did not advertise %s: %w", name, xwmerr.ErrMissingRequiredGlobal)
		}
	}

	if err := c.bindRawGlobals(); err != nil {
		return err
	}

	xlog.L.Info("connected to host compositor", "globals", len(c.haveGlobal))
	return nil
}

// bindRawGlobals binds the required globals that surface/role creation
// needs on the shared raw connection, alongside (not instead of) the
// typed binds globals.go performs on the generated-binding connection.
func (c *Client) bindRawGlobals() error {
	if c.raw == nil {
		return fmt.Errorf("no shared raw host connection")
	}
	// wl_compositor is optional (spec §4.2); without it CreateHostSurface
	// reports an error instead of Connect failing.
	if id, ok := c.raw.Bind("wl_compositor", 5); ok {
		c.rawCompositorID = id
	}

	id, ok := c.raw.Bind("xdg_wm_base", 1)
	if !ok {
		return fmt.Errorf("host did not advertise xdg_wm_base on the raw connection: %w", xwmerr.ErrMissingRequiredGlobal)
	}
	c.rawWmBaseID = id
	c.raw.On(c.rawWmBaseID, c.onWmBaseEvent)

	id, ok = c.raw.Bind("wp_viewporter", 1)
	if !ok {
		return fmt.Errorf("host did not advertise wp_viewporter on the raw connection: %w", xwmerr.ErrMissingRequiredGlobal)
	}
	c.rawViewporterID = id

	if id, ok := c.raw.Bind("xdg_activation_v1", 1); ok {
		c.rawActivationID = id
	}

	c.bindSeatAndInput()
	return nil
}

// RawSeatID exposes the host wl_seat bound on the shared raw
// connection, so xwlserver's data-device interception (dnd.go) can
// call wl_data_device_manager.get_data_device(seat) against the same
// seat object input routing already uses, instead of re-binding the
// global a second time.
func (c *Client) RawSeatID() uint32 { return c.rawSeatID }

// roundTrip drives one display.Dispatch() pass; the Context's blocking
// read is acceptable only here, at startup, before the event loop takes
// over dispatch (spec §4.7 owns all dispatch afterward).
func (c *Client) roundTrip() error {
	return c.display.Context().Dispatch()
}

// HasGlobal reports whether the named optional global was bound.
func (c *Client) HasGlobal(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.haveGlobal[name]
}

// Outputs exposes the output tracker so xwm/xwlserver can query
// placements and the chosen X-screen output (spec §4.2).
func (c *Client) Outputs() *OutputTracker { return c.outputs }

// FD returns the host Wayland connection's file descriptor for the
// event loop's poll set (spec §4.7).
func (c *Client) FD() int {
	return c.display.Context().FD()
}

// Dispatch processes one batch of already-buffered host events; called
// by the event loop when the host fd is readable.
func (c *Client) Dispatch() error {
	return c.display.Context().Dispatch()
}

// Flush writes any pending outgoing requests to the host connection;
// called at the end of each event-loop iteration (spec §4.7).
func (c *Client) Flush() error {
	return c.display.Context().Flush()
}

// Close disconnects from the host compositor.
func (c *Client) Close() {
	if c.display != nil {
		c.display.Destroy()
	}
}

func (c *Client) allocateHostID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextHostID
	c.nextHostID++
	return id
}
