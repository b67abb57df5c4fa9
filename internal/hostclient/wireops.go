package hostclient

// Raw wire opcodes for the host-facing protocol objects this package
// now drives directly over the shared hostwire.Conn instead of through
// generated go-wayland proxies, because those objects (surfaces,
// roles, viewports) must share an id namespace with buffers/surfaces
// forwarded out of xwlserver (spec §4.3). Request opcodes for
// xdg_wm_base/xdg_surface/xdg_toplevel/xdg_popup/xdg_positioner are
// grounded on the matching generated binding in
// _examples/other_examples (gogpu's hand-written xdg_shell client);
// wp_viewport and xdg_activation_v1 follow the same stable
// wayland-protocols request ordering (no new_id/object argument ever
// precedes a later one in the same request for these two interfaces).
const (
	opcodeCompositorCreateSurface uint16 = 0

	opcodeSurfaceDestroy          uint16 = 0
	opcodeSurfaceAttach           uint16 = 1
	opcodeSurfaceDamage           uint16 = 2
	opcodeSurfaceFrame            uint16 = 3
	opcodeSurfaceSetOpaqueRegion  uint16 = 4
	opcodeSurfaceSetInputRegion   uint16 = 5
	opcodeSurfaceCommit           uint16 = 6
	opcodeSurfaceSetBufferScale   uint16 = 8

	opcodeViewportDestroy       uint16 = 0
	opcodeViewportSetSource     uint16 = 1
	opcodeViewportSetDestination uint16 = 2

	opcodeViewporterGetViewport uint16 = 1

	opcodeWmBaseCreatePositioner uint16 = 1
	opcodeWmBaseGetXdgSurface    uint16 = 2
	opcodeWmBasePong             uint16 = 3
	eventWmBasePing              uint16 = 0

	opcodeXdgSurfaceDestroy           uint16 = 0
	opcodeXdgSurfaceGetToplevel       uint16 = 1
	opcodeXdgSurfaceGetPopup          uint16 = 2
	opcodeXdgSurfaceAckConfigure      uint16 = 4
	eventXdgSurfaceConfigure          uint16 = 0

	opcodeToplevelDestroy   uint16 = 0
	opcodeToplevelSetParent uint16 = 1
	opcodeToplevelSetTitle  uint16 = 2
	opcodeToplevelSetAppID  uint16 = 3
	opcodeToplevelSetMaxSize uint16 = 7
	opcodeToplevelSetMinSize uint16 = 8
	eventToplevelConfigure  uint16 = 0
	eventToplevelClose      uint16 = 1
	eventToplevelConfigureBounds uint16 = 2

	opcodePositionerDestroy       uint16 = 0
	opcodePositionerSetSize       uint16 = 1
	opcodePositionerSetAnchorRect uint16 = 2
	opcodePositionerSetAnchor     uint16 = 3
	opcodePositionerSetGravity    uint16 = 4
	opcodePositionerSetOffset     uint16 = 6

	opcodePopupDestroy uint16 = 0
	eventPopupConfigure  uint16 = 0
	eventPopupPopupDone  uint16 = 1

	opcodeActivationGetToken uint16 = 1
	opcodeActivationActivate uint16 = 2
	opcodeActivationTokenSetSerial uint16 = 0
	opcodeActivationTokenSetAppID  uint16 = 1
	opcodeActivationTokenSetSurface uint16 = 2
	opcodeActivationTokenCommit     uint16 = 3
	eventActivationTokenDone        uint16 = 0

	xdgPositionerAnchorTopLeft      uint32 = 5
	xdgPositionerGravityBottomRight uint32 = 8
)
