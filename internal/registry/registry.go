// Package registry implements the shared object maps described in spec
// §3 and §4.1: bidirectional lookup between X window ids, server-side
// Wayland surface ids, and host-side Wayland object ids, plus the
// pending tables the surface-association engine consults.
//
// Entities are plain structs rather than an inheritance hierarchy
// (spec §9's entity-component guidance); the Registry is the single
// owner of X-window and server-surface records, everything else is a
// weak (by-id) reference.
package registry

import (
	"sync"

	"github.com/bnema/xwsatellite/internal/geometry"
)

// Kind classifies a mapped window's host role.
type Kind int

const (
	KindUnknown Kind = iota
	KindToplevel
	KindPopup
	KindOverrideRedirect
)

// SurfaceState is the explicit per-surface state machine of spec §9.
type SurfaceState int

const (
	StateNew SurfaceState = iota
	StateAwaitingAssociation
	StateAwaitingConfigure
	StateLive
	StateDestroyed
)

func (s SurfaceState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateAwaitingAssociation:
		return "awaiting_association"
	case StateAwaitingConfigure:
		return "awaiting_configure"
	case StateLive:
		return "live"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// XWindow is an X11 window record (spec §3 "X window" entity).
type XWindow struct {
	ID               uint32
	Geometry         geometry.Rect
	OverrideRedirect bool
	WMClass          string // instance,class second component used for app_id
	WMName           string
	WMProtocols      map[string]bool
	TransientFor     uint32 // 0 if none
	WindowType       string // e.g. _NET_WM_WINDOW_TYPE_MENU
	NetWMState       map[string]bool
	PID              uint32
	Mapped           bool
	Kind             Kind

	// Surface is the server-surface id this window is associated with,
	// or 0 before association.
	Surface uint32
}

// ServerSurface is a wl_surface the Xwayland-facing server created for
// Xwayland (spec §3 "Server surface" entity).
type ServerSurface struct {
	ID uint32

	State SurfaceState

	// PendingBuffers / CurrentBuffer track the deferred-commit rule of
	// spec §4.3: buffers attached before role+configure are buffered
	// and replayed.
	PendingBuffers []uint32 // opaque wl_buffer object ids, arrival order
	CurrentBuffer  uint32

	ViewportSrc  geometry.Rect
	ViewportDest geometry.Size

	// HostSurface is the host-side proxy id once a role has been
	// installed, 0 before that.
	HostSurface uint32
	Role        Kind

	// XWindow is the associated X window id, or 0 before association.
	XWindow uint32
}

// HostSurface is the host-side role state (spec §3 "Host surface").
type HostSurface struct {
	ID            uint32
	Role          Kind
	LastAckSerial uint32
	Configured    bool
}

// Association links an X window to a server surface once the
// WL_SURFACE_ID/WL_SURFACE_SERIAL halves have matched (spec §4.5).
type Association struct {
	XWindow       uint32
	ServerSurface uint32
	Role          Kind
	Focused       bool
}

// Output is a bound host wl_output (spec §3 "Output" entity).
type Output struct {
	Name        string
	Placement   geometry.OutputPlacement
	Transform   int32
	Synthetic   bool // true for the zero-output startup placeholder
}

// Seat is a bound host wl_seat (spec §3 "Seat" entity).
type Seat struct {
	Name        string
	HasPointer  bool
	HasKeyboard bool
	HasTouch    bool
	FocusXID    uint32 // current X focus window, 0 if none
	PointerXID  uint32 // current X window under the pointer, 0 if none
}

// SelectionName identifies an X11 selection atom the clipboard bridge
// tracks.
type SelectionName string

const (
	SelectionClipboard SelectionName = "CLIPBOARD"
	SelectionPrimary   SelectionName = "PRIMARY"
)

// OwnerSide records which protocol currently owns a selection.
type OwnerSide int

const (
	OwnerNone OwnerSide = iota
	OwnerX11
	OwnerWayland
)

// Selection is the bridge's view of one X11 selection atom (spec §3
// "Selection" entity).
type Selection struct {
	Name        SelectionName
	Owner       OwnerSide
	MIMETypes   []string
	Generation  uint64 // bumped on every owner change; cancels in-flight transfers
}

// Registry is the process-wide object index. Not reentrant (spec §9):
// callers on the single event-loop thread must serialize access, except
// for the selection-transfer goroutines which only touch Selection
// records through the synchronized methods below.
type Registry struct {
	mu sync.Mutex

	windows  map[uint32]*XWindow
	surfaces map[uint32]*ServerSurface
	hosts    map[uint32]*HostSurface

	// assocByXID / assocBySurface are two views of the same
	// Association records, weak both ways.
	assocByXID     map[uint32]*Association
	assocBySurface map[uint32]*Association

	// pending tables consulted by the association engine; either half
	// may arrive first (spec §4.5).
	pendingByLegacyID map[uint32]uint32 // WL_SURFACE_ID -> X id
	pendingBySerial   map[uint64]uint32 // WL_SURFACE_SERIAL -> X id
	pendingSurfaceBySerial map[uint64]uint32 // WL_SURFACE_SERIAL -> server surface id

	outputs    map[string]*Output
	seats      map[string]*Seat
	selections map[SelectionName]*Selection
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		windows:                make(map[uint32]*XWindow),
		surfaces:                make(map[uint32]*ServerSurface),
		hosts:                   make(map[uint32]*HostSurface),
		assocByXID:              make(map[uint32]*Association),
		assocBySurface:          make(map[uint32]*Association),
		pendingByLegacyID:       make(map[uint32]uint32),
		pendingBySerial:         make(map[uint64]uint32),
		pendingSurfaceBySerial:  make(map[uint64]uint32),
		outputs:                 make(map[string]*Output),
		seats:                   make(map[string]*Seat),
		selections: map[SelectionName]*Selection{
			SelectionClipboard: {Name: SelectionClipboard},
			SelectionPrimary:   {Name: SelectionPrimary},
		},
	}
}

// --- X windows ---

func (r *Registry) PutWindow(w *XWindow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.windows[w.ID] = w
}

func (r *Registry) Window(id uint32) (*XWindow, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.windows[id]
	return w, ok
}

// DestroyWindow evicts the window record. If it carries a live
// association, the server-surface side is detached but preserved
// (spec §4.1).
func (r *Registry) DestroyWindow(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.windows, id)
	if assoc, ok := r.assocByXID[id]; ok {
		delete(r.assocByXID, id)
		delete(r.assocBySurface, assoc.ServerSurface)
		if surf, ok := r.surfaces[assoc.ServerSurface]; ok {
			surf.XWindow = 0
		}
	}
}

// --- server surfaces ---

func (r *Registry) PutSurface(s *ServerSurface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.surfaces[s.ID] = s
}

func (r *Registry) Surface(id uint32) (*ServerSurface, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.surfaces[id]
	return s, ok
}

func (r *Registry) DestroySurface(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.surfaces, id)
	if assoc, ok := r.assocBySurface[id]; ok {
		delete(r.assocBySurface, id)
		delete(r.assocByXID, assoc.XWindow)
		if w, ok := r.windows[assoc.XWindow]; ok {
			w.Surface = 0
		}
	}
}

// SurfaceByHostSurface finds the server surface whose installed host
// role is hostSurfaceID, the reverse of ServerSurface.HostSurface;
// used to route a host input event addressed to a host surface back
// to the Xwayland-facing wl_surface that owns it (spec §4.3 input
// routing). Satellites host only a handful of surfaces at once, so a
// linear scan is simpler than maintaining a third index.
func (r *Registry) SurfaceByHostSurface(hostSurfaceID uint32) (*ServerSurface, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.surfaces {
		if s.HostSurface == hostSurfaceID {
			return s, true
		}
	}
	return nil, false
}

// --- host surfaces ---

func (r *Registry) PutHostSurface(h *HostSurface) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosts[h.ID] = h
}

func (r *Registry) HostSurface(id uint32) (*HostSurface, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hosts[id]
	return h, ok
}

func (r *Registry) DestroyHostSurface(id uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hosts, id)
}

// --- associations ---

// Associate records a brand new X-window <-> server-surface link. It
// does not itself install the role; the association engine does that
// and then calls this once both sides agree.
func (r *Registry) Associate(a Association) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := a
	r.assocByXID[a.XWindow] = &cp
	r.assocBySurface[a.ServerSurface] = &cp
	if w, ok := r.windows[a.XWindow]; ok {
		w.Surface = a.ServerSurface
	}
	if s, ok := r.surfaces[a.ServerSurface]; ok {
		s.XWindow = a.XWindow
	}
}

func (r *Registry) AssociationByXID(xid uint32) (*Association, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assocByXID[xid]
	return a, ok
}

func (r *Registry) AssociationBySurface(surface uint32) (*Association, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assocBySurface[surface]
	return a, ok
}

// --- pending (legacy WL_SURFACE_ID / modern WL_SURFACE_SERIAL) ---

// NotePendingLegacyXID records the legacy WL_SURFACE_ID ClientMessage
// (data[0] = numeric surface id) for window xid, so a server surface
// with that id can be matched to it. Legacy matching is purely by
// numeric id; TakePendingLegacyXID is the other half.
func (r *Registry) NotePendingLegacyXID(surfaceID, xid uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingByLegacyID[surfaceID] = xid
}

// TakePendingLegacyXID consults (and clears) the pending-by-legacy-id
// table for a freshly created server surface, used when the surface
// side arrives after the X property.
func (r *Registry) TakePendingLegacyXID(surfaceID uint32) (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	xid, ok := r.pendingByLegacyID[surfaceID]
	if ok {
		delete(r.pendingByLegacyID, surfaceID)
	}
	return xid, ok
}

// NotePendingSerialXID records the X property WL_SURFACE_SERIAL -> xid.
func (r *Registry) NotePendingSerialXID(serial uint64, xid uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingBySerial[serial] = xid
}

func (r *Registry) TakePendingSerialXID(serial uint64) (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	xid, ok := r.pendingBySerial[serial]
	if ok {
		delete(r.pendingBySerial, serial)
	}
	return xid, ok
}

// NotePendingSerialSurface records xwayland_shell_v1's
// get_xwayland_surface(surface, serial) request's serial -> surface id.
func (r *Registry) NotePendingSerialSurface(serial uint64, surfaceID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingSurfaceBySerial[serial] = surfaceID
}

func (r *Registry) TakePendingSerialSurface(serial uint64) (uint32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sid, ok := r.pendingSurfaceBySerial[serial]
	if ok {
		delete(r.pendingSurfaceBySerial, serial)
	}
	return sid, ok
}

// --- outputs ---

func (r *Registry) PutOutput(o *Output) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputs[o.Name] = o
}

func (r *Registry) RemoveOutput(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.outputs, name)
}

func (r *Registry) Outputs() map[string]*Output {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]*Output, len(r.outputs))
	for k, v := range r.outputs {
		cp[k] = v
	}
	return cp
}

// --- seats ---

func (r *Registry) PutSeat(s *Seat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seats[s.Name] = s
}

func (r *Registry) Seats() map[string]*Seat {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make(map[string]*Seat, len(r.seats))
	for k, v := range r.seats {
		cp[k] = v
	}
	return cp
}

// --- selections ---

// SetSelectionOwner records a change of owner, bumping Generation so any
// in-flight transfer for the previous owner is recognised as stale
// (spec §3 invariant, §4.6).
func (r *Registry) SetSelectionOwner(name SelectionName, owner OwnerSide, mimeTypes []string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	sel := r.selections[name]
	sel.Owner = owner
	sel.MIMETypes = mimeTypes
	sel.Generation++
	return sel.Generation
}

func (r *Registry) Selection(name SelectionName) Selection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.selections[name]
}
