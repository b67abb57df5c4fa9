// Package xwlserver is the Wayland server Xwayland itself connects to
// (spec §4.3): a minimal compositor that intercepts wl_surface,
// wl_compositor, wl_output, and the input objects closely enough to
// rewrite coordinates and enforce the deferred-commit rule, while
// passing everything else straight through to the host compositor
// (spec §4.3's pass-through/intercepted/synthesised classification).
//
// There's no generated-binding library for the server side in reach
// here (wire.Conn implements the byte-level protocol this package
// drives), so object dispatch is a small hand-written table keyed by
// (interface, opcode), in the spirit of wlturbo's Context/BaseProxy
// registration model but built directly on internal/wire.
package xwlserver

import (
	"fmt"
	"sync"

	"github.com/bnema/xwsatellite/internal/hostclient"
	"github.com/bnema/xwsatellite/internal/hostwire"
	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/bnema/xwsatellite/internal/wire"
	"github.com/bnema/xwsatellite/internal/xlog"
)

// RequestHandler processes one incoming request for an object.
type RequestHandler func(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error

// Object is a server-side protocol object: its interface name (for
// logging/diagnostics) and its request dispatch table.
type Object struct {
	ID       uint32
	Interface string
	Requests map[uint16]RequestHandler
}

// Client is one Xwayland connection's object table and outgoing
// message queue.
type Client struct {
	conn *wire.Conn

	mu       sync.Mutex
	objects  map[uint32]*Object
	nextServerID uint32 // for server-allocated ids, distinguished by the high bit

	reg  *registry.Registry
	host *hostclient.Client

	displayID  uint32
	registryID uint32

	raw         *hostwire.Conn
	serverToRaw map[uint32]uint32
	rawToServer map[uint32]uint32
	bufferSizes map[uint32]bufferSize
	seat        *serverSeatState

	// rawDataDeviceMgrID caches the raw wl_data_device_manager bind so
	// create_data_source and get_data_device share one (dnd.go).
	rawDataDeviceMgrID uint32

	// OnSurfaceCreated/OnSerialSurface let the association engine react
	// to both halves of spec §4.5's matching without this package
	// importing assoc.
	OnSurfaceCreated func(surfaceID uint32)
	OnSerialSurface  func(serial uint64, surfaceID uint32)

	// OnKeyboardBound fires each time Xwayland requests a
	// wl_keyboard, so the host-side seat listener (hostclient/input.go)
	// knows it can now relay the keymap it already captured from the
	// host wl_keyboard (spec §4.3 input routing).
	OnKeyboardBound func()
}

const serverIDBit = uint32(1) << 31

// Server accepts Xwayland connections and drives each one's object
// table (spec §4.3 "the satellite behaves as the Wayland server
// Xwayland connects to").
type Server struct {
	reg  *registry.Registry
	host *hostclient.Client
	raw  *hostwire.Conn

	mu      sync.Mutex
	clients map[int]*Client // keyed by conn fd

	// OnSurfaceCreated/OnSerialSurface are copied onto every accepted
	// Client; see the matching fields on Client for what they're for.
	OnSurfaceCreated func(surfaceID uint32)
	OnSerialSurface  func(serial uint64, surfaceID uint32)
}

// New creates a Server sharing reg, the host client, and the raw host
// wire connection so surface/buffer/input interception can translate
// into host-side calls that share the host client's own object
// namespace (spec §4.3).
func New(reg *registry.Registry, host *hostclient.Client, raw *hostwire.Conn) *Server {
	return &Server{reg: reg, host: host, raw: raw, clients: make(map[int]*Client)}
}

// Accept wraps a freshly accepted connection (from wire.Accept) in a
// Client and bootstraps its wl_display/wl_registry objects.
func (s *Server) Accept(conn *wire.Conn) *Client {
	c := &Client{
		conn:             conn,
		objects:          make(map[uint32]*Object),
		nextServerID:     serverIDBit,
		reg:              s.reg,
		host:             s.host,
		raw:              s.raw,
		OnSurfaceCreated: s.OnSurfaceCreated,
		OnSerialSurface:  s.OnSerialSurface,
	}
	c.bootstrapDisplay()

	if c.raw == nil {
		xlog.L.Warn("no shared raw host connection, pass-through globals disabled")
	}

	s.mu.Lock()
	s.clients[conn.FD()] = c
	s.mu.Unlock()

	return c
}

// Remove drops a disconnected client's bookkeeping.
func (s *Server) Remove(fd int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, fd)
}

// Client looks up the Client owning a connection fd, for the event
// loop dispatching readiness on that fd.
func (s *Server) Client(fd int) (*Client, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[fd]
	return c, ok
}

// FD exposes the underlying connection fd for the poll set.
func (c *Client) FD() int { return c.conn.FD() }

// Dispatch reads and handles every fully buffered request on this
// connection (spec §4.7: called when the fd is readable).
func (c *Client) Dispatch() error {
	for {
		h, body, fds, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := c.handle(h, body, fds); err != nil {
			xlog.L.Error("request handling failed", "sender", h.Sender, "opcode", h.Opcode, "err", err)
		}
		if c.conn == nil {
			return nil
		}
	}
}

func (c *Client) handle(h wire.Header, body []byte, fds []int) error {
	c.mu.Lock()
	obj, ok := c.objects[h.Sender]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("request for unknown object %d", h.Sender)
	}
	fn, ok := obj.Requests[h.Opcode]
	if !ok {
		if len(obj.Requests) == 0 {
			// Pass-through objects register with an empty table; every
			// opcode for them is relayed verbatim (passthrough.go).
			return c.forwardAnyRequest(h.Sender, h.Opcode, body, fds)
		}
		return fmt.Errorf("%s: unhandled opcode %d", obj.Interface, h.Opcode)
	}
	return fn(c, h.Sender, h.Opcode, body, fds)
}

// allocateServerID mints a fresh server-originated object id (set high
// bit distinguishes these from ids Xwayland itself allocates via
// new_id arguments), for objects this package creates in response to a
// host-side event rather than an Xwayland request — e.g. a wl_data_offer
// mirroring one the host just offered (dnd.go).
func (c *Client) allocateServerID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextServerID
	c.nextServerID++
	return id
}

// Register installs an object the dispatcher can route requests to.
func (c *Client) Register(obj *Object) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[obj.ID] = obj
}

// Unregister removes a destroyed object.
func (c *Client) Unregister(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, id)
}

// Object looks up a registered object by id.
func (c *Client) Object(id uint32) (*Object, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.objects[id]
	return o, ok
}

// SendEvent writes a fully built event message (header stamped by the
// caller via wire.Writer.Finish) to this client.
func (c *Client) SendEvent(msg []byte, fds []int) error {
	return c.conn.WriteMessage(msg, fds)
}

// Registry returns the shared object registry this server's surfaces,
// outputs, and selections are recorded in.
func (c *Client) Registry() *registry.Registry { return c.reg }

// Host returns the host-facing client used to realize intercepted
// objects as real host surfaces/roles.
func (c *Client) Host() *hostclient.Client { return c.host }

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
