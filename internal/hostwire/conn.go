// Package hostwire is the single raw Wayland wire connection to the
// host compositor shared by hostclient and xwlserver (spec §4.3):
// every host-facing object that must be referenced from a request
// forwarded out of Xwayland (surfaces, buffers, the seat's input
// objects, data sources) is minted on this one connection, so its ids
// live in the same namespace the forwarded requests already carry.
//
// hostclient keeps its own, separate generated-binding connection
// (github.com/rajveermalviya/go-wayland/wayland/client) for output
// tracking and the clipboard selection bridge, neither of which ever
// references a surface/buffer object and so never needs to cross into
// this namespace. Splitting the two this way avoids a single process
// juggling two client identities for the concerns that do need to
// share ids, which was the bug this package replaces: a rawHostConn
// dialed once per accepted Xwayland connection, unable to hand its ids
// to hostclient's typed surfaces.
package hostwire

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/xwsatellite/internal/wire"
	"golang.org/x/sys/unix"
)

const (
	displayID                uint32 = 1
	opcodeDisplaySync        uint16 = 0
	opcodeDisplayGetRegistry uint16 = 1
	opcodeRegistryBind       uint16 = 0
	eventRegistryGlobal      uint16 = 0
	eventRegistryGlobalRemove uint16 = 1
)

// EventHandler processes one event delivered to a bound object.
type EventHandler func(opcode uint16, body []byte, fds []int)

// Conn is the process-wide raw connection to the host compositor.
type Conn struct {
	conn *wire.Conn

	mu         sync.Mutex
	nextID     uint32
	registryID uint32
	names      map[string]uint32
	handlers   map[uint32]EventHandler
}

// Dial connects to the host compositor's WAYLAND_DISPLAY socket and
// performs the initial registry round trip, recording every advertised
// global's name for later Bind calls.
func Dial() (*Conn, error) {
	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = "wayland-0"
	}
	path := display
	if !filepath.IsAbs(display) {
		path = filepath.Join(os.Getenv("XDG_RUNTIME_DIR"), display)
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	if err := unix.Connect(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}

	c := &Conn{
		conn:     wire.NewConn(fd),
		nextID:   2,
		names:    make(map[string]uint32),
		handlers: make(map[uint32]EventHandler),
	}

	w := wire.NewWriter()
	w.Uint32(3) // new_id for wl_registry, object id 3 by convention here
	msg, _ := w.Finish(1, opcodeDisplayGetRegistry)
	if err := c.conn.WriteMessage(msg, nil); err != nil {
		return nil, err
	}
	c.registryID = 3
	c.nextID = 4

	if err := c.drainInitialGlobals(); err != nil {
		return nil, err
	}
	return c, nil
}

// drainInitialGlobals reads registry.global events until a sync
// callback (requested right after get_registry) confirms the initial
// batch is complete.
func (c *Conn) drainInitialGlobals() error {
	syncID := c.nextID
	c.nextID++
	w := wire.NewWriter()
	w.Uint32(syncID)
	msg, _ := w.Finish(displayID, opcodeDisplaySync)
	if err := c.conn.WriteMessage(msg, nil); err != nil {
		return err
	}

	for {
		h, body, _, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		switch {
		case h.Sender == c.registryID && h.Opcode == eventRegistryGlobal:
			r := wire.NewReader(body, nil)
			name, _ := r.Uint32()
			iface, _ := r.String()
			c.names[iface] = name
		case h.Sender == syncID:
			return nil
		}
	}
}

// HasGlobal reports whether the host advertised iface at startup.
func (c *Conn) HasGlobal(iface string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.names[iface]
	return ok
}

// NewID allocates a fresh raw-side object id without binding it to any
// global, for sub-objects minted by a request (e.g. wl_shm_pool's
// create_buffer) rather than by registry.bind.
func (c *Conn) NewID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	return id
}

// Bind issues registry.bind for iface and returns the freshly allocated
// raw-side object id, or false if the host never advertised it.
func (c *Conn) Bind(iface string, version uint32) (uint32, bool) {
	c.mu.Lock()
	name, ok := c.names[iface]
	if !ok {
		c.mu.Unlock()
		return 0, false
	}
	id := c.nextID
	c.nextID++
	c.mu.Unlock()

	w := wire.NewWriter()
	w.Uint32(name).String(iface).Uint32(version).Uint32(id)
	msg, _ := w.Finish(c.registryID, opcodeRegistryBind)
	if err := c.conn.WriteMessage(msg, nil); err != nil {
		return 0, false
	}
	return id, true
}

// On registers h to receive every event addressed to id until Off is
// called. Callers that mint an object (Bind, NewID) and care about its
// events must register a handler before the next Pump.
func (c *Conn) On(id uint32, h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[id] = h
}

// Off stops routing events to id, e.g. once its object is destroyed.
func (c *Conn) Off(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, id)
}

// Send writes a fully built request (header already stamped by the
// caller via wire.Writer.Finish) to the host connection.
func (c *Conn) Send(msg []byte, fds []int) error {
	return c.conn.WriteMessage(msg, fds)
}

// FD exposes the connection's fd for the event loop's poll set.
func (c *Conn) FD() int { return c.conn.FD() }

// Pump relays one batch of buffered events to whichever handler is
// registered for their sender id (spec §4.7: driven when FD is
// readable). An event for an id with no registered handler is dropped.
func (c *Conn) Pump() error {
	for {
		h, body, fds, err := c.conn.ReadMessage()
		if err != nil {
			return err
		}
		c.mu.Lock()
		handler, ok := c.handlers[h.Sender]
		c.mu.Unlock()
		if ok {
			handler(h.Opcode, body, fds)
		}
	}
}

// Close tears down the raw connection.
func (c *Conn) Close() error { return c.conn.Close() }
