package xwlserver

import (
	"github.com/bnema/xwsatellite/internal/wire"
)

const (
	opcodeSeatGetPointer  uint16 = 0
	opcodeSeatGetKeyboard uint16 = 1
	opcodeSeatGetTouch    uint16 = 2
	opcodeSeatRelease     uint16 = 3

	opcodePointerRelease uint16 = 1

	eventSeatCapabilities uint16 = 0
	eventSeatName         uint16 = 1

	seatCapabilityPointer  uint32 = 1
	seatCapabilityKeyboard uint32 = 2
	seatCapabilityTouch    uint32 = 4
)

// serverSeatState records the input objects Xwayland has bound on the
// one wl_seat this satellite advertises (spec §1/§4.3: a single X
// screen means a single logical seat is enough). EmitPointer*/
// EmitKeyboard*/EmitTouch* in pointer.go/keyboard.go/touch.go send events to
// whichever object id is recorded here.
type serverSeatState struct {
	pointerObjectID  uint32
	keyboardObjectID uint32
	touchObjectID    uint32
}

// bindSeat advertises the satellite's single seat and announces
// pointer+keyboard+touch capability; hostclient's raw seat listener
// (input.go) is the thing that actually produces events for
// EmitPointer*/EmitKeyboard*/EmitTouch* to replay here.
func (c *Client) bindSeat(newID uint32, version uint32) {
	c.seat = &serverSeatState{}
	c.Register(&Object{
		ID:        newID,
		Interface: "wl_seat",
		Requests: map[uint16]RequestHandler{
			opcodeSeatGetPointer:  c.handleSeatGetPointer,
			opcodeSeatGetKeyboard: c.handleSeatGetKeyboard,
			opcodeSeatGetTouch:    c.handleSeatGetTouch,
			opcodeSeatRelease:     handleSurfaceNoop,
		},
	})

	w := wire.NewWriter()
	w.Uint32(seatCapabilityPointer | seatCapabilityKeyboard | seatCapabilityTouch)
	msg, _ := w.Finish(newID, eventSeatCapabilities)
	_ = c.SendEvent(msg, nil)

	w2 := wire.NewWriter()
	w2.String("xwsatellite-seat")
	msg2, _ := w2.Finish(newID, eventSeatName)
	_ = c.SendEvent(msg2, nil)
}

func (c *Client) handleSeatGetPointer(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	if c.seat != nil {
		c.seat.pointerObjectID = newID
	}
	c.Register(&Object{
		ID:        newID,
		Interface: "wl_pointer",
		Requests: map[uint16]RequestHandler{
			0:                    handleSurfaceNoop, // set_cursor
			opcodePointerRelease: handleSurfaceNoop,
		},
	})
	return nil
}

func (c *Client) handleSeatGetKeyboard(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	if c.seat != nil {
		c.seat.keyboardObjectID = newID
	}
	c.Register(&Object{
		ID:        newID,
		Interface: "wl_keyboard",
		Requests: map[uint16]RequestHandler{
			0: handleSurfaceNoop, // release
		},
	})
	if c.OnKeyboardBound != nil {
		c.OnKeyboardBound()
	}
	return nil
}

func (c *Client) handleSeatGetTouch(client *Client, sender uint32, opcode uint16, body []byte, fds []int) error {
	r := wire.NewReader(body, fds)
	newID, err := r.Uint32()
	if err != nil {
		return err
	}
	if c.seat != nil {
		c.seat.touchObjectID = newID
	}
	c.Register(&Object{
		ID:        newID,
		Interface: "wl_touch",
		Requests: map[uint16]RequestHandler{
			0: handleSurfaceNoop, // release
		},
	})
	return nil
}

// SeatPointerID returns the bound wl_pointer object id, or 0 if
// Xwayland hasn't requested one yet.
func (c *Client) SeatPointerID() uint32 {
	if c.seat == nil {
		return 0
	}
	return c.seat.pointerObjectID
}

// SeatKeyboardID returns the bound wl_keyboard object id, or 0.
func (c *Client) SeatKeyboardID() uint32 {
	if c.seat == nil {
		return 0
	}
	return c.seat.keyboardObjectID
}

// SeatTouchID returns the bound wl_touch object id, or 0.
func (c *Client) SeatTouchID() uint32 {
	if c.seat == nil {
		return 0
	}
	return c.seat.touchObjectID
}
