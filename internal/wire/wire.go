// Package wire implements the Wayland wire protocol's message framing
// and argument encoding for the Xwayland-facing server (spec §4.3):
// the 8-byte header (object id, opcode, size), the fixed-point/string/
// array/fd argument types, and SCM_RIGHTS fd passing. There is no
// generated-binding library in reach for the server side of this
// bridge the way client.go has one for the host-facing client, so this
// package hand-rolls the same wire format rajveermalviya/go-wayland's
// client package implements from the other direction.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Header is the 8-byte prefix of every Wayland message.
type Header struct {
	Sender uint32
	Opcode uint16
	Size   uint16
}

const HeaderLen = 8

// MarshalHeader writes h's wire form into buf[:8].
func MarshalHeader(buf []byte, h Header) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Sender)
	binary.LittleEndian.PutUint16(buf[4:6], h.Opcode)
	binary.LittleEndian.PutUint16(buf[6:8], h.Size)
}

// UnmarshalHeader reads a Header from buf[:8].
func UnmarshalHeader(buf []byte) Header {
	return Header{
		Sender: binary.LittleEndian.Uint32(buf[0:4]),
		Opcode: binary.LittleEndian.Uint16(buf[4:6]),
		Size:   binary.LittleEndian.Uint16(buf[6:8]),
	}
}

// Writer accumulates a single message body's arguments in wire order.
type Writer struct {
	buf []byte
	fds []int
}

// NewWriter starts a message body after the 8-byte header, which
// Finish stamps once the final size is known.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, HeaderLen)}
}

func (w *Writer) pad4(n int) int { return (n + 3) &^ 3 }

// Uint32 appends a plain uint32 argument (also used for object/new_id).
func (w *Writer) Uint32(v uint32) *Writer {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
	return w
}

// Int32 appends a plain int32 argument.
func (w *Writer) Int32(v int32) *Writer { return w.Uint32(uint32(v)) }

// Fixed appends a 24.8 signed fixed-point argument.
func (w *Writer) Fixed(v float64) *Writer {
	return w.Int32(int32(v * 256))
}

// String appends a nul-terminated, length-prefixed, 4-byte-padded
// string argument.
func (w *Writer) String(s string) *Writer {
	n := uint32(len(s) + 1)
	w.Uint32(n)
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
	for len(w.buf)%4 != 0 {
		w.buf = append(w.buf, 0)
	}
	return w
}

// Array appends a length-prefixed, 4-byte-padded opaque byte array.
func (w *Writer) Array(data []byte) *Writer {
	w.Uint32(uint32(len(data)))
	w.buf = append(w.buf, data...)
	for len(w.buf)%4 != 0 {
		w.buf = append(w.buf, 0)
	}
	return w
}

// Raw appends already-encoded argument bytes verbatim, used by
// pass-through forwarding that relays a message body without decoding
// its individual arguments.
func (w *Writer) Raw(data []byte) *Writer {
	w.buf = append(w.buf, data...)
	return w
}

// FD queues a file descriptor to be sent out-of-band via SCM_RIGHTS
// alongside this message; it consumes no space in the byte stream.
func (w *Writer) FD(fd int) *Writer {
	w.fds = append(w.fds, fd)
	return w
}

// Finish stamps the header and returns the completed message plus any
// fds to pass with it.
func (w *Writer) Finish(sender uint32, opcode uint16) ([]byte, []int) {
	if len(w.buf) > 0xffff {
		panic(fmt.Sprintf("wire: message too large: %d bytes", len(w.buf)))
	}
	MarshalHeader(w.buf, Header{Sender: sender, Opcode: opcode, Size: uint16(len(w.buf))})
	return w.buf, w.fds
}

// Reader walks a single message body's arguments in wire order.
type Reader struct {
	buf []byte
	pos int
	fds []int
}

// NewReader wraps a message body (header already stripped) and any fds
// that arrived with it.
func NewReader(body []byte, fds []int) *Reader {
	return &Reader{buf: body, fds: fds}
}

func (r *Reader) Uint32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, fmt.Errorf("wire: short read for uint32 at %d", r.pos)
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

func (r *Reader) Fixed() (float64, error) {
	v, err := r.Int32()
	return float64(v) / 256, err
}

func (r *Reader) String() (string, error) {
	n, err := r.Uint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	end := r.pos + int(n) - 1 // exclude the trailing nul
	if end < r.pos || r.pos+int(n) > len(r.buf) {
		return "", fmt.Errorf("wire: short read for string at %d", r.pos)
	}
	s := string(r.buf[r.pos:end])
	r.pos += r.padded(int(n))
	return s, nil
}

func (r *Reader) Array() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	if r.pos+int(n) > len(r.buf) {
		return nil, fmt.Errorf("wire: short read for array at %d", r.pos)
	}
	data := append([]byte(nil), r.buf[r.pos:r.pos+int(n)]...)
	r.pos += r.padded(int(n))
	return data, nil
}

// FD pops the next out-of-band fd delivered with this message.
func (r *Reader) FD() (int, error) {
	if len(r.fds) == 0 {
		return -1, fmt.Errorf("wire: no fd available")
	}
	fd := r.fds[0]
	r.fds = r.fds[1:]
	return fd, nil
}

func (r *Reader) padded(n int) int { return (n + 3) &^ 3 }

// Remaining reports whether any bytes are left unread in the body,
// useful for request handlers to assert they consumed exactly their
// declared arguments.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }
