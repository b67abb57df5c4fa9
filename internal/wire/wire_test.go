package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, HeaderLen)
	MarshalHeader(buf, Header{Sender: 7, Opcode: 3, Size: 24})
	got := UnmarshalHeader(buf)
	assert.Equal(t, Header{Sender: 7, Opcode: 3, Size: 24}, got)
}

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter()
	w.Uint32(42).Int32(-5).Fixed(1.5).String("hello").Array([]byte{1, 2, 3})
	msg, fds := w.Finish(1, 0)
	assert.Empty(t, fds)

	h := UnmarshalHeader(msg)
	assert.Equal(t, uint32(1), h.Sender)
	r := NewReader(msg[HeaderLen:], nil)

	u, err := r.Uint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), u)

	i, err := r.Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(-5), i)

	f, err := r.Fixed()
	require.NoError(t, err)
	assert.InDelta(t, 1.5, f, 0.01)

	s, err := r.String()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)

	arr, err := r.Array()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, arr)

	assert.Equal(t, 0, r.Remaining())
}

func TestStringPadding(t *testing.T) {
	w := NewWriter()
	w.String("ab") // len 2 -> 3 with nul -> pad to 4
	msg, _ := w.Finish(0, 0)
	assert.Equal(t, 0, (len(msg)-HeaderLen)%4)
}

func TestFDQueue(t *testing.T) {
	w := NewWriter()
	w.FD(11).FD(12)
	_, fds := w.Finish(0, 0)
	assert.Equal(t, []int{11, 12}, fds)

	r := NewReader(nil, fds)
	fd, err := r.FD()
	require.NoError(t, err)
	assert.Equal(t, 11, fd)
}

func TestReaderShortRead(t *testing.T) {
	r := NewReader([]byte{1, 2}, nil)
	_, err := r.Uint32()
	assert.Error(t, err)
}
