package hostclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeStatesLittleEndian(t *testing.T) {
	raw := []byte{1, 0, 0, 0, 2, 0, 0, 0}
	assert.Equal(t, []uint32{1, 2}, decodeStates(raw))
}

func TestDecodeStatesEmpty(t *testing.T) {
	assert.Empty(t, decodeStates(nil))
}

func TestDecodeStatesIgnoresTrailingPartialWord(t *testing.T) {
	raw := []byte{1, 0, 0, 0, 9, 9}
	assert.Equal(t, []uint32{1}, decodeStates(raw))
}
