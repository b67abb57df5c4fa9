package xlog

import (
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel("INFO")

	SetLevel("debug")
	assert.Equal(t, log.DebugLevel, L.GetLevel())

	SetLevel("bogus")
	assert.Equal(t, log.InfoLevel, L.GetLevel())

	SetLevel("ERROR")
	assert.Equal(t, log.ErrorLevel, L.GetLevel())
}

func TestWith(t *testing.T) {
	sub := With("xid", uint32(42))
	assert.NotNil(t, sub)
}
