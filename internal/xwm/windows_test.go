package xwm

import (
	"testing"

	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/stretchr/testify/assert"
)

func TestClassifyOverrideRedirectIsPopup(t *testing.T) {
	xw := &registry.XWindow{OverrideRedirect: true}
	assert.Equal(t, registry.KindOverrideRedirect, classify(xw))
}

func TestClassifyMenuTypeIsPopup(t *testing.T) {
	xw := &registry.XWindow{WindowType: "_NET_WM_WINDOW_TYPE_MENU"}
	assert.Equal(t, registry.KindPopup, classify(xw))
}

func TestClassifyTransientIsPopup(t *testing.T) {
	xw := &registry.XWindow{TransientFor: 42}
	assert.Equal(t, registry.KindPopup, classify(xw))
}

func TestClassifyPlainWindowIsToplevel(t *testing.T) {
	xw := &registry.XWindow{}
	assert.Equal(t, registry.KindToplevel, classify(xw))
}

func TestUint32sToBytesRoundTrip(t *testing.T) {
	buf := uint32sToBytes([]uint32{1, 0x01020304})
	assert.Equal(t, []byte{1, 0, 0, 0, 4, 3, 2, 1}, buf)
}
