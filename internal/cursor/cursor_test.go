package cursor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadNoLookupFallsBack(t *testing.T) {
	img := Load(nil)
	require.NotNil(t, img)
	assert.NotNil(t, img.Pix)
}

func TestLoadLookupHit(t *testing.T) {
	want := &Image{Pix: nil, HotX: 5, HotY: 5}
	img := Load(func(name string) (*Image, bool) {
		assert.Equal(t, "left_ptr", name)
		return want, true
	})
	assert.Same(t, want, img)
}

func TestLoadLookupMissFallsBack(t *testing.T) {
	img := Load(func(name string) (*Image, bool) { return nil, false })
	require.NotNil(t, img)
	assert.NotNil(t, img.Pix)
}
