package assoc

import (
	"testing"

	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/stretchr/testify/assert"
)

func newTestEngine() *Engine {
	return &Engine{
		reg:               registry.New(),
		readySurfaceByXID: make(map[uint32]uint32),
		hostSurfaceByXID:  make(map[uint32]uint32),
	}
}

func TestIsOrphanPopupNoTransientFor(t *testing.T) {
	e := newTestEngine()
	xw := &registry.XWindow{ID: 1, Kind: registry.KindPopup}
	assert.True(t, e.isOrphanPopup(xw))
}

func TestIsOrphanPopupMappedToplevelAncestor(t *testing.T) {
	e := newTestEngine()
	e.reg.PutWindow(&registry.XWindow{ID: 2, Kind: registry.KindToplevel, Mapped: true})
	xw := &registry.XWindow{ID: 1, Kind: registry.KindPopup, TransientFor: 2}
	assert.False(t, e.isOrphanPopup(xw))
}

func TestIsOrphanPopupUnmappedAncestorIsOrphan(t *testing.T) {
	e := newTestEngine()
	e.reg.PutWindow(&registry.XWindow{ID: 2, Kind: registry.KindToplevel, Mapped: false})
	xw := &registry.XWindow{ID: 1, Kind: registry.KindPopup, TransientFor: 2}
	assert.True(t, e.isOrphanPopup(xw))
}

func TestIsOrphanPopupChainToToplevel(t *testing.T) {
	e := newTestEngine()
	e.reg.PutWindow(&registry.XWindow{ID: 3, Kind: registry.KindToplevel, Mapped: true})
	e.reg.PutWindow(&registry.XWindow{ID: 2, Kind: registry.KindPopup, TransientFor: 3})
	xw := &registry.XWindow{ID: 1, Kind: registry.KindPopup, TransientFor: 2}
	assert.False(t, e.isOrphanPopup(xw))
}

func TestIsOrphanPopupMissingAncestorRecord(t *testing.T) {
	e := newTestEngine()
	xw := &registry.XWindow{ID: 1, Kind: registry.KindPopup, TransientFor: 99}
	assert.True(t, e.isOrphanPopup(xw))
}
