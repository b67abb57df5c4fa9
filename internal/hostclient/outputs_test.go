package hostclient

import (
	"testing"

	"github.com/bnema/xwsatellite/internal/geometry"
	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticOutputAtStartup(t *testing.T) {
	reg := registry.New()
	tr := NewOutputTracker(reg)

	o, ok := tr.XScreenOutput()
	require.True(t, ok)
	assert.True(t, o.Synthetic)
}

func TestRealOutputReplacesSynthetic(t *testing.T) {
	reg := registry.New()
	tr := NewOutputTracker(reg)

	tr.AddReal("eDP-1", geometry.OutputPlacement{Scale: 1, LogicalSize: geometry.Size{W: 1920, H: 1080}}, 0)

	outs := reg.Outputs()
	_, hasSynthetic := outs[syntheticOutputName]
	assert.False(t, hasSynthetic)
	assert.Len(t, outs, 1)
}

func TestRemoveLastRealRestoresSynthetic(t *testing.T) {
	reg := registry.New()
	tr := NewOutputTracker(reg)
	tr.AddReal("eDP-1", geometry.OutputPlacement{Scale: 1, LogicalSize: geometry.Size{W: 1920, H: 1080}}, 0)

	tr.Remove("eDP-1")

	o, ok := tr.XScreenOutput()
	require.True(t, ok)
	assert.True(t, o.Synthetic)
}

func TestXScreenOutputPicksSmallestScale(t *testing.T) {
	reg := registry.New()
	tr := NewOutputTracker(reg)
	tr.AddReal("hidpi", geometry.OutputPlacement{Scale: 2, LogicalSize: geometry.Size{W: 1280, H: 800}}, 0)
	tr.AddReal("lodpi", geometry.OutputPlacement{Scale: 1, LogicalSize: geometry.Size{W: 1920, H: 1080}}, 0)

	o, ok := tr.XScreenOutput()
	require.True(t, ok)
	assert.Equal(t, "lodpi", o.Name)
}

func TestRepackIsStableAcrossReAdvertisement(t *testing.T) {
	reg := registry.New()
	tr := NewOutputTracker(reg)
	tr.AddReal("A", geometry.OutputPlacement{Scale: 1, LogicalSize: geometry.Size{W: 1920, H: 1080}}, 0)
	tr.AddReal("B", geometry.OutputPlacement{Scale: 1, LogicalSize: geometry.Size{W: 1280, H: 1024}}, 0)

	before := reg.Outputs()["A"].Placement.Origin

	// Re-advertise identical geometry.
	tr.AddReal("A", geometry.OutputPlacement{Scale: 1, LogicalSize: geometry.Size{W: 1920, H: 1080}}, 0)

	after := reg.Outputs()["A"].Placement.Origin
	assert.Equal(t, before, after)
}
