package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPointerToRootScaleTwoAtOrigin(t *testing.T) {
	out := OutputPlacement{Origin: Point{0, 0}, Scale: 2}
	got := PointerToRoot(out, LogicalPoint{X: 100.0, Y: 50.0})
	assert.Equal(t, Point{X: 200, Y: 100}, got)
}

func TestPointerToRootWithOffsetOutput(t *testing.T) {
	out := OutputPlacement{Origin: Point{X: 1920, Y: 0}, Scale: 1}
	got := PointerToRoot(out, LogicalPoint{X: 10.4, Y: 0.6})
	assert.Equal(t, Point{X: 1930, Y: 1}, got)
}

func TestPixelSize(t *testing.T) {
	out := OutputPlacement{Scale: 1.5, LogicalSize: Size{W: 1280, H: 800}}
	assert.Equal(t, Size{W: 1920, H: 1200}, out.PixelSize())
}

func TestSurfaceLogicalSize(t *testing.T) {
	assert.Equal(t, Size{W: 400, H: 300}, SurfaceLogicalSize(Size{W: 800, H: 600}, 2))
	assert.Equal(t, Size{W: 800, H: 600}, SurfaceLogicalSize(Size{W: 800, H: 600}, 0))
}

func TestPackLeftToRightStable(t *testing.T) {
	sizes := map[string]Size{"A": {W: 1920, H: 1080}, "B": {W: 1280, H: 1024}}
	got := PackLeftToRight([]string{"A", "B"}, sizes)
	assert.Equal(t, Point{X: 0, Y: 0}, got["A"])
	assert.Equal(t, Point{X: 1920, Y: 0}, got["B"])

	// Re-advertisement with identical geometry doesn't move anything.
	got2 := PackLeftToRight([]string{"A", "B"}, sizes)
	assert.Equal(t, got, got2)
}
