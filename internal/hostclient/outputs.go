package hostclient

import (
	"sort"

	"github.com/bnema/xwsatellite/internal/geometry"
	"github.com/bnema/xwsatellite/internal/registry"
)

// syntheticOutputName is the placeholder advertised at zero-output
// startup (spec §8 boundary behavior).
const syntheticOutputName = "__synthetic__"

// OutputTracker maintains the registry's output set and answers the
// "which output dimensions the X screen" question (spec §4.2: smallest
// logical scale wins, to minimize blur on higher-DPI outputs).
type OutputTracker struct {
	reg *registry.Registry
}

// NewOutputTracker wraps reg. A synthetic 1x1 output is installed
// immediately so callers never observe a zero-output registry.
func NewOutputTracker(reg *registry.Registry) *OutputTracker {
	t := &OutputTracker{reg: reg}
	reg.PutOutput(&registry.Output{
		Name:      syntheticOutputName,
		Synthetic: true,
		Placement: geometry.OutputPlacement{Scale: 1, LogicalSize: geometry.Size{W: 1, H: 1}},
	})
	return t
}

// AddReal registers a real bound output, removing the synthetic
// placeholder the first time a real one arrives (spec §8).
func (t *OutputTracker) AddReal(name string, placement geometry.OutputPlacement, transform int32) {
	if _, ok := t.reg.Outputs()[syntheticOutputName]; ok {
		t.reg.RemoveOutput(syntheticOutputName)
	}
	t.reg.PutOutput(&registry.Output{Name: name, Placement: placement, Transform: transform})
	t.repack()
}

// Remove drops a real output; if none remain, the synthetic
// placeholder comes back so the X screen never goes to zero outputs.
func (t *OutputTracker) Remove(name string) {
	t.reg.RemoveOutput(name)
	if len(t.reg.Outputs()) == 0 {
		t.reg.PutOutput(&registry.Output{
			Name:      syntheticOutputName,
			Synthetic: true,
			Placement: geometry.OutputPlacement{Scale: 1, LogicalSize: geometry.Size{W: 1, H: 1}},
		})
	}
	t.repack()
}

// repack reassigns non-overlapping X-root origins in stable name order
// (spec §4.3 "outputs do not overlap ... preserving relative
// arrangement"; SPEC_FULL §7 stability on re-advertisement).
func (t *OutputTracker) repack() {
	outs := t.reg.Outputs()
	names := make([]string, 0, len(outs))
	sizes := make(map[string]geometry.Size, len(outs))
	for name, o := range outs {
		names = append(names, name)
		sizes[name] = o.Placement.PixelSize()
	}
	sort.Strings(names)
	origins := geometry.PackLeftToRight(names, sizes)
	for name, origin := range origins {
		o := outs[name]
		o.Placement.Origin = origin
		t.reg.PutOutput(o)
	}
}

// XScreenOutput picks the output that sizes the single X root window:
// the one with the smallest logical scale among those advertised
// (spec §4.2). Ties are broken by name for determinism (spec §9 open
// question).
func (t *OutputTracker) XScreenOutput() (*registry.Output, bool) {
	outs := t.reg.Outputs()
	if len(outs) == 0 {
		return nil, false
	}
	names := make([]string, 0, len(outs))
	for name := range outs {
		names = append(names, name)
	}
	sort.Strings(names)

	best := outs[names[0]]
	for _, name := range names[1:] {
		o := outs[name]
		if o.Placement.Scale < best.Placement.Scale {
			best = o
		}
	}
	return best, true
}
