package clipboard

import (
	"context"
	"io"
	"time"

	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/bnema/xwsatellite/internal/xlog"
)

// XSide is the subset of X11 selection operations the bridge drives:
// claiming/releasing XSetSelectionOwner and answering ConvertSelection
// requests. Implemented by internal/xwm so this package stays free of
// an xgb dependency and is unit-testable with fakes.
type XSide interface {
	ClaimSelection(name registry.SelectionName, mimeTypes []string) error
	ReleaseSelection(name registry.SelectionName)
	OpenXSelectionReader(name registry.SelectionName, atom string) (io.ReadCloser, error)
}

// WaylandSide is the subset of Wayland data-device operations the
// bridge drives, implemented by internal/hostclient.
type WaylandSide interface {
	RequestSelectionOffer(name registry.SelectionName, mimeTypes []string) error
	OpenWaylandOfferReader(name registry.SelectionName, mime string) (io.ReadCloser, error)
}

// Bridge owns the CLIPBOARD and PRIMARY selections (spec §4.6).
type Bridge struct {
	reg     *registry.Registry
	x       XSide
	wl      WaylandSide
	timeout time.Duration
}

// New creates a CLIPBOARD/PRIMARY selection bridge.
func New(reg *registry.Registry, x XSide, wl WaylandSide, timeout time.Duration) *Bridge {
	return &Bridge{reg: reg, x: x, wl: wl, timeout: timeout}
}

// OnWaylandOfferChanged is called when the host's data device announces
// a non-empty offer: the bridge claims the matching X11 selection.
func (b *Bridge) OnWaylandOfferChanged(name registry.SelectionName, mimeTypes []string) error {
	if len(mimeTypes) == 0 {
		b.reg.SetSelectionOwner(name, registry.OwnerNone, nil)
		b.x.ReleaseSelection(name)
		return nil
	}
	b.reg.SetSelectionOwner(name, registry.OwnerWayland, mimeTypes)
	return b.x.ClaimSelection(name, mimeTypes)
}

// OnXSelectionOwnerChanged is called when an X11 client announces
// ownership (SelectionClear/SetSelectionOwner observed by the XWM): the
// bridge requests a matching Wayland offer.
func (b *Bridge) OnXSelectionOwnerChanged(name registry.SelectionName, mimeTypes []string) error {
	if len(mimeTypes) == 0 {
		b.reg.SetSelectionOwner(name, registry.OwnerNone, nil)
		return nil
	}
	b.reg.SetSelectionOwner(name, registry.OwnerX11, mimeTypes)
	return b.wl.RequestSelectionOffer(name, mimeTypes)
}

// ServeXRequest answers an X11 client's ConvertSelection for atom by
// streaming the host's Wayland offer into dst. It serves only while the
// current owner is Wayland; otherwise it closes dst without writing.
func (b *Bridge) ServeXRequest(ctx context.Context, name registry.SelectionName, atom string, dst io.WriteCloser) {
	sel := b.reg.Selection(name)
	if sel.Owner != registry.OwnerWayland {
		xlog.L.Debug("ServeXRequest with no Wayland owner", "selection", name)
		dst.Close()
		return
	}
	mime := MIMEFromAtom(atom)
	Transfer(ctx, b.reg, name, sel.Generation, mime, func(m string) (io.ReadCloser, error) {
		return b.wl.OpenWaylandOfferReader(name, m)
	}, dst, b.timeout)
}

// ServeWaylandRequest is the mirror: a Wayland client requested a MIME
// type and the current owner is an X11 client.
func (b *Bridge) ServeWaylandRequest(ctx context.Context, name registry.SelectionName, mime string, dst io.WriteCloser) {
	sel := b.reg.Selection(name)
	if sel.Owner != registry.OwnerX11 {
		xlog.L.Debug("ServeWaylandRequest with no X11 owner", "selection", name)
		dst.Close()
		return
	}
	atom := AtomFromMIME(mime)
	Transfer(ctx, b.reg, name, sel.Generation, mime, func(m string) (io.ReadCloser, error) {
		return b.x.OpenXSelectionReader(name, atom)
	}, dst, b.timeout)
}
