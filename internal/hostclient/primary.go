package hostclient

import (
	"fmt"
	"io"

	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// primarySelection wraps zwp_primary_selection_device_manager_v1, the
// middle-click-paste selection's own protocol (spec §4.6 lists PRIMARY
// alongside CLIPBOARD); kept separate from the CLIPBOARD path in
// clipboard.go since the two travel over entirely different globals.
type primarySelection struct {
	mgr    *client.ZwpPrimarySelectionDeviceManagerV1
	device *client.ZwpPrimarySelectionDeviceV1
}

func (c *Client) primarySelectionDevice() (*primarySelection, bool) {
	c.mu.Lock()
	if c.primary != nil {
		p := c.primary
		c.mu.Unlock()
		return p, true
	}
	name, ok := c.globalNames["zwp_primary_selection_device_manager_v1"]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	mgr := client.NewZwpPrimarySelectionDeviceManagerV1Id(c.registry.Context())
	if err := c.registry.Bind(name, "zwp_primary_selection_device_manager_v1", 1, mgr); err != nil {
		return nil, false
	}

	c.mu.Lock()
	var seat *client.Seat
	for _, s := range c.seats {
		seat = s
		break
	}
	c.mu.Unlock()
	if seat == nil {
		return nil, false
	}

	device, err := mgr.GetDevice(seat)
	if err != nil {
		return nil, false
	}
	device.SetDataOfferHandler(func(ev client.ZwpPrimarySelectionDeviceV1DataOfferEvent) {
		offer := ev.Id
		offer.SetOfferHandler(func(oe client.ZwpPrimarySelectionOfferV1OfferEvent) {
			c.clip.mu.Lock()
			c.clip.pendingPrimaryMimes[offer] = append(c.clip.pendingPrimaryMimes[offer], oe.MimeType)
			c.clip.mu.Unlock()
		})
	})
	device.SetSelectionHandler(func(ev client.ZwpPrimarySelectionDeviceV1SelectionEvent) {
		c.clip.mu.Lock()
		var mimes []string
		if ev.Id == nil {
			delete(c.clip.primaryOffers, "primary")
		} else {
			c.clip.primaryOffers["primary"] = ev.Id
			mimes = c.clip.pendingPrimaryMimes[ev.Id]
			delete(c.clip.pendingPrimaryMimes, ev.Id)
		}
		cb := c.onOfferChanged
		c.clip.mu.Unlock()
		if cb != nil {
			cb(registry.SelectionPrimary, mimes)
		}
	})

	p := &primarySelection{mgr: mgr, device: device}
	c.mu.Lock()
	c.primary = p
	c.mu.Unlock()
	return p, true
}

func (p *primarySelection) requestOffer(mimeTypes []string) error {
	source, err := p.mgr.CreateSource()
	if err != nil {
		return fmt.Errorf("primary_selection.create_source: %w", err)
	}
	for _, mime := range mimeTypes {
		if err := source.Offer(mime); err != nil {
			return fmt.Errorf("primary_selection.offer(%s): %w", mime, err)
		}
	}
	var serial uint32
	if err := p.device.SetSelection(source, serial); err != nil {
		return fmt.Errorf("primary_selection.set_selection: %w", err)
	}
	return nil
}

// openPrimaryOfferReader mirrors OpenWaylandOfferReader for PRIMARY,
// which travels over zwp_primary_selection_offer_v1 rather than
// wl_data_offer but uses the identical anonymous-pipe receive call.
func (c *Client) openPrimaryOfferReader(mime string) (io.ReadCloser, error) {
	c.clip.mu.Lock()
	offer := c.clip.primaryOffers["primary"]
	c.clip.mu.Unlock()
	if offer == nil {
		return nil, fmt.Errorf("no active host primary selection offer")
	}

	r, w, err := pipe2()
	if err != nil {
		return nil, err
	}
	if err := offer.Receive(mime, uintptr(w)); err != nil {
		closeFD(w)
		closeFD(r)
		return nil, fmt.Errorf("primary_selection_offer.receive(%s): %w", mime, err)
	}
	closeFD(w)
	c.Flush()
	return fdReadCloser{fd: r}, nil
}
