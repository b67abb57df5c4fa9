package hostclient

import (
	"fmt"
	"io"
	"sync"

	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/bnema/xwsatellite/internal/xlog"
	"github.com/bnema/xwsatellite/internal/xwmerr"
	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// clipboardState tracks the data source we currently hold (one per
// selection name) and any offers the host just handed us, implementing
// clipboard.WaylandSide (spec §4.6) on top of wl_data_device_manager —
// a pass-through global everywhere else in the bridge, bound for real
// here since this is the one side that actually needs to speak it.
type clipboardState struct {
	mu            sync.Mutex
	sources       map[registry.SelectionName]*client.DataSource
	mimes         map[registry.SelectionName][]string
	offers        map[registry.SelectionName]*client.DataOffer
	primaryOffers map[string]*client.ZwpPrimarySelectionOfferV1

	// pendingMimes accumulates a not-yet-selected offer's announced
	// mime types (wl_data_offer.offer arrives once per type, all before
	// the owning wl_data_device.selection event names it).
	pendingMimes map[*client.DataOffer][]string

	// pendingPrimaryMimes is pendingMimes' PRIMARY-selection counterpart.
	pendingPrimaryMimes map[*client.ZwpPrimarySelectionOfferV1][]string
}

// WireSelectionSend connects a data_source.send event (the host asking
// us for the data we advertised) to the clipboard bridge's streaming
// logic; cmd/root.go calls this once both hostclient.Client and
// clipboard.Bridge exist.
func (c *Client) WireSelectionSend(fn func(name registry.SelectionName, mime string, fd uintptr)) {
	c.mu.Lock()
	c.onSelectionSend = fn
	c.mu.Unlock()
}

// WireOfferChanged connects a host data_device selection change to the
// clipboard bridge's OnWaylandOfferChanged, so a new Wayland-side
// CLIPBOARD/PRIMARY owner gets the matching X11 selection claimed (or
// released when the offer is cleared).
func (c *Client) WireOfferChanged(fn func(name registry.SelectionName, mimeTypes []string)) {
	c.mu.Lock()
	c.onOfferChanged = fn
	c.mu.Unlock()
}

func newClipboardState() *clipboardState {
	return &clipboardState{
		sources:       make(map[registry.SelectionName]*client.DataSource),
		mimes:         make(map[registry.SelectionName][]string),
		offers:        make(map[registry.SelectionName]*client.DataOffer),
		primaryOffers: make(map[string]*client.ZwpPrimarySelectionOfferV1),
		pendingMimes:  make(map[*client.DataOffer][]string),
		pendingPrimaryMimes: make(map[*client.ZwpPrimarySelectionOfferV1][]string),
	}
}

func (c *Client) dataDeviceManager() (*client.DataDeviceManager, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dataDeviceMgr != nil {
		return c.dataDeviceMgr, true
	}
	name, ok := c.globalNames["wl_data_device_manager"]
	if !ok {
		return nil, false
	}
	mgr := client.NewDataDeviceManagerId(c.registry.Context())
	if err := c.registry.Bind(name, "wl_data_device_manager", 3, mgr); err != nil {
		return nil, false
	}
	c.dataDeviceMgr = mgr
	return mgr, true
}

// dataDevice lazily creates the wl_data_device for whichever seat was
// bound first; the satellite only brokers one pointer/keyboard focus
// at a time (spec §3 "Seat" entity is effectively singular per
// instance).
func (c *Client) dataDevice() (*client.DataDevice, error) {
	c.mu.Lock()
	var seatName uint32
	var seat *client.Seat
	for n, s := range c.seats {
		seatName, seat = n, s
		break
	}
	c.mu.Unlock()
	if seat == nil {
		return nil, fmt.Errorf("no host wl_seat bound yet")
	}

	c.mu.Lock()
	if dev, ok := c.dataDevices[seatName]; ok {
		c.mu.Unlock()
		return dev, nil
	}
	c.mu.Unlock()

	mgr, ok := c.dataDeviceManager()
	if !ok {
		return nil, fmt.Errorf("wl_data_device_manager not bound: %w", xwmerr.ErrMissingRequiredGlobal)
	}
	dev, err := mgr.GetDataDevice(seat)
	if err != nil {
		return nil, fmt.Errorf("get_data_device: %w", err)
	}
	dev.SetSelectionHandler(c.onDataDeviceSelection)
	dev.SetDataOfferHandler(func(ev client.DataDeviceDataOfferEvent) {
		offer := ev.Id
		offer.SetOfferHandler(func(oe client.DataOfferOfferEvent) {
			c.clip.mu.Lock()
			c.clip.pendingMimes[offer] = append(c.clip.pendingMimes[offer], oe.MimeType)
			c.clip.mu.Unlock()
		})
	})

	c.mu.Lock()
	c.dataDevices[seatName] = dev
	c.mu.Unlock()
	return dev, nil
}

// onDataDeviceSelection fires when the host compositor's clipboard
// owner changes; nil Id means the selection was cleared. The offer's
// mime types were accumulated by the offer handler above as they
// arrived, ahead of this event (spec §4.6 "Wayland owner changed").
func (c *Client) onDataDeviceSelection(ev client.DataDeviceSelectionEvent) {
	c.clip.mu.Lock()
	var mimes []string
	if ev.Id == nil {
		c.clip.offers[registry.SelectionClipboard] = nil
	} else {
		c.clip.offers[registry.SelectionClipboard] = ev.Id
		mimes = c.clip.pendingMimes[ev.Id]
		delete(c.clip.pendingMimes, ev.Id)
	}
	cb := c.onOfferChanged
	c.clip.mu.Unlock()

	if cb != nil {
		cb(registry.SelectionClipboard, mimes)
	}
}

// RequestSelectionOffer implements clipboard.WaylandSide: create a
// wl_data_source advertising mimeTypes and set it as the selection, so
// the host compositor treats the satellite as the clipboard owner on
// behalf of the X11 client that actually owns it (spec §4.6).
func (c *Client) RequestSelectionOffer(name registry.SelectionName, mimeTypes []string) error {
	if name == registry.SelectionPrimary {
		primary, ok := c.primarySelectionDevice()
		if !ok {
			xlog.L.Debug("primary selection requested but zwp_primary_selection unavailable, skipping")
			return nil
		}
		return primary.requestOffer(mimeTypes)
	}

	mgr, ok := c.dataDeviceManager()
	if !ok {
		return fmt.Errorf("wl_data_device_manager not bound: %w", xwmerr.ErrMissingRequiredGlobal)
	}
	dev, err := c.dataDevice()
	if err != nil {
		return err
	}

	source, err := mgr.CreateDataSource()
	if err != nil {
		return fmt.Errorf("create_data_source: %w", err)
	}
	for _, mime := range mimeTypes {
		if err := source.Offer(mime); err != nil {
			return fmt.Errorf("data_source.offer(%s): %w", mime, err)
		}
	}
	source.SetCancelledHandler(func(client.DataSourceCancelledEvent) {
		c.clip.mu.Lock()
		delete(c.clip.sources, name)
		c.clip.mu.Unlock()
	})
	source.SetSendHandler(func(ev client.DataSourceSendEvent) {
		if c.onSelectionSend != nil {
			c.onSelectionSend(name, ev.MimeType, ev.Fd)
		}
	})

	var serial uint32 // best-effort: the satellite has no keyboard focus serial of its own to offer
	if err := dev.SetSelection(source, serial); err != nil {
		return fmt.Errorf("set_selection: %w", err)
	}

	c.clip.mu.Lock()
	c.clip.sources[name] = source
	c.clip.mimes[name] = mimeTypes
	c.clip.mu.Unlock()
	return nil
}

// OpenWaylandOfferReader implements clipboard.WaylandSide: receive the
// current host offer's mime payload over a pipe (spec §4.6), the same
// anonymous-pipe pattern wl_data_offer.receive always uses.
func (c *Client) OpenWaylandOfferReader(name registry.SelectionName, mime string) (io.ReadCloser, error) {
	if name == registry.SelectionPrimary {
		return c.openPrimaryOfferReader(mime)
	}

	c.clip.mu.Lock()
	offer := c.clip.offers[name]
	c.clip.mu.Unlock()
	if offer == nil {
		return nil, fmt.Errorf("no active host offer for %s", name)
	}

	r, w, err := pipe2()
	if err != nil {
		return nil, err
	}
	if err := offer.Receive(mime, uintptr(w)); err != nil {
		closeFD(w)
		closeFD(r)
		return nil, fmt.Errorf("data_offer.receive(%s): %w", mime, err)
	}
	closeFD(w)
	c.Flush()
	return fdReadCloser{fd: r}, nil
}
