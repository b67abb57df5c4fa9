package xwm

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/bnema/xwsatellite/internal/clipboard"
	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/bnema/xwsatellite/internal/xlog"
)

// selectionWait is a pending ConvertSelection request awaiting its
// SelectionNotify reply.
type selectionWait struct {
	property xproto.Atom
	done     chan []byte
}

// clipboardState holds the bits clipboard.go needs beyond what's
// already on WM: which selections we currently own, and in-flight
// ConvertSelection waiters (spec §4.6).
type clipboardState struct {
	mu       sync.Mutex
	owned    map[registry.SelectionName]bool
	mimes    map[registry.SelectionName][]string
	waiters  map[string]*selectionWait // keyed by selection+target atom names

	// OnXOwnerChanged is invoked when SelectionClear tells us another
	// X11 client just became the owner; wired by cmd/root.go to
	// clipboard.Bridge.OnXSelectionOwnerChanged.
	OnXOwnerChanged func(name registry.SelectionName, mimeTypes []string)

	// ServeRequest answers a ConvertSelection where we are the owner;
	// wired by cmd/root.go to clipboard.Bridge.ServeXRequest, which streams
	// from the Wayland side.
	ServeRequest func(name registry.SelectionName, atom string, dst io.WriteCloser)
}

func newClipboardState() *clipboardState {
	return &clipboardState{
		owned:   make(map[registry.SelectionName]bool),
		mimes:   make(map[registry.SelectionName][]string),
		waiters: make(map[string]*selectionWait),
	}
}

// WireClipboardCallbacks connects this WM's selection handling to the
// shared clipboard.Bridge (spec §4.6); cmd/root.go calls this once both
// are constructed, since WM itself stays free of a direct
// clipboard.Bridge dependency to avoid a wiring-order cycle.
func (w *WM) WireClipboardCallbacks(onXOwnerChanged func(name registry.SelectionName, mimeTypes []string), serveRequest func(name registry.SelectionName, atom string, dst io.WriteCloser)) {
	w.clip.mu.Lock()
	defer w.clip.mu.Unlock()
	w.clip.OnXOwnerChanged = onXOwnerChanged
	w.clip.ServeRequest = serveRequest
}

// ClaimSelection implements clipboard.XSide: claim ownership of an
// X11 selection on behalf of Wayland content (spec §4.6).
func (w *WM) ClaimSelection(name registry.SelectionName, mimeTypes []string) error {
	atom, err := w.internAtom(string(name))
	if err != nil {
		return err
	}
	if err := xproto.SetSelectionOwnerChecked(w.conn, w.wmCheckWindow, atom, xproto.TimeCurrentTime).Check(); err != nil {
		return fmt.Errorf("set_selection_owner(%s): %w", name, err)
	}
	w.clip.mu.Lock()
	w.clip.owned[name] = true
	w.clip.mimes[name] = mimeTypes
	w.clip.mu.Unlock()
	return nil
}

// ReleaseSelection implements clipboard.XSide.
func (w *WM) ReleaseSelection(name registry.SelectionName) {
	atom, err := w.internAtom(string(name))
	if err != nil {
		return
	}
	xproto.SetSelectionOwner(w.conn, xproto.AtomNone, atom, xproto.TimeCurrentTime)
	w.clip.mu.Lock()
	delete(w.clip.owned, name)
	delete(w.clip.mimes, name)
	w.clip.mu.Unlock()
}

// OpenXSelectionReader implements clipboard.XSide: request atom from
// whichever X11 client currently owns name and block (up to the
// bridge's configured timeout, via ctx were it plumbed through — the
// clipboard package's Transfer applies its own timeout around this
// call) until SelectionNotify delivers the property data.
func (w *WM) OpenXSelectionReader(name registry.SelectionName, atom string) (io.ReadCloser, error) {
	selAtom, err := w.internAtom(string(name))
	if err != nil {
		return nil, err
	}
	targetAtom, err := w.internAtom(atom)
	if err != nil {
		return nil, err
	}
	propAtom, err := w.internAtom("XWSATELLITE_SELECTION_TRANSFER")
	if err != nil {
		return nil, err
	}

	key := string(name) + "|" + atom
	wait := &selectionWait{property: propAtom, done: make(chan []byte, 1)}
	w.clip.mu.Lock()
	w.clip.waiters[key] = wait
	w.clip.mu.Unlock()
	defer func() {
		w.clip.mu.Lock()
		delete(w.clip.waiters, key)
		w.clip.mu.Unlock()
	}()

	err = xproto.ConvertSelectionChecked(w.conn, w.wmCheckWindow, selAtom, targetAtom, propAtom, xproto.TimeCurrentTime).Check()
	if err != nil {
		return nil, fmt.Errorf("convert_selection: %w", err)
	}

	select {
	case data := <-wait.done:
		return io.NopCloser(bytes.NewReader(data)), nil
	case <-time.After(5 * time.Second):
		return nil, fmt.Errorf("convert_selection(%s, %s) timed out", name, atom)
	}
}

// handleSelectionNotify resolves a pending OpenXSelectionReader wait by
// reading the named property off our own check window.
func (w *WM) handleSelectionNotify(e xproto.SelectionNotifyEvent) {
	selName := w.atomName(e.Selection)
	targetName := w.atomName(e.Target)
	key := selName + "|" + targetName

	w.clip.mu.Lock()
	wait, ok := w.clip.waiters[key]
	w.clip.mu.Unlock()
	if !ok {
		return
	}
	if e.Property == 0 {
		wait.done <- nil
		return
	}
	reply, err := xproto.GetProperty(w.conn, true, w.wmCheckWindow, e.Property, xproto.AtomAny, 0, (1<<32)-1).Reply()
	if err != nil {
		wait.done <- nil
		return
	}
	wait.done <- reply.Value
}

// handleSelectionClear detects another X11 client taking ownership of
// a selection we used to hold, so the bridge can re-evaluate who owns
// it. A SelectionClear for a selection we did not hold is ignored.
func (w *WM) handleSelectionClear(e xproto.SelectionClearEvent) {
	name := registry.SelectionName(w.atomName(e.Selection))
	if name != registry.SelectionClipboard && name != registry.SelectionPrimary {
		return
	}
	w.clip.mu.Lock()
	wasOurs := w.clip.owned[name]
	delete(w.clip.owned, name)
	cb := w.clip.OnXOwnerChanged
	w.clip.mu.Unlock()
	if !wasOurs || cb == nil {
		return
	}
	targets := w.queryOwnerTargets(e.Selection)
	cb(name, targets)
}

// queryOwnerTargets asks the new owner for its TARGETS list so the
// bridge knows what MIME types are now available (spec §3 "Selection"
// entity's MIMETypes field).
func (w *WM) queryOwnerTargets(selection xproto.Atom) []string {
	name := registry.SelectionName(w.atomName(selection))
	rc, err := w.OpenXSelectionReader(name, "TARGETS")
	if err != nil {
		return nil
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil
	}
	var out []string
	for i := 0; i+4 <= len(data); i += 4 {
		atom := xproto.Atom(uint32(data[i]) | uint32(data[i+1])<<8 | uint32(data[i+2])<<16 | uint32(data[i+3])<<24)
		out = append(out, clipboard.MIMEFromAtom(w.atomName(atom)))
	}
	return out
}

// handleSelectionRequest answers a ConvertSelection where we are the
// current owner (spec §4.6): TARGETS is answered locally, everything
// else is handed to ServeRequest which streams from the Wayland side.
func (w *WM) handleSelectionRequest(e xproto.SelectionRequestEvent) {
	name := registry.SelectionName(w.atomName(e.Selection))
	targetName := w.atomName(e.Target)

	property := e.Property
	if property == 0 {
		property = e.Target
	}

	if targetName == "TARGETS" {
		w.replyTargets(e, property)
		return
	}

	w.clip.mu.Lock()
	serve := w.clip.ServeRequest
	w.clip.mu.Unlock()
	if serve == nil {
		w.sendSelectionNotify(e, 0)
		return
	}
	dst := &xPropertyWriter{wm: w, requestor: e.Requestor, property: property}
	serve(name, targetName, dst)
	w.sendSelectionNotify(e, property)
}

func (w *WM) replyTargets(e xproto.SelectionRequestEvent, property xproto.Atom) {
	w.clip.mu.Lock()
	mimes := w.clip.mimes[registry.SelectionName(w.atomName(e.Selection))]
	w.clip.mu.Unlock()

	atoms := make([]uint32, 0, len(mimes)+1)
	if a, err := w.internAtom("TARGETS"); err == nil {
		atoms = append(atoms, uint32(a))
	}
	for _, mime := range mimes {
		if a, err := w.internAtom(clipboard.AtomFromMIME(mime)); err == nil {
			atoms = append(atoms, uint32(a))
		}
	}
	xproto.ChangeProperty(w.conn, xproto.PropModeReplace, e.Requestor, property,
		xproto.AtomAtom, 32, uint32(len(atoms)), uint32sToBytes(atoms))
	w.sendSelectionNotify(e, property)
}

func (w *WM) sendSelectionNotify(e xproto.SelectionRequestEvent, property xproto.Atom) {
	notify := xproto.SelectionNotifyEvent{
		Time:      e.Time,
		Requestor: e.Requestor,
		Selection: e.Selection,
		Target:    e.Target,
		Property:  property,
	}
	xproto.SendEvent(w.conn, false, e.Requestor, xproto.EventMaskNoEvent, string(notify.Bytes()))
}

// xPropertyWriter adapts ChangeProperty onto io.WriteCloser so the
// clipboard bridge's generic Transfer can stream into an X property
// the same way it streams into any other destination.
type xPropertyWriter struct {
	wm        *WM
	requestor xproto.Window
	property  xproto.Atom
	buf       bytes.Buffer
}

func (x *xPropertyWriter) Write(p []byte) (int, error) {
	return x.buf.Write(p)
}

func (x *xPropertyWriter) Close() error {
	data := x.buf.Bytes()
	err := xproto.ChangePropertyChecked(x.wm.conn, xproto.PropModeReplace, x.requestor, x.property,
		xproto.AtomString, 8, uint32(len(data)), data).Check()
	if err != nil {
		xlog.L.Error("selection property write failed", "err", err)
	}
	return err
}
