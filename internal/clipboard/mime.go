// Package clipboard bridges X11 selections (CLIPBOARD, PRIMARY) with
// Wayland data devices / primary selection, per spec §4.6. XDND is not
// handled here; drag-and-drop traffic is forwarded by xwlserver/dnd.go.
package clipboard

// mimeTable is the fixed X-atom <-> Wayland-MIME translation of spec
// §4.6. Unknown X atoms pass through by name (and vice versa).
var mimeTable = []struct {
	xAtom string
	mime  string
}{
	{"UTF8_STRING", "text/plain;charset=utf-8"},
	{"STRING", "text/plain"},
	{"TEXT", "text/plain"},
	{"text/uri-list", "text/uri-list"},
	{"text/html", "text/html"},
	{"image/png", "image/png"},
}

// MIMEFromAtom translates an X selection target atom name to the
// Wayland MIME type offered over the data device, falling back to the
// atom name unchanged when it isn't in the fixed table.
func MIMEFromAtom(atom string) string {
	for _, e := range mimeTable {
		if e.xAtom == atom {
			return e.mime
		}
	}
	return atom
}

// AtomFromMIME is the inverse of MIMEFromAtom.
func AtomFromMIME(mime string) string {
	for _, e := range mimeTable {
		if e.mime == mime {
			return e.xAtom
		}
	}
	return mime
}
