package xwm

import (
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bnema/xwsatellite/internal/cursor"
	"github.com/bnema/xwsatellite/internal/xlog"
)

// SetRootCursor loads the default pointer (internal/cursor's embedded
// fallback glyph, since its theme lookup never yields a cursor) and
// installs it as the root window's cursor via the Render extension's
// ARGB cursor support (spec §4.4 cursor loading).
func (w *WM) SetRootCursor() {
	if err := render.Init(w.conn); err != nil {
		xlog.L.Warn("RENDER extension unavailable, root cursor left at X default", "err", err)
		return
	}
	img := cursor.Load(cursor.SystemThemeLookup)

	pixmap, err := xproto.NewPixmapId(w.conn)
	if err != nil {
		return
	}
	bounds := img.Pix.Bounds()
	width, height := uint16(bounds.Dx()), uint16(bounds.Dy())

	if err := xproto.CreatePixmapChecked(w.conn, 32, pixmap, xproto.Drawable(w.root), width, height).Check(); err != nil {
		xlog.L.Warn("create_pixmap for cursor failed", "err", err)
		return
	}
	defer xproto.FreePixmap(w.conn, pixmap)

	gc, err := xproto.NewGcontextId(w.conn)
	if err != nil {
		return
	}
	if err := xproto.CreateGCChecked(w.conn, gc, xproto.Drawable(pixmap), 0, nil).Check(); err != nil {
		return
	}
	defer xproto.FreeGC(w.conn, gc)

	data := argbBytes(img)
	xproto.PutImage(w.conn, xproto.ImageFormatZPixmap, xproto.Drawable(pixmap), gc,
		width, height, 0, 0, 0, 32, data)

	picFormat, ok := w.findARGB32Format()
	if !ok {
		xlog.L.Warn("no ARGB32 picture format advertised, root cursor left at X default")
		return
	}
	picture, err := render.NewPictureId(w.conn)
	if err != nil {
		return
	}
	if err := render.CreatePictureChecked(w.conn, picture, xproto.Drawable(pixmap), picFormat, 0, nil).Check(); err != nil {
		return
	}
	defer render.FreePicture(w.conn, picture)

	xcursor, err := render.NewCursorId(w.conn)
	if err != nil {
		return
	}
	err = render.CreateCursorChecked(w.conn, xcursor, picture, uint16(img.HotX), uint16(img.HotY)).Check()
	if err != nil {
		xlog.L.Warn("render.create_cursor failed", "err", err)
		return
	}
	defer render.FreeCursor(w.conn, xcursor)

	err = xproto.ChangeWindowAttributesChecked(w.conn, w.root, xproto.CwCursor,
		[]uint32{uint32(xcursor)}).Check()
	if err != nil {
		xlog.L.Warn("installing root cursor failed", "err", err)
	}
}

func (w *WM) findARGB32Format() (render.Pictformat, bool) {
	reply, err := render.QueryPictFormats(w.conn).Reply()
	if err != nil {
		return 0, false
	}
	for _, f := range reply.Formats {
		if f.Depth == 32 && f.Type == render.PictTypeDirect &&
			f.Direct.AlphaMask == 0xff {
			return f.Id, true
		}
	}
	return 0, false
}

func argbBytes(img *cursor.Image) []byte {
	bounds := img.Pix.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]byte, w*h*4)
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.Pix.At(x, y).RGBA()
			out[i+0] = byte(b >> 8)
			out[i+1] = byte(g >> 8)
			out[i+2] = byte(r >> 8)
			out[i+3] = byte(a >> 8)
			i += 4
		}
	}
	return out
}
