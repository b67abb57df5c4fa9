package xwm

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
)

// xsettingsSerial is bumped on every _XSETTINGS property rewrite, per
// the freedesktop xsettings manager spec's wire format.
var xsettingsSerial uint32

// claimXSettings claims the _XSETTINGS_S0 manager selection and
// publishes the scale/DPI settings GTK/Xft toolkits read from it, so
// rootless X11 clients pick up the host compositor's scale instead of
// defaulting to 1x (grounded on the same WM_Sn check-window pattern
// claimWMSelection already uses).
func (w *WM) claimXSettings() error {
	screenNum := 0
	selAtom, err := w.internAtom(fmt.Sprintf("_XSETTINGS_S%d", screenNum))
	if err != nil {
		return err
	}

	owner, err := xproto.NewWindowId(w.conn)
	if err != nil {
		return err
	}
	err = xproto.CreateWindowChecked(w.conn, xproto.WindowClassCopyFromParent, owner, w.root,
		-1, -1, 1, 1, 0, xproto.WindowClassInputOutput, 0, 0, nil).Check()
	if err != nil {
		return err
	}

	if err := xproto.SetSelectionOwnerChecked(w.conn, owner, selAtom, xproto.TimeCurrentTime).Check(); err != nil {
		return err
	}
	w.xsettingsWindow = owner

	return w.publishXSettings()
}

// publishXSettings writes the _XSETTINGS property on our owner window
// with the integer part of the scale of a bound host output reporting
// Scale > 1 (whichever the registry's output map yields first), or 1
// when none does (spec §8's single-scale assumption carried into the X11-facing
// settings toolkits read at startup).
func (w *WM) publishXSettings() error {
	scale := 1
	for _, out := range w.reg.Outputs() {
		if out.Placement.Scale > 1 {
			scale = int(out.Placement.Scale)
			break
		}
	}
	dpi := 96 * scale * 1024 // Xft.dpi is fixed-point, 1024ths of a point

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint8(0)) // byte order: little-endian
	buf.Write(make([]byte, 3))                       // pad
	xsettingsSerial++
	binary.Write(buf, binary.LittleEndian, xsettingsSerial)
	binary.Write(buf, binary.LittleEndian, uint32(3)) // number of settings

	writeIntSetting(buf, "Xft/DPI", dpi)
	writeIntSetting(buf, "Gdk/WindowScalingFactor", scale)
	writeIntSetting(buf, "Gdk/UnscaledDPI", 96*1024)

	prop, err := w.internAtom("_XSETTINGS_SETTINGS")
	if err != nil {
		return err
	}
	data := buf.Bytes()
	return xproto.ChangePropertyChecked(w.conn, xproto.PropModeReplace, w.xsettingsWindow, prop,
		prop, 8, uint32(len(data)), data).Check()
}

// writeIntSetting appends one XSETTING_TYPE_INT entry: type byte,
// pad, name length, name (padded to 4), serial, value.
func writeIntSetting(buf *bytes.Buffer, name string, value int) {
	buf.WriteByte(0) // XSettingsTypeInteger
	buf.WriteByte(0) // pad
	binary.Write(buf, binary.LittleEndian, uint16(len(name)))
	buf.WriteString(name)
	for i := len(name); i%4 != 0; i++ {
		buf.WriteByte(0)
	}
	binary.Write(buf, binary.LittleEndian, xsettingsSerial)
	binary.Write(buf, binary.LittleEndian, int32(value))
}
