package xwm

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/bnema/xwsatellite/internal/xlog"
	"golang.org/x/sys/unix"
)

// Drain empties the self-pipe and dispatches every event buffered by
// the pump goroutine since the last call (spec §4.7's per-iteration
// drain/dispatch/flush pattern).
func (w *WM) Drain() error {
	buf := make([]byte, 64)
	for {
		_, err := unix.Read(w.wakeRead, buf)
		if err != nil {
			if err == unix.EAGAIN {
				break
			}
			return err
		}
	}

	for {
		select {
		case ev, ok := <-w.events:
			if !ok {
				return nil
			}
			w.dispatch(ev)
		default:
			return nil
		}
	}
}

func (w *WM) dispatch(ev interface{}) {
	switch e := ev.(type) {
	case xproto.MapRequestEvent:
		w.handleMapRequest(e)
	case xproto.ConfigureRequestEvent:
		w.handleConfigureRequest(e)
	case xproto.PropertyNotifyEvent:
		w.handlePropertyNotify(e)
	case xproto.EnterNotifyEvent:
		w.handleEnterNotify(e)
	case xproto.UnmapNotifyEvent:
		w.handleUnmapNotify(e)
	case xproto.DestroyNotifyEvent:
		w.handleDestroyNotify(e)
	case xproto.ClientMessageEvent:
		w.handleClientMessage(e)
	case xproto.SelectionClearEvent:
		w.handleSelectionClear(e)
	case xproto.SelectionRequestEvent:
		w.handleSelectionRequest(e)
	case xproto.SelectionNotifyEvent:
		w.handleSelectionNotify(e)
	default:
		xlog.L.Debug("unhandled X event", "type", fmt.Sprintf("%T", ev))
	}
}
