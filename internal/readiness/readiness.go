// Package readiness implements the optional systemd notification of
// spec §6: emit READY=1 to NOTIFY_SOCKET after the first successful
// Xwayland handshake. Notify runs synchronously on the caller's
// goroutine; this package starts no goroutine of its own and touches no
// shared state.
package readiness

import (
	"github.com/bnema/xwsatellite/internal/xlog"
	"github.com/coreos/go-systemd/v22/daemon"
)

// Notifier emits readiness once, idempotently.
type Notifier struct {
	enabled bool
	sent    bool
}

// New returns a Notifier. enabled should come from config; when false,
// Notify is a no-op regardless of NOTIFY_SOCKET.
func New(enabled bool) *Notifier {
	return &Notifier{enabled: enabled}
}

// Notify sends READY=1 on the first call; subsequent calls are no-ops.
// It never blocks the event loop: go-systemd's SdNotify writes to a
// unix datagram socket, which is non-blocking for messages this small.
func (n *Notifier) Notify() {
	if !n.enabled || n.sent {
		return
	}
	n.sent = true
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		xlog.L.Warn("readiness notification failed", "err", err)
		return
	}
	if !sent {
		xlog.L.Debug("readiness notification skipped: NOTIFY_SOCKET not set")
	}
}
