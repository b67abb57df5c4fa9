// Package xwmerr classifies the satellite's error taxonomy (spec §7):
// fatal-startup errors exit before the Xwayland handshake completes,
// everything else is logged and the affected feature degrades.
package xwmerr

import "errors"

// Fatal-startup sentinels. Wrap with fmt.Errorf("...: %w", Err*) for
// context; callers test with errors.Is.
var (
	ErrMissingRequiredGlobal = errors.New("required host global not advertised")
	ErrCannotOpenDisplay     = errors.New("cannot open X display")
	ErrCannotSpawnXwayland   = errors.New("cannot spawn xwayland")
	ErrCannotClaimWMSelection = errors.New("cannot claim WM_Sn selection")
)

// IsFatal reports whether err wraps one of the fatal-startup sentinels.
func IsFatal(err error) bool {
	for _, sentinel := range []error{
		ErrMissingRequiredGlobal,
		ErrCannotOpenDisplay,
		ErrCannotSpawnXwayland,
		ErrCannotClaimWMSelection,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
