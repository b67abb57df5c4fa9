// Package config handles the satellite's configuration: the positional
// CLI surface from spec §6 (display spec, -listenfd pairs, +extension
// pairs) plus the ambient knobs viper binds from env/config-file
// (log level, selection-transfer timeout, readiness notification).
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config is the fully resolved satellite configuration.
type Config struct {
	// DisplayNumber is the X display number to claim (":N" without the
	// colon). It is meaningful only when ExplicitDisplay is set;
	// otherwise the satellite picks one.
	DisplayNumber int
	// ExplicitDisplay records whether DisplayNumber came from the CLI
	// positional arg rather than being auto-chosen.
	ExplicitDisplay bool

	// ListenFDs are inherited "-listenfd <fd>" descriptors handed
	// straight through to the Xwayland child.
	ListenFDs []int

	// Extensions are "+extension <NAME>" pairs handed straight through.
	Extensions []string

	// LogLevel is one of debug/info/warn/error/fatal.
	LogLevel string
	// SelectionTimeoutSeconds bounds a clipboard transfer, in seconds
	// (spec §5 suggests 5s).
	SelectionTimeoutSeconds int
	// EnableReadiness turns on the sd_notify READY=1 handshake of spec §6.
	EnableReadiness bool
}

// Defaults mirrors the teacher's viper default-binding pattern.
func Defaults() Config {
	return Config{
		LogLevel:                "info",
		SelectionTimeoutSeconds: 5,
		EnableReadiness:         true,
	}
}

// BindFlags registers viper defaults for the ambient knobs and lets
// XWSATELLITE_-prefixed environment variables (XWSATELLITE_LOG_LEVEL,
// ...) override them, after waymon's config.BindFlags pattern. No
// command-line flags are bound: cmd/root.go disables cobra's flag
// parsing for the positional Xwayland-style CLI.
func BindFlags(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("selection_timeout_seconds", d.SelectionTimeoutSeconds)
	v.SetDefault("enable_readiness", d.EnableReadiness)
	v.SetEnvPrefix("XWSATELLITE")
	v.AutomaticEnv()
}

// FromViper reads the ambient knobs back out of v.
func FromViper(v *viper.Viper) Config {
	return Config{
		LogLevel:                v.GetString("log_level"),
		SelectionTimeoutSeconds: v.GetInt("selection_timeout_seconds"),
		EnableReadiness:         v.GetBool("enable_readiness"),
	}
}

// ParsePositional parses the CLI's positional/paired arguments per
// spec §6: an optional leading ":N" display spec, then any number of
// "-listenfd <fd>" and "+extension <NAME>" pairs. A "-listenfd" with no
// preceding explicit display number is a usage error — the integrator
// is required to have already picked one.
func ParsePositional(args []string) (displayNumber int, explicitDisplay bool, listenFDs []int, extensions []string, err error) {
	i := 0
	if i < len(args) && strings.HasPrefix(args[i], ":") {
		n, perr := strconv.Atoi(args[i][1:])
		if perr != nil {
			return 0, false, nil, nil, fmt.Errorf("invalid display spec %q: %w", args[i], perr)
		}
		displayNumber = n
		explicitDisplay = true
		i++
	}

	for i < len(args) {
		switch args[i] {
		case "-listenfd":
			if !explicitDisplay {
				return 0, false, nil, nil, fmt.Errorf("-listenfd requires a preceding display number")
			}
			if i+1 >= len(args) {
				return 0, false, nil, nil, fmt.Errorf("-listenfd requires an argument")
			}
			fd, perr := strconv.Atoi(args[i+1])
			if perr != nil {
				return 0, false, nil, nil, fmt.Errorf("invalid -listenfd value %q: %w", args[i+1], perr)
			}
			listenFDs = append(listenFDs, fd)
			i += 2
		case "+extension":
			if i+1 >= len(args) {
				return 0, false, nil, nil, fmt.Errorf("+extension requires an argument")
			}
			extensions = append(extensions, args[i+1])
			i += 2
		default:
			return 0, false, nil, nil, fmt.Errorf("unrecognized argument %q", args[i])
		}
	}

	return displayNumber, explicitDisplay, listenFDs, extensions, nil
}
