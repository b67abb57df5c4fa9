// Package cmd is the satellite's command-line entry point. Unlike
// waymon's subcommand tree (server/client/test/...), the satellite has
// a single Xwayland-style positional CLI (spec §6: an optional leading
// ":N" display spec, then "-listenfd <fd>"/"+extension <NAME>" pairs),
// so there is exactly one command and it leaves flag parsing off.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bnema/xwsatellite/internal/assoc"
	"github.com/bnema/xwsatellite/internal/clipboard"
	"github.com/bnema/xwsatellite/internal/config"
	"github.com/bnema/xwsatellite/internal/eventloop"
	"github.com/bnema/xwsatellite/internal/hostclient"
	"github.com/bnema/xwsatellite/internal/hostwire"
	"github.com/bnema/xwsatellite/internal/readiness"
	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/bnema/xwsatellite/internal/wire"
	"github.com/bnema/xwsatellite/internal/xlog"
	"github.com/bnema/xwsatellite/internal/xwayland"
	"github.com/bnema/xwsatellite/internal/xwlserver"
	"github.com/bnema/xwsatellite/internal/xwm"
	"github.com/bnema/xwsatellite/internal/xwmerr"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is set during build.
var Version = "0.1.0-dev"

var rootCmd = &cobra.Command{
	Use:                "xwsatellite [:display] [-listenfd fd]... [+extension name]...",
	Short:              "Rootless Xwayland satellite for Wayland compositors",
	Long:               `xwsatellite launches Xwayland, acts as its X11 window manager and Wayland compositor, and bridges its windows into a host Wayland compositor's surfaces.`,
	Args:               cobra.ArbitraryArgs,
	DisableFlagParsing: true,
	SilenceUsage:       true,
	RunE:               runSatellite,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
}

func runSatellite(cmd *cobra.Command, args []string) error {
	v := viper.New()
	config.BindFlags(v)
	cfg := config.FromViper(v)
	xlog.SetLevel(cfg.LogLevel)

	displayNumber, explicitDisplay, listenFDs, extensions, err := config.ParsePositional(args)
	if err != nil {
		return err
	}
	if !explicitDisplay {
		displayNumber, err = pickFreeDisplay()
		if err != nil {
			return err
		}
	}
	displayName := fmt.Sprintf(":%d", displayNumber)

	ownedListenFD := -1
	if len(listenFDs) == 0 {
		fd, err := wire.ListenAt(fmt.Sprintf("/tmp/.X11-unix/X%d", displayNumber))
		if err != nil {
			return fmt.Errorf("%w: %v", xwmerr.ErrCannotSpawnXwayland, err)
		}
		ownedListenFD = fd
		listenFDs = []int{fd}
	}

	xproc, err := xwayland.Spawn(displayName, listenFDs, extensions)
	if err != nil {
		return err
	}
	defer xproc.Stop()

	reg := registry.New()

	raw, err := hostwire.Dial()
	if err != nil {
		return fmt.Errorf("dialing raw host connection: %w", err)
	}
	defer raw.Close()

	host := hostclient.New(reg, raw)
	if err := host.Connect(); err != nil {
		return err
	}
	defer host.Close()

	var wm *xwm.WM
	err = xwayland.WaitReady(10*time.Second, func() error {
		var connErr error
		wm, connErr = xwm.Connect(displayName, reg)
		return connErr
	})
	if err != nil {
		return err
	}
	defer wm.Close()

	server := xwlserver.New(reg, host, raw)
	assoc.New(reg, wm, server, host)

	wm.OnUrgencyHint = func(xid uint32) {
		a, ok := reg.AssociationByXID(xid)
		if !ok {
			return
		}
		surf, ok := reg.Surface(a.ServerSurface)
		if !ok || surf.HostSurface == 0 {
			return
		}
		if err := host.RequestActivation(surf.HostSurface, ""); err != nil {
			xlog.L.Debug("request_activation failed", "xid", xid, "err", err)
		}
	}

	bridge := clipboard.New(reg, wm, host, time.Duration(cfg.SelectionTimeoutSeconds)*time.Second)
	wm.WireClipboardCallbacks(
		func(name registry.SelectionName, mimeTypes []string) {
			if err := bridge.OnXSelectionOwnerChanged(name, mimeTypes); err != nil {
				xlog.L.Warn("bridging X selection owner change failed", "selection", name, "err", err)
			}
		},
		func(name registry.SelectionName, atom string, dst io.WriteCloser) {
			bridge.ServeXRequest(context.Background(), name, atom, dst)
		},
	)
	host.WireOfferChanged(func(name registry.SelectionName, mimeTypes []string) {
		if err := bridge.OnWaylandOfferChanged(name, mimeTypes); err != nil {
			xlog.L.Warn("bridging Wayland offer change failed", "selection", name, "err", err)
		}
	})
	host.WireSelectionSend(func(name registry.SelectionName, mime string, fd uintptr) {
		bridge.ServeWaylandRequest(context.Background(), name, mime, fdWriteCloser{fd: int(fd)})
	})

	loop, err := eventloop.New()
	if err != nil {
		return err
	}
	defer loop.Close()

	if err := loop.Add(wm.WakeFD(), wm.Drain); err != nil {
		return err
	}
	if err := loop.Add(host.FD(), host.Dispatch); err != nil {
		return err
	}
	loop.AddFlusher(host.Flush)
	if err := loop.Add(raw.FD(), raw.Pump); err != nil {
		return err
	}

	listenFD := listenFDs[0]
	if err := loop.Add(listenFD, acceptHandler(loop, server, host, listenFD)); err != nil {
		return err
	}
	if ownedListenFD >= 0 {
		defer unixClose(ownedListenFD)
	}

	ready := readiness.New(cfg.EnableReadiness)
	ready.Notify()
	xlog.L.Info("xwsatellite running", "display", displayName)

	return loop.Run()
}

// acceptHandler accepts one Xwayland connection and registers its fd
// with the loop. The raw host connection is dialed once for the whole
// process (runSatellite) and shared by every accepted client, so there
// is nothing per-connection left to add for it here.
func acceptHandler(loop *eventloop.Loop, server *xwlserver.Server, host *hostclient.Client, listenFD int) eventloop.Handler {
	return func() error {
		conn, err := wire.Accept(listenFD)
		if err != nil {
			return err
		}
		client := server.Accept(conn)
		host.SetInputSink(client)
		client.OnKeyboardBound = host.ReplayLastKeymap
		fd := client.FD()
		if err := loop.Add(fd, func() error {
			err := client.Dispatch()
			if err != nil {
				server.Remove(fd)
				loop.Remove(fd)
				client.Close()
			}
			return err
		}); err != nil {
			return err
		}
		return nil
	}
}

// pickFreeDisplay finds the lowest unused X display number by probing
// the conventional lock-file path, the way Xorg/Xwayland wrapper
// scripts traditionally do.
func pickFreeDisplay() (int, error) {
	for n := 0; n < 100; n++ {
		lock := fmt.Sprintf("/tmp/.X%d-lock", n)
		if _, err := os.Stat(lock); os.IsNotExist(err) {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: no free X display number under 100", xwmerr.ErrCannotSpawnXwayland)
}
