// Package xwayland launches and waits for the Xwayland process this
// satellite acts as the window manager and compositor for. Spawning
// itself is explicitly out of scope beyond handing Xwayland its listen
// fds (spec's process-spawning non-goal); this package is deliberately
// thin.
package xwayland

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/bnema/xwsatellite/internal/xlog"
	"github.com/bnema/xwsatellite/internal/xwmerr"
)

// Process is a running Xwayland child.
type Process struct {
	cmd *exec.Cmd
}

// Spawn execs Xwayland on displayName, handing it listenFDs (already
// open, caller-owned) via -listenfd and extensions via +extension.
func Spawn(displayName string, listenFDs []int, extensions []string) (*Process, error) {
	bin, err := exec.LookPath("Xwayland")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", xwmerr.ErrCannotSpawnXwayland, err)
	}

	args := []string{displayName}
	files := make([]*os.File, 0, len(listenFDs))
	for i, fd := range listenFDs {
		args = append(args, "-listenfd", strconv.Itoa(3+i))
		files = append(files, os.NewFile(uintptr(fd), fmt.Sprintf("listenfd%d", fd)))
	}
	for _, ext := range extensions {
		args = append(args, "+extension", ext)
	}
	args = append(args, "-rootless", "-terminate")

	cmd := exec.Command(bin, args...)
	cmd.ExtraFiles = files
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", xwmerr.ErrCannotSpawnXwayland, err)
	}
	xlog.L.Info("spawned xwayland", "display", displayName, "pid", cmd.Process.Pid)
	return &Process{cmd: cmd}, nil
}

// WaitReady polls connect until it stops erroring or the deadline
// elapses, since this satellite doesn't plumb Xwayland's -displayfd
// synchronization fd.
func WaitReady(timeout time.Duration, connect func() error) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		if lastErr = connect(); lastErr == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("%w: xwayland never became ready: %v", xwmerr.ErrCannotOpenDisplay, lastErr)
}

// Stop terminates the Xwayland child if still running.
func (p *Process) Stop() {
	if p.cmd.Process == nil {
		return
	}
	_ = p.cmd.Process.Kill()
	_, _ = p.cmd.Process.Wait()
}
