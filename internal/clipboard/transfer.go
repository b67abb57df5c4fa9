package clipboard

import (
	"context"
	"io"
	"time"

	"github.com/bnema/xwsatellite/internal/registry"
	"github.com/bnema/xwsatellite/internal/xlog"
)

// SourceOpener opens a read side for the current selection owner's
// offer of a given MIME type: on the X side this is an X11
// ConvertSelection round trip exposed as a reader, on the Wayland side
// it's the data-offer's receive() fd. Either is modelled as an
// io.ReadCloser so Transfer doesn't need to know which.
type SourceOpener func(mime string) (io.ReadCloser, error)

// Transfer streams one selection request from src to dst, honoring the
// bounded wall-clock timeout of spec §5 and aborting (keeping whatever
// bytes were written) if the registry reports the owner changed
// mid-transfer (spec §3 invariant: "a change-of-owner cancels any
// in-flight transfer of the previous owner").
func Transfer(ctx context.Context, reg *registry.Registry, name registry.SelectionName, generation uint64, mime string, open SourceOpener, dst io.WriteCloser, timeout time.Duration) {
	defer dst.Close()

	log := xlog.With("selection", string(name), "mime", mime)

	src, err := open(mime)
	if err != nil {
		log.Warn("selection transfer: opening source failed", "err", err)
		return
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type readResult struct {
		n   int
		buf []byte
		err error
	}
	results := make(chan readResult, 1)
	readNext := func() {
		buf := make([]byte, 64*1024)
		n, err := src.Read(buf)
		results <- readResult{n: n, buf: buf, err: err}
	}

	go readNext()
	for {
		if reg.Selection(name).Generation != generation {
			log.Debug("selection transfer: owner changed, aborting")
			return
		}

		select {
		case <-ctx.Done():
			log.Warn("selection transfer: timed out, aborting with partial data")
			return
		case res := <-results:
			if res.n > 0 {
				if _, werr := dst.Write(res.buf[:res.n]); werr != nil {
					log.Warn("selection transfer: write failed", "err", werr)
					return
				}
			}
			if res.err != nil {
				if res.err != io.EOF {
					log.Warn("selection transfer: read failed", "err", res.err)
				}
				return
			}
			go readNext()
		}
	}
}
