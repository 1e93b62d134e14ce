// Package rangedl implements a concurrent ranged-object downloader: given a
// Client able to fetch byte ranges of a named blob, it splits a logical
// download into fixed-size parts, issues them concurrently with bounded
// parallelism, and re-assembles the bytes into an in-order byte stream.
package rangedl

import (
	"bytes"
	"context"
	"io"

	"github.com/rangedl/rangedl/pkg/dispatch"
	"github.com/rangedl/rangedl/pkg/plan"
	"github.com/rangedl/rangedl/pkg/rangedlerr"
	"github.com/rangedl/rangedl/pkg/ranges"
	"github.com/rangedl/rangedl/pkg/reassemble"
)

// Engine drives downloads against a single Client using a fixed Config. An
// Engine is safe for concurrent use: each Download call drives its own
// dispatcher and reassembly buffer.
type Engine struct {
	client Client
	cfg    Config
}

// New constructs an Engine bound to client with the given Config, which
// must already be valid (see NewConfig).
func New(client Client, cfg Config) *Engine {
	return &Engine{client: client, cfg: cfg}
}

// Download is the stream of bytes produced by a single download, plus a
// total-size accessor. It implements io.ReadCloser.
type Download struct {
	io.Reader
	closer io.Closer
	size   *uint64
}

// Size returns the blob's total size and whether it was known. Size is only
// known when the size oracle queried it (see plan.ResolveSize): an Open
// range always knows it; a Closed range knows it only when
// Config.AlwaysGetSize is true.
func (d *Download) Size() (uint64, bool) {
	if d.size == nil {
		return 0, false
	}
	return *d.size, true
}

// Close cancels any in-flight fetches and releases the Download's resources.
func (d *Download) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// ReadAll is a convenience collector that reads a Download to completion
// into a contiguous buffer. It is not part of the core streaming contract.
func (d *Download) ReadAll() ([]byte, error) {
	defer d.Close()
	return io.ReadAll(d.Reader)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Download resolves dr against blobID and streams its bytes back in order.
// It returns an error synchronously when dr is invalid, the configuration is
// invalid (unreachable if cfg came from NewConfig), or the blob size could
// not be obtained when required. Fetch-time errors instead surface through
// the returned Download's Read calls, per the error handling design.
func (e *Engine) Download(ctx context.Context, blobID string, dr ranges.DownloadRange) (*Download, error) {
	if err := e.cfg.validate(); err != nil {
		return nil, err
	}
	if err := dr.Validate(); err != nil {
		return nil, rangedlerr.Wrap(rangedlerr.InvalidRange, "download range", err)
	}

	log := e.cfg.Logger

	sanitized, ok := dr.Sanitize()
	if !ok {
		log.Debug("rangedl: sanitized range is empty, nothing to download")
		return &Download{Reader: bytes.NewReader(nil), closer: nopCloser{}}, nil
	}

	size, err := plan.ResolveSize(ctx, e.client, blobID, sanitized, e.cfg.AlwaysGetSize)
	if err != nil {
		return nil, err
	}

	interval, needSize, ok := sanitized.Resolve(size)
	if needSize {
		// Resolve only reports needSize=true when size is nil, which
		// ResolveSize above guarantees cannot happen for an Open range.
		return nil, ErrSizeUnavailable("blob size required to resolve range")
	}
	if !ok {
		log.Debug("rangedl: resolved range is empty, nothing to download")
		return &Download{Reader: bytes.NewReader(nil), closer: nopCloser{}, size: size}, nil
	}

	downloadCtx, cancel := context.WithCancel(ctx)
	numParts, requests := plan.Plan(downloadCtx, interval, e.cfg.PartSizeBytes)
	if numParts == 0 {
		cancel()
		return &Download{Reader: bytes.NewReader(nil), closer: nopCloser{}, size: size}, nil
	}

	permits := make(chan struct{}, e.cfg.BufferSize)
	for i := 0; i < e.cfg.BufferSize; i++ {
		permits <- struct{}{}
	}

	results := dispatch.Run(downloadCtx, cancel, blobID, e.client, e.cfg.MaxConcurrency, requests, permits, log)
	stream := reassemble.New(numParts, e.cfg.BufferSize, e.cfg.BuffersFullDelay, results, permits, cancel, log)

	log.WithField("parts", numParts).Debug("rangedl: download started")

	return &Download{Reader: stream, closer: stream, size: size}, nil
}
