// Package dispatch pulls part requests from the planner and issues them
// concurrently against a storage client, enforcing a concurrency cap and
// propagating the first failure.
package dispatch

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/rangedl/rangedl/pkg/plan"
	"github.com/rangedl/rangedl/pkg/rangedlerr"
	"github.com/rangedl/rangedl/pkg/ranges"
)

// Payload is one completed fetch: the part it belongs to and its bytes.
// len(Bytes) always equals the originating Request's Len().
type Payload struct {
	PartIndex int
	Bytes     []byte
}

// Client is the subset of the storage client the dispatcher needs: fetching
// a byte range of a blob as a stream of chunks.
type Client interface {
	Fetch(ctx context.Context, blobID string, r ranges.InclusiveRange) (io.ReadCloser, error)
}

// Result is one entry of the dispatcher's unordered output: either a
// completed Payload or the error that terminated that part's fetch.
type Result struct {
	Payload Payload
	Err     error
}

// copyBufSize is the chunk size used when streaming a part's body.
const copyBufSize = 32 * 1024

// Run pulls Requests from requests and issues them concurrently through
// client, with at most maxConcurrency outstanding fetches at any instant. It
// returns an unordered channel of Results; the dispatcher makes no ordering
// guarantee between them; ordering is the reassembly stream's job.
//
// permits, if non-nil, additionally gates admission: Run acquires one token
// before starting each request and never admits more requests than permits
// has capacity for until a token is returned. The reassembly stream holds
// the other end of this channel and returns a token each time it emits a
// part, so permits' capacity is the number of parts that may be fetched (or
// completed and awaiting emission) ahead of the reader at any instant. This
// throttles admission itself rather than withholding completed results, so
// the part the reader is waiting on next is never stuck behind already
// in-flight ones: admission is pulled from requests in strictly increasing
// part order, so that part's own token is claimed (and its fetch started)
// before any part further ahead can claim one. A nil permits disables this
// and admission is bounded by maxConcurrency alone.
//
// On the first failing fetch, Run calls cancel (which must cancel the same
// ctx that fed requests' producer, typically plan.Plan) so no further
// requests are admitted and in-flight ones unwind at their next suspension
// point; no retry is performed at this layer. Run returns immediately; the
// output channel is closed once every admitted request has finished.
func Run(ctx context.Context, cancel context.CancelFunc, blobID string, client Client, maxConcurrency int, requests <-chan plan.Request, permits <-chan struct{}, log logrus.FieldLogger) <-chan Result {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	out := make(chan Result)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	go func() {
		defer close(out)
	admit:
		for {
			select {
			case req, ok := <-requests:
				if !ok {
					break admit
				}
				if permits != nil {
					select {
					case <-permits:
					case <-gctx.Done():
						break admit
					}
				}
				req := req
				g.Go(func() error {
					payload, err := fetchOne(gctx, blobID, client, req, log)
					result := Result{Payload: payload, Err: err}
					select {
					case out <- result:
					case <-gctx.Done():
					}
					if err != nil {
						log.WithError(err).WithField("part", req.PartIndex).Warn("dispatch: part failed, cancelling download")
						cancel()
						return err
					}
					return nil
				})
			case <-gctx.Done():
				break admit
			}
		}
		_ = g.Wait()
	}()

	return out
}

func fetchOne(ctx context.Context, blobID string, client Client, req plan.Request, log logrus.FieldLogger) (Payload, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log.WithFields(logrus.Fields{"part": req.PartIndex, "start": req.Start, "end": req.EndIncl}).Debug("dispatch: fetching part")

	interval := ranges.InclusiveRange{Lo: req.Start, Hi: req.EndIncl}
	body, err := client.Fetch(ctx, blobID, interval)
	if err != nil {
		return Payload{}, rangedlerr.Wrap(rangedlerr.ClientFetch, fmt.Sprintf("part %d", req.PartIndex), err)
	}
	defer body.Close()

	expected := req.Len()
	buf := make([]byte, copyBufSize)
	out := make([]byte, 0, expected)
	var copied uint64
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			copied += uint64(n)
			if copied > expected {
				return Payload{}, rangedlerr.New(rangedlerr.OverRead,
					fmt.Sprintf("part %d: read %d bytes, want %d", req.PartIndex, copied, expected))
			}
			out = append(out, buf[:n]...)
		}
		if rerr == io.EOF {
			if copied != expected {
				return Payload{}, rangedlerr.New(rangedlerr.ShortRead,
					fmt.Sprintf("part %d: read %d bytes, want %d", req.PartIndex, copied, expected))
			}
			break
		}
		if rerr != nil {
			return Payload{}, rangedlerr.Wrap(rangedlerr.ClientFetch, fmt.Sprintf("part %d", req.PartIndex), rerr)
		}
	}

	log.WithField("part", req.PartIndex).Debug("dispatch: part complete")
	return Payload{PartIndex: req.PartIndex, Bytes: out}, nil
}
