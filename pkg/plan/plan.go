// Package plan turns a canonical inclusive byte interval into the ordered
// sequence of fixed-size part requests the dispatcher fetches, and decides
// whether a size lookup is needed before that split can happen.
package plan

import (
	"context"

	"github.com/rangedl/rangedl/pkg/ranges"
)

// Request is one unit of fetch work: a dense, zero-based PartIndex and the
// sub-interval of the canonical range it covers.
type Request struct {
	PartIndex int
	Start     uint64
	EndIncl   uint64
}

// Len returns the number of bytes this request spans.
func (r Request) Len() uint64 { return r.EndIncl - r.Start + 1 }

// Plan splits interval into fixed-size Requests and streams them over a
// channel in strictly increasing Start order, starting at PartIndex 0. The
// channel is closed once every request has been sent, or promptly if ctx is
// cancelled first. partSize must be >= 1; zero is a programmer error and
// Plan panics, per the "fault loudly" requirement on this precondition.
//
// The returned sequence is lazy (parts are computed on demand as the
// dispatcher receives them) and single-pass: it is backed by a goroutine
// that sends each Request exactly once and then exits.
func Plan(ctx context.Context, interval ranges.InclusiveRange, partSize uint64) (numParts int, requests <-chan Request) {
	if partSize == 0 {
		panic("plan: partSize must be >= 1")
	}

	length := interval.Len()
	numParts = int((length + partSize - 1) / partSize)

	out := make(chan Request)
	go func() {
		defer close(out)
		start := interval.Lo
		for i := 0; i < numParts; i++ {
			end := start + partSize - 1
			if i == numParts-1 || end > interval.Hi {
				end = interval.Hi
			}
			req := Request{PartIndex: i, Start: start, EndIncl: end}
			select {
			case out <- req:
			case <-ctx.Done():
				return
			}
			start = end + 1
		}
	}()

	return numParts, out
}
