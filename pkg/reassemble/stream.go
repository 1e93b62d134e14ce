// Package reassemble consumes the unordered stream of completed parts from
// the dispatcher and exposes them to the caller, in order, as a single
// io.ReadCloser.
//
// How far the dispatcher may run ahead of the reader is bounded by a shared
// permits channel, not by Stream withholding receipt of a completed part:
// a part that is merely ahead of the cursor can always wait in the buffered
// map, but the part the reader is waiting on next must never be stuck
// behind ones the dispatcher has already admitted. Gating admission instead
// of receipt guarantees that, since the dispatcher claims permits in
// strictly increasing part order, so the next-to-emit part's own permit is
// always claimed (and its fetch started) before any part further ahead can
// claim one; pump itself therefore always drains results as fast as they
// arrive. See dispatch.Run's permits parameter.
//
// The wakeup scheme is a mutex-guarded sync.Cond used to block a reader
// until either more data is available or the stream has ended, instead of
// polling. buffers_full_delay is honored as a periodic, best-effort nudge
// of that Cond (a safety net against missed wakeups), not a sleep loop.
package reassemble

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rangedl/rangedl/pkg/dispatch"
)

// ErrClosed is returned by Read after Close has been called.
var ErrClosed = errors.New("reassemble: read from closed stream")

// Stream is an io.ReadCloser that delivers dispatch.Results in strict
// part-index order.
type Stream struct {
	mu   sync.Mutex
	cond *sync.Cond

	numParts   int
	nextToEmit int

	buffered map[int]dispatch.Payload
	permits  chan<- struct{}
	curBytes []byte

	err      error
	pumpDone bool
	closed   bool

	cancel context.CancelFunc
	stop   chan struct{}
	log    logrus.FieldLogger
}

// New starts consuming results (the dispatcher's unordered output) and
// returns a Stream that serves their bytes back in part order. numParts is
// the total number of parts the download was split into; cancel is called
// when the caller closes the Stream early, to unwind the dispatcher and
// planner. bufferSize sizes the buffered-part map; one token is returned to
// permits as each part is emitted, and permits is the same
// channel passed as dispatch.Run's admission gate (nil disables the
// return, e.g. in tests that don't wire one up). stallDelay comes directly
// from Config.
func New(numParts, bufferSize int, stallDelay time.Duration, results <-chan dispatch.Result, permits chan<- struct{}, cancel context.CancelFunc, log logrus.FieldLogger) *Stream {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Stream{
		numParts: numParts,
		buffered: make(map[int]dispatch.Payload, bufferSize),
		permits:  permits,
		cancel:   cancel,
		stop:     make(chan struct{}),
		log:      log,
	}
	s.cond = sync.NewCond(&s.mu)

	if numParts > 0 {
		go s.pump(results)
		if stallDelay > 0 {
			go s.nudge(stallDelay)
		}
	} else {
		s.pumpDone = true
	}

	return s
}

// pump waits for the next completion and stores it (or the first error) for
// Read to pick up. It never withholds receipt: admission, not receipt, is
// where backpressure applies (see the package doc comment).
func (s *Stream) pump(results <-chan dispatch.Result) {
	defer func() {
		s.mu.Lock()
		s.pumpDone = true
		s.cond.Broadcast()
		s.mu.Unlock()
	}()

	for {
		select {
		case result, ok := <-results:
			if !ok {
				return
			}
			s.mu.Lock()
			if result.Err != nil {
				if s.err == nil {
					s.err = result.Err
					s.log.WithError(result.Err).Warn("reassemble: fetch failed, terminating stream")
				}
				s.cond.Broadcast()
				s.mu.Unlock()
				return
			}
			s.buffered[result.Payload.PartIndex] = result.Payload
			s.cond.Broadcast()
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

// nudge periodically broadcasts the condition variable as a safety net
// against a missed wakeup; it never itself changes state. This is the sole
// effect of buffers_full_delay in this implementation: Go's Cond already
// wakes readers the instant new data or an error is posted, so no polling
// loop is needed for correctness, but the tunable is still honored as a
// bounded cooperative-yield cadence per the original Design Notes.
func (s *Stream) nudge(d time.Duration) {
	t := time.NewTicker(d)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

// Read implements io.Reader, blocking until the next in-order part arrives,
// the stream ends, or a fetch error terminates it. Chunk k+1 is never
// emitted before chunk k.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.closed {
			return 0, ErrClosed
		}

		if len(s.curBytes) > 0 {
			n := copy(p, s.curBytes)
			s.curBytes = s.curBytes[n:]
			return n, nil
		}

		if s.nextToEmit >= s.numParts {
			return 0, io.EOF
		}

		if payload, ok := s.buffered[s.nextToEmit]; ok {
			delete(s.buffered, s.nextToEmit)
			s.nextToEmit++
			s.curBytes = payload.Bytes
			if s.permits != nil {
				select {
				case s.permits <- struct{}{}:
				default:
					// Defensive: a full permits channel here means some
					// caller double-admitted without claiming a token.
				}
			}
			continue
		}

		if s.err != nil {
			return 0, s.err
		}

		if s.pumpDone {
			// The dispatcher finished without an error but without ever
			// delivering the part we're waiting on: a programmer error in
			// the planner/dispatcher wiring, not a user-facing condition.
			return 0, fmt.Errorf("reassemble: dispatcher ended before part %d", s.nextToEmit)
		}

		s.cond.Wait()
	}
}

// Close releases the Stream and cancels the underlying download. No chunk
// may be emitted out of order as a result of closing early; Close simply
// stops further emission.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stop)
	if s.cancel != nil {
		s.cancel()
	}

	s.mu.Lock()
	s.cond.Broadcast()
	s.mu.Unlock()
	return nil
}

