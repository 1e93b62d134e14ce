// Package rangedltest provides fake rangedl.Client implementations and
// small data helpers for tests.
package rangedltest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rangedl/rangedl/pkg/ranges"
)

// MemClient is an in-memory rangedl.Client over a fixed byte slice, used to
// exercise the engine end to end without real network I/O.
type MemClient struct {
	mu   sync.Mutex
	data []byte

	// FailSize, when true, makes GetSize return an error.
	FailSize bool
	// FailPart, if set, makes Fetch fail for that exact part start offset.
	FailPart map[uint64]error
	// Requested records every range fetched, in call order.
	Requested []ranges.InclusiveRange
	// BeforeFetch, if set, is invoked synchronously before each Fetch
	// returns its body, letting tests coordinate completion order.
	BeforeFetch func(r ranges.InclusiveRange)
}

// NewMemClient returns a MemClient serving data.
func NewMemClient(data []byte) *MemClient {
	return &MemClient{data: data, FailPart: map[uint64]error{}}
}

// AlphabetClient returns a MemClient serving the 26-letter alphabet
// "abcdefghijklmnopqrstuvwxyz", the fixture used throughout the end-to-end
// scenarios.
func AlphabetClient() *MemClient {
	return NewMemClient([]byte("abcdefghijklmnopqrstuvwxyz"))
}

// GetSize implements rangedl.Client.
func (c *MemClient) GetSize(ctx context.Context, _ string) (uint64, error) {
	if c.FailSize {
		return 0, fmt.Errorf("rangedltest: forced GetSize failure")
	}
	return uint64(len(c.data)), nil
}

// Fetch implements rangedl.Client.
func (c *MemClient) Fetch(ctx context.Context, _ string, r ranges.InclusiveRange) (io.ReadCloser, error) {
	c.mu.Lock()
	c.Requested = append(c.Requested, r)
	fail := c.FailPart[r.Lo]
	c.mu.Unlock()

	if c.BeforeFetch != nil {
		c.BeforeFetch(r)
	}

	if fail != nil {
		return nil, fail
	}

	if r.Hi >= uint64(len(c.data)) {
		return nil, fmt.Errorf("rangedltest: range %d-%d out of bounds (len %d)", r.Lo, r.Hi, len(c.data))
	}

	return io.NopCloser(strings.NewReader(string(c.data[r.Lo : r.Hi+1]))), nil
}

// GenerateTestData returns deterministic, reproducible byte content of the
// given size.
func GenerateTestData(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 256)
	}
	return data
}
