package rangedl

import (
	"context"
	"io"

	"github.com/rangedl/rangedl/pkg/ranges"
)

// Client is the storage adapter contract the engine is generic over.
// Implementations must be safe for concurrent invocation: the engine calls
// Fetch from multiple goroutines at once, up to Config.MaxConcurrency.
//
// Cancellation is via ctx: once ctx is done, an in-progress Fetch's returned
// stream should be abandoned promptly by the implementation.
type Client interface {
	// GetSize returns the blob's total size in bytes.
	GetSize(ctx context.Context, blobID string) (uint64, error)
	// Fetch returns a stream of the bytes in the inclusive byte range r of
	// blobID, totaling exactly r.Len() bytes.
	Fetch(ctx context.Context, blobID string, r ranges.InclusiveRange) (io.ReadCloser, error)
}
