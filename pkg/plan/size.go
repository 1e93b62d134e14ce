package plan

import (
	"context"

	"github.com/rangedl/rangedl/pkg/rangedlerr"
	"github.com/rangedl/rangedl/pkg/ranges"
)

// SizeGetter is the subset of the storage client the size oracle needs: a
// way to ask for the blob's total size.
type SizeGetter interface {
	GetSize(ctx context.Context, blobID string) (uint64, error)
}

// ResolveSize decides whether dr needs the blob's size to be resolved into a
// canonical interval and, if so, fetches it. Open ranges always query.
// Closed ranges query only when alwaysGetSize is true. Failure to obtain a
// required size is a terminal SizeUnavailable error.
func ResolveSize(ctx context.Context, client SizeGetter, blobID string, dr ranges.DownloadRange, alwaysGetSize bool) (size *uint64, err error) {
	needsSize := dr.IsOpen() || alwaysGetSize
	if !needsSize {
		return nil, nil
	}

	s, err := client.GetSize(ctx, blobID)
	if err != nil {
		if dr.IsOpen() {
			return nil, rangedlerr.Wrap(rangedlerr.SizeUnavailable, "open range requires the blob size", err)
		}
		// Closed range: size is only used to clamp the upper bound to EOF,
		// but always_get_size means the caller asked for that clamp, so a
		// failure to obtain it is still terminal rather than silently
		// falling back to the unclamped bound.
		return nil, rangedlerr.Wrap(rangedlerr.SizeUnavailable, "failed to query blob size for clamping", err)
	}
	return &s, nil
}
