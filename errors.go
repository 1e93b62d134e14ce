package rangedl

import "github.com/rangedl/rangedl/pkg/rangedlerr"

// Error, Kind and the Kind constants are re-exported at the root so callers
// need only import this package to distinguish failure kinds with
// errors.As, per the error handling design.
type (
	Error = rangedlerr.Error
	Kind  = rangedlerr.Kind
)

const (
	InvalidRange    = rangedlerr.InvalidRange
	InvalidConfig   = rangedlerr.InvalidConfig
	SizeUnavailable = rangedlerr.SizeUnavailable
	ClientFetch     = rangedlerr.ClientFetch
	ShortRead       = rangedlerr.ShortRead
	OverRead        = rangedlerr.OverRead
)

// ErrSizeUnavailable constructs a terminal SizeUnavailable error with the
// given message and no wrapped cause (used when the range model itself
// detects a missing size, rather than a failed client call).
func ErrSizeUnavailable(message string) error {
	return rangedlerr.New(rangedlerr.SizeUnavailable, message)
}
