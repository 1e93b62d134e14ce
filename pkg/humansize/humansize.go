// Package humansize parses the size- and duration-literal grammar used at
// the configuration boundary (string/env parsing is explicitly out of the
// core's scope, but the value space it must land in is part of the
// contract).
package humansize

import (
	"strconv"
	"strings"
	"time"

	units "github.com/docker/go-units"
)

// ParseSize parses a size literal such as "2MiB", "2Mi", "10k", or a bare
// byte count, accepting both the decimal (k=10^3, M=10^6, G=10^9) and binary
// (Ki=2^10, Mi=2^20, Gi=2^30) suffix families.
func ParseSize(s string) (uint64, error) {
	// A trailing "i" or "iB" selects the binary family; anything else is
	// decimal.
	s = strings.TrimSpace(s)
	parse := units.FromHumanSize
	if lower := strings.ToLower(s); strings.HasSuffix(lower, "ib") {
		s, parse = s[:len(s)-2], units.RAMInBytes
	} else if strings.HasSuffix(lower, "i") {
		s, parse = s[:len(s)-1], units.RAMInBytes
	}
	n, err := parse(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return uint64(n), nil
}

// ParseStallDelay parses the buffers_full_delay literal. A bare integer is
// interpreted as milliseconds, per the original configuration surface;
// anything else is parsed as a Go duration string (e.g. "10ms", "1s"), so
// both forms in common use across the retrieval pack's configs are
// accepted.
func ParseStallDelay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}
