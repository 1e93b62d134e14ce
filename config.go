package rangedl

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rangedl/rangedl/pkg/rangedlerr"
)

// Default tunables for a Config built via NewConfig with no options.
const (
	DefaultPartSizeBytes    = 2 * 1024 * 1024 // 2 MiB
	DefaultMaxConcurrency   = 64
	DefaultBufferSize       = 2
	DefaultBuffersFullDelay = 10 * time.Millisecond
	DefaultAlwaysGetSize    = true
)

// Config holds the process-local tunables for an Engine. It is constructed
// once (via NewConfig), validated at construction, and immutable thereafter.
type Config struct {
	// PartSizeBytes is the size of each fetched part, in bytes. Must be >= 1.
	PartSizeBytes uint64
	// MaxConcurrency is the maximum number of in-flight fetches. Must be >= 1.
	MaxConcurrency int
	// BufferSize is the number of completed-but-unordered part slots held
	// before backpressure, not a byte count. Must be >= 1.
	BufferSize int
	// BuffersFullDelay bounds the stall-polling cadence when the pipeline is
	// blocked waiting for either the consumer or a specific part. Must be
	// >= 0; 0 means no periodic nudge is scheduled (see pkg/reassemble).
	BuffersFullDelay time.Duration
	// AlwaysGetSize, for Closed ranges, causes the engine to query the
	// blob's size so the requested upper bound can be clamped to EOF.
	AlwaysGetSize bool
	// Logger receives debug/warn narration of the download pipeline.
	// Defaults to logrus.NewEntry(logrus.StandardLogger()).
	Logger logrus.FieldLogger
}

// Option configures a Config under construction.
type Option func(*Config)

// WithPartSizeBytes overrides DefaultPartSizeBytes.
func WithPartSizeBytes(n uint64) Option { return func(c *Config) { c.PartSizeBytes = n } }

// WithMaxConcurrency overrides DefaultMaxConcurrency.
func WithMaxConcurrency(n int) Option { return func(c *Config) { c.MaxConcurrency = n } }

// WithBufferSize overrides DefaultBufferSize.
func WithBufferSize(n int) Option { return func(c *Config) { c.BufferSize = n } }

// WithBuffersFullDelay overrides DefaultBuffersFullDelay.
func WithBuffersFullDelay(d time.Duration) Option { return func(c *Config) { c.BuffersFullDelay = d } }

// WithAlwaysGetSize overrides DefaultAlwaysGetSize.
func WithAlwaysGetSize(v bool) Option { return func(c *Config) { c.AlwaysGetSize = v } }

// WithLogger overrides the default logger.
func WithLogger(logger logrus.FieldLogger) Option { return func(c *Config) { c.Logger = logger } }

// NewConfig builds a Config from the defaults above and opts, and validates
// it. Zero PartSizeBytes or MaxConcurrency is rejected as InvalidConfig.
func NewConfig(opts ...Option) (Config, error) {
	c := Config{
		PartSizeBytes:    DefaultPartSizeBytes,
		MaxConcurrency:   DefaultMaxConcurrency,
		BufferSize:       DefaultBufferSize,
		BuffersFullDelay: DefaultBuffersFullDelay,
		AlwaysGetSize:    DefaultAlwaysGetSize,
	}
	for _, o := range opts {
		o(&c)
	}
	if c.Logger == nil {
		c.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.PartSizeBytes == 0 {
		return rangedlerr.New(rangedlerr.InvalidConfig, "part_size_bytes must be >= 1")
	}
	if c.MaxConcurrency <= 0 {
		return rangedlerr.New(rangedlerr.InvalidConfig, "max_concurrency must be >= 1")
	}
	if c.BufferSize <= 0 {
		return rangedlerr.New(rangedlerr.InvalidConfig, "buffer_size must be >= 1")
	}
	if c.BuffersFullDelay < 0 {
		return rangedlerr.New(rangedlerr.InvalidConfig, "buffers_full_delay must be >= 0")
	}
	return nil
}
