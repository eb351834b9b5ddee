package packblockcache

// config.go holds BlockCache's construction-time settings: a private config
// struct filled in by defaults, then mutated by a slice of functional
// Options, then validated.
//
// © 2025 packblockcache authors. MIT License.

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures a BlockCache at construction time.
type Option func(*config)

type config struct {
	blockSize   int
	maxBytes    int64
	streamRatio float64

	logger   *zap.Logger
	registry *prometheus.Registry
}

func defaultConfig(blockSize int, maxBytes int64, streamRatio float64) *config {
	return &config{
		blockSize:   blockSize,
		maxBytes:    maxBytes,
		streamRatio: streamRatio,
		logger:      zap.NewNop(),
	}
}

// WithLogger plugs an external zap.Logger. The cache never logs on the hot
// path (GetOrLoad hits); only slow events — pack registration/eviction,
// stale-block retries, removal-listener panics — are emitted.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection. Passing nil disables
// metrics (the default), in which case the hot path pays nothing for it.
func WithMetrics(reg *prometheus.Registry) Option {
	return func(c *config) { c.registry = reg }
}

func applyOptions(cfg *config, opts []Option) error {
	for _, opt := range opts {
		opt(cfg)
	}

	if !isPowerOfTwo(cfg.blockSize) || cfg.blockSize < 512 {
		return fmt.Errorf("%w: got %d", errInvalidBlockSize, cfg.blockSize)
	}
	if cfg.maxBytes <= 0 {
		return fmt.Errorf("%w: got %d", errInvalidMaxBytes, cfg.maxBytes)
	}
	if cfg.streamRatio < 0 || cfg.streamRatio > 1 {
		return fmt.Errorf("%w: got %f", errInvalidStreamRatio, cfg.streamRatio)
	}
	return nil
}
