package packblockcache

import "errors"

// Sentinel configuration errors, raised only at construction time.
var (
	errInvalidBlockSize   = errors.New("packblockcache: block size must be a power of two >= 512")
	errInvalidMaxBytes    = errors.New("packblockcache: max bytes must be > 0")
	errInvalidStreamRatio = errors.New("packblockcache: stream ratio must be in [0, 1]")
	errNilFactory         = errors.New("packblockcache: pack file factory must not be nil")
)

// ErrStaleLoop is returned by GetOrLoad when a block is repeatedly found
// stale (block.Contains keeps failing after a reload) past the bounded
// retry count, surfacing a fatal error rather than risking livelock under
// an adversarial Contains implementation.
var ErrStaleLoop = errors.New("packblockcache: exceeded stale-block retry bound")

func isPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }
