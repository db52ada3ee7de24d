// Package ring defines the ring-buffer consumption contract the RingReader
// task polls (§4.5): a single reader, non-blocking copy, and a flag word
// that also carries the shutdown signal. The real ring buffer is an
// external shared-memory resource outside this module's scope (§1
// Non-goals); this package is the seam a concrete implementation plugs
// into, plus an in-memory Fake for tests.
package ring

import "errors"

// MaxMessageSize bounds a single ring message (§4.5 "up to 16 KiB").
const MaxMessageSize = 16 * 1024

// Flag is the result of polling the ring's flag word.
type Flag int

const (
	// FlagNone means no message is ready.
	FlagNone Flag = iota
	// FlagData means a message is ready to copyFrom.
	FlagData
	// FlagTerminate means the ring owner has signaled shutdown.
	FlagTerminate
)

// ErrEmpty is returned by CopyFrom when no message is currently available.
var ErrEmpty = errors.New("ring: no message available")

// Ring is the contract a single RingReader task drives (§4.5). Poll and
// CopyFrom are both non-blocking: callers sleep between poll attempts
// themselves.
type Ring interface {
	// Drain discards any stale messages left over from a previous
	// session, returning how many were discarded.
	Drain() (int, error)
	// Poll reports whether a message, a terminate signal, or nothing is
	// currently pending.
	Poll() (Flag, error)
	// CopyFrom copies one pending message (at most MaxMessageSize bytes)
	// into the ring's internal buffer and returns it. Returns ErrEmpty if
	// Poll last reported FlagNone.
	CopyFrom() ([]byte, error)
	// Detach releases the ring handle.
	Detach() error
}
