package fanout

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// ChannelStats is one channel's liveness counters, as returned by
// ChannelRegistry.Snapshot for the status renderer (§4.8). It carries no
// synchronization of its own: it is a point-in-time copy, never the live
// entry other goroutines update.
type ChannelStats struct {
	LastSeen    time.Time
	SamplesSeen uint64
}

// channelEntry is the live, mutable counter stored in the registry. Its own
// mutex guards field updates, since multiple TransmitTasks (one per
// subscriber) may Observe the same channel name concurrently even though
// the registry's map lookup itself is lock-free.
type channelEntry struct {
	mu    sync.Mutex
	stats ChannelStats
}

func (e *channelEntry) record(n int, at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.LastSeen = at
	e.stats.SamplesSeen += uint64(n)
}

func (e *channelEntry) snapshot() ChannelStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// ChannelRegistry is a concurrent-safe channel-name → ChannelStats lookup,
// updated far more often (once per demuxed channel per ring message) than
// it is read (once per status refresh), so it is layered with xsync's
// lock-free map instead of taking the coarser SlotPool mutex for every
// update (§9's fixed-capacity slot table still governs subscriber
// admission control; this governs the orthogonal name→liveness lookup).
type ChannelRegistry struct {
	stats *xsync.Map[string, *channelEntry]
}

// NewChannelRegistry builds an empty registry.
func NewChannelRegistry() *ChannelRegistry {
	return &ChannelRegistry{stats: xsync.NewMap[string, *channelEntry]()}
}

// Observe records that n samples for channel name were just fanned out.
func (r *ChannelRegistry) Observe(name string, n int, at time.Time) {
	if name == "" {
		return
	}
	entry, _ := r.stats.LoadOrStore(name, &channelEntry{})
	entry.record(n, at)
}

// Snapshot returns a copy of every tracked channel's stats, keyed by name,
// for the status renderer (§4.8).
func (r *ChannelRegistry) Snapshot() map[string]ChannelStats {
	out := make(map[string]ChannelStats)
	r.stats.Range(func(name string, entry *channelEntry) bool {
		out[name] = entry.snapshot()
		return true
	})
	return out
}
