package fanout_test

import (
	"testing"

	"github.com/seismicdata/drf-fanout/internal/fanout"
	"github.com/stretchr/testify/require"
)

func TestSlotPoolAllocateAssignsDistinctConnIDs(t *testing.T) {
	t.Parallel()
	pool := fanout.NewSlotPool()

	sub1, ok := pool.Allocate()
	require.True(t, ok)
	sub2, ok := pool.Allocate()
	require.True(t, ok)

	require.NotEmpty(t, sub1.ConnID)
	require.NotEmpty(t, sub2.ConnID)
	require.NotEqual(t, sub1.ConnID, sub2.ConnID)
}

// TestSlotPoolAllocateTableFull confirms the pool refuses a new connection
// once MaxSubscribers slots are occupied (§4.7 item 2).
func TestSlotPoolAllocateTableFull(t *testing.T) {
	t.Parallel()
	pool := fanout.NewSlotPool()

	for i := 0; i < fanout.MaxSubscribers; i++ {
		_, ok := pool.Allocate()
		require.True(t, ok)
	}

	_, ok := pool.Allocate()
	require.False(t, ok)
	require.Equal(t, fanout.MaxSubscribers, pool.Count())
}

// TestSlotPoolReleaseFreesSlotForReuse confirms a released slot's index is
// handed to the next Allocate, but with a fresh ConnID rather than the
// previous occupant's (§4.7's slot reuse, distinguished via ConnID).
func TestSlotPoolReleaseFreesSlotForReuse(t *testing.T) {
	t.Parallel()
	pool := fanout.NewSlotPool()

	first, ok := pool.Allocate()
	require.True(t, ok)
	firstConnID := first.ConnID

	pool.Release(first)
	require.Equal(t, 0, pool.Count())

	second, ok := pool.Allocate()
	require.True(t, ok)
	require.Equal(t, first.SlotIndex, second.SlotIndex)
	require.NotEqual(t, firstConnID, second.ConnID)
}
