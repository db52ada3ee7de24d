package ring_test

import (
	"testing"

	"github.com/seismicdata/drf-fanout/internal/ring"
	"github.com/stretchr/testify/require"
)

func TestFakeDrain(t *testing.T) {
	t.Parallel()
	r := ring.NewFake(3)
	n, err := r.Drain()
	require.NoError(t, err)
	require.Equal(t, 3, n)

	n, err = r.Drain()
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestFakePollAndCopyFromFIFO(t *testing.T) {
	t.Parallel()
	r := ring.NewFake(0)
	flag, err := r.Poll()
	require.NoError(t, err)
	require.Equal(t, ring.FlagNone, flag)

	r.Push([]byte("m1"))
	r.Push([]byte("m2"))

	flag, err = r.Poll()
	require.NoError(t, err)
	require.Equal(t, ring.FlagData, flag)

	m, err := r.CopyFrom()
	require.NoError(t, err)
	require.Equal(t, "m1", string(m))

	m, err = r.CopyFrom()
	require.NoError(t, err)
	require.Equal(t, "m2", string(m))

	_, err = r.CopyFrom()
	require.ErrorIs(t, err, ring.ErrEmpty)
}

func TestFakeTerminate(t *testing.T) {
	t.Parallel()
	r := ring.NewFake(0)
	r.Push([]byte("m1"))
	r.Terminate()

	flag, err := r.Poll()
	require.NoError(t, err)
	require.Equal(t, ring.FlagTerminate, flag)
}

func TestFakeDetach(t *testing.T) {
	t.Parallel()
	r := ring.NewFake(0)
	require.False(t, r.Detached())
	require.NoError(t, r.Detach())
	require.True(t, r.Detached())
}
