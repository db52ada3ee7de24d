package fanout_test

import (
	"context"
	"testing"
	"time"

	"github.com/seismicdata/drf-fanout/internal/fanout"
	"github.com/seismicdata/drf-fanout/internal/ring"
	"github.com/stretchr/testify/require"
)

func ringMsg(boardType byte, msgType byte, body string) []byte {
	buf := make([]byte, 6+len(body))
	buf[0] = boardType
	buf[1] = 1
	buf[2] = msgType
	buf[3] = 0
	buf[4] = 0
	buf[5] = 0
	copy(buf[6:], body)
	return buf
}

// TestFanOutDeliversInOrder confirms two independent subscribers each see
// M1,M2,M3 in order (§8's fan-out ordering scenario).
func TestFanOutDeliversInOrder(t *testing.T) {
	t.Parallel()

	pool := fanout.NewSlotPool()
	sub1, ok := pool.Allocate()
	require.True(t, ok)
	sub2, ok := pool.Allocate()
	require.True(t, ok)

	r := ring.NewFake(0)
	reader := &fanout.RingReader{Ring: r, Pool: pool}

	r.Push(ringMsg('L', 'L', "m1"))
	r.Push(ringMsg('L', 'L', "m2"))
	r.Push(ringMsg('L', 'L', "m3"))
	// No Terminate here: Poll reports FlagTerminate ahead of pending
	// messages, so Run is stopped by the context timeout instead.

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, reader.Run(ctx))

	for _, sub := range []*fanout.Subscriber{sub1, sub2} {
		for _, want := range []string{"m1", "m2", "m3"} {
			select {
			case msg := <-sub.Queue:
				_, payload, err := fanout.ParseRingMessage(msg)
				require.NoError(t, err)
				require.Equal(t, want, string(payload))
			default:
				t.Fatalf("subscriber %d missing message %q", sub.SlotIndex, want)
			}
		}
	}
}

// TestFanOutOverflowDoesNotBlockOtherSubscribers confirms a stalled
// subscriber's full queue reports a drop without affecting delivery to a
// healthy subscriber (§8's overflow scenario).
func TestFanOutOverflowDoesNotBlockOtherSubscribers(t *testing.T) {
	t.Parallel()

	pool := fanout.NewSlotPool()
	slow, ok := pool.Allocate()
	require.True(t, ok)
	healthy, ok := pool.Allocate()
	require.True(t, ok)

	// Drive the fan-out directly, message by message, draining only the
	// healthy subscriber in between sends — this exercises exactly the
	// per-message enqueue loop RingReader.fanOut runs, without a second
	// goroutine racing the drain against production.
	total := fanout.QueueCapacity + 5
	drained := 0
	for i := 0; i < total; i++ {
		pool.ForEach(func(sub *fanout.Subscriber) {
			sub.Enqueue(ringMsg('L', 'L', "m"))
		})
		select {
		case <-healthy.Queue:
			drained++
		default:
		}
	}
	// Drain whatever is left buffered for the healthy subscriber.
	for {
		select {
		case <-healthy.Queue:
			drained++
		default:
			goto done
		}
	}
done:

	// The slow subscriber never drains, so its queue saturates at
	// capacity and the excess messages are dropped.
	require.Len(t, slow.Queue, fanout.QueueCapacity)
	// The healthy subscriber, drained alongside production, sees every message.
	require.Equal(t, total, drained)
}
