package fanout

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MaxSubscribers is the subscriber table's fixed capacity
// (Ew2Ws.h's MAX_CONNECT_USERS, §4.7).
const MaxSubscribers = 8

// QueueCapacity and QueueElementLimit bound each subscriber's FIFO
// (Ew2Ws.h's MAX_QUEUE_LEN/MAX_QUEUE_ELEM_SIZE, §5).
const (
	QueueCapacity     = 32
	QueueElementLimit = 16 * 1024
)

// Subscriber is one connected client's state (§3 "Subscriber entity").
// Queue doubles as the bounded FIFO and its own wake-signal: a buffered
// Go channel blocks a receiver until a sender has something ready and
// never needs a separate semaphore.
type Subscriber struct {
	mu sync.Mutex

	// ConnID identifies this connection uniquely across reconnections, so
	// logs and metrics for a slot's previous occupant aren't confused with
	// its current one (a slot index is reused as soon as it's released).
	ConnID       string
	SlotIndex    int
	inUse        bool
	Conn         net.Conn
	RemoteIP     string
	RemotePort   int
	ConnectTime  time.Time
	lastUpdate   time.Time
	PacketsSent  uint64

	Queue chan []byte

	exit chan struct{}
}

func newSubscriber(slot int) *Subscriber {
	return &Subscriber{
		ConnID:    uuid.NewString(),
		SlotIndex: slot,
		Queue:     make(chan []byte, QueueCapacity),
		exit:      make(chan struct{}),
	}
}

// Enqueue attempts a non-blocking send; ok is false when the queue is full
// (§4.5 item 4: "on enqueue failure, drop and log").
func (s *Subscriber) Enqueue(msg []byte) (ok bool) {
	select {
	case s.Queue <- msg:
		return true
	default:
		return false
	}
}

// Exit signals the subscriber's transmit task to stop.
func (s *Subscriber) Exit() {
	select {
	case <-s.exit:
	default:
		close(s.exit)
	}
}

// Done returns the channel closed by Exit.
func (s *Subscriber) Done() <-chan struct{} { return s.exit }

// touch records that a message was just sent or received on this
// subscriber, for LastUpdate.
func (s *Subscriber) touch() {
	s.mu.Lock()
	s.lastUpdate = time.Now()
	s.mu.Unlock()
}

// LastUpdate reports when this subscriber last sent or received data
// (§3's last_update_time), for the status renderer.
func (s *Subscriber) LastUpdate() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdate
}

// InUse reports whether this slot currently holds a connected subscriber.
func (s *Subscriber) InUse() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inUse
}

// SlotPool is the fixed-capacity subscriber table, allocated by O(n)
// linear scan under a single mutex (§4.7 "Slot table").
type SlotPool struct {
	mu   sync.Mutex
	slot [MaxSubscribers]*Subscriber
}

// NewSlotPool builds an empty pool.
func NewSlotPool() *SlotPool {
	return &SlotPool{}
}

// Allocate finds the first free slot, marks it in-use, and returns it.
// ok is false when every slot is occupied (§4.7 item 2: table full).
func (p *SlotPool) Allocate() (sub *Subscriber, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.slot {
		if p.slot[i] == nil {
			sub = newSubscriber(i)
			sub.inUse = true
			sub.ConnectTime = time.Now()
			p.slot[i] = sub
			return sub, true
		}
	}
	return nil, false
}

// Release frees sub's slot.
func (p *SlotPool) Release(sub *Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.slot[sub.SlotIndex] == sub {
		p.slot[sub.SlotIndex] = nil
		sub.mu.Lock()
		sub.inUse = false
		sub.mu.Unlock()
	}
}

// ForEach invokes fn for every in-use subscriber, under the pool mutex
// (§4.5 item 4's fan-out enqueue loop, §5 "held only during ... the
// fan-out enqueue loop").
func (p *SlotPool) ForEach(fn func(*Subscriber)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.slot {
		if s != nil {
			fn(s)
		}
	}
}

// Count returns the number of in-use slots.
func (p *SlotPool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.slot {
		if s != nil {
			n++
		}
	}
	return n
}
