package bus

import (
	"sync"
)

// Notification is a tagged event published on the bus. Notifications are
// transient and never persisted.
type Notification struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

// Bus is an in-process broadcast of notifications to live subscribers.
//
// Publish never blocks on slow consumers: each subscriber owns an unbounded
// queue drained by its own goroutine, so every subscriber observes the full
// stream in publish order.
type Bus struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscriber
	nextID uint64
	closed bool
}

// New creates an empty notification bus.
func New() *Bus {
	return &Bus{
		subs: make(map[uint64]*Subscriber, 4),
	}
}

// Publish broadcasts a notification to all current subscribers.
// Publishing on a closed bus is a no-op.
func (b *Bus) Publish(n Notification) {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()

		return
	}

	subs := make([]*Subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		subs = append(subs, s)
	}

	b.mu.Unlock()

	for _, s := range subs {
		s.enqueue(n)
	}
}

// Subscribe attaches a new subscriber. The subscriber receives every
// notification published after this call returns. Call Close on the
// subscriber when done to release its goroutine.
//
// Subscribing to a closed bus returns a subscriber whose channel is
// already closed.
func (b *Bus) Subscribe() *Subscriber {
	s := &Subscriber{
		out:  make(chan Notification),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()
		close(s.out)

		return s
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = s
	s.detach = func() { b.remove(id) }

	b.mu.Unlock()

	go s.run()

	return s
}

// Close shuts down the bus and terminates all subscriber streams.
// It is safe to call Close multiple times.
func (b *Bus) Close() {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()

		return
	}

	b.closed = true
	subs := b.subs
	b.subs = nil

	b.mu.Unlock()

	for _, s := range subs {
		s.stop()
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs != nil {
		delete(b.subs, id)
	}
}

// Subscriber is a single attached consumer of the notification stream.
type Subscriber struct {
	mu     sync.Mutex
	queue  []Notification
	closed bool

	out  chan Notification
	wake chan struct{}
	done chan struct{}
	once sync.Once

	detach func()
}

// Notifications returns the subscriber's stream. The channel yields
// notifications in publish order and is closed when the subscriber or the
// bus is closed.
func (s *Subscriber) Notifications() <-chan Notification {
	return s.out
}

// Close detaches the subscriber from the bus and closes its stream.
// Queued but unread notifications are discarded.
func (s *Subscriber) Close() {
	if s.detach != nil {
		s.detach()
	}

	s.stop()
}

func (s *Subscriber) stop() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.done)
	})
}

func (s *Subscriber) enqueue(n Notification) {
	s.mu.Lock()

	if s.closed {
		s.mu.Unlock()

		return
	}

	s.queue = append(s.queue, n)

	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run drains the queue into the out channel until the subscriber stops.
func (s *Subscriber) run() {
	defer close(s.out)

	for {
		select {
		case <-s.wake:
		case <-s.done:
			return
		}

		for {
			s.mu.Lock()

			if len(s.queue) == 0 {
				s.mu.Unlock()

				break
			}

			n := s.queue[0]
			s.queue = s.queue[1:]

			s.mu.Unlock()

			select {
			case s.out <- n:
			case <-s.done:
				return
			}
		}
	}
}
