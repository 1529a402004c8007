// Package bus implements the conditional observer registry: a concurrent
// registry parameterized by unit.Condition, where notify delivers a copy
// of each matching message into a bounded per-observer queue, dropping
// the oldest entry on overflow.
package bus

import (
	"sync"

	"github.com/jcconnects/UFSC-INE5424-sub001/message"
	"github.com/jcconnects/UFSC-INE5424-sub001/metrics"
	"github.com/jcconnects/UFSC-INE5424-sub001/unit"
)

// DefaultQueueSize is used by Attach callers that have no specific
// backlog requirement of their own.
const DefaultQueueSize = 32

// Observer is a registered subscription: a rank (Condition) and the
// bounded queue messages matching it are copied into. A receive on
// Messages() blocks until a message is ready or the bus removes the
// observer.
type Observer struct {
	id        uint64
	condition unit.Condition
	queue     chan *message.Message
}

// Messages returns the channel this observer's matching messages are
// delivered on.
func (o *Observer) Messages() <-chan *message.Message { return o.queue }

// Condition returns the rank this observer was attached with.
func (o *Observer) Condition() unit.Condition { return o.condition }

// Bus is the conditional observer registry. The zero value is not
// usable; construct with New.
type Bus struct {
	mu        sync.Mutex
	observers map[uint64]*Observer
	nextID    uint64

	metrics *metrics.Collector
}

// New builds an empty Bus. collector may be nil, in which case an
// unregistered Collector absorbs backpressure-drop and observer-count
// metrics.
func New(collector *metrics.Collector) *Bus {
	if collector == nil {
		collector = metrics.NewUnregistered()
	}
	return &Bus{
		observers: make(map[uint64]*Observer),
		metrics:   collector,
	}
}

// Attach registers a new Observer under condition with a queue of
// queueSize messages, and returns it. queueSize <= 0 falls back to
// DefaultQueueSize.
func (b *Bus) Attach(condition unit.Condition, queueSize int) *Observer {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	obs := &Observer{
		id:        b.nextID,
		condition: condition,
		queue:     make(chan *message.Message, queueSize),
	}
	b.observers[obs.id] = obs
	b.metrics.SetObservers(len(b.observers))
	return obs
}

// Detach removes obs from the registry. A no-op if obs was already
// detached or came from a different Bus.
func (b *Bus) Detach(obs *Observer) {
	if obs == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.observers[obs.id]; !ok {
		return
	}
	delete(b.observers, obs.id)
	close(obs.queue)
	b.metrics.SetObservers(len(b.observers))
}

// Notify delivers a copy of m to every observer whose rank matches c, and
// reports whether at least one observer received it. Observers are
// visited under a single mutex; a full observer queue
// drops its oldest message to make room rather than blocking Notify or
// any other observer.
func (b *Bus) Notify(m *message.Message, c unit.Condition) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	delivered := false
	for _, obs := range b.observers {
		if !obs.condition.Matches(c) {
			continue
		}
		b.enqueue(obs, m.Clone())
		delivered = true
	}
	return delivered
}

// enqueue places m on obs's queue, dropping the oldest queued message
// first if the queue is full. This is the single intentional lossy point
// in the core.
func (b *Bus) enqueue(obs *Observer, m *message.Message) {
	select {
	case obs.queue <- m:
		return
	default:
	}

	select {
	case <-obs.queue:
		b.metrics.BackpressureDrop(obs.condition.String())
	default:
	}

	select {
	case obs.queue <- m:
	default:
		// Another goroutine drained and refilled the queue between our
		// drop and this send; drop the newest message rather than block
		// Notify holding the registry mutex.
		b.metrics.BackpressureDrop(obs.condition.String())
	}
}

// Count returns the number of currently attached observers, for tests
// and operational introspection.
func (b *Bus) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}
