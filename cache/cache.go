// Package cache implements the per-origin value cache: a fixed-capacity
// table keyed by the last 16 bits of the origin MAC, each entry holding
// up to Slots (unit, timestamp, size) records used to rate-gate
// RESPONSEs independently per producer.
package cache

import (
	"sync"

	"github.com/jcconnects/UFSC-INE5424-sub001/address"
	"github.com/jcconnects/UFSC-INE5424-sub001/metrics"
	"github.com/jcconnects/UFSC-INE5424-sub001/unit"
)

// Slots is the per-origin slot capacity bounding how
// many distinct units one producer's entry can track at once.
const Slots = 5

// slot tracks one (unit, last-accepted timestamp, last size) tuple.
// timestamp == 0 marks an unoccupied slot.
type slot struct {
	unit      unit.Unit
	timestamp int64
	size      int
}

type entry struct {
	slots [Slots]slot
}

// Cache is the per-origin value cache. The zero value is not usable;
// construct with New. A Cache is touched only from its
// owning Agent's receive thread in the intended deployment, but the
// internal mutex makes it safe to share regardless.
type Cache struct {
	mu      sync.Mutex
	entries map[uint16]*entry
	metrics *metrics.Collector
}

// New builds an empty Cache. collector may be nil, in which case an
// unregistered Collector absorbs the cache-unslotted metric.
func New(collector *metrics.Collector) *Cache {
	if collector == nil {
		collector = metrics.NewUnregistered()
	}
	return &Cache{entries: make(map[uint16]*entry), metrics: collector}
}

// key hashes origin down to the last 16 bits of its MAC. Two distinct
// MACs sharing those 16 bits share one entry; this is a deliberate
// fast-hash tradeoff, not a bug to work around.
func key(origin address.MAC) uint16 {
	return uint16(origin[4])<<8 | uint16(origin[5])
}

// Accept applies the per-origin cache rule and reports whether the
// handler should be invoked for a RESPONSE of unit u from origin,
// captured at now (synchronized microseconds), rate-gated by period p
// (microseconds; p <= 0 accepts unconditionally, a documented
// period-zero boundary behavior). size is recorded for operational
// introspection only; it plays no role in the accept decision.
func (c *Cache) Accept(origin address.MAC, u unit.Unit, now int64, p int64, size int) bool {
	k := key(origin)

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok {
		e = &entry{}
		e.slots[0] = slot{unit: u, timestamp: now, size: size}
		c.entries[k] = e
		return true
	}

	for i := range e.slots {
		if e.slots[i].timestamp == 0 || e.slots[i].unit != u {
			continue
		}
		if p <= 0 || now-e.slots[i].timestamp >= p {
			e.slots[i].timestamp = now
			e.slots[i].size = size
			return true
		}
		return false
	}

	for i := range e.slots {
		if e.slots[i].timestamp == 0 {
			e.slots[i] = slot{unit: u, timestamp: now, size: size}
			return true
		}
	}

	// No free slot and the unit isn't already tracked: accept without
	// caching (a documented deficiency — see Open Question Decisions in
	// DESIGN.md).
	c.metrics.CacheUnslotted()
	return true
}

// Origins returns the number of distinct origin keys currently tracked,
// for tests and operational introspection.
func (c *Cache) Origins() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
