package nic

import (
	"sync"
	"sync/atomic"
)

// bufferPool is a capped pool of fixed-size receive buffers (
// §4.3, "bounded buffer pool for zero-copy receive paths"). sync.Pool by
// itself has no notion of a hard cap and may retain arbitrarily many
// buffers under GC pressure; count tracks how many buffers are currently
// parked so Put past the cap drops the buffer instead of growing the
// pool further, and Get past an empty pool just allocates rather than
// blocking the receive path.
type bufferPool struct {
	size  int
	cap   int32
	count atomic.Int32
	pool  sync.Pool
}

const defaultBufferPoolCap = 64

func newBufferPool(size int) *bufferPool {
	if size <= 0 {
		size = 1
	}
	bp := &bufferPool{size: size, cap: defaultBufferPoolCap}
	bp.pool.New = func() any { return make([]byte, size) }
	return bp
}

func (p *bufferPool) get() []byte {
	if p.count.Load() > 0 {
		p.count.Add(-1)
	}
	b := p.pool.Get().([]byte)
	if cap(b) < p.size {
		b = make([]byte, p.size)
	}
	return b[:p.size]
}

func (p *bufferPool) put(b []byte) {
	if p.count.Load() >= p.cap {
		return
	}
	p.count.Add(1)
	p.pool.Put(b) //nolint:staticcheck // intentionally pooling a slice
}
