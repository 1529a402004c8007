// Package periodic implements the deadline-scheduled worker: one thread
// per (Agent, unit), invoking a callback on a period that can be
// atomically adjusted to the GCD of all requested periods.
package periodic

import (
	"sync"
	"sync/atomic"
	"time"
)

// Callback is invoked once per tick. It must be re-entrant with respect
// to the owner's running flag and must not hold locks across suspension,
// Thread itself does not inspect any owner state, it
// only calls Callback and lets the callback decide whether to act.
type Callback func()

// Thread is a single periodic worker. The zero value is not usable;
// construct with New. True deadline/EDF scheduling is not available from
// Go's cooperative scheduler, so Thread approximates it with a
// time.Timer reset to the current period after every tick — the
// documented fallback for runtimes without deadline scheduling ("implementations without
// deadline scheduling may fall back to absolute-time sleeps").
type Thread struct {
	callback Callback
	periodUS atomic.Int64

	running  atomic.Bool
	launched atomic.Bool
	stop     chan struct{}
	done     chan struct{}

	startOnce sync.Once
	joinOnce  sync.Once
}

// New builds a Thread bound to callback. It is not started until Start
// is called.
func New(callback Callback) *Thread {
	return &Thread{
		callback: callback,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins ticking at periodUS microseconds. A periodUS <= 0 is a
// no-op and Start returns false without launching a goroutine — a
// producer with a 0-period INTEREST does not start a reply thread. Only the
// first successful Start launches the goroutine; later calls return false
// and leave the period unchanged. Callers needing a new period on an
// already-started Thread use AdjustPeriod or SetPeriod.
func (t *Thread) Start(periodUS int64) bool {
	if periodUS <= 0 {
		return false
	}
	started := false
	t.startOnce.Do(func() {
		t.periodUS.Store(periodUS)
		t.running.Store(true)
		t.launched.Store(true)
		started = true
		go t.loop()
	})
	return started
}

// Running reports whether the thread has been started and not yet
// joined.
func (t *Thread) Running() bool { return t.running.Load() }

// Period returns the current tick period in microseconds.
func (t *Thread) Period() int64 { return t.periodUS.Load() }

// AdjustPeriod sets the thread's next period to gcd(current, newUS),
// effective on the next tick, per the producer period negotiation rule:
// the coarsest rate that satisfies every requesting consumer
// simultaneously.
func (t *Thread) AdjustPeriod(newUS int64) {
	if newUS <= 0 {
		return
	}
	for {
		cur := t.periodUS.Load()
		next := gcd(cur, newUS)
		if next == cur {
			return
		}
		if t.periodUS.CompareAndSwap(cur, next) {
			return
		}
	}
}

// SetPeriod reprograms the next tick to periodUS directly, with no GCD
// negotiation. Use this when the caller is the sole requester of its own
// period (a consumer re-arming its own periodic INTEREST thread), as
// opposed to AdjustPeriod's multi-requester negotiation at a producer
// serving several consumers. periodUS <= 0 is ignored.
func (t *Thread) SetPeriod(periodUS int64) {
	if periodUS <= 0 {
		return
	}
	t.periodUS.Store(periodUS)
}

func (t *Thread) loop() {
	defer close(t.done)
	timer := time.NewTimer(time.Duration(t.periodUS.Load()) * time.Microsecond)
	defer timer.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-timer.C:
			if !t.running.Load() {
				return
			}
			t.callback()
			if !t.running.Load() {
				return
			}
			timer.Reset(time.Duration(t.periodUS.Load()) * time.Microsecond)
		}
	}
}

// Join stops the thread and blocks until its goroutine exits. Idempotent
// and safe to call even if Start was never called.
func (t *Thread) Join() {
	t.running.Store(false)
	t.joinOnce.Do(func() {
		close(t.stop)
	})
	if t.launched.Load() {
		<-t.done
	}
}

// gcd computes the greatest common divisor of a and b via Euclid's
// algorithm. Either argument may be 0; gcd(0, n) = n.
func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
