// Package agent implements the producer/consumer runtime: one
// Agent per (role, unit) binds a periodic thread, the conditional bus and
// the per-origin cache together into the producer/consumer state machine
// the rest of the core only provides the plumbing for.
package agent

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/jcconnects/UFSC-INE5424-sub001/address"
	"github.com/jcconnects/UFSC-INE5424-sub001/bus"
	"github.com/jcconnects/UFSC-INE5424-sub001/cache"
	"github.com/jcconnects/UFSC-INE5424-sub001/clock"
	"github.com/jcconnects/UFSC-INE5424-sub001/message"
	"github.com/jcconnects/UFSC-INE5424-sub001/metrics"
	"github.com/jcconnects/UFSC-INE5424-sub001/periodic"
	"github.com/jcconnects/UFSC-INE5424-sub001/unit"
)

// Role is the side of the producer/consumer state machine an Agent plays
// for its bound unit.
type Role uint8

const (
	// RoleProducer observes INTEREST and replies with RESPONSE.
	RoleProducer Role = iota
	// RoleConsumer observes RESPONSE and emits periodic INTEREST.
	RoleConsumer
)

func (r Role) String() string {
	if r == RoleProducer {
		return "producer"
	}
	return "consumer"
}

// ProducerFunc captures one value for unit u. state is whatever the
// caller supplied as component data at construction (a camera handle, a
// CSV reader, a sensor driver — all external collaborators this core
// never implements). A nil or empty return is a valid, zero-length
// RESPONSE value, not an error.
type ProducerFunc func(u unit.Unit, state any) []byte

// HandlerFunc processes one accepted RESPONSE. state is the same
// component data passed to New. A returned error is logged and
// otherwise swallowed; it never stops the Agent.
type HandlerFunc func(m *message.Message, state any) error

// LogHook is an optional sink an external collaborator (CSV logging,
// black-box recording) can register to observe Agent events alongside
// the structured logrus output this package emits on its own. Nil is
// valid and means "no hook".
type LogHook func(event string, fields logrus.Fields)

// Sender is the subset of the protocol layer an Agent needs to transmit
// INTEREST/RESPONSE messages.
type Sender interface {
	Send(m *message.Message) (int, error)
}

var (
	// ErrNilSender is returned by New when Params.Sender is nil.
	ErrNilSender = errors.New("agent: sender must not be nil")
	// ErrNilBus is returned by New when Params.Bus is nil.
	ErrNilBus = errors.New("agent: bus must not be nil")
	// ErrNilProducerFunc is returned by New for a producer Role with no
	// ProducerFunc.
	ErrNilProducerFunc = errors.New("agent: producer role requires a non-nil ProducerFunc")
	// ErrNilHandlerFunc is returned by New for a consumer Role with no
	// HandlerFunc.
	ErrNilHandlerFunc = errors.New("agent: consumer role requires a non-nil HandlerFunc")
	// ErrUnknownRole is returned by New for any Role other than
	// RoleProducer/RoleConsumer.
	ErrUnknownRole = errors.New("agent: unknown role")
	// ErrAlreadyStarted is returned by Start on a second call.
	ErrAlreadyStarted = errors.New("agent: already started")
)

// Params configures a new Agent. Sender and Bus are required; exactly
// one of Producer/Handler is required depending on Role.
type Params struct {
	Name      string // defaults to a generated xid if empty
	Role      Role
	Unit      unit.Unit
	Address   address.Address
	Sender    Sender
	Bus       *bus.Bus
	Clock     clock.Source     // defaults to clock.NewMonotonic()
	Cache     *cache.Cache     // consumer only; defaults to a private cache.New
	Metrics   *metrics.Collector // defaults to metrics.NewUnregistered()
	Producer  ProducerFunc     // required when Role == RoleProducer
	Handler   HandlerFunc      // required when Role == RoleConsumer
	State     any
	LogHook   LogHook
	QueueSize int // bus observer queue depth; defaults to bus.DefaultQueueSize
}

// Agent binds one (Role, Unit) pair to the bus, the wire protocol and,
// depending on Role, a periodic reply or periodic INTEREST thread. The
// zero value is not usable; construct with New.
type Agent struct {
	name string
	addr address.Address
	role Role
	unit unit.Unit

	sender  Sender
	busImpl *bus.Bus
	clock   clock.Source
	cache   *cache.Cache
	metrics *metrics.Collector

	producerFn ProducerFunc
	handlerFn  HandlerFunc
	state      any
	logHook    LogHook
	logger     *logrus.Entry

	queueSize int
	observer  *bus.Observer

	started atomic.Bool
	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// producer side
	replyMu    sync.Mutex
	replyThread *periodic.Thread

	// consumer side
	interestThread    *periodic.Thread
	interestActive    atomic.Bool
	requestedPeriodUS atomic.Int64
	interestPeriodUS  atomic.Int64

	// diagnostic only; the actual per-(origin,unit) rate gate is the
	// Cache, not this field — see DESIGN.md's Open Question Decisions.
	lastResponseTimestamp atomic.Int64

	destroyOnce sync.Once
}

// New validates p and builds an Agent. The Agent is not attached to the
// bus or running until Start is called.
func New(p Params) (*Agent, error) {
	if p.Sender == nil {
		return nil, ErrNilSender
	}
	if p.Bus == nil {
		return nil, ErrNilBus
	}
	switch p.Role {
	case RoleProducer:
		if p.Producer == nil {
			return nil, ErrNilProducerFunc
		}
	case RoleConsumer:
		if p.Handler == nil {
			return nil, ErrNilHandlerFunc
		}
	default:
		return nil, ErrUnknownRole
	}

	name := p.Name
	if name == "" {
		name = xid.New().String()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.NewMonotonic()
	}
	met := p.Metrics
	if met == nil {
		met = metrics.NewUnregistered()
	}
	var c *cache.Cache
	if p.Role == RoleConsumer {
		c = p.Cache
		if c == nil {
			c = cache.New(met)
		}
	}
	qs := p.QueueSize
	if qs <= 0 {
		qs = bus.DefaultQueueSize
	}

	a := &Agent{
		name:      name,
		addr:      p.Address,
		role:      p.Role,
		unit:      p.Unit,
		sender:    p.Sender,
		busImpl:   p.Bus,
		clock:     clk,
		cache:     c,
		metrics:   met,
		producerFn: p.Producer,
		handlerFn: p.Handler,
		state:     p.State,
		logHook:   p.LogHook,
		queueSize: qs,
		stopCh:    make(chan struct{}),
		logger: logrus.WithFields(logrus.Fields{
			"agent": name,
			"role":  p.Role.String(),
			"unit":  fmt.Sprintf("%#08x", uint32(p.Unit)),
		}),
	}
	return a, nil
}

// Name returns the Agent's identifier.
func (a *Agent) Name() string { return a.name }

// Running reports whether Start has completed and Destroy has not yet
// been called.
func (a *Agent) Running() bool { return a.running.Load() }

// condition returns the (Unit, Direction) rank this Agent observes
// under: producers watch INTEREST, consumers watch RESPONSE.
func (a *Agent) condition() unit.Condition {
	if a.role == RoleProducer {
		return unit.Condition{Unit: a.unit, Direction: unit.DirectionInterest}
	}
	return unit.Condition{Unit: a.unit, Direction: unit.DirectionResponse}
}

// Start attaches the Agent to the bus and launches its receive thread.
// The bus attachment and receive thread are both in place before running
// is observed true by any other goroutine.
// Start is not reentrant; a second call returns ErrAlreadyStarted.
func (a *Agent) Start() error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	a.observer = a.busImpl.Attach(a.condition(), a.queueSize)
	a.wg.Add(1)
	go a.receiveLoop()
	a.running.Store(true)
	return nil
}

// Destroy idempotently and synchronously tears the Agent down: it stops
// any periodic thread first, cancels the receive thread, detaches from
// the bus, then releases component data. It is safe to call on an Agent
// that was never started, and safe to call more than once.
func (a *Agent) Destroy() {
	a.destroyOnce.Do(func() {
		a.running.Store(false)

		switch a.role {
		case RoleProducer:
			a.replyMu.Lock()
			rt := a.replyThread
			a.replyMu.Unlock()
			if rt != nil {
				rt.Join()
				a.metrics.DecPeriodicThreads()
			}
		case RoleConsumer:
			a.StopPeriodicInterest()
		}

		close(a.stopCh)
		a.wg.Wait()

		if a.observer != nil {
			a.busImpl.Detach(a.observer)
		}
		a.state = nil
	})
}

// receiveLoop is the Agent's single receive thread: it waits on the
// observer's bounded queue until a message arrives or the Agent is torn
// down.
func (a *Agent) receiveLoop() {
	defer a.wg.Done()
	for {
		select {
		case <-a.stopCh:
			return
		case m, ok := <-a.observer.Messages():
			if !ok {
				return
			}
			if !a.running.Load() {
				continue
			}
			a.handleMessage(m)
		}
	}
}

func (a *Agent) handleMessage(m *message.Message) {
	switch m.Kind {
	case message.Interest:
		if a.role == RoleProducer && m.Unit == a.unit {
			a.handleInterest(m.Period.Microseconds())
		}
	case message.Response:
		if a.role == RoleConsumer && m.Unit == a.unit {
			if a.shouldProcessResponse(m) {
				a.invokeHandler(m)
			}
		}
	}
}

// handleInterest is the producer side of period negotiation: the first
// INTEREST for this unit launches a reply thread at the requested
// period; every subsequent one negotiates the thread down to
// gcd(current, requested). A 0-period INTEREST is a boundary no-op and
// never starts a thread.
func (a *Agent) handleInterest(periodUS int64) {
	if periodUS <= 0 {
		return
	}
	a.replyMu.Lock()
	defer a.replyMu.Unlock()
	if a.replyThread == nil {
		a.replyThread = periodic.New(a.reply)
		a.replyThread.Start(periodUS)
		a.metrics.IncPeriodicThreads()
		return
	}
	a.replyThread.AdjustPeriod(periodUS)
}

// reply is the producer's periodic callback: capture a value, stamp it
// with the synchronized capture time, and send a RESPONSE. Producer
// panics are caught and logged; the Agent keeps running.
func (a *Agent) reply() {
	if !a.running.Load() {
		return
	}
	value := a.safeProduce()
	now := a.clock.NowMicros()
	m := &message.Message{
		Kind:     message.Response,
		Origin:   a.addr,
		Unit:     a.unit,
		Value:    value,
		Captured: now,
		External: a.unit.External(),
	}
	if _, err := a.sender.Send(m); err != nil {
		a.logError("send response failed", err)
	}
}

func (a *Agent) safeProduce() (value []byte) {
	defer func() {
		if r := recover(); r != nil {
			a.logPanic("producer", r)
			value = nil
		}
	}()
	return a.producerFn(a.unit, a.state)
}

// StartPeriodicInterest arms the consumer side: the first call launches
// a periodic INTEREST thread at periodUS; subsequent calls re-arm the
// existing thread to the new period directly (no GCD — unlike a
// producer's reply thread, a consumer's INTEREST thread serves only its
// own request). periodUS <= 0 is a no-op.
func (a *Agent) StartPeriodicInterest(periodUS int64) {
	if periodUS <= 0 {
		return
	}
	if a.interestActive.CompareAndSwap(false, true) {
		a.requestedPeriodUS.Store(periodUS)
		a.interestPeriodUS.Store(periodUS)
		a.interestThread = periodic.New(a.sendInterest)
		a.interestThread.Start(periodUS)
		a.metrics.IncPeriodicThreads()
		return
	}
	a.UpdateInterestPeriod(periodUS)
}

// UpdateInterestPeriod re-arms an already-active periodic INTEREST
// thread to a new period and keeps the rate gate aligned with it.
// periodUS <= 0 is a no-op.
func (a *Agent) UpdateInterestPeriod(periodUS int64) {
	if periodUS <= 0 {
		return
	}
	a.requestedPeriodUS.Store(periodUS)
	a.interestPeriodUS.Store(periodUS)
	if a.interestThread != nil {
		a.interestThread.SetPeriod(periodUS)
	}
}

// StopPeriodicInterest tears down the consumer's periodic INTEREST
// thread, if any. Idempotent.
func (a *Agent) StopPeriodicInterest() {
	if !a.interestActive.CompareAndSwap(true, false) {
		return
	}
	if a.interestThread != nil {
		a.interestThread.Join()
		a.metrics.DecPeriodicThreads()
	}
}

// sendInterest is the consumer's periodic callback: emit one INTEREST
// carrying the currently requested period.
func (a *Agent) sendInterest() {
	if !a.running.Load() || !a.interestActive.Load() {
		return
	}
	periodUS := a.requestedPeriodUS.Load()
	m := &message.Message{
		Kind:     message.Interest,
		Origin:   a.addr,
		Unit:     a.unit,
		Period:   time.Duration(periodUS) * time.Microsecond,
		Captured: a.clock.NowMicros(),
		External: a.unit.External(),
	}
	if _, err := a.sender.Send(m); err != nil {
		a.logError("send interest failed", err)
	}
}

// shouldProcessResponse is the consumer's accept gate for one RESPONSE.
// The per-(origin, unit) cache is the mechanism that actually enforces
// the "at most one delivery per (origin, unit) per interest-period
// window" property; see DESIGN.md's Open Question Decisions for why the
// Agent-wide lastResponseTimestamp field stays diagnostic rather than
// gating across origins itself.
func (a *Agent) shouldProcessResponse(m *message.Message) bool {
	now := a.clock.NowMicros()
	periodUS := a.interestPeriodUS.Load()
	accepted := a.cache.Accept(m.Origin.MAC, m.Unit, now, periodUS, len(m.Value))
	if accepted {
		a.lastResponseTimestamp.Store(now)
	}
	return accepted
}

func (a *Agent) invokeHandler(m *message.Message) {
	defer func() {
		if r := recover(); r != nil {
			a.logPanic("handler", r)
		}
	}()
	if err := a.handlerFn(m, a.state); err != nil {
		a.logError("handler returned error", err)
	}
}

func (a *Agent) logError(msg string, err error) {
	a.logger.WithError(err).Warn(msg)
	a.emitHook(msg, logrus.Fields{"error": err.Error()})
}

func (a *Agent) logPanic(site string, r any) {
	a.logger.WithFields(logrus.Fields{"site": site, "recovered": r}).Error("recovered from panic at core boundary")
	a.emitHook("panic", logrus.Fields{"site": site, "recovered": fmt.Sprint(r)})
}

func (a *Agent) emitHook(event string, fields logrus.Fields) {
	if a.logHook == nil {
		return
	}
	fields["agent"] = a.name
	a.logHook(event, fields)
}
