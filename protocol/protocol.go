// Package protocol demultiplexes inbound frames into (address, port)
// endpoints and notifies the conditional bus with Condition{unit, kind}
// for each well-formed frame. It sits directly above
// the NIC layer: Protocol is the NIC's installed Demuxer, and the NIC
// defers Attach/Detach to it unchanged.
package protocol

import (
	"errors"
	"sync"
	"time"

	"github.com/jcconnects/UFSC-INE5424-sub001/address"
	"github.com/jcconnects/UFSC-INE5424-sub001/message"
	"github.com/jcconnects/UFSC-INE5424-sub001/metrics"
	"github.com/jcconnects/UFSC-INE5424-sub001/nic"
	"github.com/jcconnects/UFSC-INE5424-sub001/unit"
	"github.com/jcconnects/UFSC-INE5424-sub001/wire"
)

// ErrPortInUse is returned by Attach when the requested port already has
// an observer registered.
var ErrPortInUse = errors.New("protocol: port already attached")

// Notifier is the conditional bus's delivery entry point. Protocol
// depends on this narrow interface instead of importing the bus package
// directly, so each can be tested in isolation.
type Notifier interface {
	Notify(m *message.Message, c unit.Condition) bool
}

// Sender is the subset of the NIC layer Protocol needs to transmit.
type Sender interface {
	Send(m *message.Message) (int, error)
}

// Binder is a Sender that also accepts a nic.Demuxer — the contract
// *nic.NIC satisfies. New uses it to install Protocol as the NIC's
// demuxer without importing the concrete NIC type.
type Binder interface {
	Sender
	SetDemuxer(d nic.Demuxer)
}

var _ nic.Demuxer = (*Protocol)(nil)

// Protocol is the Agent wire protocol's demultiplexer.
type Protocol struct {
	sender  Sender
	bus     Notifier
	metrics *metrics.Collector

	mu        sync.Mutex
	observers map[uint16]nic.Receiver
}

// New builds a Protocol over binder (typically a *nic.NIC) and bus,
// installing itself as binder's demuxer. collector may be nil, in which
// case an unregistered Collector absorbs the malformed-frame count.
func New(binder Binder, bus Notifier, collector *metrics.Collector) *Protocol {
	if collector == nil {
		collector = metrics.NewUnregistered()
	}
	p := &Protocol{
		sender:    binder,
		bus:       bus,
		metrics:   collector,
		observers: make(map[uint16]nic.Receiver),
	}
	binder.SetDemuxer(p)
	return p
}

// Send hands m to the NIC, which serializes its header and value and
// transmits it.
func (p *Protocol) Send(m *message.Message) (int, error) {
	return p.sender.Send(m)
}

// Attach registers observer at port. Ports are exclusive: NIC.Attach
// defers to this layer, and a second Attach at an occupied port is a
// caller bug, not a silent overwrite.
func (p *Protocol) Attach(port uint16, observer nic.Receiver) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.observers[port]; exists {
		return ErrPortInUse
	}
	p.observers[port] = observer
	return nil
}

// Detach removes whatever observer was registered at port, if any.
func (p *Protocol) Detach(port uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.observers, port)
}

// Dispatch implements nic.Demuxer. It is invoked synchronously from the
// NIC's receive path (real or loopback): payload must be fully consumed
// before Dispatch returns, since its backing buffer is reused immediately
// after.
func (p *Protocol) Dispatch(src address.MAC, external bool, payload []byte) {
	kind, u, periodUS, capturedUS, srcPort, value, err := wire.DecodeMessage(payload)
	if err != nil {
		p.metrics.MalformedFrame()
		return
	}

	// value aliases payload, which aliases the NIC's receive buffer; it
	// must be copied before this function returns and the buffer is
	// recycled (same "must copy the bytes it needs" discipline as the
	// rawsocket callback it ultimately descends from).
	owned := make([]byte, len(value))
	copy(owned, value)

	m := &message.Message{
		Kind:     kind,
		Origin:   address.Address{MAC: src, Port: srcPort},
		Unit:     u,
		Period:   time.Duration(periodUS) * time.Microsecond,
		Value:    owned,
		Captured: capturedUS,
		External: external,
	}
	p.bus.Notify(m, m.Condition())
}
