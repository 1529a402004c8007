// Package nic wraps a rawsocket.Engine with the concerns the NIC layer
// owns: local MAC caching, same-host/external detection,
// a bounded receive buffer pool, and monotonically increasing anonymous
// ports. Header parsing and bus delivery are the Protocol layer's job;
// NIC only demultiplexes as far as "is this frame addressed to me" and
// then defers to whatever Demuxer the Protocol layer installed.
package nic

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jcconnects/UFSC-INE5424-sub001/address"
	"github.com/jcconnects/UFSC-INE5424-sub001/message"
	"github.com/jcconnects/UFSC-INE5424-sub001/rawsocket"
	"github.com/jcconnects/UFSC-INE5424-sub001/wire"
)

// Receiver is opaque to NIC: it is whatever the Protocol layer attached
// at a port. NIC never inspects it, only threads it through Attach.
type Receiver interface{}

// Demuxer receives frames this NIC has determined are addressed to it
// (unicast-to-self or broadcast) and is responsible for protocol-header
// parsing and bus delivery. The Protocol layer implements this; NIC's
// own Attach/Detach defer to it unchanged ("attach/detach... defer to
// the Protocol layer").
type Demuxer interface {
	Attach(port uint16, observer Receiver) error
	Detach(port uint16)
	Dispatch(src address.MAC, external bool, payload []byte)
}

// ErrNoDemuxer is returned by Attach/Detach before SetDemuxer has been
// called.
var ErrNoDemuxer = errors.New("nic: no demuxer installed")

// NIC is the exclusive user of one rawsocket.Engine.
type NIC struct {
	engine rawsocket.Engine
	local  address.MAC
	mtu    int

	mu    sync.Mutex
	demux Demuxer

	nextPort atomic.Uint32

	pool *bufferPool
	loop *loopback
}

// NewNIC binds to engine, installing itself as the engine's receive
// callback. engine must not have been started yet.
func NewNIC(engine rawsocket.Engine) *NIC {
	n := &NIC{
		engine: engine,
		local:  engine.LocalMAC(),
		mtu:    engine.MTU(),
		pool:   newBufferPool(engine.MTU()),
		loop:   newLoopback(),
	}
	engine.SetReceiveCallback(n.onFrame)
	n.loop.start(n.deliverLocal)
	return n
}

// Start begins asynchronous receive on the underlying engine.
func (n *NIC) Start() error { return n.engine.Start() }

// Stop releases the loopback path and the underlying engine. Idempotent
// to the extent the engine itself is.
func (n *NIC) Stop() error {
	n.loop.close()
	return n.engine.Stop()
}

// LocalMAC returns the hardware address bound to the underlying engine.
func (n *NIC) LocalMAC() address.MAC { return n.local }

// MTU returns the payload budget above the Ethernet header.
func (n *NIC) MTU() int { return n.mtu }

// Address returns a fresh local Address carrying a monotonically
// increasing anonymous port, for callers (e.g. anonymous consumers) that
// have no fixed port of their own.
func (n *NIC) Address() address.Address {
	port := uint16(n.nextPort.Add(1))
	return address.Address{MAC: n.local, Port: port}
}

// LoopbackStats reports bytes moved over the same-host delivery path,
// for operational parity with whatever stats the engine itself exposes.
func (n *NIC) LoopbackStats() (tx, rx int64) { return n.loop.stats() }

// SetDemuxer installs d as the target of Attach/Detach/Dispatch.
func (n *NIC) SetDemuxer(d Demuxer) {
	n.mu.Lock()
	n.demux = d
	n.mu.Unlock()
}

func (n *NIC) demuxer() Demuxer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.demux
}

// Attach defers to the installed Demuxer.
func (n *NIC) Attach(port uint16, observer Receiver) error {
	d := n.demuxer()
	if d == nil {
		return ErrNoDemuxer
	}
	return d.Attach(port, observer)
}

// Detach defers to the installed Demuxer. A no-op if none is installed.
func (n *NIC) Detach(port uint16) {
	if d := n.demuxer(); d != nil {
		d.Detach(port)
	}
}

// Send serializes m's protocol header and value, wraps it in a broadcast
// Ethernet frame, and transmits it. It also hands the same protocol
// payload to the loopback path, since a real AF_PACKET socket does not
// deliver a sender its own broadcasts.
func (n *NIC) Send(m *message.Message) (int, error) {
	valueMTU := n.mtu - wire.ProtocolHeaderLen
	if valueMTU < 0 {
		valueMTU = 0
	}
	payload := make([]byte, wire.EncodedLen(len(m.Value)))
	if _, err := wire.EncodeMessage(payload, m, m.Origin.Port, valueMTU); err != nil {
		return -1, err
	}

	n.loop.send(payload) //nolint:errcheck // best-effort; the engine send below is the authoritative result

	frame := make([]byte, wire.HeaderLen+len(payload))
	wire.Encode(frame, address.Broadcast, n.local, payload)
	return n.engine.Send(frame)
}

// onFrame is the rawsocket.ReceiveCallback installed at construction. It
// decodes the Ethernet header, drops anything not addressed to this NIC,
// and copies the protocol payload into a pooled buffer before handing it
// to the demuxer — satisfying the "must copy bytes it needs" contract the
// engine's own callback is bound by.
func (n *NIC) onFrame(frame []byte) {
	f, err := wire.Decode(frame)
	if err != nil {
		return
	}
	if f.EtherType != wire.EtherType {
		return
	}
	if f.Dst != n.local && f.Dst != address.Broadcast {
		return
	}

	buf := n.pool.get()
	copied := copy(buf, f.Payload)

	d := n.demuxer()
	if d != nil {
		external := f.Src != n.local
		d.Dispatch(f.Src, external, buf[:copied])
	}
	n.pool.put(buf)
}

// deliverLocal is the loopback reader's delivery callback: same-host
// origin, never external.
func (n *NIC) deliverLocal(payload []byte) {
	if d := n.demuxer(); d != nil {
		d.Dispatch(n.local, false, payload)
	}
}
