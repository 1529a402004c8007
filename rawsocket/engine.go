// Package rawsocket owns the single AF_PACKET/SOCK_RAW socket a process
// uses to exchange Agent protocol frames with its link. It implements
// exclusive ownership of one socket bound to a configured
// interface and EtherType, asynchronous receive via readiness
// notification, and broadcast send.
package rawsocket

import (
	"errors"

	"github.com/jcconnects/UFSC-INE5424-sub001/address"
)

// ReceiveCallback is invoked once per received frame from the engine's
// internal I/O goroutine. It must not block and must copy any bytes it
// needs to retain: the backing buffer is reused immediately after the
// callback returns.
type ReceiveCallback func(frame []byte)

// Engine is the exclusive owner of one raw-socket bound to an interface.
// Only one Engine may be active per process, from construction until
// Stop: New returns ErrAlreadyActive while another one is.
type Engine interface {
	// Send transmits a single frame to the broadcast MAC and returns the
	// number of bytes sent, or a negative value alongside a non-nil error.
	// Send failures do not stop the engine.
	Send(frame []byte) (int, error)
	// SetReceiveCallback installs cb, replacing any previous callback.
	// Must be called before Start for frames to be delivered from the
	// very first receive.
	SetReceiveCallback(cb ReceiveCallback)
	// Start begins asynchronous receive. Construction failures (socket,
	// bind, interface lookup) happen in the constructor, not here; Start
	// only fails if the engine was already started.
	Start() error
	// Stop drains in-flight receives and releases the socket. Idempotent.
	Stop() error
	// LocalMAC returns the hardware address bound at construction.
	LocalMAC() address.MAC
	// MTU returns the payload budget available above the Ethernet header.
	MTU() int
	// Err returns the first fatal error observed by the receive path, if
	// any. Errors other than would-block are fatal to the engine.
	Err() error
}

// ErrAlreadyActive is returned by New when another Engine is already
// active in this process; signal/epoll registration is process-wide, so
// at most one Engine instance may run at a time.
var ErrAlreadyActive = errors.New("rawsocket: an engine is already active in this process")

// ErrNotStarted is returned by Send when called before Start.
var ErrNotStarted = errors.New("rawsocket: engine not started")

// ErrAlreadyStarted is returned by Start when called twice.
var ErrAlreadyStarted = errors.New("rawsocket: engine already started")
