//go:build linux

package rawsocket

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/jcconnects/UFSC-INE5424-sub001/address"
	"github.com/jcconnects/UFSC-INE5424-sub001/wire"
)

// active guards the "only one engine instance per process" invariant:
// EpollCreate1/signal-style registration is process-global.
var active atomic.Bool

// linuxEngine is the AF_PACKET/SOCK_RAW implementation of Engine. Receive
// is driven by an epoll-backed drain loop: each readiness notification may
// cover several queued frames, so the loop reads until EAGAIN before
// going back to EpollWait. This is the Go-idiomatic equivalent of the
// spec's "signal-driven or equivalent" asynchronous notification — see
// DESIGN.md for the rationale.
type linuxEngine struct {
	fd      int
	ifIndex int
	local   address.MAC
	mtu     int
	ethType uint16

	epfd         int
	stopR, stopW int

	caps Capabilities

	mu sync.Mutex
	cb ReceiveCallback

	started atomic.Bool
	stopped atomic.Bool
	wg      sync.WaitGroup

	errMu sync.Mutex
	err   error

	bufPool sync.Pool
}

// New binds a raw AF_PACKET socket carrying EtherType frames to ifaceName.
// Setup failures (interface lookup, socket, bind) are returned here, per
// ("setup failures... throw at construction").
func New(ifaceName string) (Engine, error) {
	if !active.CompareAndSwap(false, true) {
		return nil, ErrAlreadyActive
	}

	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		active.Store(false)
		return nil, fmt.Errorf("rawsocket: interface lookup %q: %w", ifaceName, err)
	}
	if len(iface.HardwareAddr) != address.MACLen {
		active.Store(false)
		return nil, fmt.Errorf("rawsocket: interface %q has no hardware address", ifaceName)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(wire.EtherType)))
	if err != nil {
		active.Store(false)
		return nil, fmt.Errorf("rawsocket: socket: %w", err)
	}

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(wire.EtherType),
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		active.Store(false)
		return nil, fmt.Errorf("rawsocket: bind to %q: %w", ifaceName, err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		active.Store(false)
		return nil, fmt.Errorf("rawsocket: set non-blocking: %w", err)
	}

	epfd, err := unix.EpollCreate1(0)
	if err != nil {
		unix.Close(fd)
		active.Store(false)
		return nil, fmt.Errorf("rawsocket: epoll_create1: %w", err)
	}

	pipeFDs := make([]int, 2)
	if err := unix.Pipe2(pipeFDs, unix.O_NONBLOCK); err != nil {
		unix.Close(epfd)
		unix.Close(fd)
		active.Store(false)
		return nil, fmt.Errorf("rawsocket: pipe2: %w", err)
	}

	e := &linuxEngine{
		fd:      fd,
		ifIndex: iface.Index,
		mtu:     wire.MTUForLinkMTU(iface.MTU),
		ethType: wire.EtherType,
		epfd:    epfd,
		stopR:   pipeFDs[0],
		stopW:   pipeFDs[1],
	}
	copy(e.local[:], iface.HardwareAddr)
	e.bufPool.New = func() any { return make([]byte, e.mtu+wire.HeaderLen) }

	e.caps = DetectCapabilities()
	logrus.WithFields(logrus.Fields{
		"iface":         ifaceName,
		"packet_fanout": e.caps.PacketFanout,
	}).Debug("rawsocket: detected kernel capabilities")

	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}); err != nil {
		unix.Close(epfd)
		unix.Close(fd)
		unix.Close(e.stopR)
		unix.Close(e.stopW)
		active.Store(false)
		return nil, fmt.Errorf("rawsocket: epoll_ctl add socket: %w", err)
	}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, e.stopR, &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(e.stopR)}); err != nil {
		unix.Close(epfd)
		unix.Close(fd)
		unix.Close(e.stopR)
		unix.Close(e.stopW)
		active.Store(false)
		return nil, fmt.Errorf("rawsocket: epoll_ctl add stop pipe: %w", err)
	}

	return e, nil
}

// htons converts a host-order uint16 to network byte order.
func htons(v uint16) uint16 {
	return (v<<8)&0xff00 | (v >> 8)
}

func (e *linuxEngine) LocalMAC() address.MAC { return e.local }
func (e *linuxEngine) MTU() int              { return e.mtu }

// Capabilities returns the kernel features detected at construction.
func (e *linuxEngine) Capabilities() Capabilities { return e.caps }

func (e *linuxEngine) Err() error {
	e.errMu.Lock()
	defer e.errMu.Unlock()
	return e.err
}

func (e *linuxEngine) fail(err error) {
	e.errMu.Lock()
	if e.err == nil {
		e.err = err
	}
	e.errMu.Unlock()
}

func (e *linuxEngine) SetReceiveCallback(cb ReceiveCallback) {
	e.mu.Lock()
	e.cb = cb
	e.mu.Unlock()
}

// Send transmits frame as-is (it must already carry a complete Ethernet
// header built with wire.Encode, addressed to the broadcast MAC); the
// kernel routes it out the bound interface.
func (e *linuxEngine) Send(frame []byte) (int, error) {
	if !e.started.Load() {
		return -1, ErrNotStarted
	}
	n, err := unix.Write(e.fd, frame)
	if err != nil {
		return -1, err
	}
	return n, nil
}

func (e *linuxEngine) Start() error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	e.wg.Add(1)
	go e.loop()
	return nil
}

func (e *linuxEngine) loop() {
	defer e.wg.Done()
	events := make([]unix.EpollEvent, 8)
	for {
		n, err := unix.EpollWait(e.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			e.fail(fmt.Errorf("rawsocket: epoll_wait: %w", err))
			return
		}
		for i := 0; i < n; i++ {
			if events[i].Fd == int32(e.stopR) {
				return
			}
			if !e.drain() {
				return
			}
		}
	}
}

// drain empties the socket on one readiness notification: multiple
// frames may be queued, so it reads until EAGAIN.
func (e *linuxEngine) drain() bool {
	for {
		buf := e.bufPool.Get().([]byte)
		n, _, err := unix.Recvfrom(e.fd, buf, 0)
		if err != nil {
			e.bufPool.Put(buf) //nolint:staticcheck // buffer untouched on error path
			if err == unix.EAGAIN {
				return true
			}
			e.fail(fmt.Errorf("rawsocket: recvfrom: %w", err))
			return false
		}

		e.mu.Lock()
		cb := e.cb
		e.mu.Unlock()
		if cb != nil {
			cb(buf[:n])
		}
		e.bufPool.Put(buf)
	}
}

func (e *linuxEngine) Stop() error {
	if !e.stopped.CompareAndSwap(false, true) {
		return nil
	}
	if e.started.Load() {
		unix.Write(e.stopW, []byte{0}) //nolint:errcheck // best-effort wakeup
		e.wg.Wait()
	}
	unix.Close(e.epfd)
	unix.Close(e.fd)
	unix.Close(e.stopR)
	unix.Close(e.stopW)
	active.Store(false)
	return nil
}
