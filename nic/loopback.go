package nic

import (
	"net"
	"sync/atomic"
)

// loopback is the same-host delivery shortcut for a NIC's own broadcast
// sends. A real AF_PACKET socket never hands the sender its own
// transmitted frames back, so without this path two Agents sharing a
// process (and therefore a MAC) would never observe each other's
// broadcasts. It is built on net.Pipe() so the loopback goes through the
// same framed read/write discipline as the real wire path rather than
// calling the demuxer inline. net.Pipe() has no backing file descriptor
// (it is an in-memory synchronous channel), so its byte counters are
// derived from Write/Read return values rather than any fd-level
// accounting.
type loopback struct {
	tx, rx net.Conn

	txBytes atomic.Int64
	rxBytes atomic.Int64

	done chan struct{}
}

func newLoopback() *loopback {
	tx, rx := net.Pipe()
	return &loopback{tx: tx, rx: rx, done: make(chan struct{})}
}

// start launches the read side, invoking deliver once per payload
// written by send. deliver must copy anything it retains past its call,
// same contract as rawsocket.ReceiveCallback.
func (lb *loopback) start(deliver func(payload []byte)) {
	go func() {
		buf := make([]byte, 65536)
		for {
			n, err := lb.rx.Read(buf)
			if n > 0 {
				lb.rxBytes.Add(int64(n))
				deliver(buf[:n])
			}
			if err != nil {
				close(lb.done)
				return
			}
		}
	}()
}

// send hands payload to the loopback's write side. It blocks until the
// reader goroutine accepts it, mirroring the synchronous write semantics
// of a real socket send.
func (lb *loopback) send(payload []byte) (int, error) {
	n, err := lb.tx.Write(payload)
	if n > 0 {
		lb.txBytes.Add(int64(n))
	}
	return n, err
}

func (lb *loopback) stats() (tx, rx int64) {
	return lb.txBytes.Load(), lb.rxBytes.Load()
}

func (lb *loopback) close() error {
	err := lb.tx.Close()
	if rerr := lb.rx.Close(); err == nil {
		err = rerr
	}
	return err
}
