// Package wire implements the Ethernet II frame layout and the Agent
// protocol header carried in its payload. All multi-byte wire fields are
// big-endian. There is no VLAN tag and no FCS handling — the kernel
// supplies and checks the frame check sequence.
package wire

import (
	"encoding/binary"
	"errors"
)

// EtherType is the project-specific EtherType used to tag frames carrying
// the Agent protocol. It falls in the IEEE 802 "local experimental" range.
const EtherType = 0x88B5

// HeaderLen is the length in bytes of an Ethernet II header: destination
// MAC (6) + source MAC (6) + EtherType (2).
const HeaderLen = 14

// MACLen is the length in bytes of a single MAC address field.
const MACLen = 6

var ErrFrameTooShort = errors.New("wire: frame shorter than ethernet header")

// Frame is a decoded Ethernet II frame: addressing plus an opaque payload.
// Fields alias the caller's byte slices where possible to avoid copies on
// the receive path; callers that need to retain a Frame past the
// callback that produced it must copy Payload themselves.
type Frame struct {
	Dst       [MACLen]byte
	Src       [MACLen]byte
	EtherType uint16
	Payload   []byte
}

// MTUForLinkMTU returns the payload budget available to callers of this
// package given the raw link MTU reported by the bound interface.
func MTUForLinkMTU(linkMTU int) int {
	m := linkMTU - HeaderLen
	if m < 0 {
		return 0
	}
	return m
}

// Encode writes an Ethernet II header plus payload into dst, returning the
// number of bytes written. dst must have capacity for HeaderLen+len(payload).
func Encode(dst []byte, dstMAC, srcMAC [MACLen]byte, payload []byte) int {
	copy(dst[0:6], dstMAC[:])
	copy(dst[6:12], srcMAC[:])
	binary.BigEndian.PutUint16(dst[12:14], EtherType)
	n := copy(dst[HeaderLen:], payload)
	return HeaderLen + n
}

// Decode parses an Ethernet II frame out of buf. The returned Frame's
// Payload aliases buf; it is only valid until buf is reused.
func Decode(buf []byte) (Frame, error) {
	if len(buf) < HeaderLen {
		return Frame{}, ErrFrameTooShort
	}
	var f Frame
	copy(f.Dst[:], buf[0:6])
	copy(f.Src[:], buf[6:12])
	f.EtherType = binary.BigEndian.Uint16(buf[12:14])
	f.Payload = buf[HeaderLen:]
	return f, nil
}
