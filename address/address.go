// Package address defines the (MAC, port) endpoint addressing used by the
// NIC and Protocol layers.
package address

import "fmt"

// MACLen is the length in bytes of an Ethernet MAC address.
const MACLen = 6

// MAC is a 6-byte Ethernet hardware address.
type MAC [MACLen]byte

// Broadcast is the all-ones MAC address.
var Broadcast = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsBroadcast reports whether m is the all-ones broadcast MAC.
func (m MAC) IsBroadcast() bool {
	return m == Broadcast
}

// Address is a (physical address, port) endpoint. The broadcast address is
// {Broadcast, 0}.
type Address struct {
	MAC  MAC
	Port uint16
}

// BroadcastAddress is the well-known (Broadcast, 0) endpoint.
var BroadcastAddress = Address{MAC: Broadcast, Port: 0}

func (a Address) String() string {
	return fmt.Sprintf("%s:%d", a.MAC, a.Port)
}

// IsBroadcast reports whether a is the broadcast address.
func (a Address) IsBroadcast() bool {
	return a == BroadcastAddress
}
