//go:build !linux

package rawsocket

// Capabilities reports raw-socket features available on the running
// kernel. Always empty outside Linux, where this package has no Engine
// implementation to begin with.
type Capabilities struct {
	PacketFanout bool
}

// DetectCapabilities always returns the zero Capabilities outside Linux.
func DetectCapabilities() Capabilities {
	return Capabilities{}
}
