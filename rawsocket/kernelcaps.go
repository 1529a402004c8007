//go:build linux

package rawsocket

import (
	"github.com/docker/docker/pkg/parsers/kernel"
)

// Capabilities reports raw-socket features available on the running
// kernel. It follows the common idiom of comparing
// the detected kernel.VersionInfo against the version each feature landed
// in, rather than probing for the feature directly — cheaper and it lets
// Capabilities run once at Engine construction instead of per-socket.
type Capabilities struct {
	// PacketFanout reports whether PACKET_FANOUT (added in Linux 3.1) can
	// be used to load-balance one interface's receive queue across
	// multiple engine instances. Detected and logged at every New, though
	// a process is limited to a single active Engine today so there is
	// nothing to fan out to yet; reported so a future multi-engine NIC can
	// make that decision without re-deriving it.
	PacketFanout bool
}

var packetFanoutVersion = kernel.VersionInfo{Kernel: 3, Major: 1, Minor: 0}

// DetectCapabilities inspects the running kernel version. Errors detecting
// the version are non-fatal: Capabilities degrades to reporting nothing
// available, since the engine does not depend on any of these features to
// operate correctly.
func DetectCapabilities() Capabilities {
	v, err := kernel.GetKernelVersion()
	if err != nil {
		return Capabilities{}
	}
	return Capabilities{
		PacketFanout: kernel.CompareKernelVersion(*v, packetFanoutVersion) >= 0,
	}
}
