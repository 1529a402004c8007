package agent

import (
	"os"
	"strconv"
)

// Config holds the environment-driven knobs an Agent's surrounding
// process reads at startup. None of it is consulted by Agent itself;
// cmd/agentdemo and cmd/statsd use it to assemble the NIC/Protocol/Bus
// stack an Agent is built on top of.
type Config struct {
	// Iface is the network interface the raw-socket engine binds to,
	// from SMARTDATA_IFACE. Empty means the caller must supply one.
	Iface string
	// LogDir is the log directory, from SMARTDATA_LOG_DIR, carried for
	// external log-writing collaborators. Nothing in this module writes
	// to it.
	LogDir string
	// DebugMask is the debug-verbosity bitmask, from SMARTDATA_DEBUG_MASK
	// (a base-10 or 0x-prefixed bitmask; unparseable values read as 0).
	// It is parsed only; nothing in this module changes log levels by it.
	DebugMask uint32
	// ClockSource names the clock.FromEnv source, from
	// SMARTDATA_CLOCK_SOURCE.
	ClockSource string
}

// ConfigFromEnv reads Config from the process environment, applying
// empty defaults for anything unset.
func ConfigFromEnv() Config {
	return Config{
		Iface:       os.Getenv("SMARTDATA_IFACE"),
		LogDir:      os.Getenv("SMARTDATA_LOG_DIR"),
		DebugMask:   parseDebugMask(os.Getenv("SMARTDATA_DEBUG_MASK")),
		ClockSource: os.Getenv("SMARTDATA_CLOCK_SOURCE"),
	}
}

func parseDebugMask(v string) uint32 {
	if v == "" {
		return 0
	}
	n, err := strconv.ParseUint(v, 0, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}
