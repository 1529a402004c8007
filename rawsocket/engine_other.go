//go:build !linux

package rawsocket

import (
	"fmt"
	"runtime"
)

// New is unavailable outside Linux: AF_PACKET/SOCK_RAW sockets are a
// Linux-specific facility. Setup failures throw at
// construction rather than surfacing later.
func New(ifaceName string) (Engine, error) {
	return nil, fmt.Errorf("rawsocket: raw AF_PACKET sockets are not supported on %s", runtime.GOOS)
}
