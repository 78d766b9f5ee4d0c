// Package commands implements the godlepctl subcommand tree.
package commands

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/dantte-lp/godlep/internal/dlep"
)

// dialTimeout bounds how long sendCommand waits to establish the UDP
// "connection" (UDP dial never blocks on the wire, but resolving the
// address can).
const dialTimeout = 2 * time.Second

// sendCommand injects line as a scenario-injection frame (spec.md §6)
// addressed to the godlep daemon's UDP discovery socket: a 16-bit
// sentinel of dlep.ScenarioInjectionSentinel followed by the ASCII
// command and a trailing null terminator. The daemon does not reply
// over this channel -- spec.md §4.6 defines injection as fire-and-forget,
// with the result observable through the daemon's own logs or through a
// subsequent "show" query.
func sendCommand(addr, line string) error {
	conn, err := net.DialTimeout("udp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	frame := make([]byte, 2, 2+len(line)+1)
	binary.BigEndian.PutUint16(frame, dlep.ScenarioInjectionSentinel)
	frame = append(frame, line...)
	frame = append(frame, 0)

	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("write to %s: %w", addr, err)
	}
	return nil
}
