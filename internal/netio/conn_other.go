//go:build !linux

package netio

import "net"

// setReuseAddr is a no-op on non-linux platforms; only linux's
// SO_REUSEADDR semantics are relied on (spec.md names no portability
// requirement beyond the daemon's primary deployment target).
func setReuseAddr(conn *net.UDPConn) error { return nil }

// bindToDevice is a no-op on non-linux platforms.
func bindToDevice(conn *net.UDPConn, ifaceName string) error { return nil }
