//go:build linux

package netio

import (
	"net"

	"golang.org/x/sys/unix"
)

// setReuseAddr sets SO_REUSEADDR on conn's underlying socket, allowing a
// restarted daemon to rebind its discovery port immediately rather than
// waiting out TIME_WAIT.
func setReuseAddr(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return sockErr
}

// bindToDevice sets SO_BINDTODEVICE, scoping the socket to a single
// radio-facing interface when the config names one.
func bindToDevice(conn *net.UDPConn, ifaceName string) error {
	if ifaceName == "" {
		return nil
	}
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := raw.Control(func(fd uintptr) {
		sockErr = unix.BindToDevice(int(fd), ifaceName)
	}); err != nil {
		return err
	}
	return sockErr
}
