// Package netio provides the two transports a DLEP radio endpoint needs:
// a UDP socket for attached-discovery and peer-offer signals, and a TCP
// listener that accepts the single session socket used for everything
// after peer initialization (spec.md §4.6).
package netio

import (
	"context"
	"errors"
	"net"
	"net/netip"
)

// ErrSocketClosed names the closed-socket condition. No method in this
// package returns it: after Close, reads and writes return the
// underlying net package error.
var ErrSocketClosed = errors.New("netio: socket closed")

// Frame is one datagram or TCP read, tagged with the transport it
// arrived on so the dispatch loop can decode datagrams directly and
// reassemble TCP reads into message blocks.
type Frame struct {
	Transport Transport
	Peer      netip.AddrPort
	Data      []byte
}

// Transport identifies which socket a Frame or outbound send uses.
type Transport int

const (
	TransportUDP Transport = iota
	TransportTCP
)

func (t Transport) String() string {
	if t == TransportUDP {
		return "udp"
	}
	return "tcp"
}

// UDPConn wraps a bound UDP socket used for discovery and offer
// signals (spec.md §4.6).
type UDPConn struct {
	conn *net.UDPConn
}

// ListenUDP binds a UDP socket on addr. If ifaceName is non-empty, the
// socket is scoped to that interface (SO_BINDTODEVICE on linux).
func ListenUDP(addr netip.AddrPort, ifaceName string) (*UDPConn, error) {
	conn, err := net.ListenUDP("udp", net.UDPAddrFromAddrPort(addr))
	if err != nil {
		return nil, err
	}
	if err := setReuseAddr(conn); err != nil {
		conn.Close()
		return nil, err
	}
	if err := bindToDevice(conn, ifaceName); err != nil {
		conn.Close()
		return nil, err
	}
	return &UDPConn{conn: conn}, nil
}

// LocalAddr returns the bound local address.
func (c *UDPConn) LocalAddr() netip.AddrPort {
	return c.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// ReadFrom reads one datagram, returning its payload and sender address.
func (c *UDPConn) ReadFrom(buf []byte) (int, netip.AddrPort, error) {
	n, addr, err := c.conn.ReadFromUDPAddrPort(buf)
	return n, addr, err
}

// WriteTo sends one datagram to dst.
func (c *UDPConn) WriteTo(data []byte, dst netip.AddrPort) error {
	_, err := c.conn.WriteToUDPAddrPort(data, dst)
	return err
}

// Close releases the socket.
func (c *UDPConn) Close() error { return c.conn.Close() }

// TCPSession wraps the single accepted TCP connection a radio maintains
// once it has a session peer (spec.md §5: at most one active peer, so
// at most one session socket).
type TCPSession struct {
	conn net.Conn
}

// TCPListener wraps the bound TCP listening socket awaiting the
// session-establishing connection.
type TCPListener struct {
	ln net.Listener
}

// ListenTCP binds a TCP listening socket on addr.
func ListenTCP(addr netip.AddrPort) (*TCPListener, error) {
	ln, err := net.Listen("tcp", net.TCPAddrFromAddrPort(addr).String())
	if err != nil {
		return nil, err
	}
	return &TCPListener{ln: ln}, nil
}

// LocalAddr returns the bound local address.
func (l *TCPListener) LocalAddr() netip.AddrPort {
	return l.ln.Addr().(*net.TCPAddr).AddrPort()
}

// Accept blocks until a router connects, returning the session socket.
// DLEP maintains at most one active session; a caller that accepts a
// second connection while one is active is expected to close it
// immediately (spec.md §5).
func (l *TCPListener) Accept(ctx context.Context) (*TCPSession, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := l.ln.Accept()
		ch <- result{conn, err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		return &TCPSession{conn: r.conn}, nil
	}
}

// Close releases the listening socket.
func (l *TCPListener) Close() error { return l.ln.Close() }

// Read reads from the session socket. A zero-length read with a nil
// error does not occur over TCP; io.EOF signals the session closing,
// which the dispatch loop treats as spec.md §4.6's "TCP ready" flag
// clearing.
func (s *TCPSession) Read(buf []byte) (int, error) { return s.conn.Read(buf) }

// Write sends data over the session socket.
func (s *TCPSession) Write(data []byte) error {
	_, err := s.conn.Write(data)
	return err
}

// RemoteAddr returns the session peer's address.
func (s *TCPSession) RemoteAddr() netip.AddrPort {
	if a, ok := s.conn.RemoteAddr().(*net.TCPAddr); ok {
		return a.AddrPort()
	}
	return netip.AddrPort{}
}

// Close releases the session socket.
func (s *TCPSession) Close() error { return s.conn.Close() }
