package dlep

import (
	"encoding/binary"
	"net/netip"
)

// Signal magic: the four octets "DLEP" prefixing every UDP signal (attached
// discovery, peer offer), distinguishing them from in-session TCP messages.
var signalMagic = [4]byte{0x44, 0x4C, 0x45, 0x50}

const (
	// messageHeaderSize is the 2-octet code + 2-octet length preceding
	// every message block's TLV stream.
	messageHeaderSize = 4
	// tlvHeaderSize is the 2-octet code + 2-octet length preceding every
	// TLV's value.
	tlvHeaderSize = 4
)

func putUint16(buf []byte, v uint16) { binary.BigEndian.PutUint16(buf, v) }
func putUint32(buf []byte, v uint32) { binary.BigEndian.PutUint32(buf, v) }
func putUint64(buf []byte, v uint64) { binary.BigEndian.PutUint64(buf, v) }

func getUint16(buf []byte) uint16 { return binary.BigEndian.Uint16(buf) }
func getUint32(buf []byte) uint32 { return binary.BigEndian.Uint32(buf) }
func getUint64(buf []byte) uint64 { return binary.BigEndian.Uint64(buf) }

// putMAC writes a 6-octet hardware address in network order.
func putMAC(buf []byte, mac [6]byte) { copy(buf[:6], mac[:]) }

func getMAC(buf []byte) [6]byte {
	var mac [6]byte
	copy(mac[:], buf[:6])
	return mac
}

// putIPv4 writes a 4-octet big-endian IPv4 address.
func putIPv4(buf []byte, addr netip.Addr) {
	a4 := addr.As4()
	copy(buf[:4], a4[:])
}

func getIPv4(buf []byte) netip.Addr {
	var a4 [4]byte
	copy(a4[:], buf[:4])
	return netip.AddrFrom4(a4)
}

// putIPv6 writes a 16-octet big-endian IPv6 address.
func putIPv6(buf []byte, addr netip.Addr) {
	a16 := addr.As16()
	copy(buf[:16], a16[:])
}

func getIPv6(buf []byte) netip.Addr {
	var a16 [16]byte
	copy(a16[:], buf[:16])
	return netip.AddrFrom16(a16)
}

// AddressOp is the one-octet operation prefix carried by every address TLV.
type AddressOp uint8

const (
	AddressOpDrop AddressOp = 0
	AddressOpAdd  AddressOp = 1
	AddressOpNone AddressOp = 2
)

func (op AddressOp) String() string {
	switch op {
	case AddressOpDrop:
		return "drop"
	case AddressOpAdd:
		return "add"
	case AddressOpNone:
		return "none"
	default:
		return "unknown"
	}
}
