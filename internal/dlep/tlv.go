package dlep

import (
	"errors"
	"fmt"
)

var (
	// ErrPacketTooShort means a buffer ended before a header or value
	// could be fully read.
	ErrPacketTooShort = errors.New("dlep: packet too short")
	// ErrInvalidTLVLength means a TLV's declared length overruns the
	// remaining bytes in the enclosing message block, or mismatches the
	// fixed length the TLV's code requires.
	ErrInvalidTLVLength = errors.New("dlep: invalid tlv length")
	// ErrUnknownMessageCode means the message/signal block's code is not
	// in the registry.
	ErrUnknownMessageCode = errors.New("dlep: unknown message code")
	// ErrPeerTypeTooLong means a PEER_TYPE TLV's string exceeds
	// MaxPeerTypeLength octets.
	ErrPeerTypeTooLong = errors.New("dlep: peer type string too long")
)

// Encoder builds one message block (optionally magic-prefixed as a
// signal) into an internal byte buffer using a cursor plus a back-patch
// pointer for the message-block length field, mirroring the teacher's
// marshal-with-backpatch style used for variable-length control blocks.
type Encoder struct {
	buf          []byte
	lengthCursor int
}

// NewEncoder returns an Encoder ready to build one message. If signal is
// true, the four-octet "DLEP" magic is written first.
func NewEncoder(code MessageCode, signal bool) *Encoder {
	e := &Encoder{buf: make([]byte, 0, 128)}
	if signal {
		e.buf = append(e.buf, signalMagic[:]...)
	}
	e.buf = append(e.buf, 0, 0, 0, 0) // placeholder code+length
	putUint16(e.buf[len(e.buf)-4:], uint16(code))
	e.lengthCursor = len(e.buf) - 2
	return e
}

// Bytes finalizes the message block by back-patching its length (the
// byte count of the TLV stream that follows the header) and returns the
// complete buffer.
func (e *Encoder) Bytes() []byte {
	bodyLen := len(e.buf) - e.lengthCursor - 2
	putUint16(e.buf[e.lengthCursor:], uint16(bodyLen))
	return e.buf
}

func (e *Encoder) tlvHeader(code TLVCode, valueLen int) {
	hdr := make([]byte, 4)
	putUint16(hdr[0:], uint16(code))
	putUint16(hdr[2:], uint16(valueLen))
	e.buf = append(e.buf, hdr...)
}

func (e *Encoder) Status(s StatusCode) *Encoder {
	e.tlvHeader(TLVStatus, 1)
	e.buf = append(e.buf, byte(s))
	return e
}

func (e *Encoder) PeerType(s string) *Encoder {
	e.tlvHeader(TLVPeerType, len(s))
	e.buf = append(e.buf, []byte(s)...)
	return e
}

func (e *Encoder) HeartbeatInterval(ms uint32) *Encoder {
	e.tlvHeader(TLVHeartbeatInterval, 4)
	b := make([]byte, 4)
	putUint32(b, ms)
	e.buf = append(e.buf, b...)
	return e
}

func (e *Encoder) MACAddress(mac [6]byte) *Encoder {
	e.tlvHeader(TLVMACAddress, 6)
	b := make([]byte, 6)
	putMAC(b, mac)
	e.buf = append(e.buf, b...)
	return e
}

func (e *Encoder) IPv4ConnectionPoint(port uint16, addr [4]byte) *Encoder {
	e.tlvHeader(TLVIPv4ConnectionPoint, 6)
	b := make([]byte, 6)
	putUint16(b[0:], port)
	copy(b[2:], addr[:])
	e.buf = append(e.buf, b...)
	return e
}

func (e *Encoder) IPv4Address(op AddressOp, addr [4]byte) *Encoder {
	e.tlvHeader(TLVIPv4Address, 5)
	b := make([]byte, 5)
	b[0] = byte(op)
	copy(b[1:], addr[:])
	e.buf = append(e.buf, b...)
	return e
}

func (e *Encoder) IPv6Address(op AddressOp, addr [16]byte) *Encoder {
	e.tlvHeader(TLVIPv6Address, 17)
	b := make([]byte, 17)
	b[0] = byte(op)
	copy(b[1:], addr[:])
	e.buf = append(e.buf, b...)
	return e
}

func (e *Encoder) IPv4AttachedSubnet(op AddressOp, addr [4]byte, prefixLen uint8) *Encoder {
	e.tlvHeader(TLVIPv4AttachedSubnet, 6)
	b := make([]byte, 6)
	b[0] = byte(op)
	copy(b[1:], addr[:])
	b[5] = prefixLen
	e.buf = append(e.buf, b...)
	return e
}

func (e *Encoder) IPv6AttachedSubnet(op AddressOp, addr [16]byte, prefixLen uint8) *Encoder {
	e.tlvHeader(TLVIPv6AttachedSubnet, 18)
	b := make([]byte, 18)
	b[0] = byte(op)
	copy(b[1:], addr[:])
	b[17] = prefixLen
	e.buf = append(e.buf, b...)
	return e
}

func (e *Encoder) uint64TLV(code TLVCode, v uint64) *Encoder {
	e.tlvHeader(code, 8)
	b := make([]byte, 8)
	putUint64(b, v)
	e.buf = append(e.buf, b...)
	return e
}

func (e *Encoder) LinkMDRRx(v uint64) *Encoder { return e.uint64TLV(TLVLinkMDRRx, v) }
func (e *Encoder) LinkMDRTx(v uint64) *Encoder { return e.uint64TLV(TLVLinkMDRTx, v) }
func (e *Encoder) LinkCDRRx(v uint64) *Encoder { return e.uint64TLV(TLVLinkCDRRx, v) }
func (e *Encoder) LinkCDRTx(v uint64) *Encoder { return e.uint64TLV(TLVLinkCDRTx, v) }
func (e *Encoder) LinkLatency(v uint64) *Encoder { return e.uint64TLV(TLVLinkLatency, v) }

func (e *Encoder) LinkResources(v uint8) *Encoder {
	e.tlvHeader(TLVLinkResources, 1)
	e.buf = append(e.buf, clampPercent(v))
	return e
}

func (e *Encoder) LinkRLQRx(v uint8) *Encoder {
	e.tlvHeader(TLVLinkRLQRx, 1)
	e.buf = append(e.buf, clampPercent(v))
	return e
}

func (e *Encoder) LinkRLQTx(v uint8) *Encoder {
	e.tlvHeader(TLVLinkRLQTx, 1)
	e.buf = append(e.buf, clampPercent(v))
	return e
}

func (e *Encoder) MTU(v uint16) *Encoder {
	e.tlvHeader(TLVMTU, 2)
	b := make([]byte, 2)
	putUint16(b, v)
	e.buf = append(e.buf, b...)
	return e
}

// DecodedMessage is the result of decoding one message/signal block: the
// dispatcher-facing triple from spec.md §4.1 plus the populated scratch
// pad.
type DecodedMessage struct {
	Code     MessageCode
	IsSignal bool
	Scratch  MessageScratch
}

// MessageBlockLen reports the total byte length (header plus body) of the
// TCP-framed message block starting at buf, per spec.md §4.1's 4-octet
// code+length header. ok is false when buf does not yet hold a complete
// header, meaning the caller must read more bytes before it can know
// where the block ends — this is what lets a TCP reader reassemble
// message blocks split across reads, or split apart ones coalesced into
// a single read, instead of handing partial or concatenated data to
// DecodePacket.
func MessageBlockLen(buf []byte) (n int, ok bool) {
	if len(buf) < messageHeaderSize {
		return 0, false
	}
	bodyLen := int(getUint16(buf[2:4]))
	return messageHeaderSize + bodyLen, true
}

// DecodePacket decodes exactly one message or signal block from buf,
// testing the leading 32-bit word to distinguish a magic-prefixed UDP
// signal from an in-session TCP message, per spec.md §4.1.
func DecodePacket(buf []byte) (*DecodedMessage, error) {
	if len(buf) < 4 {
		return nil, ErrPacketTooShort
	}
	signal := buf[0] == signalMagic[0] && buf[1] == signalMagic[1] &&
		buf[2] == signalMagic[2] && buf[3] == signalMagic[3]
	if signal {
		buf = buf[4:]
	}
	if len(buf) < messageHeaderSize {
		return nil, ErrPacketTooShort
	}
	code := MessageCode(getUint16(buf[0:2]))
	if !code.IsKnown() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMessageCode, uint16(code))
	}
	bodyLen := int(getUint16(buf[2:4]))
	body := buf[messageHeaderSize:]
	if len(body) < bodyLen {
		return nil, ErrInvalidTLVLength
	}
	body = body[:bodyLen]

	var scratch MessageScratch
	scratch.zero()
	scratch.MessageCode = code

	if err := decodeTLVs(body, &scratch); err != nil {
		return nil, err
	}

	return &DecodedMessage{Code: code, IsSignal: signal, Scratch: scratch}, nil
}

// decodeTLVs walks a message block's TLV stream, dispatching each TLV by
// code into the scratch pad. An unrecognized code is skipped using its
// declared length (forward compatibility, spec.md §4.1); a length that
// overruns the remaining bytes aborts decoding of the rest of the packet,
// per spec.md §4.1's error policy — the scratch pad may be left partially
// populated and the message is not delivered to the dispatcher.
func decodeTLVs(body []byte, m *MessageScratch) error {
	for len(body) > 0 {
		if len(body) < tlvHeaderSize {
			return ErrPacketTooShort
		}
		code := TLVCode(getUint16(body[0:2]))
		valLen := int(getUint16(body[2:4]))
		rest := body[tlvHeaderSize:]
		if valLen > len(rest) {
			return fmt.Errorf("%w: code %s declares %d, have %d", ErrInvalidTLVLength, code, valLen, len(rest))
		}
		val := rest[:valLen]

		if err := decodeOneTLV(code, val, m); err != nil {
			return err
		}

		body = rest[valLen:]
	}
	return nil
}

func decodeOneTLV(code TLVCode, val []byte, m *MessageScratch) error {
	switch code {
	case TLVStatus:
		if len(val) != 1 {
			return fmt.Errorf("%w: STATUS expects 1 octet", ErrInvalidTLVLength)
		}
		m.StatusCode = StatusCode(val[0])
		m.StatusPresent = true

	case TLVPeerType:
		if len(val) > MaxPeerTypeLength {
			return ErrPeerTypeTooLong
		}
		m.PeerType = string(val)
		m.PeerTypePresent = true

	case TLVHeartbeatInterval:
		if len(val) != 4 {
			return fmt.Errorf("%w: HEARTBEAT_INTERVAL expects 4 octets", ErrInvalidTLVLength)
		}
		m.HeartbeatInterval = getUint32(val)
		m.HeartbeatPresent = true

	case TLVMACAddress:
		if len(val) != 6 {
			return fmt.Errorf("%w: MAC_ADDRESS expects 6 octets", ErrInvalidTLVLength)
		}
		m.MAC = getMAC(val)
		m.MACPresent = true

	case TLVIPv4ConnectionPoint:
		if len(val) != 6 {
			return fmt.Errorf("%w: IPV4_CONNECTION_POINT expects 6 octets", ErrInvalidTLVLength)
		}
		m.ConnPointPort = getUint16(val[0:2])
		m.ConnPointAddr = getIPv4(val[2:6])
		m.ConnPointPresent = true

	case TLVIPv6ConnectionPoint:
		if len(val) != 18 {
			return fmt.Errorf("%w: IPV6_CONNECTION_POINT expects 18 octets", ErrInvalidTLVLength)
		}
		m.ConnPointPort = getUint16(val[0:2])
		m.ConnPointAddr = getIPv6(val[2:18])
		m.ConnPointPresent = true

	case TLVIPv4Address:
		if len(val) != 5 {
			return fmt.Errorf("%w: IPV4_ADDRESS expects 5 octets", ErrInvalidTLVLength)
		}
		m.IPv4Op = AddressOp(val[0])
		m.IPv4 = getIPv4(val[1:5])
		m.IPv4Present = true

	case TLVIPv6Address:
		if len(val) != 17 {
			return fmt.Errorf("%w: IPV6_ADDRESS expects 17 octets", ErrInvalidTLVLength)
		}
		m.IPv6Op = AddressOp(val[0])
		m.IPv6 = getIPv6(val[1:17])
		m.IPv6Present = true

	case TLVIPv4AttachedSubnet:
		if len(val) != 6 {
			return fmt.Errorf("%w: IPV4_ATTACHED_SUBNET expects 6 octets", ErrInvalidTLVLength)
		}
		m.IPv4Op = AddressOp(val[0])
		m.IPv4Subnet = getIPv4(val[1:5])
		m.IPv4PrefixLen = val[5]
		m.IPv4SubnetPresent = true

	case TLVIPv6AttachedSubnet:
		if len(val) != 18 {
			return fmt.Errorf("%w: IPV6_ATTACHED_SUBNET expects 18 octets", ErrInvalidTLVLength)
		}
		m.IPv6Op = AddressOp(val[0])
		m.IPv6Subnet = getIPv6(val[1:17])
		m.IPv6PrefixLen = val[17]
		m.IPv6SubnetPresent = true

	case TLVLinkMDRRx:
		if len(val) != 8 {
			return fmt.Errorf("%w: LINK_MDR_RX expects 8 octets", ErrInvalidTLVLength)
		}
		m.MDRRx = getUint64(val)
		m.MDRPresent = true

	case TLVLinkMDRTx:
		if len(val) != 8 {
			return fmt.Errorf("%w: LINK_MDR_TX expects 8 octets", ErrInvalidTLVLength)
		}
		m.MDRTx = getUint64(val)
		m.MDRPresent = true

	case TLVLinkCDRRx:
		if len(val) != 8 {
			return fmt.Errorf("%w: LINK_CDR_RX expects 8 octets", ErrInvalidTLVLength)
		}
		m.CDRRx = getUint64(val)
		m.CDRPresent = true

	case TLVLinkCDRTx:
		if len(val) != 8 {
			return fmt.Errorf("%w: LINK_CDR_TX expects 8 octets", ErrInvalidTLVLength)
		}
		m.CDRTx = getUint64(val)
		m.CDRPresent = true

	case TLVLinkLatency:
		if len(val) != 8 {
			return fmt.Errorf("%w: LINK_LATENCY expects 8 octets", ErrInvalidTLVLength)
		}
		m.Latency = getUint64(val)
		m.LatencyPresent = true

	case TLVLinkResources:
		if len(val) != 1 {
			return fmt.Errorf("%w: LINK_RESOURCES expects 1 octet", ErrInvalidTLVLength)
		}
		m.Resources = clampPercent(val[0])
		m.ResourcesPresent = true

	case TLVLinkRLQRx:
		if len(val) != 1 {
			return fmt.Errorf("%w: LINK_RLQ_RX expects 1 octet", ErrInvalidTLVLength)
		}
		m.RLQRx = clampPercent(val[0])
		m.RLQPresent = true

	case TLVLinkRLQTx:
		if len(val) != 1 {
			return fmt.Errorf("%w: LINK_RLQ_TX expects 1 octet", ErrInvalidTLVLength)
		}
		m.RLQTx = clampPercent(val[0])
		m.RLQPresent = true

	case TLVMTU:
		if len(val) != 2 {
			return fmt.Errorf("%w: MTU expects 2 octets", ErrInvalidTLVLength)
		}
		m.MTU = getUint16(val)
		m.MTUPresent = true

	default:
		// Unrecognized code: skip via its declared length, per the
		// forward-compatibility stepper in spec.md §4.1.
	}
	return nil
}
