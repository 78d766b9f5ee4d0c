package dlep

import "net/netip"

// PacketScratch is the packet-level decode pad: fields carried by the
// outermost message/signal block rather than by an individual TLV. No
// decoder fills it, and DecodePacket does not zero it: DecodePacket
// zeroes only the MessageScratch it populates.
type PacketScratch struct {
	Sequence               uint16
	SequencePresent        bool
	RouterID                uint32
	RouterIDPresent         bool
	ClientID                uint32
	ClientIDPresent         bool
	PeerHeartbeatInterval   uint32
	PeerHeartbeatIntervalPresent bool
}

func (p *PacketScratch) zero() {
	*p = PacketScratch{}
}

// MessageScratch is the sole channel between TLV decoders and event
// handlers: every field a TLV decoder can populate, each paired with a
// `*Present` flag. Zeroed before every message block is decoded.
type MessageScratch struct {
	MessageCode  MessageCode
	StatusCode   StatusCode
	StatusPresent bool

	VersionMajor  uint16
	VersionMinor  uint16
	VersionPresent bool

	MAC        [6]byte
	MACPresent bool

	IPv4       netip.Addr
	IPv4Op     AddressOp
	IPv4Present bool

	IPv6        netip.Addr
	IPv6Op      AddressOp
	IPv6Present bool

	IPv4Subnet        netip.Addr
	IPv4PrefixLen     uint8
	IPv4SubnetPresent bool

	IPv6Subnet        netip.Addr
	IPv6PrefixLen     uint8
	IPv6SubnetPresent bool

	PeerType        string
	PeerTypePresent bool

	ConnPointPort uint16
	ConnPointAddr netip.Addr
	ConnPointPresent bool

	MDRRx, MDRTx uint64
	MDRPresent   bool

	CDRRx, CDRTx uint64
	CDRPresent   bool

	Latency        uint64
	LatencyPresent bool

	Resources        uint8
	ResourcesPresent bool

	RLQRx, RLQTx uint8
	RLQPresent   bool

	MTU        uint16
	MTUPresent bool

	HeartbeatInterval uint32
	HeartbeatPresent  bool

	// Credit fields (not populated by the registry TLVs in spec.md §6,
	// reserved for the credit-window-status / credit-request handling
	// described in spec.md §4.4's neighbor FSM table).
	MRW, RRW, CGR     uint64
	CreditNotSupported bool
	CreditPresent      bool
}

func (m *MessageScratch) zero() {
	*m = MessageScratch{}
}
