package dlep

import "net/netip"

// NeighborHandle is a stable (index, generation) reference into a
// NeighborStore, analogous to PeerHandle.
type NeighborHandle struct {
	Index      uint32
	Generation uint32
}

// NeighborMetrics mirrors a neighbor's reported link characteristics,
// per spec.md §3.
type NeighborMetrics struct {
	RLQTx, RLQRx uint8
	Resources    uint8
	Latency      uint64
	CDRTx, CDRRx uint64
	MDRTx, MDRRx uint64
	MTU          uint16
}

// NeighborCredit mirrors the credit-window fields spec.md §3 and §4.4
// reference; DLEP credit windowing is not exercised by spec.md's six
// scenarios but the fields are carried for the NEIGHBOR_UPDATE_RES
// handling the neighbor FSM table names.
type NeighborCredit struct {
	MRW, RRW, CGR      uint64
	CreditNotSupported bool
}

// NeighborContext is one router-visible link the radio reports metrics
// for, per spec.md §3. Exists only while the owning peer is IN_SESSION.
type NeighborContext struct {
	Handle NeighborHandle
	Peer   PeerHandle

	MAC [6]byte

	IPv4          netip.Addr
	IPv4Subnet    netip.Addr
	IPv4PrefixLen uint8
	IPv6          netip.Addr
	IPv6Subnet    netip.Addr
	IPv6PrefixLen uint8

	PendingIPv4 PendingAddressUpdate
	PendingIPv6 PendingAddressUpdate

	Metrics NeighborMetrics
	Credit  NeighborCredit

	MissedUpAcks     uint32
	MissedUpdateAcks uint32
	MissedDownAcks   uint32

	State NeighborState

	InitAckTimer       TimerCell
	UpdateAckTimer     TimerCell
	UpdateIntervalTimer TimerCell
	TermAckTimer       TimerCell

	History TransitionHistory
}

// NewNeighborContext constructs a fresh neighbor in state INITIALIZING.
func NewNeighborContext(handle NeighborHandle, peer PeerHandle, mac [6]byte) *NeighborContext {
	return &NeighborContext{
		Handle: handle,
		Peer:   peer,
		MAC:    mac,
		State:  NeighborStateInitializing,
	}
}
