package dlep

import "net/netip"

// PeerHandle is a stable (index, generation) reference into a PeerStore.
// It survives across the peer's lifetime without being invalidated by
// slot reuse: a stale handle (from a deallocated peer) fails Lookup
// rather than aliasing a newer occupant of the same slot.
type PeerHandle struct {
	Index      uint32
	Generation uint32
}

// TimerConfig holds the guard-timer durations and missed-ack thresholds
// negotiated or configured for one peer session, per spec.md §3.
type TimerConfig struct {
	HeartbeatIntervalMS       uint32
	HeartbeatMissedThreshold  uint32
	OfferIntervalMS           uint32
	TermAckTimeoutMS          uint32
	TermAckMissedThreshold    uint32
	NeighborUpAckTimeoutMS    uint32
	NeighborUpMissedThreshold uint32
	NeighborUpdateIntervalMS  uint32
	NeighborDownAckTimeoutMS  uint32
	NeighborDownMissedThreshold uint32
}

// LinkMetrics mirrors the default link-characteristic values a peer
// reports about itself (distinct from a neighbor's per-link metrics).
type LinkMetrics struct {
	RLQTx, RLQRx       uint8
	Resources          uint8
	Latency            uint64
	CDRTx, CDRRx       uint64
	MDRTx, MDRRx       uint64
	EFT                uint64
	MTU                uint16
}

// PendingAddressUpdate tracks an address change queued for emission in
// the next outbound peer-update message; Op resets to AddressOpNone once
// emitted (spec.md §3 invariant).
type PendingAddressUpdate struct {
	Op   AddressOp
	IPv4 netip.Addr
	IPv6 netip.Addr
}

// PeerContext is the radio's single session with its router, per
// spec.md §3. Fields are mutated only on the dispatch goroutine
// (spec.md §5); there is no internal locking.
type PeerContext struct {
	Handle PeerHandle

	RouterID uint32
	ClientID uint32

	LocalUDPPort  uint16
	LocalTCPPort  uint16
	RouterUDPPort uint16
	RouterTCPPort uint16
	LocalIPv4     netip.Addr
	LocalIPv6     netip.Addr
	RouterIPv4    netip.Addr
	RouterIPv6    netip.Addr
	SessionAddr   netip.AddrPort // TCP session peer address once accepted

	Config PeerConfigRef

	StatusCode StatusCode
	PeerType   string

	Timers TimerConfig

	PendingIPv4 PendingAddressUpdate
	PendingIPv6 PendingAddressUpdate

	Metrics LinkMetrics

	MissedOfferAcks     uint32
	MissedHeartbeatAcks uint32
	MissedTermAcks      uint32

	TCPReady bool

	// TestSessionInitMode, when true, makes the peer FSM's init handler
	// immediately acknowledge and revert to DISCOVERY instead of
	// advancing to IN_SESSION ("init=1" testing mode, spec.md §4.3).
	TestSessionInitMode bool

	State PeerState

	Neighbors *NeighborStore

	OfferTimer   TimerCell
	Heartbeat    TimerCell
	TermAckTimer TimerCell

	Packet  PacketScratch
	Message MessageScratch

	History TransitionHistory
}

// PeerConfigRef is the subset of config a peer context needs at runtime;
// kept as a small struct rather than a pointer to the whole dlepconfig
// tree so dlep stays free of a dependency on internal/dlepconfig.
type PeerConfigRef struct {
	LocalPeerType string
}

// NewPeerContext constructs a fresh peer in state DISCOVERY with an
// empty neighbor store.
func NewPeerContext(handle PeerHandle, timers TimerConfig, localType string) *PeerContext {
	return &PeerContext{
		Handle:    handle,
		Timers:    timers,
		PeerType:  localType,
		State:     PeerStateDiscovery,
		Neighbors: NewNeighborStore(),
	}
}
