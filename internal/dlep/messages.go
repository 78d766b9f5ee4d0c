package dlep

// This file implements one builder per outbound message kind (spec.md
// §4.2, component C5). Each builder opens a message (or signal) block,
// emits the required TLVs in the documented order, emits conditional
// address TLVs only when a pending operation is queued (clearing it to
// AddressOpNone afterward), and returns the finished bytes. Side effects
// on the peer/neighbor context (timer arming, counters) are applied by
// the callers in internal/engine (actions.go, cli.go), matching
// spec.md §4.2's side-effect table — builders themselves only encode.

// BuildAttachedDiscovery builds the UDP-carried attached-discovery
// signal the radio emits to find its router (spec.md §8 scenario 1).
func BuildAttachedDiscovery(peer *PeerContext) []byte {
	e := NewEncoder(MessageAttachedPeerDiscovery, true)
	e.PeerType(peer.PeerType)
	return e.Bytes()
}

// BuildPeerOffer builds the UDP-carried peer-offer signal, naming the
// connection point the initiating side should use for the TCP session.
func BuildPeerOffer(peer *PeerContext) []byte {
	e := NewEncoder(MessagePeerOffer, true)
	e.PeerType(peer.PeerType)
	if peer.LocalIPv4.IsValid() {
		e.IPv4ConnectionPoint(peer.LocalTCPPort, peer.LocalIPv4.As4())
	}
	return e.Bytes()
}

// BuildPeerInitRequest builds the TCP session-initiation request,
// carrying the radio's negotiated heartbeat interval, peer type, and
// default link metrics (spec.md §8 scenario 2).
func BuildPeerInitRequest(peer *PeerContext) []byte {
	e := NewEncoder(MessagePeerInitRequest, false)
	e.HeartbeatInterval(peer.Timers.HeartbeatIntervalMS)
	e.PeerType(peer.PeerType)
	emitPeerMetrics(e, peer)
	return e.Bytes()
}

// BuildPeerInitResponse builds the session-initiation acknowledgment,
// carrying a status code and the radio's own metrics.
func BuildPeerInitResponse(peer *PeerContext) []byte {
	e := NewEncoder(MessagePeerInitResponse, false)
	e.Status(peer.StatusCode)
	emitPeerMetrics(e, peer)
	return e.Bytes()
}

// BuildPeerUpdateResponse builds the radio's reply to a router-issued
// peer-update request, echoing the applied status.
func BuildPeerUpdateResponse(peer *PeerContext) []byte {
	e := NewEncoder(MessagePeerUpdateResponse, false)
	e.Status(peer.StatusCode)
	emitPendingPeerAddresses(e, peer)
	return e.Bytes()
}

// BuildPeerHeartbeat builds the periodic keepalive sent while IN_SESSION.
func BuildPeerHeartbeat(peer *PeerContext) []byte {
	e := NewEncoder(MessagePeerHeartbeat, false)
	return e.Bytes()
}

// BuildPeerTermRequest builds the session-termination request, sent both
// on operator-requested teardown and on heartbeat-miss teardown.
func BuildPeerTermRequest(peer *PeerContext) []byte {
	e := NewEncoder(MessagePeerTermRequest, false)
	e.Status(peer.StatusCode)
	return e.Bytes()
}

// BuildPeerTermResponse builds the acknowledgment to a received
// peer-termination request.
func BuildPeerTermResponse(peer *PeerContext) []byte {
	e := NewEncoder(MessagePeerTermResponse, false)
	e.Status(StatusSuccess)
	return e.Bytes()
}

func emitPeerMetrics(e *Encoder, peer *PeerContext) {
	m := peer.Metrics
	e.LinkRLQRx(m.RLQRx)
	e.LinkRLQTx(m.RLQTx)
	e.LinkResources(m.Resources)
	e.LinkLatency(m.Latency)
	e.LinkCDRRx(m.CDRRx)
	e.LinkCDRTx(m.CDRTx)
	e.LinkMDRRx(m.MDRRx)
	e.LinkMDRTx(m.MDRTx)
	e.MTU(m.MTU)
}

func emitPendingPeerAddresses(e *Encoder, peer *PeerContext) {
	if peer.PendingIPv4.Op != AddressOpNone {
		e.IPv4Address(peer.PendingIPv4.Op, peer.PendingIPv4.IPv4.As4())
		peer.PendingIPv4.Op = AddressOpNone
	}
	if peer.PendingIPv6.Op != AddressOpNone {
		e.IPv6Address(peer.PendingIPv6.Op, peer.PendingIPv6.IPv6.As16())
		peer.PendingIPv6.Op = AddressOpNone
	}
}

// BuildNeighborUpRequest builds the radio's announcement of a newly
// discovered neighbor, carrying its MAC, addresses, and initial link
// metrics (spec.md §8 scenario 4).
func BuildNeighborUpRequest(n *NeighborContext) []byte {
	e := NewEncoder(MessageNeighborUpRequest, false)
	e.MACAddress(n.MAC)
	if n.IPv4.IsValid() {
		e.IPv4Address(AddressOpAdd, n.IPv4.As4())
	}
	if n.IPv4Subnet.IsValid() {
		e.IPv4AttachedSubnet(AddressOpAdd, n.IPv4Subnet.As4(), n.IPv4PrefixLen)
	}
	emitNeighborMetrics(e, n)
	return e.Bytes()
}

// BuildNeighborUpResponse builds the router-side acknowledgment to a
// neighbor-up request. No engine path or CLI command calls it; `test
// neighbor up` sends a neighbor-up request (BuildNeighborUpRequest).
func BuildNeighborUpResponse(n *NeighborContext, status StatusCode) []byte {
	e := NewEncoder(MessageNeighborUpResponse, false)
	e.MACAddress(n.MAC)
	e.Status(status)
	return e.Bytes()
}

// BuildNeighborDownRequest builds the radio's announcement that a
// neighbor is no longer reachable.
func BuildNeighborDownRequest(n *NeighborContext) []byte {
	e := NewEncoder(MessageNeighborDownRequest, false)
	e.MACAddress(n.MAC)
	return e.Bytes()
}

// BuildNeighborDownResponse builds the acknowledgment to a received
// neighbor-down request.
func BuildNeighborDownResponse(n *NeighborContext) []byte {
	e := NewEncoder(MessageNeighborDownResponse, false)
	e.MACAddress(n.MAC)
	e.Status(StatusSuccess)
	return e.Bytes()
}

// BuildNeighborMetrics builds a periodic or address-change-triggered
// metrics report. Pending address operations are emitted and cleared,
// per spec.md §8 scenario 5 (two NEIGHBOR_METRICS messages, one per
// add/drop).
func BuildNeighborMetrics(n *NeighborContext) []byte {
	e := NewEncoder(MessageNeighborMetrics, false)
	e.MACAddress(n.MAC)
	emitNeighborMetrics(e, n)
	if n.PendingIPv4.Op != AddressOpNone {
		e.IPv4Address(n.PendingIPv4.Op, n.PendingIPv4.IPv4.As4())
		n.PendingIPv4.Op = AddressOpNone
	}
	if n.PendingIPv6.Op != AddressOpNone {
		e.IPv6Address(n.PendingIPv6.Op, n.PendingIPv6.IPv6.As16())
		n.PendingIPv6.Op = AddressOpNone
	}
	return e.Bytes()
}

func emitNeighborMetrics(e *Encoder, n *NeighborContext) {
	m := n.Metrics
	e.LinkRLQRx(m.RLQRx)
	e.LinkRLQTx(m.RLQTx)
	e.LinkResources(m.Resources)
	e.LinkLatency(m.Latency)
	e.LinkCDRRx(m.CDRRx)
	e.LinkCDRTx(m.CDRTx)
	e.LinkMDRRx(m.MDRRx)
	e.LinkMDRTx(m.MDRTx)
	e.MTU(m.MTU)
}

// BuildNeighborAddressResponse builds the radio's reply to a received
// neighbor-address request.
func BuildNeighborAddressResponse(n *NeighborContext, status StatusCode) []byte {
	e := NewEncoder(MessageNeighborAddrResponse, false)
	e.MACAddress(n.MAC)
	e.Status(status)
	return e.Bytes()
}

// BuildLinkCharResponse builds the radio's reply to a link-characteristic
// request, echoing the (possibly just-updated) CDR and latency plus the
// full metrics set (spec.md §8 scenario 6).
func BuildLinkCharResponse(n *NeighborContext) []byte {
	e := NewEncoder(MessageLinkCharResponse, false)
	e.MACAddress(n.MAC)
	emitNeighborMetrics(e, n)
	return e.Bytes()
}
