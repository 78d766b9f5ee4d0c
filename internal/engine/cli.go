package engine

import (
	"bytes"
	"context"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/dantte-lp/godlep/internal/dlep"
)

// Command is one parsed CLI invocation, per spec.md §6's grammar. It is
// constructed by Submit (or by handleScenarioInjection) and executed on
// the dispatch-loop goroutine, so every CLI action observes and mutates
// protocol state with the same single-threaded guarantee spec.md §5
// requires of network-triggered events.
type Command struct {
	Line string
}

type commandRequest struct {
	cmd   Command
	reply chan commandResult
}

type commandResult struct {
	text string
	err  error
}

// Submit hands a raw CLI line to the dispatch loop and blocks for its
// textual result. Safe to call from any goroutine other than the
// dispatch loop itself (e.g. the daemon's stdin reader); the
// scenario-injection frame handler runs on the dispatch loop and calls
// execute directly instead.
func (r *Radio) Submit(ctx context.Context, line string) (string, error) {
	reply := make(chan commandResult, 1)
	req := commandRequest{cmd: Command{Line: line}, reply: reply}
	select {
	case r.commands <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case res := <-reply:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// handleScenarioInjection implements spec.md §4.6/§6's scenario
// injection mechanism: a frame whose first 16 bits are
// dlep.ScenarioInjectionSentinel carries a null-terminated ASCII CLI
// command in the remainder. It is executed synchronously on the
// dispatch-loop goroutine, since onFrame already runs there.
func (r *Radio) handleScenarioInjection(rest []byte) {
	if i := bytes.IndexByte(rest, 0); i >= 0 {
		rest = rest[:i]
	}
	line := string(rest)
	text, err := r.execute(Command{Line: line})
	if err != nil {
		r.logger.Warn("scenario injection command failed", "command", line, "error", err)
		return
	}
	if text != "" {
		r.logger.Info("scenario injection result", "command", line, "result", text)
	}
}

// execute runs cmd against live state. It is called only from the
// dispatch loop (directly for scenario injection, via Submit's channel
// for everything else).
func (r *Radio) execute(cmd Command) (string, error) {
	fields := strings.Fields(cmd.Line)
	if len(fields) == 0 {
		return "", fmt.Errorf("empty command")
	}

	switch fields[0] {
	case "start":
		return r.cmdStart()
	case "stop":
		return r.cmdStop()
	case "show":
		return r.cmdShow(fields[1:])
	case "test":
		return r.cmdTest(fields[1:])
	default:
		return "", fmt.Errorf("unknown command %q", fields[0])
	}
}

func (r *Radio) cmdStart() (string, error) {
	if r.hasActive {
		return "", fmt.Errorf("a peer session is already active")
	}
	h := r.store.Create(r.settings.Timers, r.settings.LocalPeerType)
	r.active = h
	r.hasActive = true
	peer, _ := r.store.Lookup(h)
	r.applyPeerEvent(peer, dlep.EventStartInit)
	return "discovery started", nil
}

func (r *Radio) cmdStop() (string, error) {
	peer, ok := r.activePeer()
	if !ok {
		return "", fmt.Errorf("no active peer")
	}
	r.applyPeerEvent(peer, dlep.EventUserPeerTermRequest)
	return "termination requested", nil
}

func (r *Radio) cmdShow(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("show requires an object")
	}
	switch args[0] {
	case "system":
		if len(args) >= 2 && args[1] == "timer" {
			return fmt.Sprintf("current_slot=%d buckets=%d resolution_ms=%d", r.wheel.CurrentSlot(), dlep.WheelBuckets, dlep.WheelResolutionMS), nil
		}
	case "peer":
		return r.cmdShowPeer(args[1:])
	case "neighbor":
		return r.cmdShowNeighbor(args[1:])
	}
	return "", fmt.Errorf("unrecognized show target %q", strings.Join(args, " "))
}

func (r *Radio) cmdShowPeer(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("show peer requires a subcommand")
	}
	peer, ok := r.activePeer()
	switch args[0] {
	case "all":
		if !ok {
			return "no peer", nil
		}
		return fmt.Sprintf("state=%s router_id=%d client_id=%d status=%s tcp_ready=%v",
			peer.State, peer.RouterID, peer.ClientID, peer.StatusCode, peer.TCPReady), nil
	case "fsm_history":
		if !ok {
			return "no peer", nil
		}
		return formatHistory(peer.History.Entries()), nil
	case "fsm_table":
		return formatPeerTable(), nil
	}
	return "", fmt.Errorf("unrecognized show peer subcommand %q", args[0])
}

func (r *Radio) cmdShowNeighbor(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("show neighbor requires a subcommand")
	}
	peer, hasPeer := r.activePeer()

	switch args[0] {
	case "all":
		if !hasPeer {
			return "no peer", nil
		}
		var sb strings.Builder
		for _, n := range peer.Neighbors.All() {
			fmt.Fprintf(&sb, "mac=%x state=%s\n", n.MAC, n.State)
		}
		return sb.String(), nil
	case "fsm_table":
		return formatNeighborTable(), nil
	case "mac":
		if len(args) < 2 || !hasPeer {
			return "", fmt.Errorf("show neighbor mac requires a MAC")
		}
		mac, err := parseMAC(args[1])
		if err != nil {
			return "", err
		}
		n, ok := peer.Neighbors.LookupByMAC(mac)
		if !ok {
			return "", fmt.Errorf("no such neighbor")
		}
		return fmt.Sprintf("mac=%x state=%s rlq_tx=%d rlq_rx=%d resources=%d latency=%d cdr_tx=%d cdr_rx=%d mdr_tx=%d mdr_rx=%d mtu=%d",
			n.MAC, n.State, n.Metrics.RLQTx, n.Metrics.RLQRx, n.Metrics.Resources, n.Metrics.Latency,
			n.Metrics.CDRTx, n.Metrics.CDRRx, n.Metrics.MDRTx, n.Metrics.MDRRx, n.Metrics.MTU), nil
	case "fsm_history":
		if len(args) < 2 || !hasPeer {
			return "", fmt.Errorf("show neighbor fsm_history requires a MAC")
		}
		mac, err := parseMAC(args[1])
		if err != nil {
			return "", err
		}
		n, ok := peer.Neighbors.LookupByMAC(mac)
		if !ok {
			return "", fmt.Errorf("no such neighbor")
		}
		return formatHistory(n.History.Entries()), nil
	}
	return "", fmt.Errorf("unrecognized show neighbor subcommand %q", args[0])
}

func formatHistory(entries []dlep.TransitionEntry) string {
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s: %s -> %s (%s)\n", e.At.Format(time.RFC3339Nano), e.OldState, e.NewState, e.Event)
	}
	return sb.String()
}

func formatPeerTable() string {
	var sb strings.Builder
	for _, d := range dlep.PeerFSMDescriptors() {
		fmt.Fprintf(&sb, "%s + %s -> %s %v\n", d.State, d.Event, d.Next, d.Actions)
	}
	return sb.String()
}

func formatNeighborTable() string {
	var sb strings.Builder
	for _, d := range dlep.NeighborFSMDescriptors() {
		fmt.Fprintf(&sb, "%s + %s -> %s %v\n", d.State, d.Event, d.Next, d.Actions)
	}
	return sb.String()
}

func (r *Radio) cmdTest(args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("test requires an object")
	}
	switch args[0] {
	case "peer":
		return r.cmdTestPeer(args[1:])
	case "neighbor":
		return r.cmdTestNeighbor(args[1:])
	case "session_init":
		return r.cmdTestSessionInit(args[1:])
	}
	return "", fmt.Errorf("unrecognized test target %q", args[0])
}

func (r *Radio) cmdTestSessionInit(args []string) (string, error) {
	peer, ok := r.activePeer()
	if !ok {
		return "", fmt.Errorf("no active peer")
	}
	if len(args) != 1 {
		return "", fmt.Errorf("test session_init requires 0 or 1")
	}
	peer.TestSessionInitMode = args[0] == "1"
	return fmt.Sprintf("session_init=%v", peer.TestSessionInitMode), nil
}

func (r *Radio) cmdTestPeer(args []string) (string, error) {
	peer, ok := r.activePeer()
	if !ok {
		return "", fmt.Errorf("no active peer")
	}
	if len(args) == 0 {
		return "", fmt.Errorf("test peer requires a subcommand")
	}
	switch args[0] {
	case "terminate":
		r.applyPeerEvent(peer, dlep.EventUserPeerTermRequest)
		return "terminate requested", nil
	case "heartbeat":
		r.applyPeerEvent(peer, dlep.EventPeerHeartbeat)
		return "heartbeat cleared", nil
	case "offer":
		r.applyPeerEvent(peer, dlep.EventPeerOffer)
		return "offer sent", nil
	case "init_ack":
		r.applyPeerEvent(peer, dlep.EventPeerInitResponse)
		return "init ack sent", nil
	case "update_res":
		data := dlep.BuildPeerUpdateResponse(peer)
		r.sendTCP(data)
		r.countSent(dlep.MessagePeerUpdateResponse)
		return "update response sent", nil
	case "term_res":
		data := dlep.BuildPeerTermResponse(peer)
		r.sendTCP(data)
		r.countSent(dlep.MessagePeerTermResponse)
		return "term response sent", nil
	case "update":
		return r.cmdTestPeerUpdate(peer, args[1:])
	}
	return "", fmt.Errorf("unrecognized test peer subcommand %q", args[0])
}

func (r *Radio) cmdTestPeerUpdate(peer *dlep.PeerContext, args []string) (string, error) {
	vals, err := parseUints(args, 9, 10)
	if err != nil {
		return "", err
	}
	peer.Metrics = dlep.LinkMetrics{
		RLQTx: uint8(vals[0]), RLQRx: uint8(vals[1]), Resources: uint8(vals[2]),
		Latency: vals[3], CDRTx: vals[4], CDRRx: vals[5], MDRTx: vals[6], MDRRx: vals[7],
		MTU: uint16(vals[8]),
	}
	r.applyPeerEvent(peer, dlep.EventPeerUpdateRequest)
	return "peer metrics updated", nil
}

func (r *Radio) cmdTestNeighbor(args []string) (string, error) {
	peer, ok := r.activePeer()
	if !ok {
		return "", fmt.Errorf("no active peer")
	}
	if len(args) == 0 {
		return "", fmt.Errorf("test neighbor requires a subcommand")
	}
	switch args[0] {
	case "up":
		return r.cmdTestNeighborUp(peer, args[1:])
	case "down":
		return r.cmdTestNeighborDown(peer, args[1:])
	case "credit_up":
		return r.cmdTestNeighborCreditUp(peer, args[1:])
	case "metric_up":
		return r.cmdTestNeighborMetricUp(peer, args[1:])
	case "ipv4":
		return r.cmdTestNeighborIPv4(peer, args[1:])
	case "ipv6":
		return r.cmdTestNeighborIPv6(peer, args[1:])
	case "metrics":
		return r.cmdTestNeighborMetrics(peer, args[1:])
	case "update_msg":
		return r.cmdTestNeighborUpdateMsg(peer, args[1:])
	case "rlq", "resources", "latency", "cdr", "mdr", "mtu":
		return r.cmdTestNeighborSingleMetric(peer, args[0], args[1:])
	}
	return "", fmt.Errorf("unrecognized test neighbor subcommand %q", args[0])
}

func (r *Radio) cmdTestNeighborUp(peer *dlep.PeerContext, args []string) (string, error) {
	if len(args) != 2 {
		return "", fmt.Errorf("test neighbor up requires <MAC> <IPv4>")
	}
	mac, err := parseMAC(args[0])
	if err != nil {
		return "", err
	}
	addr, err := netip.ParseAddr(args[1])
	if err != nil {
		return "", fmt.Errorf("bad ipv4: %w", err)
	}
	h := peer.Neighbors.Create(peer.Handle, mac)
	n, _ := peer.Neighbors.Lookup(h)
	n.IPv4 = addr
	if r.metrics != nil {
		r.metrics.SetNeighborCount(peer.Neighbors.Count())
	}
	data := dlep.BuildNeighborUpRequest(n)
	r.sendTCP(data)
	r.countSent(dlep.MessageNeighborUpRequest)
	r.wheel.Start(&n.InitAckTimer, peer.Timers.NeighborUpAckTimeoutMS, 0, func() {
		r.applyNeighborEvent(peer, n, dlep.NeighborEventUpAckTmo)
	})
	return "neighbor up sent", nil
}

func (r *Radio) cmdTestNeighborDown(peer *dlep.PeerContext, args []string) (string, error) {
	n, err := r.lookupNeighborArg(peer, args, 0)
	if err != nil {
		return "", err
	}
	r.applyNeighborEvent(peer, n, dlep.NeighborEventTermUserReq)
	return "neighbor down sent", nil
}

// cmdTestNeighborCreditUp would exercise credit-window grant/request
// handling, but DLEP credit-window TLVs have no wire representation in
// this implementation's closed TLV registry (see DESIGN.md's "Credit
// windowing out of scope" entry), so there is nothing for this command
// to send. It validates its argument and reports that honestly rather
// than faking success.
func (r *Radio) cmdTestNeighborCreditUp(peer *dlep.PeerContext, args []string) (string, error) {
	if _, err := r.lookupNeighborArg(peer, args, 0); err != nil {
		return "", err
	}
	return "", fmt.Errorf("credit windowing not implemented: no credit-window TLV codes in the wire registry")
}

func (r *Radio) cmdTestNeighborMetricUp(peer *dlep.PeerContext, args []string) (string, error) {
	if len(args) < 7 {
		return "", fmt.Errorf("test neighbor metric_up requires <MAC> <IPv4> <rlq> <res> <lat> <cdr> <mdr> <mtu>")
	}
	n, err := r.lookupNeighborArg(peer, args, 0)
	if err != nil {
		return "", err
	}
	addr, err := netip.ParseAddr(args[1])
	if err != nil {
		return "", fmt.Errorf("bad ipv4: %w", err)
	}
	n.IPv4 = addr
	vals, err := parseUints(args[2:], 6, 6)
	if err != nil {
		return "", err
	}
	n.Metrics.RLQTx, n.Metrics.RLQRx = uint8(vals[0]), uint8(vals[0])
	n.Metrics.Resources = uint8(vals[1])
	n.Metrics.Latency = vals[2]
	n.Metrics.CDRTx, n.Metrics.CDRRx = vals[3], vals[3]
	n.Metrics.MDRTx, n.Metrics.MDRRx = vals[4], vals[4]
	n.Metrics.MTU = uint16(vals[5])
	r.applyNeighborEvent(peer, n, dlep.NeighborEventUpdateMetricsInterval)
	return "neighbor metrics updated", nil
}

func (r *Radio) cmdTestNeighborIPv4(peer *dlep.PeerContext, args []string) (string, error) {
	if len(args) != 3 {
		return "", fmt.Errorf("test neighbor ipv4 requires <MAC> add|drop <IPv4>")
	}
	n, err := r.lookupNeighborArg(peer, args, 0)
	if err != nil {
		return "", err
	}
	op, err := parseAddOrDrop(args[1])
	if err != nil {
		return "", err
	}
	addr, err := netip.ParseAddr(args[2])
	if err != nil {
		return "", fmt.Errorf("bad ipv4: %w", err)
	}
	n.PendingIPv4 = dlep.PendingAddressUpdate{Op: op, IPv4: addr}
	data := dlep.BuildNeighborMetrics(n)
	r.sendTCP(data)
	r.countSent(dlep.MessageNeighborMetrics)
	return "ipv4 address update sent", nil
}

func (r *Radio) cmdTestNeighborIPv6(peer *dlep.PeerContext, args []string) (string, error) {
	if len(args) != 5 {
		return "", fmt.Errorf("test neighbor ipv6 requires <MAC> add|drop <IPv6> <subnet-IPv6> <prefix-len>")
	}
	n, err := r.lookupNeighborArg(peer, args, 0)
	if err != nil {
		return "", err
	}
	op, err := parseAddOrDrop(args[1])
	if err != nil {
		return "", err
	}
	addr, err := netip.ParseAddr(args[2])
	if err != nil {
		return "", fmt.Errorf("bad ipv6: %w", err)
	}
	n.PendingIPv6 = dlep.PendingAddressUpdate{Op: op, IPv6: addr}
	data := dlep.BuildNeighborMetrics(n)
	r.sendTCP(data)
	r.countSent(dlep.MessageNeighborMetrics)
	return "ipv6 address update sent", nil
}

func (r *Radio) cmdTestNeighborMetrics(peer *dlep.PeerContext, args []string) (string, error) {
	if len(args) < 10 {
		return "", fmt.Errorf("test neighbor metrics requires <MAC> plus 9 values")
	}
	n, err := r.lookupNeighborArg(peer, args, 0)
	if err != nil {
		return "", err
	}
	vals, err := parseUints(args[1:], 9, 9)
	if err != nil {
		return "", err
	}
	n.Metrics = dlep.NeighborMetrics{
		RLQTx: uint8(vals[0]), RLQRx: uint8(vals[1]), Resources: uint8(vals[2]),
		Latency: vals[3], CDRTx: vals[4], CDRRx: vals[5], MDRTx: vals[6], MDRRx: vals[7],
		MTU: uint16(vals[8]),
	}
	data := dlep.BuildNeighborMetrics(n)
	r.sendTCP(data)
	r.countSent(dlep.MessageNeighborMetrics)
	return "neighbor metrics sent", nil
}

func (r *Radio) cmdTestNeighborUpdateMsg(peer *dlep.PeerContext, args []string) (string, error) {
	n, err := r.lookupNeighborArg(peer, args, 0)
	if err != nil {
		return "", err
	}
	r.applyNeighborEvent(peer, n, dlep.NeighborEventUpdateMetricsInterval)
	return "neighbor update message sent", nil
}

func (r *Radio) cmdTestNeighborSingleMetric(peer *dlep.PeerContext, field string, args []string) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("test neighbor %s requires <MAC> <value>...", field)
	}
	n, err := r.lookupNeighborArg(peer, args, 0)
	if err != nil {
		return "", err
	}
	switch field {
	case "rlq":
		if len(args) != 3 {
			return "", fmt.Errorf("test neighbor rlq requires <MAC> <rlq_tx> <rlq_rx>")
		}
		vals, err := parseUints(args[1:], 2, 2)
		if err != nil {
			return "", err
		}
		n.Metrics.RLQTx, n.Metrics.RLQRx = uint8(vals[0]), uint8(vals[1])
	case "resources":
		vals, err := parseUints(args[1:], 1, 1)
		if err != nil {
			return "", err
		}
		n.Metrics.Resources = uint8(vals[0])
	case "latency":
		vals, err := parseUints(args[1:], 1, 1)
		if err != nil {
			return "", err
		}
		n.Metrics.Latency = vals[0]
	case "cdr":
		vals, err := parseUints(args[1:], 2, 2)
		if err != nil {
			return "", err
		}
		n.Metrics.CDRTx, n.Metrics.CDRRx = vals[0], vals[1]
	case "mdr":
		vals, err := parseUints(args[1:], 2, 2)
		if err != nil {
			return "", err
		}
		n.Metrics.MDRTx, n.Metrics.MDRRx = vals[0], vals[1]
	case "mtu":
		vals, err := parseUints(args[1:], 1, 1)
		if err != nil {
			return "", err
		}
		n.Metrics.MTU = uint16(vals[0])
	}
	data := dlep.BuildNeighborMetrics(n)
	r.sendTCP(data)
	r.countSent(dlep.MessageNeighborMetrics)
	return fmt.Sprintf("%s updated", field), nil
}

func (r *Radio) lookupNeighborArg(peer *dlep.PeerContext, args []string, idx int) (*dlep.NeighborContext, error) {
	if idx >= len(args) {
		return nil, fmt.Errorf("missing MAC argument")
	}
	mac, err := parseMAC(args[idx])
	if err != nil {
		return nil, err
	}
	n, ok := peer.Neighbors.LookupByMAC(mac)
	if !ok {
		return nil, fmt.Errorf("no such neighbor %s", args[idx])
	}
	return n, nil
}

func parseMAC(s string) ([6]byte, error) {
	var mac [6]byte
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return mac, fmt.Errorf("bad MAC %q", s)
	}
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return mac, fmt.Errorf("bad MAC %q: %w", s, err)
		}
		mac[i] = byte(v)
	}
	return mac, nil
}

func parseAddOrDrop(s string) (dlep.AddressOp, error) {
	switch s {
	case "add":
		return dlep.AddressOpAdd, nil
	case "drop":
		return dlep.AddressOpDrop, nil
	default:
		return 0, fmt.Errorf("expected add or drop, got %q", s)
	}
}

func parseUints(args []string, min, max int) ([]uint64, error) {
	if len(args) < min || len(args) > max {
		return nil, fmt.Errorf("expected between %d and %d values, got %d", min, max, len(args))
	}
	out := make([]uint64, len(args))
	for i, a := range args {
		v, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", a, err)
		}
		out[i] = v
	}
	return out, nil
}
