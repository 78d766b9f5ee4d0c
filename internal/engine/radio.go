// Package engine wires the internal/dlep protocol package to real
// sockets and timers: it owns the single dispatch-loop goroutine that
// performs all protocol logic (spec.md §5), executing the actions the
// peer and neighbor FSMs return against the context store, the hashed
// timing wheel, and the UDP/TCP transports.
package engine

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/dantte-lp/godlep/internal/dlep"
	"github.com/dantte-lp/godlep/internal/dlepmetrics"
	"github.com/dantte-lp/godlep/internal/netio"
)

// Settings carries the runtime-configurable knobs a Radio needs; it is
// a deliberately narrow view of dlepconfig.Config so this package does
// not import the config package directly.
type Settings struct {
	LocalUDPAddr  netip.AddrPort
	LocalTCPAddr  netip.AddrPort
	RouterUDPAddr netip.AddrPort
	Interface     string

	LocalPeerType string
	Timers        dlep.TimerConfig
}

// Radio is the dispatch-loop owner: the single active peer session
// (spec.md §9's single-peer decision), its neighbor store, the timing
// wheel, and the transports. All fields below are touched only from
// Run's goroutine.
type Radio struct {
	settings Settings
	logger   *slog.Logger
	metrics  *dlepmetrics.Collector

	store *dlep.PeerStore
	wheel *dlep.Wheel

	udp      *netio.UDPConn
	listener *netio.TCPListener
	session  *netio.TCPSession
	tcpBuf   []byte // reassembly buffer for the active TCP session

	reader    *netio.Reader
	accepted  chan *netio.TCPSession
	commands  chan commandRequest

	active dlep.PeerHandle
	hasActive bool
}

// New constructs a Radio; sockets are not bound until Run is called.
func New(settings Settings, logger *slog.Logger, metrics *dlepmetrics.Collector) *Radio {
	return &Radio{
		settings: settings,
		logger:   logger,
		metrics:  metrics,
		store:    dlep.NewPeerStore(),
		wheel:    dlep.NewWheel(),
		reader:   netio.NewReader(64),
		accepted: make(chan *netio.TCPSession, 1),
		commands: make(chan commandRequest),
	}
}

// Run binds the UDP and TCP sockets, spawns the I/O reader goroutines,
// and runs the dispatch loop until ctx is cancelled. It returns nil on
// clean shutdown.
func (r *Radio) Run(ctx context.Context) error {
	udp, err := netio.ListenUDP(r.settings.LocalUDPAddr, r.settings.Interface)
	if err != nil {
		return fmt.Errorf("bind udp: %w", err)
	}
	r.udp = udp
	defer udp.Close()

	ln, err := netio.ListenTCP(r.settings.LocalTCPAddr)
	if err != nil {
		return fmt.Errorf("bind tcp: %w", err)
	}
	r.listener = ln
	defer ln.Close()

	go r.reader.RunUDP(ctx, r.udp)
	go r.reader.RunTCPAccept(ctx, r.listener, r.accepted)

	ticker := time.NewTicker(dlep.WheelResolutionMS * time.Millisecond)
	defer ticker.Stop()

	r.logger.Info("radio dispatch loop started",
		slog.String("udp", r.udp.LocalAddr().String()),
		slog.String("tcp", r.listener.LocalAddr().String()))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("radio dispatch loop stopping")
			return nil

		case <-ticker.C:
			r.wheel.Tick()
			if r.metrics != nil {
				r.metrics.SetTimerWheelSlot(r.wheel.CurrentSlot())
			}

		case sess := <-r.accepted:
			r.onAccept(ctx, sess)

		case f := <-r.reader.Frames():
			r.onFrame(f)

		case err := <-r.reader.Errors():
			r.logger.Warn("transport read error", slog.Any("error", err))

		case req := <-r.commands:
			resp, err := r.execute(req.cmd)
			req.reply <- commandResult{text: resp, err: err}
		}
	}
}

// Addrs returns the Radio's actual bound UDP and TCP local addresses.
// Only meaningful after Run has bound its sockets; intended for tests
// and startup logging that need the resolved port when Settings uses
// an ephemeral (":0") port.
func (r *Radio) Addrs() (udp, tcp netip.AddrPort) {
	return r.udp.LocalAddr(), r.listener.LocalAddr()
}

func (r *Radio) onAccept(ctx context.Context, sess *netio.TCPSession) {
	if r.session != nil {
		r.logger.Warn("rejecting second session while one is active")
		sess.Close()
		return
	}
	r.session = sess
	r.tcpBuf = nil
	if peer, ok := r.activePeer(); ok {
		peer.SessionAddr = sess.RemoteAddr()
		peer.TCPReady = true
	}
	go r.reader.RunTCPSession(ctx, sess)
}

// onFrame handles one raw read from either transport. UDP datagrams
// already align with a single block or signal, so they are decoded
// directly. TCP reads carry no such guarantee (internal/netio.Reader's
// RunTCPSession forwards whatever a read returned, which may split or
// coalesce message blocks), so TCP data is appended to a per-session
// reassembly buffer and drained one complete block at a time.
func (r *Radio) onFrame(f netio.Frame) {
	if f.Transport == netio.TransportTCP && f.Data == nil {
		// Session closed (spec.md §4.6: zero-length read clears TCP
		// readiness).
		if peer, ok := r.activePeer(); ok {
			peer.TCPReady = false
		}
		if r.session != nil {
			r.session.Close()
			r.session = nil
		}
		r.tcpBuf = nil
		return
	}

	if f.Transport == netio.TransportTCP {
		r.tcpBuf = append(r.tcpBuf, f.Data...)
		r.drainTCPBuf()
		return
	}

	r.processBlock(f.Data)
}

// drainTCPBuf extracts and processes as many complete message blocks (or
// one scenario-injection frame) as r.tcpBuf currently holds, leaving any
// trailing partial block buffered for the next read.
func (r *Radio) drainTCPBuf() {
	for {
		if len(r.tcpBuf) >= 2 && binary.BigEndian.Uint16(r.tcpBuf[:2]) == dlep.ScenarioInjectionSentinel {
			i := bytes.IndexByte(r.tcpBuf, 0)
			if i < 0 {
				return // command line not fully arrived yet
			}
			r.handleScenarioInjection(r.tcpBuf[2:i])
			r.tcpBuf = r.tcpBuf[i+1:]
			continue
		}

		n, ok := dlep.MessageBlockLen(r.tcpBuf)
		if !ok || len(r.tcpBuf) < n {
			return // header or body not fully arrived yet
		}
		block := r.tcpBuf[:n]
		r.tcpBuf = r.tcpBuf[n:]
		r.processBlock(block)
	}
}

// processBlock decodes one complete message/signal block (already
// delimited by the caller) and dispatches it.
func (r *Radio) processBlock(data []byte) {
	if len(data) >= 2 && binary.BigEndian.Uint16(data[:2]) == dlep.ScenarioInjectionSentinel {
		r.handleScenarioInjection(data[2:])
		return
	}

	msg, err := dlep.DecodePacket(data)
	if err != nil {
		r.logger.Debug("malformed frame discarded", slog.Any("error", err))
		return
	}
	if r.metrics != nil {
		r.metrics.IncMessagesReceived(msg.Code.String())
	}
	r.deliver(msg)
}

// deliver routes a decoded message to the peer or neighbor FSM per
// spec.md §4.1's dispatcher, then executes the returned actions.
func (r *Radio) deliver(msg *dlep.DecodedMessage) {
	peer, ok := r.activePeer()
	if !ok {
		r.logger.Debug("message received with no active peer", slog.String("code", msg.Code.String()))
		return
	}
	peer.Message = msg.Scratch

	if dlep.IsNeighborScoped(msg.Code) {
		r.deliverToNeighbor(peer, msg)
		return
	}

	event, ok := dlep.PeerEventForMessage(msg.Code)
	if !ok {
		return
	}
	r.applyPeerEvent(peer, event)
}

func (r *Radio) deliverToNeighbor(peer *dlep.PeerContext, msg *dlep.DecodedMessage) {
	if !msg.Scratch.MACPresent {
		return
	}
	n, ok := peer.Neighbors.LookupByMAC(msg.Scratch.MAC)
	if !ok {
		return
	}
	event, ok := dlep.NeighborEventForMessage(msg.Code)
	if !ok {
		return
	}
	r.applyNeighborEvent(peer, n, event)
}

func (r *Radio) activePeer() (*dlep.PeerContext, bool) {
	if !r.hasActive {
		return nil, false
	}
	return r.store.Lookup(r.active)
}

func (r *Radio) sendUDP(data []byte, dst netip.AddrPort) {
	if err := r.udp.WriteTo(data, dst); err != nil {
		r.logger.Warn("udp send failed", slog.Any("error", err))
	}
}

func (r *Radio) sendTCP(data []byte) {
	if r.session == nil {
		r.logger.Warn("tcp send dropped: no active session")
		return
	}
	if err := r.session.Write(data); err != nil {
		r.logger.Warn("tcp send failed", slog.Any("error", err))
	}
}

func (r *Radio) countSent(code dlep.MessageCode) {
	if r.metrics != nil {
		r.metrics.IncMessagesSent(code.String())
	}
}
