// Package dlepconfig manages the godlep daemon's configuration using
// koanf/v2.
//
// Supports YAML files, environment variables, and the DefaultConfig
// baseline; layering order is defaults, then file, then environment.
package dlepconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// -------------------------------------------------------------------------
// Configuration Structures
// -------------------------------------------------------------------------

// Config holds the complete godlep radio configuration.
type Config struct {
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Radio   RadioConfig   `koanf:"radio"`
	Timers  TimersConfig  `koanf:"timers"`
}

// MetricsConfig holds the Prometheus metrics endpoint configuration.
type MetricsConfig struct {
	// Addr is the HTTP listen address for the metrics endpoint (e.g., ":9100").
	Addr string `koanf:"addr"`
	// Path is the URL path for the metrics endpoint (e.g., "/metrics").
	Path string `koanf:"path"`
}

// LogConfig holds the logging configuration.
type LogConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`
	// Format is the log output format: "json" or "text".
	Format string `koanf:"format"`
}

// RadioConfig holds the radio's transport endpoints and local identity,
// per spec.md §3 and §6.
type RadioConfig struct {
	// LocalUDPAddr is the UDP discovery socket's local bind address
	// (e.g., "0.0.0.0:854").
	LocalUDPAddr string `koanf:"local_udp_addr"`

	// LocalTCPAddr is the TCP session listener's local bind address.
	LocalTCPAddr string `koanf:"local_tcp_addr"`

	// RouterUDPAddr is the discovery/offer multicast or unicast
	// destination the radio sends UDP signals to.
	RouterUDPAddr string `koanf:"router_udp_addr"`

	// Interface binds the UDP socket to a specific device via
	// SO_BINDTODEVICE (optional; empty means unbound).
	Interface string `koanf:"interface"`

	// LocalPeerType is the free-text peer-type string this radio
	// advertises (spec.md §6, max 160 octets).
	LocalPeerType string `koanf:"local_peer_type"`
}

// UDPAddr parses LocalUDPAddr as a netip.AddrPort.
func (r RadioConfig) UDPAddr() (netip.AddrPort, error) {
	return parseAddrPort("radio.local_udp_addr", r.LocalUDPAddr)
}

// TCPAddr parses LocalTCPAddr as a netip.AddrPort.
func (r RadioConfig) TCPAddr() (netip.AddrPort, error) {
	return parseAddrPort("radio.local_tcp_addr", r.LocalTCPAddr)
}

// RouterAddr parses RouterUDPAddr as a netip.AddrPort.
func (r RadioConfig) RouterAddr() (netip.AddrPort, error) {
	return parseAddrPort("radio.router_udp_addr", r.RouterUDPAddr)
}

func parseAddrPort(field, s string) (netip.AddrPort, error) {
	if s == "" {
		return netip.AddrPort{}, fmt.Errorf("%s: %w", field, ErrEmptyAddr)
	}
	addr, err := netip.ParseAddrPort(s)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("%s %q: %w", field, s, err)
	}
	return addr, nil
}

// TimersConfig holds the guard-timer durations and missed-ack thresholds
// the peer FSM uses (spec.md §3), in milliseconds.
type TimersConfig struct {
	HeartbeatIntervalMS       uint32 `koanf:"heartbeat_interval_ms"`
	HeartbeatMissedThreshold  uint32 `koanf:"heartbeat_missed_threshold"`
	OfferIntervalMS           uint32 `koanf:"offer_interval_ms"`
	TermAckTimeoutMS          uint32 `koanf:"term_ack_timeout_ms"`
	TermAckMissedThreshold    uint32 `koanf:"term_ack_missed_threshold"`
	NeighborUpAckTimeoutMS    uint32 `koanf:"neighbor_up_ack_timeout_ms"`
	NeighborUpMissedThreshold uint32 `koanf:"neighbor_up_missed_threshold"`
	NeighborUpdateIntervalMS    uint32 `koanf:"neighbor_update_interval_ms"`
	NeighborDownAckTimeoutMS    uint32 `koanf:"neighbor_down_ack_timeout_ms"`
	NeighborDownMissedThreshold uint32 `koanf:"neighbor_down_missed_threshold"`
}

// -------------------------------------------------------------------------
// Defaults
// -------------------------------------------------------------------------

// DefaultConfig returns a Config populated with sensible defaults. The
// timer values follow the common DLEP reference defaults: a 1s discovery
// offer interval and a 5s session heartbeat.
func DefaultConfig() *Config {
	return &Config{
		Metrics: MetricsConfig{
			Addr: ":9100",
			Path: "/metrics",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Radio: RadioConfig{
			LocalUDPAddr:  "0.0.0.0:854",
			LocalTCPAddr:  "0.0.0.0:854",
			RouterUDPAddr: "224.0.0.117:854",
			LocalPeerType: "godlep radio",
		},
		Timers: TimersConfig{
			HeartbeatIntervalMS:        5000,
			HeartbeatMissedThreshold:   3,
			OfferIntervalMS:            1000,
			TermAckTimeoutMS:           5000,
			TermAckMissedThreshold:     3,
			NeighborUpAckTimeoutMS:     5000,
			NeighborUpMissedThreshold:  3,
			NeighborUpdateIntervalMS:   1000,
			NeighborDownAckTimeoutMS:   5000,
			NeighborDownMissedThreshold: 3,
		},
	}
}

// -------------------------------------------------------------------------
// Loader
// -------------------------------------------------------------------------

// envPrefix is the environment variable prefix for godlep configuration.
// Variables are named DLEP_<section>_<key>, e.g., DLEP_RADIO_LOCAL_UDP_ADDR.
const envPrefix = "DLEP_"

// Load reads configuration from a YAML file at path, overlays environment
// variable overrides (DLEP_ prefix), and merges on top of DefaultConfig().
// Missing fields inherit defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := DefaultConfig()
	if err := loadDefaults(k, defaults); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config from %s: %w", path, err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyMapper), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config from %s: %w", path, err)
	}

	return cfg, nil
}

// envKeyMapper transforms DLEP_RADIO_LOCAL_UDP_ADDR -> radio.local_udp_addr.
func envKeyMapper(s string) string {
	s = strings.TrimPrefix(s, envPrefix)
	s = strings.ToLower(s)
	parts := strings.SplitN(s, "_", 2)
	if len(parts) != 2 {
		return s
	}
	return parts[0] + "." + parts[1]
}

// loadDefaults marshals the default config into koanf as the base layer.
func loadDefaults(k *koanf.Koanf, defaults *Config) error {
	defaultMap := map[string]any{
		"metrics.addr":          defaults.Metrics.Addr,
		"metrics.path":          defaults.Metrics.Path,
		"log.level":             defaults.Log.Level,
		"log.format":            defaults.Log.Format,
		"radio.local_udp_addr":  defaults.Radio.LocalUDPAddr,
		"radio.local_tcp_addr":  defaults.Radio.LocalTCPAddr,
		"radio.router_udp_addr": defaults.Radio.RouterUDPAddr,
		"radio.interface":       defaults.Radio.Interface,
		"radio.local_peer_type": defaults.Radio.LocalPeerType,

		"timers.heartbeat_interval_ms":         defaults.Timers.HeartbeatIntervalMS,
		"timers.heartbeat_missed_threshold":    defaults.Timers.HeartbeatMissedThreshold,
		"timers.offer_interval_ms":             defaults.Timers.OfferIntervalMS,
		"timers.term_ack_timeout_ms":           defaults.Timers.TermAckTimeoutMS,
		"timers.term_ack_missed_threshold":     defaults.Timers.TermAckMissedThreshold,
		"timers.neighbor_up_ack_timeout_ms":    defaults.Timers.NeighborUpAckTimeoutMS,
		"timers.neighbor_up_missed_threshold":  defaults.Timers.NeighborUpMissedThreshold,
		"timers.neighbor_update_interval_ms":   defaults.Timers.NeighborUpdateIntervalMS,
		"timers.neighbor_down_ack_timeout_ms":  defaults.Timers.NeighborDownAckTimeoutMS,
		"timers.neighbor_down_missed_threshold": defaults.Timers.NeighborDownMissedThreshold,
	}

	for key, val := range defaultMap {
		if err := k.Set(key, val); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Validation
// -------------------------------------------------------------------------

// Validation errors.
var (
	// ErrEmptyAddr indicates a required address field is empty.
	ErrEmptyAddr = errors.New("address must not be empty")

	// ErrEmptyMetricsAddr indicates the metrics listen address is empty.
	ErrEmptyMetricsAddr = errors.New("metrics.addr must not be empty")

	// ErrPeerTypeTooLong indicates the configured peer type exceeds
	// spec.md §6's 160-octet TLV limit.
	ErrPeerTypeTooLong = errors.New("radio.local_peer_type exceeds 160 octets")

	// ErrInvalidTimer indicates a timer field is zero where spec.md §3
	// requires a positive duration.
	ErrInvalidTimer = errors.New("timer field must be > 0")

	// ErrInvalidMissedThreshold indicates a missed-ack threshold is zero.
	ErrInvalidMissedThreshold = errors.New("missed-ack threshold must be >= 1")
)

// Validate checks the configuration for logical errors.
func Validate(cfg *Config) error {
	if cfg.Metrics.Addr == "" {
		return ErrEmptyMetricsAddr
	}
	if len(cfg.Radio.LocalPeerType) > 160 {
		return ErrPeerTypeTooLong
	}
	if _, err := cfg.Radio.UDPAddr(); err != nil {
		return err
	}
	if _, err := cfg.Radio.TCPAddr(); err != nil {
		return err
	}
	if _, err := cfg.Radio.RouterAddr(); err != nil {
		return err
	}

	t := cfg.Timers
	for _, v := range []uint32{
		t.HeartbeatIntervalMS, t.OfferIntervalMS, t.TermAckTimeoutMS,
		t.NeighborUpAckTimeoutMS, t.NeighborUpdateIntervalMS, t.NeighborDownAckTimeoutMS,
	} {
		if v == 0 {
			return ErrInvalidTimer
		}
	}
	for _, v := range []uint32{
		t.HeartbeatMissedThreshold, t.TermAckMissedThreshold,
		t.NeighborUpMissedThreshold, t.NeighborDownMissedThreshold,
	} {
		if v < 1 {
			return ErrInvalidMissedThreshold
		}
	}

	return nil
}

// -------------------------------------------------------------------------
// Log Level Parsing
// -------------------------------------------------------------------------

// ParseLogLevel maps a configuration log level string to the corresponding
// slog.Level. Unknown values default to slog.LevelInfo.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
