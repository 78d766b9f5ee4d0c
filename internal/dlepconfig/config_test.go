package dlepconfig_test

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dantte-lp/godlep/internal/dlepconfig"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := dlepconfig.DefaultConfig()

	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9100")
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/metrics")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "json")
	}
	if cfg.Radio.LocalUDPAddr != "0.0.0.0:854" {
		t.Errorf("Radio.LocalUDPAddr = %q, want %q", cfg.Radio.LocalUDPAddr, "0.0.0.0:854")
	}
	if cfg.Timers.HeartbeatIntervalMS != 5000 {
		t.Errorf("Timers.HeartbeatIntervalMS = %d, want 5000", cfg.Timers.HeartbeatIntervalMS)
	}
	if cfg.Timers.HeartbeatMissedThreshold != 3 {
		t.Errorf("Timers.HeartbeatMissedThreshold = %d, want 3", cfg.Timers.HeartbeatMissedThreshold)
	}

	if err := dlepconfig.Validate(cfg); err != nil {
		t.Errorf("DefaultConfig() failed validation: %v", err)
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Parallel()

	yamlContent := `
metrics:
  addr: ":9200"
  path: "/custom-metrics"
log:
  level: "debug"
  format: "text"
radio:
  local_udp_addr: "0.0.0.0:9854"
  local_tcp_addr: "0.0.0.0:9855"
  router_udp_addr: "224.0.0.117:9854"
  local_peer_type: "test radio"
timers:
  heartbeat_interval_ms: 2000
  heartbeat_missed_threshold: 5
`

	path := writeTemp(t, yamlContent)

	cfg, err := dlepconfig.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Metrics.Addr != ":9200" {
		t.Errorf("Metrics.Addr = %q, want %q", cfg.Metrics.Addr, ":9200")
	}
	if cfg.Metrics.Path != "/custom-metrics" {
		t.Errorf("Metrics.Path = %q, want %q", cfg.Metrics.Path, "/custom-metrics")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Radio.LocalUDPAddr != "0.0.0.0:9854" {
		t.Errorf("Radio.LocalUDPAddr = %q, want %q", cfg.Radio.LocalUDPAddr, "0.0.0.0:9854")
	}
	if cfg.Radio.LocalPeerType != "test radio" {
		t.Errorf("Radio.LocalPeerType = %q, want %q", cfg.Radio.LocalPeerType, "test radio")
	}
	if cfg.Timers.HeartbeatIntervalMS != 2000 {
		t.Errorf("Timers.HeartbeatIntervalMS = %d, want 2000", cfg.Timers.HeartbeatIntervalMS)
	}
	if cfg.Timers.HeartbeatMissedThreshold != 5 {
		t.Errorf("Timers.HeartbeatMissedThreshold = %d, want 5", cfg.Timers.HeartbeatMissedThreshold)
	}
}

func TestLoadMergesDefaults(t *testing.T) {
	t.Parallel()

	yamlContent := `
log:
  level: "warn"
`

	path := writeTemp(t, yamlContent)

	cfg, err := dlepconfig.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Errorf("Metrics.Addr = %q, want default %q", cfg.Metrics.Addr, ":9100")
	}
	if cfg.Radio.LocalUDPAddr != "0.0.0.0:854" {
		t.Errorf("Radio.LocalUDPAddr = %q, want default %q", cfg.Radio.LocalUDPAddr, "0.0.0.0:854")
	}
	if cfg.Timers.HeartbeatIntervalMS != 5000 {
		t.Errorf("Timers.HeartbeatIntervalMS = %d, want default 5000", cfg.Timers.HeartbeatIntervalMS)
	}
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*dlepconfig.Config)
		wantErr error
	}{
		{
			name: "empty metrics addr",
			modify: func(cfg *dlepconfig.Config) {
				cfg.Metrics.Addr = ""
			},
			wantErr: dlepconfig.ErrEmptyMetricsAddr,
		},
		{
			name: "peer type too long",
			modify: func(cfg *dlepconfig.Config) {
				b := make([]byte, 161)
				for i := range b {
					b[i] = 'x'
				}
				cfg.Radio.LocalPeerType = string(b)
			},
			wantErr: dlepconfig.ErrPeerTypeTooLong,
		},
		{
			name: "zero heartbeat interval",
			modify: func(cfg *dlepconfig.Config) {
				cfg.Timers.HeartbeatIntervalMS = 0
			},
			wantErr: dlepconfig.ErrInvalidTimer,
		},
		{
			name: "zero heartbeat missed threshold",
			modify: func(cfg *dlepconfig.Config) {
				cfg.Timers.HeartbeatMissedThreshold = 0
			},
			wantErr: dlepconfig.ErrInvalidMissedThreshold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := dlepconfig.DefaultConfig()
			tt.modify(cfg)

			err := dlepconfig.Validate(cfg)
			if err == nil {
				t.Fatal("Validate() returned nil, want error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRadioAddrParsing(t *testing.T) {
	t.Parallel()

	cfg := dlepconfig.DefaultConfig()

	if _, err := cfg.Radio.UDPAddr(); err != nil {
		t.Errorf("UDPAddr() error: %v", err)
	}
	if _, err := cfg.Radio.TCPAddr(); err != nil {
		t.Errorf("TCPAddr() error: %v", err)
	}
	if _, err := cfg.Radio.RouterAddr(); err != nil {
		t.Errorf("RouterAddr() error: %v", err)
	}

	cfg.Radio.LocalUDPAddr = "not-an-addr"
	if _, err := cfg.Radio.UDPAddr(); err == nil {
		t.Error("UDPAddr() expected error for malformed address")
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  slog.Level
	}{
		{input: "debug", want: slog.LevelDebug},
		{input: "DEBUG", want: slog.LevelDebug},
		{input: "info", want: slog.LevelInfo},
		{input: "warn", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "unknown", want: slog.LevelInfo},
		{input: "", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got := dlepconfig.ParseLogLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoadNonexistentFile(t *testing.T) {
	t.Parallel()

	_, err := dlepconfig.Load("/nonexistent/path/config.yml")
	if err == nil {
		t.Fatal("Load() returned nil error for nonexistent file")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	yamlContent := `
log:
  level: "info"
`
	path := writeTemp(t, yamlContent)

	t.Setenv("DLEP_LOG_LEVEL", "debug")
	t.Setenv("DLEP_METRICS_ADDR", ":9200")

	cfg, err := dlepconfig.Load(path)
	if err != nil {
		t.Fatalf("Load(%q) error: %v", path, err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q (from env)", cfg.Log.Level, "debug")
	}
	if cfg.Metrics.Addr != ":9200" {
		t.Errorf("Metrics.Addr = %q, want %q (from env)", cfg.Metrics.Addr, ":9200")
	}
}

// writeTemp creates a temporary YAML file and returns its path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "godlep.yml")

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	return path
}
