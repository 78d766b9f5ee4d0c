// godlep daemon -- DLEP radio-side endpoint (RFC 8175).
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/dantte-lp/godlep/internal/dlep"
	"github.com/dantte-lp/godlep/internal/dlepconfig"
	"github.com/dantte-lp/godlep/internal/dlepmetrics"
	"github.com/dantte-lp/godlep/internal/engine"
	appversion "github.com/dantte-lp/godlep/internal/version"
)

// shutdownTimeout is the maximum time to wait for the metrics server to
// drain active connections during graceful shutdown.
const shutdownTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to configuration file (YAML)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.New(slog.NewTextHandler(os.Stderr, nil)).Error("failed to load configuration",
			slog.String("error", err.Error()),
		)
		return 1
	}

	logLevel := new(slog.LevelVar)
	logLevel.Set(dlepconfig.ParseLogLevel(cfg.Log.Level))
	logger := newLoggerWithLevel(cfg.Log, logLevel)

	logger.Info("godlep starting",
		slog.String("version", appversion.Version),
		slog.String("udp_addr", cfg.Radio.LocalUDPAddr),
		slog.String("tcp_addr", cfg.Radio.LocalTCPAddr),
		slog.String("metrics_addr", cfg.Metrics.Addr),
	)

	settings, err := toEngineSettings(cfg)
	if err != nil {
		logger.Error("invalid radio settings", slog.String("error", err.Error()))
		return 1
	}

	reg := prometheus.NewRegistry()
	collector := dlepmetrics.NewCollector(reg)

	radio := engine.New(settings, logger, collector)

	if err := runDaemon(radio, cfg, reg, logger, *configPath, logLevel); err != nil {
		logger.Error("godlep exited with error", slog.String("error", err.Error()))
		return 1
	}

	logger.Info("godlep stopped")
	return 0
}

// toEngineSettings converts the loaded configuration into the narrow
// engine.Settings view, parsing addresses and mapping timer fields onto
// dlep.TimerConfig (spec.md §3).
func toEngineSettings(cfg *dlepconfig.Config) (engine.Settings, error) {
	udpAddr, err := cfg.Radio.UDPAddr()
	if err != nil {
		return engine.Settings{}, fmt.Errorf("udp addr: %w", err)
	}
	tcpAddr, err := cfg.Radio.TCPAddr()
	if err != nil {
		return engine.Settings{}, fmt.Errorf("tcp addr: %w", err)
	}
	routerAddr, err := cfg.Radio.RouterAddr()
	if err != nil {
		return engine.Settings{}, fmt.Errorf("router addr: %w", err)
	}

	t := cfg.Timers
	return engine.Settings{
		LocalUDPAddr:  udpAddr,
		LocalTCPAddr:  tcpAddr,
		RouterUDPAddr: routerAddr,
		Interface:     cfg.Radio.Interface,
		LocalPeerType: cfg.Radio.LocalPeerType,
		Timers: dlep.TimerConfig{
			HeartbeatIntervalMS:         t.HeartbeatIntervalMS,
			HeartbeatMissedThreshold:    t.HeartbeatMissedThreshold,
			OfferIntervalMS:             t.OfferIntervalMS,
			TermAckTimeoutMS:            t.TermAckTimeoutMS,
			TermAckMissedThreshold:      t.TermAckMissedThreshold,
			NeighborUpAckTimeoutMS:      t.NeighborUpAckTimeoutMS,
			NeighborUpMissedThreshold:   t.NeighborUpMissedThreshold,
			NeighborUpdateIntervalMS:    t.NeighborUpdateIntervalMS,
			NeighborDownAckTimeoutMS:    t.NeighborDownAckTimeoutMS,
			NeighborDownMissedThreshold: t.NeighborDownMissedThreshold,
		},
	}, nil
}

// runDaemon sets up and runs the radio dispatch loop and metrics HTTP
// server using an errgroup with signal-aware context for graceful
// shutdown.
func runDaemon(
	radio *engine.Radio,
	cfg *dlepconfig.Config,
	reg *prometheus.Registry,
	logger *slog.Logger,
	configPath string,
	logLevel *slog.LevelVar,
) error {
	metricsSrv := newMetricsServer(cfg.Metrics, reg)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("metrics server listening",
			slog.String("addr", cfg.Metrics.Addr),
			slog.String("path", cfg.Metrics.Path),
		)
		return listenAndServe(gCtx, metricsSrv, cfg.Metrics.Addr)
	})

	g.Go(func() error {
		return radio.Run(gCtx)
	})

	g.Go(func() error {
		runStdinCLI(gCtx, radio, logger)
		return nil
	})

	g.Go(func() error {
		return runWatchdog(gCtx, logger)
	})

	sigHUP := make(chan os.Signal, 1)
	signal.Notify(sigHUP, syscall.SIGHUP)
	g.Go(func() error {
		defer signal.Stop(sigHUP)
		handleSIGHUP(gCtx, sigHUP, configPath, logLevel, logger)
		return nil
	})

	notifyReady(logger)

	g.Go(func() error {
		<-gCtx.Done()
		return gracefulShutdown(gCtx, logger, metricsSrv)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run daemon: %w", err)
	}
	return nil
}

// -------------------------------------------------------------------------
// Operator CLI -- stdin, per spec.md §6's external CLI surface
// -------------------------------------------------------------------------

// runStdinCLI reads newline-terminated commands from stdin and submits
// each to the dispatch loop via Radio.Submit, printing the textual
// result. This is the "external CLI" spec.md §6 specifies as a boundary
// collaborator; scenario-injection frames over UDP/TCP reach the same
// Radio.execute dispatcher without a reply path.
func runStdinCLI(ctx context.Context, radio *engine.Radio, logger *slog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		text, err := radio.Submit(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fmt.Fprintln(os.Stderr, "error:", err)
			continue
		}
		if text != "" {
			fmt.Println(text)
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("stdin scan error", slog.String("error", err.Error()))
	}
}

// -------------------------------------------------------------------------
// Systemd Integration -- sd_notify + watchdog
// -------------------------------------------------------------------------

func notifyReady(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		logger.Warn("failed to notify systemd readiness", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: READY")
	}
}

func notifyStopping(logger *slog.Logger) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil {
		logger.Warn("failed to notify systemd stopping", slog.String("error", err.Error()))
		return
	}
	if sent {
		logger.Info("notified systemd: STOPPING")
	}
}

// runWatchdog sends periodic watchdog keepalives to systemd at half the
// configured watchdog interval. If no watchdog is configured the
// goroutine exits immediately.
func runWatchdog(ctx context.Context, logger *slog.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("failed to check systemd watchdog", slog.String("error", err.Error()))
		return nil
	}
	if interval == 0 {
		logger.Debug("systemd watchdog not configured, skipping keepalive")
		return nil
	}

	tickInterval := interval / 2
	logger.Info("systemd watchdog enabled",
		slog.Duration("watchdog_sec", interval),
		slog.Duration("keepalive_interval", tickInterval),
	)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, wdErr := daemon.SdNotify(false, daemon.SdNotifyWatchdog); wdErr != nil {
				logger.Warn("failed to send watchdog keepalive", slog.String("error", wdErr.Error()))
			}
		}
	}
}

// -------------------------------------------------------------------------
// SIGHUP Reload -- log level only
// -------------------------------------------------------------------------

// handleSIGHUP reloads the dynamic log level on SIGHUP. Radio transport
// and timer settings are bound at Run time and are not live-reloadable;
// only the log level, guarded by the shared LevelVar, changes without a
// restart.
func handleSIGHUP(
	ctx context.Context,
	sigHUP <-chan os.Signal,
	configPath string,
	logLevel *slog.LevelVar,
	logger *slog.Logger,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigHUP:
			logger.Info("received SIGHUP, reloading log level")
			reloadLogLevel(configPath, logLevel, logger)
		}
	}
}

func reloadLogLevel(configPath string, logLevel *slog.LevelVar, logger *slog.Logger) {
	newCfg, err := loadConfig(configPath)
	if err != nil {
		logger.Error("failed to reload configuration, keeping current settings",
			slog.String("error", err.Error()),
		)
		return
	}

	oldLevel := logLevel.Level()
	newLevel := dlepconfig.ParseLogLevel(newCfg.Log.Level)
	logLevel.Set(newLevel)

	logger.Info("configuration reloaded",
		slog.String("old_log_level", oldLevel.String()),
		slog.String("new_log_level", newLevel.String()),
	)
}

// -------------------------------------------------------------------------
// Graceful Shutdown
// -------------------------------------------------------------------------

func gracefulShutdown(ctx context.Context, logger *slog.Logger, metricsSrv *http.Server) error {
	logger.Info("initiating graceful shutdown")
	notifyStopping(logger)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown metrics server: %w", err)
	}
	return nil
}

// -------------------------------------------------------------------------
// Server Setup
// -------------------------------------------------------------------------

func listenAndServe(ctx context.Context, srv *http.Server, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve on %s: %w", addr, err)
	}
	return nil
}

func newMetricsServer(cfg dlepconfig.MetricsConfig, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// loadConfig loads configuration from a file path or returns defaults.
func loadConfig(path string) (*dlepconfig.Config, error) {
	if path != "" {
		cfg, err := dlepconfig.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	return dlepconfig.DefaultConfig(), nil
}

// newLoggerWithLevel creates a structured logger using a shared LevelVar
// for dynamic log level changes via SIGHUP reload.
func newLoggerWithLevel(cfg dlepconfig.LogConfig, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
