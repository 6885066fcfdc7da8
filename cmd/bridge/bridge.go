// Command bridge receives VR teleoperation packets and forwards them to a
// robot in its native wire format.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/teleop.bridge/internal/config"
	"github.com/banshee-data/teleop.bridge/internal/db"
	"github.com/banshee-data/teleop.bridge/internal/monitor"
	"github.com/banshee-data/teleop.bridge/internal/monitoring"
	"github.com/banshee-data/teleop.bridge/internal/network"
	"github.com/banshee-data/teleop.bridge/internal/seriallink"
	"github.com/banshee-data/teleop.bridge/internal/timeutil"
	"github.com/banshee-data/teleop.bridge/internal/translate"
	"github.com/banshee-data/teleop.bridge/internal/version"
)

var (
	configPath     = flag.String("config", "", "Path to a bridge config JSON file (defaults apply when empty)")
	robotType      = flag.String("robot-type", "", "Robot type to translate for (asgard, spot)")
	listenAddr     = flag.String("listen", "", "UDP address for VR control packets")
	robotTransport = flag.String("robot-transport", "", "Robot link: udp or serial")
	robotAddr      = flag.String("robot-addr", "", "Robot UDP address (udp transport)")
	serialPort     = flag.String("serial-port", "", "Robot serial device (serial transport)")
	adminListen    = flag.String("admin-listen", "", "HTTP address for /debug admin routes and the WebSocket ingress")
	statsDB        = flag.String("stats-db", "", "SQLite file for session statistics")
	logFormat      = flag.String("log-format", "", "Log format: text or json")
	logLevel       = flag.String("log-level", "", "Log level: off, error, info or debug")
	showVersion    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	applyFlagOverrides(flag.CommandLine, cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	b, err := newBridge(cfg, os.Stderr, bridgeDeps{})
	if err != nil {
		log.Fatalf("failed to start bridge: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil {
		log.Fatalf("bridge stopped with error: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}

// loadConfig reads path, or returns an empty config (all defaults) when path
// is empty.
func loadConfig(path string) (*config.BridgeConfig, error) {
	if path == "" {
		return config.EmptyBridgeConfig(), nil
	}
	return config.LoadBridgeConfig(path)
}

// applyFlagOverrides copies every flag that was set on fs into cfg.
func applyFlagOverrides(fs *flag.FlagSet, cfg *config.BridgeConfig) {
	fs.Visit(func(f *flag.Flag) {
		v := f.Value.String()
		switch f.Name {
		case "robot-type":
			cfg.RobotType = &v
		case "listen":
			cfg.ListenAddress = &v
		case "robot-transport":
			cfg.RobotTransport = &v
		case "robot-addr":
			cfg.RobotAddress = &v
		case "serial-port":
			cfg.SerialPort = &v
		case "admin-listen":
			cfg.AdminListen = &v
		case "stats-db":
			cfg.StatsDB = &v
		case "log-format":
			cfg.LogFormat = &v
		case "log-level":
			cfg.LogLevel = &v
		}
	})
}

// bridgeDeps holds the collaborators tests replace.
type bridgeDeps struct {
	serialOpener seriallink.SerialPortOpener
	clock        timeutil.Clock
}

// bridge is one configured bridge process.
type bridge struct {
	cfg  *config.BridgeConfig
	log  monitoring.Sink
	rt   translate.RobotType
	tr   translate.Translator
	sink network.PacketSink

	forwarder *network.PacketForwarder
	serial    *seriallink.Link
	stats     *monitor.BridgeStats
	db        *db.DB
	sessionID uuid.UUID
	pipeline  *network.Pipeline
	listener  *network.UDPListener
	ws        *network.WebSocketIngress
	adminMux  *http.ServeMux
}

// newBridge builds every component from cfg. On error, anything already
// opened is closed.
func newBridge(cfg *config.BridgeConfig, logOut io.Writer, deps bridgeDeps) (_ *bridge, err error) {
	sink, err := monitoring.NewSink(cfg.GetLogFormat(), cfg.GetLogLevel(), logOut, "bridge")
	if err != nil {
		return nil, err
	}

	b := &bridge{cfg: cfg, log: sink}
	defer func() {
		if err != nil {
			b.close()
		}
	}()

	registry, err := translate.NewDefaultRegistry(sink)
	if err != nil {
		return nil, err
	}
	b.rt = translate.ParseRobotType(cfg.GetRobotType())
	if b.tr, err = registry.Lookup(b.rt); err != nil {
		return nil, err
	}
	sink.Diagf("%s starting: robot type %s using %s", version.String(), b.rt, b.tr.Name())

	if path := cfg.GetStatsDB(); path != "" {
		if b.db, err = db.NewDB(path); err != nil {
			return nil, fmt.Errorf("failed to open stats database: %w", err)
		}
		if b.sessionID, err = b.db.StartSession(string(b.rt), b.tr.Name()); err != nil {
			return nil, err
		}
		sink.Diagf("stats session %s recorded in %s", b.sessionID, path)
	}

	statsCfg := monitor.BridgeStatsConfig{Log: sink, Clock: deps.clock}
	if b.db != nil {
		statsCfg.Recorder = b.db.Recorder(b.sessionID)
	}
	b.stats = monitor.NewBridgeStats(statsCfg)

	switch cfg.GetRobotTransport() {
	case config.TransportSerial:
		b.serial, err = seriallink.Open(cfg.GetSerialPort(), cfg.GetSerialOptions(), deps.serialOpener)
		if err != nil {
			return nil, err
		}
		b.sink = b.serial
		sink.Diagf("robot link: serial %s (%s)", cfg.GetSerialPort(), cfg.GetSerialOptions())
	default:
		b.forwarder, err = network.NewPacketForwarder(network.PacketForwarderConfig{
			Address:     cfg.GetRobotAddress(),
			QueueSize:   cfg.GetForwardQueue(),
			LogInterval: cfg.GetLogInterval(),
			Stats:       b.stats,
			Log:         sink,
		})
		if err != nil {
			return nil, err
		}
		b.sink = b.forwarder
	}

	b.pipeline, err = network.NewPipeline(network.PipelineConfig{
		Translator: b.tr,
		Sink:       b.sink,
		Stats:      b.stats,
		Log:        sink,
		Clock:      deps.clock,
	})
	if err != nil {
		return nil, err
	}

	b.listener, err = network.NewUDPListener(network.UDPListenerConfig{
		Address:     cfg.GetListenAddress(),
		RcvBuf:      cfg.GetRcvBuf(),
		LogInterval: cfg.GetLogInterval(),
		Pipeline:    b.pipeline,
		Log:         sink,
		Clock:       deps.clock,
	})
	if err != nil {
		return nil, err
	}

	b.adminMux = http.NewServeMux()
	b.stats.AttachAdminRoutes(b.adminMux)
	if b.db != nil {
		if err := b.db.AttachAdminRoutes(b.adminMux); err != nil {
			return nil, err
		}
	}
	if b.serial != nil {
		b.serial.AttachAdminRoutes(b.adminMux)
	}

	if path := cfg.GetWebSocketPath(); path != "" {
		b.ws, err = network.NewWebSocketIngress(network.WebSocketIngressConfig{
			Pipeline:       b.pipeline,
			OriginPatterns: cfg.GetWebSocketOrigins(),
			Log:            sink,
		})
		if err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Run serves until ctx is cancelled, then shuts everything down and ends the
// stats session.
func (b *bridge) Run(ctx context.Context) error {
	defer b.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if b.forwarder != nil {
		b.forwarder.Start(ctx)
	}

	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		runErr  error
	)
	fail := func(err error) {
		errOnce.Do(func() { runErr = err })
		cancel()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := b.listener.Start(ctx); err != nil && ctx.Err() == nil {
			fail(fmt.Errorf("UDP listener: %w", err))
		}
		b.log.Diagf("UDP listener routine stopped")
	}()

	if addr := b.cfg.GetAdminListen(); addr != "" {
		if b.ws != nil {
			b.adminMux.Handle(b.cfg.GetWebSocketPath(), b.ws.WithContext(ctx))
		}
		server := &http.Server{Addr: addr, Handler: b.adminMux}

		wg.Add(1)
		go func() {
			defer wg.Done()
			b.log.Diagf("admin server listening on %s", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fail(fmt.Errorf("admin server: %w", err))
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				b.log.Opsf("HTTP server shutdown error: %v", err)
				_ = server.Close()
			}
			b.log.Diagf("HTTP server routine stopped")
		}()
	}

	wg.Wait()

	// Flush the final partial interval so the session record is complete.
	b.stats.LogStats()
	return runErr
}

// close releases every opened resource. It is safe to call on a partially
// built bridge.
func (b *bridge) close() {
	if b.forwarder != nil {
		if err := b.forwarder.Close(); err != nil {
			b.log.Opsf("failed to close forwarder: %v", err)
		}
		b.forwarder = nil
	}
	if b.serial != nil {
		if err := b.serial.Close(); err != nil {
			b.log.Opsf("failed to close serial link: %v", err)
		}
		b.serial = nil
	}
	if b.db != nil {
		if b.sessionID != uuid.Nil {
			if err := b.db.EndSession(b.sessionID); err != nil {
				b.log.Opsf("failed to end stats session: %v", err)
			}
		}
		if err := b.db.Close(); err != nil {
			b.log.Opsf("failed to close stats database: %v", err)
		}
		b.db = nil
	}
}
