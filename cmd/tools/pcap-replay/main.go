// Command pcap-replay feeds a capture of VR control traffic through the
// translation pipeline, optionally forwarding the translated packets to a
// robot, and prints a traffic summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/teleop.bridge/internal/monitor"
	"github.com/banshee-data/teleop.bridge/internal/monitoring"
	"github.com/banshee-data/teleop.bridge/internal/network"
	"github.com/banshee-data/teleop.bridge/internal/translate"
)

// Config holds configuration for one replay run.
type Config struct {
	PCAPFile  string
	RobotType string
	UDPPort   int
	Speed     float64
	Forward   string
	LogLevel  string
	LogFormat string
}

func main() {
	var cfg Config
	flag.StringVar(&cfg.PCAPFile, "pcap", "", "Path to the capture to replay (required)")
	flag.StringVar(&cfg.RobotType, "robot-type", "asgard", "Robot type to translate for")
	flag.IntVar(&cfg.UDPPort, "port", 9870, "UDP destination port of VR traffic in the capture (0 for any)")
	flag.Float64Var(&cfg.Speed, "speed", 0, "Replay speed relative to capture time (0 for as fast as possible)")
	flag.StringVar(&cfg.Forward, "forward", "", "Robot UDP address to forward translated packets to (empty to only count)")
	flag.StringVar(&cfg.LogLevel, "log-level", "info", "Log level: off, error, info or debug")
	flag.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
	flag.Parse()

	if cfg.PCAPFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, totals, err := run(ctx, cfg, network.NewFilePCAPReader(), os.Stderr)
	if err != nil {
		log.Fatalf("replay failed: %v", err)
	}
	printSummary(os.Stdout, cfg, summary, totals)
}

// run replays cfg.PCAPFile from reader and returns the replay summary and
// the accumulated bridge statistics.
func run(ctx context.Context, cfg Config, reader network.PCAPReader, logOut io.Writer) (network.ReplaySummary, monitor.StatsSnapshot, error) {
	level, err := monitoring.ParseLevel(cfg.LogLevel)
	if err != nil {
		return network.ReplaySummary{}, monitor.StatsSnapshot{}, err
	}
	sink, err := monitoring.NewSink(cfg.LogFormat, level, logOut, "pcap-replay")
	if err != nil {
		return network.ReplaySummary{}, monitor.StatsSnapshot{}, err
	}

	registry, err := translate.NewDefaultRegistry(sink)
	if err != nil {
		return network.ReplaySummary{}, monitor.StatsSnapshot{}, err
	}
	tr, err := registry.Lookup(translate.ParseRobotType(cfg.RobotType))
	if err != nil {
		return network.ReplaySummary{}, monitor.StatsSnapshot{}, err
	}

	stats := monitor.NewBridgeStats(monitor.BridgeStatsConfig{Log: sink})

	var out network.PacketSink = network.SinkFunc(func([]byte) error { return nil })
	if cfg.Forward != "" {
		fwd, err := network.NewPacketForwarder(network.PacketForwarderConfig{
			Address: cfg.Forward,
			Stats:   stats,
			Log:     sink,
		})
		if err != nil {
			return network.ReplaySummary{}, monitor.StatsSnapshot{}, err
		}
		defer fwd.Close()
		fwd.Start(ctx)
		out = fwd
	}

	pipeline, err := network.NewPipeline(network.PipelineConfig{
		Translator: tr,
		Sink:       out,
		Stats:      stats,
		Log:        sink,
	})
	if err != nil {
		return network.ReplaySummary{}, monitor.StatsSnapshot{}, err
	}

	summary, err := network.ReplayPCAP(ctx, reader, cfg.PCAPFile, pipeline, network.ReplayConfig{
		Port:            cfg.UDPPort,
		SpeedMultiplier: cfg.Speed,
		Log:             sink,
	})
	stats.LogStats()
	return summary, stats.Totals(), err
}

func printSummary(w io.Writer, cfg Config, summary network.ReplaySummary, totals monitor.StatsSnapshot) {
	fmt.Fprintf(w, "Replayed %s as %s in %v\n", cfg.PCAPFile, cfg.RobotType, summary.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  frames:          %s\n", monitor.FormatWithCommas(int64(summary.Frames)))
	fmt.Fprintf(w, "  VR datagrams:    %s\n", monitor.FormatWithCommas(int64(summary.Datagrams)))
	fmt.Fprintf(w, "  translated:      %s\n", monitor.FormatWithCommas(totals.Translated))
	fmt.Fprintf(w, "  invalid length:  %s\n", monitor.FormatWithCommas(totals.InvalidLength))
	fmt.Fprintf(w, "  unexpected type: %s\n", monitor.FormatWithCommas(totals.UnexpectedType))
	fmt.Fprintf(w, "  malformed:       %s\n", monitor.FormatWithCommas(totals.Malformed))
	if cfg.Forward != "" {
		fmt.Fprintf(w, "  forward drops:   %s\n", monitor.FormatWithCommas(totals.ForwardDropped))
	}
}
