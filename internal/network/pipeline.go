// Package network moves packets between VR clients and robots.
//
// Every ingress (UDP, WebSocket, capture replay) hands raw packets to a
// Pipeline, which translates them and passes the result to a PacketSink.
// Packets that fail translation are counted and dropped; the ingress keeps
// running.
package network

import (
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/teleop.bridge/internal/monitoring"
	"github.com/banshee-data/teleop.bridge/internal/timeutil"
	"github.com/banshee-data/teleop.bridge/internal/translate"
)

// PacketSink delivers a translated packet to the robot.
type PacketSink interface {
	Send(packet []byte) error
}

// SinkFunc adapts a function to PacketSink.
type SinkFunc func(packet []byte) error

// Send calls f(packet).
func (f SinkFunc) Send(packet []byte) error { return f(packet) }

// PacketStats receives per-packet counters. *monitor.BridgeStats
// implements it.
type PacketStats interface {
	AddPacket(bytes int)
	AddTranslated(d time.Duration)
	AddRejected(kind translate.Kind)
	AddDropped()
	LogStats()
}

// noopStats is the default when no stats collector is supplied.
type noopStats struct{}

func (noopStats) AddPacket(int)               {}
func (noopStats) AddTranslated(time.Duration) {}
func (noopStats) AddRejected(translate.Kind)  {}
func (noopStats) AddDropped()                 {}
func (noopStats) LogStats()                   {}

// PipelineConfig contains the collaborators of a Pipeline. Translator and
// Sink are required.
type PipelineConfig struct {
	Translator translate.Translator
	Sink       PacketSink
	Stats      PacketStats
	Log        monitoring.Sink
	// Clock times translation; nil uses the real clock.
	Clock timeutil.Clock
}

// Pipeline translates packets and delivers them to a sink. It holds no
// per-packet state and is safe for concurrent use when its sink is.
type Pipeline struct {
	translator translate.Translator
	sink       PacketSink
	stats      PacketStats
	log        monitoring.Sink
	clock      timeutil.Clock
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Translator == nil {
		return nil, errors.New("pipeline requires a translator")
	}
	if cfg.Sink == nil {
		return nil, errors.New("pipeline requires a sink")
	}
	if cfg.Stats == nil {
		cfg.Stats = noopStats{}
	}
	if cfg.Log == nil {
		cfg.Log = monitoring.Discard()
	}
	return &Pipeline{
		translator: cfg.Translator,
		sink:       cfg.Sink,
		stats:      cfg.Stats,
		log:        cfg.Log,
		clock:      timeutil.Or(cfg.Clock),
	}, nil
}

// Stats returns the pipeline's stats collector.
func (p *Pipeline) Stats() PacketStats { return p.stats }

// Translator returns the pipeline's translator.
func (p *Pipeline) Translator() translate.Translator { return p.translator }

// HandlePacket translates packet and sends the result. A translation error is
// returned after being counted; the translator has already logged it. A sink
// error is counted as a drop and returned wrapped.
func (p *Pipeline) HandlePacket(packet []byte) error {
	p.stats.AddPacket(len(packet))

	start := p.clock.Now()
	out, err := p.translator.Translate(packet)
	if err != nil {
		p.stats.AddRejected(translate.KindOf(err))
		return err
	}
	p.stats.AddTranslated(p.clock.Since(start))

	if err := p.sink.Send(out); err != nil {
		p.stats.AddDropped()
		p.log.Tracef("robot sink rejected packet: %v", err)
		return fmt.Errorf("send to robot: %w", err)
	}
	return nil
}
