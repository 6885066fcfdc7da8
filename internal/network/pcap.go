package network

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/banshee-data/teleop.bridge/internal/monitoring"
)

// PCAPPacket is a single captured frame.
type PCAPPacket struct {
	Data      []byte
	Timestamp time.Time
}

// PCAPReader reads captured frames. NextPacket returns io.EOF after the last
// frame.
type PCAPReader interface {
	Open(filename string) error
	NextPacket() (*PCAPPacket, error)
	LinkType() layers.LinkType
	Close()
}

// FilePCAPReader reads classic libpcap files with the pure-Go pcapgo
// decoder, so replay needs no cgo.
type FilePCAPReader struct {
	f *os.File
	r *pcapgo.Reader
}

// NewFilePCAPReader creates an unopened FilePCAPReader.
func NewFilePCAPReader() *FilePCAPReader { return &FilePCAPReader{} }

// Open opens filename and reads its file header.
func (p *FilePCAPReader) Open(filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open PCAP file %s: %w", filename, err)
	}
	r, err := pcapgo.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to read PCAP header from %s: %w", filename, err)
	}
	p.f, p.r = f, r
	return nil
}

// NextPacket returns the next frame.
func (p *FilePCAPReader) NextPacket() (*PCAPPacket, error) {
	if p.r == nil {
		return nil, errors.New("PCAP reader not open")
	}
	data, ci, err := p.r.ReadPacketData()
	if err != nil {
		return nil, err
	}
	return &PCAPPacket{Data: data, Timestamp: ci.Timestamp}, nil
}

// LinkType returns the capture's link type.
func (p *FilePCAPReader) LinkType() layers.LinkType {
	if p.r == nil {
		return layers.LinkTypeNull
	}
	return p.r.LinkType()
}

// Close closes the underlying file.
func (p *FilePCAPReader) Close() {
	if p.f != nil {
		p.f.Close()
		p.f, p.r = nil, nil
	}
}

// ReplayConfig configures ReplayPCAP.
type ReplayConfig struct {
	// Port selects UDP datagrams by destination port. Zero accepts any port.
	Port int
	// SpeedMultiplier paces replay against capture timestamps (1.0 is real
	// time, 2.0 twice as fast). Zero replays as fast as possible.
	SpeedMultiplier float64
	Log             monitoring.Sink
}

// ReplaySummary counts what a replay saw.
type ReplaySummary struct {
	Frames    int
	Datagrams int
	Handled   int
	Dropped   int
	Elapsed   time.Duration
}

// ReplayPCAP reads every frame from reader, extracts UDP payloads addressed
// to cfg.Port, and hands each to pipeline exactly as the UDP listener would.
// It returns when the capture ends or ctx is cancelled.
func ReplayPCAP(ctx context.Context, reader PCAPReader, filename string, pipeline *Pipeline, cfg ReplayConfig) (ReplaySummary, error) {
	var summary ReplaySummary
	if pipeline == nil {
		return summary, errors.New("replay requires a pipeline")
	}
	if cfg.Log == nil {
		cfg.Log = monitoring.Discard()
	}
	if err := reader.Open(filename); err != nil {
		return summary, err
	}
	defer reader.Close()

	linkType := reader.LinkType()
	cfg.Log.Diagf("PCAP replay of %s: link type %v, udp dst port %d, speed %.1fx",
		filename, linkType, cfg.Port, cfg.SpeedMultiplier)

	start := time.Now()
	var lastCapture time.Time
	for {
		if err := ctx.Err(); err != nil {
			summary.Elapsed = time.Since(start)
			cfg.Log.Diagf("PCAP replay stopping due to context cancellation (processed %d frames)", summary.Frames)
			return summary, err
		}

		pkt, err := reader.NextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			summary.Elapsed = time.Since(start)
			return summary, fmt.Errorf("failed to read PCAP frame %d: %w", summary.Frames+1, err)
		}
		summary.Frames++

		if cfg.SpeedMultiplier > 0 {
			if !lastCapture.IsZero() {
				delay := time.Duration(float64(pkt.Timestamp.Sub(lastCapture)) / cfg.SpeedMultiplier)
				if delay > 0 {
					select {
					case <-ctx.Done():
						summary.Elapsed = time.Since(start)
						return summary, ctx.Err()
					case <-time.After(delay):
					}
				}
			}
			lastCapture = pkt.Timestamp
		}

		payload, ok := udpPayload(pkt.Data, linkType, cfg.Port)
		if !ok {
			continue
		}
		summary.Datagrams++

		if err := pipeline.HandlePacket(payload); err != nil {
			summary.Dropped++
			cfg.Log.Tracef("PCAP frame %d dropped: %v", summary.Frames, err)
			continue
		}
		summary.Handled++
	}

	summary.Elapsed = time.Since(start)
	cfg.Log.Diagf("PCAP replay complete: %d frames, %d datagrams, %d handled, %d dropped in %v",
		summary.Frames, summary.Datagrams, summary.Handled, summary.Dropped, summary.Elapsed)
	return summary, nil
}

// udpPayload decodes frame and returns its UDP payload when the destination
// port matches. Empty payloads are skipped.
func udpPayload(frame []byte, linkType layers.LinkType, port int) ([]byte, bool) {
	packet := gopacket.NewPacket(frame, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return nil, false
	}
	udp, ok := udpLayer.(*layers.UDP)
	if !ok {
		return nil, false
	}
	if port != 0 && int(udp.DstPort) != port {
		return nil, false
	}
	if len(udp.Payload) == 0 {
		return nil, false
	}
	return udp.Payload, true
}
