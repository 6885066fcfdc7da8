package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/banshee-data/teleop.bridge/internal/monitoring"
)

// DefaultForwardQueue is the number of packets buffered for the robot.
const DefaultForwardQueue = 1000

var (
	// ErrQueueFull is returned by Send when the forward buffer is full.
	ErrQueueFull = errors.New("forward queue full")
	// ErrForwarderClosed is returned by Send after Close.
	ErrForwarderClosed = errors.New("forwarder closed")
)

// DropCounter counts packets lost after they were queued.
type DropCounter interface {
	AddDropped()
}

// PacketForwarderConfig configures a PacketForwarder.
type PacketForwarderConfig struct {
	Address     string
	QueueSize   int
	LogInterval time.Duration
	Stats       DropCounter
	Log         monitoring.Sink
}

// PacketForwarder sends translated packets to the robot over UDP. Send never
// blocks: packets are queued and written by a single goroutine, and a full
// queue drops the packet.
type PacketForwarder struct {
	conn        *net.UDPConn
	channel     chan []byte
	stats       DropCounter
	log         monitoring.Sink
	logInterval time.Duration
	address     string

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

var _ PacketSink = (*PacketForwarder)(nil)

// NewPacketForwarder dials the robot address and returns a forwarder. Call
// Start before sending.
func NewPacketForwarder(cfg PacketForwarderConfig) (*PacketForwarder, error) {
	raddr, err := net.ResolveUDPAddr("udp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve forward address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create forward connection: %w", err)
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultForwardQueue
	}
	if cfg.LogInterval <= 0 {
		cfg.LogInterval = time.Minute
	}
	if cfg.Stats == nil {
		cfg.Stats = noopStats{}
	}
	if cfg.Log == nil {
		cfg.Log = monitoring.Discard()
	}

	return &PacketForwarder{
		conn:        conn,
		channel:     make(chan []byte, cfg.QueueSize),
		stats:       cfg.Stats,
		log:         cfg.Log,
		logInterval: cfg.LogInterval,
		address:     raddr.String(),
		done:        make(chan struct{}),
	}, nil
}

// Start begins the forwarding goroutine. It stops when ctx is cancelled or
// the forwarder is closed. Write failures are counted and summarised once
// per log interval.
func (f *PacketForwarder) Start(ctx context.Context) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		droppedCount := 0
		var lastError error
		ticker := time.NewTicker(f.logInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-f.done:
				return
			case packet := <-f.channel:
				if _, err := f.conn.Write(packet); err != nil {
					droppedCount++
					lastError = err
					f.stats.AddDropped()
				}
			case <-ticker.C:
				if droppedCount > 0 && lastError != nil {
					f.log.Opsf("Dropped %d forwarded packets due to errors (latest: %v)", droppedCount, lastError)
					droppedCount = 0
					lastError = nil
				}
			}
		}
	}()

	f.log.Diagf("Forwarding packets to %s", f.address)
}

// Send queues a copy of packet without blocking.
func (f *PacketForwarder) Send(packet []byte) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return ErrForwarderClosed
	}

	packetCopy := make([]byte, len(packet))
	copy(packetCopy, packet)

	select {
	case f.channel <- packetCopy:
		return nil
	default:
		return ErrQueueFull
	}
}

// Address returns the robot address.
func (f *PacketForwarder) Address() string { return f.address }

// Close stops the forwarding goroutine and closes the connection. Queued
// packets that have not been written are discarded.
func (f *PacketForwarder) Close() error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.done)
	f.mu.Unlock()

	f.wg.Wait()
	return f.conn.Close()
}
