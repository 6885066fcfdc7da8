package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/banshee-data/teleop.bridge/internal/monitoring"
	"github.com/banshee-data/teleop.bridge/internal/timeutil"
)

// maxDatagramSize bounds a single read. Oversized datagrams are truncated
// here and then rejected by the translator's length check.
const maxDatagramSize = 2048

// readPollInterval is the read deadline used to observe cancellation.
const readPollInterval = 100 * time.Millisecond

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Pipeline    *Pipeline
	Log         monitoring.Sink
	// SocketFactory defaults to net.ListenUDP.
	SocketFactory UDPSocketFactory
	// Clock drives the stats reports; nil uses the real clock.
	Clock timeutil.Clock
}

// UDPListener receives VR control datagrams and feeds them to a Pipeline.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	pipeline    *Pipeline
	log         monitoring.Sink
	factory     UDPSocketFactory
	clock       timeutil.Clock

	mu   sync.Mutex
	conn UDPSocket
}

// NewUDPListener creates a new UDP listener with the provided configuration.
func NewUDPListener(config UDPListenerConfig) (*UDPListener, error) {
	if config.Pipeline == nil {
		return nil, errors.New("UDP listener requires a pipeline")
	}
	logInterval := config.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}
	if config.Log == nil {
		config.Log = monitoring.Discard()
	}
	if config.SocketFactory == nil {
		config.SocketFactory = NewRealUDPSocketFactory()
	}
	return &UDPListener{
		address:     config.Address,
		rcvBuf:      config.RcvBuf,
		logInterval: logInterval,
		pipeline:    config.Pipeline,
		log:         config.Log,
		factory:     config.SocketFactory,
		clock:       timeutil.Or(config.Clock),
	}, nil
}

// Start binds the socket and processes datagrams until ctx is cancelled.
func (l *UDPListener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	conn, err := l.factory.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			l.log.Opsf("Warning: Failed to set UDP receive buffer size to %d: %v", l.rcvBuf, err)
		}
	}

	l.log.Diagf("UDP listener started on %s (translator %q, receive buffer %d bytes)",
		conn.LocalAddr(), l.pipeline.Translator().Name(), l.rcvBuf)

	go l.startStatsLogging(ctx)

	buffer := make([]byte, maxDatagramSize)
	for {
		select {
		case <-ctx.Done():
			l.log.Diagf("UDP listener stopping due to context cancellation")
			return ctx.Err()
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(readPollInterval))
		n, from, err := conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			l.log.Opsf("UDP read error: %v", err)
			continue
		}

		if err := l.pipeline.HandlePacket(buffer[:n]); err != nil {
			l.log.Tracef("dropped packet from %v: %v", from, err)
		}
	}
}

// startStatsLogging periodically logs packet statistics. The first report
// comes shortly after startup rather than after a full interval.
func (l *UDPListener) startStatsLogging(ctx context.Context) {
	stats := l.pipeline.Stats()
	first := 2 * time.Second
	if l.logInterval < first {
		first = l.logInterval
	}

	select {
	case <-ctx.Done():
		return
	case <-l.clock.After(first):
		stats.LogStats()
	}

	ticker := l.clock.NewTicker(l.logInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			stats.LogStats()
		}
	}
}

// LocalAddr returns the bound address, or nil before Start binds.
func (l *UDPListener) LocalAddr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return nil
	}
	return l.conn.LocalAddr()
}

// Close closes the UDP listener and releases resources.
func (l *UDPListener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return l.conn.Close()
	}
	return nil
}
