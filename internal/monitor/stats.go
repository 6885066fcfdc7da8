// Package monitor tracks bridge traffic and exposes it to operators.
package monitor

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/teleop.bridge/internal/monitoring"
	"github.com/banshee-data/teleop.bridge/internal/timeutil"
	"github.com/banshee-data/teleop.bridge/internal/translate"
)

const (
	// latencyWindow bounds the translate-latency samples kept per interval.
	latencyWindow = 4096
	// historySize is the number of snapshots kept for the admin chart.
	historySize = 240
)

// StatsSnapshot summarises one logging interval.
type StatsSnapshot struct {
	Timestamp      time.Time     `json:"timestamp"`
	Interval       time.Duration `json:"interval"`
	Packets        int64         `json:"packets"`
	Bytes          int64         `json:"bytes"`
	Translated     int64         `json:"translated"`
	InvalidLength  int64         `json:"invalid_length"`
	UnexpectedType int64         `json:"unexpected_type"`
	Malformed      int64         `json:"malformed"`
	ForwardDropped int64         `json:"forward_dropped"`
	PacketsPerSec  float64       `json:"packets_per_sec"`
	KBPerSec       float64       `json:"kb_per_sec"`
	P50            time.Duration `json:"p50"`
	P99            time.Duration `json:"p99"`
}

// Rejected returns the number of packets dropped by the translator.
func (s StatsSnapshot) Rejected() int64 {
	return s.InvalidLength + s.UnexpectedType + s.Malformed
}

// Recorder persists snapshots, e.g. to the stats database.
type Recorder interface {
	RecordStats(snap StatsSnapshot) error
}

// BridgeStatsConfig configures a BridgeStats. Every field is optional.
type BridgeStatsConfig struct {
	Log      monitoring.Sink
	Recorder Recorder
	Clock    timeutil.Clock
}

// BridgeStats tracks packet statistics with thread-safe operations.
type BridgeStats struct {
	log      monitoring.Sink
	recorder Recorder
	clock    timeutil.Clock

	mu             sync.Mutex
	packets        int64
	bytes          int64
	translated     int64
	invalidLength  int64
	unexpectedType int64
	malformed      int64
	forwardDropped int64
	latencies      []float64
	latencyNext    int
	lastReset      time.Time
	startTime      time.Time

	totals  StatsSnapshot
	history []StatsSnapshot
}

// NewBridgeStats creates a new BridgeStats.
func NewBridgeStats(cfg BridgeStatsConfig) *BridgeStats {
	if cfg.Log == nil {
		cfg.Log = monitoring.Discard()
	}
	clock := timeutil.Or(cfg.Clock)
	now := clock.Now()
	return &BridgeStats{
		log:       cfg.Log,
		recorder:  cfg.Recorder,
		clock:     clock,
		latencies: make([]float64, 0, latencyWindow),
		lastReset: now,
		startTime: now,
	}
}

// AddPacket counts a received packet of n bytes.
func (s *BridgeStats) AddPacket(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packets++
	s.bytes += int64(n)
}

// AddTranslated counts a successful translation that took d.
func (s *BridgeStats) AddTranslated(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.translated++

	us := float64(d) / float64(time.Microsecond)
	if len(s.latencies) < latencyWindow {
		s.latencies = append(s.latencies, us)
		return
	}
	s.latencies[s.latencyNext] = us
	s.latencyNext = (s.latencyNext + 1) % latencyWindow
}

// AddRejected counts a packet the translator refused.
func (s *BridgeStats) AddRejected(kind translate.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case translate.KindInvalidLength:
		s.invalidLength++
	case translate.KindUnexpectedMessageType:
		s.unexpectedType++
	default:
		s.malformed++
	}
}

// AddDropped counts a translated packet the robot sink could not accept.
func (s *BridgeStats) AddDropped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forwardDropped++
}

// GetAndReset returns the current interval's stats and starts a new one.
func (s *BridgeStats) GetAndReset() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	snap := StatsSnapshot{
		Timestamp:      now,
		Interval:       now.Sub(s.lastReset),
		Packets:        s.packets,
		Bytes:          s.bytes,
		Translated:     s.translated,
		InvalidLength:  s.invalidLength,
		UnexpectedType: s.unexpectedType,
		Malformed:      s.malformed,
		ForwardDropped: s.forwardDropped,
	}
	if secs := snap.Interval.Seconds(); secs > 0 {
		snap.PacketsPerSec = float64(snap.Packets) / secs
		snap.KBPerSec = float64(snap.Bytes) / secs / 1024
	}
	snap.P50, snap.P99 = latencyQuantiles(s.latencies)

	s.totals.Timestamp = now
	s.totals.Interval = now.Sub(s.startTime)
	s.totals.Packets += snap.Packets
	s.totals.Bytes += snap.Bytes
	s.totals.Translated += snap.Translated
	s.totals.InvalidLength += snap.InvalidLength
	s.totals.UnexpectedType += snap.UnexpectedType
	s.totals.Malformed += snap.Malformed
	s.totals.ForwardDropped += snap.ForwardDropped

	s.history = append(s.history, snap)
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}

	s.packets, s.bytes, s.translated = 0, 0, 0
	s.invalidLength, s.unexpectedType, s.malformed = 0, 0, 0
	s.forwardDropped = 0
	s.latencies = s.latencies[:0]
	s.latencyNext = 0
	s.lastReset = now
	return snap
}

// latencyQuantiles returns the median and 99th percentile of samples, given
// in microseconds.
func latencyQuantiles(samples []float64) (p50, p99 time.Duration) {
	if len(samples) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	toDuration := func(us float64) time.Duration { return time.Duration(us * float64(time.Microsecond)) }
	return toDuration(stat.Quantile(0.5, stat.Empirical, sorted, nil)),
		toDuration(stat.Quantile(0.99, stat.Empirical, sorted, nil))
}

// LogStats closes the current interval, logs a summary on the diag stream and
// hands the snapshot to the recorder, if any.
func (s *BridgeStats) LogStats() {
	snap := s.GetAndReset()

	if snap.Packets > 0 || snap.ForwardDropped > 0 {
		msg := fmt.Sprintf("Bridge stats (/sec): %.2f KB, %.1f packets; %s translated",
			snap.KBPerSec, snap.PacketsPerSec, FormatWithCommas(snap.Translated))
		if rejected := snap.Rejected(); rejected > 0 {
			msg += fmt.Sprintf(", %d rejected (length=%d type=%d malformed=%d)",
				rejected, snap.InvalidLength, snap.UnexpectedType, snap.Malformed)
		}
		if snap.ForwardDropped > 0 {
			msg += fmt.Sprintf(", %d dropped on forward", snap.ForwardDropped)
		}
		if snap.Translated > 0 {
			msg += fmt.Sprintf(", latency p50=%v p99=%v", snap.P50, snap.P99)
		}
		s.log.Diagf("%s", msg)
	}

	if s.recorder != nil {
		if err := s.recorder.RecordStats(snap); err != nil {
			s.log.Opsf("failed to record stats: %v", err)
		}
	}
}

// Totals returns the counters accumulated over every closed interval.
func (s *BridgeStats) Totals() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals
}

// History returns the most recent snapshots, oldest first.
func (s *BridgeStats) History() []StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StatsSnapshot(nil), s.history...)
}

// LatestSnapshot returns the most recent snapshot, or nil before the first
// interval closes.
func (s *BridgeStats) LatestSnapshot() *StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return nil
	}
	snap := s.history[len(s.history)-1]
	return &snap
}

// Uptime returns the time since the stats were created.
func (s *BridgeStats) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock.Since(s.startTime)
}

// FormatWithCommas formats a number with thousands separators.
func FormatWithCommas(n int64) string {
	str := fmt.Sprintf("%d", n)
	neg := false
	if n < 0 {
		neg = true
		str = str[1:]
	}
	if len(str) <= 3 {
		if neg {
			return "-" + str
		}
		return str
	}

	result := ""
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}
	if neg {
		return "-" + result
	}
	return result
}
