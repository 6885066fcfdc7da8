package network

import (
	"net"
	"sync"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/teleop.bridge/internal/monitor"
	"github.com/banshee-data/teleop.bridge/internal/translate"
)

type recordingSink struct {
	mu      sync.Mutex
	packets [][]byte
	err     error
}

func (s *recordingSink) Send(packet []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.packets = append(s.packets, append([]byte(nil), packet...))
	return nil
}

func (s *recordingSink) Packets() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.packets...)
}

func newTestPipeline(t *testing.T, sink PacketSink) (*Pipeline, *monitor.BridgeStats) {
	t.Helper()
	tr, err := translate.NewAsgardTranslator(nil)
	require.NoError(t, err)
	stats := monitor.NewBridgeStats(monitor.BridgeStatsConfig{})
	p, err := NewPipeline(PipelineConfig{Translator: tr, Sink: sink, Stats: stats})
	require.NoError(t, err)
	return p, stats
}

// ethernetUDPFrame wraps payload in Ethernet/IPv4/UDP headers.
func ethernetUDPFrame(t *testing.T, dstPort uint16, payload []byte) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(192, 168, 1, 20),
		DstIP:    net.IPv4(192, 168, 1, 10),
	}
	udp := &layers.UDP{SrcPort: 50000, DstPort: layers.UDPPort(dstPort)}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)))
	return buf.Bytes()
}

func vrPacket(x, y, angular float32) []byte {
	return translate.EncodeControlPacket(translate.ControlPacket{LinearX: x, LinearY: y, Angular: angular})
}
