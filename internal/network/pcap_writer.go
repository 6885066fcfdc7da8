package network

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

const pcapSnapLen = 65536

// PCAPWriter writes UDP datagrams as Ethernet/IPv4 frames in pcap format,
// producing captures that ReplayPCAP can read back.
type PCAPWriter struct {
	w       *pcapgo.Writer
	srcIP   net.IP
	dstIP   net.IP
	srcPort layers.UDPPort
}

// NewPCAPWriter writes the pcap file header to w and returns a writer whose
// frames come from 192.168.1.20:50000 and go to 192.168.1.10.
func NewPCAPWriter(w io.Writer) (*PCAPWriter, error) {
	pw := pcapgo.NewWriter(w)
	if err := pw.WriteFileHeader(pcapSnapLen, layers.LinkTypeEthernet); err != nil {
		return nil, fmt.Errorf("failed to write PCAP header: %w", err)
	}
	return &PCAPWriter{
		w:       pw,
		srcIP:   net.IPv4(192, 168, 1, 20),
		dstIP:   net.IPv4(192, 168, 1, 10),
		srcPort: 50000,
	}, nil
}

// WriteDatagram appends one frame carrying payload to dstPort, stamped ts.
func (p *PCAPWriter) WriteDatagram(ts time.Time, dstPort uint16, payload []byte) error {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    p.srcIP,
		DstIP:    p.dstIP,
	}
	udp := &layers.UDP{SrcPort: p.srcPort, DstPort: layers.UDPPort(dstPort)}
	if err := udp.SetNetworkLayerForChecksum(ip); err != nil {
		return err
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return fmt.Errorf("failed to serialise frame: %w", err)
	}

	frame := buf.Bytes()
	ci := gopacket.CaptureInfo{Timestamp: ts, CaptureLength: len(frame), Length: len(frame)}
	return p.w.WritePacket(ci, frame)
}
