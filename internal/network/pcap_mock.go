package network

import (
	"errors"
	"io"
	"sync"

	"github.com/google/gopacket/layers"
)

// MockPCAPReader implements PCAPReader for testing.
type MockPCAPReader struct {
	mu sync.Mutex

	// Packets holds the frames to return from NextPacket.
	Packets []PCAPPacket
	// ReadIndex tracks the current position in Packets.
	ReadIndex int
	// OpenError is returned by Open if set.
	OpenError error
	// ReadError is returned once Packets are exhausted instead of io.EOF.
	ReadError error
	// OpenedFile records the filename passed to Open.
	OpenedFile string
	// Closed indicates whether Close was called.
	Closed bool
	// MockLinkType is the link type to return.
	MockLinkType layers.LinkType
}

// NewMockPCAPReader creates a new MockPCAPReader with Ethernet framing.
func NewMockPCAPReader(packets []PCAPPacket) *MockPCAPReader {
	return &MockPCAPReader{
		Packets:      packets,
		MockLinkType: layers.LinkTypeEthernet,
	}
}

// Open records the filename and returns any configured error.
func (m *MockPCAPReader) Open(filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpenedFile = filename
	return m.OpenError
}

// NextPacket returns the next packet from the mock buffer.
func (m *MockPCAPReader) NextPacket() (*PCAPPacket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Closed {
		return nil, errors.New("reader closed")
	}
	if m.ReadIndex >= len(m.Packets) {
		if m.ReadError != nil {
			return nil, m.ReadError
		}
		return nil, io.EOF
	}
	pkt := m.Packets[m.ReadIndex]
	m.ReadIndex++
	return &pkt, nil
}

// LinkType returns the mock link type.
func (m *MockPCAPReader) LinkType() layers.LinkType {
	return m.MockLinkType
}

// Close marks the reader as closed.
func (m *MockPCAPReader) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
}
