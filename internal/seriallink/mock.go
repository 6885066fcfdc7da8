package seriallink

import (
	"bytes"
	"errors"
	"sync"

	"go.bug.st/serial"
)

// TestableSerialPort implements SerialPorter with configurable behaviour for
// tests. It records every write as a separate frame.
type TestableSerialPort struct {
	mu sync.Mutex

	// Frames holds each successful Write call's payload.
	Frames [][]byte

	// WriteError is returned by the next Write call if set.
	WriteError error

	// ShortWrite makes the next Write report one byte fewer than given.
	ShortWrite bool

	// CloseError is returned by Close if set.
	CloseError error

	// Closed indicates whether Close was called.
	Closed bool
}

// NewTestableSerialPort creates a new TestableSerialPort.
func NewTestableSerialPort() *TestableSerialPort {
	return &TestableSerialPort{}
}

// Write records p as one frame.
func (t *TestableSerialPort) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.Closed {
		return 0, errors.New("serial port closed")
	}
	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}
	if t.ShortWrite && len(p) > 0 {
		t.ShortWrite = false
		return len(p) - 1, nil
	}
	t.Frames = append(t.Frames, bytes.Clone(p))
	return len(p), nil
}

// Close marks the port as closed.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Closed = true
	return t.CloseError
}

// Written returns a copy of the recorded frames.
func (t *TestableSerialPort) Written() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.Frames))
	copy(out, t.Frames)
	return out
}

// OpenerFor returns a SerialPortOpener that always hands back port and
// records the requested mode in *mode when mode is non-nil.
func OpenerFor(port SerialPorter, mode **serial.Mode) SerialPortOpener {
	return func(path string, m *serial.Mode) (SerialPorter, error) {
		if mode != nil {
			*mode = m
		}
		return port, nil
	}
}
