package seriallink

import (
	"io"

	"go.bug.st/serial"
)

// SerialPorter is the part of a serial port the link needs. Robots on this
// link are command sinks, so only the write side is used.
type SerialPorter interface {
	io.Writer
	io.Closer
}

// SerialPortOpener opens a port at path. Tests substitute their own opener.
type SerialPortOpener func(path string, mode *serial.Mode) (SerialPorter, error)

// RealOpener opens a hardware port with go.bug.st/serial.
func RealOpener(path string, mode *serial.Mode) (SerialPorter, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}
