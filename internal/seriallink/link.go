// Package seriallink delivers translated robot packets over a serial port.
//
// Several ingress sessions may share one robot, so a Link serialises writes:
// each packet reaches the port as one contiguous write and is never
// interleaved with another.
package seriallink

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tailscale.com/tsweb"

	"github.com/banshee-data/teleop.bridge/internal/httputil"
)

var (
	// ErrWriteFailed is returned when the port accepts fewer bytes than sent.
	ErrWriteFailed = errors.New("failed to write to serial port")
	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("serial link closed")
)

// Status is a point-in-time view of a link, served on the admin routes.
type Status struct {
	Path      string    `json:"path"`
	Options   string    `json:"options"`
	Packets   int64     `json:"packets"`
	Bytes     int64     `json:"bytes"`
	Errors    int64     `json:"errors"`
	LastError string    `json:"last_error,omitempty"`
	LastWrite time.Time `json:"last_write,omitempty"`
	Closed    bool      `json:"closed"`
}

// Link writes whole packets to a serial port.
type Link struct {
	path    string
	options PortOptions

	mu     sync.Mutex
	port   SerialPorter
	closed bool
	status Status
}

// NewLink wraps an already opened port.
func NewLink(port SerialPorter, path string, opts PortOptions) *Link {
	return &Link{
		path:    path,
		options: opts,
		port:    port,
	}
}

// Open opens the serial port at path with opts and returns a Link over it.
// A nil opener uses the real hardware opener.
func Open(path string, opts PortOptions, opener SerialPortOpener) (*Link, error) {
	if path == "" {
		return nil, errors.New("serial port path is required")
	}
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	if opener == nil {
		opener = RealOpener
	}
	port, err := opener(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	return NewLink(port, path, opts), nil
}

// Send writes packet to the port in a single call.
func (l *Link) Send(packet []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}

	n, err := l.port.Write(packet)
	if err == nil && n != len(packet) {
		err = fmt.Errorf("%w: wrote %d of %d bytes", ErrWriteFailed, n, len(packet))
	}
	if err != nil {
		l.status.Errors++
		l.status.LastError = err.Error()
		return err
	}

	l.status.Packets++
	l.status.Bytes += int64(n)
	l.status.LastWrite = time.Now()
	return nil
}

// Status returns a copy of the link counters.
func (l *Link) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.status
	s.Path = l.path
	s.Options = l.options.String()
	s.Closed = l.closed
	return s
}

// Close closes the underlying port. Further Sends return ErrClosed.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.port.Close()
}

// AttachAdminRoutes mounts the link status under /debug/serial-link.
func (l *Link) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("serial-link", "Robot serial link status", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSONOK(w, l.Status())
	})
}
