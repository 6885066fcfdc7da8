// Package translate converts VR teleoperation control packets into the fixed
// wire formats expected by individual robot platforms.
//
// Every target is served by the same ScaledTranscoder; targets differ only in
// their Layout (header, footer, sizes) and ScalingProfile. Callers depend on
// the Translator interface and obtain instances from a Registry keyed by
// RobotType.
//
// Translators are immutable after construction and safe for concurrent use.
// Translate performs no I/O beyond the injected Diagnostics sink.
package translate

// Translator converts one VR control packet into one robot protocol packet.
type Translator interface {
	// Translate validates and transcodes packet. On failure the returned
	// error is a *Error and the output is nil.
	Translate(packet []byte) ([]byte, error)
	// Name returns a human-readable display name.
	Name() string
}

// Diagnostics receives the translator's log lines. Opsf is used for rejected
// packets, Diagf for lifecycle events and Tracef for per-packet detail.
// Implementations must be safe for concurrent use.
type Diagnostics interface {
	Opsf(format string, args ...interface{})
	Diagf(format string, args ...interface{})
	Tracef(format string, args ...interface{})
}

type nopDiagnostics struct{}

func (nopDiagnostics) Opsf(string, ...interface{})   {}
func (nopDiagnostics) Diagf(string, ...interface{})  {}
func (nopDiagnostics) Tracef(string, ...interface{}) {}

// NopDiagnostics returns a Diagnostics that discards everything.
func NopDiagnostics() Diagnostics { return nopDiagnostics{} }
