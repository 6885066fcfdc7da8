// Package testutil provides shared test helpers and packet fixtures.
//
// Fixtures build VR control packets and decode robot packets so tests in the
// translate, network and cmd packages agree on the wire layout.
package testutil

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/banshee-data/teleop.bridge/internal/translate"
	"github.com/banshee-data/teleop.bridge/internal/translate/codec"
)

// VRPacket returns a well-formed 21-byte VR control packet.
func VRPacket(x, y, angular float32, timestamp uint64) []byte {
	return translate.EncodeControlPacket(translate.ControlPacket{
		LinearX:   x,
		LinearY:   y,
		Angular:   angular,
		Timestamp: timestamp,
	})
}

// WithTag returns a copy of packet with the leading tag byte replaced.
func WithTag(packet []byte, tag byte) []byte {
	out := append([]byte(nil), packet...)
	if len(out) > 0 {
		out[0] = tag
	}
	return out
}

// RobotAxes decodes the three float32 axes that follow a headerLen-byte header.
func RobotAxes(t *testing.T, packet []byte, headerLen int) (x, y, angular float32) {
	t.Helper()
	var err error
	if x, err = codec.DecodeFloat32LE(packet, headerLen); err != nil {
		t.Fatalf("decode x: %v", err)
	}
	if y, err = codec.DecodeFloat32LE(packet, headerLen+4); err != nil {
		t.Fatalf("decode y: %v", err)
	}
	if angular, err = codec.DecodeFloat32LE(packet, headerLen+8); err != nil {
		t.Fatalf("decode angular: %v", err)
	}
	return x, y, angular
}

// RelativeError returns |got-want|/|want|, or |got| when want is zero.
func RelativeError(got, want float64) float64 {
	if want == 0 {
		return math.Abs(got)
	}
	return math.Abs(got-want) / math.Abs(want)
}

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// NewDebugRequest creates a test request from a loopback address, which
// tsweb requires before serving /debug/ routes.
func NewDebugRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}
