package translate

import (
	"errors"
	"fmt"

	"github.com/banshee-data/teleop.bridge/internal/translate/codec"
)

// ControlMessageTag identifies a VR robot control packet.
const ControlMessageTag byte = 0x02

// VRPacketSize is the fixed length of a VR control packet:
// tag(1) linear_x(4) linear_y(4) angular(4) timestamp(8).
const VRPacketSize = 21

const (
	offsetLinearX   = 1
	offsetLinearY   = 5
	offsetAngular   = 9
	offsetTimestamp = 13
)

// axisPayloadSize is the encoded size of the three scaled axes in the output.
const axisPayloadSize = 3 * codec.Float32Size

// ControlPacket holds the decoded fields of a VR control packet. Timestamp is
// decoded so the whole fixed-length region is validated, but no target uses it.
type ControlPacket struct {
	LinearX   float32
	LinearY   float32
	Angular   float32
	Timestamp uint64
}

// ScalingProfile holds the per-axis multipliers applied before encoding. A
// negative factor inverts the axis.
type ScalingProfile struct {
	X       float32
	Y       float32
	Angular float32
}

// Apply returns p with each axis multiplied by its factor.
func (s ScalingProfile) Apply(p ControlPacket) ControlPacket {
	p.LinearX *= s.X
	p.LinearY *= s.Y
	p.Angular *= s.Angular
	return p
}

// Layout describes a target's fixed packet shape.
type Layout struct {
	Name       string
	Header     []byte
	Footer     []byte
	InputSize  int
	OutputSize int
}

// ScaledTranscoder is the generic fixed-layout translator. It implements
// Translator for any target whose output is header ++ x ++ y ++ angular ++
// footer.
type ScaledTranscoder struct {
	name       string
	header     []byte
	footer     []byte
	inputSize  int
	outputSize int
	profile    ScalingProfile
	diag       Diagnostics
}

var _ Translator = (*ScaledTranscoder)(nil)

// NewScaledTranscoder validates layout and returns a transcoder for it. The
// header and footer are copied, so later changes to the caller's slices have
// no effect. A nil diag discards diagnostics.
func NewScaledTranscoder(layout Layout, profile ScalingProfile, diag Diagnostics) (*ScaledTranscoder, error) {
	if layout.Name == "" {
		return nil, errors.New("layout name is required")
	}
	if layout.InputSize <= 0 {
		return nil, fmt.Errorf("%s: input size must be positive, got %d", layout.Name, layout.InputSize)
	}
	if want := len(layout.Header) + axisPayloadSize + len(layout.Footer); layout.OutputSize != want {
		return nil, fmt.Errorf("%s: output size %d does not match header(%d)+axes(%d)+footer(%d)",
			layout.Name, layout.OutputSize, len(layout.Header), axisPayloadSize, len(layout.Footer))
	}
	if diag == nil {
		diag = NopDiagnostics()
	}

	t := &ScaledTranscoder{
		name:       layout.Name,
		header:     append([]byte(nil), layout.Header...),
		footer:     append([]byte(nil), layout.Footer...),
		inputSize:  layout.InputSize,
		outputSize: layout.OutputSize,
		profile:    profile,
		diag:       diag,
	}
	diag.Diagf("%s initialized (in=%d out=%d scale=%+v)", t.name, t.inputSize, t.outputSize, t.profile)
	return t, nil
}

// Name returns the display name of the target.
func (t *ScaledTranscoder) Name() string { return t.name }

// Layout returns a copy of the transcoder's layout.
func (t *ScaledTranscoder) Layout() Layout {
	return Layout{
		Name:       t.name,
		Header:     append([]byte(nil), t.header...),
		Footer:     append([]byte(nil), t.footer...),
		InputSize:  t.inputSize,
		OutputSize: t.outputSize,
	}
}

// Profile returns the scaling profile.
func (t *ScaledTranscoder) Profile() ScalingProfile { return t.profile }

// Translate implements Translator.
func (t *ScaledTranscoder) Translate(packet []byte) ([]byte, error) {
	in, err := decodeControl(t.name, t.inputSize, packet)
	if err != nil {
		t.diag.Opsf("%v", err)
		return nil, err
	}

	out := t.profile.Apply(in)
	buf, err := codec.Concat(t.outputSize,
		t.header,
		codec.EncodeFloat32LE(out.LinearX),
		codec.EncodeFloat32LE(out.LinearY),
		codec.EncodeFloat32LE(out.Angular),
		t.footer,
	)
	if err != nil {
		ferr := &Error{Kind: KindMalformedPayload, Translator: t.name, Err: fmt.Errorf("encode: %w", err)}
		t.diag.Opsf("%v", ferr)
		return nil, ferr
	}

	t.diag.Tracef("%s: VR[x=%.3f, y=%.3f, a=%.3f] -> robot[x=%.3f, y=%.3f, a=%.3f]",
		t.name, in.LinearX, in.LinearY, in.Angular, out.LinearX, out.LinearY, out.Angular)
	return buf, nil
}

// DecodeControlPacket validates and decodes a standalone VR control packet.
func DecodeControlPacket(packet []byte) (ControlPacket, error) {
	return decodeControl("", VRPacketSize, packet)
}

func decodeControl(name string, inputSize int, packet []byte) (ControlPacket, error) {
	if len(packet) != inputSize {
		return ControlPacket{}, &Error{Kind: KindInvalidLength, Translator: name, Got: len(packet), Want: inputSize}
	}
	if packet[0] != ControlMessageTag {
		return ControlPacket{}, &Error{Kind: KindUnexpectedMessageType, Translator: name, Got: int(packet[0]), Want: int(ControlMessageTag)}
	}

	malformed := func(field string, err error) error {
		return &Error{Kind: KindMalformedPayload, Translator: name, Err: fmt.Errorf("decode %s: %w", field, err)}
	}

	var p ControlPacket
	var err error
	if p.LinearX, err = codec.DecodeFloat32LE(packet, offsetLinearX); err != nil {
		return ControlPacket{}, malformed("linear_x", err)
	}
	if p.LinearY, err = codec.DecodeFloat32LE(packet, offsetLinearY); err != nil {
		return ControlPacket{}, malformed("linear_y", err)
	}
	if p.Angular, err = codec.DecodeFloat32LE(packet, offsetAngular); err != nil {
		return ControlPacket{}, malformed("angular", err)
	}
	if p.Timestamp, err = codec.DecodeUint64LE(packet, offsetTimestamp); err != nil {
		return ControlPacket{}, malformed("timestamp", err)
	}
	return p, nil
}

// EncodeControlPacket builds the 21-byte VR wire form of p. It is the inverse
// of DecodeControlPacket and is used by simulators and capture tooling.
func EncodeControlPacket(p ControlPacket) []byte {
	buf, _ := codec.Concat(VRPacketSize,
		[]byte{ControlMessageTag},
		codec.EncodeFloat32LE(p.LinearX),
		codec.EncodeFloat32LE(p.LinearY),
		codec.EncodeFloat32LE(p.Angular),
		codec.EncodeUint64LE(p.Timestamp),
	)
	return buf
}
