package translate_test

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/teleop.bridge/internal/testutil"
	"github.com/banshee-data/teleop.bridge/internal/translate"
	"github.com/banshee-data/teleop.bridge/internal/translate/codec"
)

// recordingDiag captures log lines per stream.
type recordingDiag struct {
	mu    sync.Mutex
	ops   []string
	diag  []string
	trace []string
}

func (r *recordingDiag) Opsf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, fmt.Sprintf(format, args...))
}

func (r *recordingDiag) Diagf(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diag = append(r.diag, fmt.Sprintf(format, args...))
}

func (r *recordingDiag) Tracef(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = append(r.trace, fmt.Sprintf(format, args...))
}

func builtinTargets(t *testing.T, diag translate.Diagnostics) map[string]*translate.ScaledTranscoder {
	t.Helper()
	asgard, err := translate.NewAsgardTranslator(diag)
	require.NoError(t, err)
	spot, err := translate.NewSpotTranslator(diag)
	require.NoError(t, err)
	return map[string]*translate.ScaledTranscoder{"asgard": asgard, "spot": spot}
}

func TestTranslate_ConcreteScenario(t *testing.T) {
	for name, tr := range builtinTargets(t, nil) {
		t.Run(name, func(t *testing.T) {
			out, err := tr.Translate(testutil.VRPacket(1.0, 2.0, -1.0, 0))
			require.NoError(t, err)

			want := []byte{0x23, 0x00, 0x01}
			want = append(want, codec.EncodeFloat32LE(0.5)...)
			want = append(want, codec.EncodeFloat32LE(-1.0)...)
			want = append(want, codec.EncodeFloat32LE(0.5)...)
			want = append(want, 0x00, 0x00)

			if diff := cmp.Diff(want, out); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
			assert.Len(t, out, 17)
		})
	}
}

func TestTranslate_HeaderFooterAndSize(t *testing.T) {
	inputs := [][]byte{
		testutil.VRPacket(0, 0, 0, 0),
		testutil.VRPacket(1.25, -3.5, 0.75, 1700000000000),
		testutil.VRPacket(-100, 100, 3.14159, math.MaxUint64),
	}

	for name, tr := range builtinTargets(t, nil) {
		layout := tr.Layout()
		for i, in := range inputs {
			out, err := tr.Translate(in)
			require.NoError(t, err, "%s input %d", name, i)
			require.Len(t, out, layout.OutputSize)
			assert.Equal(t, layout.Header, out[:len(layout.Header)], "%s header", name)
			assert.Equal(t, layout.Footer, out[len(out)-len(layout.Footer):], "%s footer", name)
		}
	}
}

func TestTranslate_RoundTripScaling(t *testing.T) {
	axes := []float32{1.0, -2.5, 0.001, 123.456, -0.333, 7e-5, 1e6}
	for name, tr := range builtinTargets(t, nil) {
		profile := tr.Profile()
		headerLen := len(tr.Layout().Header)

		for _, x := range axes {
			for _, y := range axes {
				a := x - y
				out, err := tr.Translate(testutil.VRPacket(x, y, a, 0))
				require.NoError(t, err)

				gx, gy, ga := testutil.RobotAxes(t, out, headerLen)
				for _, c := range []struct {
					axis  string
					got   float32
					scale float32
					want  float32
				}{
					{"x", gx, profile.X, x},
					{"y", gy, profile.Y, y},
					{"angular", ga, profile.Angular, a},
				} {
					restored := float64(c.got) / float64(c.scale)
					if e := testutil.RelativeError(restored, float64(c.want)); e > 1e-6 {
						t.Errorf("%s %s: restored %v from %v, want %v (rel err %g)", name, c.axis, restored, c.got, c.want, e)
					}
				}
			}
		}
	}
}

func TestTranslate_InvalidLength(t *testing.T) {
	tr, err := translate.NewAsgardTranslator(nil)
	require.NoError(t, err)

	for _, n := range []int{0, 1, 10, 20, 22, 64} {
		t.Run(fmt.Sprintf("len=%d", n), func(t *testing.T) {
			in := make([]byte, n)
			if n > 0 {
				in[0] = translate.ControlMessageTag
			}
			out, err := tr.Translate(in)
			assert.Nil(t, out)
			require.Error(t, err)
			assert.ErrorIs(t, err, translate.ErrInvalidLength)
			assert.Equal(t, translate.KindInvalidLength, translate.KindOf(err))

			var te *translate.Error
			require.True(t, errors.As(err, &te))
			assert.Equal(t, n, te.Got)
			assert.Equal(t, 21, te.Want)
		})
	}
}

func TestTranslate_InvalidLengthDetail(t *testing.T) {
	tr, err := translate.NewSpotTranslator(nil)
	require.NoError(t, err)

	_, err = tr.Translate(make([]byte, 10))
	assert.EqualError(t, err, "Spot Robot Translator: invalid length: got 10 bytes, want 21")
}

func TestTranslate_UnexpectedMessageType(t *testing.T) {
	tr, err := translate.NewAsgardTranslator(nil)
	require.NoError(t, err)

	for _, tag := range []byte{0x00, 0x01, 0x03, 0x05, 0xFF} {
		t.Run(fmt.Sprintf("tag=0x%02x", tag), func(t *testing.T) {
			out, err := tr.Translate(testutil.WithTag(testutil.VRPacket(1, 2, 3, 4), tag))
			assert.Nil(t, out)
			assert.ErrorIs(t, err, translate.ErrUnexpectedMessageType)

			var te *translate.Error
			require.True(t, errors.As(err, &te))
			assert.Equal(t, int(tag), te.Got)
		})
	}

	_, err = tr.Translate(testutil.WithTag(testutil.VRPacket(0, 0, 0, 0), 0x05))
	assert.EqualError(t, err, "Asgard Robot Translator: unexpected message type: got 0x05, want 0x02")
}

func TestTranslate_FailureIsIdempotent(t *testing.T) {
	tr, err := translate.NewAsgardTranslator(nil)
	require.NoError(t, err)

	for _, in := range [][]byte{
		make([]byte, 20),
		testutil.WithTag(testutil.VRPacket(0, 0, 0, 0), 0x03),
	} {
		_, err1 := tr.Translate(in)
		_, err2 := tr.Translate(in)
		require.Error(t, err1)
		require.Error(t, err2)
		assert.Equal(t, translate.KindOf(err1), translate.KindOf(err2))
		assert.Equal(t, err1.Error(), err2.Error())
	}
}

func TestTranslate_MalformedPayload(t *testing.T) {
	// An input size too small to hold the axes passes the length and tag
	// checks, so the codec bounds check is what rejects it.
	layout := translate.AsgardLayout()
	layout.InputSize = 8
	tr, err := translate.NewScaledTranscoder(layout, translate.StandardProfile(), nil)
	require.NoError(t, err)

	in := testutil.VRPacket(1, 2, 3, 4)[:8]
	out, err := tr.Translate(in)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, translate.ErrMalformedPayload)
	assert.ErrorIs(t, err, codec.ErrShortBuffer)
	assert.Equal(t, translate.KindMalformedPayload, translate.KindOf(err))
	assert.Contains(t, err.Error(), "decode linear_y")
}

func TestTranslate_NaNAndInfPassThrough(t *testing.T) {
	tr, err := translate.NewAsgardTranslator(nil)
	require.NoError(t, err)

	inf := float32(math.Inf(1))
	nan := float32(math.NaN())
	out, err := tr.Translate(testutil.VRPacket(inf, nan, -inf, 0))
	require.NoError(t, err)

	x, y, a := testutil.RobotAxes(t, out, 3)
	assert.True(t, math.IsInf(float64(x), 1), "x = %v", x)
	assert.True(t, math.IsNaN(float64(y)), "y = %v", y)
	assert.True(t, math.IsInf(float64(a), 1), "angular = %v", a)
}

func TestTranslate_TargetsDifferOnlyInFraming(t *testing.T) {
	alt := translate.Layout{
		Name:       "Framing Variant",
		Header:     []byte{0x7E, 0x10, 0x42},
		Footer:     []byte{0xAB, 0xCD},
		InputSize:  translate.VRPacketSize,
		OutputSize: 17,
	}
	a, err := translate.NewAsgardTranslator(nil)
	require.NoError(t, err)
	b, err := translate.NewScaledTranscoder(alt, translate.StandardProfile(), nil)
	require.NoError(t, err)

	in := testutil.VRPacket(0.8, -0.2, 1.5, 99)
	outA, err := a.Translate(in)
	require.NoError(t, err)
	outB, err := b.Translate(in)
	require.NoError(t, err)

	require.Len(t, outB, len(outA))
	assert.Equal(t, outA[3:15], outB[3:15], "axis payload should be identical")
	assert.Equal(t, alt.Header, outB[:3])
	assert.Equal(t, alt.Footer, outB[15:])
	assert.NotEqual(t, outA[:3], outB[:3])
	assert.NotEqual(t, outA[15:], outB[15:])
}

func TestTranslate_Diagnostics(t *testing.T) {
	rec := &recordingDiag{}
	tr, err := translate.NewAsgardTranslator(rec)
	require.NoError(t, err)
	require.Len(t, rec.diag, 1, "construction should log once")

	_, err = tr.Translate(testutil.VRPacket(1, 2, -1, 0))
	require.NoError(t, err)
	_, err = tr.Translate(make([]byte, 10))
	require.Error(t, err)

	require.Len(t, rec.trace, 1)
	assert.Contains(t, rec.trace[0], "VR[x=1.000, y=2.000, a=-1.000]")
	assert.Contains(t, rec.trace[0], "robot[x=0.500, y=-1.000, a=0.500]")
	require.Len(t, rec.ops, 1)
	assert.Contains(t, rec.ops[0], "got 10 bytes, want 21")
}

func TestTranslate_ConcurrentUse(t *testing.T) {
	tr, err := translate.NewAsgardTranslator(&recordingDiag{})
	require.NoError(t, err)

	want, err := tr.Translate(testutil.VRPacket(0.25, 0.5, 0.75, 0))
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if j%3 == 0 {
					if _, err := tr.Translate(make([]byte, i)); err == nil {
						errs <- fmt.Errorf("goroutine %d: short packet accepted", i)
						return
					}
					continue
				}
				got, err := tr.Translate(testutil.VRPacket(0.25, 0.5, 0.75, uint64(j)))
				if err != nil {
					errs <- err
					return
				}
				if string(got) != string(want) {
					errs <- fmt.Errorf("goroutine %d: output %x, want %x", i, got, want)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestNewScaledTranscoder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*translate.Layout)
	}{
		{"missing name", func(l *translate.Layout) { l.Name = "" }},
		{"zero input size", func(l *translate.Layout) { l.InputSize = 0 }},
		{"output too large", func(l *translate.Layout) { l.OutputSize = 18 }},
		{"output too small", func(l *translate.Layout) { l.OutputSize = 16 }},
		{"longer header", func(l *translate.Layout) { l.Header = append(l.Header, 0x00) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			layout := translate.AsgardLayout()
			tc.mutate(&layout)
			_, err := translate.NewScaledTranscoder(layout, translate.StandardProfile(), nil)
			assert.Error(t, err)
		})
	}
}

func TestNewScaledTranscoder_CopiesFraming(t *testing.T) {
	layout := translate.AsgardLayout()
	tr, err := translate.NewScaledTranscoder(layout, translate.StandardProfile(), nil)
	require.NoError(t, err)

	layout.Header[0] = 0xFF
	layout.Footer[1] = 0xFF
	out, err := tr.Translate(testutil.VRPacket(0, 0, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, byte(0x23), out[0])
	assert.Equal(t, byte(0x00), out[16])

	got := tr.Layout()
	got.Header[0] = 0xEE
	assert.Equal(t, byte(0x23), tr.Layout().Header[0])
}

func TestDecodeControlPacket(t *testing.T) {
	p, err := translate.DecodeControlPacket(testutil.VRPacket(1.5, -2, 0.25, 123456789))
	require.NoError(t, err)
	assert.Equal(t, translate.ControlPacket{LinearX: 1.5, LinearY: -2, Angular: 0.25, Timestamp: 123456789}, p)

	_, err = translate.DecodeControlPacket([]byte{0x02})
	assert.ErrorIs(t, err, translate.ErrInvalidLength)
	assert.Equal(t, "invalid length: got 1 bytes, want 21", err.Error())
}

func TestScalingProfile_Apply(t *testing.T) {
	got := translate.StandardProfile().Apply(translate.ControlPacket{LinearX: 1, LinearY: 2, Angular: -1, Timestamp: 7})
	assert.Equal(t, translate.ControlPacket{LinearX: 0.5, LinearY: -1, Angular: 0.5, Timestamp: 7}, got)
}
