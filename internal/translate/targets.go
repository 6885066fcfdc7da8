package translate

// Output size shared by the current Asgard-family targets:
// header(3) + axes(12) + footer(2).
const asgardPacketSize = 17

// StandardProfile is the scaling used by Asgard-family robots: half speed on
// every axis, with lateral and angular axes inverted to match the robot's
// frame convention.
func StandardProfile() ScalingProfile {
	return ScalingProfile{X: 0.5, Y: -0.5, Angular: -0.5}
}

// AsgardLayout is the Asgard ecosystem protocol, used by every robot built on
// the Asgard platform.
func AsgardLayout() Layout {
	return Layout{
		Name:       "Asgard Robot Translator",
		Header:     []byte{0x23, 0x00, 0x01},
		Footer:     []byte{0x00, 0x00},
		InputSize:  VRPacketSize,
		OutputSize: asgardPacketSize,
	}
}

// SpotLayout is the Spot protocol. It currently shares Asgard's byte layout.
func SpotLayout() Layout {
	return Layout{
		Name:       "Spot Robot Translator",
		Header:     []byte{0x23, 0x00, 0x01},
		Footer:     []byte{0x00, 0x00},
		InputSize:  VRPacketSize,
		OutputSize: asgardPacketSize,
	}
}

// NewAsgardTranslator returns the Asgard translator.
func NewAsgardTranslator(diag Diagnostics) (*ScaledTranscoder, error) {
	return NewScaledTranscoder(AsgardLayout(), StandardProfile(), diag)
}

// NewSpotTranslator returns the Spot translator.
func NewSpotTranslator(diag Diagnostics) (*ScaledTranscoder, error) {
	return NewScaledTranscoder(SpotLayout(), StandardProfile(), diag)
}
