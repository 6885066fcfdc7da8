package seriallink

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// DefaultBaudRate is used when no baud rate is configured. Asgard motor
// controllers ship at 115200 8N1.
const DefaultBaudRate = 115200

// PortOptions describes the serial connection parameters for a robot link.
// The JSON names match the serial_options block of the bridge config.
type PortOptions struct {
	BaudRate int    `json:"baud_rate"`
	DataBits int    `json:"data_bits"`
	StopBits int    `json:"stop_bits"`
	Parity   string `json:"parity"`
}

var parityAliases = map[string]string{
	"":     "N",
	"N":    "N",
	"NONE": "N",
	"E":    "E",
	"EVEN": "E",
	"O":    "O",
	"ODD":  "O",
}

var parityModes = map[string]serial.Parity{
	"N": serial.NoParity,
	"E": serial.EvenParity,
	"O": serial.OddParity,
}

// Normalise fills in defaults and validates the options.
func (o PortOptions) Normalise() (PortOptions, error) {
	out := o
	if out.BaudRate <= 0 {
		out.BaudRate = DefaultBaudRate
	}
	if out.DataBits == 0 {
		out.DataBits = 8
	}
	if out.DataBits < 5 || out.DataBits > 8 {
		return out, fmt.Errorf("invalid data bits %d: must be between 5 and 8", out.DataBits)
	}
	if out.StopBits == 0 {
		out.StopBits = 1
	}
	if out.StopBits != 1 && out.StopBits != 2 {
		return out, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", out.StopBits)
	}

	parity, ok := parityAliases[strings.ToUpper(strings.TrimSpace(out.Parity))]
	if !ok {
		return out, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	out.Parity = parity
	return out, nil
}

// String renders the options in the usual "115200 8N1" form.
func (o PortOptions) String() string {
	n, err := o.Normalise()
	if err != nil {
		return fmt.Sprintf("invalid(%v)", err)
	}
	return fmt.Sprintf("%d %d%s%d", n.BaudRate, n.DataBits, n.Parity, n.StopBits)
}

// SerialMode converts the options into the mode go.bug.st/serial expects.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	n, err := o.Normalise()
	if err != nil {
		return nil, err
	}

	stopBits := serial.OneStopBit
	if n.StopBits == 2 {
		stopBits = serial.TwoStopBits
	}
	return &serial.Mode{
		BaudRate: n.BaudRate,
		DataBits: n.DataBits,
		Parity:   parityModes[n.Parity],
		StopBits: stopBits,
	}, nil
}
