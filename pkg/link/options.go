package link

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// DefaultBaudRate is the baud rate of the reference firmware UART.
const DefaultBaudRate = 115200

// PortOptions are the line settings of a serial link.
// Zero values mean 115200 8N1.
type PortOptions struct {
	BaudRate int    `toml:"baud_rate"`
	DataBits int    `toml:"data_bits"`
	StopBits int    `toml:"stop_bits"`
	Parity   string `toml:"parity"`
}

var (
	parityNames = map[string]string{
		"": "N", "N": "N", "NONE": "N",
		"E": "E", "EVEN": "E",
		"O": "O", "ODD": "O",
	}
	parityModes = map[string]serial.Parity{
		"N": serial.NoParity,
		"E": serial.EvenParity,
		"O": serial.OddParity,
	}
	stopBitModes = map[int]serial.StopBits{
		1: serial.OneStopBit,
		2: serial.TwoStopBits,
	}
)

// Normalize fills defaults and canonicalizes parity to N, E or O.
func (o PortOptions) Normalize() (PortOptions, error) {
	if o.BaudRate <= 0 {
		o.BaudRate = DefaultBaudRate
	}
	if o.DataBits == 0 {
		o.DataBits = 8
	}
	if o.StopBits == 0 {
		o.StopBits = 1
	}
	if o.DataBits < 5 || o.DataBits > 8 {
		return o, fmt.Errorf("invalid data bits %d: must be between 5 and 8", o.DataBits)
	}
	if _, ok := stopBitModes[o.StopBits]; !ok {
		return o, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", o.StopBits)
	}
	parity, ok := parityNames[strings.ToUpper(strings.TrimSpace(o.Parity))]
	if !ok {
		return o, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	o.Parity = parity
	return o, nil
}

// SerialMode converts the options for serial.Open.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}
	return &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: stopBitModes[opts.StopBits],
		Parity:   parityModes[opts.Parity],
	}, nil
}

// String formats the options like 115200/8N1.
func (o PortOptions) String() string {
	return fmt.Sprintf("%d/%d%s%d", o.BaudRate, o.DataBits, o.Parity, o.StopBits)
}
