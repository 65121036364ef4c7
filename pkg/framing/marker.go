package framing

import (
	"encoding/binary"
	"fmt"
)

// DefaultMarkerValue is the sync marker sent by the reference firmware.
const DefaultMarkerValue uint64 = 0xdeadbeef

// Marker is the synchronization value at the start of a packet.
type Marker struct {
	Value uint64
	// Width is the number of bytes on the wire: 1, 2, 4 or 8.
	Width int
	// Order is the byte order, nil means little-endian.
	Order binary.ByteOrder
}

// NewMarker creates a little-endian marker.
func NewMarker(value uint64, width int) (Marker, error) {
	m := Marker{Value: value, Width: width}
	return m, m.Validate()
}

// Validate checks the width and that Value fits in it.
func (m Marker) Validate() error {
	if !validWidth(m.Width) {
		return fmt.Errorf("invalid marker width %d", m.Width)
	}
	if m.Width < 8 && m.Value>>(uint(m.Width)*8) != 0 {
		return fmt.Errorf("marker 0x%x doesn't fit in %d bytes", m.Value, m.Width)
	}
	return nil
}

// Decode decodes a window as the marker's unsigned integer.
func (m Marker) Decode(window []byte) (uint64, error) {
	if len(window) != m.Width {
		return 0, &LayoutError{What: "marker", Want: m.Width, Got: len(window)}
	}
	return decodeUint(byteOrder(m.Order), window), nil
}

// Matches tells if the window is the marker.
func (m Marker) Matches(window []byte) (bool, error) {
	v, err := m.Decode(window)
	if err != nil {
		return false, err
	}
	return v == m.Value, nil
}

// Bytes returns the encoded marker.
func (m Marker) Bytes() []byte {
	b := make([]byte, m.Width)
	encodeUint(byteOrder(m.Order), b, m.Value)
	return b
}

// String implements fmt.Stringer.
func (m Marker) String() string {
	return fmt.Sprintf("0x%0*x", m.Width*2, m.Value)
}

func validWidth(w int) bool {
	switch w {
	case 1, 2, 4, 8:
		return true
	}
	return false
}

func byteOrder(o binary.ByteOrder) binary.ByteOrder {
	if o == nil {
		return binary.LittleEndian
	}
	return o
}

func decodeUint(o binary.ByteOrder, b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(o.Uint16(b))
	case 4:
		return uint64(o.Uint32(b))
	}
	return o.Uint64(b)
}

func encodeUint(o binary.ByteOrder, b []byte, v uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		o.PutUint16(b, uint16(v))
	case 4:
		o.PutUint32(b, uint32(v))
	default:
		o.PutUint64(b, v)
	}
}
