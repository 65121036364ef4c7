package framing

import (
	"encoding/binary"
	"fmt"
)

// Field is a named unsigned integer in the payload.
type Field struct {
	Name  string
	Width int
}

// Layout describes the fixed structure of a payload.
type Layout struct {
	Fields []Field
	// Order is the byte order of all fields, nil means little-endian.
	Order binary.ByteOrder
}

// Uint32Layout creates a little-endian layout of 4-byte fields.
func Uint32Layout(names ...string) Layout {
	fields := make([]Field, len(names))
	for n, name := range names {
		fields[n] = Field{Name: name, Width: 4}
	}
	return Layout{Fields: fields}
}

// Width is the total payload width in bytes.
func (l Layout) Width() (w int) {
	for _, f := range l.Fields {
		w += f.Width
	}
	return
}

func (l Layout) copyFields() []Field {
	return append([]Field(nil), l.Fields...)
}

// Validate checks field names and widths.
func (l Layout) Validate() error {
	if len(l.Fields) == 0 {
		return fmt.Errorf("layout has no fields")
	}
	names := make(map[string]bool, len(l.Fields))
	for _, f := range l.Fields {
		if f.Name == "" {
			return fmt.Errorf("layout field without name")
		}
		if names[f.Name] {
			return fmt.Errorf("duplicated field %q", f.Name)
		}
		names[f.Name] = true
		if !validWidth(f.Width) {
			return fmt.Errorf("field %q: invalid width %d", f.Name, f.Width)
		}
	}
	return nil
}

// Decode slices the window into fields in declared order.
func (l Layout) Decode(window []byte) ([]uint64, error) {
	if w := l.Width(); len(window) != w {
		return nil, &LayoutError{What: "payload", Want: w, Got: len(window)}
	}
	order := byteOrder(l.Order)
	values := make([]uint64, len(l.Fields))
	for n, f := range l.Fields {
		values[n] = decodeUint(order, window[:f.Width])
		window = window[f.Width:]
	}
	return values, nil
}

// Encode is the reverse of Decode. Values are truncated to field widths.
func (l Layout) Encode(values ...uint64) ([]byte, error) {
	if len(values) != len(l.Fields) {
		return nil, fmt.Errorf("%d values for %d fields", len(values), len(l.Fields))
	}
	order := byteOrder(l.Order)
	b := make([]byte, l.Width())
	p := b
	for n, f := range l.Fields {
		encodeUint(order, p[:f.Width], values[n])
		p = p[f.Width:]
	}
	return b, nil
}
