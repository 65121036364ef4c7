package framing

import (
	"bytes"
	"fmt"
)

// Record is a decoded packet. It doesn't keep the marker or raw bytes.
type Record struct {
	Type   string
	Fields []Field
	Values []uint64
}

// Value gets the value of a named field.
func (r *Record) Value(name string) (uint64, bool) {
	for n, f := range r.Fields {
		if f.Name == name {
			return r.Values[n], true
		}
	}
	return 0, false
}

// String formats fields as zero-padded hex, e.g.
// x: 0x000000aa, y: 0x000000bb, z: 0x000000cc
func (r *Record) String() string {
	var w bytes.Buffer
	for n, f := range r.Fields {
		if n > 0 {
			w.WriteString(", ")
		}
		fmt.Fprintf(&w, "%s: 0x%0*x", f.Name, f.Width*2, r.Values[n])
	}
	return w.String()
}
