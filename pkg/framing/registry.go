package framing

import (
	"fmt"
	"io"
	"sort"
)

// PacketType binds a marker to the payload layout following it.
type PacketType struct {
	Name   string
	Marker Marker
	Layout Layout
}

// DefaultPacketType is the x/y/z packet sent by the reference firmware.
func DefaultPacketType() PacketType {
	return PacketType{
		Name:   "xyz",
		Marker: Marker{Value: DefaultMarkerValue, Width: 4},
		Layout: Uint32Layout("x", "y", "z"),
	}
}

// Validate validates marker and layout.
func (t PacketType) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("packet type without name")
	}
	if err := t.Marker.Validate(); err != nil {
		return fmt.Errorf("packet %q: %v", t.Name, err)
	}
	if err := t.Layout.Validate(); err != nil {
		return fmt.Errorf("packet %q: %v", t.Name, err)
	}
	return nil
}

// Decode decodes a payload window into a new Record. The record owns its
// field list.
func (t *PacketType) Decode(window []byte) (*Record, error) {
	values, err := t.Layout.Decode(window)
	if err != nil {
		return nil, err
	}
	return &Record{Type: t.Name, Fields: t.Layout.copyFields(), Values: values}, nil
}

// Encode returns the wire bytes: marker followed by payload.
func (t *PacketType) Encode(values ...uint64) ([]byte, error) {
	payload, err := t.Layout.Encode(values...)
	if err != nil {
		return nil, err
	}
	return append(t.Marker.Bytes(), payload...), nil
}

// WriteTo writes an encoded packet.
func (t *PacketType) WriteTo(w io.Writer, values ...uint64) (int, error) {
	b, err := t.Encode(values...)
	if err != nil {
		return 0, err
	}
	return w.Write(b)
}

// Registry maps marker values to packet types. All markers in a registry
// share the same width and byte order so one window decode selects the type.
type Registry struct {
	marker Marker
	types  map[uint64]*PacketType
}

// NewRegistry validates and indexes packet types. Layouts are copied, so
// later changes to the given field slices don't affect the registry.
func NewRegistry(types ...PacketType) (*Registry, error) {
	if len(types) == 0 {
		return nil, ErrNoPacketTypes
	}
	r := &Registry{
		marker: types[0].Marker,
		types:  make(map[uint64]*PacketType, len(types)),
	}
	names := make(map[string]bool, len(types))
	for n := range types {
		t := types[n]
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if t.Marker.Width != r.marker.Width || byteOrder(t.Marker.Order) != byteOrder(r.marker.Order) {
			return nil, fmt.Errorf("packet %q: marker encoding differs from %q", t.Name, types[0].Name)
		}
		if prev, exists := r.types[t.Marker.Value]; exists {
			return nil, fmt.Errorf("packet %q: marker %s already used by %q", t.Name, t.Marker, prev.Name)
		}
		if names[t.Name] {
			return nil, fmt.Errorf("duplicated packet type %q", t.Name)
		}
		names[t.Name] = true
		t.Layout.Fields = t.Layout.copyFields()
		r.types[t.Marker.Value] = &t
	}
	return r, nil
}

// MustNewRegistry is NewRegistry which panics on error.
func MustNewRegistry(types ...PacketType) *Registry {
	r, err := NewRegistry(types...)
	if err != nil {
		panic(err)
	}
	return r
}

// MarkerWidth is the width of SEEKING windows.
func (r *Registry) MarkerWidth() int {
	return r.marker.Width
}

// Match returns the packet type whose marker equals the window, or nil.
func (r *Registry) Match(window []byte) (*PacketType, error) {
	v, err := r.marker.Decode(window)
	if err != nil {
		return nil, err
	}
	return r.types[v], nil
}

// Lookup finds a packet type by name.
func (r *Registry) Lookup(name string) *PacketType {
	for _, t := range r.types {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Types lists packet types ordered by name.
func (r *Registry) Types() []*PacketType {
	types := make([]*PacketType, 0, len(r.types))
	for _, t := range r.types {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types
}
