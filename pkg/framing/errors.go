package framing

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPacketTypes indicates a registry is built without any packet type.
	ErrNoPacketTypes = errors.New("no packet types")
	// ErrNoSource indicates the Framer has no ByteSource.
	ErrNoSource = errors.New("no byte source")
)

// LayoutError indicates a window is handed to a marker or payload decoder
// with the wrong width. It's a wiring defect, not a data error.
type LayoutError struct {
	What string
	Want int
	Got  int
}

// Error implements error.
func (e *LayoutError) Error() string {
	return fmt.Sprintf("%s window is %d bytes, expect %d", e.What, e.Got, e.Want)
}

// IOError wraps a failure of the ByteSource.
type IOError struct {
	N   int
	Err error
}

// Error implements error.
func (e *IOError) Error() string {
	return fmt.Sprintf("read %d bytes: %v", e.N, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}
