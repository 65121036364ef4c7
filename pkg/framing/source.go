package framing

import (
	"io"
)

// ByteSource reads exactly n bytes or fails.
type ByteSource interface {
	ReadExact(n int) ([]byte, error)
}

// ReadExactFunc is func type of ByteSource.
type ReadExactFunc func(n int) ([]byte, error)

// ReadExact implements ByteSource.
func (f ReadExactFunc) ReadExact(n int) ([]byte, error) {
	return f(n)
}

// StreamSource implements ByteSource over an io.Reader.
type StreamSource struct {
	io.Reader
}

// NewStreamSource wraps an io.Reader.
func NewStreamSource(r io.Reader) *StreamSource {
	return &StreamSource{Reader: r}
}

// ReadExact implements ByteSource. A short read fails with IOError.
func (s *StreamSource) ReadExact(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(s.Reader, b); err != nil {
		return nil, &IOError{N: n, Err: err}
	}
	return b, nil
}
