package framing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

type streamBuilder struct {
	t   *testing.T
	buf bytes.Buffer
}

func testStream(t *testing.T) *streamBuilder {
	return &streamBuilder{t: t}
}

func (b *streamBuilder) packet(typ PacketType, values ...uint64) *streamBuilder {
	_, err := typ.WriteTo(&b.buf, values...)
	require.NoError(b.t, err)
	return b
}

func (b *streamBuilder) raw(p ...byte) *streamBuilder {
	b.buf.Write(p)
	return b
}

func (b *streamBuilder) source() *StreamSource {
	return NewStreamSource(bytes.NewReader(b.buf.Bytes()))
}

type recorder struct {
	records   []*Record
	discarded [][]byte
	matched   []string
	decoded   int
}

func (r *recorder) Report(_ context.Context, rec *Record) {
	r.records = append(r.records, rec)
}

func (r *recorder) WindowDiscarded(window []byte) {
	r.discarded = append(r.discarded, window)
}

func (r *recorder) MarkerMatched(t *PacketType) {
	r.matched = append(r.matched, t.Name)
}

func (r *recorder) PacketDecoded(*Record) {
	r.decoded++
}

func runFramer(t *testing.T, src ByteSource, reg *Registry) (*recorder, error) {
	rec := &recorder{}
	f := NewFramer(src, reg, rec)
	f.Observer = rec
	err := f.Run(context.TODO())
	require.Error(t, err)
	return rec, err
}

func xyz(x, y, z uint64) *Record {
	return &Record{Type: "xyz", Fields: Uint32Layout("x", "y", "z").Fields, Values: []uint64{x, y, z}}
}

func TestFramerExample(t *testing.T) {
	src := NewStreamSource(bytes.NewReader([]byte{
		0xef, 0xbe, 0xad, 0xde,
		0xaa, 0x00, 0x00, 0x00,
		0xbb, 0x00, 0x00, 0x00,
		0xcc, 0x00, 0x00, 0x00,
	}))
	rec, err := runFramer(t, src, MustNewRegistry(DefaultPacketType()))
	require.True(t, errors.Is(err, io.EOF))
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	require.Equal(t, 4, ioErr.N)
	require.Equal(t, []*Record{xyz(0xaa, 0xbb, 0xcc)}, rec.records)
	require.Equal(t, "x: 0x000000aa, y: 0x000000bb, z: 0x000000cc", rec.records[0].String())
}

func TestFramerRoundTrip(t *testing.T) {
	typ := DefaultPacketType()
	reg := MustNewRegistry(typ)
	rnd := rand.New(rand.NewSource(1))
	values := [][3]uint64{
		{0, 0, 0},
		{0xffffffff, 0xffffffff, 0xffffffff},
		{0xdeadbeef, 0xdeadbeef, 0xdeadbeef},
	}
	for n := 0; n < 100; n++ {
		values = append(values, [3]uint64{uint64(rnd.Uint32()), uint64(rnd.Uint32()), uint64(rnd.Uint32())})
	}
	for _, v := range values {
		rec, err := runFramer(t, testStream(t).packet(typ, v[0], v[1], v[2]).source(), reg)
		require.True(t, errors.Is(err, io.EOF))
		require.Equal(t, []*Record{xyz(v[0], v[1], v[2])}, rec.records, "values %x", v)
	}
}

func TestFramerDiscardsWindows(t *testing.T) {
	typ := DefaultPacketType()
	windows := [][]byte{
		{0x00, 0x00, 0x00, 0x00},
		{0xff, 0xff, 0xff, 0xff},
		{0xde, 0xad, 0xbe, 0xef},
		{0xef, 0xbe, 0xad, 0xdf},
		{0x11, 0x22, 0x33, 0x44},
	}
	for n := 0; n <= len(windows); n++ {
		b := testStream(t)
		for _, w := range windows[:n] {
			b.raw(w...)
		}
		rec, err := runFramer(t, b.packet(typ, 1, 2, 3).source(), MustNewRegistry(typ))
		require.True(t, errors.Is(err, io.EOF))
		require.Len(t, rec.discarded, n)
		if n > 0 {
			require.Equal(t, windows[:n], rec.discarded)
		}
		require.Equal(t, []*Record{xyz(1, 2, 3)}, rec.records)
		require.Equal(t, []string{"xyz"}, rec.matched)
		require.Equal(t, 1, rec.decoded)
	}
}

func TestFramerMisalignedMarker(t *testing.T) {
	typ := DefaultPacketType()
	for offset := 1; offset < 4; offset++ {
		b := testStream(t)
		for n := 0; n < offset; n++ {
			b.raw(byte(n + 1))
		}
		rec, err := runFramer(t, b.packet(typ, 0xaa, 0xbb, 0xcc).source(), MustNewRegistry(typ))
		require.True(t, errors.Is(err, io.ErrUnexpectedEOF), "offset %d", offset)
		require.Empty(t, rec.records, "offset %d", offset)
		require.Len(t, rec.discarded, 4, "offset %d", offset)
	}
}

func TestFramerMarkerReusedAsGarbage(t *testing.T) {
	// a marker inside a rejected window is not reconsidered.
	typ := DefaultPacketType()
	src := testStream(t).
		raw(0x01, 0x02).
		packet(typ, 1, 2, 3).
		raw(0x00, 0x00).
		packet(typ, 4, 5, 6).
		source()
	rec, err := runFramer(t, src, MustNewRegistry(typ))
	require.True(t, errors.Is(err, io.EOF))
	require.Equal(t, []*Record{xyz(4, 5, 6)}, rec.records)
}

func TestFramerNoChecksum(t *testing.T) {
	typ := DefaultPacketType()
	reg := MustNewRegistry(typ)
	wire, err := typ.Encode(0xaa, 0xbb, 0xcc)
	require.NoError(t, err)
	for bit := 32; bit < len(wire)*8; bit++ {
		corrupted := append([]byte(nil), wire...)
		corrupted[bit/8] ^= 1 << uint(bit%8)
		rec, err := runFramer(t, NewStreamSource(bytes.NewReader(corrupted)), reg)
		require.True(t, errors.Is(err, io.EOF))
		require.Len(t, rec.records, 1, "bit %d", bit)
		expected := []uint64{0xaa, 0xbb, 0xcc}
		field := (bit - 32) / 32
		expected[field] ^= 1 << uint((bit-32)%32)
		require.Equal(t, expected, rec.records[0].Values, "bit %d", bit)
	}
}

func TestFramerOrdering(t *testing.T) {
	typ := DefaultPacketType()
	b := testStream(t)
	var expected []*Record
	for n := uint64(0); n < 10; n++ {
		if n%3 == 0 {
			b.raw(0, 0, 0, byte(n))
		}
		b.packet(typ, n, n*2, n*3)
		expected = append(expected, xyz(n, n*2, n*3))
	}
	rec, err := runFramer(t, b.source(), MustNewRegistry(typ))
	require.True(t, errors.Is(err, io.EOF))
	require.Equal(t, expected, rec.records)
	require.Len(t, rec.discarded, 4)
}

func TestFramerTruncatedPayload(t *testing.T) {
	typ := DefaultPacketType()
	src := testStream(t).packet(typ, 1, 2, 3).raw(0xef, 0xbe, 0xad, 0xde, 1, 2, 3).source()
	rec, err := runFramer(t, src, MustNewRegistry(typ))
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	require.Equal(t, 12, ioErr.N)
	require.Equal(t, []*Record{xyz(1, 2, 3)}, rec.records)
}

func TestFramerDispatch(t *testing.T) {
	pos := DefaultPacketType()
	status := PacketType{
		Name:   "status",
		Marker: Marker{Value: 0xcafef00d, Width: 4},
		Layout: Layout{Fields: []Field{{Name: "code", Width: 1}, {Name: "uptime", Width: 8}}},
	}
	src := testStream(t).
		packet(status, 7, 1<<40).
		raw(0, 0, 0, 0).
		packet(pos, 1, 2, 3).
		source()
	rec, err := runFramer(t, src, MustNewRegistry(pos, status))
	require.True(t, errors.Is(err, io.EOF))
	require.Equal(t, []string{"status", "xyz"}, rec.matched)
	require.Len(t, rec.records, 2)
	require.Equal(t, "status", rec.records[0].Type)
	require.Equal(t, []uint64{7, 1 << 40}, rec.records[0].Values)
	require.Equal(t, xyz(1, 2, 3), rec.records[1])
}

func TestFramerStateChanges(t *testing.T) {
	typ := DefaultPacketType()
	var states []State
	f := NewFramer(testStream(t).raw(9, 9, 9, 9).packet(typ, 1, 2, 3).source(), MustNewRegistry(typ), nil)
	f.Notifier = StateChangedFunc(func(_ context.Context, state State) {
		states = append(states, state)
	})
	require.Equal(t, StateSeeking, f.State())

	rec, err := f.Step(context.TODO())
	require.NoError(t, err)
	require.Nil(t, rec)
	require.Empty(t, states)

	rec, err = f.Step(context.TODO())
	require.NoError(t, err)
	require.Equal(t, xyz(1, 2, 3), rec)
	require.Equal(t, []State{StateDecoding, StateSeeking}, states)
	require.Equal(t, StateSeeking, f.State())
}

func TestFramerSourceErrors(t *testing.T) {
	reg := MustNewRegistry(DefaultPacketType())
	t.Run("plain error wrapped", func(t *testing.T) {
		failure := errors.New("link down")
		_, err := runFramer(t, ReadExactFunc(func(n int) ([]byte, error) {
			return nil, failure
		}), reg)
		var ioErr *IOError
		require.True(t, errors.As(err, &ioErr))
		require.Equal(t, failure, ioErr.Err)
	})
	t.Run("short window is a layout error", func(t *testing.T) {
		_, err := runFramer(t, ReadExactFunc(func(n int) ([]byte, error) {
			return make([]byte, n-1), nil
		}), reg)
		var layoutErr *LayoutError
		require.True(t, errors.As(err, &layoutErr))
		require.Equal(t, &LayoutError{What: "marker", Want: 4, Got: 3}, layoutErr)
	})
	t.Run("short payload is a layout error", func(t *testing.T) {
		marker := DefaultPacketType().Marker.Bytes()
		_, err := runFramer(t, ReadExactFunc(func(n int) ([]byte, error) {
			if n == 4 {
				return marker, nil
			}
			return make([]byte, n+1), nil
		}), reg)
		require.Equal(t, &LayoutError{What: "payload", Want: 12, Got: 13}, err)
	})
	t.Run("no source", func(t *testing.T) {
		require.Equal(t, ErrNoSource, NewFramer(nil, reg, nil).Run(context.TODO()))
	})
	t.Run("no registry", func(t *testing.T) {
		src := NewStreamSource(bytes.NewReader(nil))
		require.Equal(t, ErrNoPacketTypes, NewFramer(src, nil, nil).Run(context.TODO()))
	})
	t.Run("step without source or registry", func(t *testing.T) {
		rec, err := NewFramer(nil, reg, nil).Step(context.TODO())
		require.Nil(t, rec)
		require.Equal(t, ErrNoSource, err)
		src := NewStreamSource(bytes.NewReader(DefaultPacketType().Marker.Bytes()))
		rec, err = NewFramer(src, nil, nil).Step(context.TODO())
		require.Nil(t, rec)
		require.Equal(t, ErrNoPacketTypes, err)
	})
}

func TestStreamSource(t *testing.T) {
	src := NewStreamSource(bytes.NewReader([]byte{1, 2, 3, 4, 5}))
	b, err := src.ReadExact(3)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, b)
	_, err = src.ReadExact(3)
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	require.EqualError(t, err, "read 3 bytes: unexpected EOF")
}
