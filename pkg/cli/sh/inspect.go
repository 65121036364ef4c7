package sh

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/robotalks/syncframe/pkg/framing"
)

// ParseHex parses bytes from args like "EF BE AD DE", "efbeadde" or "0xef,0xbe".
func ParseHex(args ...string) ([]byte, error) {
	s := strings.Join(args, "")
	s = strings.NewReplacer("0x", "", "0X", "", ",", "", ":", "", " ", "").Replace(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}

// ParseValues parses field values, accepting decimal, 0x hex and 0b binary.
func ParseValues(args ...string) ([]uint64, error) {
	values := make([]uint64, len(args))
	for n, arg := range args {
		v, err := strconv.ParseUint(arg, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q: %w", arg, err)
		}
		values[n] = v
	}
	return values, nil
}

// FrameResult is the outcome of framing a captured byte sequence.
type FrameResult struct {
	Records   []*framing.Record
	Discarded int
	// Trailing counts bytes not consumed by a discarded window or a
	// decoded packet, e.g. a truncated packet at the end.
	Trailing int
}

type frameCounter struct {
	result *FrameResult
}

func (c frameCounter) WindowDiscarded([]byte)          { c.result.Discarded++ }
func (c frameCounter) MarkerMatched(*framing.PacketType) {}
func (c frameCounter) PacketDecoded(*framing.Record)     {}

// Frame runs a Framer over captured bytes until they are exhausted.
func Frame(reg *framing.Registry, data []byte) (*FrameResult, error) {
	result := &FrameResult{}
	r := bytes.NewReader(data)
	f := framing.NewFramer(framing.NewStreamSource(r), reg, framing.ReportFunc(func(_ context.Context, rec *framing.Record) {
		result.Records = append(result.Records, rec)
	}))
	f.Observer = frameCounter{result: result}
	err := f.Run(context.Background())
	var ioErr *framing.IOError
	if !errors.As(err, &ioErr) || !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return result, err
	}
	result.Trailing = trailing(reg, data, result)
	return result, nil
}

func trailing(reg *framing.Registry, data []byte, result *FrameResult) int {
	consumed := result.Discarded * reg.MarkerWidth()
	for _, rec := range result.Records {
		consumed += reg.MarkerWidth()
		for _, f := range rec.Fields {
			consumed += f.Width
		}
	}
	return len(data) - consumed
}
