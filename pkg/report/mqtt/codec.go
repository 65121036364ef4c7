package mqtt

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang/protobuf/proto"
	structpb "github.com/golang/protobuf/ptypes/struct"

	"github.com/robotalks/syncframe/pkg/framing"
)

// Envelope is a published record.
type Envelope struct {
	Node   string
	Time   time.Time
	Record *framing.Record
}

// Encode encodes the envelope as a protobuf Struct. Values are decimal
// strings as protobuf numbers can't hold all 64-bit integers.
func (e *Envelope) Encode() ([]byte, error) {
	rec := e.Record
	names := make([]*structpb.Value, len(rec.Fields))
	widths := make([]*structpb.Value, len(rec.Fields))
	values := make([]*structpb.Value, len(rec.Fields))
	for n, f := range rec.Fields {
		names[n] = stringValue(f.Name)
		widths[n] = &structpb.Value{Kind: &structpb.Value_NumberValue{NumberValue: float64(f.Width)}}
		values[n] = stringValue(strconv.FormatUint(rec.Values[n], 10))
	}
	return proto.Marshal(&structpb.Struct{Fields: map[string]*structpb.Value{
		"node":   stringValue(e.Node),
		"time":   stringValue(e.Time.UTC().Format(time.RFC3339Nano)),
		"type":   stringValue(rec.Type),
		"fields": listValue(names),
		"widths": listValue(widths),
		"values": listValue(values),
	}})
}

// DecodeEnvelope decodes a payload created by Envelope.Encode.
func DecodeEnvelope(payload []byte) (*Envelope, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(payload, &s); err != nil {
		return nil, err
	}
	e := &Envelope{
		Node:   s.Fields["node"].GetStringValue(),
		Record: &framing.Record{Type: s.Fields["type"].GetStringValue()},
	}
	if ts := s.Fields["time"].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, err
		}
		e.Time = t
	}
	names := s.Fields["fields"].GetListValue().GetValues()
	widths := s.Fields["widths"].GetListValue().GetValues()
	values := s.Fields["values"].GetListValue().GetValues()
	if len(widths) != len(names) || len(values) != len(names) {
		return nil, fmt.Errorf("record %q: %d fields, %d widths, %d values",
			e.Record.Type, len(names), len(widths), len(values))
	}
	e.Record.Fields = make([]framing.Field, len(names))
	e.Record.Values = make([]uint64, len(names))
	for n := range names {
		e.Record.Fields[n] = framing.Field{
			Name:  names[n].GetStringValue(),
			Width: int(widths[n].GetNumberValue()),
		}
		v, err := strconv.ParseUint(values[n].GetStringValue(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("record %q field %q: %w", e.Record.Type, e.Record.Fields[n].Name, err)
		}
		e.Record.Values[n] = v
	}
	return e, nil
}

func stringValue(s string) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_StringValue{StringValue: s}}
}

func listValue(values []*structpb.Value) *structpb.Value {
	return &structpb.Value{Kind: &structpb.Value_ListValue{ListValue: &structpb.ListValue{Values: values}}}
}
