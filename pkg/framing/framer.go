package framing

import (
	"context"
	"errors"

	"github.com/golang/glog"
)

// State is the state of the framing loop.
type State int

const (
	// StateSeeking reads marker-width windows until one matches.
	StateSeeking State = iota
	// StateDecoding reads and decodes the payload of a matched packet.
	StateDecoding
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateSeeking:
		return "seeking"
	case StateDecoding:
		return "decoding"
	}
	return "unknown"
}

// StateNotifier is called when the framer changes state.
type StateNotifier interface {
	StateChanged(context.Context, State)
}

// StateChangedFunc is func type of StateNotifier.
type StateChangedFunc func(context.Context, State)

// StateChanged implements StateNotifier.
func (f StateChangedFunc) StateChanged(ctx context.Context, state State) {
	f(ctx, state)
}

// Observer receives framing events, e.g. for metrics.
type Observer interface {
	WindowDiscarded(window []byte)
	MarkerMatched(*PacketType)
	PacketDecoded(*Record)
}

// Framer turns a byte stream into decoded records.
type Framer struct {
	Source   ByteSource
	Registry *Registry
	Reporter Reporter
	Observer Observer
	Notifier StateNotifier

	state     State
	discarded int
}

// NewFramer creates a Framer.
func NewFramer(src ByteSource, reg *Registry, reporter Reporter) *Framer {
	return &Framer{Source: src, Registry: reg, Reporter: reporter}
}

// State gets the current state.
func (f *Framer) State() State {
	return f.state
}

// Run frames packets until the source fails. The context is only passed
// to the Reporter; to stop the loop, close the underlying source.
func (f *Framer) Run(ctx context.Context) error {
	if err := f.check(); err != nil {
		return err
	}
	for {
		if _, err := f.Step(ctx); err != nil {
			glog.V(2).Infof("framer stopped: %v", err)
			return err
		}
	}
}

// Step reads one marker window and, if it matches, the payload after it.
// The returned record is nil when the window is discarded.
func (f *Framer) Step(ctx context.Context) (*Record, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	window, err := f.read(f.Registry.MarkerWidth())
	if err != nil {
		return nil, err
	}
	typ, err := f.Registry.Match(window)
	if err != nil {
		return nil, err
	}
	if typ == nil {
		f.discarded++
		glog.V(3).Infof("discard window % x", window)
		if o := f.Observer; o != nil {
			o.WindowDiscarded(window)
		}
		return nil, nil
	}

	if f.discarded > 0 {
		glog.V(1).Infof("synced on %s after %d discarded windows", typ.Name, f.discarded)
		f.discarded = 0
	}
	if o := f.Observer; o != nil {
		o.MarkerMatched(typ)
	}
	f.setState(ctx, StateDecoding)
	defer f.setState(ctx, StateSeeking)

	payload, err := f.read(typ.Layout.Width())
	if err != nil {
		return nil, err
	}
	rec, err := typ.Decode(payload)
	if err != nil {
		return nil, err
	}
	if o := f.Observer; o != nil {
		o.PacketDecoded(rec)
	}
	if r := f.Reporter; r != nil {
		r.Report(ctx, rec)
	}
	return rec, nil
}

func (f *Framer) check() error {
	if f.Source == nil {
		return ErrNoSource
	}
	if f.Registry == nil {
		return ErrNoPacketTypes
	}
	return nil
}

func (f *Framer) read(n int) ([]byte, error) {
	b, err := f.Source.ReadExact(n)
	if err != nil {
		var ioErr *IOError
		if !errors.As(err, &ioErr) {
			err = &IOError{N: n, Err: err}
		}
		return nil, err
	}
	return b, nil
}

func (f *Framer) setState(ctx context.Context, state State) {
	if f.state == state {
		return
	}
	f.state = state
	glog.V(4).Infof("framer %s", state)
	if n := f.Notifier; n != nil {
		n.StateChanged(ctx, state)
	}
}
