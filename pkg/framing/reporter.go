package framing

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/golang/glog"
)

// Reporter consumes decoded records.
type Reporter interface {
	Report(context.Context, *Record)
}

// ReportFunc is func type of Reporter.
type ReportFunc func(context.Context, *Record)

// Report implements Reporter.
func (f ReportFunc) Report(ctx context.Context, rec *Record) {
	f(ctx, rec)
}

// Reporters fans a record out to all reporters in order.
type Reporters []Reporter

// Report implements Reporter.
func (r Reporters) Report(ctx context.Context, rec *Record) {
	for _, reporter := range r {
		reporter.Report(ctx, rec)
	}
}

// ConsoleReporter prints one line per record.
type ConsoleReporter struct {
	W io.Writer

	lock sync.Mutex
}

// NewConsoleReporter creates a ConsoleReporter.
func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{W: w}
}

// Report implements Reporter.
func (r *ConsoleReporter) Report(_ context.Context, rec *Record) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if _, err := fmt.Fprintln(r.W, rec.String()); err != nil {
		glog.Warningf("report %s: %v", rec.Type, err)
	}
}

// LogReporter reports records into glog.
type LogReporter struct{}

// Report implements Reporter.
func (LogReporter) Report(_ context.Context, rec *Record) {
	glog.Infof("[%s] %s", rec.Type, rec)
}
