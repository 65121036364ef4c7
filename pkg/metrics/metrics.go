// Package metrics exports framing counters to Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robotalks/syncframe/pkg/framing"
)

// Metrics implements framing.Observer.
type Metrics struct {
	WindowsDiscarded prometheus.Counter
	BytesDiscarded   prometheus.Counter
	MarkersMatched   *prometheus.CounterVec
	PacketsDecoded   *prometheus.CounterVec
	LastPacket       *prometheus.GaugeVec
}

// New creates and registers metrics with the registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WindowsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "syncframe_windows_discarded_total",
			Help: "Total number of marker windows which didn't match any marker",
		}),
		BytesDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "syncframe_bytes_discarded_total",
			Help: "Total number of bytes dropped while seeking a marker",
		}),
		MarkersMatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "syncframe_markers_matched_total",
			Help: "Total number of matched markers",
		}, []string{"type"}),
		PacketsDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "syncframe_packets_decoded_total",
			Help: "Total number of decoded packets",
		}, []string{"type"}),
		LastPacket: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "syncframe_last_packet_timestamp_seconds",
			Help: "Unix time of the last decoded packet",
		}, []string{"type"}),
	}
}

// WindowDiscarded implements framing.Observer.
func (m *Metrics) WindowDiscarded(window []byte) {
	m.WindowsDiscarded.Inc()
	m.BytesDiscarded.Add(float64(len(window)))
}

// MarkerMatched implements framing.Observer.
func (m *Metrics) MarkerMatched(t *framing.PacketType) {
	m.MarkersMatched.WithLabelValues(t.Name).Inc()
}

// PacketDecoded implements framing.Observer.
func (m *Metrics) PacketDecoded(rec *framing.Record) {
	m.PacketsDecoded.WithLabelValues(rec.Type).Inc()
	m.LastPacket.WithLabelValues(rec.Type).SetToCurrentTime()
}

// Server serves /metrics.
type Server struct {
	Addr     string
	Gatherer prometheus.Gatherer
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Name implements framework.Named.
func (s *Server) Name() string {
	return "metrics"
}

// Run implements framework.Runnable.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.Addr, Handler: s.Handler()}
	errCh := make(chan error, 1)
	go func() {
		glog.Infof("metrics listening on %s", s.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return ctx.Err()
	}
}
