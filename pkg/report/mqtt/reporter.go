package mqtt

import (
	"context"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/syncframe/pkg/framing"
)

// DefaultPublishTimeout bounds the wait for a publish token.
const DefaultPublishTimeout = time.Second

// Publisher publishes payloads, e.g. Queue.
type Publisher interface {
	Pub(topic string, payload []byte) paho.Token
}

// Reporter implements framing.Reporter by publishing each record to
// <node>/<type>.
type Reporter struct {
	Publisher Publisher
	Node      string
	Timeout   time.Duration
	Now       func() time.Time
}

// NewReporter creates a Reporter.
func NewReporter(pub Publisher, node string) *Reporter {
	return &Reporter{Publisher: pub, Node: node, Timeout: DefaultPublishTimeout, Now: time.Now}
}

// Topic is the relative topic of records of a packet type.
func Topic(node, packetType string) string {
	return node + "/" + packetType
}

// Report implements framing.Reporter. Publish failures are logged.
func (r *Reporter) Report(_ context.Context, rec *framing.Record) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	payload, err := (&Envelope{Node: r.Node, Time: now(), Record: rec}).Encode()
	if err != nil {
		glog.Errorf("encode %s: %v", rec.Type, err)
		return
	}
	token := r.Publisher.Pub(Topic(r.Node, rec.Type), payload)
	timeout := r.Timeout
	if timeout == 0 {
		timeout = DefaultPublishTimeout
	}
	if !token.WaitTimeout(timeout) {
		glog.Warningf("publish %s: timeout", rec.Type)
		return
	}
	if err := token.Error(); err != nil {
		glog.Warningf("publish %s: %v", rec.Type, err)
	}
}
