package main

import (
	"flag"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/syncframe/pkg/cli/sh"
	"github.com/robotalks/syncframe/pkg/config"
	"github.com/robotalks/syncframe/pkg/link"
)

var (
	packetType = "xyz"
	interval   = time.Second
	count      = 0
)

func init() {
	config.SetupFlags()
	flag.StringVar(&packetType, "type", packetType, "Packet type to send.")
	flag.DurationVar(&interval, "interval", interval, "Interval between packets.")
	flag.IntVar(&count, "count", count, "Number of packets to send, 0 for unlimited.")
}

// framegen writes the same packet to a link periodically, values are given
// as arguments, e.g. framegen -link /dev/ttyUSB1 0xaa 0xbb 0xcc
func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := config.Load()
	if err != nil {
		glog.Exit(err)
	}
	reg, err := conf.Registry()
	if err != nil {
		glog.Exit(err)
	}
	typ := reg.Lookup(packetType)
	if typ == nil {
		glog.Exitf("unknown packet type %q", packetType)
	}
	args := flag.Args()
	if len(args) == 0 && typ.Name == "xyz" {
		args = []string{"0xaa", "0xbb", "0xcc"}
	}
	values, err := sh.ParseValues(args...)
	if err != nil {
		glog.Exit(err)
	}
	packet, err := typ.Encode(values...)
	if err != nil {
		glog.Exit(err)
	}

	conn, err := link.Open(conf.Link, conf.Serial)
	if err != nil {
		glog.Exit(err)
	}
	defer conn.Close()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	if n, err := send(conn, packet, count, ticker.C); err != nil {
		glog.Errorf("write after %d packets: %v", n, err)
	}
}

// send writes packet count times (forever if count is 0), waiting for a
// tick between packets but not after the last one.
func send(w io.Writer, packet []byte, count int, tick <-chan time.Time) (int, error) {
	for n := 0; ; {
		if _, err := w.Write(packet); err != nil {
			return n, err
		}
		n++
		glog.V(2).Infof("sent % x", packet)
		if count > 0 && n >= count {
			return n, nil
		}
		<-tick
	}
}
