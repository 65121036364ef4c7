package main

import (
	"context"
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/robotalks/syncframe/pkg/config"
	"github.com/robotalks/syncframe/pkg/framework"
	"github.com/robotalks/syncframe/pkg/framing"
	"github.com/robotalks/syncframe/pkg/link"
	"github.com/robotalks/syncframe/pkg/metrics"
	"github.com/robotalks/syncframe/pkg/report/mqtt"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

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

	conn, err := link.Open(conf.Link, conf.Serial)
	if err != nil {
		glog.Exit(err)
	}
	glog.Infof("framing %s (%s)", conf.Link, conf.Serial)

	reporters := framing.Reporters{framing.NewConsoleReporter(os.Stdout)}
	if glog.V(1) {
		reporters = append(reporters, framing.LogReporter{})
	}
	runner := framework.NewRunner().HandleSignals()

	if conf.MQTT.URL != "" {
		q, err := mqtt.NewQueueFromURL(conf.MQTT.URL)
		if err != nil {
			glog.Exit(err)
		}
		q.Connect()
		defer q.Close()
		reporters = append(reporters, mqtt.NewReporter(q, conf.MQTT.Node()))
	}

	framer := framing.NewFramer(framing.NewStreamSource(conn), reg, reporters)
	if conf.Metrics.Addr != "" {
		promReg := prometheus.NewRegistry()
		framer.Observer = metrics.New(promReg)
		runner.Go(&metrics.Server{Addr: conf.Metrics.Addr, Gatherer: promReg})
	}

	runner.Go(framework.NamedRun("framer", framework.RunFunc(func(ctx context.Context) error {
		return framework.RunWithContextCloser(ctx, conn, func() error {
			return framer.Run(ctx)
		})
	})))
	if err := runner.Wait(); err != nil {
		glog.Error(err)
		glog.Flush()
		os.Exit(1)
	}
}
