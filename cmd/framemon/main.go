package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/syncframe/pkg/report/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/syncframe/"
	pattern = "+/+"
)

func init() {
	if val := os.Getenv("SYNCFRAME_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&pattern, "topic", pattern, "Topic pattern relative to the URL prefix, NODE/TYPE.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q.Sub(pattern, mqtt.Handler(func(topic string, payload []byte) {
		e, err := mqtt.DecodeEnvelope(payload)
		if err != nil {
			log.Printf("%s: bad record: %v", topic, err)
			return
		}
		log.Printf("%s: [%s] %s", e.Node, e.Record.Type, e.Record)
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	<-(chan struct{})(nil)
}
