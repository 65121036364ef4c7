// Package config provides flags, environment and TOML configuration for
// syncframe binaries.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/robotalks/syncframe/pkg/framing"
	"github.com/robotalks/syncframe/pkg/link"
)

// Config is the configuration of a framer.
type Config struct {
	// Link is a serial device path or a tcp://, ws:// address.
	Link    string           `toml:"link"`
	Serial  link.PortOptions `toml:"serial"`
	Packets []PacketConfig   `toml:"packet"`
	MQTT    MQTTConfig       `toml:"mqtt"`
	Metrics MetricsConfig    `toml:"metrics"`
}

// PacketConfig declares a packet type. Byte order is always little-endian.
type PacketConfig struct {
	Name        string        `toml:"name"`
	Marker      uint64        `toml:"marker"`
	MarkerWidth int           `toml:"marker_width"`
	Fields      []FieldConfig `toml:"fields"`
}

// FieldConfig declares a payload field, width defaults to 4 bytes.
type FieldConfig struct {
	Name  string `toml:"name"`
	Width int    `toml:"width"`
}

// MQTTConfig enables publishing records to an MQTT broker.
type MQTTConfig struct {
	// URL specifies the MQTT broker to use.
	// e.g. mqtt://host:port/topic-prefix
	URL    string `toml:"url"`
	NodeID string `toml:"node_id"`
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

var (
	defaultConfig = Config{
		Link: link.DefaultAddr,
	}
	configFile string
)

func init() {
	if val := os.Getenv("SYNCFRAME_LINK"); val != "" {
		defaultConfig.Link = val
	}
	if val := os.Getenv("SYNCFRAME_MQTT_URL"); val != "" {
		defaultConfig.MQTT.URL = val
	}
	if val := os.Getenv("SYNCFRAME_CONFIG"); val != "" {
		configFile = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	SetupFlagSet(flag.CommandLine)
}

// SetupFlagSet binds config flags to fs.
func SetupFlagSet(fs *flag.FlagSet) {
	fs.StringVar(&configFile, "config", configFile, "TOML config file, flags given explicitly take precedence over it.")
	fs.StringVar(&defaultConfig.Link, "link", defaultConfig.Link, "Serial device or tcp://, ws:// address.")
	fs.IntVar(&defaultConfig.Serial.BaudRate, "baud", defaultConfig.Serial.BaudRate, "Serial baud rate, 0 for 115200.")
	fs.StringVar(&defaultConfig.MQTT.URL, "mqtt", defaultConfig.MQTT.URL, "MQTT broker URL to publish records, e.g. mqtt://localhost:1883/syncframe/")
	fs.StringVar(&defaultConfig.MQTT.NodeID, "node-id", defaultConfig.MQTT.NodeID, "Node ID in MQTT topics, defaults to machine ID.")
	fs.StringVar(&defaultConfig.Metrics.Addr, "metrics", defaultConfig.Metrics.Addr, "Listen address of Prometheus metrics, e.g. :9100")
}

// flagFields copies the value bound to a flag from src to dst.
var flagFields = map[string]func(dst, src *Config){
	"link":    func(dst, src *Config) { dst.Link = src.Link },
	"baud":    func(dst, src *Config) { dst.Serial.BaudRate = src.Serial.BaudRate },
	"mqtt":    func(dst, src *Config) { dst.MQTT.URL = src.MQTT.URL },
	"node-id": func(dst, src *Config) { dst.MQTT.NodeID = src.MQTT.NodeID },
	"metrics": func(dst, src *Config) { dst.Metrics.Addr = src.Metrics.Addr },
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	conf.Packets = append([]PacketConfig(nil), defaultConfig.Packets...)
	return &conf
}

// Load creates a Config from defaults and the config file if specified
// by flag or environment. Flags set on the command line override the file.
func Load() (*Config, error) {
	return LoadFrom(flag.CommandLine, configFile)
}

// LoadFrom overlays the config file at path (if not empty) on defaults,
// then re-applies flags explicitly set in fs.
func LoadFrom(fs *flag.FlagSet, path string) (*Config, error) {
	conf := NewConfig()
	if path != "" {
		if err := conf.LoadFile(path); err != nil {
			return nil, err
		}
		fs.Visit(func(f *flag.Flag) {
			if apply, ok := flagFields[f.Name]; ok {
				apply(conf, &defaultConfig)
			}
		})
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// LoadFile overlays a TOML file.
func (c *Config) LoadFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}

// Validate checks the link options and packet types.
func (c *Config) Validate() error {
	if c.Link == "" {
		c.Link = link.DefaultAddr
	}
	opts, err := c.Serial.Normalize()
	if err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	c.Serial = opts
	if _, err := c.Registry(); err != nil {
		return err
	}
	return nil
}

// PacketTypes converts packet configs, the default x/y/z packet is used
// if none is declared.
func (c *Config) PacketTypes() []framing.PacketType {
	if len(c.Packets) == 0 {
		return []framing.PacketType{framing.DefaultPacketType()}
	}
	types := make([]framing.PacketType, len(c.Packets))
	for n, p := range c.Packets {
		width := p.MarkerWidth
		if width == 0 {
			width = 4
		}
		fields := make([]framing.Field, len(p.Fields))
		for i, f := range p.Fields {
			fields[i] = framing.Field{Name: f.Name, Width: f.Width}
			if f.Width == 0 {
				fields[i].Width = 4
			}
		}
		types[n] = framing.PacketType{
			Name:   p.Name,
			Marker: framing.Marker{Value: p.Marker, Width: width},
			Layout: framing.Layout{Fields: fields},
		}
	}
	return types
}

// Registry builds the immutable packet registry.
func (c *Config) Registry() (*framing.Registry, error) {
	return framing.NewRegistry(c.PacketTypes()...)
}
