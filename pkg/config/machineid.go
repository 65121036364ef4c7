package config

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID retrieves the unique ID identifying the machine, falls back to
// the host name.
func MachineID() string {
	id, err := machineid.ProtectedID("syncframe")
	if err == nil {
		return id[:12]
	}
	glog.Warningf("machine id: %v", err)
	if host, err := os.Hostname(); err == nil {
		return host
	}
	return "unknown"
}

// Node is the configured MQTT node ID or MachineID.
func (c *MQTTConfig) Node() string {
	if c.NodeID != "" {
		return c.NodeID
	}
	return MachineID()
}
