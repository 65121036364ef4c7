// Package link opens the byte stream carrying framed packets.
//
// An address is either a serial device path (e.g. /dev/ttyUSB0), a TCP
// endpoint of a serial server (tcp://host:port), or a websocket bridge
// (ws://host/path, wss://host/path).
package link

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"
	"go.bug.st/serial"
	"golang.org/x/net/websocket"
)

// DefaultAddr is the serial device used when nothing is configured.
const DefaultAddr = "/dev/ttyUSB0"

// SerialOpener opens a serial device.
type SerialOpener func(path string, mode *serial.Mode) (io.ReadWriteCloser, error)

// Dialer opens links.
type Dialer struct {
	Options     PortOptions
	DialTimeout time.Duration
	// OpenSerial defaults to go.bug.st/serial.
	OpenSerial SerialOpener
}

// Open opens a link with default dialer.
func Open(addr string, opts PortOptions) (io.ReadWriteCloser, error) {
	return (&Dialer{Options: opts}).Open(addr)
}

// Open opens the link at addr.
func (d *Dialer) Open(addr string) (io.ReadWriteCloser, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	if !strings.Contains(addr, "://") {
		return d.openSerial(addr)
	}
	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "serial":
		return d.openSerial(u.Path)
	case "tcp":
		glog.V(1).Infof("dial %s", u.Host)
		timeout := d.DialTimeout
		if timeout == 0 {
			timeout = 5 * time.Second
		}
		return net.DialTimeout("tcp", u.Host, timeout)
	case "ws", "wss":
		glog.V(1).Infof("dial %s", addr)
		origin := "http://" + u.Host + "/"
		if u.Scheme == "wss" {
			origin = "https://" + u.Host + "/"
		}
		conn, err := websocket.Dial(addr, "", origin)
		if err != nil {
			return nil, err
		}
		conn.PayloadType = websocket.BinaryFrame
		return conn, nil
	}
	return nil, fmt.Errorf("unsupported link %q", addr)
}

func (d *Dialer) openSerial(path string) (io.ReadWriteCloser, error) {
	mode, err := d.Options.SerialMode()
	if err != nil {
		return nil, err
	}
	opener := d.OpenSerial
	if opener == nil {
		opener = openSerialPort
	}
	glog.V(1).Infof("open %s at %d baud", path, mode.BaudRate)
	port, err := opener(path, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return port, nil
}

func openSerialPort(path string, mode *serial.Mode) (io.ReadWriteCloser, error) {
	return serial.Open(path, mode)
}
