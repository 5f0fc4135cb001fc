package endpoint

import (
	"errors"
	"fmt"
	"strings"

	tarm "github.com/tarm/serial"
	bugst "go.bug.st/serial"
)

// Driver names the serial library used to open local devices.
type Driver string

const (
	DriverBugst Driver = "bugst"
	DriverTarm  Driver = "tarm"
)

// ErrUnknownDriver is returned by Open for an unsupported Driver.
var ErrUnknownDriver = errors.New("unknown serial driver")

// Options control how Open reaches the device.
type Options struct {
	Baud   int
	EOL    EOL
	Driver Driver
}

// Open connects to address. Addresses starting with ws:// or wss:// are
// dialed as websocket serial bridges, anything else is treated as a local
// serial device path.
func Open(address string, opt Options) (*Endpoint, error) {
	if opt.Baud == 0 {
		opt.Baud = 115200
	}
	if isWebsocket(address) {
		conn, err := dialWebsocket(address)
		if err != nil {
			return nil, err
		}
		return New(address, conn, opt.EOL), nil
	}

	switch opt.Driver {
	case "", DriverBugst:
		port, err := bugst.Open(address, &bugst.Mode{
			BaudRate: opt.Baud,
			DataBits: 8,
			Parity:   bugst.NoParity,
			StopBits: bugst.OneStopBit,
		})
		if err != nil {
			return nil, fmt.Errorf("open serial port %s: %w", address, err)
		}
		return New(address, port, opt.EOL), nil
	case DriverTarm:
		port, err := tarm.OpenPort(&tarm.Config{Name: address, Baud: opt.Baud, ReadTimeout: tarmReadTimeout})
		if err != nil {
			return nil, fmt.Errorf("open serial port %s: %w", address, err)
		}
		return New(address, newPollingPort(port), opt.EOL), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, opt.Driver)
}

func isWebsocket(address string) bool {
	return strings.HasPrefix(address, "ws://") || strings.HasPrefix(address, "wss://")
}
