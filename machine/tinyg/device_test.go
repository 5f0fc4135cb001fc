package tinyg

import (
	"errors"
	"io/ioutil"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mastercactapus/g2stream/endpoint"
	"github.com/mastercactapus/g2stream/machine"
	"github.com/sirupsen/logrus"
)

const (
	waitTimeout = 2 * time.Second
	quietPeriod = 150 * time.Millisecond
)

// device simulates the controller end of one serial link.
type device struct {
	ep *endpoint.Endpoint

	// ctrl receives JSON commands, gcode everything else.
	ctrl  chan string
	gcode chan string
}

func newDevice(eol endpoint.EOL) (*endpoint.Endpoint, *device) {
	host, dev := net.Pipe()
	d := &device{
		ep:    endpoint.New("device", dev, eol),
		ctrl:  make(chan string, 1000),
		gcode: make(chan string, 1000),
	}
	go func() {
		defer close(d.ctrl)
		defer close(d.gcode)
		for {
			line, err := d.ep.ReadLine()
			if err != nil {
				return
			}
			if strings.HasPrefix(line, "{") {
				d.ctrl <- line
			} else {
				d.gcode <- line
			}
		}
	}()
	return endpoint.New("host", host, eol), d
}

func (d *device) Send(line string) { d.ep.WriteLine(line) }
func (d *device) Close()           { d.ep.Close() }

func recv(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case line, ok := <-ch:
		if !ok {
			t.Fatal("device closed")
		}
		return line
	case <-time.After(waitTimeout):
		t.Fatal("timeout waiting for line")
	}
	return ""
}

func expectQuiet(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case line, ok := <-ch:
		if ok {
			t.Fatalf("unexpected line %q", line)
		}
	case <-time.After(quietPeriod):
	}
}

func waitJob(t *testing.T, events <-chan interface{}) machine.JobResult {
	t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case v := <-events:
			if res, ok := v.(machine.JobResult); ok {
				return res
			}
		case <-timeout:
			t.Fatal("timeout waiting for job result")
		}
	}
}

func waitMessage(t *testing.T, events <-chan interface{}, sev machine.Severity) machine.Message {
	t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case v := <-events:
			if msg, ok := v.(machine.Message); ok && msg.Severity == sev {
				return msg
			}
		case <-timeout:
			t.Fatalf("timeout waiting for %s message", sev)
		}
	}
}

func quietLog() *logrus.Entry {
	l := logrus.New()
	l.Out = ioutil.Discard
	return logrus.NewEntry(l)
}

func testConsole() *console {
	return &console{bus: machine.NewBus(), log: quietLog()}
}

func pipeOpener(eps map[string]*endpoint.Endpoint) Opener {
	return func(address string, opt endpoint.Options) (*endpoint.Endpoint, error) {
		ep, ok := eps[address]
		if !ok {
			return nil, errors.New("no such port")
		}
		return ep, nil
	}
}

func gcodeLines(n int) string {
	lines := make([]string, n)
	for i := range lines {
		lines[i] = "G1X" + strconv.Itoa(i+1)
	}
	return strings.Join(lines, "\n") + "\n"
}
